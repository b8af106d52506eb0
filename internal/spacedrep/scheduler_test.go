package spacedrep

import (
	"errors"
	"math"
	"slices"
	"testing"
	"time"
)

var day0 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func newScheduler() *Scheduler { return NewScheduler(DefaultParams()) }

func TestReview_NewLearningReviewWithPerfectRecall(t *testing.T) {
	s := newScheduler()
	rs := s.New("u1", "card-1")
	now := day0

	wantStatus := []Status{StatusLearning, StatusLearning, StatusReview}
	prevInterval := 0
	for i, want := range wantStatus {
		rs = s.Review(rs, 5, now)
		if rs.Status != want {
			t.Errorf("review %d: Status = %s, want %s", i+1, rs.Status, want)
		}
		if rs.IntervalDays < prevInterval {
			t.Errorf("review %d: interval shrank from %d to %d", i+1, prevInterval, rs.IntervalDays)
		}
		prevInterval = rs.IntervalDays
		now = rs.NextDueAt
	}

	if rs.TotalReviews != 3 || rs.PerfectReviews != 3 || rs.QualitySum != 15 {
		t.Errorf("counters = %d total, %d perfect, %d sum; want 3, 3, 15", rs.TotalReviews, rs.PerfectReviews, rs.QualitySum)
	}
	if math.Abs(rs.EaseFactor-2.8) > 1e-9 {
		t.Errorf("EaseFactor = %f, want 2.8", rs.EaseFactor)
	}
}

func TestReview_IntervalsStrictlyIncreaseUntilCap(t *testing.T) {
	s := newScheduler()
	rs := s.New("u1", "c")
	now := day0

	var intervals []int
	for i := 0; i < 12; i++ {
		rs = s.Review(rs, QualityPerfect, now)
		intervals = append(intervals, rs.IntervalDays)
		now = rs.NextDueAt
	}

	want := []int{1, 3, 8, 23, 69, 214, 365}
	if !slices.Equal(intervals[:len(want)], want) {
		t.Errorf("intervals = %v, want prefix %v", intervals, want)
	}
	for i := 1; i < len(intervals); i++ {
		if intervals[i-1] == 365 {
			if intervals[i] != 365 {
				t.Errorf("interval left the cap: %v", intervals)
			}
			continue
		}
		if intervals[i] <= intervals[i-1] {
			t.Errorf("interval %d (%d) not greater than previous (%d)", i, intervals[i], intervals[i-1])
		}
	}
	if rs.Status != StatusGraduated {
		t.Errorf("Status = %s, want graduated", rs.Status)
	}
}

func TestReview_GraduatesAtThreshold(t *testing.T) {
	s := newScheduler()
	rs := ReviewState{CardID: "c", Status: StatusReview, IntervalDays: 8, EaseFactor: 2.5, ConsecutiveGood: 2}

	rs = s.Review(rs, 4, day0)
	// 8 * 2.5 = 20: still short of 21 days.
	if rs.IntervalDays != 20 || rs.Status != StatusReview {
		t.Fatalf("interval %d status %s, want 20 review", rs.IntervalDays, rs.Status)
	}
	rs = s.Review(rs, 4, day0.AddDate(0, 0, 20))
	if rs.IntervalDays != 50 || rs.Status != StatusGraduated {
		t.Errorf("interval %d status %s, want 50 graduated", rs.IntervalDays, rs.Status)
	}
}

func TestReview_FailureResetsFromAnyStatus(t *testing.T) {
	s := newScheduler()
	for _, status := range AllStatuses {
		for _, q := range []Quality{0, 1, 2} {
			rs := ReviewState{CardID: "c", Status: status, IntervalDays: 40, EaseFactor: 2.5, ConsecutiveGood: 5}
			got := s.Review(rs, q, day0)
			if got.Status != StatusLearning {
				t.Errorf("%s q=%d: Status = %s, want learning", status, q, got.Status)
			}
			if got.IntervalDays != 1 {
				t.Errorf("%s q=%d: IntervalDays = %d, want 1", status, q, got.IntervalDays)
			}
			if got.ConsecutiveGood != 0 {
				t.Errorf("%s q=%d: ConsecutiveGood = %d, want 0", status, q, got.ConsecutiveGood)
			}
			if !got.NextDueAt.Equal(day0.AddDate(0, 0, 1)) {
				t.Errorf("%s q=%d: NextDueAt = %v", status, q, got.NextDueAt)
			}
			if got.EaseFactor >= rs.EaseFactor {
				t.Errorf("%s q=%d: ease did not drop (%f)", status, q, got.EaseFactor)
			}
		}
	}
}

func TestReview_EaseFloor(t *testing.T) {
	s := newScheduler()
	rs := s.New("u1", "c")
	for i := 0; i < 10; i++ {
		rs = s.Review(rs, QualityBlackout, day0.AddDate(0, 0, i))
	}
	if rs.EaseFactor != 1.3 {
		t.Errorf("EaseFactor = %f, want floor 1.3", rs.EaseFactor)
	}
}

func TestReview_LapsedCardIntervalsStillGrow(t *testing.T) {
	s := newScheduler()
	rs := s.Review(s.New("u1", "c"), QualityBlackout, day0)
	rs = s.Review(rs, QualityBlackout, rs.NextDueAt)
	if rs.IntervalDays != 1 || rs.EaseFactor != 1.3 {
		t.Fatalf("after two blackouts interval %d ease %f, want 1 and 1.3", rs.IntervalDays, rs.EaseFactor)
	}

	var intervals []int
	for i := 0; i < 6; i++ {
		rs = s.Review(rs, QualityPerfect, rs.NextDueAt)
		intervals = append(intervals, rs.IntervalDays)
	}
	for i := 1; i < len(intervals); i++ {
		if intervals[i] <= intervals[i-1] {
			t.Fatalf("intervals = %v, want strictly increasing", intervals)
		}
	}
	if intervals[0] != 2 {
		t.Errorf("first interval after lapse = %d, want 2", intervals[0])
	}
}

func TestReview_EaseUpdate(t *testing.T) {
	tests := []struct {
		q    Quality
		want float64
	}{
		{5, 2.6},
		{4, 2.5},
		{3, 2.36},
		{2, 2.18},
		{1, 1.96},
		{0, 1.7},
	}
	s := newScheduler()
	for _, tt := range tests {
		got := s.Review(ReviewState{Status: StatusReview, IntervalDays: 10, EaseFactor: 2.5}, tt.q, day0)
		if math.Abs(got.EaseFactor-tt.want) > 1e-9 {
			t.Errorf("q=%d: EaseFactor = %f, want %f", tt.q, got.EaseFactor, tt.want)
		}
	}
}

func TestReview_MediocreRecallBreaksLearningStreak(t *testing.T) {
	s := newScheduler()
	rs := s.Review(s.New("u1", "c"), 5, day0)
	rs = s.Review(rs, 5, day0.AddDate(0, 0, 1))
	if rs.ConsecutiveGood != 1 {
		t.Fatalf("ConsecutiveGood = %d, want 1", rs.ConsecutiveGood)
	}
	// Quality 3 passes but is not good recall.
	rs = s.Review(rs, 3, day0.AddDate(0, 0, 4))
	if rs.Status != StatusLearning || rs.ConsecutiveGood != 0 {
		t.Errorf("status %s streak %d, want learning 0", rs.Status, rs.ConsecutiveGood)
	}
}

func TestReview_FirstReviewFailing(t *testing.T) {
	s := newScheduler()
	rs := s.Review(s.New("u1", "c"), 1, day0)
	if rs.Status != StatusLearning || rs.IntervalDays != 1 || rs.TotalReviews != 1 || rs.PerfectReviews != 0 {
		t.Errorf("state = %+v", rs)
	}
}

func TestReview_DoesNotMutateInput(t *testing.T) {
	s := newScheduler()
	in := ReviewState{CardID: "c", Status: StatusReview, IntervalDays: 10, EaseFactor: 2.5}
	_ = s.Review(in, 5, day0)
	if in.IntervalDays != 10 || in.TotalReviews != 0 {
		t.Errorf("input changed: %+v", in)
	}
}

func TestDueCards_OrderAndFilter(t *testing.T) {
	now := day0
	states := []ReviewState{
		{CardID: "d", NextDueAt: now.Add(time.Hour)},
		{CardID: "c", NextDueAt: now.Add(-time.Hour)},
		{CardID: "b", NextDueAt: now.Add(-48 * time.Hour)},
		{CardID: "a", NextDueAt: now.Add(-time.Hour)},
		{CardID: "e", NextDueAt: now},
	}

	var got []string
	for rs := range DueCards(states, now) {
		got = append(got, rs.CardID)
	}
	want := []string{"b", "a", "c", "e"}
	if !slices.Equal(got, want) {
		t.Errorf("DueCards = %v, want %v", got, want)
	}

	// Restartable and does not reorder the input.
	var again []string
	for rs := range DueCards(states, now) {
		again = append(again, rs.CardID)
	}
	if !slices.Equal(again, want) {
		t.Errorf("second pass = %v, want %v", again, want)
	}
	if states[0].CardID != "d" {
		t.Error("DueCards reordered its input")
	}
}

func TestDueCards_EarlyBreak(t *testing.T) {
	states := []ReviewState{
		{CardID: "a", NextDueAt: day0.Add(-3 * time.Hour)},
		{CardID: "b", NextDueAt: day0.Add(-2 * time.Hour)},
		{CardID: "c", NextDueAt: day0.Add(-1 * time.Hour)},
	}
	n := 0
	for range DueCards(states, day0) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Errorf("iterated %d cards, want 2", n)
	}
}

func TestComputeStats(t *testing.T) {
	states := []ReviewState{
		{CardID: "a", Status: StatusLearning, EaseFactor: 2.0, QualitySum: 6, TotalReviews: 2},
		{CardID: "b", Status: StatusReview, EaseFactor: 2.6, QualitySum: 14, TotalReviews: 3, PerfectReviews: 2},
		{CardID: "c", Status: StatusReview, EaseFactor: 2.2, QualitySum: 10, TotalReviews: 5},
	}
	st := ComputeStats(states)

	if st.Cards != 3 || st.TotalReviews != 10 || st.PerfectReviews != 2 {
		t.Errorf("totals = %+v", st)
	}
	if st.ByStatus[StatusReview] != 2 || st.ByStatus[StatusLearning] != 1 || st.ByStatus[StatusGraduated] != 0 {
		t.Errorf("ByStatus = %v", st.ByStatus)
	}
	if math.Abs(st.AverageQuality-3.0) > 1e-9 {
		t.Errorf("AverageQuality = %f, want 3.0", st.AverageQuality)
	}
	if math.Abs(st.AverageEase-2.2666666667) > 1e-6 {
		t.Errorf("AverageEase = %f, want ~2.2667", st.AverageEase)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	st := ComputeStats(nil)
	if st.Cards != 0 || st.AverageQuality != 0 || st.AverageEase != 0 {
		t.Errorf("empty stats = %+v", st)
	}
	if len(st.ByStatus) != len(AllStatuses) {
		t.Errorf("ByStatus has %d keys, want %d", len(st.ByStatus), len(AllStatuses))
	}
}

func TestParseQuality(t *testing.T) {
	for _, in := range []string{"0", "3", " 5 "} {
		if _, err := ParseQuality(in); err != nil {
			t.Errorf("ParseQuality(%q) = %v", in, err)
		}
	}
	for _, in := range []string{"6", "-1", "good", ""} {
		_, err := ParseQuality(in)
		if !errors.Is(err, ErrInvalidQuality) {
			t.Errorf("ParseQuality(%q) err = %v, want ErrInvalidQuality", in, err)
		}
		var qe *QualityError
		if !errors.As(err, &qe) {
			t.Errorf("ParseQuality(%q) err type %T", in, err)
		}
	}
}

func TestDefaultParamsValid(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("DefaultParams().Validate() = %v", err)
	}
	p := DefaultParams()
	p.GoodRecall = 2
	if err := p.Validate(); err == nil {
		t.Error("Validate accepted good recall below fail threshold")
	}
}
