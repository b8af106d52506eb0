package spacedrep

import (
	"iter"
	"math"
	"slices"
	"strings"
	"time"
)

// Scheduler computes review schedules. It holds only its parameters and is
// safe for concurrent use.
type Scheduler struct {
	params Params
}

// NewScheduler creates a scheduler with the given parameters.
func NewScheduler(p Params) *Scheduler {
	return &Scheduler{params: p}
}

// Params returns the scheduler's parameters.
func (s *Scheduler) Params() Params { return s.params }

// New returns the state of a card userID has never reviewed.
func (s *Scheduler) New(userID, cardID string) ReviewState {
	return NewReviewState(userID, cardID, s.params)
}

// Review applies one review of quality q at now and returns the new state.
// q must already be valid; see ParseQuality.
func (s *Scheduler) Review(rs ReviewState, q Quality, now time.Time) ReviewState {
	p := s.params
	prev := rs.Status
	if !prev.Valid() {
		prev = StatusNew
	}

	rs.TotalReviews++
	rs.QualitySum += int(q)
	if q == QualityPerfect {
		rs.PerfectReviews++
	}
	rs.LastReviewedAt = now
	rs.EaseFactor = nextEase(rs.EaseFactor, q, p)

	if q < p.FailBelow {
		rs.Status = StatusLearning
		rs.IntervalDays = 1
		rs.ConsecutiveGood = 0
		rs.NextDueAt = now.AddDate(0, 0, rs.IntervalDays)
		return rs
	}

	rs.IntervalDays = nextInterval(rs.IntervalDays, rs.EaseFactor, p)

	switch prev {
	case StatusNew:
		// The first review only introduces the card; it does not count
		// toward the learning streak.
		rs.Status = StatusLearning
		rs.ConsecutiveGood = 0
	case StatusLearning:
		rs.ConsecutiveGood = bumpStreak(rs.ConsecutiveGood, q, p)
		if rs.ConsecutiveGood >= p.LearningStreak {
			rs.Status = StatusReview
		}
	case StatusReview:
		rs.ConsecutiveGood = bumpStreak(rs.ConsecutiveGood, q, p)
		if rs.IntervalDays >= p.GraduationDays {
			rs.Status = StatusGraduated
		}
	case StatusGraduated:
		rs.ConsecutiveGood = bumpStreak(rs.ConsecutiveGood, q, p)
	}

	rs.NextDueAt = now.AddDate(0, 0, rs.IntervalDays)
	return rs
}

func nextEase(ef float64, q Quality, p Params) float64 {
	if ef == 0 {
		ef = p.InitialEase
	}
	miss := float64(QualityPerfect - q)
	ef += 0.1 - miss*(0.08+miss*0.02)
	return math.Max(ef, p.MinEase)
}

// nextInterval grows the interval after a successful review. It always
// gains at least a day, so a card at the ease floor still moves forward.
func nextInterval(days int, ef float64, p Params) int {
	next := max(int(math.Round(float64(days)*ef)), days+1, 1)
	if next > p.MaxIntervalDays {
		next = p.MaxIntervalDays
	}
	return next
}

func bumpStreak(streak int, q Quality, p Params) int {
	if q >= p.GoodRecall {
		return streak + 1
	}
	return 0
}

// DueCards returns the cards due at now, oldest due date first and ties
// broken by card id. The sequence filters and sorts on every iteration, so
// it can be ranged over more than once.
func DueCards(states []ReviewState, now time.Time) iter.Seq[ReviewState] {
	return func(yield func(ReviewState) bool) {
		var due []ReviewState
		for _, rs := range states {
			if rs.IsDue(now) {
				due = append(due, rs)
			}
		}
		slices.SortFunc(due, func(a, b ReviewState) int {
			if c := a.NextDueAt.Compare(b.NextDueAt); c != 0 {
				return c
			}
			return strings.Compare(a.CardID, b.CardID)
		})
		for _, rs := range due {
			if !yield(rs) {
				return
			}
		}
	}
}

// Stats summarizes a user's review states.
type Stats struct {
	Cards          int            `json:"cards"`
	ByStatus       map[Status]int `json:"by_status"`
	TotalReviews   int            `json:"total_reviews"`
	PerfectReviews int            `json:"perfect_reviews"`
	AverageQuality float64        `json:"average_quality"`
	AverageEase    float64        `json:"average_ease"`
}

// ComputeStats reduces states into a Stats. It does not modify states.
func ComputeStats(states []ReviewState) Stats {
	st := Stats{ByStatus: make(map[Status]int, len(AllStatuses))}
	for _, s := range AllStatuses {
		st.ByStatus[s] = 0
	}

	qualitySum := 0
	easeSum := 0.0
	for _, rs := range states {
		status := rs.Status
		if !status.Valid() {
			status = StatusNew
		}
		st.Cards++
		st.ByStatus[status]++
		st.TotalReviews += rs.TotalReviews
		st.PerfectReviews += rs.PerfectReviews
		qualitySum += rs.QualitySum
		easeSum += rs.EaseFactor
	}

	if st.TotalReviews > 0 {
		st.AverageQuality = float64(qualitySum) / float64(st.TotalReviews)
	}
	if st.Cards > 0 {
		st.AverageEase = easeSum / float64(st.Cards)
	}
	return st
}
