package spacedrep

import (
	"testing"
	"time"
)

func TestIsDue_BeforeDate(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rs := ReviewState{NextDueAt: now.Add(24 * time.Hour)}
	if rs.IsDue(now) {
		t.Error("expected not due before due date")
	}
}

func TestIsDue_OnDate(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rs := ReviewState{NextDueAt: now}
	if !rs.IsDue(now) {
		t.Error("expected due on due date")
	}
}

func TestIsDue_NeverReviewed(t *testing.T) {
	rs := NewReviewState("u", "c", DefaultParams())
	if !rs.IsDue(time.Now()) {
		t.Error("expected a new card to be due")
	}
	if rs.EaseFactor != 2.5 || rs.Status != StatusNew {
		t.Errorf("new state = %+v", rs)
	}
}

func TestOverdueDays(t *testing.T) {
	due := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rs := ReviewState{NextDueAt: due}

	if got := rs.OverdueDays(due.Add(-48 * time.Hour)); got != 0 {
		t.Errorf("OverdueDays() before due = %f, want 0", got)
	}
	got := rs.OverdueDays(due.Add(3 * 24 * time.Hour))
	if got < 2.99 || got > 3.01 {
		t.Errorf("OverdueDays() = %f, want ~3.0", got)
	}
}

func TestIsLapsing(t *testing.T) {
	due := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	// 8-day interval gives a 4-day grace period.
	rs := ReviewState{IntervalDays: 8, NextDueAt: due}
	if rs.IsLapsing(due.Add(3 * 24 * time.Hour)) {
		t.Error("expected not lapsing within grace period")
	}
	if !rs.IsLapsing(due.Add(5 * 24 * time.Hour)) {
		t.Error("expected lapsing past grace period")
	}
	if rs.Urgency(due.Add(5*24*time.Hour)) != UrgencyOverdue {
		t.Errorf("Urgency = %s, want overdue", rs.Urgency(due.Add(5*24*time.Hour)))
	}
	if rs.Urgency(due) != UrgencyDue {
		t.Errorf("Urgency at due date = %s, want due", rs.Urgency(due))
	}
	if rs.Urgency(due.Add(-time.Hour)) != UrgencyNotDue {
		t.Errorf("Urgency before due = %s, want not_due", rs.Urgency(due.Add(-time.Hour)))
	}
}

func TestDaysUntilReview(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		due  time.Time
		want int
	}{
		{now.Add(-time.Hour), 0},
		{now, 0},
		{now.Add(12 * time.Hour), 1},
		{now.Add(3 * 24 * time.Hour), 4},
	}
	for _, tt := range tests {
		rs := ReviewState{NextDueAt: tt.due}
		if got := rs.DaysUntilReview(now); got != tt.want {
			t.Errorf("DaysUntilReview(due %v) = %d, want %d", tt.due, got, tt.want)
		}
	}
}

func TestAverageQuality(t *testing.T) {
	if got := (ReviewState{}).AverageQuality(); got != 0 {
		t.Errorf("AverageQuality() = %f, want 0", got)
	}
	rs := ReviewState{QualitySum: 9, TotalReviews: 2}
	if got := rs.AverageQuality(); got != 4.5 {
		t.Errorf("AverageQuality() = %f, want 4.5", got)
	}
}
