package spacedrep

import "time"

// Status is a card's position in the review lifecycle.
type Status string

const (
	StatusNew       Status = "new"
	StatusLearning  Status = "learning"
	StatusReview    Status = "review"
	StatusGraduated Status = "graduated"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []Status{StatusNew, StatusLearning, StatusReview, StatusGraduated}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusReview, StatusGraduated:
		return true
	}
	return false
}

// ReviewState holds the spaced repetition state of one card for one user.
type ReviewState struct {
	CardID          string    `json:"card_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	IntervalDays    int       `json:"interval_days"`
	EaseFactor      float64   `json:"ease_factor"`
	QualitySum      int       `json:"quality_sum"`
	ConsecutiveGood int       `json:"consecutive_good"`
	LastReviewedAt  time.Time `json:"last_reviewed_at"`
	NextDueAt       time.Time `json:"next_due_at"`
	TotalReviews    int       `json:"total_reviews"`
	PerfectReviews  int       `json:"perfect_reviews"`
}

// NewReviewState returns the state of a card that has never been reviewed.
// It is due immediately.
func NewReviewState(userID, cardID string, p Params) ReviewState {
	return ReviewState{
		CardID:     cardID,
		UserID:     userID,
		Status:     StatusNew,
		EaseFactor: p.InitialEase,
	}
}

// IsDue returns true if the card is due for review (at or past its due date).
func (rs ReviewState) IsDue(now time.Time) bool {
	return !now.Before(rs.NextDueAt)
}

// OverdueDays returns how many days past due the card is. Returns 0 if not yet due.
func (rs ReviewState) OverdueDays(now time.Time) float64 {
	if now.Before(rs.NextDueAt) {
		return 0
	}
	return now.Sub(rs.NextDueAt).Hours() / 24.0
}

// IsLapsing returns true once a due card has gone unreviewed for more than
// half its interval past the due date.
func (rs ReviewState) IsLapsing(now time.Time) bool {
	if !rs.IsDue(now) || rs.IntervalDays == 0 {
		return false
	}
	graceHours := float64(rs.IntervalDays) * 0.5 * 24.0
	threshold := rs.NextDueAt.Add(time.Duration(graceHours * float64(time.Hour)))
	return now.After(threshold)
}

// DaysUntilReview returns the number of days until the next review.
// Returns 0 if already due.
func (rs ReviewState) DaysUntilReview(now time.Time) int {
	if rs.IsDue(now) {
		return 0
	}
	return int(rs.NextDueAt.Sub(now).Hours()/24.0) + 1
}

// AverageQuality returns the mean quality over all reviews of the card.
func (rs ReviewState) AverageQuality() float64 {
	if rs.TotalReviews == 0 {
		return 0
	}
	return float64(rs.QualitySum) / float64(rs.TotalReviews)
}

// Urgency describes how pressing a card's next review is, for display.
type Urgency string

const (
	UrgencyNotDue  Urgency = "not_due"
	UrgencyDue     Urgency = "due"
	UrgencyOverdue Urgency = "overdue"
)

// Urgency returns the card's review urgency at now.
func (rs ReviewState) Urgency(now time.Time) Urgency {
	switch {
	case rs.IsLapsing(now):
		return UrgencyOverdue
	case rs.IsDue(now):
		return UrgencyDue
	}
	return UrgencyNotDue
}
