package spacedrep

import "fmt"

// Params holds the constants of the scheduling algorithm.
type Params struct {
	// InitialEase is the ease factor of a card that has never been reviewed.
	InitialEase float64

	// MinEase is the floor the ease factor is clamped to.
	MinEase float64

	// FailBelow is the first quality that is not a failed recall.
	// Reviews with quality < FailBelow reset the card to learning.
	FailBelow Quality

	// GoodRecall is the minimum quality that counts toward the learning streak.
	GoodRecall Quality

	// LearningStreak is how many consecutive good recalls promote a learning
	// card to review.
	LearningStreak int

	// GraduationDays is the interval at which a review card graduates.
	GraduationDays int

	// MaxIntervalDays caps interval growth.
	MaxIntervalDays int
}

// DefaultParams returns SM-2 style defaults.
func DefaultParams() Params {
	return Params{
		InitialEase:     2.5,
		MinEase:         1.3,
		FailBelow:       3,
		GoodRecall:      4,
		LearningStreak:  2,
		GraduationDays:  21,
		MaxIntervalDays: 365,
	}
}

// Validate checks that the parameters describe a usable schedule.
func (p Params) Validate() error {
	if p.MinEase <= 1 {
		return fmt.Errorf("min ease must be greater than 1, got %.2f", p.MinEase)
	}
	if p.InitialEase < p.MinEase {
		return fmt.Errorf("initial ease %.2f is below min ease %.2f", p.InitialEase, p.MinEase)
	}
	if !p.FailBelow.Valid() || !p.GoodRecall.Valid() || p.GoodRecall < p.FailBelow {
		return fmt.Errorf("quality thresholds out of order: fail below %d, good recall %d", p.FailBelow, p.GoodRecall)
	}
	if p.LearningStreak < 1 {
		return fmt.Errorf("learning streak must be at least 1, got %d", p.LearningStreak)
	}
	if p.GraduationDays < 1 || p.MaxIntervalDays < p.GraduationDays {
		return fmt.Errorf("graduation interval %d must be within 1-%d days", p.GraduationDays, p.MaxIntervalDays)
	}
	return nil
}
