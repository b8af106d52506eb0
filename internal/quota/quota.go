package quota

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrQuotaExceeded is returned when a user has no exam attempts left in the
// current window. It clears only when the window slides past an attempt.
var ErrQuotaExceeded = errors.New("quota: weekly exam attempts exhausted")

// ExceededError carries the details of an exhausted quota.
type ExceededError struct {
	UserID   string
	Used     int
	Allowed  int
	ResetsAt time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota: %d of %d exam attempts used; next attempt available at %s",
		e.Used, e.Allowed, e.ResetsAt.Format(time.RFC3339))
}

func (e *ExceededError) Unwrap() error { return ErrQuotaExceeded }

// AttemptQuota tracks a user's exam attempts over a sliding window.
// An attempt made at t counts while now < t+Window.
type AttemptQuota struct {
	UserID   string
	Plan     Plan
	Allowed  int
	Window   time.Duration
	Attempts []time.Time
}

// New returns an empty quota for userID on plan.
func New(userID string, plan Plan, cfg Config) (*AttemptQuota, error) {
	allowed, err := cfg.Allowed(plan)
	if err != nil {
		return nil, err
	}
	return &AttemptQuota{
		UserID:  userID,
		Plan:    plan,
		Allowed: allowed,
		Window:  cfg.Window,
	}, nil
}

func (q *AttemptQuota) inWindow(t, now time.Time) bool {
	return t.After(now.Add(-q.Window)) && !t.After(now)
}

// Used returns the number of attempts inside the window ending at now.
func (q *AttemptQuota) Used(now time.Time) int {
	n := 0
	for _, t := range q.Attempts {
		if q.inWindow(t, now) {
			n++
		}
	}
	return n
}

// Remaining returns how many attempts can still be started at now.
func (q *AttemptQuota) Remaining(now time.Time) int {
	r := q.Allowed - q.Used(now)
	if r < 0 {
		return 0
	}
	return r
}

// ResetsAt returns when the oldest attempt inside the window stops counting.
// Returns the zero time when no attempt is inside the window.
func (q *AttemptQuota) ResetsAt(now time.Time) time.Time {
	var oldest time.Time
	for _, t := range q.Attempts {
		if !q.inWindow(t, now) {
			continue
		}
		if oldest.IsZero() || t.Before(oldest) {
			oldest = t
		}
	}
	if oldest.IsZero() {
		return oldest
	}
	return oldest.Add(q.Window)
}

// Consume checks that an attempt is available at now and records it.
// The check and the increment are one step; callers persisting the quota
// must hold their transaction across Consume and the write.
func (q *AttemptQuota) Consume(now time.Time) error {
	used := q.Used(now)
	if used >= q.Allowed {
		return &ExceededError{
			UserID:   q.UserID,
			Used:     used,
			Allowed:  q.Allowed,
			ResetsAt: q.ResetsAt(now),
		}
	}
	q.Attempts = append(q.Attempts, now)
	return nil
}

// Prune drops attempts that no longer count at now and sorts the rest.
func (q *AttemptQuota) Prune(now time.Time) {
	kept := q.Attempts[:0]
	for _, t := range q.Attempts {
		if q.inWindow(t, now) {
			kept = append(kept, t)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Before(kept[j]) })
	q.Attempts = kept
}
