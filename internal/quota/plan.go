package quota

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Plan identifies a subscription tier. Plans only decide the attempt limit;
// billing lives elsewhere.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// DefaultWindow is the length of the sliding attempt window.
const DefaultWindow = 7 * 24 * time.Hour

// ParsePlan converts a plan name into a Plan.
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(s); p {
	case PlanFree, PlanPremium:
		return p, nil
	}
	return "", fmt.Errorf("unknown plan %q", s)
}

// Config holds quota settings.
type Config struct {
	Window time.Duration
	Limits map[Plan]int
}

// DefaultConfig returns the standard weekly limits.
func DefaultConfig() Config {
	return Config{
		Window: DefaultWindow,
		Limits: map[Plan]int{
			PlanFree:    3,
			PlanPremium: 20,
		},
	}
}

// ConfigFromEnv overrides the per-plan limits from the environment.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("CERTQUEST_FREE_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits[PlanFree] = n
		}
	}
	if v := os.Getenv("CERTQUEST_PREMIUM_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Limits[PlanPremium] = n
		}
	}
	return cfg
}

// Validate checks the window and that every plan has a usable limit.
func (c Config) Validate() error {
	if c.Window <= 0 {
		return fmt.Errorf("quota window must be positive, got %s", c.Window)
	}
	for _, p := range []Plan{PlanFree, PlanPremium} {
		n, ok := c.Limits[p]
		if !ok {
			return fmt.Errorf("no attempt limit configured for plan %q", p)
		}
		if n < 1 {
			return fmt.Errorf("attempt limit for plan %q must be at least 1, got %d", p, n)
		}
	}
	return nil
}

// Allowed returns the attempt limit for plan.
func (c Config) Allowed(plan Plan) (int, error) {
	n, ok := c.Limits[plan]
	if !ok {
		return 0, fmt.Errorf("no attempt limit configured for plan %q", plan)
	}
	return n, nil
}
