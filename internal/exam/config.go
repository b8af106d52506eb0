package exam

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds exam scoring settings.
type Config struct {
	// PassingThreshold is the minimum score (0-100) that passes a simulado
	// without its own threshold.
	PassingThreshold int
}

// DefaultConfig returns sensible defaults for scoring.
func DefaultConfig() Config {
	return Config{
		PassingThreshold: 70,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset or malformed values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("CERTQUEST_PASSING_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PassingThreshold = n
		}
	}
	return cfg
}

// Validate checks the threshold is a percentage.
func (c Config) Validate() error {
	if c.PassingThreshold < 0 || c.PassingThreshold > 100 {
		return fmt.Errorf("passing threshold %d must be within 0-100", c.PassingThreshold)
	}
	return nil
}

// thresholdFor returns the threshold that applies to sim.
func (c Config) thresholdFor(sim Simulado) int {
	if sim.PassingThreshold > 0 {
		return sim.PassingThreshold
	}
	return c.PassingThreshold
}
