// Package practice wires the exam engine and the review scheduler to the
// store. It owns locking, transactions, clocks and the event trail; the
// domain packages it calls stay pure.
package practice

import (
	"fmt"

	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/spacedrep"
)

// Config composes the settings of every practice component.
type Config struct {
	Exam   exam.Config
	Quota  quota.Config
	Review spacedrep.Params
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		Exam:   exam.DefaultConfig(),
		Quota:  quota.DefaultConfig(),
		Review: spacedrep.DefaultParams(),
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset or malformed values.
func ConfigFromEnv() Config {
	return Config{
		Exam:   exam.ConfigFromEnv(),
		Quota:  quota.ConfigFromEnv(),
		Review: spacedrep.DefaultParams(),
	}
}

// Validate checks every component's settings.
func (c Config) Validate() error {
	if err := c.Exam.Validate(); err != nil {
		return fmt.Errorf("exam config: %w", err)
	}
	if err := c.Quota.Validate(); err != nil {
		return fmt.Errorf("quota config: %w", err)
	}
	if err := c.Review.Validate(); err != nil {
		return fmt.Errorf("review params: %w", err)
	}
	return nil
}
