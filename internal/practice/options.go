package practice

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Option customizes a service.
type Option func(*base)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithWarnings sends warnings to w instead of stderr.
func WithWarnings(w io.Writer) Option {
	return func(b *base) { b.warnOut = w }
}

// base holds what every service shares.
type base struct {
	now     func() time.Time
	warnOut io.Writer
}

func newBase(opts []Option) base {
	b := base{now: time.Now, warnOut: os.Stderr}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// warn reports a failure that must not fail the user's operation.
func (b base) warn(format string, args ...any) {
	fmt.Fprintf(b.warnOut, "warning: "+format+"\n", args...)
}
