package scheduler

import (
	"time"

	"github.com/okian/wordgraph/pkg/logger"
)

// Option applies a configuration option to the Loop.
type Option func(*Loop)

// WithName sets the loop name for identification and logging.
func WithName(name string) Option {
	return func(l *Loop) {
		if name != "" {
			l.name = name
		}
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.logger = log
		}
	}
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithTickSource replaces the wall-clock ticker, mainly for tests.
func WithTickSource(src TickSource) Option {
	return func(l *Loop) {
		if src != nil {
			l.ticks = src
		}
	}
}
