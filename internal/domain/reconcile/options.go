package reconcile

import (
	"time"

	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
)

// Dispatcher runs f on the goroutine that owns the graph.
type Dispatcher func(f func())

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the timer source.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithDispatcher sets how timer callbacks reach the owning goroutine.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) {
		if d != nil {
			e.dispatch = d
		}
	}
}

// WithNewWindow sets how long an added node keeps its isNew flag.
func WithNewWindow(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.newWindow = d
		}
	}
}

// WithExitDuration sets how long a removed node plays its exit transition.
func WithExitDuration(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.exitDuration = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
