package app

import (
	"time"

	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/adapters/repository"
	"github.com/okian/wordgraph/internal/adapters/scheduler"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/domain/dedupe"
	"github.com/okian/wordgraph/internal/domain/variant"
	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithVariant selects the layout and encoding variant.
func WithVariant(v variant.Variant) Option {
	return func(e *Engine) {
		if v.Name != "" {
			e.variant = v
		}
	}
}

// WithViewport sets the canvas size; the center of attraction is its middle.
func WithViewport(width, height float64) Option {
	return func(e *Engine) {
		if width > 0 && height > 0 {
			e.width, e.height = width, height
		}
	}
}

// WithTickInterval sets the animation frame period.
func WithTickInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tickInterval = d
		}
	}
}

// WithQueueSize sets the capacity of the command mailbox.
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.queueSize = n
		}
	}
}

// WithTransitions sets how long a node stays new and how long an exit lasts.
func WithTransitions(newWindow, exitDuration time.Duration) Option {
	return func(e *Engine) {
		if newWindow > 0 {
			e.newWindow = newWindow
		}
		if exitDuration > 0 {
			e.exitDuration = exitDuration
		}
	}
}

// WithDragAlphaTarget sets the temperature held while dragging.
func WithDragAlphaTarget(t float64) Option {
	return func(e *Engine) {
		if t >= 0 && t <= 1 {
			e.dragAlphaTarget = t
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTickSource replaces the frame ticker, for tests and headless runs.
func WithTickSource(src scheduler.TickSource) Option {
	return func(e *Engine) {
		if src != nil {
			e.tickSource = src
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRenderer sets where frames are painted.
func WithRenderer(r render.Renderer) Option {
	return func(e *Engine) {
		if r != nil {
			e.renderer = r
		}
	}
}

// WithClient sets the similarity collaborator.
func WithClient(c similarity.Client) Option {
	return func(e *Engine) {
		if c != nil {
			e.client = c
		}
	}
}

// WithHistory sets the guess history store.
func WithHistory(s repository.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.history = s
		}
	}
}

// WithDeduper sets the duplicate-guess guard.
func WithDeduper(d dedupe.Deduper) Option {
	return func(e *Engine) {
		if d != nil {
			e.deduper = d
		}
	}
}
