// Package scheduler runs the single goroutine that owns a graph engine:
// it drains the command mailbox and ticks the simulation while there is
// anything to animate, and sleeps otherwise.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/wordgraph/internal/adapters/mq/queue"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

const defaultInterval = 16 * time.Millisecond

// liveLoops counts running loops across every engine in the process.
var liveLoops atomic.Int64

// Handler is the engine side of the loop.
type Handler interface {
	// Tick advances the simulation and paints one frame.
	Tick(ctx context.Context, now time.Time)
	// Active reports whether another tick is needed.
	Active() bool
}

// Source delivers commands to the loop.
type Source interface {
	Dequeue() <-chan queue.Command
}

// TickSource starts a periodic tick channel and returns a func that stops it.
type TickSource func(d time.Duration) (<-chan time.Time, func())

// WallTicker is the default TickSource backed by time.Ticker.
func WallTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Loop is one engine loop. A Loop runs once; restarting an engine builds a
// new Loop.
type Loop struct {
	source   Source
	handler  Handler
	interval time.Duration
	ticks    TickSource
	name     string
	logger   logger.Logger

	shutdown     chan struct{}
	done         chan struct{}
	shutdownOnce sync.Once

	tickC    <-chan time.Time
	stopTick func()
}

// New creates a loop over source and handler.
func New(source Source, handler Handler, opts ...Option) *Loop {
	l := &Loop{
		source:   source,
		handler:  handler,
		interval: defaultInterval,
		ticks:    WallTicker,
		name:     "loop",
		logger:   logger.GetOrNop().Named("scheduler"),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.name != "loop" {
		l.logger = l.logger.Named(l.name)
	}
	return l
}

// LiveLoops returns the number of loops currently running.
func LiveLoops() int { return int(liveLoops.Load()) }

// Run executes the loop until ctx is cancelled, Shutdown is called or the
// source closes.
func (l *Loop) Run(ctx context.Context) {
	metrics.UpdateLiveLoops(int(liveLoops.Add(1)))
	defer func() {
		l.idle()
		metrics.UpdateLiveLoops(int(liveLoops.Add(-1)))
		close(l.done)
	}()

	commands := l.source.Dequeue()
	l.syncTicker()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			l.execute(ctx, c)
		case now := <-l.tickC:
			l.tick(ctx, now)
		}
		l.syncTicker()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Shutdown stops the loop and waits for it to exit.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.shutdownOnce.Do(func() { close(l.shutdown) })

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Ticking reports whether the tick timer is armed. Only meaningful on the
// loop goroutine.
func (l *Loop) Ticking() bool { return l.tickC != nil }

func (l *Loop) syncTicker() {
	active := l.handler.Active()
	switch {
	case active && l.tickC == nil:
		l.tickC, l.stopTick = l.ticks(l.interval)
	case !active && l.tickC != nil:
		l.idle()
	}
}

func (l *Loop) idle() {
	if l.stopTick != nil {
		l.stopTick()
	}
	l.tickC, l.stopTick = nil, nil
}

func (l *Loop) tick(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("scheduler", "tick_panic")
			l.logger.Error(ctx, "tick panicked", logger.Any("panic", r))
		}
		metrics.RecordTick(float64(time.Since(start).Microseconds()) / 1000)
	}()
	l.handler.Tick(ctx, now)
}

// sizer is a Source that can report its backlog.
type sizer interface{ Len() int }

func (l *Loop) execute(ctx context.Context, c queue.Command) {
	metrics.RecordQueueDequeue()
	if s, ok := l.source.(sizer); ok {
		metrics.UpdateQueueSize(s.Len())
	}
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordCommandError(c.Name)
			l.logger.Error(ctx, "command panicked",
				logger.String("command", c.Name),
				logger.Any("panic", r),
			)
		}
	}()
	if c.Do != nil {
		c.Do(ctx)
	}
}
