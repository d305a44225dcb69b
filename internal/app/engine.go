// Package app wires the graph domain into a running engine: one loop
// goroutine owns the graph and the simulation, and every caller talks to it
// through commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/wordgraph/internal/adapters/mq/queue"
	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/adapters/repository"
	"github.com/okian/wordgraph/internal/adapters/scheduler"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/domain/dedupe"
	"github.com/okian/wordgraph/internal/domain/force"
	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/reconcile"
	"github.com/okian/wordgraph/internal/domain/variant"
	"github.com/okian/wordgraph/internal/domain/visual"
	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

const (
	defaultWidth        = 800
	defaultHeight       = 600
	defaultTickInterval = 16 * time.Millisecond
	defaultQueueSize    = 1024
	defaultNewWindow    = 3 * time.Second
	defaultExitDuration = 500 * time.Millisecond
	defaultDragTarget   = 0.3
	stopTimeout         = 5 * time.Second
)

// Engine is one independent visualization. Several engines can run side by
// side; nothing about the graph is global.
type Engine struct {
	id string

	// lifecycle, guarded by mu
	mu      sync.RWMutex
	started bool
	cancel  context.CancelFunc
	queue   *queue.InMemoryQueue
	loop    *scheduler.Loop

	generation  atomic.Uint64
	roundActive atomic.Bool
	stale       atomic.Uint64

	// configuration
	variant         variant.Variant
	width, height   float64
	tickInterval    time.Duration
	queueSize       int
	newWindow       time.Duration
	exitDuration    time.Duration
	dragAlphaTarget float64
	clock           clock.Clock
	tickSource      scheduler.TickSource
	logger          logger.Logger

	// collaborators, safe for concurrent use
	client   similarity.Client
	history  repository.Store
	deduper  dedupe.Deduper
	renderer render.Renderer

	// owned by the loop goroutine
	state   *graph.State
	sim     *force.Simulator
	enc     *visual.Encoder
	rec     *reconcile.Engine
	ctrl    *interaction.Controller
	painter *render.Painter
	dirty   bool
	ticks   uint64
}

// New constructs an Engine. It does nothing until Start.
func New(opts ...Option) *Engine {
	e := &Engine{
		id:              uuid.NewString(),
		variant:         variant.Default(),
		width:           defaultWidth,
		height:          defaultHeight,
		tickInterval:    defaultTickInterval,
		queueSize:       defaultQueueSize,
		newWindow:       defaultNewWindow,
		exitDuration:    defaultExitDuration,
		dragAlphaTarget: defaultDragTarget,
		clock:           clock.Real(),
		tickSource:      scheduler.WallTicker,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.GetOrNop().Named("engine")
	}
	if e.client == nil {
		e.client = similarity.NewInMemoryClient()
	}
	if e.history == nil {
		e.history = repository.NewTreapStore()
	}
	if e.deduper == nil {
		e.deduper = dedupe.NewInMemoryDeduper()
	}
	if e.renderer == nil {
		e.renderer = render.NewRecorder()
	}

	center := model.Vec{X: e.width / 2, Y: e.height / 2}
	e.enc = visual.New(e.variant.Visual)
	e.state = graph.New(
		graph.WithClock(e.clock),
		graph.WithCenter(center),
		graph.WithSpawnRule(e.variant.Spawn),
		graph.WithLogger(e.logger),
	)
	simOpts := append(e.variant.Options(e.enc),
		force.WithCenter(center),
		force.WithJitterHook(metrics.RecordJitter),
	)
	e.sim = force.New(e.variant.Force, simOpts...)
	e.sim.SetAlpha(0)
	e.rec = reconcile.New(e.state,
		reconcile.WithClock(e.clock),
		reconcile.WithDispatcher(e.dispatch),
		reconcile.WithNewWindow(e.newWindow),
		reconcile.WithExitDuration(e.exitDuration),
		reconcile.WithLogger(e.logger),
	)
	e.ctrl = interaction.New(e.state, e.sim,
		interaction.WithScaleExtent(e.variant.MinScale, e.variant.MaxScale),
		interaction.WithDragAlphaTarget(e.dragAlphaTarget),
	)
	e.painter = render.NewPainter(e.renderer)
	return e
}

// ID returns the engine instance id.
func (e *Engine) ID() string { return e.id }

// Start launches the loop. Starting a running engine stops and discards the
// previous loop first, so at most one loop per engine is ever live.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		e.logger.Info(ctx, "restarting engine", logger.String("engine", e.id))
		e.stopLocked(ctx)
		metrics.RecordLoopRestart()
	}

	e.queue = queue.NewInMemoryQueue(queue.WithCapacity(e.queueSize))
	e.loop = scheduler.New(e.queue, e,
		scheduler.WithName(e.id),
		scheduler.WithLogger(e.logger),
		scheduler.WithInterval(e.tickInterval),
		scheduler.WithTickSource(e.tickSource),
	)
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.dirty = true
	go e.loop.Run(loopCtx)

	e.started = true
	e.logger.Info(ctx, "engine started",
		logger.String("engine", e.id),
		logger.String("variant", e.variant.Name),
		logger.Duration("tick", e.tickInterval),
		logger.Int("queueSize", e.queueSize),
	)
	return nil
}

// Stop shuts the loop down. Pending exits are completed immediately so a
// later Start resumes from a consistent graph.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	e.stopLocked(context.Background())
	e.logger.Info(context.Background(), "engine stopped", logger.String("engine", e.id))
}

func (e *Engine) stopLocked(ctx context.Context) {
	_ = e.queue.Close()
	sctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := e.loop.Shutdown(sctx); err != nil {
		e.logger.Error(ctx, "engine loop did not stop", logger.Error(err))
	}
	e.cancel()

	// The loop is gone; nothing else touches the graph now.
	e.rec.Flush()
	e.ctrl.ReleaseAll()

	e.queue, e.loop, e.cancel = nil, nil, nil
	e.started = false
}

// Running reports whether the loop is live.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

func (e *Engine) current() (*queue.InMemoryQueue, *scheduler.Loop) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.queue, e.loop
}

// do runs fn on the loop and waits for its result.
func (e *Engine) do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	q, loop := e.current()
	if q == nil {
		return ErrEngineStopped
	}
	metrics.RecordCommand(name)

	errc := make(chan error, 1)
	cmd := queue.Command{Name: name, Do: func(ctx context.Context) {
		e.dirty = true
		answered := false
		defer func() {
			// fn panicked; the loop recovers, the caller still gets an answer.
			if !answered {
				errc <- fmt.Errorf("%w: command %s panicked", ErrCommandFailed, name)
			}
		}()
		errc <- fn(ctx)
		answered = true
	}}
	if err := q.Enqueue(ctx, cmd); err != nil {
		metrics.RecordCommandError(name)
		switch {
		case errors.Is(err, queue.ErrClosed):
			return ErrEngineStopped
		case errors.Is(err, queue.ErrFull):
			return ErrEngineBusy
		default:
			return err
		}
	}

	select {
	case err := <-errc:
		if err != nil {
			metrics.RecordCommandError(name)
		}
		return err
	case <-loop.Done():
		select {
		case err := <-errc:
			return err
		default:
			return ErrEngineStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch is the reconciler's route back onto the loop for timer callbacks.
func (e *Engine) dispatch(f func()) {
	q, _ := e.current()
	if q == nil {
		return
	}
	err := q.EnqueueWait(context.Background(), queue.Command{Name: "timer", Do: func(context.Context) {
		e.dirty = true
		f()
	}})
	if err != nil {
		e.logger.Debug(context.Background(), "timer callback dropped", logger.Error(err))
	}
}

// Tick advances the simulation one step and paints a frame. It runs on the
// loop goroutine.
func (e *Engine) Tick(ctx context.Context, _ time.Time) {
	nodes, links := e.state.Nodes(), e.state.Links()
	if e.sim.Active() {
		e.sim.Step(nodes, links)
	}
	e.painter.Paint(nodes, links, e.enc, e.ctrl.Transform(), e.clock.Now())
	e.dirty = false
	e.ticks++

	metrics.UpdateAlpha(e.sim.Alpha())
	n, l, exiting, pinned := e.state.Counts()
	metrics.UpdateGraphSize(n, l, exiting, pinned)
}

// Active reports whether another frame is needed: the layout is still
// moving, something changed since the last paint, or a transition is
// playing.
func (e *Engine) Active() bool {
	if e.dirty || e.sim.Active() {
		return true
	}
	now := e.clock.Now()
	transition := e.variant.Visual.Transition
	for _, n := range e.state.Nodes() {
		if n.Exiting() || now.Sub(n.EnteredAt) < transition {
			return true
		}
	}
	return false
}

// applySnapshot merges snap on the loop if it belongs to the current round.
func (e *Engine) applySnapshot(ctx context.Context, name string, snap model.Snapshot) (reconcile.Diff, error) {
	var diff reconcile.Diff
	err := e.do(ctx, name, func(ctx context.Context) error {
		if snap.Generation != e.generation.Load() {
			e.stale.Add(1)
			metrics.RecordStaleResponse()
			e.logger.Debug(ctx, "discarding stale snapshot",
				logger.Uint64("generation", snap.Generation),
				logger.Uint64("current", e.generation.Load()),
			)
			return ErrStaleResponse
		}
		diff = e.rec.Apply(ctx, snap)
		for _, id := range diff.Removed {
			e.ctrl.Forget(id)
		}
		for _, id := range e.ctrl.Prune() {
			e.logger.Debug(ctx, "drag ended by re-key", logger.String("id", id))
		}
		for _, g := range snap.Guesses {
			if _, err := e.history.Upsert(ctx, g.Word, g.Score); err != nil {
				e.logger.Debug(ctx, "history skipped guess", logger.String("word", g.Word), logger.Error(err))
			}
		}
		e.sim.Reheat()
		return nil
	})
	return diff, err
}
