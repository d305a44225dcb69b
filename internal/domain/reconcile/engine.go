// Package reconcile turns successive snapshots into graph transitions:
// additions flagged as new, removals played out as exits, and
// reappearing ids restored instead of recreated.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

const (
	defaultNewWindow    = 3 * time.Second
	defaultExitDuration = 500 * time.Millisecond
)

// pending is one scheduled transition. The pointer identity guards against a
// callback firing after its entry was replaced or cancelled.
type pending struct {
	timer clock.Timer
}

// Engine reconciles snapshots into a graph.State. It must be used from the
// goroutine that owns the state; timer callbacks are routed back there
// through the Dispatcher.
type Engine struct {
	state    *graph.State
	clock    clock.Clock
	dispatch Dispatcher
	log      logger.Logger

	newWindow    time.Duration
	exitDuration time.Duration

	newFlags  map[string]*pending
	removals  map[string]*pending
	linkSweep map[*pending]struct{}
}

// New creates an Engine over state.
func New(state *graph.State, opts ...Option) *Engine {
	e := &Engine{
		state:        state,
		clock:        clock.Real(),
		dispatch:     func(f func()) { f() },
		log:          logger.GetOrNop().Named("reconcile"),
		newWindow:    defaultNewWindow,
		exitDuration: defaultExitDuration,
		newFlags:     make(map[string]*pending),
		removals:     make(map[string]*pending),
		linkSweep:    make(map[*pending]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply merges snap into the state and schedules the resulting transitions.
func (e *Engine) Apply(ctx context.Context, snap model.Snapshot) Diff {
	prev := e.state.IDs()
	res := e.state.Apply(ctx, snap)

	next := e.state.IDs()
	if !snap.Partial {
		in := make(map[string]struct{}, len(snap.Guesses))
		for _, g := range snap.Guesses {
			in[strings.TrimSpace(g.Word)] = struct{}{}
		}
		kept := next[:0]
		for _, id := range next {
			if _, ok := in[id]; ok {
				kept = append(kept, id)
			}
		}
		next = kept
	}
	d := Compute(prev, next)
	if snap.Partial {
		d.Removed = nil
	}
	d.Restored = res.Restored

	for _, id := range d.Restored {
		e.cancelRemoval(id)
	}
	for _, id := range d.Added {
		e.markNew(id)
	}
	for _, id := range d.Removed {
		e.beginExit(ctx, id)
	}
	if !snap.Partial {
		e.scheduleLinkSweep()
	}

	metrics.RecordReconcile(len(d.Added)-len(d.Restored), len(d.Restored))
	if !d.Empty() {
		e.log.Debug(ctx, "snapshot reconciled",
			logger.Int("added", len(d.Added)),
			logger.Int("removed", len(d.Removed)),
			logger.Int("retained", len(d.Retained)),
			logger.Int("restored", len(d.Restored)),
			logger.Int("dropped", res.Dropped),
		)
	}
	return d
}

// markNew sets isNew and arms a timer that clears it exactly once.
func (e *Engine) markNew(id string) {
	if old, ok := e.newFlags[id]; ok {
		old.timer.Stop()
	}
	if err := e.state.SetNew(id, true); err != nil {
		return
	}
	p := &pending{}
	e.newFlags[id] = p
	p.timer = e.clock.AfterFunc(e.newWindow, func() {
		e.dispatch(func() {
			if e.newFlags[id] != p {
				return
			}
			delete(e.newFlags, id)
			if e.state.SetNew(id, false) == nil {
				metrics.RecordNewFlagCleared()
			}
		})
	})
}

// beginExit marks id exiting and arms its physical removal.
func (e *Engine) beginExit(ctx context.Context, id string) {
	if err := e.state.MarkExiting(id); err != nil {
		e.log.Warn(ctx, "cannot remove node", logger.String("id", id), logger.Error(err))
		return
	}
	if p, ok := e.newFlags[id]; ok {
		p.timer.Stop()
		delete(e.newFlags, id)
	}
	e.cancelRemoval(id)

	p := &pending{}
	e.removals[id] = p
	p.timer = e.clock.AfterFunc(e.exitDuration, func() {
		e.dispatch(func() {
			if e.removals[id] != p {
				return
			}
			delete(e.removals, id)
			if e.state.Remove(id) {
				metrics.RecordNodeRemoved()
			}
		})
	})
}

func (e *Engine) cancelRemoval(id string) {
	if p, ok := e.removals[id]; ok {
		p.timer.Stop()
		delete(e.removals, id)
	}
}

func (e *Engine) scheduleLinkSweep() {
	cutoff := e.clock.Now()
	p := &pending{}
	e.linkSweep[p] = struct{}{}
	p.timer = e.clock.AfterFunc(e.exitDuration, func() {
		e.dispatch(func() {
			if _, ok := e.linkSweep[p]; !ok {
				return
			}
			delete(e.linkSweep, p)
			e.state.PurgeLinks(cutoff)
		})
	})
}

// PendingRemovals returns the number of nodes still playing their exit.
func (e *Engine) PendingRemovals() int { return len(e.removals) }

// PendingNewFlags returns the number of isNew flags not yet cleared.
func (e *Engine) PendingNewFlags() int { return len(e.newFlags) }

// Cancel stops every scheduled transition. Callbacks already queued on the
// dispatcher become no-ops.
func (e *Engine) Cancel() {
	for id, p := range e.newFlags {
		p.timer.Stop()
		delete(e.newFlags, id)
	}
	for id, p := range e.removals {
		p.timer.Stop()
		delete(e.removals, id)
	}
	for p := range e.linkSweep {
		p.timer.Stop()
		delete(e.linkSweep, p)
	}
}

// Flush cancels every scheduled transition and applies its effect now:
// exiting nodes are removed, isNew flags cleared and exited links purged.
// The engine calls it when its loop stops so no node is left half-exited.
func (e *Engine) Flush() {
	for id, p := range e.newFlags {
		p.timer.Stop()
		delete(e.newFlags, id)
		_ = e.state.SetNew(id, false)
	}
	for id, p := range e.removals {
		p.timer.Stop()
		delete(e.removals, id)
		if e.state.Remove(id) {
			metrics.RecordNodeRemoved()
		}
	}
	for p := range e.linkSweep {
		p.timer.Stop()
		delete(e.linkSweep, p)
	}
	e.state.PurgeLinks(e.clock.Now())
}
