package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/wordgraph/internal/adapters/mq/queue"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/reconcile"
	"github.com/okian/wordgraph/internal/domain/visual"
	"github.com/okian/wordgraph/pkg/logger"
	"github.com/okian/wordgraph/pkg/metrics"
)

// Outcome is what a guess or rescore did.
type Outcome struct {
	Word       string   `json:"word,omitempty"`
	Score      float64  `json:"score"`
	Found      bool     `json:"found"`
	Feedback   string   `json:"feedback,omitempty"`
	GuessCount int      `json:"guessCount"`
	Secret     string   `json:"secret,omitempty"`
	Model      string   `json:"model,omitempty"`
	Added      []string `json:"added,omitempty"`
	Removed    []string `json:"removed,omitempty"`
}

func outcome(r similarity.Result, d reconcile.Diff) Outcome {
	return Outcome{
		Word:       r.Word,
		Score:      r.Score,
		Found:      r.Found,
		Feedback:   r.Feedback,
		GuessCount: r.GuessCount,
		Secret:     r.Secret,
		Model:      r.Model,
		Added:      d.Added,
		Removed:    d.Removed,
	}
}

// View is a painted snapshot of the engine, as a renderer would see it.
type View struct {
	Generation uint64                `json:"generation"`
	TargetID   string                `json:"targetId"`
	Alpha      float64               `json:"alpha"`
	Transform  interaction.Transform `json:"transform"`
	Nodes      []visual.NodeStyle    `json:"nodes"`
	Links      []visual.LinkStyle    `json:"links"`
	Dragging   []string              `json:"dragging"`
}

// collaboratorError maps similarity errors onto the engine's.
func collaboratorError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, similarity.ErrAlreadyGuessed):
		return ErrAlreadyGuessed
	case errors.Is(err, similarity.ErrNoRound):
		return ErrNoRound
	case errors.Is(err, similarity.ErrInvalidWord):
		return fmt.Errorf("%w: %w", ErrInvalidWord, err)
	case errors.Is(err, similarity.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
	default:
		return err
	}
}

// SetWord starts a new round with a hidden word. The graph is cleared down
// to the hidden target node and every in-flight response of the previous
// round becomes stale.
func (e *Engine) SetWord(ctx context.Context, word string) error {
	w := model.NormalizeWord(word)
	if w == "" {
		return ErrInvalidWord
	}
	if !e.Running() {
		return ErrEngineStopped
	}
	if err := e.client.SetWord(ctx, w); err != nil {
		metrics.RecordCollaboratorError("set_word")
		return collaboratorError(err)
	}
	if err := e.Reset(ctx); err != nil {
		return err
	}
	e.roundActive.Store(true)
	_, err := e.applySnapshot(ctx, "set_word", model.Snapshot{Generation: e.generation.Load()})
	e.logger.Info(ctx, "round started", logger.Uint64("generation", e.generation.Load()))
	return err
}

// SubmitGuess scores word and merges the collaborator's view of the round.
func (e *Engine) SubmitGuess(ctx context.Context, word string) (Outcome, error) {
	w := model.NormalizeWord(word)
	if w == "" {
		return Outcome{}, ErrInvalidWord
	}
	if !e.Running() {
		return Outcome{}, ErrEngineStopped
	}
	if !e.roundActive.Load() {
		return Outcome{}, ErrNoRound
	}
	gen := e.generation.Load()

	if e.deduper.SeenAndRecord(ctx, w) {
		metrics.RecordGuessDuplicate()
		return Outcome{}, ErrAlreadyGuessed
	}
	res, err := e.client.Guess(ctx, w)
	if err != nil {
		e.deduper.Unrecord(ctx, w)
		if errors.Is(err, similarity.ErrUnavailable) {
			metrics.RecordCollaboratorError("guess")
		}
		return Outcome{}, collaboratorError(err)
	}

	snap := res.Snapshot()
	snap.Generation = gen
	d, err := e.applySnapshot(ctx, "guess", snap)
	if err != nil {
		return Outcome{}, err
	}
	return outcome(res, d), nil
}

// RequestHint asks the collaborator for a hint.
func (e *Engine) RequestHint(ctx context.Context) (similarity.Hint, error) {
	if !e.roundActive.Load() {
		return similarity.Hint{}, ErrNoRound
	}
	h, err := e.client.Hint(ctx)
	return h, collaboratorError(err)
}

// Rescore switches the collaborator's similarity model and refreshes every
// score and pairwise similarity without adding guesses.
func (e *Engine) Rescore(ctx context.Context, modelName string) (Outcome, error) {
	if !e.Running() {
		return Outcome{}, ErrEngineStopped
	}
	if !e.roundActive.Load() {
		return Outcome{}, ErrNoRound
	}
	gen := e.generation.Load()
	res, err := e.client.Rescore(ctx, modelName)
	if err != nil {
		return Outcome{}, collaboratorError(err)
	}
	snap := res.Snapshot()
	snap.Generation = gen
	d, err := e.applySnapshot(ctx, "rescore", snap)
	if err != nil {
		return Outcome{}, err
	}
	return outcome(res, d), nil
}

// ApplySnapshot merges an externally supplied snapshot into the current
// round.
func (e *Engine) ApplySnapshot(ctx context.Context, snap model.Snapshot) (reconcile.Diff, error) {
	snap.Generation = e.generation.Load()
	return e.applySnapshot(ctx, "snapshot", snap)
}

// Reset clears the graph, the history and the duplicate guard, and bumps
// the round generation.
func (e *Engine) Reset(ctx context.Context) error {
	gen := e.generation.Add(1)
	e.roundActive.Store(false)
	e.deduper.Reset(ctx)
	return e.do(ctx, "reset", func(ctx context.Context) error {
		e.rec.Cancel()
		e.ctrl.ReleaseAll()
		e.state.Reset()
		e.history.Reset(ctx)
		e.sim.SetAlpha(0)
		e.sim.ResetJitter()
		e.logger.Debug(ctx, "graph reset", logger.Uint64("generation", gen))
		return nil
	})
}

// DragStart pins id under the pointer.
func (e *Engine) DragStart(ctx context.Context, id string) error {
	return e.do(ctx, "drag_start", func(context.Context) error { return e.ctrl.DragStart(id) })
}

// DragMove moves a dragged node to the screen point p.
func (e *Engine) DragMove(ctx context.Context, id string, p model.Vec) error {
	return e.do(ctx, "drag_move", func(context.Context) error { return e.ctrl.DragMove(id, p) })
}

// DragEnd releases a dragged node.
func (e *Engine) DragEnd(ctx context.Context, id string) error {
	return e.do(ctx, "drag_end", func(context.Context) error { return e.ctrl.DragEnd(id) })
}

// Zoom scales the view by factor around the screen point anchor.
func (e *Engine) Zoom(ctx context.Context, factor float64, anchor model.Vec) error {
	return e.do(ctx, "zoom", func(context.Context) error { return e.ctrl.Zoom(factor, anchor) })
}

// ZoomTo sets the absolute scale around the screen point anchor.
func (e *Engine) ZoomTo(ctx context.Context, k float64, anchor model.Vec) error {
	return e.do(ctx, "zoom", func(context.Context) error { return e.ctrl.ZoomTo(k, anchor) })
}

// Pan moves the view by a screen delta.
func (e *Engine) Pan(ctx context.Context, dx, dy float64) error {
	return e.do(ctx, "pan", func(context.Context) error { return e.ctrl.Pan(dx, dy) })
}

// ResetView restores the identity view transform.
func (e *Engine) ResetView(ctx context.Context) error {
	return e.do(ctx, "reset_view", func(context.Context) error {
		e.ctrl.ResetView()
		return nil
	})
}

// Resize changes the viewport; the layout recenters on the new middle.
func (e *Engine) Resize(ctx context.Context, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %vx%v", ErrInvalidViewport, width, height)
	}
	return e.do(ctx, "resize", func(context.Context) error {
		e.width, e.height = width, height
		c := model.Vec{X: width / 2, Y: height / 2}
		e.state.SetCenter(c)
		e.sim.SetCenter(c)
		e.sim.Reheat()
		return nil
	})
}

// Repaint asks for a frame even if nothing moved. It never blocks.
func (e *Engine) Repaint() {
	q, _ := e.current()
	if q == nil {
		return
	}
	_ = q.Enqueue(context.Background(), queue.Command{Name: "repaint", Do: func(context.Context) { e.dirty = true }})
}

// Settled reports whether the layout has come to rest and no transition is
// pending.
func (e *Engine) Settled(ctx context.Context) (bool, error) {
	var settled bool
	err := e.do(ctx, "settled", func(context.Context) error {
		// do marks the engine dirty; this probe should not by itself
		// cause a frame.
		e.dirty = false
		settled = !e.Active() && e.rec.PendingRemovals() == 0 && e.rec.PendingNewFlags() == 0
		return nil
	})
	return settled, err
}

// View paints the current state into a View.
func (e *Engine) View(ctx context.Context) (View, error) {
	var v View
	err := e.do(ctx, "view", func(context.Context) error {
		e.dirty = false
		now := e.clock.Now()
		nodes, links := e.state.Nodes(), e.state.Links()
		byID := make(map[string]*model.Node, len(nodes))
		v = View{
			Generation: e.generation.Load(),
			TargetID:   e.state.TargetID(),
			Alpha:      e.sim.Alpha(),
			Transform:  e.ctrl.Transform(),
			Nodes:      make([]visual.NodeStyle, 0, len(nodes)),
			Links:      make([]visual.LinkStyle, 0, len(links)),
			Dragging:   e.ctrl.Dragging(),
		}
		for _, n := range nodes {
			byID[n.ID] = n
			v.Nodes = append(v.Nodes, e.enc.NodeStyle(n, now))
		}
		for _, l := range links {
			src, dst := byID[l.SourceID], byID[l.TargetID]
			if src == nil || dst == nil {
				continue
			}
			v.Links = append(v.Links, e.enc.LinkStyle(l, src, dst, now))
		}
		return nil
	})
	return v, err
}

// Graph returns a deep copy of the raw graph.
func (e *Engine) Graph(ctx context.Context) (graph.View, error) {
	var v graph.View
	err := e.do(ctx, "graph", func(context.Context) error {
		e.dirty = false
		v = e.state.Get()
		return nil
	})
	return v, err
}

// History returns the best n guesses of the round, best first.
func (e *Engine) History(ctx context.Context, n int) ([]model.Entry, error) {
	return e.history.TopN(ctx, n)
}

// GetStats returns engine statistics for monitoring.
func (e *Engine) GetStats(ctx context.Context) map[string]interface{} {
	e.mu.RLock()
	stats := map[string]interface{}{
		"engine":      e.id,
		"started":     e.started,
		"variant":     e.variant.Name,
		"generation":  e.generation.Load(),
		"roundActive": e.roundActive.Load(),
		"stale":       e.stale.Load(),
		"history":     e.history.Count(ctx),
		"guards":      e.deduper.Size(),
		"queueSize":   e.queueSize,
	}
	if e.started {
		stats["queueLength"] = e.queue.Len()
	}
	e.mu.RUnlock()

	_ = e.do(ctx, "stats", func(context.Context) error {
		e.dirty = false
		n, l, exiting, pinned := e.state.Counts()
		stats["nodes"] = n
		stats["links"] = l
		stats["exiting"] = exiting
		stats["pinned"] = pinned
		stats["alpha"] = e.sim.Alpha()
		stats["ticks"] = e.ticks
		return nil
	})
	return stats
}
