package replay

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/app"
	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/variant"
	"github.com/okian/wordgraph/pkg/clock"
	"github.com/okian/wordgraph/pkg/logger"
)

// Report is the outcome of a replay.
type Report struct {
	Variant  string
	Rounds   []RoundReport
	Frames   int
	Duration time.Duration
}

// RoundReport is the resting state after one round.
type RoundReport struct {
	Word     string
	Outcomes []app.Outcome
	Rejected map[string]string // guess -> reason
	Ticks    int
	Settled  bool
	Nodes    []Placement
	History  []model.Entry
}

// Placement is where a node came to rest.
type Placement struct {
	ID       string
	Score    float64
	X, Y     float64
	IsTarget bool
}

// Option configures a run.
type Option func(*runner)

// WithLogger sets the run logger.
func WithLogger(l logger.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMaxTicks overrides the script's tick budget per round.
func WithMaxTicks(n int) Option {
	return func(r *runner) {
		if n > 0 {
			r.maxTicks = n
		}
	}
}

type runner struct {
	log      logger.Logger
	maxTicks int
	clock    *clock.Fake
	ticks    *stepper
	rec      *render.Recorder
	eng      *app.Engine
}

// Run plays script on a headless engine. Simulated time advances one frame
// per tick, so a run is deterministic and does not wait on the wall clock.
func Run(ctx context.Context, script *Script, opts ...Option) (*Report, error) {
	start := time.Now()
	r := &runner{
		log:      logger.GetOrNop().Named("replay"),
		maxTicks: script.MaxTicks,
		clock:    clock.NewFake(time.Unix(0, 0)),
		rec:      render.NewRecorder(),
	}
	if r.maxTicks == 0 {
		r.maxTicks = DefaultMaxTicks
	}
	for _, opt := range opts {
		opt(r)
	}
	r.ticks = &stepper{now: r.clock.Now}

	v := variant.Default()
	if script.Variant != "" {
		var err error
		if v, err = variant.Lookup(script.Variant); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
		}
	}
	engOpts := []app.Option{
		app.WithVariant(v),
		app.WithClock(r.clock),
		app.WithTickSource(r.ticks.source),
		app.WithTickInterval(frameInterval),
		app.WithRenderer(r.rec),
		app.WithClient(similarity.NewInMemoryClient()),
		app.WithLogger(r.log),
	}
	if script.Width > 0 && script.Height > 0 {
		engOpts = append(engOpts, app.WithViewport(script.Width, script.Height))
	}
	r.eng = app.New(engOpts...)
	if err := r.eng.Start(ctx); err != nil {
		return nil, err
	}
	defer r.eng.Stop()

	r.log.Info(ctx, "replay started",
		logger.String("variant", v.Name),
		logger.Int("rounds", len(script.Rounds)),
		logger.Int("maxTicks", r.maxTicks),
	)

	report := &Report{Variant: v.Name}
	var verifyErrs []error
	for i, round := range script.Rounds {
		rr, err := r.play(ctx, round)
		if err != nil {
			return report, fmt.Errorf("round %d (%s): %w", i+1, round.Word, err)
		}
		if err := verify(rr); err != nil {
			verifyErrs = append(verifyErrs, fmt.Errorf("round %d (%s): %w", i+1, round.Word, err))
		}
		report.Rounds = append(report.Rounds, *rr)
	}
	report.Frames = r.rec.Frames()
	report.Duration = time.Since(start)

	r.log.Info(ctx, "replay finished",
		logger.Int("frames", report.Frames),
		logger.Duration("duration", report.Duration),
	)
	return report, errors.Join(verifyErrs...)
}

func (r *runner) play(ctx context.Context, round Round) (*RoundReport, error) {
	rr := &RoundReport{Word: model.NormalizeWord(round.Word), Rejected: map[string]string{}}
	if err := r.eng.SetWord(ctx, round.Word); err != nil {
		return nil, err
	}
	for _, g := range round.Guesses {
		out, err := r.eng.SubmitGuess(ctx, g)
		switch {
		case err == nil:
			rr.Outcomes = append(rr.Outcomes, out)
		case errors.Is(err, app.ErrAlreadyGuessed), errors.Is(err, app.ErrInvalidWord):
			rr.Rejected[g] = err.Error()
			r.log.Debug(ctx, "guess rejected", logger.String("guess", g), logger.Error(err))
		default:
			return nil, err
		}
	}
	for _, s := range round.Snapshots {
		if _, err := r.eng.ApplySnapshot(ctx, model.Snapshot{Guesses: s.Guesses, Pairs: s.Pairs, Partial: s.Partial}); err != nil {
			return nil, err
		}
	}
	if round.Model != "" {
		out, err := r.eng.Rescore(ctx, round.Model)
		if err != nil {
			return nil, err
		}
		rr.Outcomes = append(rr.Outcomes, out)
	}

	ticks, settled, err := r.settle(ctx)
	if err != nil {
		return nil, err
	}
	rr.Ticks, rr.Settled = ticks, settled
	if !settled {
		r.log.Warn(ctx, "round did not settle", logger.String("word", rr.Word), logger.Int("ticks", ticks))
	}

	g, err := r.eng.Graph(ctx)
	if err != nil {
		return nil, err
	}
	rr.Nodes = placements(g)
	if rr.History, err = r.eng.History(ctx, len(rr.Nodes)+1); err != nil {
		return nil, err
	}
	return rr, nil
}

// settle advances one frame at a time until nothing is moving and no
// transition is pending.
func (r *runner) settle(ctx context.Context) (int, bool, error) {
	ticks := 0
	for frame := 0; frame < r.maxTicks; frame++ {
		if err := ctx.Err(); err != nil {
			return ticks, false, err
		}
		r.clock.Advance(frameInterval)
		if r.ticks.step(tickWait) {
			ticks++
		}
		ok, err := r.eng.Settled(ctx)
		if err != nil {
			return ticks, false, err
		}
		if ok {
			return ticks, true, nil
		}
	}
	return ticks, false, nil
}

func placements(g graph.View) []Placement {
	out := make([]Placement, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, Placement{ID: n.ID, Score: n.Score, X: n.Pos.X, Y: n.Pos.Y, IsTarget: n.IsTarget})
	}
	return out
}

// verify checks the resting layout: finite positions and exactly one target.
func verify(rr *RoundReport) error {
	targets := 0
	for _, p := range rr.Nodes {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: node %q at (%v,%v)", ErrVerify, p.ID, p.X, p.Y)
		}
		if p.IsTarget {
			targets++
		}
	}
	if targets != 1 {
		return fmt.Errorf("%w: %d target nodes", ErrVerify, targets)
	}
	if !rr.Settled {
		return fmt.Errorf("%w after %d ticks", ErrNotSettled, rr.Ticks)
	}
	return nil
}

// stepper is a tick source advanced by the runner instead of a wall ticker.
type stepper struct {
	mu    sync.Mutex
	c     chan time.Time
	armed bool
	now   func() time.Time
}

func (s *stepper) source(time.Duration) (<-chan time.Time, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = make(chan time.Time)
	s.armed = true
	return s.c, func() {
		s.mu.Lock()
		s.armed = false
		s.mu.Unlock()
	}
}

// step hands the loop one tick if it is waiting for one.
func (s *stepper) step(wait time.Duration) bool {
	s.mu.Lock()
	c, armed := s.c, s.armed
	s.mu.Unlock()
	if !armed {
		return false
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case c <- s.now():
		return true
	case <-t.C:
		return false
	}
}
