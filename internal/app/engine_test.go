package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/adapters/similarity"
	"github.com/okian/wordgraph/internal/app"
	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/variant"
	"github.com/okian/wordgraph/internal/domain/visual"
	"github.com/okian/wordgraph/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

// manualTicks is a tick source fed by the test.
type manualTicks struct {
	mu    sync.Mutex
	c     chan time.Time
	armed bool
}

func (m *manualTicks) source(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c = make(chan time.Time)
	m.armed = true
	return m.c, func() {
		m.mu.Lock()
		m.armed = false
		m.mu.Unlock()
	}
}

// step delivers up to n ticks and returns how many the loop took.
func (m *manualTicks) step(n int) int {
	taken := 0
	for i := 0; i < n; i++ {
		m.mu.Lock()
		c, armed := m.c, m.armed
		m.mu.Unlock()
		if !armed {
			return taken
		}
		select {
		case c <- time.Now():
			taken++
		case <-time.After(100 * time.Millisecond):
			return taken
		}
	}
	return taken
}

// scripted is a collaborator that answers with fixed scores.
type scripted struct {
	mu      sync.Mutex
	scores  map[string]float64
	pairs   map[string]float64
	guesses []string
	fail    error
	gate    chan struct{}
}

func newScripted(scores map[string]float64, pairs map[string]float64) *scripted {
	return &scripted{scores: scores, pairs: pairs}
}

func (s *scripted) SetWord(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guesses = nil
	return nil
}

func (s *scripted) Guess(ctx context.Context, word string) (similarity.Result, error) {
	s.mu.Lock()
	gate, fail := s.gate, s.fail
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail != nil {
		return similarity.Result{}, fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guesses = append(s.guesses, word)
	return s.resultLocked(word), nil
}

func (s *scripted) Hint(context.Context) (similarity.Hint, error) {
	return similarity.Hint{Text: "starts with l", GuessCount: len(s.guesses)}, nil
}

func (s *scripted) Rescore(context.Context, string) (similarity.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultLocked(""), nil
}

func (s *scripted) resultLocked(word string) similarity.Result {
	r := similarity.Result{Word: word, Score: s.scores[word], GuessCount: len(s.guesses)}
	for _, g := range s.guesses {
		r.Scores = append(r.Scores, model.Guess{Word: g, Score: s.scores[g]})
	}
	for i, a := range s.guesses {
		for _, b := range s.guesses[i+1:] {
			if v, ok := s.pairs[model.PairKey(a, b)]; ok {
				r.Pairs = append(r.Pairs, model.Pair{A: a, B: b, Similarity: v})
			}
		}
	}
	return r
}

type fixture struct {
	ctx   context.Context
	clock *clock.Fake
	ticks *manualTicks
	rec   *render.Recorder
	eng   *app.Engine
}

func newFixture(client similarity.Client, opts ...app.Option) *fixture {
	f := &fixture{
		ctx:   context.Background(),
		clock: clock.NewFake(time.Unix(1000, 0)),
		ticks: &manualTicks{},
		rec:   render.NewRecorder(),
	}
	base := []app.Option{
		app.WithClock(f.clock),
		app.WithTickSource(f.ticks.source),
		app.WithRenderer(f.rec),
		app.WithClient(client),
	}
	f.eng = app.New(append(base, opts...)...)
	return f
}

// settle lets the layout run and waits for the loop to catch up.
func (f *fixture) settle(n int) {
	f.ticks.step(n)
	_, _ = f.eng.Graph(f.ctx)
}

func TestEngineLifecycle(t *testing.T) {
	Convey("Given a stopped engine", t, func() {
		f := newFixture(newScripted(nil, nil))

		Convey("Then commands fail with ErrEngineStopped", func() {
			So(errors.Is(f.eng.SetWord(f.ctx, "lake"), app.ErrEngineStopped), ShouldBeTrue)
			_, err := f.eng.SubmitGuess(f.ctx, "ocean")
			So(errors.Is(err, app.ErrEngineStopped), ShouldBeTrue)
			So(errors.Is(f.eng.Pan(f.ctx, 1, 1), app.ErrEngineStopped), ShouldBeTrue)
		})

		Convey("When started twice", func() {
			So(f.eng.Start(f.ctx), ShouldBeNil)
			So(f.eng.SetWord(f.ctx, "lake"), ShouldBeNil)
			So(f.eng.Start(f.ctx), ShouldBeNil)
			defer f.eng.Stop()

			Convey("Then it keeps one running loop and its graph", func() {
				So(f.eng.Running(), ShouldBeTrue)
				g, err := f.eng.Graph(f.ctx)
				So(err, ShouldBeNil)
				_, ok := g.Node(model.HiddenTargetID)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When restarted in the middle of a drag", func() {
			f = newFixture(newScripted(map[string]float64{"ocean": 12}, nil))
			So(f.eng.Start(f.ctx), ShouldBeNil)
			defer f.eng.Stop()
			So(f.eng.SetWord(f.ctx, "lake"), ShouldBeNil)
			_, err := f.eng.SubmitGuess(f.ctx, "ocean")
			So(err, ShouldBeNil)
			So(f.eng.DragStart(f.ctx, "ocean"), ShouldBeNil)
			So(f.eng.Start(f.ctx), ShouldBeNil)

			Convey("Then the node is released and rejoins the layout", func() {
				v, err := f.eng.View(f.ctx)
				So(err, ShouldBeNil)
				So(v.Dragging, ShouldBeEmpty)
				g, _ := f.eng.Graph(f.ctx)
				ocean, _ := g.Node("ocean")
				So(ocean.Pin, ShouldBeNil)
				So(errors.Is(f.eng.DragEnd(f.ctx, "ocean"), interaction.ErrNotDragging), ShouldBeTrue)

				f.settle(2)
				g, _ = f.eng.Graph(f.ctx)
				moved, _ := g.Node("ocean")
				So(moved.Pos, ShouldNotResemble, ocean.Pos)
			})
		})

		Convey("When started and stopped", func() {
			So(f.eng.Start(f.ctx), ShouldBeNil)
			f.eng.Stop()
			f.eng.Stop()

			Convey("Then it can be started again", func() {
				So(f.eng.Running(), ShouldBeFalse)
				So(f.eng.Start(f.ctx), ShouldBeNil)
				defer f.eng.Stop()
				So(f.eng.Pan(f.ctx, 1, 1), ShouldBeNil)
			})
		})
	})
}

func TestEngineScenario(t *testing.T) {
	Convey("Given a running engine with an unknown target", t, func() {
		client := newScripted(
			map[string]float64{"ocean": 12, "river": 55, "lake": 90, "cat": 30, "dog": 35},
			map[string]float64{model.PairKey("cat", "dog"): 70, model.PairKey("ocean", "river"): 10},
		)
		f := newFixture(client)
		So(f.eng.Start(f.ctx), ShouldBeNil)
		defer f.eng.Stop()
		So(f.eng.SetWord(f.ctx, "pond"), ShouldBeNil)

		Convey("When ocean, river and lake are guessed", func() {
			for _, w := range []string{"ocean", "river", "lake"} {
				out, err := f.eng.SubmitGuess(f.ctx, w)
				So(err, ShouldBeNil)
				So(out.Added, ShouldContain, w)
			}
			f.settle(5)

			Convey("Then lake is the largest and greenest node", func() {
				lake, ok := f.rec.Node("lake")
				So(ok, ShouldBeTrue)
				ocean, _ := f.rec.Node("ocean")
				river, _ := f.rec.Node("river")
				So(lake.Radius, ShouldBeGreaterThan, river.Radius)
				So(river.Radius, ShouldBeGreaterThan, ocean.Radius)
				So(lake.Hue, ShouldBeGreaterThan, river.Hue)
				So(river.Hue, ShouldBeGreaterThan, ocean.Hue)
				So(lake.IsNew, ShouldBeTrue)
			})

			Convey("Then lake's star link is wider and shorter than ocean's", func() {
				lakeLink, ok := f.rec.Link(model.PairKey("lake", model.HiddenTargetID))
				So(ok, ShouldBeTrue)
				oceanLink, ok := f.rec.Link(model.PairKey("ocean", model.HiddenTargetID))
				So(ok, ShouldBeTrue)
				So(lakeLink.Width, ShouldBeGreaterThan, oceanLink.Width)

				enc := visual.New(variant.Default().Visual)
				So(enc.LinkDistance(90), ShouldBeLessThan, enc.LinkDistance(12))
			})

			Convey("Then the history ranks lake first", func() {
				top, err := f.eng.History(f.ctx, 2)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)
				So(top[0].Word, ShouldEqual, "lake")
				So(top[1].Word, ShouldEqual, "river")
			})

			Convey("Then isNew clears once after the window without ticking", func() {
				f.clock.Advance(3 * time.Second)
				g, err := f.eng.Graph(f.ctx)
				So(err, ShouldBeNil)
				for _, n := range g.Nodes {
					So(n.IsNew, ShouldBeFalse)
				}
			})

			Convey("Then a repeated guess is rejected before reaching the collaborator", func() {
				_, err := f.eng.SubmitGuess(f.ctx, " Lake ")
				So(errors.Is(err, app.ErrAlreadyGuessed), ShouldBeTrue)
				client.mu.Lock()
				So(len(client.guesses), ShouldEqual, 3)
				client.mu.Unlock()
			})

			Convey("Then dragging holds a node under the pointer", func() {
				So(f.eng.DragStart(f.ctx, "lake"), ShouldBeNil)
				So(f.eng.DragMove(f.ctx, "lake", model.Vec{X: 100, Y: 120}), ShouldBeNil)
				So(f.ticks.step(3), ShouldEqual, 3)
				g, _ := f.eng.Graph(f.ctx)
				lake, _ := g.Node("lake")
				So(lake.Pos, ShouldResemble, model.Vec{X: 100, Y: 120})

				v, err := f.eng.View(f.ctx)
				So(err, ShouldBeNil)
				So(v.Dragging, ShouldResemble, []string{"lake"})
				So(v.Alpha, ShouldBeGreaterThan, 0)

				So(f.eng.DragEnd(f.ctx, "lake"), ShouldBeNil)
				f.settle(1)
				g, _ = f.eng.Graph(f.ctx)
				lake, _ = g.Node("lake")
				So(lake.Pin, ShouldBeNil)
			})

			Convey("Then dragging an unknown node fails", func() {
				So(f.eng.DragStart(f.ctx, "sea"), ShouldNotBeNil)
			})

			Convey("Then revealing the target mid-drag leaves no pin behind", func() {
				So(f.eng.DragStart(f.ctx, model.HiddenTargetID), ShouldBeNil)
				So(f.eng.DragMove(f.ctx, model.HiddenTargetID, model.Vec{X: 50, Y: 60}), ShouldBeNil)
				_, err := f.eng.ApplySnapshot(f.ctx, model.Snapshot{TargetID: "pond", Partial: true})
				So(err, ShouldBeNil)

				v, err := f.eng.View(f.ctx)
				So(err, ShouldBeNil)
				So(v.TargetID, ShouldEqual, "pond")
				So(v.Dragging, ShouldBeEmpty)
				g, _ := f.eng.Graph(f.ctx)
				pond, ok := g.Node("pond")
				So(ok, ShouldBeTrue)
				So(pond.Pin, ShouldBeNil)

				So(f.eng.DragStart(f.ctx, "pond"), ShouldBeNil)
				So(f.eng.DragEnd(f.ctx, "pond"), ShouldBeNil)
			})

			Convey("Then the view cannot be pushed past the float range", func() {
				So(f.eng.Pan(f.ctx, 1e308, 0), ShouldBeNil)
				err := f.eng.Pan(f.ctx, 1e308, 0)
				So(errors.Is(err, interaction.ErrNonFinite), ShouldBeTrue)

				So(f.eng.DragStart(f.ctx, "ocean"), ShouldBeNil)
				err = f.eng.DragMove(f.ctx, "ocean", model.Vec{X: -1e308, Y: 10})
				So(errors.Is(err, interaction.ErrNonFinite), ShouldBeTrue)
				f.settle(2)

				v, err := f.eng.View(f.ctx)
				So(err, ShouldBeNil)
				So(v.Transform.Finite(), ShouldBeTrue)
				_, err = json.Marshal(v)
				So(err, ShouldBeNil)
				g, _ := f.eng.Graph(f.ctx)
				for _, n := range g.Nodes {
					So(n.Pos.Finite(), ShouldBeTrue)
				}
			})
		})

		Convey("When two guesses have a strong pairwise similarity", func() {
			for _, w := range []string{"cat", "dog", "ocean", "river"} {
				_, err := f.eng.SubmitGuess(f.ctx, w)
				So(err, ShouldBeNil)
			}
			f.settle(1)

			Convey("Then their edge is wider than a weak one", func() {
				strong, ok := f.rec.Link(model.PairKey("cat", "dog"))
				So(ok, ShouldBeTrue)
				weak, ok := f.rec.Link(model.PairKey("ocean", "river"))
				So(ok, ShouldBeTrue)
				So(strong.Width, ShouldBeGreaterThan, weak.Width)
			})
		})

		Convey("When a response arrives after the round changed", func() {
			gate := make(chan struct{})
			client.mu.Lock()
			client.gate = gate
			client.mu.Unlock()

			errc := make(chan error, 1)
			go func() {
				_, err := f.eng.SubmitGuess(f.ctx, "ocean")
				errc <- err
			}()
			time.Sleep(20 * time.Millisecond)
			So(f.eng.Reset(f.ctx), ShouldBeNil)
			close(gate)

			Convey("Then it is discarded", func() {
				So(errors.Is(<-errc, app.ErrStaleResponse), ShouldBeTrue)
				g, _ := f.eng.Graph(f.ctx)
				_, ok := g.Node("ocean")
				So(ok, ShouldBeFalse)
				So(f.eng.GetStats(f.ctx)["stale"], ShouldEqual, uint64(1))
			})
		})

		Convey("When the collaborator is down", func() {
			client.mu.Lock()
			client.fail = similarity.ErrUnavailable
			client.mu.Unlock()
			_, err := f.eng.SubmitGuess(f.ctx, "ocean")

			Convey("Then the error is surfaced and the guess can be retried", func() {
				So(errors.Is(err, app.ErrCollaboratorUnavailable), ShouldBeTrue)
				client.mu.Lock()
				client.fail = nil
				client.mu.Unlock()
				_, err = f.eng.SubmitGuess(f.ctx, "ocean")
				So(err, ShouldBeNil)
			})
		})

		Convey("When the view is zoomed and panned", func() {
			So(f.eng.Zoom(f.ctx, 2, model.Vec{}), ShouldBeNil)
			So(f.eng.Pan(f.ctx, 10, 0), ShouldBeNil)
			v, _ := f.eng.View(f.ctx)

			Convey("Then only the transform changes", func() {
				So(v.Transform.K, ShouldEqual, 2)
				So(v.Transform.X, ShouldEqual, 10)
				So(f.eng.ResetView(f.ctx), ShouldBeNil)
				v, _ = f.eng.View(f.ctx)
				So(v.Transform.K, ShouldEqual, 1)
			})

			Convey("Then invalid zooms are rejected", func() {
				So(f.eng.Zoom(f.ctx, 0, model.Vec{}), ShouldNotBeNil)
			})
		})

		Convey("When the viewport is resized", func() {
			So(f.eng.Resize(f.ctx, 0, 10), ShouldNotBeNil)
			So(f.eng.Resize(f.ctx, 400, 200), ShouldBeNil)
			stats := f.eng.GetStats(f.ctx)
			So(stats["roundActive"], ShouldEqual, true)
		})
	})
}

func TestNoRound(t *testing.T) {
	Convey("Given a running engine without a word", t, func() {
		f := newFixture(newScripted(nil, nil))
		So(f.eng.Start(f.ctx), ShouldBeNil)
		defer f.eng.Stop()

		Convey("Then guesses and hints report no round", func() {
			_, err := f.eng.SubmitGuess(f.ctx, "ocean")
			So(errors.Is(err, app.ErrNoRound), ShouldBeTrue)
			_, err = f.eng.RequestHint(f.ctx)
			So(errors.Is(err, app.ErrNoRound), ShouldBeTrue)
			_, err = f.eng.SubmitGuess(f.ctx, "   ")
			So(errors.Is(err, app.ErrInvalidWord), ShouldBeTrue)
		})
	})
}

func TestIndependentEngines(t *testing.T) {
	Convey("Given two engines running side by side", t, func() {
		ctx := context.Background()
		a := app.New(app.WithClient(similarity.NewInMemoryClient()), app.WithTickInterval(time.Millisecond))
		graphVariant, err := variant.Lookup(variant.Graph)
		So(err, ShouldBeNil)
		b := app.New(app.WithClient(similarity.NewInMemoryClient()), app.WithVariant(graphVariant), app.WithTickInterval(time.Millisecond))
		So(a.Start(ctx), ShouldBeNil)
		defer a.Stop()
		So(b.Start(ctx), ShouldBeNil)
		defer b.Stop()

		So(a.SetWord(ctx, "lake"), ShouldBeNil)
		So(b.SetWord(ctx, "ocean"), ShouldBeNil)
		_, err = a.SubmitGuess(ctx, "lakes")
		So(err, ShouldBeNil)

		Convey("Then their graphs do not mix", func() {
			ga, _ := a.Graph(ctx)
			gb, _ := b.Graph(ctx)
			_, ok := ga.Node("lakes")
			So(ok, ShouldBeTrue)
			_, ok = gb.Node("lakes")
			So(ok, ShouldBeFalse)
			So(a.ID(), ShouldNotEqual, b.ID())

			// The same word is fresh for the other engine.
			_, err := b.SubmitGuess(ctx, "lakes")
			So(err, ShouldBeNil)
		})
	})
}

func TestRescore(t *testing.T) {
	Convey("Given a round with the in-memory collaborator", t, func() {
		ctx := context.Background()
		e := app.New(app.WithClient(similarity.NewInMemoryClient()), app.WithTickInterval(time.Millisecond))
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()
		So(e.SetWord(ctx, "harbor"), ShouldBeNil)
		first, err := e.SubmitGuess(ctx, "harbour")
		So(err, ShouldBeNil)

		Convey("When rescored with another model", func() {
			out, err := e.Rescore(ctx, similarity.ModelTrigram)
			So(err, ShouldBeNil)

			Convey("Then scores change but no node is added", func() {
				So(out.Model, ShouldEqual, similarity.ModelTrigram)
				So(out.Added, ShouldBeEmpty)
				g, _ := e.Graph(ctx)
				n, _ := g.Node("harbour")
				So(n.Score, ShouldNotEqual, first.Score)
			})
		})

		Convey("When rescored with an unknown model", func() {
			_, err := e.Rescore(ctx, "glove")
			So(err, ShouldNotBeNil)
		})

		Convey("When the target is guessed", func() {
			out, err := e.SubmitGuess(ctx, "harbor")
			So(err, ShouldBeNil)

			Convey("Then the target is revealed", func() {
				So(out.Found, ShouldBeTrue)
				g, _ := e.Graph(ctx)
				So(g.TargetID, ShouldEqual, "harbor")
				_, ok := g.Node("harbour")
				So(ok, ShouldBeTrue)
			})
		})
	})
}
