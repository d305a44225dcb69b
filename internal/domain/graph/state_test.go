package graph_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/wordgraph/internal/domain/graph"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func newState(opts ...graph.Option) (*graph.State, *clock.Fake) {
	c := clock.NewFake(time.Unix(0, 0))
	opts = append([]graph.Option{graph.WithClock(c), graph.WithCenter(model.Vec{X: 400, Y: 300})}, opts...)
	return graph.New(opts...), c
}

func assertNoDangling(v graph.View) {
	ids := make(map[string]bool, len(v.Nodes))
	for _, n := range v.Nodes {
		ids[n.ID] = true
	}
	for _, l := range v.Links {
		So(ids[l.SourceID], ShouldBeTrue)
		So(ids[l.TargetID], ShouldBeTrue)
	}
}

func TestApply(t *testing.T) {
	Convey("Given an empty graph", t, func() {
		ctx := context.Background()
		s, _ := newState()

		Convey("When a first snapshot arrives", func() {
			res := s.Apply(ctx, model.Snapshot{
				Guesses: []model.Guess{{Word: "ocean", Score: 12}, {Word: "river", Score: 55}, {Word: "lake", Score: 140}},
				Pairs:   []model.Pair{{A: "ocean", B: "lake", Similarity: 40}},
			})
			v := s.Get()

			Convey("Then a hidden target and a star plus the pair exist", func() {
				So(res.Added, ShouldResemble, []string{"ocean", "river", "lake"})
				So(v.TargetID, ShouldEqual, model.HiddenTargetID)
				So(len(v.Nodes), ShouldEqual, 4)
				So(len(v.Links), ShouldEqual, 4)
				star, ok := v.Link(model.HiddenTargetID, "river")
				So(ok, ShouldBeTrue)
				So(star.IsToTarget, ShouldBeTrue)
				So(star.Weight, ShouldEqual, 55)
				assertNoDangling(v)
			})

			Convey("Then scores are clamped", func() {
				n, _ := v.Node("lake")
				So(n.Score, ShouldEqual, 100)
			})

			Convey("Then new nodes spawn on the target with zero velocity", func() {
				n, _ := v.Node("ocean")
				So(n.Pos, ShouldResemble, model.Vec{X: 400, Y: 300})
				So(n.Vel, ShouldResemble, model.Vec{})
			})
		})

		Convey("When a retained node has moved before the next apply", func() {
			s.Apply(ctx, model.Snapshot{Guesses: []model.Guess{{Word: "cat", Score: 30}}})
			n, _ := s.Node("cat")
			n.Pos = model.Vec{X: 12, Y: 34}
			n.Vel = model.Vec{X: 1, Y: -1}
			res := s.Apply(ctx, model.Snapshot{Guesses: []model.Guess{{Word: "cat", Score: 31}, {Word: "dog", Score: 50}}})

			Convey("Then its position and velocity survive the merge", func() {
				got, _ := s.Get().Node("cat")
				So(got.Pos, ShouldResemble, model.Vec{X: 12, Y: 34})
				So(got.Vel, ShouldResemble, model.Vec{X: 1, Y: -1})
				So(got.Score, ShouldEqual, 31)
				So(res.Updated, ShouldResemble, []string{"cat"})
				So(res.Added, ShouldResemble, []string{"dog"})
			})
		})

		Convey("When pairwise records are malformed", func() {
			res := s.Apply(ctx, model.Snapshot{
				Guesses: []model.Guess{{Word: "cat", Score: 30}, {Word: "dog", Score: 50}, {Word: " ", Score: 5}},
				Pairs: []model.Pair{
					{A: "cat", B: "ghost", Similarity: 70},
					{A: "cat", B: "cat", Similarity: 100},
					{A: "cat", B: model.HiddenTargetID, Similarity: 10},
					{A: "dog", B: "cat", Similarity: 70},
				},
			})
			v := s.Get()

			Convey("Then they are dropped without failing the apply", func() {
				So(res.Dropped, ShouldEqual, 4)
				_, ok := v.Link("cat", "dog")
				So(ok, ShouldBeTrue)
				So(len(v.Links), ShouldEqual, 3)
				assertNoDangling(v)
			})
		})

		Convey("When the same word appears twice in one snapshot", func() {
			s.Apply(ctx, model.Snapshot{Guesses: []model.Guess{{Word: "cat", Score: 30}, {Word: "cat", Score: 45}}})
			v := s.Get()

			Convey("Then the later score wins and one node exists", func() {
				So(len(v.Nodes), ShouldEqual, 2)
				n, _ := v.Node("cat")
				So(n.Score, ShouldEqual, 45)
			})
		})

		Convey("When a word is dropped from a full snapshot", func() {
			s.Apply(ctx, model.Snapshot{
				Guesses: []model.Guess{{Word: "cat", Score: 30}, {Word: "dog", Score: 50}},
				Pairs:   []model.Pair{{A: "cat", B: "dog", Similarity: 70}},
			})
			s.Apply(ctx, model.Snapshot{Guesses: []model.Guess{{Word: "dog", Score: 50}}})
			v := s.Get()

			Convey("Then its links begin exiting but the node stays for the reconciler", func() {
				l, ok := v.Link("cat", "dog")
				So(ok, ShouldBeTrue)
				So(l.Exiting(), ShouldBeTrue)
				n, _ := v.Node("cat")
				So(n.Exiting(), ShouldBeFalse)
			})
		})

		Convey("When a partial snapshot arrives", func() {
			s.Apply(ctx, model.Snapshot{
				Guesses: []model.Guess{{Word: "cat", Score: 30}, {Word: "dog", Score: 50}},
				Pairs:   []model.Pair{{A: "cat", B: "dog", Similarity: 70}},
			})
			s.Apply(ctx, model.Snapshot{Partial: true, Guesses: []model.Guess{{Word: "fox", Score: 20}}, Pairs: []model.Pair{{A: "fox", B: "dog", Similarity: 60}}})
			v := s.Get()

			Convey("Then existing links are kept and new ones upserted", func() {
				for _, pair := range [][2]string{{"cat", "dog"}, {"fox", "dog"}, {model.HiddenTargetID, "cat"}, {model.HiddenTargetID, "fox"}} {
					l, ok := v.Link(pair[0], pair[1])
					So(ok, ShouldBeTrue)
					So(l.Exiting(), ShouldBeFalse)
				}
			})
		})

		Convey("When the target is revealed and was guessed", func() {
			s.Apply(ctx, model.Snapshot{Guesses: []model.Guess{{Word: "cat", Score: 30}}})
			res := s.Apply(ctx, model.Snapshot{TargetID: "lake", Guesses: []model.Guess{{Word: "cat", Score: 30}, {Word: "lake", Score: 100}}})
			v := s.Get()

			Convey("Then the target is re-keyed and the guess folds into it", func() {
				So(v.TargetID, ShouldEqual, "lake")
				So(len(res.Added), ShouldEqual, 0)
				n, ok := v.Node("lake")
				So(ok, ShouldBeTrue)
				So(n.IsTarget, ShouldBeTrue)
				_, hidden := v.Node(model.HiddenTargetID)
				So(hidden, ShouldBeFalse)
				So(len(v.Links), ShouldEqual, 1)
				assertNoDangling(v)
			})
		})

		Convey("When the hidden target is pinned and then revealed", func() {
			s.Apply(ctx, model.Snapshot{})
			So(s.SetPin(model.HiddenTargetID, &model.Vec{X: 5, Y: 5}), ShouldBeNil)
			s.Apply(ctx, model.Snapshot{TargetID: "lake"})

			Convey("Then the re-keyed target is free", func() {
				n, ok := s.Node("lake")
				So(ok, ShouldBeTrue)
				So(n.Pin, ShouldBeNil)
			})
		})
	})
}

func TestSpawnAtCenter(t *testing.T) {
	Convey("Given a graph that spawns at the viewport center", t, func() {
		ctx := context.Background()
		s, _ := newState(graph.WithSpawnRule(graph.SpawnAtCenter))
		s.Apply(ctx, model.Snapshot{})
		target, _ := s.Node(model.HiddenTargetID)
		target.Pos = model.Vec{X: 10, Y: 10}

		Convey("When a node is added", func() {
			s.Apply(ctx, model.Snapshot{Guesses: []model.Guess{{Word: "cat", Score: 30}}})

			Convey("Then it appears at the center, not on the target", func() {
				n, _ := s.Node("cat")
				So(n.Pos, ShouldResemble, model.Vec{X: 400, Y: 300})
			})
		})
	})
}

func TestLifecycleOperations(t *testing.T) {
	Convey("Given a graph with two guesses and a pair", t, func() {
		ctx := context.Background()
		s, c := newState()
		s.Apply(ctx, model.Snapshot{
			Guesses: []model.Guess{{Word: "cat", Score: 30}, {Word: "dog", Score: 50}},
			Pairs:   []model.Pair{{A: "cat", B: "dog", Similarity: 70}},
		})

		Convey("When a node is marked exiting and removed", func() {
			So(s.MarkExiting("cat"), ShouldBeNil)
			So(s.IDs(), ShouldResemble, []string{"dog"})
			So(s.Remove("cat"), ShouldBeTrue)
			v := s.Get()

			Convey("Then it and its links are gone", func() {
				_, ok := v.Node("cat")
				So(ok, ShouldBeFalse)
				So(len(v.Links), ShouldEqual, 1)
				assertNoDangling(v)
			})
		})

		Convey("When removal is attempted on a live node", func() {
			So(s.Remove("dog"), ShouldBeFalse)
		})

		Convey("When exiting links are purged after their transition", func() {
			So(s.MarkExiting("cat"), ShouldBeNil)
			c.Advance(time.Second)
			n := s.PurgeLinks(c.Now())

			Convey("Then only the exiting links are deleted", func() {
				So(n, ShouldEqual, 2)
				So(len(s.Links()), ShouldEqual, 1)
			})
		})

		Convey("When pinning", func() {
			p := model.Vec{X: 5, Y: 6}
			So(s.SetPin("dog", &p), ShouldBeNil)
			p.X = 99
			v := s.Get()

			Convey("Then the pin is copied and the view is a deep copy", func() {
				n, _ := v.Node("dog")
				So(n.Pin.X, ShouldEqual, 5)
				n.Pin.X = 1
				live, _ := s.Node("dog")
				So(live.Pin.X, ShouldEqual, 5)
				_, _, _, pinned := s.Counts()
				So(pinned, ShouldEqual, 1)
			})

			Convey("Then unknown and exiting nodes are rejected", func() {
				So(s.SetPin("ghost", &p), ShouldEqual, graph.ErrNodeNotFound)
				So(s.MarkExiting("cat"), ShouldBeNil)
				So(s.SetPin("cat", &p), ShouldEqual, graph.ErrNodeExiting)
			})
		})

		Convey("When reset", func() {
			s.Reset()
			So(len(s.Nodes()), ShouldEqual, 0)
			So(s.TargetID(), ShouldEqual, "")
		})
	})
}
