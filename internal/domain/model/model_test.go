package model_test

import (
	"math"
	"testing"

	model "github.com/okian/wordgraph/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPairKey(t *testing.T) {
	convey.Convey("Given two words", t, func() {
		convey.Convey("When building keys in both orders", func() {
			k1 := model.PairKey("dog", "cat")
			k2 := model.PairKey("cat", "dog")

			convey.Convey("Then the keys match and split back in sorted order", func() {
				convey.So(k1, convey.ShouldEqual, k2)
				a, b, ok := model.SplitPairKey(k1)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(a, convey.ShouldEqual, "cat")
				convey.So(b, convey.ShouldEqual, "dog")
			})
		})

		convey.Convey("When words contain hyphens", func() {
			k := model.PairKey("well-being", "x-ray")
			a, b, ok := model.SplitPairKey(k)

			convey.Convey("Then the split is unambiguous", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(a, convey.ShouldEqual, "well-being")
				convey.So(b, convey.ShouldEqual, "x-ray")
			})
		})
	})
}

func TestClampScore(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-5, 0},
		{0, 0},
		{42.5, 42.5},
		{100, 100},
		{180, 100},
		{math.NaN(), 0},
		{math.Inf(1), 100},
	}
	for _, c := range cases {
		if got := model.ClampScore(c.in); got != c.want {
			t.Errorf("ClampScore(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNodeState(t *testing.T) {
	convey.Convey("Given a node", t, func() {
		n := &model.Node{ID: "lake", Score: 90}

		convey.Convey("Then it starts live and unpinned", func() {
			convey.So(n.Exiting(), convey.ShouldBeFalse)
			convey.So(n.Pinned(), convey.ShouldBeFalse)
		})

		convey.Convey("When pinned", func() {
			n.Pin = &model.Vec{X: 1, Y: 2}
			convey.So(n.Pinned(), convey.ShouldBeTrue)
		})
	})
}

func TestSnapshotTarget(t *testing.T) {
	s := model.Snapshot{}
	if s.Target() != model.HiddenTargetID {
		t.Fatalf("empty target should map to %s", model.HiddenTargetID)
	}
	s.TargetID = "lake"
	if s.Target() != "lake" {
		t.Fatalf("target = %s", s.Target())
	}
}

func TestVec(t *testing.T) {
	v := model.Vec{X: 3, Y: 4}
	if v.Len() != 5 {
		t.Fatalf("len = %v", v.Len())
	}
	if got := v.Add(model.Vec{X: 1, Y: 1}).Sub(model.Vec{X: 2, Y: 2}).Scale(2); got != (model.Vec{X: 4, Y: 6}) {
		t.Fatalf("got %v", got)
	}
	if (model.Vec{X: math.NaN()}).Finite() {
		t.Fatal("NaN vector reported finite")
	}
	if !v.Equal(model.Vec{X: 3.0000001, Y: 4}, 1e-6) {
		t.Fatal("approximately equal vectors reported different")
	}
}
