package render_test

import (
	"testing"
	"time"

	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/model"
	"github.com/okian/wordgraph/internal/domain/visual"
	. "github.com/smartystreets/goconvey/convey"
)

// plainRenderer has no frame support.
type plainRenderer struct {
	calls []string
}

func (p *plainRenderer) DrawNode(s visual.NodeStyle) { p.calls = append(p.calls, "node:"+s.ID) }
func (p *plainRenderer) DrawLink(s visual.LinkStyle) { p.calls = append(p.calls, "link:"+s.Key) }
func (p *plainRenderer) RemoveNode(id string)        { p.calls = append(p.calls, "-node:"+id) }
func (p *plainRenderer) RemoveLink(key string)       { p.calls = append(p.calls, "-link:"+key) }

func scene() ([]*model.Node, []*model.Link) {
	target := &model.Node{ID: model.HiddenTargetID, Score: 100, IsTarget: true}
	lake := &model.Node{ID: "lake", Score: 90, Pos: model.Vec{X: 10, Y: 20}}
	ocean := &model.Node{ID: "ocean", Score: 12, Pos: model.Vec{X: -30}}
	links := []*model.Link{
		{SourceID: "lake", TargetID: model.HiddenTargetID, Weight: 90, IsToTarget: true},
		{SourceID: "ocean", TargetID: model.HiddenTargetID, Weight: 12, IsToTarget: true},
		{SourceID: "lake", TargetID: "ocean", Weight: 40},
	}
	return []*model.Node{target, lake, ocean}, links
}

func TestPainter(t *testing.T) {
	Convey("Given a painter over a recorder", t, func() {
		enc := visual.New(visual.DefaultConfig())
		now := time.Unix(100, 0)
		rec := render.NewRecorder()
		p := render.NewPainter(rec)
		nodes, links := scene()
		view := interaction.Transform{K: 2, X: 5, Y: 5}

		p.Paint(nodes, links, enc, view, now)

		Convey("Then every node and link is drawn in one frame with the transform", func() {
			So(rec.Frames(), ShouldEqual, 1)
			So(len(rec.Nodes()), ShouldEqual, 3)
			So(len(rec.Links()), ShouldEqual, 3)
			So(rec.Transform(), ShouldResemble, view)
			lake, ok := rec.Node("lake")
			So(ok, ShouldBeTrue)
			So(lake.X, ShouldEqual, 10)
			So(lake.Y, ShouldEqual, 20)
			dn, dl := p.Drawn()
			So(dn, ShouldEqual, 3)
			So(dl, ShouldEqual, 3)
		})

		Convey("When a node and its links leave the graph", func() {
			p.Paint(nodes[:2], links[:1], enc, view, now)

			Convey("Then the renderer is told to remove them", func() {
				So(rec.Removed(), ShouldResemble, []string{"ocean"})
				So(len(rec.Links()), ShouldEqual, 1)
				_, ok := rec.Link(model.PairKey("lake", "ocean"))
				So(ok, ShouldBeFalse)
			})
		})

		Convey("Then a link whose endpoint is missing is not drawn", func() {
			r2 := render.NewRecorder()
			render.NewPainter(r2).Paint(nodes[:2], links, enc, view, now)
			So(len(r2.Links()), ShouldEqual, 1)
		})
	})

	Convey("Given a renderer without frame support", t, func() {
		pr := &plainRenderer{}
		p := render.NewPainter(pr)
		nodes, links := scene()
		p.Paint(nodes[:2], links[:1], visual.New(visual.DefaultConfig()), interaction.Identity(), time.Now())

		Convey("Then links are drawn before nodes", func() {
			So(pr.calls, ShouldResemble, []string{
				"link:" + model.PairKey("lake", model.HiddenTargetID),
				"node:" + model.HiddenTargetID,
				"node:lake",
			})
		})
	})
}
