package render_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/wordgraph/internal/adapters/render"
	"github.com/okian/wordgraph/internal/domain/interaction"
	"github.com/okian/wordgraph/internal/domain/visual"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBroadcaster(t *testing.T) {
	Convey("Given a broadcaster behind an HTTP server", t, func() {
		b := render.NewBroadcaster()
		joined := make(chan struct{}, 1)
		b.OnJoin(func() { joined <- struct{}{} })
		srv := httptest.NewServer(b)
		defer srv.Close()
		defer b.Close()

		url := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		select {
		case <-joined:
		case <-time.After(time.Second):
			t.Fatal("join hook not called")
		}
		So(b.Clients(), ShouldEqual, 1)

		Convey("When a frame is painted", func() {
			b.BeginFrame(interaction.Transform{K: 1.5})
			b.DrawLink(visual.LinkStyle{Key: "a|b", SourceID: "a", TargetID: "b"})
			b.DrawNode(visual.NodeStyle{ID: "a"})
			b.DrawNode(visual.NodeStyle{ID: "b"})
			b.RemoveNode("c")
			b.EndFrame()

			Convey("Then the client receives it as one JSON message", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				var f render.Frame
				So(json.Unmarshal(data, &f), ShouldBeNil)
				So(f.Seq, ShouldEqual, 1)
				So(f.ID, ShouldNotBeEmpty)
				So(f.Transform.K, ShouldEqual, 1.5)
				So(len(f.Nodes), ShouldEqual, 2)
				So(len(f.Links), ShouldEqual, 1)
				So(f.RemovedNodes, ShouldResemble, []string{"c"})
			})
		})

		Convey("When the client disconnects", func() {
			_ = conn.Close()

			Convey("Then it is forgotten", func() {
				deadline := time.Now().Add(2 * time.Second)
				for b.Clients() != 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(b.Clients(), ShouldEqual, 0)
				b.BeginFrame(interaction.Identity())
				b.EndFrame()
			})
		})
	})
}
