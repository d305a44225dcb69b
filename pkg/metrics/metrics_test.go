package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegisterer(registry))

			Convey("Then it should be created with engine defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("graph"),
				WithPrefix("x_"),
				WithLatencyBuckets([]float64{1, 2}),
				WithRefreshInterval(3*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegisterer(registry),
			)
			manager.ticks.Inc()

			Convey("Then names and labels should follow the options", func() {
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_graph_x_ticks_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording simulation metrics", func() {
			before := value(globalManager.ticks)
			RecordTick(0.4)
			UpdateAlpha(0.25)
			UpdateGraphSize(4, 3, 1, 0)

			Convey("Then counters and gauges should move", func() {
				So(value(globalManager.ticks), ShouldEqual, before+1)
				So(value(globalManager.alpha), ShouldEqual, 0.25)
				So(value(globalManager.nodeCount), ShouldEqual, 4)
				So(value(globalManager.exitingCount), ShouldEqual, 1)
			})
		})

		Convey("When recording labelled counters", func() {
			RecordLinkDropped("unknown_endpoint")
			RecordSnapshotApplied("full")
			RecordCollaboratorLatency("guess", 12)
			RecordCollaboratorError("guess")

			Convey("Then the label series should exist", func() {
				So(value(globalManager.linksDropped.WithLabelValues("unknown_endpoint")), ShouldBeGreaterThanOrEqualTo, 1)
				So(value(globalManager.snapshotsApplied.WithLabelValues("full")), ShouldBeGreaterThanOrEqualTo, 1)
				So(value(globalManager.collabErrors.WithLabelValues("guess")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordJitter()
				UpdateLiveLoops(1)
				RecordLoopRestart()
				RecordNewFlagCleared()
				RecordReconcile(2, 1)
				RecordNodeRemoved()
				RecordStaleResponse()
				RecordCommand("guess")
				RecordCommandError("guess")
				RecordGuessDuplicate()
				UpdateHistorySize(3)
				UpdateBreakerState(2)
				UpdateRendererClients(1)
				RecordFrame()
				RecordFrameDropped()
				UpdateQueueSize(1)
				UpdateQueueCapacity(8)
				UpdateQueueUtilization(0.125)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordHTTPRequest("/guess", "POST", "200")
				RecordHTTPRequestDuration("/guess", "POST", "200", 3)
				RecordErrorByComponent("engine", "stale")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("When gathering the custom registry", func() {
			families, err := GetRegistry().Gather()

			Convey("Then every family should carry the wordgraph namespace", func() {
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "wordgraph_engine_"), ShouldBeTrue)
				}
			})
		})
	})
}

func value(m prometheus.Metric) float64 {
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		return -1
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	default:
		return 0
	}
}
