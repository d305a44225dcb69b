package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/wordgraph/internal/config"
	"github.com/okian/wordgraph/internal/domain/variant"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Variant, convey.ShouldEqual, variant.Dynamic)
			convey.So(cfg.TickInterval(), convey.ShouldEqual, 16*time.Millisecond)
			convey.So(cfg.NewWindow(), convey.ShouldEqual, 3*time.Second)
			convey.So(cfg.ExitDuration(), convey.ShouldEqual, 500*time.Millisecond)
			convey.So(cfg.DragAlphaTarget, convey.ShouldEqual, 0.3)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then zero overrides keep the variant's constants", func() {
			v, err := cfg.LayoutVariant()
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldResemble, variant.Default())
		})

		convey.Convey("Then non-zero overrides replace them", func() {
			cfg.Variant = variant.Graph
			cfg.ChargeStrength = -120
			cfg.MaxScale = 8
			v, err := cfg.LayoutVariant()
			convey.So(err, convey.ShouldBeNil)
			convey.So(v.Name, convey.ShouldEqual, variant.Graph)
			convey.So(v.Force.ChargeStrength, convey.ShouldEqual, -120)
			convey.So(v.MaxScale, convey.ShouldEqual, 8)
			convey.So(v.MinScale, convey.ShouldEqual, 0.3)
		})
	})
}
