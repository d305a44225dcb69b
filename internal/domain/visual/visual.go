// Package visual maps scores and similarities to drawable attributes.
//
// Every function here is pure: the same inputs always produce the same
// outputs, and each mapping is monotonic in the score or weight it encodes.
package visual

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/wordgraph/internal/domain/model"
)

// ColorCurve selects how a score becomes a hue.
type ColorCurve int

const (
	// ColorLinear maps 0..100 continuously onto 0°..120°.
	ColorLinear ColorCurve = iota
	// ColorStepped buckets scores into five bands (red, orange, yellow, lime, green).
	ColorStepped
)

// WidthCurve selects how a link weight becomes a stroke width.
type WidthCurve int

const (
	// WidthLinear interpolates between MinWidth and MaxWidth.
	WidthLinear WidthCurve = iota
	// WidthQuadratic is (w/100)²·MaxWidth, floored at MinWidth.
	WidthQuadratic
	// WidthProportional is (w/100)·MaxWidth, floored at MinWidth.
	WidthProportional
)

const (
	maxHue      = 120.0
	stepBand    = 20.0
	stepHue     = 30.0
	targetLabel = "?"
)

// Config holds the tunables of an Encoder.
type Config struct {
	ColorCurve  ColorCurve
	Saturation  float64 // percent
	Lightness   float64 // percent
	TargetFill  string
	StrokeColor string

	BaseRadius   float64
	MaxRadius    float64
	TargetRadius float64

	WidthCurve          WidthCurve
	MinWidth            float64
	MaxWidth            float64
	InterWordWidthScale float64
	MinInterWordWidth   float64

	MinOpacity            float64
	MaxOpacity            float64
	InterWordOpacityScale float64

	LinkDistanceScale float64
	MinLinkDistance   float64

	StrokeWidth    float64
	NewStrokeWidth float64

	Transition time.Duration
}

// DefaultConfig returns the encoder settings of the default (dynamic) layout.
func DefaultConfig() Config {
	return Config{
		ColorCurve:            ColorLinear,
		Saturation:            70,
		Lightness:             50,
		TargetFill:            "#a855f7",
		StrokeColor:           "#ffffff",
		BaseRadius:            8,
		MaxRadius:             20,
		TargetRadius:          25,
		WidthCurve:            WidthLinear,
		MinWidth:              1,
		MaxWidth:              10,
		InterWordWidthScale:   1,
		MinInterWordWidth:     1,
		MinOpacity:            0.7,
		MaxOpacity:            1,
		InterWordOpacityScale: 1,
		LinkDistanceScale:     2,
		MinLinkDistance:       30,
		StrokeWidth:           1.5,
		NewStrokeWidth:        3,
		Transition:            500 * time.Millisecond,
	}
}

// HSL is a color in hue/saturation/lightness form.
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// String renders the color as a CSS hsl() value.
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%.1f, %.0f%%, %.0f%%)", c.H, c.S, c.L)
}

// Encoder turns scores into visual attributes.
type Encoder struct {
	cfg Config
}

// New creates an Encoder. Zero-valued fields fall back to DefaultConfig.
func New(cfg Config) *Encoder {
	def := DefaultConfig()
	if cfg.Saturation == 0 {
		cfg.Saturation = def.Saturation
	}
	if cfg.Lightness == 0 {
		cfg.Lightness = def.Lightness
	}
	if cfg.TargetFill == "" {
		cfg.TargetFill = def.TargetFill
	}
	if cfg.StrokeColor == "" {
		cfg.StrokeColor = def.StrokeColor
	}
	if cfg.MaxRadius < cfg.BaseRadius {
		cfg.MaxRadius = cfg.BaseRadius
	}
	if cfg.TargetRadius == 0 {
		cfg.TargetRadius = cfg.MaxRadius
	}
	if cfg.MaxWidth < cfg.MinWidth {
		cfg.MaxWidth = cfg.MinWidth
	}
	if cfg.InterWordWidthScale == 0 {
		cfg.InterWordWidthScale = 1
	}
	if cfg.MaxOpacity < cfg.MinOpacity {
		cfg.MaxOpacity = cfg.MinOpacity
	}
	if cfg.InterWordOpacityScale == 0 {
		cfg.InterWordOpacityScale = 1
	}
	if cfg.LinkDistanceScale == 0 {
		cfg.LinkDistanceScale = def.LinkDistanceScale
	}
	if cfg.StrokeWidth == 0 {
		cfg.StrokeWidth = def.StrokeWidth
	}
	if cfg.NewStrokeWidth < cfg.StrokeWidth {
		cfg.NewStrokeWidth = cfg.StrokeWidth
	}
	return &Encoder{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Encoder) Config() Config { return e.cfg }

// Hue returns the hue in degrees for a score: 0 is red, 120 is green.
func (e *Encoder) Hue(score float64) float64 {
	s := model.ClampScore(score)
	if e.cfg.ColorCurve == ColorStepped {
		return math.Min(math.Floor(s/stepBand)*stepHue, maxHue)
	}
	return s / model.MaxScore * maxHue
}

// Color returns the fill for a score.
func (e *Encoder) Color(score float64) HSL {
	return HSL{H: e.Hue(score), S: e.cfg.Saturation, L: e.cfg.Lightness}
}

// Radius returns the radius of a non-target node with the given score.
func (e *Encoder) Radius(score float64) float64 {
	f := model.ClampScore(score) / model.MaxScore
	return e.cfg.BaseRadius + f*(e.cfg.MaxRadius-e.cfg.BaseRadius)
}

// NodeRadius returns the drawn radius of n.
func (e *Encoder) NodeRadius(n *model.Node) float64 {
	if n.IsTarget {
		return e.cfg.TargetRadius
	}
	return e.Radius(n.Score)
}

// LinkWidth returns the stroke width for a link weight.
func (e *Encoder) LinkWidth(weight float64, toTarget bool) float64 {
	f := model.ClampScore(weight) / model.MaxScore
	var w float64
	switch e.cfg.WidthCurve {
	case WidthQuadratic:
		w = math.Max(e.cfg.MinWidth, f*f*e.cfg.MaxWidth)
	case WidthProportional:
		w = math.Max(e.cfg.MinWidth, f*e.cfg.MaxWidth)
	default:
		w = e.cfg.MinWidth + f*(e.cfg.MaxWidth-e.cfg.MinWidth)
	}
	if !toTarget {
		w = math.Max(e.cfg.MinInterWordWidth, w*e.cfg.InterWordWidthScale)
	}
	return w
}

// LinkOpacity returns the stroke opacity for a link weight.
func (e *Encoder) LinkOpacity(weight float64, toTarget bool) float64 {
	f := model.ClampScore(weight) / model.MaxScore
	o := e.cfg.MinOpacity + f*(e.cfg.MaxOpacity-e.cfg.MinOpacity)
	if !toTarget {
		o *= e.cfg.InterWordOpacityScale
	}
	return o
}

// LinkDistance returns the rest length of a link: shorter for stronger similarity.
func (e *Encoder) LinkDistance(weight float64) float64 {
	return math.Max(e.cfg.MinLinkDistance, (model.MaxScore-model.ClampScore(weight))*e.cfg.LinkDistanceScale)
}

// NodeStyle is everything a renderer needs to draw one node.
type NodeStyle struct {
	ID          string  `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Radius      float64 `json:"r"`
	Fill        string  `json:"fill"`
	Hue         float64 `json:"hue"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
	Opacity     float64 `json:"opacity"`
	Scale       float64 `json:"scale"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
	IsTarget    bool    `json:"isTarget"`
	IsNew       bool    `json:"isNew"`
	Pinned      bool    `json:"pinned"`
	Exiting     bool    `json:"exiting"`
}

// LinkStyle is everything a renderer needs to draw one link.
type LinkStyle struct {
	Key        string  `json:"key"`
	SourceID   string  `json:"source"`
	TargetID   string  `json:"target"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Width      float64 `json:"width"`
	Opacity    float64 `json:"opacity"`
	Weight     float64 `json:"weight"`
	IsToTarget bool    `json:"isToTarget"`
	Highlight  bool    `json:"highlight"`
	Exiting    bool    `json:"exiting"`
}

// NodeStyle computes the style of n at time now.
func (e *Encoder) NodeStyle(n *model.Node, now time.Time) NodeStyle {
	s := NodeStyle{
		ID:          n.ID,
		X:           n.Pos.X,
		Y:           n.Pos.Y,
		Radius:      e.NodeRadius(n),
		Stroke:      e.cfg.StrokeColor,
		StrokeWidth: e.cfg.StrokeWidth,
		Label:       n.ID,
		Score:       n.Score,
		IsTarget:    n.IsTarget,
		IsNew:       n.IsNew,
		Pinned:      n.Pinned(),
		Exiting:     n.Exiting(),
	}
	if n.IsTarget {
		s.Fill = e.cfg.TargetFill
		if n.ID == model.HiddenTargetID {
			s.Label = targetLabel
		}
	} else {
		c := e.Color(n.Score)
		s.Fill = c.String()
		s.Hue = c.H
	}
	if n.IsNew {
		s.StrokeWidth = e.cfg.NewStrokeWidth
	}
	s.Scale = e.presence(n.EnteredAt, n.ExitingSince, now)
	s.Opacity = s.Scale
	return s
}

// LinkStyle computes the style of l at time now; source and target are its endpoints.
func (e *Encoder) LinkStyle(l *model.Link, source, target *model.Node, now time.Time) LinkStyle {
	s := LinkStyle{
		Key:        l.Key(),
		SourceID:   l.SourceID,
		TargetID:   l.TargetID,
		Width:      e.LinkWidth(l.Weight, l.IsToTarget),
		Weight:     l.Weight,
		IsToTarget: l.IsToTarget,
		Exiting:    l.Exiting(),
	}
	if source != nil {
		s.X1, s.Y1 = source.Pos.X, source.Pos.Y
	}
	if target != nil {
		s.X2, s.Y2 = target.Pos.X, target.Pos.Y
		s.Highlight = l.IsToTarget && (target.IsNew || (source != nil && source.IsNew))
	}
	s.Opacity = e.LinkOpacity(l.Weight, l.IsToTarget) * e.presence(l.EnteredAt, l.ExitingSince, now)
	return s
}

// presence returns 0..1: rising over the enter transition, falling over the exit transition.
func (e *Encoder) presence(entered, exiting, now time.Time) float64 {
	d := e.cfg.Transition
	if d <= 0 {
		if !exiting.IsZero() {
			return 0
		}
		return 1
	}
	if !exiting.IsZero() {
		return 1 - progress(exiting, now, d)
	}
	if entered.IsZero() {
		return 1
	}
	return progress(entered, now, d)
}

func progress(since, now time.Time, d time.Duration) float64 {
	p := float64(now.Sub(since)) / float64(d)
	return math.Max(0, math.Min(1, p))
}
