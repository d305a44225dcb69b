package interaction

import (
	"math"

	"github.com/okian/wordgraph/internal/domain/model"
)

// Transform is the paint-time view transform: screen = world·K + (X, Y).
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity returns the transform that leaves coordinates unchanged.
func Identity() Transform { return Transform{K: 1} }

// Finite reports whether every component is a real number.
func (t Transform) Finite() bool {
	return model.Vec{X: t.X, Y: t.Y}.Finite() && !math.IsNaN(t.K) && !math.IsInf(t.K, 0)
}

// Apply maps a world point to the screen.
func (t Transform) Apply(p model.Vec) model.Vec {
	return model.Vec{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert maps a screen point back to world coordinates.
func (t Transform) Invert(p model.Vec) model.Vec {
	if t.K == 0 {
		return p
	}
	return model.Vec{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}
