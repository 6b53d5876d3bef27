// Package viewport holds the pure math mapping between screen pixels and
// canvas coordinates for a panned, zoomed view.
package viewport

// Default zoom bounds used by the web editor
const (
	DefaultMinScale = 0.1
	DefaultMaxScale = 5.0
)

// Limits zoom clamp range for a viewport
type Limits struct {
	MinScale float64
	MaxScale float64
}

// DefaultLimits returns the editor's standard zoom range
func DefaultLimits() Limits {
	return Limits{MinScale: DefaultMinScale, MaxScale: DefaultMaxScale}
}

// Clamp restricts scale to the configured range
func (l Limits) Clamp(scale float64) float64 {
	if scale < l.MinScale {
		return l.MinScale
	}
	if scale > l.MaxScale {
		return l.MaxScale
	}
	return scale
}

// Transform pan offset (screen pixels) plus zoom scale
type Transform struct {
	X     float64
	Y     float64
	Scale float64
}

// ToCanvas maps a screen position to canvas space
func (t Transform) ToCanvas(screenX, screenY float64) (float64, float64) {
	return (screenX - t.X) / t.Scale, (screenY - t.Y) / t.Scale
}

// ToScreen maps a canvas position to screen space
func (t Transform) ToScreen(canvasX, canvasY float64) (float64, float64) {
	return canvasX*t.Scale + t.X, canvasY*t.Scale + t.Y
}

// Pan shifts the viewport by a screen-space delta
func (t Transform) Pan(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ZoomAt applies a scale change anchored at a fixed screen position: the
// canvas point under (pointerX, pointerY) stays put. The requested scale is
// clamped before the pan recompute so the anchor math holds even at the
// clamp boundary.
func (t Transform) ZoomAt(newScale, pointerX, pointerY float64, limits Limits) Transform {
	clamped := limits.Clamp(newScale)
	factor := clamped / t.Scale

	return Transform{
		X:     pointerX - (pointerX-t.X)*factor,
		Y:     pointerY - (pointerY-t.Y)*factor,
		Scale: clamped,
	}
}
