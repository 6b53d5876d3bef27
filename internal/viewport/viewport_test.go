package viewport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	limits := DefaultLimits()

	assert.Equal(t, 0.1, limits.Clamp(0.05))
	assert.Equal(t, 5.0, limits.Clamp(9.9))
	assert.Equal(t, 1.5, limits.Clamp(1.5))
	assert.Equal(t, 0.1, limits.Clamp(0.1))
	assert.Equal(t, 5.0, limits.Clamp(5.0))
}

func TestCoordinateRoundTrip(t *testing.T) {
	tr := Transform{X: 120, Y: -40, Scale: 2.5}

	cx, cy := tr.ToCanvas(300, 200)
	sx, sy := tr.ToScreen(cx, cy)

	assert.InDelta(t, 300, sx, 1e-9)
	assert.InDelta(t, 200, sy, 1e-9)
}

func TestPan(t *testing.T) {
	tr := Transform{X: 10, Y: 20, Scale: 1}
	moved := tr.Pan(-5, 15)

	assert.Equal(t, 5.0, moved.X)
	assert.Equal(t, 35.0, moved.Y)
	assert.Equal(t, 1.0, moved.Scale)
}

func TestZoomAtKeepsPointerAnchored(t *testing.T) {
	tr := Transform{X: 50, Y: 80, Scale: 1}
	pointerX, pointerY := 400.0, 300.0

	// The canvas point under the pointer before the zoom...
	beforeX, beforeY := tr.ToCanvas(pointerX, pointerY)

	zoomed := tr.ZoomAt(2, pointerX, pointerY, DefaultLimits())

	// ...must still be under the pointer after.
	afterX, afterY := zoomed.ToCanvas(pointerX, pointerY)
	assert.InDelta(t, beforeX, afterX, 1e-9)
	assert.InDelta(t, beforeY, afterY, 1e-9)
	assert.Equal(t, 2.0, zoomed.Scale)
}

func TestZoomAtClampsBeforePanRecompute(t *testing.T) {
	tr := Transform{X: 0, Y: 0, Scale: 4}

	zoomed := tr.ZoomAt(10, 500, 500, DefaultLimits())
	assert.Equal(t, 5.0, zoomed.Scale)

	// The pan must be derived from the clamped scale, so the anchor still
	// holds at the boundary.
	beforeX, beforeY := tr.ToCanvas(500, 500)
	afterX, afterY := zoomed.ToCanvas(500, 500)
	assert.InDelta(t, beforeX, afterX, 1e-9)
	assert.InDelta(t, beforeY, afterY, 1e-9)
}

func TestZoomAtLowerBound(t *testing.T) {
	tr := Transform{X: 0, Y: 0, Scale: 0.5}

	zoomed := tr.ZoomAt(0.01, 100, 100, DefaultLimits())
	assert.Equal(t, 0.1, zoomed.Scale)
}
