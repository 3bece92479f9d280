// geometry.go — Mapping between source pixels and the circular photo area.
package compositor

import (
	"fmt"
	"math"
)

// Transform holds the user-controlled view parameters.
//
// Scale zooms in when > 1; the zero value means 1. OffsetX and OffsetY are
// normalized pan offsets in [-1, 1]; positive values move the photo right
// and down inside the circle.
type Transform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// DefaultTransform is the untransformed, centred view.
func DefaultTransform() Transform {
	return Transform{Scale: 1}
}

// Normalize fills the default scale, clamps the offsets and rejects scales
// that cannot produce a sampling window.
func (t Transform) Normalize() (Transform, error) {
	if t.Scale == 0 {
		t.Scale = 1
	}
	if math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) || t.Scale < 0 {
		return t, fmt.Errorf("%w: scale %v", ErrInvalidTransform, t.Scale)
	}
	t.OffsetX = clampUnit(t.OffsetX)
	t.OffsetY = clampUnit(t.OffsetY)
	return t, nil
}

// Rect is a square sampling window in source pixel space, relative to the
// source image's bounds origin.
type Rect struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

// SourceWindow computes the square region of a w×h source that is drawn
// into the photo circle.
//
// The window starts as the centred square of side min(w, h). Scale divides
// its side, so zooming in samples less of the source. The offsets displace
// the window by offset*side*PanFactor, opposite to the pan direction, so the
// window stays centred on the adjusted point.
func SourceWindow(w, h int, t Transform) Rect {
	scale := t.Scale
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}

	size := float64(min(w, h))
	side := size / scale

	dx := clampUnit(t.OffsetX) * side * PanFactor
	dy := clampUnit(t.OffsetY) * side * PanFactor

	return Rect{
		X:    (float64(w)-side)/2 - dx,
		Y:    (float64(h)-side)/2 - dy,
		Size: side,
	}
}

// destScale is the source-to-destination magnification for a window.
func (r Rect) destScale() float64 {
	return photoSide / r.Size
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
