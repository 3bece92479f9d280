package compositor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceWindowCentersSquareCrop(t *testing.T) {
	tests := []struct {
		name string
		w, h int
		want Rect
	}{
		{"landscape", 1000, 600, Rect{X: 200, Y: 0, Size: 600}},
		{"portrait", 600, 1000, Rect{X: 0, Y: 200, Size: 600}},
		{"square", 500, 500, Rect{X: 0, Y: 0, Size: 500}},
		{"odd", 301, 100, Rect{X: 100.5, Y: 0, Size: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SourceWindow(tt.w, tt.h, DefaultTransform())
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Size, got.Size, 1e-9)

			size := float64(min(tt.w, tt.h))
			assert.InDelta(t, math.Max(0, (float64(tt.w)-size)/2), got.X, 1e-9)
			assert.InDelta(t, math.Max(0, (float64(tt.h)-size)/2), got.Y, 1e-9)
		})
	}
}

func TestSourceWindowScaleIsMonotonic(t *testing.T) {
	prev := math.Inf(1)
	for s := 0.05; s < 20; s *= 1.3 {
		got := SourceWindow(1000, 600, Transform{Scale: s})
		assert.Less(t, got.Size, prev, "scale %v", s)
		assert.InDelta(t, 600/s, got.Size, 1e-9)
		prev = got.Size
	}
}

func TestSourceWindowZoomStaysCentered(t *testing.T) {
	got := SourceWindow(1000, 600, Transform{Scale: 2})
	assert.InDelta(t, 300, got.Size, 1e-9)
	assert.InDelta(t, 500, got.X+got.Size/2, 1e-9)
	assert.InDelta(t, 300, got.Y+got.Size/2, 1e-9)
}

func TestSourceWindowOffsets(t *testing.T) {
	// Positive offsets move the photo right/down, so the window moves left/up.
	got := SourceWindow(1000, 600, Transform{Scale: 1, OffsetX: 0.5, OffsetY: -0.5})
	assert.InDelta(t, 200-150, got.X, 1e-9)
	assert.InDelta(t, 0+150, got.Y, 1e-9)
	assert.InDelta(t, 600, got.Size, 1e-9)

	clamped := SourceWindow(1000, 600, Transform{Scale: 1, OffsetX: 7})
	full := SourceWindow(1000, 600, Transform{Scale: 1, OffsetX: 1})
	assert.Equal(t, full, clamped)
}

func TestTransformNormalize(t *testing.T) {
	got, err := Transform{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Scale)

	got, err = Transform{Scale: 2, OffsetX: -3, OffsetY: math.NaN()}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Transform{Scale: 2, OffsetX: -1, OffsetY: 0}, got)

	for _, s := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := Transform{Scale: s}.Normalize()
		assert.ErrorIs(t, err, ErrInvalidTransform, "scale %v", s)
	}
}
