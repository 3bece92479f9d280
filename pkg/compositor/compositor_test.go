package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xob0t/ProfileStencil/pkg/generator"
)

var (
	red   = color.RGBA{R: 220, A: 255}
	green = color.RGBA{G: 200, A: 255}
	blue  = color.RGBA{B: 220, A: 255}
)

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	b, err := generator.PNGBytes(img)
	require.NoError(t, err)
	return b
}

// bands returns a w×h image whose centred min(w,h) square is green and
// whose side margins are red.
func bands(w, h int) *image.RGBA {
	img := generator.NewSolidImage(w, h, red)
	side := min(w, h)
	x0 := (w - side) / 2
	for y := 0; y < h; y++ {
		for x := x0; x < x0+side; x++ {
			img.SetRGBA(x, y, green)
		}
	}
	return img
}

func solidLoader(c color.Color) AssetLoader {
	return func(context.Context) (image.Image, error) {
		return generator.NewSolidImage(64, 64, c), nil
	}
}

func failingLoader(context.Context) (image.Image, error) {
	return nil, errors.New("badge missing")
}

func newCompositor(t *testing.T, opts ...Option) *Compositor {
	t.Helper()
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func near(a, b color.RGBA, tol int) bool {
	d := func(x, y uint8) bool { return math.Abs(float64(x)-float64(y)) <= float64(tol) }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}

// anyNear reports whether some pixel within r of (cx, cy) is close to want.
func anyNear(img *image.RGBA, cx, cy, r int, want color.RGBA, tol int) bool {
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) > r*r {
				continue
			}
			if near(img.RGBAAt(x, y), want, tol) {
				return true
			}
		}
	}
	return false
}

func TestProcessImageEndToEnd(t *testing.T) {
	c := newCompositor(t)
	require.NoError(t, c.Initialize(context.Background()))
	assert.False(t, c.FallbackBadge(), "embedded badge should decode")

	res, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(1000, 600))), nil)
	require.NoError(t, err)

	assert.Equal(t, Rect{X: 200, Y: 0, Size: 600}, res.Window)

	decoded, err := png.Decode(bytes.NewReader(res.PNG))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, CanvasSize, CanvasSize), decoded.Bounds())

	s := res.Surface
	// Photo centre comes from the green centre square.
	assert.True(t, near(s.RGBAAt(200, 200), green, 2), "got %v", s.RGBAAt(200, 200))
	// Left edge of the circle still samples inside the square crop.
	assert.True(t, near(s.RGBAAt(60, 200), green, 2), "got %v", s.RGBAAt(60, 200))
	// Ring.
	assert.True(t, near(s.RGBAAt(200, 200-PhotoRadius), brandColor, 2), "got %v", s.RGBAAt(200, 18))
	// Badge outline.
	assert.True(t, near(s.RGBAAt(BadgeX, BadgeY-BadgeRadius), brandColor, 10))
	// Outside the ring stays transparent.
	assert.Equal(t, uint8(0), s.RGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), s.RGBAAt(399, 0).A)

	assert.Same(t, s, c.Surface())
	assert.True(t, c.HasSource())
}

func TestReprocessIsDeterministic(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(640, 480))), nil)
	require.NoError(t, err)

	tr := Transform{Scale: 1.7, OffsetX: 0.2, OffsetY: -0.4}
	text := &TextStyling{Text: TextOf("Every voice counts"), Color: "gold", Position: 90}

	a, err := c.Reprocess(context.Background(), tr, text)
	require.NoError(t, err)
	b, err := c.Reprocess(context.Background(), tr, text)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(a.PNG, b.PNG))
	assert.NotSame(t, a.Surface, b.Surface, "each render gets a fresh surface")
}

func TestNoTextVariantsAgree(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(500, 500))), nil)
	require.NoError(t, err)

	ctx := context.Background()
	tr := DefaultTransform()

	none, err := c.Reprocess(ctx, tr, nil)
	require.NoError(t, err)
	explicit, err := c.Reprocess(ctx, tr, &TextStyling{Text: NoText(), Color: "red"})
	require.NoError(t, err)
	sentinel, err := c.Reprocess(ctx, tr, &TextStyling{Text: ParseText("none"), Color: "red"})
	require.NoError(t, err)
	empty, err := c.Reprocess(ctx, tr, &TextStyling{Text: TextOf(""), Color: "red"})
	require.NoError(t, err)
	withText, err := c.Reprocess(ctx, tr, &TextStyling{Text: TextOf("none"), Color: "red"})
	require.NoError(t, err)

	assert.Equal(t, none.PNG, explicit.PNG)
	assert.Equal(t, none.PNG, sentinel.PNG)
	assert.Equal(t, none.PNG, empty.PNG)
	assert.NotEqual(t, none.PNG, withText.PNG)
}

func TestTextIsDrawnAtPosition(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(500, 500))), nil)
	require.NoError(t, err)

	plain, err := c.Reprocess(context.Background(), DefaultTransform(), nil)
	require.NoError(t, err)
	top, err := c.Reprocess(context.Background(), DefaultTransform(),
		&TextStyling{Text: TextOf("HELLO"), Color: "gold", Position: 90})
	require.NoError(t, err)

	diff := func(x0, y0, x1, y1 int) int {
		n := 0
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				if plain.Surface.RGBAAt(x, y) != top.Surface.RGBAAt(x, y) {
					n++
				}
			}
		}
		return n
	}

	assert.Greater(t, diff(120, 35, 280, 80), 20, "text should appear on top")
	assert.Zero(t, diff(150, 320, 250, 370), "bottom should be untouched")
}

func TestZoomChangesRender(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(1000, 600))), nil)
	require.NoError(t, err)

	zoomed, err := c.Reprocess(context.Background(), Transform{Scale: 3}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 200, zoomed.Window.Size, 1e-9)
	assert.True(t, near(zoomed.Surface.RGBAAt(60, 200), green, 2))

	out, err := c.Reprocess(context.Background(), Transform{Scale: 0.5}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1200, out.Window.Size, 1e-9)
	// Zooming out past the crop reaches the red margins.
	assert.True(t, near(out.Surface.RGBAAt(60, 200), red, 2), "got %v", out.Surface.RGBAAt(60, 200))
}

func TestPanMovesPhoto(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(1000, 600))), nil)
	require.NoError(t, err)

	res, err := c.Reprocess(context.Background(), Transform{Scale: 1, OffsetX: 0.5}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 50, res.Window.X, 1e-9)
	// Photo moved right: the left of the circle now shows the red margin.
	assert.True(t, near(res.Surface.RGBAAt(60, 200), red, 2), "got %v", res.Surface.RGBAAt(60, 200))
	assert.True(t, near(res.Surface.RGBAAt(340, 200), green, 2))
}

func TestReprocessWithoutSource(t *testing.T) {
	c := newCompositor(t)
	_, err := c.Reprocess(context.Background(), DefaultTransform(), nil)
	assert.ErrorIs(t, err, ErrNoSource)
	assert.False(t, c.HasSource())

	_, err = c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(300, 300))), nil)
	require.NoError(t, err)
	_, err = c.Reprocess(context.Background(), DefaultTransform(), nil)
	require.NoError(t, err)

	c.StartOver()
	assert.False(t, c.HasSource())
	assert.Equal(t, blankSurface().Pix, c.Surface().Pix)
	_, err = c.Reprocess(context.Background(), DefaultTransform(), nil)
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestDecodeFailureKeepsPreviousSource(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(300, 300))), nil)
	require.NoError(t, err)

	_, err = c.ProcessImage(context.Background(), bytes.NewReader([]byte("definitely not an image")), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	assert.Equal(t, blankSurface().Pix, c.Surface().Pix, "preview is cleared")
	assert.True(t, c.HasSource())
	_, err = c.Reprocess(context.Background(), DefaultTransform(), nil)
	assert.NoError(t, err)
}

func TestEncodeFailure(t *testing.T) {
	c := newCompositor(t, WithEncoder(func(io.Writer, image.Image) error {
		return errors.New("disk full")
	}))
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(300, 300))), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
	assert.Contains(t, err.Error(), "failed to create output blob")
	assert.Contains(t, err.Error(), "disk full")
}

func TestInvalidTransform(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(300, 300))), nil)
	require.NoError(t, err)

	_, err = c.Reprocess(context.Background(), Transform{Scale: -2}, nil)
	assert.ErrorIs(t, err, ErrInvalidTransform)

	_, err = c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(300, 300))),
		&Options{Transform: Transform{Scale: math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidTransform)
	assert.True(t, c.HasSource())
}

func TestFallbackBadge(t *testing.T) {
	c := newCompositor(t, WithAssetLoader(failingLoader))

	res, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, generator.NewSolidImage(400, 400, green))), nil)
	require.NoError(t, err, "a missing badge must not fail the render")
	assert.True(t, c.FallbackBadge())

	// The glyph is drawn in brand purple inside the white disc.
	assert.True(t, anyNear(res.Surface, BadgeX, BadgeY, 40, brandColor, 12))
	assert.True(t, anyNear(res.Surface, BadgeX, BadgeY, 40, color.RGBA{255, 255, 255, 255}, 0))
}

func TestLogoBadge(t *testing.T) {
	c := newCompositor(t, WithAssetLoader(solidLoader(red)))

	res, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, generator.NewSolidImage(400, 400, green))), nil)
	require.NoError(t, err)
	assert.False(t, c.FallbackBadge())
	assert.True(t, near(res.Surface.RGBAAt(BadgeX, BadgeY), red, 3), "got %v", res.Surface.RGBAAt(BadgeX, BadgeY))
	assert.False(t, anyNear(res.Surface, BadgeX, BadgeY, 40, brandColor, 12))
}

func TestSetLogo(t *testing.T) {
	c := newCompositor(t, WithAssetLoader(failingLoader))
	ctx := context.Background()
	require.NoError(t, c.Initialize(ctx))
	require.True(t, c.FallbackBadge())

	err := c.SetLogo(ctx, bytes.NewReader([]byte("garbage")))
	assert.ErrorIs(t, err, ErrLogoDecode)
	assert.True(t, c.FallbackBadge(), "failed logo keeps the previous badge")

	require.NoError(t, c.SetLogo(ctx, bytes.NewReader(encode(t, generator.NewSolidImage(30, 60, blue)))))
	assert.False(t, c.FallbackBadge())

	res, err := c.ProcessImage(ctx, bytes.NewReader(encode(t, generator.NewSolidImage(400, 400, green))), nil)
	require.NoError(t, err)
	assert.True(t, near(res.Surface.RGBAAt(BadgeX, BadgeY), blue, 3))
	// A tall logo is letterboxed: the sides of the inner circle stay white.
	assert.True(t, near(res.Surface.RGBAAt(BadgeX-40, BadgeY), color.RGBA{255, 255, 255, 255}, 3))
}

func TestSetLogoBeatsSlowDefault(t *testing.T) {
	release := make(chan struct{})
	c := newCompositor(t, WithAssetLoader(func(ctx context.Context) (image.Image, error) {
		<-release
		return generator.NewSolidImage(64, 64, blue), nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Initialize(ctx), context.Canceled)

	require.NoError(t, c.SetLogo(context.Background(), bytes.NewReader(encode(t, generator.NewSolidImage(64, 64, red)))))
	close(release)

	waitCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	require.NoError(t, c.Initialize(waitCtx))

	res, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, generator.NewSolidImage(400, 400, green))), nil)
	require.NoError(t, err)
	assert.True(t, near(res.Surface.RGBAAt(BadgeX, BadgeY), red, 3))
}

func TestLoaderRunsOnce(t *testing.T) {
	var calls atomic.Int32
	c := newCompositor(t, WithAssetLoader(func(context.Context) (image.Image, error) {
		calls.Add(1)
		return generator.NewSolidImage(10, 10, blue), nil
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Initialize(context.Background()))
		}()
	}
	wg.Wait()

	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(200, 200))), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConcurrentRendersAreSerialized(t *testing.T) {
	c := newCompositor(t)
	_, err := c.ProcessImage(context.Background(), bytes.NewReader(encode(t, bands(640, 480))), nil)
	require.NoError(t, err)

	want, err := c.Reprocess(context.Background(), Transform{Scale: 2}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Reprocess(context.Background(), Transform{Scale: 2}, nil)
			if assert.NoError(t, err) {
				assert.Equal(t, want.PNG, got.PNG)
			}
		}()
	}
	wg.Wait()
}

func TestProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, encode(t, bands(800, 600)), 0o644))

	c := newCompositor(t)
	res, err := c.ProcessFile(context.Background(), path, &Options{Transform: DefaultTransform()})
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 100, Y: 0, Size: 600}, res.Window)

	_, err = c.ProcessFile(context.Background(), filepath.Join(t.TempDir(), "missing.png"), nil)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFileAssetLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badge.png")
	require.NoError(t, os.WriteFile(path, encode(t, generator.NewSolidImage(20, 20, red)), 0o644))

	c := newCompositor(t, WithAssetLoader(FileAssetLoader(path)))
	require.NoError(t, c.Initialize(context.Background()))
	assert.False(t, c.FallbackBadge())

	missing := newCompositor(t, WithAssetLoader(FileAssetLoader(path+".nope")))
	require.NoError(t, missing.Initialize(context.Background()))
	assert.True(t, missing.FallbackBadge())
}

func TestDrawInto(t *testing.T) {
	c := newCompositor(t)

	_, err := c.DrawInto(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 100)), bands(10, 10), DefaultTransform(), nil)
	assert.ErrorIs(t, err, ErrSurfaceSize)

	dst := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	win, err := c.DrawInto(context.Background(), dst, bands(1000, 600), DefaultTransform(), nil)
	require.NoError(t, err)
	assert.Equal(t, Rect{X: 200, Y: 0, Size: 600}, win)
	assert.True(t, near(dst.RGBAAt(200, 200), green, 2))
	assert.False(t, c.HasSource(), "DrawInto does not retain the source")
}
