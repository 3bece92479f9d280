// Package compositor renders branded circular profile pictures.
//
// A Compositor owns the decoded source photo and the badge asset. Each
// render crops the photo into a circle under a zoom/pan Transform, strokes
// the brand ring, draws the badge in the bottom-right corner and, when
// requested, a message along an arc. The result is a fresh 400×400 surface
// plus its PNG encoding.
//
// Construction is two-phase: New builds the value, Initialize loads the
// default badge. Renders call Initialize themselves, so the badge wait is
// paid once.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"

	"github.com/xob0t/ProfileStencil/assets"
	"github.com/xob0t/ProfileStencil/pkg/generator"
)

// Encoder serializes a rendered surface.
type Encoder func(w io.Writer, img image.Image) error

// Options are the render parameters for ProcessImage.
type Options struct {
	Transform Transform
	Text      *TextStyling // nil draws no text
}

// RenderResult is the output of one render.
type RenderResult struct {
	Surface *image.RGBA // fresh per render
	PNG     []byte      // independent of the Compositor
	Window  Rect        // sampled source region
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Compositor) {
		if log != nil {
			c.log = log
		}
	}
}

// WithAssetLoader replaces the default badge loader.
func WithAssetLoader(l AssetLoader) Option {
	return func(c *Compositor) {
		if l != nil {
			c.loader = l
		}
	}
}

// WithFontPath uses a custom TTF/OTF for the curved text and fallback glyph.
func WithFontPath(path string) Option {
	return func(c *Compositor) { c.fontPath = path }
}

// WithEncoder replaces the PNG encoder.
func WithEncoder(e Encoder) Option {
	return func(c *Compositor) {
		if e != nil {
			c.encode = e
		}
	}
}

// Compositor renders profile pictures. Calls are serialized internally;
// every render writes a fresh surface.
type Compositor struct {
	log      *zap.Logger
	loader   AssetLoader
	encode   Encoder
	fontPath string

	textFace  font.Face
	glyphFace font.Face

	initOnce sync.Once
	ready    chan struct{}

	mu         sync.Mutex
	badge      image.Image // nil: fallback glyph
	logoByUser bool
	source     image.Image
	preview    *image.RGBA
}

// New creates a Compositor. No asset is loaded until Initialize or the
// first render.
func New(opts ...Option) (*Compositor, error) {
	c := &Compositor{
		log:    zap.NewNop(),
		loader: BytesAssetLoader(assets.BadgePNG),
		encode: generator.EncodePNG,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	fm, err := NewFontManager(c.fontPath, c.log)
	if err != nil {
		return nil, err
	}
	c.log.Debug("fonts ready", zap.Bool("custom_font", fm.Custom()))
	if c.textFace, err = fm.GetFace(TextFontSize, 72); err != nil {
		return nil, err
	}
	if c.glyphFace, err = fm.GetFace(GlyphFontSize, 72); err != nil {
		return nil, err
	}

	c.preview = blankSurface()
	return c, nil
}

// Initialize loads the default badge. The loader runs once; later and
// concurrent callers wait for the same outcome. A failed load is logged and
// renders fall back to the text glyph; only ctx ending while waiting is an
// error.
func (c *Compositor) Initialize(ctx context.Context) error {
	c.initOnce.Do(func() {
		go c.loadDefaultBadge(context.WithoutCancel(ctx))
	})
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Compositor) loadDefaultBadge(ctx context.Context) {
	defer close(c.ready)

	img, err := c.loader(ctx)
	if err != nil {
		c.log.Warn("default badge unavailable, using glyph fallback", zap.Error(err))
		return
	}
	fitted := fitBadge(img)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logoByUser {
		return
	}
	c.badge = fitted
	c.log.Debug("default badge loaded",
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
}

// SetLogo replaces the badge for all later renders. The swap happens only
// after a full decode; on failure the previous badge stays.
func (c *Compositor) SetLogo(ctx context.Context, r io.Reader) error {
	img, err := decodeImage(r)
	if err != nil {
		c.log.Info("logo rejected", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrLogoDecode, err)
	}
	fitted := fitBadge(img)

	c.mu.Lock()
	c.badge = fitted
	c.logoByUser = true
	c.mu.Unlock()

	c.log.Info("logo replaced",
		zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return nil
}

// FallbackBadge reports whether renders currently draw the text glyph.
func (c *Compositor) FallbackBadge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.badge == nil
}

// ProcessImage decodes r, retains it as the source photo and renders it.
// A nil opts renders the default transform with no text.
//
// On decode failure the preview is left cleared and the previously
// retained source (if any) stays available to Reprocess.
func (c *Compositor) ProcessImage(ctx context.Context, r io.Reader, opts *Options) (*RenderResult, error) {
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}

	var o Options
	if opts != nil {
		o = *opts
	}
	t, err := o.Transform.Normalize()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.preview = blankSurface()

	src, err := decodeImage(r)
	if err != nil {
		c.log.Info("source decode failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	c.source = src

	b := src.Bounds()
	c.log.Debug("source decoded", zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))

	return c.render(src, t, o.Text)
}

// ProcessFile is ProcessImage over a file path. The file is closed before
// returning, whatever the outcome.
func (c *Compositor) ProcessFile(ctx context.Context, path string, opts *Options) (*RenderResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrDecode, path, err)
	}
	defer f.Close()
	return c.ProcessImage(ctx, f, opts)
}

// Reprocess re-renders the retained source under a new transform without
// decoding again. A nil text draws no text, the same as NoText.
func (c *Compositor) Reprocess(ctx context.Context, t Transform, text *TextStyling) (*RenderResult, error) {
	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	t, err := t.Normalize()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil, ErrNoSource
	}
	return c.render(c.source, t, text)
}

// StartOver drops the retained source and clears the preview.
func (c *Compositor) StartOver() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.source = nil
	c.preview = blankSurface()
}

// HasSource reports whether Reprocess can be called.
func (c *Compositor) HasSource() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source != nil
}

// Surface returns the latest preview. It is blank after StartOver or a
// failed decode. Callers must not modify it.
func (c *Compositor) Surface() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview
}

// DrawInto renders src onto dst, which must be CanvasSize square. It does
// not touch the retained source or the preview, and does not encode.
func (c *Compositor) DrawInto(ctx context.Context, dst *image.RGBA, src image.Image, t Transform, text *TextStyling) (Rect, error) {
	if dst.Bounds().Dx() != CanvasSize || dst.Bounds().Dy() != CanvasSize {
		return Rect{}, ErrSurfaceSize
	}
	if err := c.Initialize(ctx); err != nil {
		return Rect{}, err
	}
	t, err := t.Normalize()
	if err != nil {
		return Rect{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compose(dst, src, t, text), nil
}

// render draws into a fresh surface and encodes it. c.mu must be held.
func (c *Compositor) render(src image.Image, t Transform, text *TextStyling) (*RenderResult, error) {
	surface := blankSurface()
	win := c.compose(surface, src, t, text)

	var buf bytes.Buffer
	if err := c.encode(&buf, surface); err != nil {
		c.log.Error("encode failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	c.preview = surface
	return &RenderResult{Surface: surface, PNG: buf.Bytes(), Window: win}, nil
}

// compose draws the full stack onto dst: photo, ring, badge, text.
// c.mu must be held.
func (c *Compositor) compose(dst *image.RGBA, src image.Image, t Transform, text *TextStyling) Rect {
	dc := gg.NewContextForRGBA(dst)
	dc.Clear()

	b := src.Bounds()
	win := SourceWindow(b.Dx(), b.Dy(), t)
	drawPhoto(dc, src, win)

	// The ring is centred on the clip edge, covering any fringe.
	dc.SetColor(brandColor)
	dc.SetLineWidth(RingWidth)
	dc.DrawCircle(Center, Center, PhotoRadius)
	dc.Stroke()

	c.drawBadge(dc, c.badge)

	if text != nil {
		if msg, ok := text.Text.Get(); ok && msg != "" {
			placements := LayoutArc(msg, Center, Center, TextRadius, text.Position)
			drawArcText(dc, c.textFace, placements, text.Color)
		}
	}
	return win
}

// drawPhoto maps win onto the inset square inside the photo circle.
func drawPhoto(dc *gg.Context, src image.Image, win Rect) {
	b := src.Bounds()
	k := win.destScale()

	dc.DrawCircle(Center, Center, PhotoRadius)
	dc.Clip()

	dc.Push()
	dc.Translate(photoInset, photoInset)
	dc.Scale(k, k)
	dc.Translate(-win.X, -win.Y)
	dc.DrawImage(src, -b.Min.X, -b.Min.Y)
	dc.Pop()

	dc.ResetClip()
}

func blankSurface() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
}
