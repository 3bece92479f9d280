// badge.go — Badge asset loading, fitting and drawing.
package compositor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// AssetLoader produces the default badge image. It is called once per
// Compositor, from Initialize.
type AssetLoader func(ctx context.Context) (image.Image, error)

// FileAssetLoader loads the badge from a file path.
func FileAssetLoader(path string) AssetLoader {
	return func(ctx context.Context) (image.Image, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open badge %s: %w", path, err)
		}
		defer f.Close()
		return decodeImage(f)
	}
}

// BytesAssetLoader decodes the badge from an in-memory encoded image.
func BytesAssetLoader(data []byte) AssetLoader {
	return func(ctx context.Context) (image.Image, error) {
		if len(data) == 0 {
			return nil, fmt.Errorf("badge asset is empty")
		}
		return decodeImage(bytes.NewReader(data))
	}
}

// decodeImage decodes JPEG, PNG or WEBP and applies EXIF orientation so
// phone photos come out upright.
func decodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("image has no pixels")
	}
	return img, nil
}

// fitBadge scales img to fit inside the badge's inner circle, keeping its
// aspect ratio. Done once per asset so renders only blit it.
func fitBadge(img image.Image) image.Image {
	b := img.Bounds()
	side := float64(2 * BadgeInnerRadius)
	k := side / float64(max(b.Dx(), b.Dy()))
	w := max(uint(float64(b.Dx())*k+0.5), 1)
	h := max(uint(float64(b.Dy())*k+0.5), 1)
	return resize.Resize(w, h, img, resize.Lanczos3)
}

// drawBadge draws the white disc, its outline, and the logo (or the
// fallback glyph) clipped to the inner circle.
func (c *Compositor) drawBadge(dc *gg.Context, logo image.Image) {
	dc.SetColor(color.White)
	dc.DrawCircle(BadgeX, BadgeY, BadgeRadius)
	dc.FillPreserve()
	dc.SetColor(brandColor)
	dc.SetLineWidth(BadgeOutlineWidth)
	dc.Stroke()

	dc.DrawCircle(BadgeX, BadgeY, BadgeInnerRadius)
	dc.Clip()
	if logo != nil {
		dc.DrawImageAnchored(logo, BadgeX, BadgeY, 0.5, 0.5)
	} else {
		dc.SetFontFace(c.glyphFace)
		dc.SetColor(brandColor)
		dc.DrawStringAnchored(FallbackGlyph, BadgeX, BadgeY, 0.5, 0.5)
	}
	dc.ResetClip()
}
