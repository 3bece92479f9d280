// Package generator encodes rendered profile pictures to files or writers.
//
// All output follows one pipeline: the compositor produces an image.Image,
// and this package writes it as PNG (lossless, keeps the transparent corners)
// or JPEG (flattened onto white).
package generator

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"path/filepath"
	"strings"
)

// Config holds parameters for output generation.
type Config struct {
	Image   image.Image // Rendered image (required)
	Quality int         // JPEG quality 1-100 (default: DefaultJPEGQuality)
}

// Generate writes an output file. The format is inferred from the file extension:
//   - ".png"          → PNG image
//   - ".jpg", ".jpeg" → JPEG image
func Generate(output string, cfg Config) error {
	if cfg.Image == nil {
		return fmt.Errorf("generate %s: no image", output)
	}
	return writeFile(output, func(w io.Writer) error {
		return GenerateToWriter(w, filepath.Ext(output), cfg)
	})
}

// GenerateToWriter writes media to an io.Writer. The format is specified by ext.
// This is useful for in-memory generation (e.g., WASM or HTTP responses).
func GenerateToWriter(w io.Writer, ext string, cfg Config) error {
	if cfg.Image == nil {
		return fmt.Errorf("generate: no image")
	}

	switch strings.ToLower(ext) {
	case ".png", "png":
		return EncodePNG(w, cfg.Image)
	case ".jpg", ".jpeg", "jpg", "jpeg":
		return EncodeJPEG(w, cfg.Image, cfg.Quality)
	default:
		return fmt.Errorf("unsupported format %q: use .png or .jpg", ext)
	}
}

// ContentType returns the MIME type for a supported output extension.
func ContentType(ext string) string {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "jpg", "jpeg":
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// flatten composites img over an opaque white background.
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	out := NewSolidImage(b.Dx(), b.Dy(), color.White)
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Over)
	return out
}
