// png.go — PNG and JPEG encoders.
package generator

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
)

// DefaultJPEGQuality is used when Config.Quality is unset.
const DefaultJPEGQuality = 92

var pngEncoder = png.Encoder{CompressionLevel: png.DefaultCompression}

// EncodePNG writes img to w as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("encode PNG: nil image")
	}
	if err := pngEncoder.Encode(w, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	return nil
}

// PNGBytes encodes img into a fresh byte slice owned by the caller.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeJPEG writes img to w as JPEG. Transparent pixels are flattened onto
// white first, since JPEG has no alpha channel.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if err := jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("encode JPEG: %w", err)
	}
	return nil
}

// writeFile creates output and streams the encoded image into it.
func writeFile(output string, encode func(io.Writer) error) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(output)
		return err
	}
	return f.Close()
}
