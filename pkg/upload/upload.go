// upload.go — Checks uploaded photos and logos before they reach the compositor.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

const (
	// MaxBytes is the default upload size limit.
	MaxBytes = 10 << 20
	// MaxPixels caps the declared width×height, since decoding allocates
	// by dimensions rather than by file size.
	MaxPixels = 40_000_000
)

var (
	ErrEmpty           = errors.New("upload is empty")
	ErrTooLarge        = errors.New("upload exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// Allowed lists the accepted MIME types.
var Allowed = []string{"image/jpeg", "image/png", "image/webp"}

// Info describes an accepted upload.
type Info struct {
	MIME      string `json:"mime"`
	Extension string `json:"extension"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Size      int    `json:"size"`
}

// Limits bound an upload. A zero field disables that check.
type Limits struct {
	MaxBytes  int64
	MaxPixels int64
}

// DefaultLimits returns MaxBytes and MaxPixels.
func DefaultLimits() Limits {
	return Limits{MaxBytes: MaxBytes, MaxPixels: MaxPixels}
}

// Validate checks data against DefaultLimits.
func Validate(data []byte) (Info, error) {
	return ValidateLimits(data, DefaultLimits())
}

// ValidateLimits sniffs the content type from the magic bytes, then reads the
// image header for its dimensions. The file name and any client-declared
// type are never trusted.
func ValidateLimits(data []byte, l Limits) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	if l.MaxBytes > 0 && int64(len(data)) > l.MaxBytes {
		return Info{}, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), l.MaxBytes)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return Info{}, fmt.Errorf("%w: unrecognized content", ErrUnsupportedType)
	}
	if !allowed(kind.MIME.Value) {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: read %s header: %w", ErrUnsupportedType, kind.Extension, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: image has no pixels", ErrUnsupportedType)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); l.MaxPixels > 0 && px > l.MaxPixels {
		return Info{}, fmt.Errorf("%w: %dx%d is %d pixels, limit %d",
			ErrTooLarge, cfg.Width, cfg.Height, px, l.MaxPixels)
	}

	return Info{
		MIME:      kind.MIME.Value,
		Extension: kind.Extension,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Size:      len(data),
	}, nil
}

// ReadLimited reads r up to limit bytes. It reads one byte past the limit so
// an oversize stream is reported as ErrTooLarge without buffering it whole.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: limit %d", ErrTooLarge, limit)
	}
	return data, nil
}

func allowed(mime string) bool {
	for _, m := range Allowed {
		if m == mime {
			return true
		}
	}
	return false
}
