// fonts.go - Font management with custom TTF support and embedded fallback font.
// Uses golang.org/x/image/font for OpenType rendering. Defaults to Go Bold
// when no custom font is specified or when custom font loading fails.
package compositor

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// FontManager handles font loading with fallback.
type FontManager struct {
	parsed *opentype.Font
	custom bool
}

// NewFontManager creates a font manager with the specified font.
// If customPath is empty or unreadable, uses the embedded Go Bold font.
func NewFontManager(customPath string, log *zap.Logger) (*FontManager, error) {
	if log == nil {
		log = zap.NewNop()
	}

	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err == nil {
			parsed, perr := opentype.Parse(data)
			if perr == nil {
				return &FontManager{parsed: parsed, custom: true}, nil
			}
			err = perr
		}
		log.Warn("custom font unavailable, using embedded Go Bold",
			zap.String("path", customPath), zap.Error(err))
	}

	parsed, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	return &FontManager{parsed: parsed}, nil
}

// Custom reports whether a user-supplied font is in use.
func (fm *FontManager) Custom() bool { return fm.custom }

// GetFace returns a font.Face at the specified size.
func (fm *FontManager) GetFace(size float64, dpi float64) (font.Face, error) {
	if dpi <= 0 {
		dpi = 72
	}

	face, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}

	return face, nil
}
