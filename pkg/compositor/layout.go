// layout.go — Fixed frame geometry and the curved-text palette.
package compositor

import (
	"image/color"
	"strings"

	"github.com/xob0t/ProfileStencil/pkg/generator"
)

// Frame geometry, in destination pixels. The output is always CanvasSize square.
const (
	CanvasSize = 400
	Center     = CanvasSize / 2

	PhotoRadius = 182 // photo clip and ring centre line
	RingWidth   = 27

	BadgeX            = 306
	BadgeY            = 306
	BadgeRadius       = 53
	BadgeInnerRadius  = 49 // logo clip
	BadgeOutlineWidth = 3

	TextRadius   = 144
	TextFontSize = 22

	GlyphFontSize = 30
	FallbackGlyph = "EYV"
)

// Curved text layout. The span is a heuristic for the fixed font and size,
// not a measured-width layout.
const (
	ArcSpanDegrees     = 144.0
	LongTextThreshold  = 15
	LongTextSpanFactor = 1.5
)

// PanFactor maps a normalized offset in [-1, 1] to a displacement of the
// sampling window, as a fraction of the window side. Offset 1 moves the
// window by half its own size.
const PanFactor = 0.5

// DefaultTextPosition puts the message centred on top of the circle.
const DefaultTextPosition = 90.0

// BrandPurple is the ring, badge outline and fallback glyph colour.
const BrandPurple = "#5E2B97"

// photo inset: the square the sampling window is drawn into.
const (
	photoInset = Center - PhotoRadius
	photoSide  = 2 * PhotoRadius
)

// PaletteColor is one selectable curved-text colour.
type PaletteColor struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Palette lists the eight text colours offered to users.
var Palette = []PaletteColor{
	{"white", "#FFFFFF"},
	{"black", "#000000"},
	{"purple", BrandPurple},
	{"gold", "#F2B705"},
	{"red", "#D62839"},
	{"blue", "#1F6FEB"},
	{"green", "#1A7F37"},
	{"pink", "#E0569B"},
}

var brandColor = generator.ParseHexRGBA(BrandPurple)

// ResolveColor returns the palette colour for a name (case-insensitive) or a
// hex string. Anything else resolves to white.
func ResolveColor(s string) color.RGBA {
	s = strings.TrimSpace(s)
	for _, p := range Palette {
		if strings.EqualFold(p.Name, s) {
			return generator.ParseHexRGBA(p.Hex)
		}
	}
	return generator.ParseHexRGBA(s)
}
