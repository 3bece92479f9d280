// text.go — Curved message text: the text option type and arc layout.
package compositor

import (
	"math"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

// NoneSentinel is the value UI callers send to mean "no curved text".
// It is mapped to NoText at the boundary by ParseText and never reaches
// the layout code.
const NoneSentinel = "none"

// Text is an optional curved message. The zero value is NoText.
type Text struct {
	value string
	set   bool
}

// NoText draws no message.
func NoText() Text { return Text{} }

// TextOf draws s along the arc. An empty s draws nothing.
func TextOf(s string) Text { return Text{value: s, set: true} }

// ParseText maps a boundary string to Text: "" and NoneSentinel
// (case-insensitive) mean NoText, anything else is literal text.
func ParseText(s string) Text {
	if strings.TrimSpace(s) == "" || strings.EqualFold(strings.TrimSpace(s), NoneSentinel) {
		return NoText()
	}
	return TextOf(s)
}

// Get returns the message and whether one is set.
func (t Text) Get() (string, bool) { return t.value, t.set }

// String returns the message, or NoneSentinel when unset.
func (t Text) String() string {
	if !t.set {
		return NoneSentinel
	}
	return t.value
}

// TextStyling describes the curved message for one render.
type TextStyling struct {
	Text     Text
	Color    string  // palette name or hex
	Position float64 // degrees; 0 = right, 90 = top, counter-clockwise
}

// DefaultTextStyling returns NoText in white on top of the circle.
func DefaultTextStyling() TextStyling {
	return TextStyling{Color: "white", Position: DefaultTextPosition}
}

// GlyphPlacement is one character slot on the arc.
type GlyphPlacement struct {
	Rune     rune
	X, Y     float64 // glyph centre in canvas pixels
	Angle    float64 // canvas angle (radians, clockwise from +x)
	Rotation float64 // glyph rotation (radians)
}

// Visible reports whether the slot is drawn. Whitespace only takes up room.
func (g GlyphPlacement) Visible() bool {
	return !unicode.IsSpace(g.Rune)
}

// ArcSpan returns the total arc, in degrees, used for n characters.
func ArcSpan(n int) float64 {
	if n > LongTextThreshold {
		return ArcSpanDegrees * LongTextSpanFactor
	}
	return ArcSpanDegrees
}

// LayoutArc places each rune of text on a circle of the given radius,
// centred on positionDeg. Glyphs are rotated a quarter turn past their
// angle so they read tangentially, upright on the top of the circle.
func LayoutArc(text string, cx, cy, radius, positionDeg float64) []GlyphPlacement {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	// Canvas y grows downwards, so the counter-clockwise position is negated.
	mid := gg.Radians(-positionDeg)
	start, step := mid, 0.0
	if n > 1 {
		span := gg.Radians(ArcSpan(n))
		step = span / float64(n-1)
		start = mid - span/2
	}

	out := make([]GlyphPlacement, 0, n)
	for i, r := range runes {
		a := start + float64(i)*step
		out = append(out, GlyphPlacement{
			Rune:     r,
			X:        cx + radius*math.Cos(a),
			Y:        cy + radius*math.Sin(a),
			Angle:    a,
			Rotation: a + math.Pi/2,
		})
	}
	return out
}

// drawArcText renders the placements one glyph at a time. Each glyph gets
// its own Push/Pop so rotations never accumulate.
func drawArcText(dc *gg.Context, face font.Face, placements []GlyphPlacement, col string) {
	dc.SetFontFace(face)
	dc.SetColor(ResolveColor(col))
	for _, g := range placements {
		if !g.Visible() {
			continue
		}
		dc.Push()
		dc.Translate(g.X, g.Y)
		dc.Rotate(g.Rotation)
		dc.DrawStringAnchored(string(g.Rune), 0, 0, 0.5, 0.5)
		dc.Pop()
	}
}
