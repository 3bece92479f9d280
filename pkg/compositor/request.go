package compositor

// Request is the JSON form of the render parameters sent by the web UI,
// both to the HTTP API and to the WASM bridge. Text uses the boundary
// convention: "" and "none" draw nothing.
type Request struct {
	Scale    float64  `json:"scale"`
	OffsetX  float64  `json:"offsetX"`
	OffsetY  float64  `json:"offsetY"`
	Text     string   `json:"text"`
	Color    string   `json:"color"`
	Position *float64 `json:"position,omitempty"`
}

// Options converts q. A missing position means DefaultTextPosition and a
// missing colour means white.
func (q Request) Options() *Options {
	styling := DefaultTextStyling()
	styling.Text = ParseText(q.Text)
	if q.Color != "" {
		styling.Color = q.Color
	}
	if q.Position != nil {
		styling.Position = *q.Position
	}
	return &Options{
		Transform: Transform{Scale: q.Scale, OffsetX: q.OffsetX, OffsetY: q.OffsetY},
		Text:      &styling,
	}
}
