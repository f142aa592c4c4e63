package sink

import (
	"encoding/json"

	"github.com/matzehuels/pagestrip/pkg/strip"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	style    *strip.Style
	offset   *strip.Point
	viewport float64
	indent   bool
}

// WithJSONStyle records the style and flags the focus item.
func WithJSONStyle(s strip.Style) JSONOption { return func(r *jsonRenderer) { r.style = &s } }

// WithJSONViewport records the viewport the strip is shown in.
func WithJSONViewport(offset strip.Point, width float64) JSONOption {
	return func(r *jsonRenderer) { r.offset = &offset; r.viewport = width }
}

// WithJSONIndent pretty-prints the output.
func WithJSONIndent() JSONOption { return func(r *jsonRenderer) { r.indent = true } }

// Output is the JSON document written by RenderJSON.
type Output struct {
	ContentWidth  float64      `json:"content_width"`
	ContentHeight float64      `json:"content_height"`
	ExpandedWidth *float64     `json:"expanded_width,omitempty"`
	Style         *strip.Style `json:"style,omitempty"`
	Viewport      *Viewport    `json:"viewport,omitempty"`
	Items         []Item       `json:"items"`
}

// Viewport is the visible window over the content.
type Viewport struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
}

// Item is one item's frame.
type Item struct {
	Index  int     `json:"index"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Focus  bool    `json:"focus,omitempty"`
}

// NewOutput converts a result into its JSON form.
func NewOutput(res strip.Result, opts ...JSONOption) Output {
	var r jsonRenderer
	for _, opt := range opts {
		opt(&r)
	}
	return r.output(res)
}

func (r jsonRenderer) output(res strip.Result) Output {
	out := Output{
		ContentWidth:  res.ContentWidth(),
		ContentHeight: res.ContentHeight(),
		Style:         r.style,
		Items:         make([]Item, 0, res.Len()),
	}
	if w, ok := res.ExpandedWidth(); ok {
		out.ExpandedWidth = &w
	}
	if r.offset != nil {
		out.Viewport = &Viewport{X: r.offset.X, Y: r.offset.Y, Width: r.viewport}
	}

	focus := -1
	if r.style != nil {
		if i, ok := r.style.FocusIndex(); ok {
			focus = i
		}
	}
	for _, g := range res.Geometries() {
		out.Items = append(out.Items, Item{
			Index:  g.Index,
			X:      g.X,
			Y:      g.Y,
			Width:  g.Width,
			Height: g.Height,
			Focus:  g.Index == focus,
		})
	}
	return out
}

// RenderJSON encodes a result's frames as JSON.
func RenderJSON(res strip.Result, opts ...JSONOption) ([]byte, error) {
	var r jsonRenderer
	for _, opt := range opts {
		opt(&r)
	}
	out := r.output(res)
	if r.indent {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}
