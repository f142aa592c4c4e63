package sink

import (
	"bytes"
	"fmt"
	"math"

	"github.com/matzehuels/pagestrip/pkg/strip"
)

// Colors shared by the SVG and PNG renderers.
const (
	colorBackground = "#ffffff"
	colorItem       = "#c9ced6"
	colorFocus      = "#2a9d8f"
	colorViewport   = "#e76f51"
	colorLabel      = "#3d4451"
)

// DrawOption configures the SVG and PNG renderers.
type DrawOption func(*drawing)

type drawing struct {
	style    strip.Style
	offset   strip.Point
	viewport float64
	window   bool
	labels   bool
	padding  float64
}

// WithStyle highlights the style's focus item.
func WithStyle(s strip.Style) DrawOption { return func(d *drawing) { d.style = s } }

// WithViewport outlines the window of the given width at offset.
func WithViewport(offset strip.Point, width float64) DrawOption {
	return func(d *drawing) { d.offset = offset; d.viewport = width; d.window = true }
}

// WithLabels writes each item's index under its frame.
func WithLabels() DrawOption { return func(d *drawing) { d.labels = true } }

// WithPadding sets the margin around the drawing (default 4).
func WithPadding(p float64) DrawOption {
	return func(d *drawing) {
		if p >= 0 {
			d.padding = p
		}
	}
}

func newDrawing(opts ...DrawOption) drawing {
	d := drawing{padding: 4}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

const labelHeight = 12

// bounds returns the drawn area in content coordinates.
func (d drawing) bounds(res strip.Result) (minX, width, height float64) {
	minX, maxX := 0.0, res.ContentWidth()
	if d.window {
		minX = math.Min(minX, d.offset.X)
		maxX = math.Max(maxX, d.offset.X+d.viewport)
	}
	height = res.ContentHeight()
	if d.labels {
		height += labelHeight
	}
	return minX, maxX - minX + 2*d.padding, height + 2*d.padding
}

func (d drawing) isFocus(index int) bool {
	f, ok := d.style.FocusIndex()
	return ok && f == index
}

// RenderSVG draws a result's frames as SVG.
func RenderSVG(res strip.Result, opts ...DrawOption) []byte {
	d := newDrawing(opts...)
	minX, w, h := d.bounds(res)
	dx := d.padding - minX

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, math.Ceil(w), math.Ceil(h))
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", colorBackground)

	for _, g := range res.Geometries() {
		fill, class := colorItem, "item"
		if d.isFocus(g.Index) {
			fill, class = colorFocus, "item focus"
		}
		fmt.Fprintf(&buf, `  <rect id="item-%d" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="2" fill="%s"/>`+"\n",
			g.Index, class, g.X+dx, g.Y+d.padding, g.Width, g.Height, fill)
		if d.labels {
			fmt.Fprintf(&buf, `  <text x="%.2f" y="%.2f" font-family="monospace" font-size="9" text-anchor="middle" fill="%s">%d</text>`+"\n",
				g.CenterX()+dx, g.Y+g.Height+d.padding+labelHeight-2, colorLabel, g.Index)
		}
	}

	if d.window {
		fmt.Fprintf(&buf, `  <rect class="viewport" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="%s" stroke-width="1.5" stroke-dasharray="4 2"/>`+"\n",
			d.offset.X+dx, d.padding/2, d.viewport, res.ContentHeight()+d.padding, colorViewport)
		cx := d.offset.X + d.viewport/2 + dx
		fmt.Fprintf(&buf, `  <line class="center" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"/>`+"\n",
			cx, 0.0, cx, h, colorViewport)
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}
