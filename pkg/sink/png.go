package sink

import (
	"bytes"
	"math"
	"strconv"

	"github.com/fogleman/gg"

	"github.com/matzehuels/pagestrip/pkg/strip"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	drawOpts []DrawOption
	scale    float64
}

// WithPNGDrawOptions passes drawing options shared with the SVG renderer.
func WithPNGDrawOptions(opts ...DrawOption) PNGOption {
	return func(r *pngRenderer) { r.drawOpts = opts }
}

// WithScale sets the PNG scale factor (default 2.0 for 2x resolution).
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) {
		if s > 0 {
			r.scale = s
		}
	}
}

// RenderPNG draws a result's frames as a PNG image.
func RenderPNG(res strip.Result, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 2.0}
	for _, opt := range opts {
		opt(&r)
	}
	d := newDrawing(r.drawOpts...)
	minX, w, h := d.bounds(res)
	dx := d.padding - minX

	pw := max(1, int(math.Ceil(w*r.scale)))
	ph := max(1, int(math.Ceil(h*r.scale)))
	dc := gg.NewContext(pw, ph)
	dc.Scale(r.scale, r.scale)

	dc.SetHexColor(colorBackground)
	dc.Clear()

	for _, g := range res.Geometries() {
		if d.isFocus(g.Index) {
			dc.SetHexColor(colorFocus)
		} else {
			dc.SetHexColor(colorItem)
		}
		dc.DrawRoundedRectangle(g.X+dx, g.Y+d.padding, g.Width, g.Height, 2)
		dc.Fill()
		if d.labels {
			dc.SetHexColor(colorLabel)
			dc.DrawStringAnchored(strconv.Itoa(g.Index), g.CenterX()+dx, g.Y+g.Height+d.padding+labelHeight/2, 0.5, 0.5)
		}
	}

	if d.window {
		dc.SetHexColor(colorViewport)
		dc.SetLineWidth(1.5)
		dc.SetDash(4, 2)
		dc.DrawRectangle(d.offset.X+dx, d.padding/2, d.viewport, res.ContentHeight()+d.padding)
		dc.Stroke()
		dc.SetDash()
		dc.SetLineWidth(1)
		cx := d.offset.X + d.viewport/2 + dx
		dc.DrawLine(cx, 0, cx, h)
		dc.Stroke()
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
