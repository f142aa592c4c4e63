// Package sink renders computed strip layouts for inspection.
//
// Sinks draw the frames a [strip.Result] holds and nothing else: there are
// no thumbnails, only rectangles, which is enough to see spacing, the
// expanded item and where a viewport would settle.
//
// # Formats
//
//   - [RenderJSON]: machine-readable frames
//   - [RenderSVG]: vector drawing, optionally with the viewport window
//   - [RenderPNG]: raster drawing of the same picture
//
// # Usage
//
//	svg := sink.RenderSVG(result,
//	    sink.WithStyle(style),
//	    sink.WithViewport(offset, 390),
//	)
package sink
