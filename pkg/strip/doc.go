// Package strip computes the geometry of a focus-expanding thumbnail strip.
//
// # Overview
//
// A strip is a horizontal row of fixed-height items, typically the page
// control under an image viewer. In [Collapsed] style every item has the same
// narrow width. In [Expanded] style exactly one item, the focus item, widens
// to reveal its natural aspect ratio, and the gaps on both sides of it open
// up:
//
//	collapsed:  [a]·[b]·[c]·[d]·[e]
//	expanded:   [a]·[b]   [  c  ]   [d]·[e]
//
// The package is a pure computation: [Engine.Recompute] turns an item count,
// a [Style], a viewport height and an optional cached expanded width into a
// complete [Result]. Nothing is retained between calls. The host decides when
// to recompute (item count, style or bounds changed) and owns the cache.
//
// # Expanded Width
//
// The focus item's width is the viewport height multiplied by its aspect
// ratio, clamped to [Metrics.CollapsedWidth, Metrics.MaxExpandedWidth]. The
// ratio comes from the style's override, else from the [AspectRatioProvider],
// else it is treated as 0 and the item gets the minimum width until the
// host learns the ratio and recomputes.
//
// Resolving the width on every frame of an expand/collapse animation would
// make the item jump if its image finished loading mid-animation, so
// [Result.ExpandedWidth] is handed back to the caller. Passing it as
// [Input.CachedExpandedWidth] on the next call pins the width until the
// caller discards it (style collapsed or focus changed).
//
// # Spacing Rules
//
// Each item is preceded by a gap, chosen by role in this order:
//
//   - focus item: [Metrics.ExpandedSpacing]
//   - item right after the focus item: [Metrics.ExpandedSpacing]
//   - any other item: [Metrics.CollapsedSpacing]
//
// The two wide gaps therefore sit on both sides of the focus item. The first
// item never has a leading gap. The focus role wins over the neighbor role,
// so an item is never treated as its own neighbor.
//
// # Centering
//
// [Engine.TargetOffset] settles a proposed scroll offset so that an item's
// midpoint sits at the viewport's midpoint. In Expanded style the focus item
// is centered; in Collapsed style the host's [CenterLookup] picks the item,
// and [Result.CenterLookup] provides a default nearest-midpoint lookup.
//
// # Usage
//
//	e := strip.New()
//	res, err := e.Recompute(strip.Input{
//	    ItemCount:      5,
//	    Style:          strip.ExpandedWithRatio(2, 2),
//	    ViewportHeight: 30,
//	})
//	if err != nil {
//	    return err
//	}
//	w, _ := res.ExpandedWidth() // 60, cache it for the next pass
//	off := e.TargetOffset(strip.ExpandedWithRatio(2, 2), res, 200, strip.Point{}, nil)
package strip
