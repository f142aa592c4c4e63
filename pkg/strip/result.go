package strip

import (
	"math"
	"slices"
	"sort"
)

// Result is the complete, immutable geometry of a strip.
// Geometries are ordered by index, which is also ascending x.
type Result struct {
	geometries    []ItemGeometry
	contentWidth  float64
	contentHeight float64
	expandedWidth float64
	hasExpanded   bool
}

// Len returns the number of items laid out.
func (r Result) Len() int { return len(r.geometries) }

// Geometries returns a copy of every item's frame, ordered by index.
func (r Result) Geometries() []ItemGeometry { return slices.Clone(r.geometries) }

// ContentWidth returns the right edge of the last item, or 0 when empty.
func (r Result) ContentWidth() float64 { return r.contentWidth }

// ContentHeight returns the viewport height used for the layout, or 0 when
// empty.
func (r Result) ContentHeight() float64 { return r.contentHeight }

// ContentSize returns the total scrollable extent.
func (r Result) ContentSize() Size {
	return Size{Width: r.contentWidth, Height: r.contentHeight}
}

// ExpandedWidth returns the focus item's resolved width. It is only present
// for non-empty Expanded layouts; callers cache it and pass it back as
// [Input.CachedExpandedWidth].
func (r Result) ExpandedWidth() (float64, bool) {
	return r.expandedWidth, r.hasExpanded
}

// Frame returns the geometry of the item at index.
func (r Result) Frame(index int) (ItemGeometry, bool) {
	if index < 0 || index >= len(r.geometries) {
		return ItemGeometry{}, false
	}
	return r.geometries[index], true
}

// ItemsIn returns, in ascending order, the indices of items whose frames
// intersect rect. Only items overlapping rect with positive area count.
func (r Result) ItemsIn(rect Rect) []int {
	if rect.Width <= 0 || rect.Height <= 0 {
		return nil
	}
	// Frames are sorted and disjoint on x, so the first candidate is the
	// first item whose right edge passes the rect's left edge.
	start := sort.Search(len(r.geometries), func(i int) bool {
		return r.geometries[i].MaxX() > rect.X
	})
	var out []int
	for i := start; i < len(r.geometries); i++ {
		g := r.geometries[i]
		if g.X >= rect.MaxX() {
			break
		}
		if g.Rect().Intersects(rect) {
			out = append(out, g.Index)
		}
	}
	return out
}

// NearestCenterItem returns the item whose horizontal midpoint is closest to
// the midpoint of a viewport of the given width scrolled to offset. Ties go to
// the lower index. It reports false for an empty layout.
func (r Result) NearestCenterItem(offset Point, viewportWidth float64) (int, bool) {
	if len(r.geometries) == 0 {
		return 0, false
	}
	target := offset.X + viewportWidth/2
	i := sort.Search(len(r.geometries), func(i int) bool {
		return r.geometries[i].CenterX() >= target
	})
	switch {
	case i == 0:
		return 0, true
	case i == len(r.geometries):
		return i - 1, true
	}
	before := math.Abs(target - r.geometries[i-1].CenterX())
	after := math.Abs(r.geometries[i].CenterX() - target)
	if before <= after {
		return i - 1, true
	}
	return i, true
}

// CenterLookup adapts NearestCenterItem to the [CenterLookup] capability for
// a viewport of the given width.
func (r Result) CenterLookup(viewportWidth float64) CenterLookup {
	return CenterLookupFunc(func(proposed Point) (int, bool) {
		return r.NearestCenterItem(proposed, viewportWidth)
	})
}
