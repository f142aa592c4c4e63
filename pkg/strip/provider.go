package strip

// AspectRatioProvider reports the natural width/height ratio of an item's
// content. ok is false while the ratio is unknown, for example before the
// item's image has loaded.
type AspectRatioProvider interface {
	AspectRatio(index int) (ratio float64, ok bool)
}

// AspectRatioFunc adapts a function to [AspectRatioProvider].
type AspectRatioFunc func(index int) (float64, bool)

// AspectRatio calls f(index).
func (f AspectRatioFunc) AspectRatio(index int) (float64, bool) { return f(index) }

// CenterLookup identifies the item closest to the viewport's horizontal
// center when the content is scrolled to proposed. It is provided by the
// host's scroll container, which alone knows the visible rectangle.
type CenterLookup interface {
	NearestCenterItem(proposed Point) (index int, ok bool)
}

// CenterLookupFunc adapts a function to [CenterLookup].
type CenterLookupFunc func(proposed Point) (int, bool)

// NearestCenterItem calls f(proposed).
func (f CenterLookupFunc) NearestCenterItem(proposed Point) (int, bool) { return f(proposed) }
