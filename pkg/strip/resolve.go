package strip

import "math"

// ResolveExpandedWidth computes the focus item's width as
// viewportHeight × ratio clamped to [MinExpandedWidth, MaxExpandedWidth].
//
// The ratio is override when non-nil, else provider's answer for focus, else
// 0. Non-positive or NaN ratios count as 0, so an item whose content is not
// yet known gets the minimum width. The result is always finite.
func (e *Engine) ResolveExpandedWidth(override *float64, focus int, viewportHeight float64, provider AspectRatioProvider) float64 {
	var ratio float64
	switch {
	case override != nil:
		ratio = *override
	case provider != nil:
		if r, ok := provider.AspectRatio(focus); ok {
			ratio = r
		}
	}
	if math.IsNaN(ratio) || ratio < 0 {
		ratio = 0
	}

	raw := viewportHeight * ratio
	if math.IsNaN(raw) {
		// 0 × +Inf, or a NaN height.
		raw = 0
	}
	return clamp(raw, e.metrics.MinExpandedWidth(), e.metrics.MaxExpandedWidth)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
