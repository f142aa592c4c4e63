package strip

// TargetOffset corrects a proposed scroll offset so that the relevant item is
// horizontally centered in a viewport of width viewportWidth.
//
// In Expanded style the focus item is centered. In Collapsed style lookup
// chooses the item; a nil lookup is treated as finding nothing. When no item
// can be found, proposed is returned unchanged. The vertical component always
// passes through.
func (e *Engine) TargetOffset(style Style, layout Result, viewportWidth float64, proposed Point, lookup CenterLookup) Point {
	index, ok := style.FocusIndex()
	if !ok {
		if lookup == nil {
			return proposed
		}
		index, ok = lookup.NearestCenterItem(proposed)
		if !ok {
			return proposed
		}
	}

	item, ok := layout.Frame(index)
	if !ok {
		return proposed
	}
	return Point{
		X: item.CenterX() - viewportWidth/2,
		Y: proposed.Y,
	}
}
