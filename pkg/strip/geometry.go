package strip

// Point is a scroll offset or location in content coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair, typically the viewport bounds.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle with its origin at the top-left.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// MaxX returns the right edge of the rectangle.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge of the rectangle.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// Intersects reports whether r and o share a region of positive area.
// Rectangles that only touch along an edge do not intersect.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.MaxX() && o.X < r.MaxX() &&
		r.Y < o.MaxY() && o.Y < r.MaxY()
}

// ItemGeometry is the computed frame of one strip item.
type ItemGeometry struct {
	Index  int
	X, Y   float64
	Width  float64
	Height float64
}

// MaxX returns the right edge of the item.
func (g ItemGeometry) MaxX() float64 { return g.X + g.Width }

// CenterX returns the horizontal midpoint of the item.
func (g ItemGeometry) CenterX() float64 { return g.X + g.Width/2 }

// Rect returns the item's frame as a Rect.
func (g ItemGeometry) Rect() Rect {
	return Rect{X: g.X, Y: g.Y, Width: g.Width, Height: g.Height}
}
