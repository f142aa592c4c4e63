package strip

import (
	"math"

	"github.com/matzehuels/pagestrip/pkg/errors"
)

// Engine lays out strips with a fixed set of [Metrics]. An Engine holds no
// mutable state and may be shared freely.
type Engine struct {
	metrics Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics overrides the default metrics. Invalid metrics make [NewEngine]
// fail; [New] panics on them.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine, validating the configured metrics.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{metrics: DefaultMetrics()}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.metrics.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// New creates an Engine and panics if the options produce invalid metrics.
// It is intended for package-level defaults and tests.
func New(opts ...Option) *Engine {
	e, err := NewEngine(opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() Metrics { return e.metrics }

// Input describes one layout pass.
type Input struct {
	// ItemCount is the number of items in the strip.
	ItemCount int

	// Style selects collapsed or expanded layout.
	Style Style

	// ViewportHeight is the height of every item and of the content.
	ViewportHeight float64

	// CachedExpandedWidth, when set, is used as the focus item's width
	// instead of resolving it from the aspect ratio. Hosts pass back the
	// previous [Result.ExpandedWidth] for as long as the focus is unchanged.
	// The value is clamped like a resolved width; a non-finite one is
	// ignored.
	CachedExpandedWidth *float64

	// AspectRatios supplies the focus item's ratio when the style has no
	// override. May be nil.
	AspectRatios AspectRatioProvider
}

// role is an item's position relative to the focus item.
type role int

const (
	roleDefault role = iota
	roleFocus
	// roleFocusNeighbor is the item whose predecessor is the focus item.
	// Its leading gap is the one on the focus item's trailing side.
	roleFocusNeighbor
)

// roleOf classifies index. The focus match is tested first, so an item is
// never treated as the neighbor of itself.
func roleOf(index int, style Style) role {
	focus, ok := style.FocusIndex()
	switch {
	case !ok:
		return roleDefault
	case index == focus:
		return roleFocus
	case index-1 == focus:
		return roleFocusNeighbor
	default:
		return roleDefault
	}
}

// Recompute lays out in.ItemCount items left to right.
//
// An empty strip yields the empty Result whatever the style. Otherwise an
// Expanded style whose focus index is outside [0, ItemCount) fails with
// [errors.ErrCodeInvalidFocusIndex]; the index is never clamped.
func (e *Engine) Recompute(in Input) (Result, error) {
	if in.ItemCount < 0 {
		return Result{}, errors.New(errors.ErrCodeInvalidInput, "item count must be non-negative, got %d", in.ItemCount)
	}
	if in.ItemCount == 0 {
		return Result{}, nil
	}

	var expandedWidth float64
	focus, expanded := in.Style.FocusIndex()
	if expanded {
		if focus < 0 || focus >= in.ItemCount {
			return Result{}, errors.New(errors.ErrCodeInvalidFocusIndex,
				"focus index %d out of range [0, %d)", focus, in.ItemCount)
		}
		if w := in.CachedExpandedWidth; w != nil && !math.IsNaN(*w) && !math.IsInf(*w, 0) {
			expandedWidth = clamp(*w, e.metrics.MinExpandedWidth(), e.metrics.MaxExpandedWidth)
		} else {
			var override *float64
			if r, ok := in.Style.AspectRatioOverride(); ok {
				override = &r
			}
			expandedWidth = e.ResolveExpandedWidth(override, focus, in.ViewportHeight, in.AspectRatios)
		}
	}

	m := e.metrics
	geoms := make([]ItemGeometry, in.ItemCount)
	var prevMaxX float64
	for i := range geoms {
		width, spacing := m.CollapsedWidth, m.CollapsedSpacing
		switch roleOf(i, in.Style) {
		case roleFocus:
			width, spacing = expandedWidth, m.ExpandedSpacing
		case roleFocusNeighbor:
			spacing = m.ExpandedSpacing
		}

		x := 0.0
		if i > 0 {
			x = prevMaxX + spacing
		}
		geoms[i] = ItemGeometry{
			Index:  i,
			X:      x,
			Y:      0,
			Width:  width,
			Height: in.ViewportHeight,
		}
		prevMaxX = x + width
	}

	return Result{
		geometries:    geoms,
		contentWidth:  prevMaxX,
		contentHeight: in.ViewportHeight,
		expandedWidth: expandedWidth,
		hasExpanded:   expanded,
	}, nil
}
