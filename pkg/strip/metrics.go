package strip

import (
	"math"

	"github.com/matzehuels/pagestrip/pkg/errors"
)

// Default metrics, in points.
const (
	DefaultCollapsedWidth   = 21.0
	DefaultMaxExpandedWidth = 84.0
	DefaultCollapsedSpacing = 1.0
	DefaultExpandedSpacing  = 12.0
)

// Metrics holds the fixed dimensions of a strip.
type Metrics struct {
	CollapsedWidth   float64 `json:"collapsed_width" toml:"collapsed_width"`
	MaxExpandedWidth float64 `json:"max_expanded_width" toml:"max_expanded_width"`
	CollapsedSpacing float64 `json:"collapsed_spacing" toml:"collapsed_spacing"`
	ExpandedSpacing  float64 `json:"expanded_spacing" toml:"expanded_spacing"`
}

// DefaultMetrics returns the standard page-control metrics.
func DefaultMetrics() Metrics {
	return Metrics{
		CollapsedWidth:   DefaultCollapsedWidth,
		MaxExpandedWidth: DefaultMaxExpandedWidth,
		CollapsedSpacing: DefaultCollapsedSpacing,
		ExpandedSpacing:  DefaultExpandedSpacing,
	}
}

// MinExpandedWidth is the lower clamp for the focus item's width. It equals
// the collapsed width so an item never shrinks when it gains focus.
func (m Metrics) MinExpandedWidth() float64 { return m.CollapsedWidth }

// Validate reports whether m describes a usable strip.
func (m Metrics) Validate() error {
	switch {
	case !finite(m.CollapsedWidth) || m.CollapsedWidth <= 0:
		return errors.New(errors.ErrCodeInvalidConfig, "collapsed width must be positive, got %v", m.CollapsedWidth)
	case !finite(m.MaxExpandedWidth) || m.MaxExpandedWidth < m.CollapsedWidth:
		return errors.New(errors.ErrCodeInvalidConfig,
			"max expanded width %v must be at least the collapsed width %v", m.MaxExpandedWidth, m.CollapsedWidth)
	case !finite(m.CollapsedSpacing) || m.CollapsedSpacing < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "collapsed spacing must be non-negative, got %v", m.CollapsedSpacing)
	case !finite(m.ExpandedSpacing) || m.ExpandedSpacing < 0:
		return errors.New(errors.ErrCodeInvalidConfig, "expanded spacing must be non-negative, got %v", m.ExpandedSpacing)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
