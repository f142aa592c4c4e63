package strip

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/pagestrip/pkg/errors"
)

// Style kinds as they appear in JSON and on the command line.
const (
	KindCollapsed = "collapsed"
	KindExpanded  = "expanded"
)

// Style is the visual state of the strip: either collapsed, or expanded
// around a single focus item. The zero value is Collapsed.
type Style struct {
	expanded bool
	focus    int
	ratio    float64
	hasRatio bool
}

// Collapsed returns the style in which every item has the collapsed width.
func Collapsed() Style { return Style{} }

// Expanded returns the style in which item focus is expanded and its aspect
// ratio is taken from the [AspectRatioProvider].
func Expanded(focus int) Style {
	return Style{expanded: true, focus: focus}
}

// ExpandedWithRatio returns an expanded style whose focus item uses the given
// width/height ratio instead of consulting the provider.
func ExpandedWithRatio(focus int, ratio float64) Style {
	return Style{expanded: true, focus: focus, ratio: ratio, hasRatio: true}
}

// IsExpanded reports whether s is an Expanded style.
func (s Style) IsExpanded() bool { return s.expanded }

// FocusIndex returns the expanded item's index; ok is false when collapsed.
func (s Style) FocusIndex() (index int, ok bool) {
	if !s.expanded {
		return 0, false
	}
	return s.focus, true
}

// AspectRatioOverride returns the explicit ratio of an expanded style, if any.
func (s Style) AspectRatioOverride() (ratio float64, ok bool) {
	if !s.expanded || !s.hasRatio {
		return 0, false
	}
	return s.ratio, true
}

// Kind returns KindCollapsed or KindExpanded.
func (s Style) Kind() string {
	if s.expanded {
		return KindExpanded
	}
	return KindCollapsed
}

// SameFocus reports whether s and o expand the same item (or are both
// collapsed). Hosts discard a cached expanded width when this is false.
func (s Style) SameFocus(o Style) bool {
	if s.expanded != o.expanded {
		return false
	}
	return !s.expanded || s.focus == o.focus
}

func (s Style) String() string {
	switch {
	case !s.expanded:
		return KindCollapsed
	case s.hasRatio:
		return fmt.Sprintf("expanded(%d, ratio=%g)", s.focus, s.ratio)
	default:
		return fmt.Sprintf("expanded(%d)", s.focus)
	}
}

type styleJSON struct {
	Kind  string   `json:"kind"`
	Focus *int     `json:"focus,omitempty"`
	Ratio *float64 `json:"ratio,omitempty"`
}

// MarshalJSON encodes s as {"kind":"collapsed"} or
// {"kind":"expanded","focus":2,"ratio":1.5}.
func (s Style) MarshalJSON() ([]byte, error) {
	out := styleJSON{Kind: s.Kind()}
	if s.expanded {
		focus := s.focus
		out.Focus = &focus
		if s.hasRatio {
			ratio := s.ratio
			out.Ratio = &ratio
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form written by MarshalJSON. An empty kind
// decodes as collapsed.
func (s *Style) UnmarshalJSON(data []byte) error {
	var in styleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidStyle, err, "decode style")
	}
	parsed, err := ParseStyle(in.Kind, in.Focus, in.Ratio)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStyle builds a Style from its loose parts. focus is required for
// expanded styles; ratio is optional and must be positive when present.
func ParseStyle(kind string, focus *int, ratio *float64) (Style, error) {
	switch kind {
	case "", KindCollapsed:
		return Collapsed(), nil
	case KindExpanded:
		if focus == nil {
			return Style{}, errors.New(errors.ErrCodeInvalidStyle, "expanded style requires a focus index")
		}
		if *focus < 0 {
			return Style{}, errors.New(errors.ErrCodeInvalidFocusIndex, "focus index must be non-negative, got %d", *focus)
		}
		if ratio == nil {
			return Expanded(*focus), nil
		}
		if err := errors.ValidateRatio(*ratio); err != nil {
			return Style{}, err
		}
		return ExpandedWithRatio(*focus, *ratio), nil
	default:
		return Style{}, errors.New(errors.ErrCodeInvalidStyle, "unknown style kind %q", kind)
	}
}
