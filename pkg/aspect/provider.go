// Package aspect supplies aspect ratios to the strip layout engine.
//
// The simple providers ([Ratios], [Map]) hold ratios the host already knows.
// [Library] learns them from the images in a directory: it reads image
// headers in the background, memoizes the results in a [cache.Cache], and
// tells the host through [Library.OnChange] when a ratio becomes known so
// the host can recompute its layout.
//
// A ratio is width/height. Unknown ratios are reported with ok == false,
// never with a sentinel value.
package aspect

import (
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/pagestrip/pkg/errors"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// Ratios is a provider over a slice indexed by item. Entries that are not
// finite and positive are unknown.
type Ratios []float64

// AspectRatio implements [strip.AspectRatioProvider].
func (r Ratios) AspectRatio(index int) (float64, bool) {
	if index < 0 || index >= len(r) {
		return 0, false
	}
	return known(r[index])
}

// Map is a sparse provider. Missing and invalid entries are unknown.
type Map map[int]float64

// AspectRatio implements [strip.AspectRatioProvider].
func (m Map) AspectRatio(index int) (float64, bool) {
	r, ok := m[index]
	if !ok {
		return 0, false
	}
	return known(r)
}

// FromSize returns width/height, or false if either dimension is not positive.
func FromSize(width, height int) (float64, bool) {
	if width <= 0 || height <= 0 {
		return 0, false
	}
	return float64(width) / float64(height), true
}

// ParseRatios parses a comma-separated list such as "1.5,0.75,,2". Empty
// fields are unknown ratios; any other field must be a positive number.
func ParseRatios(s string) (Ratios, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	out := make(Ratios, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		r, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "ratio %d: %q is not a number", i, f)
		}
		if err := errors.ValidateRatio(r); err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func known(r float64) (float64, bool) {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, false
	}
	return r, true
}

var (
	_ strip.AspectRatioProvider = Ratios(nil)
	_ strip.AspectRatioProvider = Map(nil)
)
