package record

import (
	"math"
	"strconv"
)

// wholeNumberEpsilon is the tolerance for snapping a percentage to an integer.
const wholeNumberEpsilon = 1e-7

// NormalizePercent validates and rounds a percentage reading. Values outside
// [0,100] are rejected (nil). Values within epsilon of a whole number snap to
// that integer; everything else is rounded to 2 decimal places.
func NormalizePercent(v float64) *float64 {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return nil
	}

	if r := math.Round(v); math.Abs(v-r) < wholeNumberEpsilon {
		return &r
	}

	rounded := math.Round(v*100) / 100
	return &rounded
}

// FormatPercent renders a normalized percentage as its shortest decimal
// string ("68", "31.46"). Nil renders as the empty string.
func FormatPercent(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}
