// Package progress maps a fractional chapter position onto a unit index and
// back. Progress is what gets persisted; indices are derived on demand.
package progress

import "math"

// Clamp bounds p to [0, 1]. NaN becomes 0.
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// UnitIndex returns the unit to speak for progress p in a chapter of n
// units. The product p*n is rounded to the nearest index and the result is
// kept within [0, n-1]. An empty chapter always yields 0.
func UnitIndex(p float64, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(math.Round(Clamp(p) * float64(n)))
	if i > n-1 {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// FromUnitIndex is the inverse of UnitIndex: the progress at which unit i of
// n begins. i == n yields 1, which marks a finished chapter.
func FromUnitIndex(i, n int) float64 {
	if n <= 0 {
		return 0
	}
	return Clamp(float64(i) / float64(n))
}
