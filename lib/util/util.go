package util

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// AlignTo rounds val up to the next multiple of align. An align of 0
// means no alignment constraint.
func AlignTo[T constraints.Unsigned](val, align T) T {
	if align == 0 {
		return val
	}
	return (val + align - 1) / align * align
}

// ToP2Align converts a byte alignment into its log2 form. Unspecified
// alignment (0) maps to 0.
func ToP2Align(align uint64) uint8 {
	if align == 0 {
		return 0
	}
	return uint8(bits.TrailingZeros64(align))
}

// RemoveIf
func RemoveIf[T any](collection []T, cond func(T) bool) []T {
	i := 0
	for _, elem := range collection {
		if cond(elem) {
			continue
		}
		collection[i] = elem
		i++
	}
	return collection[:i]
}
