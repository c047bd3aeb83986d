package mapping

import "golang.org/x/exp/constraints"

// highestBit isolates the most significant set bit of v.
func highestBit[U constraints.Unsigned](v U) U {
	for v&(v-1) != 0 {
		v &= v - 1
	}
	return v
}

// fillBitsDown sets every bit below the highest set bit of v.
func fillBitsDown[U constraints.Unsigned](v U) U {
	h := highestBit(v)
	if h == 0 {
		return 0
	}
	return h | (h - 1)
}

func isPowerOfTwo[U constraints.Unsigned](v U) bool {
	return v != 0 && v&(v-1) == 0
}

// Fold reduces rel into [0, length) by walking the set bits of rel from the
// most significant down, keeping each bit only while the sum stays below
// length. Address lines above a chip's capacity wrap onto the lines it has
// instead of being truncated, which matters when length is not a power of two.
// A zero length is unbounded and rel is returned unchanged.
func Fold(rel, length uint64) uint64 {
	if length == 0 || rel < length {
		return rel
	}

	var acc uint64
	for bit := highestBit(rel); bit != 0; bit >>= 1 {
		if rel&bit == 0 {
			continue
		}
		if acc|bit >= length {
			continue
		}
		acc |= bit
	}
	return acc
}
