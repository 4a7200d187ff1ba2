package state

import "cmp"

type Pair[Ty1, Ty2 any] struct {
	V1 Ty1
	V2 Ty2
}

// MakeSortedPair orders a and b so an unordered pair has a single key.
func MakeSortedPair[T cmp.Ordered](a, b T) Pair[T, T] {
	if a < b {
		return Pair[T, T]{a, b}
	} else {
		return Pair[T, T]{b, a}
	}
}
