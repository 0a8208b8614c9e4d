package util

import (
	"golang.org/x/exp/slices"
)

// ContainsAll reports whether every element of dst is present in src.
func ContainsAll[T comparable](src []T, dst []T) bool {
	for _, v := range dst {
		if !slices.Contains(src, v) {
			return false
		}
	}
	return true
}
