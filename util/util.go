package util

import (
	"cmp"
	"slices"
)

// SortedKeys returns the keys of a map in ascending order. Every map
// traversal that can influence a result goes through this helper.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
