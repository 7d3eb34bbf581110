package unique

import (
	"cmp"
	"slices"
)

// Slice returns the distinct members of the input in first-seen order.
func Slice[T comparable](input []T) []T {
	u := make([]T, 0, len(input))
	m := map[T]struct{}{}
	for _, val := range input {
		if _, ok := m[val]; !ok {
			m[val] = struct{}{}
			u = append(u, val)
		}
	}
	return u
}

// Sorted sorts the result before returning it.
func Sorted[T cmp.Ordered](input []T) []T {
	u := Slice(input)
	slices.Sort(u)
	return u
}
