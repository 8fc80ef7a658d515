package utils

import "strings"

func SimpleEqualer[T comparable](t1, t2 T) bool {
	return t1 == t2
}

func IndexOf[T comparable](slice []T, target T, comparer func(T, T) bool) int {
	if comparer == nil {
		comparer = SimpleEqualer
	}
	for i, e := range slice {
		if comparer(e, target) {
			return i
		}
	}
	return -1
}

func MapSlice[T any, O any](slice []T, mapper func(T) (mapped O, remove bool)) []O {
	if slice == nil {
		return nil
	}
	out := make([]O, len(slice))
	pos := 0
	for i := 0; i < len(slice); i++ {
		o, remove := mapper(slice[i])
		if !remove {
			out[pos] = o
			pos++
		}
	}
	return out[0:pos]
}

// SliceSplice returns a new slice where the element at index is replaced by
// replacement (which may be empty). The input slice is never modified.
func SliceSplice[T any](slice []T, index int, replacement ...T) ([]T, bool) {
	l := len(slice)
	if index < 0 || index >= l {
		return slice, false
	}
	out := make([]T, 0, l-1+len(replacement))
	out = append(out, slice[0:index]...)
	out = append(out, replacement...)
	out = append(out, slice[index+1:]...)
	return out, true
}

// SplitTrim splits s by sep, trims every part and drops the empty ones.
func SplitTrim(s string, sep string) []string {
	return MapSlice(strings.Split(s, sep), func(part string) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part == ""
	})
}
