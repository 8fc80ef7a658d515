package utils

import "reflect"

// IsNilInterface reports whether i is nil or an interface wrapping a nil
// pointer, map, slice, chan or func.
func IsNilInterface(i any) bool {
	if i == nil {
		return true
	}
	switch reflect.TypeOf(i).Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Slice, reflect.Func:
		return reflect.ValueOf(i).IsNil()
	}
	return false
}
