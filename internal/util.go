// Package internal holds helpers shared across the SDK's packages.
package internal

import "reflect"

// IsTypedNil reports whether v is nil or an interface holding a nil pointer,
// slice, map, func, chan or interface.
func IsTypedNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
