package memory

import "reflect"

// PointerFree reports whether values of t can be copied word by word
// without hiding a pointer from the garbage collector. Strings, slices,
// maps, channels, funcs, interfaces and pointers of any kind fail.
func PointerFree(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || PointerFree(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !PointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// PointerFreeOf is PointerFree for a type parameter.
func PointerFreeOf[T any]() bool {
	return PointerFree(reflect.TypeFor[T]())
}
