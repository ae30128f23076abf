package snapshot

import (
	"reflect"

	"timewarp.dev/internal/sim/geom"
)

var (
	outlineType  = reflect.TypeOf(geom.Outline(nil))
	pointPtrType = reflect.TypeOf((*geom.Point)(nil))
)

// deepValues is the allow-list of leaf types that are always copied rather
// than shared.
var deepValues = map[reflect.Type]func(reflect.Value) reflect.Value{
	outlineType: func(v reflect.Value) reflect.Value {
		return reflect.ValueOf(v.Interface().(geom.Outline).Clone())
	},
	pointPtrType: func(v reflect.Value) reflect.Value {
		if v.IsNil() {
			return v
		}
		p := *v.Interface().(*geom.Point)
		return reflect.ValueOf(&p)
	},
}

// Dup returns a structural duplicate of v. Slices, arrays, maps and the
// exported fields of structs are copied recursively and allow-listed deep
// values are cloned. Pointers, channels, funcs and unexported struct fields
// are shared with v.
func Dup[T any](v T) T {
	var out T
	reflect.ValueOf(&out).Elem().Set(dupValue(reflect.ValueOf(&v).Elem()))
	return out
}

// DupAny is Dup for values of unknown static type.
func DupAny(v any) any {
	if v == nil {
		return nil
	}
	return dupValue(reflect.ValueOf(v)).Interface()
}

func dupValue(rv reflect.Value) reflect.Value {
	if fn, ok := deepValues[rv.Type()]; ok {
		return fn(rv)
	}
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		if isScalar(rv.Type().Elem()) {
			reflect.Copy(out, rv)
			return out
		}
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(dupValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(dupValue(rv.Index(i)))
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out.SetMapIndex(it.Key(), dupValue(it.Value()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(rv.Type()).Elem()
		out.Set(rv)
		for i := 0; i < out.NumField(); i++ {
			f := out.Field(i)
			if !f.CanSet() || isScalar(f.Type()) {
				continue
			}
			f.Set(dupValue(rv.Field(i)))
		}
		return out
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(dupValue(rv.Elem()))
		return out
	}
	return rv
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
