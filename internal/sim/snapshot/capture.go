package snapshot

import (
	"reflect"
	"sync"
)

// Capture records every exported field of the struct obj points to, in
// declaration order, skipping fields tagged `snap:"-"`. Values go through
// Dup so the result shares no collection with obj.
func Capture(obj any) Properties {
	rv := structValue(obj)
	fields := layoutOf(rv.Type()).fields
	out := make(Properties, 0, len(fields))
	for _, f := range fields {
		out = append(out, Prop{Key: f.name, Value: dupValue(rv.Field(f.index)).Interface()})
	}
	return out
}

// Apply writes captured properties back onto obj. Values are duplicated
// again so the live object never aliases the snapshot.
func Apply(obj any, props Properties) {
	rv := structValue(obj)
	idx := layoutOf(rv.Type()).index
	for _, p := range props {
		i, ok := idx[p.Key]
		Must(ok, rv.Type().String(), "unknown captured field %q", p.Key)
		field := rv.Field(i)
		if p.Value == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		field.Set(dupValue(reflect.ValueOf(p.Value)))
	}
}

type capturedField struct {
	name  string
	index int
}

type layout struct {
	fields []capturedField
	index  map[string]int
}

var layouts sync.Map // reflect.Type -> *layout

func layoutOf(t reflect.Type) *layout {
	if v, ok := layouts.Load(t); ok {
		return v.(*layout)
	}
	l := &layout{index: map[string]int{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Tag.Get("snap") == "-" {
			continue
		}
		l.fields = append(l.fields, capturedField{name: sf.Name, index: i})
		l.index[sf.Name] = i
	}
	v, _ := layouts.LoadOrStore(t, l)
	return v.(*layout)
}

func structValue(obj any) reflect.Value {
	rv := reflect.ValueOf(obj)
	Must(rv.Kind() == reflect.Pointer && !rv.IsNil(), "snapshot", "capture target must be a non-nil pointer, got %T", obj)
	rv = rv.Elem()
	Must(rv.Kind() == reflect.Struct, "snapshot", "capture target must point to a struct, got %T", obj)
	return rv
}
