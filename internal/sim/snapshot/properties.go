package snapshot

// Prop is one captured field.
type Prop struct {
	Key   string
	Value any
}

// Properties is an order-preserving record of captured fields.
type Properties []Prop

func (p Properties) Get(key string) (any, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

func (p Properties) Keys() []string {
	out := make([]string, len(p))
	for i, kv := range p {
		out[i] = kv.Key
	}
	return out
}

// Lookup returns the typed value stored under key.
func Lookup[T any](p Properties, key string) (T, bool) {
	var zero T
	v, ok := p.Get(key)
	if !ok {
		return zero, false
	}
	if v == nil {
		return zero, true
	}
	t, ok := v.(T)
	return t, ok
}
