package domain

import "sort"

// Slots holds the values extracted so far in the active flow.
type Slots map[string]Value

// Has reports whether key holds a non-empty value.
func (s Slots) Has(key string) bool {
	v, ok := s[key]
	return ok && !v.Empty()
}

// Get returns the value stored at key.
func (s Slots) Get(key string) (Value, bool) {
	v, ok := s[key]
	if !ok || v.Empty() {
		return Value{}, false
	}
	return v, true
}

// Merge applies one extraction result.
// Scalars are first-write-wins; lists grow by ordered union.
// It reports whether the slot changed.
func (s Slots) Merge(key string, v Value) bool {
	if v.Empty() {
		return false
	}
	prev, ok := s[key]
	if v.IsList() {
		if !ok || !prev.IsList() {
			if ok && !prev.Empty() {
				return false
			}
			s[key] = v
			return true
		}
		merged := prev.Union(v)
		if merged.Equal(prev) {
			return false
		}
		s[key] = merged
		return true
	}
	if ok && !prev.Empty() {
		return false
	}
	s[key] = v
	return true
}

// Keys returns the slot names in sorted order.
func (s Slots) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (s Slots) Clone() Slots {
	out := make(Slots, len(s))
	for k, v := range s {
		if v.IsList() {
			v = List(v.Items()...)
		}
		out[k] = v
	}
	return out
}

// Plain converts the slots into JSON-friendly Go values.
func (s Slots) Plain() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v.Any()
	}
	return out
}
