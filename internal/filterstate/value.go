// Package filterstate holds the per-page filter records and the pure
// reducers that mutate them.
package filterstate

import (
	"slices"
)

// Kind is the declared shape of a filter field.
type Kind int

const (
	KindScalar Kind = iota
	KindSet
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSet:
		return "set"
	case KindRange:
		return "range"
	}
	return "unknown"
}

// Range is a numeric {min,max} constraint; either bound may be open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Bounds builds a closed range.
func Bounds(lo, hi float64) Range {
	return Range{Min: &lo, Max: &hi}
}

func (r Range) clone() Range {
	out := Range{}
	if r.Min != nil {
		v := *r.Min
		out.Min = &v
	}
	if r.Max != nil {
		v := *r.Max
		out.Max = &v
	}
	return out
}

// IsOpen reports whether neither bound is set.
func (r Range) IsOpen() bool { return r.Min == nil && r.Max == nil }

// Value is one filter field value. The zero Value is invalid; use the
// constructors.
type Value struct {
	kind   Kind
	scalar string
	set    []string
	rng    Range
}

func Scalar(s string) Value { return Value{kind: KindScalar, scalar: s} }
func Set(values ...string) Value { return Value{kind: KindSet, set: slices.Clone(values)} }
func RangeValue(r Range) Value { return Value{kind: KindRange, rng: r.clone()} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) String() string { return v.scalar }
func (v Value) Strings() []string { return slices.Clone(v.set) }
func (v Value) Range() Range { return v.rng.clone() }
func (v Value) IsRange() bool { return v.kind == KindRange }
func (v Value) clone() Value { return Value{kind: v.kind, scalar: v.scalar, set: slices.Clone(v.set), rng: v.rng.clone()} }
func (v Value) sameKind(k Kind) bool { return v.kind == k }

// Contains reports set membership.
func (v Value) Contains(s string) bool { return slices.Contains(v.set, s) }

// JSON renders the value the way the dashboard expects it.
func (v Value) JSON() any {
	switch v.kind {
	case KindSet:
		if v.set == nil {
			return []string{}
		}
		return slices.Clone(v.set)
	case KindRange:
		return v.rng.clone()
	default:
		return v.scalar
	}
}

// State maps field name to value. Absent fields are undefined.
type State map[string]Value

// Clone returns a deep copy.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v.clone()
	}
	return out
}

// Get returns the value for field and whether it is defined.
func (s State) Get(field string) (Value, bool) {
	v, ok := s[field]
	return v, ok
}

// Equal compares two states field by field.
func (s State) Equal(o State) bool {
	if len(s) != len(o) {
		return false
	}
	for k, a := range s {
		b, ok := o[k]
		if !ok || a.kind != b.kind || a.scalar != b.scalar || !slices.Equal(a.set, b.set) {
			return false
		}
		if !floatPtrEq(a.rng.Min, b.rng.Min) || !floatPtrEq(a.rng.Max, b.rng.Max) {
			return false
		}
	}
	return true
}

// JSON renders the state as a plain map.
func (s State) JSON() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v.JSON()
	}
	return out
}

func floatPtrEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Query renders only the constraining fields: empty scalars, empty sets and
// open ranges are left out.
func (s State) Query() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		switch v.kind {
		case KindScalar:
			if v.scalar == "" {
				continue
			}
		case KindSet:
			if len(v.set) == 0 {
				continue
			}
		case KindRange:
			if v.rng.IsOpen() {
				continue
			}
		}
		out[k] = v.JSON()
	}
	return out
}
