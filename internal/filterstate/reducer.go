package filterstate

import "slices"

// Action is a named state transition.
type Action interface{ isAction() }

// Update shallow-merges Partial into the state.
type Update struct{ Partial State }

// SetArray replaces a set-valued field.
type SetArray struct {
	Field  string
	Values []string
}

// UpdateRange replaces a range-valued field.
type UpdateRange struct {
	Field string
	Range Range
}

// Reset restores the declared initial record.
type Reset struct{}

func (Update) isAction()      {}
func (SetArray) isAction()    {}
func (UpdateRange) isAction() {}
func (Reset) isAction()       {}

// Reduce applies a to st and returns the new state. st is never modified.
func Reduce(schema Schema, st State, a Action) State {
	switch a := a.(type) {
	case Reset:
		return schema.Initial()
	case Update:
		next := st.Clone()
		for field, v := range a.Partial {
			kind, ok := schema.Kind(field)
			if !ok || !v.sameKind(kind) {
				continue
			}
			next[field] = v.clone()
		}
		return next
	case SetArray:
		kind, ok := schema.Kind(a.Field)
		if !ok || kind != KindSet {
			return st.Clone()
		}
		next := st.Clone()
		next[a.Field] = Set(a.Values...)
		return next
	case UpdateRange:
		// Only object-shaped (range) values accept a range.
		cur, ok := st[a.Field]
		if !ok || !cur.IsRange() {
			return st.Clone()
		}
		next := st.Clone()
		next[a.Field] = RangeValue(a.Range)
		return next
	}
	return st.Clone()
}

// Toggle adds value to a set field, or removes it when present.
func Toggle(schema Schema, st State, field, value string) State {
	cur := st[field]
	values := cur.Strings()
	if i := slices.Index(values, value); i >= 0 {
		values = slices.Delete(values, i, i+1)
	} else {
		values = append(values, value)
	}
	return Reduce(schema, st, SetArray{Field: field, Values: values})
}
