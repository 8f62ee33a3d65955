package filterstate

import (
	"bytes"
	"encoding/json"
)

// Decode turns a JSON partial record into a State using the declared kinds.
// Undeclared fields and values of the wrong shape are dropped, matching what
// Update would do with them.
func (s Schema) Decode(raw map[string]json.RawMessage) State {
	out := State{}
	for name, msg := range raw {
		kind, ok := s.Kind(name)
		if !ok {
			continue
		}
		if v, ok := decodeValue(kind, msg); ok {
			out[name] = v
		}
	}
	return out
}

func decodeValue(kind Kind, msg json.RawMessage) (Value, bool) {
	switch kind {
	case KindScalar:
		var str string
		if err := json.Unmarshal(msg, &str); err == nil {
			return Scalar(str), true
		}
		var n json.Number
		d := json.NewDecoder(bytes.NewReader(msg))
		d.UseNumber()
		if err := d.Decode(&n); err == nil {
			return Scalar(n.String()), true
		}
	case KindSet:
		var set []string
		if err := json.Unmarshal(msg, &set); err == nil {
			return Set(set...), true
		}
	case KindRange:
		var r Range
		if bytes.HasPrefix(bytes.TrimSpace(msg), []byte("{")) && json.Unmarshal(msg, &r) == nil {
			return RangeValue(r), true
		}
	}
	return Value{}, false
}
