package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Text is a display string that also accepts JSON numbers and booleans, so
// a CMS sending `"bedrooms": 3` or `"floor": 12` does not lose the record.
// Objects and arrays decode as empty.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	v, err := decodeLoose(b)
	if err != nil {
		return err
	}
	switch x := v.(type) {
	case string:
		*t = Text(x)
	case json.Number:
		*t = Text(x.String())
	case bool:
		*t = Text(strconv.FormatBool(x))
	default:
		*t = ""
	}
	return nil
}

// dateLayouts are tried in order for string dates.
var dateLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

// Date is a CMS timestamp. It accepts RFC 3339, "2006-01-02 15:04:05",
// "2006-01-02" and epoch milliseconds (as a number or a digit string).
// Anything else decodes as the zero time, which renders as absent.
type Date struct{ time.Time }

func (d *Date) UnmarshalJSON(b []byte) error {
	v, err := decodeLoose(b)
	if err != nil {
		return err
	}
	d.Time = time.Time{}
	switch x := v.(type) {
	case json.Number:
		d.Time = fromMillis(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return nil
		}
		if isDigits(s) {
			d.Time = fromMillis(json.Number(s))
			return nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				d.Time = t
				return nil
			}
		}
	}
	return nil
}

// MarshalJSON writes null for the zero time.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return d.Time.MarshalJSON()
}

// Std returns the time, or nil when d is nil or zero.
func (d *Date) Std() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// At wraps t as a *Date.
func At(t time.Time) *Date { return &Date{Time: t} }

func fromMillis(n json.Number) time.Time {
	if ms, err := n.Int64(); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	if f, err := n.Float64(); err == nil {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Time{}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func decodeLoose(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
