// Package models holds the typed CMS entities shown on the dashboard pages.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrMissingDocID = errors.New("record has no docId")

// Ref is a nested reference to another CMS document.
type Ref struct {
	DocID string `json:"docId,omitempty"`
	Name  string `json:"name,omitempty"`
	Phone Text   `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Entity is a CMS record that can be shown in a table.
type Entity interface {
	ID() string
	Field(key string) (any, bool)
	Validate() error
}

type fields map[string]any

func (f fields) str(key, v string) fields {
	if strings.TrimSpace(v) != "" {
		f[key] = v
	}
	return f
}

func (f fields) text(key string, v Text) fields {
	return f.str(key, string(v))
}

func (f fields) strs(key string, v []string) fields {
	if len(v) > 0 {
		f[key] = v
	}
	return f
}

func (f fields) money(key string, v *decimal.Decimal) fields {
	if v != nil {
		f[key] = *v
	}
	return f
}

func (f fields) when(key string, v *Date) fields {
	if v != nil && !v.IsZero() {
		f[key] = v.Time
	}
	return f
}

func (f fields) num(key string, v *int) fields {
	if v != nil {
		f[key] = *v
	}
	return f
}

func (f fields) ref(key string, v *Ref) fields {
	if v != nil && v.Name != "" {
		f[key] = v.Name
	}
	return f
}

func (f fields) get(key string) (any, bool) {
	v, ok := f[key]
	return v, ok
}

func requireDocID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrMissingDocID
	}
	return nil
}

// DecodeList decodes raw CMS documents into T, dropping documents that fail
// to decode or validate. The number of dropped documents is returned.
func DecodeList[T any, PT interface {
	*T
	Entity
}](raw []json.RawMessage) ([]PT, int) {
	out := make([]PT, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			dropped++
			continue
		}
		p := PT(&v)
		if p.Validate() != nil {
			dropped++
			continue
		}
		out = append(out, p)
	}
	return out, dropped
}

// FormatValue renders a field value for display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case decimal.Decimal:
		return t.StringFixed(2)
	case time.Time:
		return t.Format(time.RFC3339)
	case int:
		return fmt.Sprintf("%d", t)
	default:
		return fmt.Sprint(t)
	}
}
