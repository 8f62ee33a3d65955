// Package table renders typed records against a header schema and tracks
// row/column selection for scoped exports.
package table

import (
	"context"
	"slices"

	"EstateDesk/internal/models"
)

// NotAvailable is rendered for absent values.
const NotAvailable = "N/A"

// Record is one row of a table.
type Record interface {
	ID() string
	Field(key string) (any, bool)
}

// Table is a header schema plus the current records. It is not safe for
// concurrent use.
type Table struct {
	headers []string
	records []Record
	onAdd   func(ctx context.Context) error

	selectionMode bool
	selectedRows  map[string]struct{}
	selectedCols  map[string]struct{}
}

func New(headers []string) *Table {
	return &Table{
		headers:      slices.Clone(headers),
		selectedRows: map[string]struct{}{},
		selectedCols: map[string]struct{}{},
	}
}

// OnAdd configures the "Add record" control. A nil fn hides it.
func (t *Table) OnAdd(fn func(ctx context.Context) error) { t.onAdd = fn }

// AddAvailable reports whether the add control is shown.
func (t *Table) AddAvailable() bool { return t.onAdd != nil }

func (t *Table) Add(ctx context.Context) error {
	if t.onAdd == nil {
		return nil
	}
	return t.onAdd(ctx)
}

func (t *Table) Headers() []string { return slices.Clone(t.headers) }
func (t *Table) Records() []Record { return slices.Clone(t.records) }
func (t *Table) Len() int          { return len(t.records) }

// SetData replaces the records. Selections of rows that are no longer
// present are dropped.
func (t *Table) SetData(records []Record) {
	t.records = slices.Clone(records)
	present := make(map[string]struct{}, len(records))
	for _, r := range records {
		present[r.ID()] = struct{}{}
	}
	for id := range t.selectedRows {
		if _, ok := present[id]; !ok {
			delete(t.selectedRows, id)
		}
	}
}

// Render returns the header row followed by one row per record, cells in
// header order.
func (t *Table) Render() [][]string {
	out := make([][]string, 0, len(t.records)+1)
	out = append(out, t.Headers())
	for _, r := range t.records {
		out = append(out, renderRow(r, t.headers))
	}
	return out
}

func renderRow(r Record, headers []string) []string {
	row := make([]string, len(headers))
	for i, h := range headers {
		row[i] = Cell(r, h)
	}
	return row
}

// Cell renders one value, falling back to NotAvailable.
func Cell(r Record, key string) string {
	v, ok := r.Field(key)
	if !ok {
		return NotAvailable
	}
	if s := models.FormatValue(v); s != "" {
		return s
	}
	return NotAvailable
}
