package table

import (
	"slices"
	"sort"
)

// SetSelectionMode toggles selection mode. Leaving it clears selections.
func (t *Table) SetSelectionMode(on bool) {
	t.selectionMode = on
	if !on {
		t.selectedRows = map[string]struct{}{}
		t.selectedCols = map[string]struct{}{}
	}
}

func (t *Table) SelectionMode() bool { return t.selectionMode }

// ToggleRow flips membership of a row id. Ignored outside selection mode.
func (t *Table) ToggleRow(id string) {
	if !t.selectionMode {
		return
	}
	toggle(t.selectedRows, id)
}

// ToggleColumn flips membership of a header key. Unknown keys are ignored.
func (t *Table) ToggleColumn(key string) {
	if !t.selectionMode || !slices.Contains(t.headers, key) {
		return
	}
	toggle(t.selectedCols, key)
}

// SelectRows replaces the selected row set.
func (t *Table) SelectRows(ids []string) {
	if !t.selectionMode {
		return
	}
	t.selectedRows = map[string]struct{}{}
	for _, id := range ids {
		t.selectedRows[id] = struct{}{}
	}
}

// SelectColumns replaces the selected column set.
func (t *Table) SelectColumns(keys []string) {
	if !t.selectionMode {
		return
	}
	t.selectedCols = map[string]struct{}{}
	for _, k := range keys {
		if slices.Contains(t.headers, k) {
			t.selectedCols[k] = struct{}{}
		}
	}
}

func (t *Table) SelectedRows() []string    { return sortedKeys(t.selectedRows) }
func (t *Table) SelectedColumns() []string { return sortedKeys(t.selectedCols) }

// Projection returns the records and columns an export should cover. Outside
// selection mode, or when an axis has nothing selected, that axis is whole.
// Columns keep header order and rows keep table order.
func (t *Table) Projection() ([]Record, []string) {
	rows := t.Records()
	cols := t.Headers()
	if !t.selectionMode {
		return rows, cols
	}
	if len(t.selectedRows) > 0 {
		rows = slices.DeleteFunc(rows, func(r Record) bool {
			_, ok := t.selectedRows[r.ID()]
			return !ok
		})
	}
	if len(t.selectedCols) > 0 {
		cols = slices.DeleteFunc(cols, func(c string) bool {
			_, ok := t.selectedCols[c]
			return !ok
		})
	}
	return rows, cols
}

func toggle(set map[string]struct{}, k string) {
	if _, ok := set[k]; ok {
		delete(set, k)
		return
	}
	set[k] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
