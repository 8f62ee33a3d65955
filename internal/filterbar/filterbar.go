// Package filterbar implements the list-page filter bar: staged option
// selection, the explicit Apply commit, date range normalisation and the
// import modal toggle.
package filterbar

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

var (
	ErrUnknownFilter = errors.New("unknown filter")
	ErrUnknownOption = errors.New("unknown filter option")
	ErrNotSupported  = errors.New("action not supported on this page")
)

// FilterOption is a static enumeration of values for one filter dimension.
type FilterOption struct {
	Key     string   `json:"key" yaml:"key"`
	Label   string   `json:"label" yaml:"label"`
	Options []string `json:"options" yaml:"options"`
}

// SelectedOptions maps filter key to the chosen option.
type SelectedOptions map[string]string

// Actions is what a page must provide to the bar.
type Actions interface {
	// Apply commits staged selections and re-runs the data fetch.
	Apply(ctx context.Context) error
	// Clear resets selected options and the backing filter store.
	Clear(ctx context.Context) error
	// FetchRecords refreshes the table, e.g. after an import.
	FetchRecords(ctx context.Context) error
}

// FilterChanger receives staged selections as they happen.
type FilterChanger interface {
	FilterChange(key, value string)
}

// Searcher runs a free-text search.
type Searcher interface {
	Search(ctx context.Context, query string) error
}

// Exporter exports the current result set.
type Exporter interface {
	Export(ctx context.Context) error
}

// DateRanger receives date picker changes. A nil time means "no date".
type DateRanger interface {
	StartDateChange(t *time.Time)
	EndDateChange(t *time.Time)
}

// Bar is the filter bar of one page. Options are fixed at construction.
type Bar struct {
	filters     []FilterOption
	breadcrumbs []string
	actions     Actions
	datePickers bool

	mu         sync.Mutex
	selected   SelectedOptions
	importOpen bool
}

// Option configures a Bar.
type Option func(*Bar)

// WithDatePickers enables the start/end date pickers.
func WithDatePickers() Option { return func(b *Bar) { b.datePickers = true } }

// WithBreadcrumbs sets the page trail shown above the bar.
func WithBreadcrumbs(crumbs ...string) Option {
	return func(b *Bar) { b.breadcrumbs = slices.Clone(crumbs) }
}

func New(filters []FilterOption, actions Actions, opts ...Option) *Bar {
	b := &Bar{
		filters:  slices.Clone(filters),
		actions:  actions,
		selected: SelectedOptions{},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Bar) Filters() []FilterOption { return slices.Clone(b.filters) }
func (b *Bar) Breadcrumbs() []string   { return slices.Clone(b.breadcrumbs) }
func (b *Bar) DatePickers() bool       { return b.datePickers }

// Selected returns a copy of the staged selections.
func (b *Bar) Selected() SelectedOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(SelectedOptions, len(b.selected))
	for k, v := range b.selected {
		out[k] = v
	}
	return out
}

// Select stages value for filter key. It never triggers a fetch.
func (b *Bar) Select(key, value string) error {
	i := slices.IndexFunc(b.filters, func(f FilterOption) bool { return f.Key == key })
	if i < 0 {
		return ErrUnknownFilter
	}
	if !slices.Contains(b.filters[i].Options, value) {
		return ErrUnknownOption
	}
	b.mu.Lock()
	b.selected[key] = value
	b.mu.Unlock()
	if fc, ok := b.actions.(FilterChanger); ok {
		fc.FilterChange(key, value)
	}
	return nil
}

// Apply is the only bar action that commits a query.
func (b *Bar) Apply(ctx context.Context) error {
	return b.actions.Apply(ctx)
}

// Clear drops every staged selection and delegates to the page.
func (b *Bar) Clear(ctx context.Context) error {
	b.mu.Lock()
	b.selected = SelectedOptions{}
	b.mu.Unlock()
	return b.actions.Clear(ctx)
}

func (b *Bar) Search(ctx context.Context, query string) error {
	s, ok := b.actions.(Searcher)
	if !ok {
		return ErrNotSupported
	}
	return s.Search(ctx, query)
}

func (b *Bar) Export(ctx context.Context) error {
	e, ok := b.actions.(Exporter)
	if !ok {
		return ErrNotSupported
	}
	return e.Export(ctx)
}

// SetStartDate forwards the start date as picked.
func (b *Bar) SetStartDate(t *time.Time) (*time.Time, error) {
	dr, ok := b.actions.(DateRanger)
	if !b.datePickers || !ok {
		return nil, ErrNotSupported
	}
	dr.StartDateChange(t)
	return t, nil
}

// SetEndDate forwards the end date moved to the last instant of its local
// calendar day.
func (b *Bar) SetEndDate(t *time.Time) (*time.Time, error) {
	dr, ok := b.actions.(DateRanger)
	if !b.datePickers || !ok {
		return nil, ErrNotSupported
	}
	end := EndOfDay(t)
	dr.EndDateChange(end)
	return end, nil
}

// EndOfDay returns 23:59:59.999 on t's calendar day in t's location.
func EndOfDay(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	y, m, d := t.Date()
	end := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
	return &end
}

func (b *Bar) OpenImport() {
	b.mu.Lock()
	b.importOpen = true
	b.mu.Unlock()
}

func (b *Bar) CloseImport() {
	b.mu.Lock()
	b.importOpen = false
	b.mu.Unlock()
}

func (b *Bar) ImportOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.importOpen
}

// ImportSucceeded refreshes the page after a successful import.
func (b *Bar) ImportSucceeded(ctx context.Context) error {
	return b.actions.FetchRecords(ctx)
}
