// Package workspace binds one user's list page together: filter store,
// filter bar, table, pagination, import modal and toasts.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"EstateDesk/api/utils"
	"EstateDesk/internal/audit"
	"EstateDesk/internal/catalog"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/export"
	"EstateDesk/internal/filterbar"
	"EstateDesk/internal/filterstate"
	"EstateDesk/internal/importer"
	"EstateDesk/internal/models"
	"EstateDesk/internal/notification"
	"EstateDesk/internal/table"
)

var (
	ErrUnknownDomain = errors.New("unknown page")
	ErrNoExport      = errors.New("no export pending")
)

// CMS is the part of the CMS client a page needs.
type CMS interface {
	List(ctx context.Context, domain string, q cms.ListQuery) (*cms.ListResult, error)
	Import(ctx context.Context, domain string, up cms.Upload, onProgress cms.ProgressFunc) (*cms.ImportResult, error)
}

// PublishFunc pushes an event to the user's browser.
type PublishFunc func(userID, eventType string, data any) bool

// Deps are the shared services a page uses.
type Deps struct {
	CMS           CMS
	Audit         audit.Recorder
	Publish       PublishFunc
	Now           func() time.Time
	ImportOptions []importer.Option
}

// Page is one user's view of a domain list. Methods are safe for
// concurrent use.
type Page struct {
	userID string
	layout catalog.Page
	decode decodeFunc
	deps   Deps
	log    *slog.Logger

	bar      *filterbar.Bar
	importer *importer.Pipeline
	notes    *notification.NotificationService

	mu         sync.Mutex
	store      *filterstate.Store
	table      *table.Table
	search     string
	pagination utils.PaginationParams
	seq        uint64
	loaded     bool
	dropped    int
	pending    *export.Workbook
}

// New builds a page for layout.Domain.
func New(userID string, layout catalog.Page, deps Deps) (*Page, error) {
	decode, ok := decoders[layout.Domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, layout.Domain)
	}
	if deps.Audit == nil {
		deps.Audit = audit.NopRecorder{}
	}
	if deps.Publish == nil {
		deps.Publish = func(string, string, any) bool { return false }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	p := &Page{
		userID:     userID,
		layout:     layout,
		decode:     decode,
		deps:       deps,
		log:        slog.Default().With("component", "page", "domain", layout.Domain, "user", userID),
		notes:      notification.NewNotificationService(),
		store:      filterstate.NewStore(filterstate.SchemaFor(layout.Domain)),
		table:      table.New(layout.Headers),
		pagination: utils.DefaultPagination(),
	}

	var barOpts []filterbar.Option
	if layout.DatePickers {
		barOpts = append(barOpts, filterbar.WithDatePickers())
	}
	if len(layout.Breadcrumbs) > 0 {
		barOpts = append(barOpts, filterbar.WithBreadcrumbs(layout.Breadcrumbs...))
	}
	p.bar = filterbar.New(layout.Filters, p, barOpts...)

	if layout.AllowAdd {
		p.table.OnAdd(func(context.Context) error {
			p.deps.Publish(p.userID, "add_record", map[string]string{"domain": p.layout.Domain})
			return nil
		})
	}

	opts := []importer.Option{
		importer.WithNotifier(p),
		importer.WithRefresh(p.bar.ImportSucceeded),
		importer.WithObserver(p.onImportProgress),
	}
	opts = append(opts, deps.ImportOptions...)
	p.importer = importer.New(layout.Domain, p.upload, opts...)
	return p, nil
}

func (p *Page) Domain() string               { return p.layout.Domain }
func (p *Page) Bar() *filterbar.Bar          { return p.bar }
func (p *Page) Importer() *importer.Pipeline { return p.importer }

// Notify queues a toast and pushes it to the browser.
func (p *Page) Notify(level notification.Level, title, message string) notification.Notification {
	n := p.notes.Notify(level, title, message)
	p.deps.Publish(p.userID, "notification", n)
	return n
}

// Notifications drains the toast queue.
func (p *Page) Notifications() []notification.Notification { return p.notes.Drain() }

func (p *Page) record(ctx context.Context, action audit.Action, detail map[string]any) {
	err := p.deps.Audit.Record(ctx, audit.Entry{
		UserID: p.userID,
		Domain: p.layout.Domain,
		Action: action,
		Detail: detail,
	})
	if err != nil {
		p.log.WarnContext(ctx, "audit failed", "action", action, "err", err)
	}
}

// Apply commits the staged filters and fetches the first page.
func (p *Page) Apply(ctx context.Context) error {
	p.mu.Lock()
	p.pagination = utils.NewPagination(1, p.pagination.Limit)
	filters := p.store.State().Query()
	p.mu.Unlock()
	p.record(ctx, audit.ActionApply, map[string]any{"filters": filters, "selected": p.bar.Selected()})
	return p.FetchRecords(ctx)
}

// Clear resets the filter store, search and dates, then refetches.
func (p *Page) Clear(ctx context.Context) error {
	p.mu.Lock()
	p.store.Reset()
	p.search = ""
	p.pagination = utils.NewPagination(1, p.pagination.Limit)
	p.mu.Unlock()
	p.record(ctx, audit.ActionClear, nil)
	return p.FetchRecords(ctx)
}

// FetchRecords loads the current page. When fetches overlap the newest one
// wins. Failures keep the previous rows and raise a toast.
func (p *Page) FetchRecords(ctx context.Context) error {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	q := cms.ListQuery{
		Filters: p.queryFiltersLocked(),
		Search:  p.search,
		Page:    p.pagination.Page,
		Limit:   p.pagination.Limit,
	}
	p.mu.Unlock()

	res, err := p.deps.CMS.List(ctx, p.layout.Domain, q)
	if err != nil {
		p.log.WarnContext(ctx, "fetch failed", "err", err)
		p.Notify(notification.LevelError, "Could not load records", "Try again in a moment.")
		return err
	}
	records, dropped := p.decode(res.Items)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		return nil
	}
	p.table.SetData(records)
	p.pagination.SetPaginationStats(res.Total)
	p.loaded = true
	p.dropped = dropped
	if dropped > 0 {
		p.log.WarnContext(ctx, "dropped invalid records", "count", dropped)
	}
	return nil
}

// queryFiltersLocked merges the store with staged bar selections the store
// does not declare.
func (p *Page) queryFiltersLocked() map[string]any {
	filters := p.store.State().Query()
	for k, v := range p.bar.Selected() {
		if _, declared := p.store.Schema().Kind(k); !declared {
			filters[k] = v
		}
	}
	return filters
}

// FilterChange mirrors a staged bar selection into the store without
// fetching.
func (p *Page) FilterChange(key, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	kind, ok := p.store.Schema().Kind(key)
	if !ok {
		return
	}
	switch kind {
	case filterstate.KindScalar:
		p.store.Update(filterstate.State{key: filterstate.Scalar(value)})
	case filterstate.KindSet:
		p.store.SetArray(key, []string{value})
	}
}

// Search sets the free-text query and fetches the first page.
func (p *Page) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	p.mu.Lock()
	p.search = query
	p.store.Update(filterstate.State{filterstate.FieldSearch: filterstate.Scalar(query)})
	p.pagination = utils.NewPagination(1, p.pagination.Limit)
	p.mu.Unlock()
	return p.FetchRecords(ctx)
}

func (p *Page) StartDateChange(t *time.Time) { p.setDate(filterstate.FieldStartDate, t) }
func (p *Page) EndDateChange(t *time.Time)   { p.setDate(filterstate.FieldEndDate, t) }

func (p *Page) setDate(field string, t *time.Time) {
	v := ""
	if t != nil {
		v = t.Format(time.RFC3339Nano)
	}
	p.mu.Lock()
	p.store.Update(filterstate.State{field: filterstate.Scalar(v)})
	p.mu.Unlock()
}

// Export builds the workbook for the current projection and keeps it for
// TakeExport.
func (p *Page) Export(ctx context.Context) error {
	p.mu.Lock()
	records, cols := p.table.Projection()
	narrowed := p.table.SelectionMode() && len(p.table.SelectedColumns()) > 0
	p.mu.Unlock()

	base := p.layout.Title
	if base == "" {
		base = p.layout.Domain
	}
	clock := export.WithClock(p.deps.Now)

	var wb *export.Workbook
	var err error
	if p.layout.Domain == "property" {
		props := make([]*models.Property, 0, len(records))
		for _, r := range records {
			if prop, ok := r.(*models.Property); ok {
				props = append(props, prop)
			}
		}
		opts := []export.Option{clock}
		if narrowed {
			opts = append(opts, export.WithColumns(cols))
		}
		wb, err = export.Properties(props, base, opts...)
	} else {
		wb, err = export.Table(sheetName(base), cols, records, base, clock)
	}
	if err != nil {
		p.Notify(notification.LevelError, "Export failed", "The workbook could not be generated.")
		return err
	}

	p.mu.Lock()
	p.pending = wb
	p.mu.Unlock()
	p.record(ctx, audit.ActionExport, map[string]any{"rows": len(records), "columns": len(cols), "file": wb.FileName})
	return nil
}

// TakeExport returns and forgets the last workbook built by Export.
func (p *Page) TakeExport() (*export.Workbook, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wb := p.pending
	p.pending = nil
	if wb == nil {
		return nil, ErrNoExport
	}
	return wb, nil
}

// sheetName trims to the 31 characters a worksheet name allows.
func sheetName(s string) string {
	if r := []rune(s); len(r) > 31 {
		return string(r[:31])
	}
	return s
}
