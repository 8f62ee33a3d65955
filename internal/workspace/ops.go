package workspace

import (
	"context"
	"time"

	"EstateDesk/api/utils"
	"EstateDesk/internal/audit"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/filterbar"
	"EstateDesk/internal/filterstate"
	"EstateDesk/internal/importer"
	"EstateDesk/internal/table"
)

// UpdateFilters shallow-merges partial into the store. Nothing is fetched.
func (p *Page) UpdateFilters(partial filterstate.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.Update(partial)
}

// UpdateRange sets a range field. Non-range fields are left alone.
func (p *Page) UpdateRange(field string, r filterstate.Range) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.UpdateRangeFilter(field, r)
}

// SetArray replaces a set field. Nothing is fetched.
func (p *Page) SetArray(field string, values []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store.SetArray(field, values)
}

// FilterState returns a copy of the store.
func (p *Page) FilterState() filterstate.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.State()
}

// SetPage changes pagination and fetches.
func (p *Page) SetPage(ctx context.Context, page, limit int) error {
	p.mu.Lock()
	if limit <= 0 {
		limit = p.pagination.Limit
	}
	p.pagination = utils.NewPagination(page, limit)
	p.mu.Unlock()
	return p.FetchRecords(ctx)
}

// Selection is the table selection state.
type Selection struct {
	Mode    bool     `json:"mode"`
	Rows    []string `json:"rows"`
	Columns []string `json:"columns"`
}

// SetSelection replaces the selection. Leaving selection mode clears it.
func (p *Page) SetSelection(sel Selection) Selection {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.table.SetSelectionMode(sel.Mode)
	if sel.Mode {
		p.table.SelectRows(sel.Rows)
		p.table.SelectColumns(sel.Columns)
	}
	return p.selectionLocked()
}

func (p *Page) selectionLocked() Selection {
	return Selection{
		Mode:    p.table.SelectionMode(),
		Rows:    p.table.SelectedRows(),
		Columns: p.table.SelectedColumns(),
	}
}

// Add triggers the table's add control when the page has one.
func (p *Page) Add(ctx context.Context) (bool, error) {
	p.mu.Lock()
	t := p.table
	p.mu.Unlock()
	if !t.AddAvailable() {
		return false, nil
	}
	return true, t.Add(ctx)
}

// KanbanColumn is one grouped column of rendered rows.
type KanbanColumn struct {
	Key  string     `json:"key"`
	IDs  []string   `json:"ids"`
	Rows [][]string `json:"rows"`
}

// Kanban groups the current rows by column, or by the layout default.
func (p *Page) Kanban(column string) []KanbanColumn {
	if column == "" {
		column = p.layout.KanbanBy
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	headers := p.table.Headers()
	groups := p.table.GroupBy(column)
	out := make([]KanbanColumn, len(groups))
	for i, g := range groups {
		col := KanbanColumn{Key: g.Key}
		for _, r := range g.Records {
			col.IDs = append(col.IDs, r.ID())
			row := make([]string, len(headers))
			for j, h := range headers {
				row[j] = table.Cell(r, h)
			}
			col.Rows = append(col.Rows, row)
		}
		out[i] = col
	}
	return out
}

// OpenImport shows the import modal.
func (p *Page) OpenImport() importer.Progress {
	p.bar.OpenImport()
	p.importer.Open()
	return p.importer.State()
}

// CloseImport hides the import modal.
func (p *Page) CloseImport() importer.Progress {
	p.bar.CloseImport()
	p.importer.Close()
	return p.importer.State()
}

// Import runs the drop-zone gate and the upload for one request.
func (p *Page) Import(ctx context.Context, files []importer.File) (*importer.Summary, *cms.ImportResult, error) {
	if !p.bar.ImportOpen() {
		p.OpenImport()
	}
	sum, res, err := p.importer.Run(ctx, files)
	if importer.DropRejected(err) {
		return nil, nil, err
	}
	detail := map[string]any{"file": files[0].Name}
	if res != nil {
		detail["inserted"] = res.InsertedEntries
		detail["skipped"] = res.SkippedDuplicateEntries
		detail["total"] = res.TotalEntries
	}
	if err != nil {
		detail["error"] = err.Error()
	}
	p.record(ctx, audit.ActionImport, detail)
	return sum, res, err
}

func (p *Page) upload(ctx context.Context, f importer.File, onSent cms.ProgressFunc) (*cms.ImportResult, error) {
	return p.deps.CMS.Import(ctx, p.layout.Domain, cms.Upload{FileName: f.Name, ContentType: f.MIME, Data: f.Data}, onSent)
}

func (p *Page) onImportProgress(s importer.Progress) {
	if !s.Open && p.bar.ImportOpen() && s.Status == importer.StatusIdle {
		p.bar.CloseImport()
	}
	p.deps.Publish(p.userID, "import_progress", s)
}

// Snapshot is everything the browser needs to render the page.
type Snapshot struct {
	Domain      string                    `json:"domain"`
	Title       string                    `json:"title"`
	Breadcrumbs []string                  `json:"breadcrumbs"`
	DatePickers bool                      `json:"datePickers"`
	Filters     []filterbar.FilterOption  `json:"filters"`
	Selected    filterbar.SelectedOptions `json:"selectedOptions"`
	FilterState map[string]any            `json:"filterState"`
	Search      string                    `json:"search"`
	Headers     []string                  `json:"headers"`
	IDs         []string                  `json:"ids"`
	Rows        [][]string                `json:"rows"`
	Loaded      bool                      `json:"loaded"`
	Dropped     int                       `json:"dropped,omitempty"`
	AllowAdd    bool                      `json:"allowAdd"`
	Selection   Selection                 `json:"selection"`
	Pagination  utils.PaginationParams    `json:"pagination"`
	ImportOpen  bool                      `json:"importOpen"`
	Import      importer.Progress         `json:"import"`
	GeneratedAt time.Time                 `json:"generatedAt"`
}

func (p *Page) Snapshot() Snapshot {
	s := Snapshot{
		Domain:      p.layout.Domain,
		Title:       p.layout.Title,
		Breadcrumbs: p.bar.Breadcrumbs(),
		DatePickers: p.bar.DatePickers(),
		Filters:     p.bar.Filters(),
		Selected:    p.bar.Selected(),
		ImportOpen:  p.bar.ImportOpen(),
		Import:      p.importer.State(),
		GeneratedAt: p.deps.Now(),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s.FilterState = p.store.State().JSON()
	s.Search = p.search
	rendered := p.table.Render()
	s.Headers = rendered[0]
	s.Rows = rendered[1:]
	for _, r := range p.table.Records() {
		s.IDs = append(s.IDs, r.ID())
	}
	s.Loaded = p.loaded
	s.Dropped = p.dropped
	s.AllowAdd = p.table.AddAvailable()
	s.Selection = p.selectionLocked()
	s.Pagination = p.pagination
	return s
}

// Schema is the declared filter record of this page.
func (p *Page) Schema() filterstate.Schema {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.store.Schema()
}
