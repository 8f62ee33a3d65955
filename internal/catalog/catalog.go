// Package catalog loads the per-page filter bar layout from filters.yaml and
// reloads it when the file changes.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"EstateDesk/internal/checksum"
	"EstateDesk/internal/filterbar"
)

var ErrInvalid = errors.New("invalid filter catalog")

// Page is the static layout of one list page.
type Page struct {
	Domain      string                   `yaml:"domain" json:"domain"`
	Title       string                   `yaml:"title" json:"title"`
	Breadcrumbs []string                 `yaml:"breadcrumbs" json:"breadcrumbs"`
	DatePickers bool                     `yaml:"date_pickers" json:"datePickers"`
	Headers     []string                 `yaml:"headers" json:"headers"`
	KanbanBy    string                   `yaml:"kanban_by" json:"kanbanBy,omitempty"`
	AllowAdd    bool                     `yaml:"allow_add" json:"allowAdd"`
	Import      bool                     `yaml:"import" json:"import"`
	Filters     []filterbar.FilterOption `yaml:"filters" json:"filters"`
}

type document struct {
	Pages []Page `yaml:"pages"`
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (map[string]Page, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalid)
	}
	pages := make(map[string]Page, len(doc.Pages))
	for i, p := range doc.Pages {
		if p.Domain == "" {
			return nil, fmt.Errorf("%w: page %d has no domain", ErrInvalid, i)
		}
		if _, dup := pages[p.Domain]; dup {
			return nil, fmt.Errorf("%w: duplicate page %q", ErrInvalid, p.Domain)
		}
		keys := map[string]bool{}
		for _, f := range p.Filters {
			if f.Key == "" || keys[f.Key] {
				return nil, fmt.Errorf("%w: page %q has an empty or duplicate filter key %q", ErrInvalid, p.Domain, f.Key)
			}
			keys[f.Key] = true
		}
		pages[p.Domain] = p
	}
	return pages, nil
}

// Catalog holds the current layout. It is safe for concurrent use.
type Catalog struct {
	path string
	log  *slog.Logger
	sum  checksum.Matcher

	mu       sync.RWMutex
	pages    map[string]Page
	onChange []func()

	cancel context.CancelFunc
}

// Load reads path once.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path, log: slog.Default().With("component", "catalog")}
	if _, err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromPages builds a static catalog, mostly for tests.
func FromPages(pages ...Page) *Catalog {
	m := make(map[string]Page, len(pages))
	for _, p := range pages {
		m[p.Domain] = p
	}
	return &Catalog{pages: m, log: slog.Default().With("component", "catalog")}
}

// reload reports false without touching the layout when the file content
// is unchanged since the last successful load.
func (c *Catalog) reload() (bool, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", c.path, err)
	}
	if c.sum.Match(data) {
		return false, nil
	}
	pages, err := Parse(data)
	if err != nil {
		return false, err
	}
	c.sum.Accept(data)
	c.mu.Lock()
	c.pages = pages
	hooks := append([]func(){}, c.onChange...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return true, nil
}

// Checksum is the SHA-256 of the loaded file, empty for static catalogs.
func (c *Catalog) Checksum() string { return c.sum.Current() }

// Page returns the layout of a domain.
func (c *Catalog) Page(domain string) (Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pages[domain]
	return p, ok
}

func (c *Catalog) Domains() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.pages))
	for d := range c.pages {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// OnChange registers fn to run after every successful reload.
func (c *Catalog) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Watch reloads the file on change until ctx is done. The directory is
// watched so editors that replace the file are seen. A broken edit keeps the
// previous layout.
func (c *Catalog) Watch(ctx context.Context) error {
	if c.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(c.path)); err != nil {
		_ = w.Close()
		return err
	}
	name := filepath.Clean(c.path)
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != name || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				changed, err := c.reload()
				if err != nil {
					c.log.WarnContext(ctx, "filter catalog reload failed", "path", c.path, "err", err)
					continue
				}
				if changed {
					c.log.InfoContext(ctx, "filter catalog reloaded", "path", c.path, "sha256", c.Checksum())
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.log.WarnContext(ctx, "error watching filter catalog", "err", err)
			}
		}
	}()
	return nil
}

func (c *Catalog) Name() string { return "catalog" }

func (c *Catalog) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	return c.Watch(ctx)
}

func (c *Catalog) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}
