// Package importer runs the spreadsheet import modal: file gate, upload
// with progress, result notification and auto-close.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"EstateDesk/api/constants"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/config"
	"EstateDesk/internal/notification"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

var (
	ErrTooManyFiles    = errors.New("only one file can be imported at a time")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoFile          = errors.New("no file selected")
	ErrBusy            = errors.New("an import is already running")
	ErrRejected        = errors.New("import rejected by server")
)

var acceptedExt = map[string]bool{".xlsx": true, ".xls": true, ".csv": true}

var acceptedMIME = map[string]bool{
	constants.ContentTypeXLSX: true,
	constants.ContentTypeXLS:  true,
	constants.ContentTypeCSV:  true,
}

// File is a dropped file.
type File struct {
	Name string
	MIME string
	Data []byte
}

// Accepted reports whether the extension or the MIME type is a spreadsheet.
func (f File) Accepted() bool {
	if acceptedExt[strings.ToLower(filepath.Ext(f.Name))] {
		return true
	}
	mt, _, err := mime.ParseMediaType(f.MIME)
	return err == nil && acceptedMIME[mt]
}

// UploadFunc sends the file. onSent may be called from another goroutine.
type UploadFunc func(ctx context.Context, f File, onSent cms.ProgressFunc) (*cms.ImportResult, error)

// Notifier receives the success and failure toasts.
type Notifier interface {
	Notify(level notification.Level, title, message string) notification.Notification
}

// Progress is a snapshot of the pipeline pushed to observers.
type Progress struct {
	Domain   string            `json:"domain"`
	Status   Status            `json:"status"`
	Progress int               `json:"progress"`
	Open     bool              `json:"open"`
	FileName string            `json:"fileName,omitempty"`
	Result   *cms.ImportResult `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
}

type Observer func(Progress)

type Option func(*Pipeline)

// WithProgressRamp sets the simulated ramp.
func WithProgressRamp(step int, interval time.Duration, limit int) Option {
	return func(p *Pipeline) { p.step, p.interval, p.limit = step, interval, limit }
}

// WithSimulatedProgress ignores byte progress and always ramps.
func WithSimulatedProgress() Option {
	return func(p *Pipeline) { p.forceSimulated = true }
}

// WithAutoClose sets the delay between success and closing. Zero disables it.
func WithAutoClose(d time.Duration) Option {
	return func(p *Pipeline) { p.closeDelay = d }
}

func WithRefresh(fn func(ctx context.Context) error) Option {
	return func(p *Pipeline) { p.refresh = fn }
}

func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// Pipeline is one page's import modal. At most one upload runs at a time.
type Pipeline struct {
	domain string
	upload UploadFunc

	step           int
	interval       time.Duration
	limit          int
	forceSimulated bool
	closeDelay     time.Duration
	refresh        func(ctx context.Context) error
	notifier       Notifier
	observers      []Observer
	log            *slog.Logger

	mu         sync.Mutex
	open       bool
	status     Status
	progress   int
	file       *File
	result     *cms.ImportResult
	lastErr    error
	closeTimer *time.Timer
	gen        int
}

func New(domain string, upload UploadFunc, opts ...Option) *Pipeline {
	p := &Pipeline{
		domain:     domain,
		upload:     upload,
		step:       config.ImportProgressStep,
		interval:   config.ImportProgressInterval,
		limit:      config.ImportProgressCap,
		closeDelay: config.ImportAutoCloseDelay,
		status:     StatusIdle,
		log:        slog.Default().With("component", "importer", "domain", domain),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pipeline) snapshotLocked() Progress {
	s := Progress{
		Domain:   p.domain,
		Status:   p.status,
		Progress: p.progress,
		Open:     p.open,
		Result:   p.result,
	}
	if p.file != nil {
		s.FileName = p.file.Name
	}
	if p.lastErr != nil {
		s.Error = p.lastErr.Error()
	}
	return s
}

// State returns the current snapshot.
func (p *Pipeline) State() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pipeline) emit(s Progress) {
	for _, o := range p.observers {
		o(s)
	}
}

// resetLocked returns to idle and invalidates any pending timers.
func (p *Pipeline) resetLocked() {
	if p.closeTimer != nil {
		p.closeTimer.Stop()
		p.closeTimer = nil
	}
	p.gen++
	p.status = StatusIdle
	p.progress = 0
	p.file = nil
	p.result = nil
	p.lastErr = nil
}

// Open shows the modal in a fresh idle state. It does not interrupt a
// running upload.
func (p *Pipeline) Open() {
	p.mu.Lock()
	if p.status != StatusUploading {
		p.resetLocked()
	}
	p.open = true
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(s)
}

// Close hides the modal and returns to idle.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.open = false
	if p.status != StatusUploading {
		p.resetLocked()
	}
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(s)
}

// DropRejected reports whether err came from the drop-zone gate, before any
// upload started.
func DropRejected(err error) bool {
	for _, target := range []error{ErrNoFile, ErrTooManyFiles, ErrUnsupportedType, ErrBusy, ErrUnreadable, ErrEmptySheet} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// gate applies the drop-zone rules and previews the file.
func (p *Pipeline) gate(files []File) (File, *Summary, error) {
	if len(files) == 0 {
		return File{}, nil, ErrNoFile
	}
	if len(files) > 1 {
		return File{}, nil, ErrTooManyFiles
	}
	f := files[0]
	if !f.Accepted() {
		return File{}, nil, fmt.Errorf("%w: %s", ErrUnsupportedType, f.Name)
	}
	p.mu.Lock()
	busy := p.status == StatusUploading
	p.mu.Unlock()
	if busy {
		return File{}, nil, ErrBusy
	}

	// MIME-only matches may lack a spreadsheet extension; those skip the preview.
	var sum *Summary
	if acceptedExt[strings.ToLower(filepath.Ext(f.Name))] {
		var err error
		if sum, err = Preview(f); err != nil {
			return File{}, nil, err
		}
	}
	return f, sum, nil
}

// Accept applies the drop-zone gate and stages the file for Submit.
// Rejected drops leave the state as it was.
func (p *Pipeline) Accept(files []File) (*Summary, error) {
	f, sum, err := p.gate(files)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	if p.status == StatusUploading {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	p.resetLocked()
	p.file = &f
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(s)
	return sum, nil
}

// Submit uploads the staged file and blocks until the CMS answers.
func (p *Pipeline) Submit(ctx context.Context) (*cms.ImportResult, error) {
	p.mu.Lock()
	f, s, err := p.beginLocked()
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p.emit(s)
	return p.run(ctx, f)
}

// Run stages files and starts the upload under one lock, so a concurrent
// Accept, Submit or Run cannot swap the file in between. It blocks until
// the CMS answers.
func (p *Pipeline) Run(ctx context.Context, files []File) (*Summary, *cms.ImportResult, error) {
	f, sum, err := p.gate(files)
	if err != nil {
		return nil, nil, err
	}
	p.mu.Lock()
	if p.status == StatusUploading {
		p.mu.Unlock()
		return nil, nil, ErrBusy
	}
	p.resetLocked()
	p.file = &f
	f, s, err := p.beginLocked()
	p.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	p.emit(s)
	res, err := p.run(ctx, f)
	return sum, res, err
}

func (p *Pipeline) beginLocked() (File, Progress, error) {
	if p.file == nil {
		return File{}, Progress{}, ErrNoFile
	}
	if p.status == StatusUploading {
		return File{}, Progress{}, ErrBusy
	}
	if p.closeTimer != nil {
		p.closeTimer.Stop()
		p.closeTimer = nil
	}
	p.status = StatusUploading
	p.progress = 0
	p.result = nil
	p.lastErr = nil
	return *p.file, p.snapshotLocked(), nil
}

func (p *Pipeline) run(ctx context.Context, f File) (*cms.ImportResult, error) {
	simulated := p.forceSimulated || len(f.Data) == 0
	stop := make(chan struct{})
	var wg sync.WaitGroup
	if simulated {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.ramp(stop)
		}()
	}

	var onSent cms.ProgressFunc
	if !simulated {
		onSent = p.byteProgress
	}
	res, err := p.upload(ctx, f, onSent)

	close(stop)
	wg.Wait()

	if err == nil && (res == nil || !res.Success) {
		err = ErrRejected
	}
	if err != nil {
		p.fail(f, err)
		return res, err
	}
	p.succeed(ctx, f, res)
	return res, nil
}

// ramp advances progress by step every interval, never past limit.
func (p *Pipeline) ramp(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.setProgress(func(cur int) int { return cur + p.step })
		}
	}
}

func (p *Pipeline) byteProgress(sent, total int64) {
	if total <= 0 {
		return
	}
	p.setProgress(func(int) int { return int(sent * 100 / total) })
}

func (p *Pipeline) setProgress(next func(cur int) int) {
	p.mu.Lock()
	if p.status != StatusUploading {
		p.mu.Unlock()
		return
	}
	v := min(next(p.progress), p.limit)
	if v <= p.progress {
		p.mu.Unlock()
		return
	}
	p.progress = v
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(s)
}

func (p *Pipeline) fail(f File, err error) {
	p.log.Warn("import failed", "file", f.Name, "error", err)
	p.mu.Lock()
	p.status = StatusError
	p.progress = 0
	p.lastErr = err
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(s)
	if p.notifier != nil {
		p.notifier.Notify(notification.LevelError, "Import failed", failureMessage(err))
	}
}

func (p *Pipeline) succeed(ctx context.Context, f File, res *cms.ImportResult) {
	p.log.Info("import complete", "file", f.Name,
		"inserted", res.InsertedEntries, "skipped", res.SkippedDuplicateEntries, "total", res.TotalEntries)
	p.mu.Lock()
	p.status = StatusSuccess
	p.progress = 100
	p.result = res
	s := p.snapshotLocked()
	p.mu.Unlock()
	p.emit(s)

	if p.refresh != nil {
		if err := p.refresh(ctx); err != nil {
			p.log.Warn("refresh after import failed", "error", err)
		}
	}
	if p.notifier != nil {
		p.notifier.Notify(notification.LevelSuccess, "Import complete",
			fmt.Sprintf("%d inserted, %d duplicates skipped", res.InsertedEntries, res.SkippedDuplicateEntries))
	}

	if p.closeDelay <= 0 {
		return
	}
	p.mu.Lock()
	gen := p.gen
	p.closeTimer = time.AfterFunc(p.closeDelay, func() {
		p.mu.Lock()
		if p.gen != gen || p.status != StatusSuccess {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
		p.Close()
	})
	p.mu.Unlock()
}

func failureMessage(err error) string {
	if code := cms.StatusCode(err); code != 0 {
		return fmt.Sprintf("The server answered %d. Check the file and try again.", code)
	}
	if errors.Is(err, ErrRejected) {
		return "The server rejected the file. Check the file and try again."
	}
	return "The upload did not complete. Try again."
}
