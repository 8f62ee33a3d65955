package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"EstateDesk/api/constants"
	"EstateDesk/internal/config"
	"EstateDesk/internal/filterbar"
	"EstateDesk/internal/filterstate"
	"EstateDesk/internal/importer"
	"EstateDesk/internal/notification"
	"EstateDesk/internal/workspace"
)

const maxPageBody = 1 << 20

func (s *GatewayService) pageRoutes(r *mux.Router) {
	r.HandleFunc("", s.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/filters/select", s.handleSelect).Methods(http.MethodPost)
	r.HandleFunc("/filters/update", s.handleUpdate).Methods(http.MethodPost)
	r.HandleFunc("/filters/range", s.handleRange).Methods(http.MethodPost)
	r.HandleFunc("/filters/dates", s.handleDates).Methods(http.MethodPost)
	r.HandleFunc("/filters/apply", s.handleApply).Methods(http.MethodPost)
	r.HandleFunc("/filters/clear", s.handleClear).Methods(http.MethodPost)
	r.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	r.HandleFunc("/page", s.handlePagination).Methods(http.MethodPost)
	r.HandleFunc("/selection", s.handleSelection).Methods(http.MethodPost)
	r.HandleFunc("/add", s.handleAdd).Methods(http.MethodPost)
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/kanban", s.handleKanban).Methods(http.MethodGet)
	r.HandleFunc("/import/open", s.handleImportOpen).Methods(http.MethodPost)
	r.HandleFunc("/import/close", s.handleImportClose).Methods(http.MethodPost)
	r.HandleFunc("/import/status", s.handleImportStatus).Methods(http.MethodGet)
	r.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
}

// pageView is the page snapshot plus the toasts raised since the last call.
type pageView struct {
	workspace.Snapshot
	Notifications []notification.Notification `json:"notifications"`
}

// page returns the caller's page for the {domain} route variable.
func (s *GatewayService) page(w http.ResponseWriter, r *http.Request) (*workspace.Page, bool) {
	domain := mux.Vars(r)["domain"]
	layout, ok := s.deps.Catalog.Page(domain)
	if !ok || !workspace.Supported(domain) {
		RespondWithError(w, http.StatusNotFound, constants.ErrUnknownPage)
		return nil, false
	}
	user := GetUserIDFromCtx(r.Context())
	sess, err := s.deps.Sessions.GetOrCreate(user, domain, func() (*workspace.Page, error) {
		return workspace.New(user, layout, s.deps.Pages)
	})
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return sess.Page, true
}

func (s *GatewayService) respondPage(w http.ResponseWriter, p *workspace.Page) {
	notes := p.Notifications()
	if notes == nil {
		notes = []notification.Notification{}
	}
	RespondWithPayload(w, pageView{Snapshot: p.Snapshot(), Notifications: notes})
}

func decodeBody(r *http.Request, v interface{}) error {
	d := json.NewDecoder(io.LimitReader(r.Body, maxPageBody))
	if err := d.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondPageError maps page and import errors to statuses.
func respondPageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, filterbar.ErrUnknownFilter), errors.Is(err, filterbar.ErrUnknownOption):
		RespondWithError(w, http.StatusBadRequest, constants.ErrUnknownFilter)
	case errors.Is(err, filterbar.ErrNotSupported):
		RespondWithError(w, http.StatusBadRequest, constants.ErrNotSupported)
	case errors.Is(err, importer.ErrTooManyFiles):
		RespondWithError(w, http.StatusBadRequest, constants.ErrTooManyFiles)
	case errors.Is(err, importer.ErrUnsupportedType):
		RespondWithError(w, http.StatusBadRequest, constants.ErrUnsupportedFile)
	case errors.Is(err, importer.ErrNoFile):
		RespondWithError(w, http.StatusBadRequest, constants.ErrNothingToImport)
	case errors.Is(err, importer.ErrUnreadable), errors.Is(err, importer.ErrEmptySheet):
		RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, importer.ErrBusy):
		RespondWithError(w, http.StatusConflict, constants.ErrImportInProgress)
	case errors.Is(err, importer.ErrRejected):
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		RespondWithError(w, http.StatusInternalServerError, constants.ErrUpstream)
	}
}

// handlePage returns the snapshot, loading the first page on first visit.
// A failed load shows up as a toast in the snapshot.
func (s *GatewayService) handlePage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	if !p.Snapshot().Loaded {
		_ = p.FetchRecords(r.Context())
	}
	s.respondPage(w, p)
}

func (s *GatewayService) handleSelect(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var req struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := decodeBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	if err := p.Bar().Select(req.Key, req.Value); err != nil {
		respondPageError(w, err)
		return
	}
	s.respondPage(w, p)
}

func (s *GatewayService) handleUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	p.UpdateFilters(p.Schema().Decode(raw))
	s.respondPage(w, p)
}

func (s *GatewayService) handleRange(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string   `json:"field"`
		Min   *float64 `json:"min"`
		Max   *float64 `json:"max"`
	}
	if err := decodeBody(r, &req); err != nil || req.Field == "" {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	p.UpdateRange(req.Field, filterstate.Range{Min: req.Min, Max: req.Max})
	s.respondPage(w, p)
}

// parseDate accepts RFC 3339 or a bare calendar date in the configured zone.
func parseDate(raw json.RawMessage, loc *time.Location) (*time.Time, error) {
	var str *string
	if err := json.Unmarshal(raw, &str); err != nil {
		return nil, err
	}
	if str == nil || strings.TrimSpace(*str) == "" {
		return nil, nil
	}
	v := strings.TrimSpace(*str)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(constants.DateFormat, v, loc)
	if err != nil {
		return nil, fmt.Errorf("bad date %q", v)
	}
	return &t, nil
}

func (s *GatewayService) location() *time.Location {
	tz := config.DefaultTimeZone
	if v, ok := s.config["timezone"].(string); ok && v != "" {
		tz = v
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (s *GatewayService) handleDates(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	loc := s.location()
	if v, present := raw[filterstate.FieldStartDate]; present {
		t, err := parseDate(v, loc)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := p.Bar().SetStartDate(t); err != nil {
			respondPageError(w, err)
			return
		}
	}
	if v, present := raw[filterstate.FieldEndDate]; present {
		t, err := parseDate(v, loc)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := p.Bar().SetEndDate(t); err != nil {
			respondPageError(w, err)
			return
		}
	}
	s.respondPage(w, p)
}

func (s *GatewayService) handleApply(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	_ = p.Bar().Apply(r.Context())
	s.respondPage(w, p)
}

func (s *GatewayService) handleClear(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	_ = p.Bar().Clear(r.Context())
	s.respondPage(w, p)
}

func (s *GatewayService) handleSearch(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var req struct {
		Query string `json:"query"`
	}
	if err := decodeBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	_ = p.Bar().Search(r.Context(), req.Query)
	s.respondPage(w, p)
}

func (s *GatewayService) handlePagination(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var req struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
	}
	if err := decodeBody(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	_ = p.SetPage(r.Context(), req.Page, req.Limit)
	s.respondPage(w, p)
}

func (s *GatewayService) handleSelection(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	var sel workspace.Selection
	if err := decodeBody(r, &sel); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	RespondWithPayload(w, p.SetSelection(sel))
}

func (s *GatewayService) handleAdd(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	available, err := p.Add(r.Context())
	if !available {
		RespondWithError(w, http.StatusBadRequest, constants.ErrNotSupported)
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	RespondWithResult(w, true, "")
}

// handleExport streams the workbook for the current rows, or the selected
// subset in selection mode.
func (s *GatewayService) handleExport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	if err := p.Bar().Export(r.Context()); err != nil {
		respondPageError(w, err)
		return
	}
	wb, err := p.TakeExport()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeXLSX)
	w.Header().Set(constants.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", wb.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(wb.Data)
}

func (s *GatewayService) handleKanban(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	RespondWithPayload(w, p.Kanban(r.URL.Query().Get("groupBy")))
}

func (s *GatewayService) handleImportOpen(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	RespondWithPayload(w, p.OpenImport())
}

func (s *GatewayService) handleImportClose(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	RespondWithPayload(w, p.CloseImport())
}

func (s *GatewayService) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	RespondWithPayload(w, p.Importer().State())
}

// handleImport takes the multipart "file" field and runs it through the
// import pipeline. Progress is pushed on the event stream meanwhile.
func (s *GatewayService) handleImport(w http.ResponseWriter, r *http.Request) {
	p, ok := s.page(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUploadFile)
		return
	}
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUploadFile)
		return
	}
	files := make([]importer.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUploadFile)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, constants.ErrMissingUploadFile)
			return
		}
		files = append(files, importer.File{Name: fh.Filename, MIME: fh.Header.Get(constants.ContentTypeText), Data: data})
	}

	summary, result, err := p.Import(r.Context(), files)
	if err != nil {
		respondPageError(w, err)
		return
	}
	RespondWithPayload(w, map[string]interface{}{
		"summary": summary,
		"result":  result,
		"import":  p.Importer().State(),
	})
}
