package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"EstateDesk/api/auth"
	"EstateDesk/api/constants"
	"EstateDesk/internal/catalog"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/filterbar"
	"EstateDesk/internal/models"
	"EstateDesk/internal/session"
	"EstateDesk/internal/workspace"
)

var testSecret = []byte("gateway-secret")

type fakeUpstream struct {
	body json.RawMessage
	err  error
}

func (f *fakeUpstream) Auth(context.Context, cms.AuthAction, json.RawMessage) (json.RawMessage, error) {
	return f.body, f.err
}

type fakeInventory struct {
	body json.RawMessage
	err  error
}

func (f *fakeInventory) CheckUnit(context.Context, string, string) (json.RawMessage, error) {
	return f.body, f.err
}

func (f *fakeInventory) GetProperty(_ context.Context, docID string) (*models.Property, error) {
	if docID == "missing" {
		return nil, cms.ErrNotFound
	}
	return &models.Property{DocID: docID}, nil
}

type fakeCMS struct {
	mu      sync.Mutex
	lists   int
	imports int
}

func (f *fakeCMS) List(context.Context, string, cms.ListQuery) (*cms.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	return &cms.ListResult{
		Items: []json.RawMessage{
			json.RawMessage(`{"docId":"a1","name":"Sara","status":"Active"}`),
			json.RawMessage(`{"docId":"a2","name":"Omar","status":"Inactive"}`),
		},
		Total: 2,
	}, nil
}

func (f *fakeCMS) Import(context.Context, string, cms.Upload, cms.ProgressFunc) (*cms.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports++
	return &cms.ImportResult{Success: true, InsertedEntries: 1, TotalEntries: 1}, nil
}

func (f *fakeCMS) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists, f.imports
}

type harness struct {
	handler http.Handler
	cms     *fakeCMS
	inv     *fakeInventory
	up      *fakeUpstream
}

func newHarness(t *testing.T, cfg map[string]interface{}) *harness {
	t.Helper()
	h := &harness{cms: &fakeCMS{}, inv: &fakeInventory{body: json.RawMessage(`{"available":true}`)}, up: &fakeUpstream{}}
	svc := NewGatewayService(cfg, Deps{
		Auth:      auth.NewAuthService(h.up, auth.Options{Secret: testSecret, RateLimit: 1, RateLimitWindow: time.Hour, RateLimitBurst: 2}),
		Inventory: h.inv,
		Catalog: catalog.FromPages(catalog.Page{
			Domain:   "agent",
			Title:    "Agents",
			Headers:  []string{"name", "status"},
			KanbanBy: "status",
			Import:   true,
			Filters: []filterbar.FilterOption{
				{Key: "status", Label: "Agent Status", Options: []string{"Active", "Inactive"}},
			},
		}),
		Sessions: session.NewManager(time.Hour),
		Pages:    workspace.Deps{CMS: h.cms},
	})
	h.handler = svc.Router()
	return h
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := auth.Sign(auth.Claims{
		UserEmail:        "sara@example.com",
		UserID:           "u-7",
		Role:             "agent",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func (h *harness) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(constants.ContentTypeText, constants.ContentTypeJSON)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: constants.CookieAuthToken, Value: token})
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func pageData(t *testing.T, rec *httptest.ResponseRecorder) pageView {
	t.Helper()
	var env struct {
		Success bool     `json:"success"`
		Data    pageView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return env.Data
}

func TestMe(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"expired", signed(t, time.Now().Add(-time.Minute)), http.StatusUnauthorized},
		{"garbage", "abc.def.ghi", http.StatusUnauthorized},
		{"valid", signed(t, time.Now().Add(time.Hour)), http.StatusOK},
	}
	for _, c := range cases {
		rec := h.do(t, http.MethodGet, "/api/me", "", c.token)
		if rec.Code != c.want {
			t.Errorf("%s: status = %d, want %d", c.name, rec.Code, c.want)
		}
	}

	rec := h.do(t, http.MethodGet, "/api/me", "", signed(t, time.Now().Add(time.Hour)))
	var got auth.Identity
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if want := (auth.Identity{UserEmail: "sara@example.com", UserID: "u-7", Role: "agent"}); got != want {
		t.Fatalf("identity = %+v, want %+v", got, want)
	}
}

func TestCheckUnit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	if rec := h.do(t, http.MethodGet, "/inventory/check-unit?project=Palm", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing unitNumber: status = %d", rec.Code)
	}
	rec := h.do(t, http.MethodGet, "/inventory/check-unit?project=Palm&unitNumber=101", "", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"available":true}` {
		t.Fatalf("ok: %d %s", rec.Code, rec.Body.String())
	}

	h2 := newHarness(t, nil)
	h2.inv.err = errors.New("dial tcp: refused")
	if rec := h2.do(t, http.MethodGet, "/inventory/check-unit?project=Palm&unitNumber=101", "", ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("upstream failure: status = %d", rec.Code)
	}
}

func TestPropertyDetail(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	tok := signed(t, time.Now().Add(time.Hour))
	if rec := h.do(t, http.MethodGet, "/api/properties/p-1", "", tok); rec.Code != http.StatusOK {
		t.Fatalf("found: status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/properties/missing", "", tok); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/properties/p-1", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: status = %d", rec.Code)
	}
}

func TestPageSelectThenApply(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	tok := signed(t, time.Now().Add(time.Hour))

	view := pageData(t, h.do(t, http.MethodGet, "/api/pages/agent", "", tok))
	if len(view.Rows) != 2 || view.Headers[0] != "name" {
		t.Fatalf("snapshot = %+v", view.Snapshot)
	}
	lists, _ := h.cms.counts()

	rec := h.do(t, http.MethodPost, "/api/pages/agent/filters/select", `{"key":"status","value":"Active"}`, tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("select: %d %s", rec.Code, rec.Body.String())
	}
	if got, _ := h.cms.counts(); got != lists {
		t.Fatalf("select fetched: lists = %d, want %d", got, lists)
	}
	if sel := pageData(t, rec).Selected; sel["status"] != "Active" {
		t.Fatalf("selected = %v", sel)
	}

	h.do(t, http.MethodPost, "/api/pages/agent/filters/apply", "", tok)
	if got, _ := h.cms.counts(); got != lists+1 {
		t.Fatalf("apply: lists = %d, want %d", got, lists+1)
	}

	if rec := h.do(t, http.MethodPost, "/api/pages/agent/filters/select", `{"key":"team","value":"x"}`, tok); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown filter: status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/pages/unicorns", "", tok); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown page: status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodGet, "/api/pages/agent", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous page: status = %d", rec.Code)
	}
}

func TestPageExport(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	tok := signed(t, time.Now().Add(time.Hour))
	h.do(t, http.MethodGet, "/api/pages/agent", "", tok)

	rec := h.do(t, http.MethodGet, "/api/pages/agent/export", "", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(constants.ContentTypeText); ct != constants.ContentTypeXLSX {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get(constants.HeaderContentDisposition); !strings.Contains(cd, "Agents-") || !strings.HasSuffix(cd, `.xlsx"`) {
		t.Fatalf("disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatal("body is not a zip container")
	}
}

func TestPageImport(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	tok := signed(t, time.Now().Add(time.Hour))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "agents.csv")
	fw.Write([]byte("name,status\nSara,Active\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/pages/agent/import", &buf)
	req.Header.Set(constants.ContentTypeText, mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: constants.CookieAuthToken, Value: tok})
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import: %d %s", rec.Code, rec.Body.String())
	}
	if _, imports := h.cms.counts(); imports != 1 {
		t.Fatalf("imports = %d, want 1", imports)
	}

	var docx bytes.Buffer
	mw = multipart.NewWriter(&docx)
	fw, _ = mw.CreateFormFile("file", "notes.docx")
	fw.Write([]byte("x"))
	mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/api/pages/agent/import", &docx)
	req.Header.Set(constants.ContentTypeText, mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: constants.CookieAuthToken, Value: tok})
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("docx: status = %d", rec.Code)
	}
}

func TestVerifyOTPSetsCookie(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	tok := signed(t, time.Now().Add(time.Hour))
	h.up.body = json.RawMessage(`{"token":"` + tok + `","user":{"name":"Sara"}}`)

	rec := h.do(t, http.MethodPost, "/auth/verify-otp", `{"otp":"123456"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("verify-otp: %d %s", rec.Code, rec.Body.String())
	}
	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == constants.CookieAuthToken && c.Value == tok && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("authToken cookie not set")
	}
}

func TestAuthRateLimit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.up.body = json.RawMessage(`{"sent":true}`)
	for i := 0; i < 2; i++ {
		if rec := h.do(t, http.MethodPost, "/auth/resend-otp", `{}`, ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := h.do(t, http.MethodPost, "/auth/resend-otp", `{}`, "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("third request: status = %d retry-after = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestUpstreamAuthErrorPassesThrough(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	h.up.err = &cms.Error{StatusCode: http.StatusUnauthorized, Body: `{"message":"wrong otp"}`}
	rec := h.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.c"}`, "")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "wrong otp") {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
}

func TestTokenCookieRedirect(t *testing.T) {
	t.Parallel()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	cases := []struct {
		enforce bool
		path    string
		want    int
	}{
		{false, "/api/pages/agent", http.StatusNoContent},
		{true, "/api/pages/agent", http.StatusFound},
		{true, "/auth/login", http.StatusNoContent},
		{true, "/health", http.StatusNoContent},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		TokenCookieMiddleware(c.enforce, time.Now)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, c.path, nil))
		if rec.Code != c.want {
			t.Errorf("enforce=%v %s: status = %d, want %d", c.enforce, c.path, rec.Code, c.want)
		}
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h := newHarness(t, nil)
	if rec := h.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
}
