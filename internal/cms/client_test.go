package cms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient([]string{srv.URL}, "", 5*time.Second)
}

func TestCheckUnit(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inventory/check-unit" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("project") != "Marina" || r.URL.Query().Get("unitNumber") != "12 B" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"exists":true}`))
	})
	got, err := c.CheckUnit(context.Background(), "Marina", "12 B")
	if err != nil {
		t.Fatalf("CheckUnit: %v", err)
	}
	if string(got) != `{"exists":true}` {
		t.Fatalf("got %s", got)
	}
}

func TestUpstreamError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	_, err := c.CheckUnit(context.Background(), "p", "u")
	if StatusCode(err) != http.StatusBadGateway {
		t.Fatalf("err = %v", err)
	}
}

func TestNoServer(t *testing.T) {
	t.Parallel()
	c := NewClient(nil, "", time.Second)
	if _, err := c.CheckUnit(context.Background(), "p", "u"); !errors.Is(err, ErrNoServer) {
		t.Fatalf("err = %v", err)
	}
}

func TestImportResultSpellings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		body string
		want ImportResult
	}{
		{`{"success":true,"insertedEntries":3,"skippedDuplicateEntires":2,"totalEntries":5}`, ImportResult{true, 3, 2, 5}},
		{`{"success":true,"insertedEntries":1,"skippedDuplicateEntries":4,"totalEntries":5}`, ImportResult{true, 1, 4, 5}},
		{`{"success":false}`, ImportResult{}},
	}
	for _, tt := range tests {
		var got ImportResult
		if err := json.Unmarshal([]byte(tt.body), &got); err != nil {
			t.Fatalf("%s: %v", tt.body, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.body, got, tt.want)
		}
	}
}

func TestImportMultipart(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subDevelopment/import" {
			t.Errorf("path = %s", r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "units.csv" || string(data) != "a,b\n1,2\n" {
			t.Errorf("file %q = %q", hdr.Filename, data)
		}
		w.Write([]byte(`{"success":true,"insertedEntries":1,"skippedDuplicateEntires":0,"totalEntries":1}`))
	})

	var mu sync.Mutex
	var last, total int64
	res, err := c.Import(context.Background(), "subDevelopment",
		Upload{FileName: "units.csv", ContentType: "text/csv", Data: []byte("a,b\n1,2\n")},
		func(sent, size int64) {
			mu.Lock()
			last, total = sent, size
			mu.Unlock()
		})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if !res.Success || res.InsertedEntries != 1 {
		t.Fatalf("res = %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if total == 0 || last != total {
		t.Fatalf("progress %d/%d", last, total)
	}
}

func TestImportFileNameEscaping(t *testing.T) {
	t.Parallel()
	names := []string{`Q1 units "final".csv`, "وحدات مارينا.xlsx"}
	for _, name := range names {
		got := make(chan string, 1)
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, hdr, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile(%q): %v", name, err)
				got <- ""
				return
			}
			got <- hdr.Filename
			w.Write([]byte(`{"success":true}`))
		})
		if _, err := c.Import(context.Background(), "project", Upload{FileName: name, Data: []byte("x")}, nil); err != nil {
			t.Fatalf("Import(%q): %v", name, err)
		}
		if g := <-got; g != name {
			t.Errorf("server saw filename %q, want %q", g, name)
		}
	}
}

func TestGetProperty(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/graphql" || !strings.Contains(body.Query, "getProperty") {
			t.Errorf("path %s query %q", r.URL.Path, body.Query)
		}
		switch body.Variables["docId"] {
		case "p1":
			w.Write([]byte(`{"data":{"getProperty":{"docId":"p1","unitNumber":"1204","primaryPrice":"1500000"}}}`))
		case "missing":
			w.Write([]byte(`{"data":{"getProperty":null}}`))
		default:
			w.Write([]byte(`{"errors":[{"message":"bad id"}]}`))
		}
	})

	p, err := c.GetProperty(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProperty: %v", err)
	}
	if p.UnitNumber != "1204" || p.PrimaryPrice == nil || p.PrimaryPrice.String() != "1500000" {
		t.Fatalf("p = %+v", p)
	}
	if _, err := c.GetProperty(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing: err = %v", err)
	}
	var gqlErr GraphQLErrors
	if _, err := c.GetProperty(context.Background(), "x"); !errors.As(err, &gqlErr) {
		t.Fatalf("x: err = %v", err)
	}
}

func TestList(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if !strings.Contains(body.Query, "getAgents") || body.Variables["search"] != "sa" {
			t.Errorf("query %q vars %v", body.Query, body.Variables)
		}
		w.Write([]byte(`{"data":{"list":{"total":7,"items":[{"docId":"a1"},{"docId":"a2"}]}}}`))
	})
	res, err := c.List(context.Background(), "agent", ListQuery{Search: "sa", Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Total != 7 || len(res.Items) != 2 {
		t.Fatalf("res = %+v", res)
	}
	if _, err := c.List(context.Background(), "boats", ListQuery{}); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("err = %v", err)
	}
}

func TestAuthAction(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/verify-otp" || r.Method != http.MethodPost {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"token":"t"}`))
	})
	out, err := c.Auth(context.Background(), AuthVerifyOTP, json.RawMessage(`{"otp":"123456"}`))
	if err != nil || string(out) != `{"token":"t"}` {
		t.Fatalf("out = %s, err = %v", out, err)
	}
	if _, err := c.Auth(context.Background(), "reset", nil); err == nil {
		t.Fatal("unknown action accepted")
	}
}
