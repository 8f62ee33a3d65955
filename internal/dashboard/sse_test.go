package dashboard

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandleSSERequiresUser(t *testing.T) {
	s := NewSSEServer(func(*http.Request) string { return "" }, time.Hour)
	rec := httptest.NewRecorder()
	s.HandleSSE(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestPublishReachesClient(t *testing.T) {
	s := NewSSEServer(func(r *http.Request) string { return r.Header.Get("X-User") }, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	srv := httptest.NewServer(http.HandlerFunc(s.HandleSSE))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	req.Header.Set("X-User", "u1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) {
		t.Helper()
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), prefix) {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, sc.Err())
	}
	waitFor("event: connected")

	if !s.Publish("u1", "import_progress", map[string]int{"progress": 40}) {
		t.Fatal("Publish reported no client")
	}
	waitFor("event: import_progress")
	if !sc.Scan() || !strings.Contains(sc.Text(), `"progress":40`) {
		t.Fatalf("data line = %q", sc.Text())
	}
	if s.Publish("nobody", "x", nil) {
		t.Fatal("Publish to unknown user succeeded")
	}
}
