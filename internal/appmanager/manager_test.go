package appmanager

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"EstateDesk/internal/config"
)

const sequence = `
services:
  - name: gateway
    start_order: 9
    config:
      addr: ":0"
  - name: catalog
    start_order: 3
  - name: auth
    start_order: 5
    config:
      rate_limit: 10
  - name: mailer
    start_order: 6
  - name: cron
    start_order: 7
    enabled: false
`

func settings(t *testing.T) config.Settings {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filters.yaml")
	doc := "pages:\n  - domain: agent\n    headers: [name]\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	return config.Settings{
		CMSServers:      []string{"http://cms.test"},
		FiltersFile:     path,
		SessionTTL:      time.Hour,
		UpstreamTimeout: time.Second,
		TimeZone:        "UTC",
	}
}

func TestParseServiceSequenceSorts(t *testing.T) {
	t.Parallel()
	seq, err := ParseServiceSequence([]byte(sequence))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range seq {
		names = append(names, s.Name)
	}
	if got, want := strings.Join(names, ","), "catalog,auth,mailer,cron,gateway"; got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
}

func TestAutoRegisterServices(t *testing.T) {
	t.Parallel()
	seq, err := ParseServiceSequence([]byte(sequence))
	if err != nil {
		t.Fatal(err)
	}
	am := NewAppManager(settings(t), nil, nil)
	if err := am.AutoRegisterServices(seq); err != nil {
		t.Fatalf("AutoRegisterServices: %v", err)
	}
	for _, name := range []string{"catalog", "auth", "gateway"} {
		if am.GetServiceByName(name) == nil {
			t.Errorf("%s not registered", name)
		}
	}
	if am.GetServiceByName("cron") != nil {
		t.Error("disabled service registered")
	}
	if len(am.services) != 3 {
		t.Errorf("registered %d services, want 3", len(am.services))
	}
}

func TestGatewayNeedsAuth(t *testing.T) {
	t.Parallel()
	seq, err := ParseServiceSequence([]byte("services:\n  - name: gateway\n"))
	if err != nil {
		t.Fatal(err)
	}
	am := NewAppManager(settings(t), nil, nil)
	if err := am.AutoRegisterServices(seq); err == nil {
		t.Fatal("gateway built without auth and catalog")
	}
}
