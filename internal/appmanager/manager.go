package appmanager

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"EstateDesk/api"
	"EstateDesk/api/auth"
	"EstateDesk/internal/audit"
	"EstateDesk/internal/catalog"
	"EstateDesk/internal/cms"
	"EstateDesk/internal/config"
	"EstateDesk/internal/dashboard"
	"EstateDesk/internal/importer"
	"EstateDesk/internal/jobs"
	"EstateDesk/internal/logger"
	"EstateDesk/internal/resource"
	"EstateDesk/internal/serviceiface"
	"EstateDesk/internal/session"
	"EstateDesk/internal/workspace"
)

type constructor func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error)

var serviceConstructors = map[string]constructor{
	"logger": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		if _, ok := cfg["folder_path"]; !ok {
			cfg["folder_path"] = am.settings.LogDir
		}
		if _, ok := cfg["level"]; !ok {
			cfg["level"] = am.settings.LogLevel
		}
		l := logger.NewLoggerService(cfg)
		logger.SetGlobalLogger(l)
		return l, nil
	},
	"resourcemanager": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		am.resources = resource.NewResourceManagerService(cfg)
		am.resources.AddResource("cms", am.cms)
		if am.pool != nil {
			am.resources.AddResource("audit_db", am.pool)
		}
		if am.db != nil {
			am.resources.AddResource("ledger_db", sqlPinger{am.db})
		}
		return am.resources, nil
	},
	"catalog": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		path := am.settings.FiltersFile
		if v, ok := cfg["path"].(string); ok && v != "" {
			path = v
		}
		c, err := catalog.Load(path)
		if err != nil {
			return nil, err
		}
		am.catalog = c
		return c, nil
	},
	"sse": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		ping := 30 * time.Second
		if v, ok := cfg["ping_interval"].(string); ok {
			if d, err := time.ParseDuration(v); err == nil {
				ping = d
			}
		}
		am.events = dashboard.NewSSEServer(api.UserIDFromRequest, ping)
		return am.events, nil
	},
	"auth": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		opts := auth.Options{
			Secret:         []byte(am.settings.JWTSecret),
			Ledger:         am.db,
			SessionTimeout: am.settings.SessionTTL,
		}
		if v, ok := cfg["ledger_table"].(string); ok {
			opts.LedgerTable = v
		}
		if v := toInt(cfg["session_cleaner_period"]); v > 0 {
			opts.CleanerPeriod = time.Duration(v) * time.Second
		}
		if v := toInt(cfg["rate_limit"]); v > 0 {
			opts.RateLimit = v
		}
		if v := toInt(cfg["rate_limit_window"]); v > 0 {
			opts.RateLimitWindow = time.Duration(v) * time.Second
		}
		if v := toInt(cfg["rate_limit_burst"]); v > 0 {
			opts.RateLimitBurst = v
		}
		am.auth = auth.NewAuthService(am.cms, opts)
		return am.auth, nil
	},
	"cron": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		if _, ok := cfg["timezone"]; !ok {
			cfg["timezone"] = am.settings.TimeZone
		}
		svc := jobs.NewCronService(cfg, jobs.SessionSweepJob(am.sessions))
		if am.pgAudit != nil {
			svc.AddJob(jobs.AuditPruneJob(am.pgAudit, toInt(cfg["audit_retention_days"])))
		}
		return svc, nil
	},
	"gateway": func(am *AppManager, cfg map[string]interface{}) (serviceiface.Service, error) {
		if am.auth == nil || am.catalog == nil {
			return nil, fmt.Errorf("gateway needs the auth and catalog services")
		}
		if _, ok := cfg["addr"]; !ok {
			cfg["addr"] = am.settings.HTTPAddr
		}
		if _, ok := cfg["enforce_login_redirect"]; !ok {
			cfg["enforce_login_redirect"] = am.settings.LoginRedirect
		}
		if _, ok := cfg["timezone"]; !ok {
			cfg["timezone"] = am.settings.TimeZone
		}
		deps := api.Deps{
			Auth:      am.auth,
			Inventory: am.cms,
			Catalog:   am.catalog,
			Sessions:  am.sessions,
			Resources: am.resources,
			Pages: workspace.Deps{
				CMS:   am.cms,
				Audit: am.audit,
				ImportOptions: []importer.Option{
					importer.WithProgressRamp(config.ImportProgressStep, config.ImportProgressInterval, config.ImportProgressCap),
					importer.WithAutoClose(config.ImportAutoCloseDelay),
				},
			},
		}
		if am.pgAudit != nil {
			deps.Activity = am.pgAudit
		}
		if am.events != nil {
			deps.Events = http.HandlerFunc(am.events.HandleSSE)
			deps.Pages.Publish = am.events.Publish
		}
		return api.NewGatewayService(cfg, deps), nil
	},
}

// sqlPinger adapts *sql.DB to the resource heartbeat.
type sqlPinger struct{ db *sql.DB }

func (p sqlPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// ------------------- MANAGER -------------------

type AppManager struct {
	services []serviceiface.Service
	mu       sync.Mutex

	settings  config.Settings
	db        *sql.DB
	pool      *pgxpool.Pool
	cms       *cms.Client
	sessions  *session.Manager
	audit     audit.Recorder
	pgAudit   *audit.PGRecorder
	resources *resource.ResourceManager
	catalog   *catalog.Catalog
	events    *dashboard.SSEServer
	auth      *auth.AuthService
}

// NewAppManager holds the shared clients. db (sign-in ledger) and pool
// (audit log) may be nil.
func NewAppManager(settings config.Settings, db *sql.DB, pool *pgxpool.Pool) *AppManager {
	am := &AppManager{
		services: make([]serviceiface.Service, 0),
		settings: settings,
		db:       db,
		pool:     pool,
		cms:      cms.NewClient(settings.CMSServers, settings.GraphQLURL, settings.UpstreamTimeout),
		sessions: session.NewManager(settings.SessionTTL),
		audit:    audit.LogRecorder{},
	}
	if pool != nil {
		am.pgAudit = audit.NewPGRecorder(pool, "")
		am.audit = audit.Tee(audit.LogRecorder{}, am.pgAudit)
	}
	return am
}

func (am *AppManager) RegisterService(s serviceiface.Service) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.services = append(am.services, s)
}

// StartAll starts services in registration order; the resource manager goes
// last so its first heartbeat sees every shared resource.
func (am *AppManager) StartAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()

	if am.pgAudit != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := am.pgAudit.EnsureSchema(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("audit schema: %w", err)
		}
	}

	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			continue
		}
		slog.Info("starting service", "service", service.Name())
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
		}
	}
	for _, service := range am.services {
		if service.Name() == "resourcemanager" {
			slog.Info("starting service", "service", service.Name())
			if err := service.Start(); err != nil {
				return fmt.Errorf("failed to start service %s: %w", service.Name(), err)
			}
		}
	}
	return nil
}

func (am *AppManager) StopAll() error {
	am.mu.Lock()
	defer am.mu.Unlock()
	for i := len(am.services) - 1; i >= 0; i-- {
		svc := am.services[i]
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", svc.Name(), err)
		}
	}
	return nil
}

// ------------------- YAML CONFIG -------------------

type ServiceSequencer struct {
	Services []ServiceConfig `yaml:"services"`
}

type ServiceConfig struct {
	Name       string                 `yaml:"name"`
	StartOrder int                    `yaml:"start_order"`
	Enabled    *bool                  `yaml:"enabled"`
	Config     map[string]interface{} `yaml:"config"`
}

func LoadServiceSequence(path string) ([]ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseServiceSequence(data)
}

// ParseServiceSequence decodes services.yaml and sorts it by start_order.
func ParseServiceSequence(data []byte) ([]ServiceConfig, error) {
	var seq ServiceSequencer
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, err
	}
	sort.SliceStable(seq.Services, func(i, j int) bool {
		return seq.Services[i].StartOrder < seq.Services[j].StartOrder
	})
	return seq.Services, nil
}

// AutoRegisterServices builds every enabled service in order. Unknown names
// are logged and skipped.
func (am *AppManager) AutoRegisterServices(configs []ServiceConfig) error {
	for _, svc := range configs {
		if svc.Enabled != nil && !*svc.Enabled {
			continue
		}
		build, ok := serviceConstructors[svc.Name]
		if !ok {
			slog.Warn("unknown service in sequence", "service", svc.Name)
			continue
		}
		cfg := svc.Config
		if cfg == nil {
			cfg = map[string]interface{}{}
		}
		service, err := build(am, cfg)
		if err != nil {
			return fmt.Errorf("build service %s: %w", svc.Name, err)
		}
		am.RegisterService(service)
	}
	return nil
}

func (am *AppManager) GetServiceByName(name string) serviceiface.Service {
	am.mu.Lock()
	defer am.mu.Unlock()
	for _, svc := range am.services {
		if svc.Name() == name {
			return svc
		}
	}
	return nil
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(t, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}
