package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultTimeZone     = "Asia/Dubai"
	DefaultHTTPAddr     = ":8081"
	DefaultGraphQLPath  = "/graphql"
	DefaultPageSize     = 20
	MaxPageSize         = 500
	DefaultSessionTTL   = 8 * time.Hour
	DefaultSweepSpec    = "@every 1m"
	DefaultAuditPruning = "0 3 * * *"
	AuditRetentionDays  = 90

	// Import pipeline
	ImportProgressStep     = 10
	ImportProgressInterval = 300 * time.Millisecond
	ImportProgressCap      = 95
	ImportAutoCloseDelay   = 1500 * time.Millisecond
	MaxUploadBytes         = 32 << 20
)

// Settings is the process configuration read from the environment.
type Settings struct {
	CMSServers      []string
	GraphQLURL      string
	JWTSecret       string
	HTTPAddr        string
	DatabaseURL     string
	LedgerDSN       string
	LogLevel        string
	LogDir          string
	FiltersFile     string
	ServicesFile    string
	TimeZone        string
	SessionTTL      time.Duration
	LoginRedirect   bool
	UpstreamTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) Settings {
	// .env is optional for deployed environments
	_ = godotenv.Load(envFiles...)

	s := Settings{
		CMSServers:      splitList(firstEnv("CMS_SERVER", "NEXT_PUBLIC_CMS_SERVER")),
		GraphQLURL:      os.Getenv("CMS_GRAPHQL_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		HTTPAddr:        envOr("HTTP_ADDR", DefaultHTTPAddr),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		LedgerDSN:       os.Getenv("LEDGER_DSN"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogDir:          envOr("LOG_DIR", "./logs"),
		FiltersFile:     envOr("FILTERS_FILE", "filters.yaml"),
		ServicesFile:    envOr("SERVICES_FILE", "services.yaml"),
		TimeZone:        envOr("TZ_NAME", DefaultTimeZone),
		SessionTTL:      envDuration("SESSION_TTL", DefaultSessionTTL),
		LoginRedirect:   envBool("ENFORCE_LOGIN_REDIRECT"),
		UpstreamTimeout: envDuration("UPSTREAM_TIMEOUT", 30*time.Second),
	}
	if s.GraphQLURL == "" && len(s.CMSServers) > 0 {
		s.GraphQLURL = s.CMSServers[0] + DefaultGraphQLPath
	}
	return s
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimRight(strings.TrimSpace(p), "/"); t != "" {
			out = append(out, t)
		}
	}
	return out
}
