package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"EstateDesk/api/auth"
	"EstateDesk/api/constants"
	"EstateDesk/internal/audit"
	"EstateDesk/internal/catalog"
	"EstateDesk/internal/config"
	"EstateDesk/internal/logger"
	"EstateDesk/internal/models"
	"EstateDesk/internal/resource"
	"EstateDesk/internal/session"
	"EstateDesk/internal/workspace"
)

// Inventory is the read side of the CMS used outside list pages.
type Inventory interface {
	CheckUnit(ctx context.Context, project, unitNumber string) (json.RawMessage, error)
	GetProperty(ctx context.Context, docID string) (*models.Property, error)
}

// ActivityLog lists a user's recent audited actions.
type ActivityLog interface {
	Recent(ctx context.Context, userID string, limit int) ([]audit.Entry, error)
}

// Deps are the services the gateway routes to.
type Deps struct {
	Auth      *auth.AuthService
	Inventory Inventory
	Catalog   *catalog.Catalog
	Sessions  *session.Manager
	Pages     workspace.Deps
	Events    http.Handler
	Resources *resource.ResourceManager
	Activity  ActivityLog
	Now       func() time.Time
}

type GatewayService struct {
	config map[string]interface{}
	deps   Deps
	addr   string
	server *http.Server
	log    *slog.Logger
}

func NewGatewayService(cfg map[string]interface{}, deps Deps) *GatewayService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	addr := config.DefaultHTTPAddr
	if v, ok := cfg["addr"].(string); ok && v != "" {
		addr = v
	}
	return &GatewayService{
		config: cfg,
		deps:   deps,
		addr:   addr,
		log:    slog.Default().With("component", "gateway"),
	}
}

func (s *GatewayService) Name() string {
	return "gateway"
}

func (s *GatewayService) Addr() string { return s.addr }

func (s *GatewayService) enforceLogin() bool {
	v, _ := s.config["enforce_login_redirect"].(bool)
	return v
}

// Router builds the route table.
func (s *GatewayService) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestLogger(s.log), TokenCookieMiddleware(s.enforceLogin(), s.deps.Now))

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.Use(RateLimitMiddleware(s.deps.Auth.Limiter()))
	authRoutes.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	authRoutes.HandleFunc("/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	authRoutes.HandleFunc("/resend-otp", s.handleResendOTP).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/api/me", s.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/inventory/check-unit", s.handleCheckUnit).Methods(http.MethodGet)

	user := r.PathPrefix("/api").Subrouter()
	user.Use(RequireUser(s.deps.Auth))
	user.HandleFunc("/properties/{docId}", s.handleProperty).Methods(http.MethodGet)
	user.HandleFunc("/sessions", s.handleSessions).Methods(http.MethodGet)
	user.HandleFunc("/activity", s.handleActivity).Methods(http.MethodGet)
	if s.deps.Events != nil {
		user.Handle("/events", s.deps.Events).Methods(http.MethodGet)
	}
	s.pageRoutes(user.PathPrefix("/pages/{domain}").Subrouter())

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Audit("[Gateway] route not found", "path", r.URL.Path, "ip", extractClientIP(r))
		RespondWithError(w, http.StatusNotFound, "route not found")
	})
	return r
}

func (s *GatewayService) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Audit("API Gateway started", "addr", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("gateway server failed", "err", err)
		}
	}()
	return nil
}

func (s *GatewayService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *GatewayService) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	status := http.StatusOK
	if rm := s.deps.Resources; rm != nil {
		body["resources"] = rm.Health()
		if !rm.Healthy() {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	RespondWithJSON(w, status, body)
}

func (s *GatewayService) handleSessions(w http.ResponseWriter, r *http.Request) {
	if c := ClaimsFromCtx(r.Context()); c == nil || c.Role != "admin" {
		RespondWithError(w, http.StatusForbidden, constants.ErrUnauthorized)
		return
	}
	RespondWithPayload(w, s.deps.Auth.GetActiveSessions())
}

func (s *GatewayService) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.deps.Activity == nil {
		RespondWithPayload(w, []audit.Entry{})
		return
	}
	entries, err := s.deps.Activity.Recent(r.Context(), GetUserIDFromCtx(r.Context()), 50)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, constants.ErrUpstream)
		return
	}
	RespondWithPayload(w, entries)
}
