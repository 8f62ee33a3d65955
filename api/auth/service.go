package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"EstateDesk/internal/cms"
	"EstateDesk/internal/logger"
)

// Upstream is the identity side of the CMS.
type Upstream interface {
	Auth(ctx context.Context, action cms.AuthAction, payload json.RawMessage) (json.RawMessage, error)
}

type UserSession struct {
	UserID        string    `json:"userId"`
	Email         string    `json:"useremail"`
	Role          string    `json:"role"`
	ClientIP      string    `json:"clientIp"`
	LastLoginTime time.Time `json:"lastLoginTime"`
	LastSeen      time.Time `json:"lastSeen"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// AuthService proxies the credential and OTP flows to the CMS and keeps the
// set of users currently signed in to this gateway.
type AuthService struct {
	upstream       Upstream
	secret         []byte
	ledger         *sql.DB
	ledgerTable    string
	sessionTimeout time.Duration
	cleanerPeriod  time.Duration
	limiter        *Limiter
	users          map[string]*UserSession
	mu             sync.Mutex
	stopCh         chan struct{}
	stopOnce       sync.Once
	now            func() time.Time
}

// Options configure an AuthService. Zero values fall back to defaults.
type Options struct {
	Secret          []byte
	Ledger          *sql.DB
	LedgerTable     string
	SessionTimeout  time.Duration
	CleanerPeriod   time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
	RateLimitBurst  int
}

func NewAuthService(upstream Upstream, opts Options) *AuthService {
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 8 * time.Hour
	}
	if opts.CleanerPeriod <= 0 {
		opts.CleanerPeriod = 10 * time.Minute
	}
	if opts.LedgerTable == "" {
		opts.LedgerTable = "dashboard_sign_ins"
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 3
	}
	return &AuthService{
		upstream:       upstream,
		secret:         opts.Secret,
		ledger:         opts.Ledger,
		ledgerTable:    opts.LedgerTable,
		sessionTimeout: opts.SessionTimeout,
		cleanerPeriod:  opts.CleanerPeriod,
		limiter:        NewLimiter(opts.RateLimit, opts.RateLimitWindow, opts.RateLimitBurst),
		users:          make(map[string]*UserSession),
		stopCh:         make(chan struct{}),
		now:            time.Now,
	}
}

func (a *AuthService) Name() string { return "auth" }

func (a *AuthService) Start() error {
	if a.ledger != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.ensureLedger(ctx); err != nil {
			return fmt.Errorf("auth ledger: %w", err)
		}
	}
	go a.sessionCleaner()
	return nil
}

func (a *AuthService) Stop() error {
	a.stopOnce.Do(func() { close(a.stopCh) })
	return nil
}

// Limiter is shared with the gateway's auth routes.
func (a *AuthService) Limiter() *Limiter { return a.limiter }

// Authenticate verifies a token and refreshes the caller's session.
func (a *AuthService) Authenticate(token string) (*Claims, error) {
	claims, err := Verify(token, a.secret, a.now())
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	if s, ok := a.users[claims.Subject()]; ok {
		s.LastSeen = a.now()
	}
	a.mu.Unlock()
	return claims, nil
}

func (a *AuthService) Login(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return a.upstream.Auth(ctx, cms.AuthLogin, payload)
}

func (a *AuthService) ResendOTP(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return a.upstream.Auth(ctx, cms.AuthResendOTP, payload)
}

// VerifyOTP completes sign-in. It returns the upstream body unchanged and the
// token found in it, if any.
func (a *AuthService) VerifyOTP(ctx context.Context, payload json.RawMessage, clientIP string) (json.RawMessage, string, error) {
	body, err := a.upstream.Auth(ctx, cms.AuthVerifyOTP, payload)
	if err != nil {
		return nil, "", err
	}
	token := extractToken(body)
	if token == "" {
		return body, "", nil
	}
	claims, err := Inspect(token)
	if err != nil {
		return body, token, nil
	}

	now := a.now()
	s := &UserSession{
		UserID:        claims.Subject(),
		Email:         claims.UserEmail,
		Role:          claims.Role,
		ClientIP:      clientIP,
		LastLoginTime: now,
		LastSeen:      now,
		ExpiresAt:     now.Add(a.sessionTimeout),
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(s.ExpiresAt) {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	a.mu.Lock()
	a.users[s.UserID] = s
	a.mu.Unlock()

	logger.Audit("user signed in", "user", s.UserID, "ip", clientIP)
	a.recordLedger(ctx, "sign_in", s)
	return body, token, nil
}

// Logout forwards to the CMS and forgets the session even when the upstream
// call fails.
func (a *AuthService) Logout(ctx context.Context, token string, payload json.RawMessage) (json.RawMessage, error) {
	if claims, err := Inspect(token); err == nil {
		a.mu.Lock()
		s, ok := a.users[claims.Subject()]
		delete(a.users, claims.Subject())
		a.mu.Unlock()
		if ok {
			logger.Audit("user signed out", "user", s.UserID)
			a.recordLedger(ctx, "sign_out", s)
		}
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return a.upstream.Auth(ctx, cms.AuthLogout, payload)
}

func (a *AuthService) GetActiveSessions() []*UserSession {
	a.mu.Lock()
	defer a.mu.Unlock()
	sessions := make([]*UserSession, 0, len(a.users))
	for _, s := range a.users {
		c := *s
		sessions = append(sessions, &c)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].UserID < sessions[j].UserID })
	return sessions
}

// ExpireSessions drops sessions past their expiry or idle for longer than the
// session timeout. It returns the user IDs removed.
func (a *AuthService) ExpireSessions() []string {
	now := a.now()
	a.mu.Lock()
	defer a.mu.Unlock()
	var gone []string
	for id, s := range a.users {
		if !now.Before(s.ExpiresAt) || now.Sub(s.LastSeen) > a.sessionTimeout {
			delete(a.users, id)
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	return gone
}

func (a *AuthService) sessionCleaner() {
	ticker := time.NewTicker(a.cleanerPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			if gone := a.ExpireSessions(); len(gone) > 0 {
				logger.Audit("auth sessions expired", "users", gone)
			}
			a.limiter.Cleanup()
		}
	}
}

// extractToken finds the session token in a verify-otp response. The CMS has
// returned it as token, authToken and data.token over time.
func extractToken(body json.RawMessage) string {
	var doc struct {
		Token     string `json:"token"`
		AuthToken string `json:"authToken"`
		Data      struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return ""
	}
	switch {
	case doc.Token != "":
		return doc.Token
	case doc.AuthToken != "":
		return doc.AuthToken
	default:
		return doc.Data.Token
	}
}

func (a *AuthService) ensureLedger(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		event TEXT NOT NULL,
		user_id TEXT NOT NULL,
		email TEXT,
		client_ip TEXT,
		at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, pq.QuoteIdentifier(a.ledgerTable))
	_, err := a.ledger.ExecContext(ctx, q)
	return err
}

func (a *AuthService) recordLedger(ctx context.Context, event string, s *UserSession) {
	if a.ledger == nil {
		return
	}
	q := fmt.Sprintf(`INSERT INTO %s (event, user_id, email, client_ip, at) VALUES ($1, $2, $3, $4, $5)`,
		pq.QuoteIdentifier(a.ledgerTable))
	_, err := a.ledger.ExecContext(context.WithoutCancel(ctx), q, event, s.UserID, s.Email, s.ClientIP, a.now())
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Audit("auth ledger write failed", "event", event, "err", err)
	}
}
