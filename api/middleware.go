package api

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"EstateDesk/api/auth"
	"EstateDesk/api/constants"
)

// publicPrefixes never redirect to the login page.
var publicPrefixes = []string{"/auth/", "/login", "/health", "/api/me"}

func isPublic(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// TokenCookieMiddleware decodes the expiry of the token cookie on every
// request. It only redirects to /login when enforce is set; otherwise an
// expired or missing token passes through.
func TokenCookieMiddleware(enforce bool, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(constants.CookieToken); err == nil {
				token = c.Value
			}
			expired := auth.IsExpired(token, now())
			if expired && enforce && !isPublic(r.URL.Path) {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser verifies the authToken cookie and stores its claims in the
// request context. Every failure is a plain 401.
func RequireUser(svc *auth.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(constants.CookieAuthToken)
			if err != nil || c.Value == "" {
				RespondWithError(w, http.StatusUnauthorized, constants.ErrPleaseLogin)
				return
			}
			claims, err := svc.Authenticate(c.Value)
			if err != nil {
				RespondWithError(w, http.StatusUnauthorized, constants.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RateLimitMiddleware limits each client IP per route path.
func RateLimitMiddleware(l *auth.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := l.Allow(extractClientIP(r) + " " + r.URL.Path)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				RespondWithError(w, http.StatusTooManyRequests, constants.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps the event stream working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// RequestLogger logs one line per request and turns panics into 500s.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic", "path", r.URL.Path, "panic", rec)
					RespondWithError(rw, http.StatusInternalServerError, "internal error")
				}
				level := slog.LevelInfo
				if rw.statusCode >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				log.Log(r.Context(), level, "request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", rw.statusCode,
					"ip", extractClientIP(r),
					"took", time.Since(start))
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
