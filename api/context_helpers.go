package api

import (
	"context"
	"net"
	"net/http"
	"strings"

	"EstateDesk/api/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

func withClaims(ctx context.Context, c *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromCtx returns the verified token claims set by RequireUser.
func ClaimsFromCtx(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

// GetUserIDFromCtx returns the signed-in user, or "".
func GetUserIDFromCtx(ctx context.Context) string {
	if c := ClaimsFromCtx(ctx); c != nil {
		return c.Subject()
	}
	return ""
}

// UserIDFromRequest is GetUserIDFromCtx for handlers that only see the
// request, such as the event stream.
func UserIDFromRequest(r *http.Request) string {
	return GetUserIDFromCtx(r.Context())
}

// extractClientIP prefers the first X-Forwarded-For hop.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
