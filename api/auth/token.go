package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated covers every token failure: missing, malformed, badly
// signed or expired.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims is the identity carried by an authToken.
type Claims struct {
	UserEmail string `json:"useremail"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the public view returned by /api/me.
type Identity struct {
	UserEmail string `json:"useremail"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
}

func (c *Claims) Identity() Identity {
	return Identity{UserEmail: c.UserEmail, UserID: c.UserID, Role: c.Role}
}

// Subject returns the key used to scope per-user state.
func (c *Claims) Subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.UserEmail
}

// Inspect decodes claims without checking the signature.
func Inspect(token string) (*Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, ErrUnauthenticated
	}
	return &c, nil
}

// IsExpired decodes exp without verifying the signature. Tokens that cannot be
// decoded or carry no exp are expired.
func IsExpired(token string, now time.Time) bool {
	c, err := Inspect(token)
	if err != nil || c.ExpiresAt == nil {
		return true
	}
	return !now.Before(c.ExpiresAt.Time)
}

// Verify checks the HMAC signature and expiry at now.
func Verify(token string, secret []byte, now time.Time) (*Claims, error) {
	if token == "" || len(secret) == 0 {
		return nil, ErrUnauthenticated
	}
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return &c, nil
}

// Sign issues an HS256 token. Used by tests and estatectl.
func Sign(c Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}
