package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"EstateDesk/internal/cms"
)

var secret = []byte("test-secret")

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := Sign(Claims{
		UserEmail:        "ana@example.com",
		UserID:           "u-1",
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}, secret)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return s
}

func TestIsExpired(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"one second past", token(t, now.Add(-time.Second)), true},
		{"one second ahead", token(t, now.Add(time.Second)), false},
		{"garbage", "not.a.token", true},
		{"empty", "", true},
	}
	for _, c := range cases {
		if got := IsExpired(c.token, now); got != c.want {
			t.Errorf("%s: IsExpired = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	good := token(t, now.Add(time.Hour))

	c, err := Verify(good, secret, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got, want := c.Identity(), (Identity{"ana@example.com", "u-1", "admin"}); got != want {
		t.Fatalf("Identity = %+v, want %+v", got, want)
	}

	if _, err := Verify(good, []byte("other"), now); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("wrong secret: err = %v", err)
	}
	if _, err := Verify(token(t, now.Add(-time.Second)), secret, now); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expired: err = %v", err)
	}
	if _, err := Verify("", secret, now); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("empty: err = %v", err)
	}
}

type fakeUpstream struct {
	calls []cms.AuthAction
	body  json.RawMessage
	err   error
}

func (f *fakeUpstream) Auth(_ context.Context, a cms.AuthAction, _ json.RawMessage) (json.RawMessage, error) {
	f.calls = append(f.calls, a)
	return f.body, f.err
}

func TestVerifyOTPTracksSession(t *testing.T) {
	t.Parallel()
	now := time.Now()
	tok := token(t, now.Add(time.Hour))
	up := &fakeUpstream{body: json.RawMessage(`{"data":{"token":"` + tok + `"},"user":{"id":"u-1"}}`)}
	a := NewAuthService(up, Options{Secret: secret, SessionTimeout: 8 * time.Hour})

	body, got, err := a.VerifyOTP(context.Background(), json.RawMessage(`{"otp":"123456"}`), "10.0.0.1")
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if got != tok {
		t.Fatalf("token not extracted from %s", body)
	}
	sessions := a.GetActiveSessions()
	if len(sessions) != 1 || sessions[0].UserID != "u-1" || sessions[0].ClientIP != "10.0.0.1" {
		t.Fatalf("sessions = %+v", sessions)
	}
	if !sessions[0].ExpiresAt.Equal(now.Add(time.Hour).Truncate(time.Second)) {
		t.Fatalf("session expiry %v not capped by token exp", sessions[0].ExpiresAt)
	}

	if _, err := a.Authenticate(tok); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	if _, err := a.Logout(context.Background(), tok, nil); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if n := len(a.GetActiveSessions()); n != 0 {
		t.Fatalf("sessions after logout = %d", n)
	}
	want := []cms.AuthAction{cms.AuthVerifyOTP, cms.AuthLogout}
	if len(up.calls) != 2 || up.calls[0] != want[0] || up.calls[1] != want[1] {
		t.Fatalf("upstream calls = %v, want %v", up.calls, want)
	}
}

func TestExpireSessions(t *testing.T) {
	t.Parallel()
	now := time.Now()
	a := NewAuthService(&fakeUpstream{}, Options{SessionTimeout: time.Hour})
	a.users["stale"] = &UserSession{UserID: "stale", LastSeen: now.Add(-2 * time.Hour), ExpiresAt: now.Add(time.Hour)}
	a.users["over"] = &UserSession{UserID: "over", LastSeen: now, ExpiresAt: now.Add(-time.Second)}
	a.users["live"] = &UserSession{UserID: "live", LastSeen: now, ExpiresAt: now.Add(time.Hour)}

	gone := a.ExpireSessions()
	if len(gone) != 2 || gone[0] != "over" || gone[1] != "stale" {
		t.Fatalf("expired = %v", gone)
	}
	if s := a.GetActiveSessions(); len(s) != 1 || s[0].UserID != "live" {
		t.Fatalf("remaining = %+v", s)
	}
}

func TestExtractToken(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		`{"token":"a"}`:             "a",
		`{"authToken":"b"}`:         "b",
		`{"data":{"token":"c"}}`:    "c",
		`{"message":"otp invalid"}`: "",
		`not json`:                  "",
	}
	for in, want := range cases {
		if got := extractToken(json.RawMessage(in)); got != want {
			t.Errorf("extractToken(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestLimiter(t *testing.T) {
	t.Parallel()
	l := NewLimiter(1, time.Hour, 2)
	for i := 0; i < 2; i++ {
		if ok, _ := l.Allow("ip"); !ok {
			t.Fatalf("request %d rejected within burst", i)
		}
	}
	ok, wait := l.Allow("ip")
	if ok || wait < time.Second {
		t.Fatalf("third request: ok=%v wait=%v", ok, wait)
	}
	if ok, _ := l.Allow("other"); !ok {
		t.Fatal("keys share a bucket")
	}
}
