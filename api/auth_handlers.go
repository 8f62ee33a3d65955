package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"EstateDesk/api/auth"
	"EstateDesk/api/constants"
	"EstateDesk/internal/cms"
)

const maxAuthBody = 64 << 10

// readJSONBody returns the raw body, or "{}" when it is empty.
func readJSONBody(r *http.Request, limit int64) (json.RawMessage, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("body too large")
	}
	if len(b) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(b) {
		return nil, errors.New("invalid json")
	}
	return b, nil
}

// respondUpstream maps a CMS failure: client errors keep their status and
// body, anything else is a 500.
func respondUpstream(w http.ResponseWriter, err error) {
	var ce *cms.Error
	if errors.As(err, &ce) && ce.StatusCode >= 400 && ce.StatusCode < 500 {
		if json.Valid([]byte(ce.Body)) {
			RespondWithRaw(w, ce.StatusCode, json.RawMessage(ce.Body))
			return
		}
		RespondWithError(w, ce.StatusCode, ce.Body)
		return
	}
	RespondWithError(w, http.StatusInternalServerError, constants.ErrUpstream)
}

func (s *GatewayService) proxyAuth(w http.ResponseWriter, r *http.Request,
	call func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)) {
	payload, err := readJSONBody(r, maxAuthBody)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	body, err := call(r.Context(), payload)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	RespondWithRaw(w, http.StatusOK, body)
}

func (s *GatewayService) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.proxyAuth(w, r, s.deps.Auth.Login)
}

func (s *GatewayService) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	s.proxyAuth(w, r, s.deps.Auth.ResendOTP)
}

// handleVerifyOTP returns the CMS session blob unchanged and sets the
// authToken cookie when the response carries a token.
func (s *GatewayService) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	payload, err := readJSONBody(r, maxAuthBody)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	body, token, err := s.deps.Auth.VerifyOTP(r.Context(), payload, extractClientIP(r))
	if err != nil {
		respondUpstream(w, err)
		return
	}
	if token != "" {
		cookie := &http.Cookie{
			Name:     constants.CookieAuthToken,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		}
		if c, err := auth.Inspect(token); err == nil && c.ExpiresAt != nil {
			cookie.Expires = c.ExpiresAt.Time
		}
		http.SetCookie(w, cookie)
	}
	RespondWithRaw(w, http.StatusOK, body)
}

func (s *GatewayService) handleLogout(w http.ResponseWriter, r *http.Request) {
	payload, err := readJSONBody(r, maxAuthBody)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
		return
	}
	var token string
	if c, err := r.Cookie(constants.CookieAuthToken); err == nil {
		token = c.Value
	}
	if claims, err := auth.Inspect(token); err == nil {
		s.deps.Sessions.DeleteUser(claims.Subject())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     constants.CookieAuthToken,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	body, err := s.deps.Auth.Logout(r.Context(), token, payload)
	if err != nil {
		respondUpstream(w, err)
		return
	}
	RespondWithRaw(w, http.StatusOK, body)
}

// handleMe decodes the authToken cookie. Missing, expired and invalid
// tokens are all a 401.
func (s *GatewayService) handleMe(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(constants.CookieAuthToken)
	if err != nil || c.Value == "" || auth.IsExpired(c.Value, s.deps.Now()) {
		RespondWithError(w, http.StatusUnauthorized, constants.ErrUnauthorized)
		return
	}
	claims, err := s.deps.Auth.Authenticate(c.Value)
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, constants.ErrUnauthorized)
		return
	}
	RespondWithJSON(w, http.StatusOK, claims.Identity())
}
