package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AuthAction is one of the CMS credential endpoints.
type AuthAction string

const (
	AuthLogin     AuthAction = "login"
	AuthVerifyOTP AuthAction = "verify-otp"
	AuthResendOTP AuthAction = "resend-otp"
	AuthLogout    AuthAction = "logout"
)

func (a AuthAction) Valid() bool {
	switch a {
	case AuthLogin, AuthVerifyOTP, AuthResendOTP, AuthLogout:
		return true
	}
	return false
}

// Auth forwards a credential flow payload and returns the opaque reply.
func (c *Client) Auth(ctx context.Context, action AuthAction, payload json.RawMessage) (json.RawMessage, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("cms: unknown auth action %q", action)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodPost, "/auth/"+string(action), nil, payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
