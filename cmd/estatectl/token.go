package main

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"EstateDesk/api/auth"
	"EstateDesk/internal/config"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect, verify or mint dashboard auth tokens",
	}
	cmd.AddCommand(tokenInspectCmd())
	cmd.AddCommand(tokenSignCmd())
	return cmd
}

type tokenReport struct {
	Identity  auth.Identity `json:"identity"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	Expired   bool          `json:"expired"`
	Verified  *bool         `json:"verified,omitempty"`
}

func inspectToken(token string, secret []byte, now time.Time) (tokenReport, error) {
	c, err := auth.Inspect(token)
	if err != nil {
		return tokenReport{}, err
	}
	r := tokenReport{Identity: c.Identity(), Expired: auth.IsExpired(token, now)}
	if c.ExpiresAt != nil {
		exp := c.ExpiresAt.Time
		r.ExpiresAt = &exp
	}
	if len(secret) > 0 {
		_, verr := auth.Verify(token, secret, now)
		ok := verr == nil
		r.Verified = &ok
	}
	return r, nil
}

func tokenInspectCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "inspect [TOKEN]",
		Short: "Decode a token (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				token = string(raw)
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("no token given")
			}
			var secret []byte
			if verify {
				secret = []byte(config.Load().JWTSecret)
				if len(secret) == 0 {
					return errors.New("--verify needs JWT_SECRET")
				}
			}
			r, err := inspectToken(token, secret, time.Now())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "Also check the signature against JWT_SECRET")
	return cmd
}

type signOptions struct {
	email string
	user  string
	role  string
	ttl   time.Duration
}

func signToken(o signOptions, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("JWT_SECRET is not set")
	}
	if o.email == "" && o.user == "" {
		return "", errors.New("one of --email or --user is required")
	}
	user := o.user
	if user == "" {
		user = uuid.NewString()
	}
	return auth.Sign(auth.Claims{
		UserEmail: o.email,
		UserID:    user,
		Role:      o.role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
		},
	}, secret)
}

func tokenSignCmd() *cobra.Command {
	var o signOptions
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Mint a token signed with JWT_SECRET for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := signToken(o, []byte(config.Load().JWTSecret), time.Now())
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&o.email, "email", "", "useremail claim")
	cmd.Flags().StringVar(&o.user, "user", "", "userId claim (random when omitted)")
	cmd.Flags().StringVar(&o.role, "role", "admin", "role claim")
	cmd.Flags().DurationVar(&o.ttl, "ttl", config.DefaultSessionTTL, "Lifetime")
	return cmd
}
