// Package cms talks to the remote content service: REST for auth, unit
// checks and imports, GraphQL for reads.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"EstateDesk/api/constants"
	"EstateDesk/pkg/loadbalancer"
)

var ErrNoServer = errors.New("cms: no server configured")

// Error is a non-2xx reply from the CMS.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("cms: status %d: %s", e.StatusCode, body)
}

// StatusCode returns the upstream status of err, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

type Client struct {
	lb         *loadbalancer.LoadBalancer
	graphqlURL string
	http       *http.Client
	log        *slog.Logger
}

// NewClient builds a client over one or more base URLs. An empty
// graphqlURL defaults to the first server plus "/graphql".
func NewClient(servers []string, graphqlURL string, timeout time.Duration) *Client {
	lb := loadbalancer.NewLoadBalancer(servers)
	if graphqlURL == "" {
		if s := lb.Servers(); len(s) > 0 {
			graphqlURL = s[0] + "/graphql"
		}
	}
	return &Client{
		lb:         lb,
		graphqlURL: graphqlURL,
		http:       &http.Client{Timeout: timeout},
		log:        slog.Default().With("component", "cms"),
	}
}

func (c *Client) endpoint(path string, q url.Values) (string, error) {
	base := c.lb.GetNextServer()
	if base == "" {
		return "", ErrNoServer
	}
	u := base + "/" + strings.TrimLeft(path, "/")
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u, nil
}

func (c *Client) send(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", req.Method, "url", req.URL.Path, "error", err)
		return fmt.Errorf("cms %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cms read body: %w", err)
	}
	c.log.Debug("request", "method", req.Method, "url", req.URL.Path, "status", resp.StatusCode, "took", time.Since(start))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("cms decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u, err := c.endpoint(path, q)
	if err != nil {
		return err
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("cms encode: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set(constants.ContentTypeText, constants.ContentTypeJSON)
	}
	req.Header.Set("Accept", constants.ContentTypeJSON)
	return c.send(req, out)
}

// CheckUnit asks whether a unit number is already taken in a project. The
// reply is passed through unchanged.
func (c *Client) CheckUnit(ctx context.Context, project, unitNumber string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("project", project)
	q.Set("unitNumber", unitNumber)
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/inventory/check-unit", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ping checks that a CMS server answers at all. Any status below 500 counts.
func (c *Client) Ping(ctx context.Context) error {
	u, err := c.endpoint("/", nil)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &Error{StatusCode: resp.StatusCode}
	}
	return nil
}
