// Package client is the HTTP implementation of the gateway contract.  It
// holds the in-memory session, attaches the bearer token to row reads and
// refreshes the token once when the gateway answers 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/loyalty-rewards/internal/gateway"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: status %d", e.Status)
	}
	return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
}

// Is makes a 404 match gateway.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == gateway.ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to the gateway over HTTP.
type Client struct {
	base string
	http *http.Client
	log  logger.Logger

	mu      sync.Mutex
	session *gateway.Session

	// emitMu serializes session changes with their delivery so listeners
	// observe events in the order the session changed.
	emitMu    sync.Mutex
	listeners map[int]func(gateway.Event)
	nextID    int

	refreshMu sync.Mutex
}

var (
	_ gateway.Auth      = (*Client)(nil)
	_ gateway.Data      = (*Client)(nil)
	_ gateway.Functions = (*Client)(nil)
)

// New returns a client for the gateway at baseURL.
func New(baseURL string, log logger.Logger) *Client {
	return &Client{
		base:      strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		log:       log,
		listeners: map[int]func(gateway.Event){},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// Restore seeds the client with a refresh token from a previous run.  The
// next GetSession exchanges it for a full session.
func (c *Client) Restore(refreshToken string) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return
	}
	c.mu.Lock()
	c.session = &gateway.Session{RefreshToken: refreshToken}
	c.mu.Unlock()
}

// Session returns the held session without any network call.
func (c *Client) Session() *gateway.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// OnAuthStateChange registers fn for auth events.  Listeners run one at a
// time in emission order and must not call the client's auth methods.
func (c *Client) OnAuthStateChange(fn func(gateway.Event)) gateway.Subscription {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return subscription(func() {
		c.emitMu.Lock()
		delete(c.listeners, id)
		c.emitMu.Unlock()
	})
}

type subscription func()

func (s subscription) Unsubscribe() { s() }

// setSession swaps the held session and delivers kind to every listener.
func (c *Client) setSession(kind gateway.EventKind, s *gateway.Session) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	var ev gateway.Event
	ev.Kind = kind
	if s != nil {
		cp := *s
		ev.Session = &cp
	}
	for _, fn := range c.listeners {
		fn(ev)
	}
}

// GetSession returns the current session, refreshing it first when the
// access token has expired.  A nil session with a nil error means signed
// out.
func (c *Client) GetSession(ctx context.Context) (*gateway.Session, error) {
	s := c.Session()
	if s == nil {
		return nil, nil
	}
	if !s.Expired(time.Now()) {
		return s, nil
	}
	if err := c.refresh(ctx, s.AccessToken); err != nil {
		return nil, err
	}
	return c.Session(), nil
}

// SignInWithPassword exchanges credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	var s gateway.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", body, &s, false); err != nil {
		return err
	}
	c.setSession(gateway.SignedIn, &s)
	return nil
}

// SignUp registers a new identity.  No session is issued until the emailed
// code is verified.
func (c *Client) SignUp(ctx context.Context, req gateway.SignUpRequest) error {
	return c.call(ctx, http.MethodPost, "/auth/v1/signup", req, nil, false)
}

// VerifyOTP confirms a code and signs the user in.
func (c *Client) VerifyOTP(ctx context.Context, email, code, purpose string) error {
	var s gateway.Session
	body := map[string]string{"email": email, "token": code, "type": purpose}
	if err := c.call(ctx, http.MethodPost, "/auth/v1/verify", body, &s, false); err != nil {
		return err
	}
	kind := gateway.SignedIn
	if cur := c.Session(); cur != nil && cur.User.ID == s.User.ID {
		kind = gateway.UserUpdated
	}
	c.setSession(kind, &s)
	return nil
}

// ResendOTP asks for a fresh code.
func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/auth/v1/otp", map[string]string{"email": email}, nil, false)
}

// ResetPasswordForEmail asks the gateway to email a password reset code.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/auth/v1/recover", map[string]string{"email": email}, nil, false)
}

// ResetPassword sets a new password with a reset code.  The gateway revokes
// every other session and signs this one in.
func (c *Client) ResetPassword(ctx context.Context, email, code, password string) error {
	var s gateway.Session
	body := map[string]string{"email": email, "token": code, "password": password}
	if err := c.call(ctx, http.MethodPost, "/auth/v1/recover/confirm", body, &s, false); err != nil {
		return err
	}
	c.setSession(gateway.SignedIn, &s)
	return nil
}

// SignOut drops the local session, emits SIGNED_OUT and then revokes the
// refresh token at the gateway.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.Session()
	c.setSession(gateway.SignedOut, nil)
	if s == nil || s.AccessToken == "" {
		return nil
	}
	return c.send(ctx, http.MethodPost, "/auth/v1/logout",
		map[string]string{"refresh_token": s.RefreshToken}, nil, s.AccessToken)
}

// User returns the identity behind the current session.
func (c *Client) User(ctx context.Context) (gateway.User, error) {
	var u gateway.User
	err := c.call(ctx, http.MethodGet, "/auth/v1/user", nil, &u, true)
	return u, err
}

// Invoke calls a named gateway function with the given access token.
func (c *Client) Invoke(ctx context.Context, name, accessToken string) error {
	return c.send(ctx, http.MethodPost, "/functions/v1/"+url.PathEscape(name), nil, nil, accessToken)
}

// refresh rotates the session using its refresh token.  stale is the access
// token the caller saw rejected; when another goroutine has already replaced
// it the call is a no-op.
func (c *Client) refresh(ctx context.Context, stale string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	cur := c.Session()
	if cur == nil {
		return &APIError{Status: http.StatusUnauthorized, Message: "not signed in"}
	}
	if cur.AccessToken != stale && !cur.Expired(time.Now()) {
		return nil
	}
	var s gateway.Session
	err := c.send(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": cur.RefreshToken}, &s, "")
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest) {
		c.log.Info().Msg("refresh token rejected, signing out")
		c.setSession(gateway.SignedOut, nil)
		return err
	}
	if err != nil {
		return err
	}
	c.setSession(gateway.TokenRefreshed, &s)
	return nil
}

// call sends one request.  With auth set the bearer token is attached and
// a 401 triggers one refresh and one retry.
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}, auth bool) error {
	if !auth {
		return c.send(ctx, method, path, in, out, "")
	}
	s, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return &APIError{Status: http.StatusUnauthorized, Message: "not signed in"}
	}
	err = c.send(ctx, method, path, in, out, s.AccessToken)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}
	if err := c.refresh(ctx, s.AccessToken); err != nil {
		return err
	}
	s = c.Session()
	if s == nil {
		return apiErr
	}
	return c.send(ctx, method, path, in, out, s.AccessToken)
}

func (c *Client) send(ctx context.Context, method, path string, in, out interface{}, token string) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		apiErr := &APIError{Status: res.StatusCode}
		var payload struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		if json.NewDecoder(res.Body).Decode(&payload) == nil {
			apiErr.Message = payload.Error
			apiErr.Fields = payload.Fields
		}
		return apiErr
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
