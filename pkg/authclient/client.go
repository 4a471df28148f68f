package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrLoggedOut is returned once the session can no longer be used. The
// store has been cleared and the user must log in again.
var ErrLoggedOut = errors.New("authclient: logged out")

const (
	sessionIDHeader    = "X-Session-Id"
	authPathPrefix     = "/api/v1/auth/"
	codeSessionRevoked = "SESSION_REVOKED"
	maxErrorBodyBytes  = 64 << 10
	defaultHTTPTimeout = 30 * time.Second
	refreshFlightKey   = "refresh"
)

// Client sends authenticated requests to the auth API and the services
// behind the same guard.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      *SessionStore
	refreshes  singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for the API at baseURL.
func New(baseURL string, store *SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		store:      store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the session store backing the client.
func (c *Client) Store() *SessionStore {
	return c.store
}

// Do sends req with the current credentials. A 401 from a guarded endpoint
// triggers one refresh and one retry; a revoked session, a failed refresh
// or a second 401 clears the store and returns ErrLoggedOut. Requests with
// a body must set GetBody (http.NewRequest does for in-memory bodies).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if !c.store.LoggedIn() {
		return nil, ErrLoggedOut
	}

	used := c.store.Tokens()
	resp, err := c.send(req, used)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || isAuthEndpoint(req) {
		return resp, err
	}

	code := errorCode(resp)
	if code == codeSessionRevoked {
		return nil, c.logOutLocally()
	}

	if err := c.refreshAfter(req.Context(), used); err != nil {
		return nil, err
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	resp, err = c.send(retry, c.store.Tokens())
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, c.logOutLocally()
	}
	return resp, nil
}

// Refresh rotates the token pair now.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refreshAfter(ctx, c.store.Tokens())
}

// refreshAfter rotates the pair unless another caller already replaced the
// credentials that failed. Concurrent callers share one refresh request.
func (c *Client) refreshAfter(ctx context.Context, failed Tokens) error {
	if current := c.store.Tokens(); current.IsZero() {
		return ErrLoggedOut
	} else if current.AccessToken != failed.AccessToken {
		return nil
	}

	// The shared refresh outlives any single caller's cancellation.
	shared := context.WithoutCancel(ctx)
	_, err, _ := c.refreshes.Do(refreshFlightKey, func() (any, error) {
		current := c.store.Tokens()
		switch {
		case current.IsZero():
			return nil, ErrLoggedOut
		case current.AccessToken != failed.AccessToken:
			return nil, nil
		}
		return nil, c.refresh(shared, current)
	})
	return err
}

func (c *Client) refresh(ctx context.Context, current Tokens) error {
	body, _ := json.Marshal(map[string]string{
		"refreshToken": current.RefreshToken,
		"sessionId":    current.SessionID,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPathPrefix+"refresh", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Join(c.logOutLocally(), fmt.Errorf("authclient: refresh: %w", err))
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return c.logOutLocally()
	}
	var env envelope[tokenPair]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil || env.Data.AccessToken == "" {
		return c.logOutLocally()
	}
	return c.store.Set(Tokens{
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
		SessionID:    current.SessionID,
	})
}

// LogIn authenticates with email and password and stores the new session.
func (c *Client) LogIn(ctx context.Context, email, password string) error {
	var env envelope[loginData]
	if err := c.postJSON(ctx, "log-in", map[string]string{"email": email, "password": password}, &env); err != nil {
		return err
	}
	return c.store.Set(Tokens{
		AccessToken:  env.Data.AccessToken,
		RefreshToken: env.Data.RefreshToken,
		SessionID:    env.Data.Session.SessionID,
	})
}

// LogOut revokes the current session on the server and clears the store.
// The store is cleared even when the server call fails.
func (c *Client) LogOut(ctx context.Context) error {
	defer func() { _ = c.store.Clear() }()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPathPrefix+"log-out", nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req, c.store.Tokens())
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPathPrefix+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode/100 != 2 {
		return newAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(req *http.Request, t Tokens) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.URL.Host == "" {
		u, err := req.URL.Parse(c.baseURL + req.URL.RequestURI())
		if err != nil {
			return nil, err
		}
		req.URL = u
		req.Host = u.Host
	}
	req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	if t.SessionID != "" {
		req.Header.Set(sessionIDHeader, t.SessionID)
	}
	return c.httpClient.Do(req)
}

func (c *Client) logOutLocally() error {
	if err := c.store.Clear(); err != nil {
		return errors.Join(ErrLoggedOut, err)
	}
	return ErrLoggedOut
}

func isAuthEndpoint(req *http.Request) bool {
	return strings.HasPrefix(req.URL.Path, authPathPrefix)
}

func rewind(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("authclient: request body cannot be replayed after refresh")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	retry.Body = body
	return retry, nil
}

// errorCode reads the first error code of an envelope and closes the body.
func errorCode(resp *http.Response) string {
	defer drain(resp)
	var env envelope[json.RawMessage]
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBodyBytes)).Decode(&env); err != nil {
		return ""
	}
	if len(env.Errors) == 0 {
		return ""
	}
	return env.Errors[0].Code
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
	_ = resp.Body.Close()
}
