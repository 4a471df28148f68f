package authclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/pkg/authclient"
	"github.com/stretchr/testify/suite"
)

// fakeAPI accepts exactly one access token at a time and rotates it on
// every successful refresh.
type fakeAPI struct {
	mu            sync.Mutex
	validAccess   string
	validRefresh  string
	generation    int
	revoked       bool
	refreshFails  bool
	refreshDelay  time.Duration
	refreshCalls  atomic.Int32
	lastSessionID string
	lastBody      string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/refresh":
		f.refresh(w, r)
	case "/api/v1/auth/log-in":
		f.mu.Lock()
		access, refresh := f.validAccess, f.validRefresh
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"accessToken":  access,
				"refreshToken": refresh,
				"session":      map[string]any{"sessionId": "sess-login"},
			},
		})
	case "/api/v1/auth/log-out":
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		f.protected(w, r)
	}
}

func (f *fakeAPI) refresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)
	if f.refreshDelay > 0 {
		time.Sleep(f.refreshDelay)
	}
	var body struct {
		RefreshToken string `json:"refreshToken"`
		SessionID    string `json:"sessionId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshFails || body.RefreshToken != f.validRefresh {
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN")
		return
	}
	f.generation++
	f.validAccess = "access-" + string(rune('a'+f.generation))
	f.validRefresh = "refresh-" + string(rune('a'+f.generation))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"accessToken": f.validAccess, "refreshToken": f.validRefresh},
	})
}

func (f *fakeAPI) protected(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSessionID = r.Header.Get("X-Session-Id")
	if r.Body != nil {
		raw := new(strings.Builder)
		_, _ = io.Copy(raw, r.Body)
		f.lastBody = raw.String()
	}
	if f.revoked {
		writeError(w, http.StatusUnauthorized, "SESSION_REVOKED")
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+f.validAccess {
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"message": strings.ToLower(code),
		"errors":  []map[string]string{{"code": code, "message": strings.ToLower(code)}},
	})
}

type ClientTestSuite struct {
	suite.Suite
	api    *fakeAPI
	server *httptest.Server
	store  *authclient.SessionStore
	client *authclient.Client
}

func (suite *ClientTestSuite) SetupTest() {
	suite.api = &fakeAPI{validAccess: "access-a", validRefresh: "refresh-a"}
	suite.server = httptest.NewServer(suite.api)
	suite.store = authclient.NewSessionStore(nil)
	suite.client = authclient.New(suite.server.URL, suite.store)
}

func (suite *ClientTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ClientTestSuite) get(path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, suite.server.URL+path, nil)
	suite.Require().NoError(err)
	return suite.client.Do(req)
}

func (suite *ClientTestSuite) TestAttachesCredentials() {
	suite.Require().NoError(suite.store.Set(authclient.Tokens{
		AccessToken: "access-a", RefreshToken: "refresh-a", SessionID: "sess-1",
	}))

	resp, err := suite.get("/api/v1/profile")
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("sess-1", suite.api.lastSessionID)
	suite.EqualValues(0, suite.api.refreshCalls.Load())
}

func (suite *ClientTestSuite) TestNotLoggedIn() {
	_, err := suite.get("/api/v1/profile")
	suite.ErrorIs(err, authclient.ErrLoggedOut)
}

func (suite *ClientTestSuite) TestRefreshesAndRetries() {
	suite.Require().NoError(suite.store.Set(authclient.Tokens{
		AccessToken: "stale", RefreshToken: "refresh-a", SessionID: "sess-1",
	}))

	req, err := http.NewRequest(http.MethodPatch, suite.server.URL+"/api/v1/profile", strings.NewReader(`{"firstName":"Ada"}`))
	suite.Require().NoError(err)
	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.EqualValues(1, suite.api.refreshCalls.Load())
	suite.Equal(`{"firstName":"Ada"}`, suite.api.lastBody)

	tokens := suite.store.Tokens()
	suite.Equal("access-b", tokens.AccessToken)
	suite.Equal("refresh-b", tokens.RefreshToken)
	suite.Equal("sess-1", tokens.SessionID)
}

func (suite *ClientTestSuite) TestRevokedSessionSkipsRefresh() {
	suite.api.revoked = true
	suite.Require().NoError(suite.store.Set(authclient.Tokens{
		AccessToken: "access-a", RefreshToken: "refresh-a", SessionID: "sess-1",
	}))

	_, err := suite.get("/api/v1/sessions")
	suite.ErrorIs(err, authclient.ErrLoggedOut)
	suite.EqualValues(0, suite.api.refreshCalls.Load())
	suite.False(suite.store.LoggedIn())
}

func (suite *ClientTestSuite) TestRefreshFailureLogsOut() {
	suite.api.refreshFails = true
	suite.Require().NoError(suite.store.Set(authclient.Tokens{
		AccessToken: "stale", RefreshToken: "refresh-a", SessionID: "sess-1",
	}))

	_, err := suite.get("/api/v1/profile")
	suite.ErrorIs(err, authclient.ErrLoggedOut)
	suite.EqualValues(1, suite.api.refreshCalls.Load())
	suite.False(suite.store.LoggedIn())
}

func (suite *ClientTestSuite) TestAuthEndpointsAreNotRetried() {
	suite.Require().NoError(suite.store.Set(authclient.Tokens{
		AccessToken: "stale", RefreshToken: "refresh-a", SessionID: "sess-1",
	}))

	resp, err := suite.get("/api/v1/auth/whoami")
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Equal(http.StatusUnauthorized, resp.StatusCode)
	suite.EqualValues(0, suite.api.refreshCalls.Load())
	suite.True(suite.store.LoggedIn())
}

func (suite *ClientTestSuite) TestConcurrentExpiriesShareOneRefresh() {
	suite.api.refreshDelay = 100 * time.Millisecond
	suite.Require().NoError(suite.store.Set(authclient.Tokens{
		AccessToken: "stale", RefreshToken: "refresh-a", SessionID: "sess-1",
	}))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := suite.get("/api/v1/profile")
			if err != nil {
				errs <- err
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				errs <- errors.New(resp.Status)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		suite.NoError(err)
	}
	suite.EqualValues(1, suite.api.refreshCalls.Load())
	suite.Equal("access-b", suite.store.Tokens().AccessToken)
}

func (suite *ClientTestSuite) TestLogInAndLogOut() {
	suite.Require().NoError(suite.client.LogIn(context.Background(), "ada@example.com", "Password1"))
	tokens := suite.store.Tokens()
	suite.Equal("access-a", tokens.AccessToken)
	suite.Equal("sess-login", tokens.SessionID)

	suite.Require().NoError(suite.client.LogOut(context.Background()))
	suite.False(suite.store.LoggedIn())
}

func (suite *ClientTestSuite) TestFilePersistence() {
	path := filepath.Join(suite.T().TempDir(), "session.json")
	first := authclient.NewSessionStore(authclient.FilePersistence{Path: path})
	suite.Require().NoError(first.Load())
	suite.False(first.LoggedIn())

	want := authclient.Tokens{AccessToken: "access-a", RefreshToken: "refresh-a", SessionID: "sess-1"}
	suite.Require().NoError(first.Set(want))

	second := authclient.NewSessionStore(authclient.FilePersistence{Path: path})
	suite.Require().NoError(second.Load())
	suite.Equal(want, second.Tokens())

	suite.Require().NoError(second.Clear())
	third := authclient.NewSessionStore(authclient.FilePersistence{Path: path})
	suite.Require().NoError(third.Load())
	suite.False(third.LoggedIn())
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
