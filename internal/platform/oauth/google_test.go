package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

func testConfig() *config.Config {
	return &config.Config{
		GoogleClientID:       "client-id",
		GoogleClientSecret:   "client-secret",
		GoogleRedirectURL:    "http://localhost:8080/api/v1/oauth/google/callback",
		OAuthCallbackBaseURL: "http://localhost:8080",
		OAuthHTTPTimeout:     2 * time.Second,
		SessionSecret:        "test-session-secret-test-session-secret",
	}
}

func newTestGoogle(t *testing.T, validate idTokenValidator) (*googleProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"id_token":"raw-id-token"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	p := newGoogleProvider(cfg, NewStateStore(cfg), srv.Client(), validate)
	p.oauth2Config.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return p, srv
}

func validPayload(_ context.Context, idToken, audience string) (*idtoken.Payload, error) {
	if idToken != "raw-id-token" || audience != "client-id" {
		return nil, errors.New("bad token")
	}
	return &idtoken.Payload{
		Subject: "google-sub-1",
		Claims: map[string]interface{}{
			"email":          "ada@example.com",
			"email_verified": true,
			"given_name":     "Ada",
			"family_name":    "Lovelace",
			"picture":        "https://example.com/ada.png",
		},
	}, nil
}

// begin runs BeginAuth and returns the state and the cookies it set.
func begin(t *testing.T, p *googleProvider) (string, []*http.Cookie) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/google", nil)
	authURL, err := p.BeginAuth(w, r)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state, w.Result().Cookies()
}

func callback(query string, cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/google/callback?"+query, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestGoogleProvider_CompleteAuth(t *testing.T) {
	p, _ := newTestGoogle(t, validPayload)
	state, cookies := begin(t, p)

	info, err := p.CompleteAuth(httptest.NewRecorder(), callback("state="+state+"&code=good-code", cookies))
	require.NoError(t, err)
	assert.Equal(t, domain.OAuthUserInfo{
		Provider:      domain.ProviderGoogle,
		ProviderID:    "google-sub-1",
		Email:         "ada@example.com",
		EmailVerified: true,
		FirstName:     "Ada",
		LastName:      "Lovelace",
		AvatarURL:     "https://example.com/ada.png",
	}, *info)
}

func TestGoogleProvider_StateMismatch(t *testing.T) {
	p, _ := newTestGoogle(t, validPayload)
	_, cookies := begin(t, p)

	_, err := p.CompleteAuth(httptest.NewRecorder(), callback("state=forged&code=good-code", cookies))
	assert.ErrorIs(t, err, portssvc.ErrOAuthInvalidState)

	_, err = p.CompleteAuth(httptest.NewRecorder(), callback("state=anything&code=good-code", nil))
	assert.ErrorIs(t, err, portssvc.ErrOAuthInvalidState)
}

func TestGoogleProvider_UserCancelled(t *testing.T) {
	p, _ := newTestGoogle(t, validPayload)
	_, err := p.CompleteAuth(httptest.NewRecorder(), callback("error=access_denied", nil))
	assert.ErrorIs(t, err, portssvc.ErrOAuthCancelled)

	_, err = p.CompleteAuth(httptest.NewRecorder(), callback("error=server_error", nil))
	assert.ErrorIs(t, err, portssvc.ErrOAuthFailed)
}

func TestGoogleProvider_ExchangeFailure(t *testing.T) {
	p, _ := newTestGoogle(t, validPayload)
	state, cookies := begin(t, p)

	_, err := p.CompleteAuth(httptest.NewRecorder(), callback("state="+state+"&code=bad-code", cookies))
	assert.ErrorIs(t, err, portssvc.ErrOAuthFailed)
}

func TestGoogleProvider_UnverifiedEmail(t *testing.T) {
	p, _ := newTestGoogle(t, func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error) {
		payload, _ := validPayload(ctx, idToken, audience)
		payload.Claims["email_verified"] = false
		return payload, nil
	})
	state, cookies := begin(t, p)

	_, err := p.CompleteAuth(httptest.NewRecorder(), callback("state="+state+"&code=good-code", cookies))
	assert.ErrorIs(t, err, portssvc.ErrOAuthEmailUnavailable)
}
