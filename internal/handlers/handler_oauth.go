package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Redirect error codes understood by the front end's log-in page.
const (
	oauthErrUnsupportedProvider = "unsupported_provider"
	oauthErrCancelled           = "oauth_cancelled"
	oauthErrFailed              = "oauth_failed"
	oauthErrInvalidState        = "invalid_state"
	oauthErrEmailUnavailable    = "email_unavailable"
	oauthErrProviderMismatch    = "provider_mismatch"
	oauthErrServer              = "server_error"
)

// oauthHandler drives the provider redirect flows. Every outcome is a
// redirect to the front end, never a JSON body.
type oauthHandler struct {
	providers   portssvc.OAuthProviderRegistry
	authService portssvc.AuthSvcFacade
	frontendURL string
}

func newOAuthHandler(providers portssvc.OAuthProviderRegistry, as portssvc.AuthSvcFacade, frontendURL string) *oauthHandler {
	return &oauthHandler{providers: providers, authService: as, frontendURL: frontendURL}
}

func registerOAuthRoutes(v1 *gin.RouterGroup, providers portssvc.OAuthProviderRegistry, authService portssvc.AuthSvcFacade, frontendURL string) {
	h := newOAuthHandler(providers, authService, frontendURL)

	oauth := v1.Group("/oauth")
	{
		oauth.GET("/:provider", h.begin)
		oauth.GET("/:provider/callback", h.callback)
	}
}

// begin godoc
// @Summary Start an OAuth login
// @Description Redirects to the provider's consent page.
// @Tags oauth
// @Param provider path string true "google, github or facebook"
// @Success 307 "Redirect to the provider"
// @Failure 302 "Redirect to the log-in page with an error code"
// @Router /oauth/{provider} [get]
func (h *oauthHandler) begin(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	provider, ok := h.lookup(c)
	if !ok {
		return
	}
	authURL, err := provider.BeginAuth(c.Writer, c.Request)
	if err != nil {
		logger.Error("Failed to start OAuth flow", slog.String("provider", string(provider.Provider())), slog.String("error", err.Error()))
		h.fail(c, oauthErrServer, nil)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// callback godoc
// @Summary Complete an OAuth login
// @Description Validates the provider callback, resolves the account and redirects to the front end with the token pair.
// @Tags oauth
// @Param provider path string true "google, github or facebook"
// @Success 302 "Redirect to /oauth-callback with tokens, or to /log-in with an error code"
// @Router /oauth/{provider}/callback [get]
func (h *oauthHandler) callback(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	provider, ok := h.lookup(c)
	if !ok {
		return
	}
	logger = logger.With(slog.String("provider", string(provider.Provider())))

	info, err := provider.CompleteAuth(c.Writer, c.Request)
	if err != nil {
		code := providerErrorCode(err)
		logger.Warn("OAuth callback rejected", slog.String("code", code), slog.String("error", err.Error()))
		h.fail(c, code, nil)
		return
	}

	result, err := h.authService.CompleteOAuthLogin(ctx, *info, requestContext(c))
	if err != nil {
		if errors.Is(err, apperrors.ErrProviderMismatch) {
			extra := url.Values{}
			if appErr := apperrors.FromError(err); appErr.Meta["provider"] != "" {
				extra.Set("provider", appErr.Meta["provider"])
			}
			logger.Info("OAuth login blocked by provider mismatch", slog.String("email", info.Email))
			h.fail(c, oauthErrProviderMismatch, extra)
			return
		}
		logger.Error("Failed to complete OAuth login", slog.String("error", err.Error()))
		h.fail(c, oauthErrServer, nil)
		return
	}

	c.Redirect(http.StatusFound, h.successURL(result))
}

func (h *oauthHandler) lookup(c *gin.Context) (portssvc.OAuthProviderSvc, bool) {
	name := domain.Provider(c.Param("provider"))
	if h.providers != nil && name.IsOAuth() {
		if provider, ok := h.providers.Get(name); ok {
			return provider, true
		}
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("OAuth requested for unsupported provider", slog.String("provider", string(name)))
	h.fail(c, oauthErrUnsupportedProvider, nil)
	return nil, false
}

func (h *oauthHandler) fail(c *gin.Context, code string, extra url.Values) {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	q.Set("error", code)
	c.Redirect(http.StatusFound, h.frontendURL+"/log-in?"+q.Encode())
	c.Abort()
}

func (h *oauthHandler) successURL(r *domain.AuthResult) string {
	q := url.Values{}
	q.Set("accessToken", r.Tokens.AccessToken)
	q.Set("refreshToken", r.Tokens.RefreshToken)
	if r.Session != nil {
		q.Set("sessionId", r.Session.SessionID)
	}
	if r.Account != nil {
		q.Set("userId", r.Account.AuthAccountID)
		q.Set("email", r.Account.Email)
	}
	if r.Profile != nil {
		q.Set("firstName", r.Profile.FirstName)
		q.Set("lastName", r.Profile.LastName)
		q.Set("username", r.Profile.Username)
	}
	return h.frontendURL + "/oauth-callback?" + q.Encode()
}

func providerErrorCode(err error) string {
	switch {
	case errors.Is(err, portssvc.ErrOAuthCancelled):
		return oauthErrCancelled
	case errors.Is(err, portssvc.ErrOAuthInvalidState):
		return oauthErrInvalidState
	case errors.Is(err, portssvc.ErrOAuthEmailUnavailable):
		return oauthErrEmailUnavailable
	default:
		return oauthErrFailed
	}
}
