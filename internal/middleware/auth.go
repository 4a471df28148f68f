package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/dto"
	"github.com/gin-gonic/gin"
)

// SessionIDHeader carries the caller's session id.
const SessionIDHeader = "X-Session-Id"

const defaultTouchTimeout = 5 * time.Second

// AuthResult is the outcome of authenticating one request.
type AuthResult struct {
	Success   bool
	Principal domain.Principal
	Err       *apperrors.AppError
}

// Guard authenticates requests with an access token and, when the caller
// names one, a live session.
type Guard struct {
	tokens       portssvc.TokenSvc
	sessions     portssvc.SessionSvcFacade
	touchTimeout time.Duration
	// touched, when set, runs after each background touch.
	touched func(sessionID string)
}

// GuardOption customizes a Guard.
type GuardOption func(*Guard)

// WithTouchTimeout bounds the background session touch.
func WithTouchTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		g.touchTimeout = d
	}
}

// WithTouchHook is called after each background touch completes.
func WithTouchHook(fn func(sessionID string)) GuardOption {
	return func(g *Guard) {
		g.touched = fn
	}
}

// NewGuard creates a Guard.
func NewGuard(tokens portssvc.TokenSvc, sessions portssvc.SessionSvcFacade, opts ...GuardOption) *Guard {
	g := &Guard{tokens: tokens, sessions: sessions, touchTimeout: defaultTouchTimeout}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Authenticate checks the bearer token and the optional session of r.
func (g *Guard) Authenticate(r *http.Request) AuthResult {
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return failed(apperrors.ErrMissingToken)
	}

	payload, err := g.tokens.VerifyAccess(token)
	if err != nil {
		return failed(err)
	}

	sessionID := strings.TrimSpace(r.Header.Get(SessionIDHeader))
	if sessionID != "" {
		if err := g.sessions.CheckSession(r.Context(), sessionID, payload.UserID); err != nil {
			return failed(err)
		}
		g.touchAsync(r.Context(), sessionID)
	}

	return AuthResult{
		Success: true,
		Principal: domain.Principal{
			UserID:    payload.UserID,
			Email:     payload.Email,
			SessionID: sessionID,
		},
	}
}

// RequireAuth aborts unauthenticated requests with an error envelope and
// stores the principal for downstream handlers.
func (g *Guard) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLoggerFromCtx(c.Request.Context())

		result := g.Authenticate(c.Request)
		if !result.Success {
			logger.Warn("Request rejected by auth guard", slog.String("code", result.Err.Code))
			c.AbortWithStatusJSON(result.Err.HTTPStatus(), dto.Failure(GetRequestIDFromContext(c), result.Err))
			return
		}

		p := result.Principal
		enriched := logger.With(slog.String("user_id", p.UserID))
		if p.SessionID != "" {
			enriched = enriched.With(slog.String("session_id", p.SessionID))
		}
		c.Set(string(principalCtxKey), p)
		c.Set(string(loggerCtxKey), enriched)
		c.Request = c.Request.WithContext(WithLogger(WithPrincipal(c.Request.Context(), p), enriched))

		c.Next()
	}
}

// touchAsync bumps lastActiveAt without holding up the request. The context
// is detached from the request so the write survives the response.
func (g *Guard) touchAsync(parent context.Context, sessionID string) {
	detached := context.WithoutCancel(parent)
	go func() {
		ctx, cancel := context.WithTimeout(detached, g.touchTimeout)
		defer cancel()
		g.sessions.TouchSession(ctx, sessionID)
		if g.touched != nil {
			g.touched(sessionID)
		}
	}()
}

// BearerToken extracts the token of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func failed(err error) AuthResult {
	return AuthResult{Err: apperrors.FromError(err)}
}
