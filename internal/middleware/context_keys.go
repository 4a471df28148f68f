package middleware

import (
	"context"
	"log/slog"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// contextKey is a private type for context keys. Using a custom type prevents collisions.
type contextKey string

const (
	loggerCtxKey    = contextKey("logger")
	requestIDKey    = contextKey("requestID")
	userIDKey       = contextKey("userID")
	principalCtxKey = contextKey("principal")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if principal, ok := GetPrincipalFromContext(c); ok {
		return principal.UserID, true
	}
	return "", false
}

// GetPrincipalFromContext returns the principal stored by the auth guard.
func GetPrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	if v, exists := c.Get(string(principalCtxKey)); exists {
		if p, ok := v.(domain.Principal); ok {
			return p, true
		}
	}
	if p, ok := c.Request.Context().Value(principalCtxKey).(domain.Principal); ok {
		return p, true
	}
	return domain.Principal{}, false
}

// WithPrincipal returns a copy of ctx carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	ctx = context.WithValue(ctx, userIDKey, p.UserID)
	return context.WithValue(ctx, principalCtxKey, p)
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// GetLoggerFromCtx retrieves the request-scoped logger from a standard
// context. It returns the default logger if none is found.
func GetLoggerFromCtx(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerCtxKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// GetRequestIDFromContext returns the id assigned by StructuredLoggingMiddleware.
func GetRequestIDFromContext(c *gin.Context) string {
	if v, exists := c.Get(string(requestIDKey)); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	if id, ok := c.Request.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
