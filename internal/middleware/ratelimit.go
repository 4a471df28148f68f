package middleware

import (
	"log/slog"
	"strconv"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
	"github.com/SscSPs/saas_starter_auth/internal/dto"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// RateLimit creates a Gin middleware that limits requests per client IP.
// name scopes the counter so separate routes keep separate budgets.
func RateLimit(name string, limiterInstance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		logger := GetLoggerFromContext(c)

		context, err := limiterInstance.Get(c.Request.Context(), name+":"+ip)
		if err != nil {
			// Fail open when the limiter store is unavailable.
			logger.Error("Failed to get rate limit context", slog.String("ip", ip), slog.String("error", err.Error()))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(context.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(context.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(context.Reset, 10))

		if context.Reached {
			logger.Warn("Rate limit exceeded", slog.String("ip", ip), slog.String("limiter", name), slog.Int64("limit", context.Limit))
			c.AbortWithStatusJSON(apperrors.ErrTooManyRequests.HTTPStatus(), dto.Failure(GetRequestIDFromContext(c), apperrors.ErrTooManyRequests))
			return
		}

		c.Next()
	}
}

// NewLimiter builds a limiter from a "<limit>-<period>" rate such as "5-M".
func NewLimiter(store limiter.Store, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}
