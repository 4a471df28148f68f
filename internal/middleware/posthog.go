package middleware

import (
	"net/http"
	"strings"

	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// PosthogMiddleware creates a Gin middleware handler that tracks successful
// authenticated API calls with PostHog.
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		if posthogClient == nil || !posthogClient.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		c.Next()

		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		userID, exists := GetUserIDFromContext(c)
		if !exists {
			return
		}

		// "/api/v1/auth/log-out" -> "api_v1_auth_log-out"
		eventName := strings.ReplaceAll(strings.TrimPrefix(c.FullPath(), "/"), "/", "_")
		if eventName == "" {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status_code": c.Writer.Status(),
		}
		posthogClient.Enqueue(userID, eventName, props)
	}
}

// posthogTracker adapts the PostHog wrapper to the services' EventTracker port.
type posthogTracker struct {
	client *utils.PosthogClientWrapper
}

// NewPosthogTracker returns an EventTracker that enqueues to PostHog. An
// uninitialized client drops events.
func NewPosthogTracker(client *utils.PosthogClientWrapper) portssvc.EventTracker {
	return posthogTracker{client: client}
}

func (t posthogTracker) Track(distinctID string, event string, properties map[string]any) {
	if t.client == nil || distinctID == "" {
		return
	}
	t.client.Enqueue(distinctID, event, properties)
}
