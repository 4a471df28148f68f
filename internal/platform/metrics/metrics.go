package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth lifecycle metrics
var (
	// AuthEvents counts signups, logins, verifications and refreshes by outcome
	AuthEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_auth_events_total",
			Help: "Authentication events by event name and outcome",
		},
		[]string{"event", "outcome"},
	)

	// TokenVerifications counts token checks by token type and result
	TokenVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_auth_token_verifications_total",
			Help: "Token verifications by expected token type and result",
		},
		[]string{"type", "result"},
	)

	// SessionRevocations counts revoked sessions by reason
	SessionRevocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_auth_session_revocations_total",
			Help: "Revoked sessions by reason",
		},
		[]string{"reason"},
	)

	// OAuthDuration tracks upstream provider round trips
	OAuthDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saas_auth_oauth_callback_duration_seconds",
			Help:    "Time spent completing an OAuth callback with the upstream provider",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "result"},
	)
)

// HTTP metrics
var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saas_auth_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saas_auth_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordAuthEvent increments the auth event counter.
func RecordAuthEvent(event string, err error) {
	AuthEvents.WithLabelValues(event, outcome(err)).Inc()
}

// RecordTokenVerification increments the token verification counter.
func RecordTokenVerification(tokenType string, result string) {
	TokenVerifications.WithLabelValues(tokenType, result).Inc()
}

// RecordSessionRevocations adds n revocations for reason.
func RecordSessionRevocations(reason string, n int) {
	if n <= 0 {
		return
	}
	SessionRevocations.WithLabelValues(reason).Add(float64(n))
}

// ObserveOAuth records how long a provider callback took.
func ObserveOAuth(provider string, start time.Time, err error) {
	OAuthDuration.WithLabelValues(provider, outcome(err)).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
