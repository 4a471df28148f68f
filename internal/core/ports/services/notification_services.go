package services

import "context"

// Mailer delivers account emails. Template rendering is the implementation's concern.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, firstName, code string) error
	SendPasswordReset(ctx context.Context, to, resetLink string) error
}

// EventTracker records product analytics events. Implementations must not block.
type EventTracker interface {
	Track(distinctID string, event string, properties map[string]any)
}
