package dto

import (
	"time"

	"github.com/SscSPs/saas_starter_auth/internal/apperrors"
)

// Envelope wraps every JSON response body.
type Envelope struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message"`
	Data      any                    `json:"data,omitempty"`
	Errors    []apperrors.FieldError `json:"errors,omitempty"`
	Meta      map[string]string      `json:"meta,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"requestId"`
}

// Success builds a successful envelope.
func Success(requestID, message string, data any) Envelope {
	return Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// Failure builds an error envelope from any error. Internal causes are never
// exposed; only the AppError's message, details and meta are.
func Failure(requestID string, err error) Envelope {
	appErr := apperrors.FromError(err)
	return Envelope{
		Success:   false,
		Message:   appErr.Message,
		Errors:    appErr.Details(),
		Meta:      appErr.Meta,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode returns the first machine-readable code of a failure envelope.
func (e Envelope) ErrorCode() string {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}
