package apperrors

import (
	"errors"
	"net/http"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// Kind is the closed set of failure categories surfaced to clients.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
)

// HTTPStatus maps a Kind to the status code written by the HTTP layer.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTooManyRequests:
		return "too_many_requests"
	default:
		return "internal"
	}
}

// FieldError describes one problem with a request, optionally tied to a field.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// AppError is the single error type that crosses the service/handler boundary.
// Two AppErrors are considered equal by errors.Is when their Codes match.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	// Meta carries machine-readable context for callers that need more than
	// the code, e.g. the provider to steer a user to on ProviderMismatch.
	Meta map[string]string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus returns the status code for this error's Kind.
func (e *AppError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// WithMessage returns a copy of e carrying a different client-facing message.
func (e *AppError) WithMessage(msg string) *AppError {
	cp := *e
	cp.Message = msg
	return &cp
}

// Wrap returns a copy of e recording err as the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// WithFields returns a copy of e with the given field errors attached.
func (e *AppError) WithFields(fields ...FieldError) *AppError {
	cp := *e
	cp.Fields = append([]FieldError(nil), fields...)
	return &cp
}

// WithMeta returns a copy of e with key set to value in Meta.
func (e *AppError) WithMeta(key, value string) *AppError {
	cp := *e
	cp.Meta = make(map[string]string, len(e.Meta)+1)
	for k, v := range e.Meta {
		cp.Meta[k] = v
	}
	cp.Meta[key] = value
	return &cp
}

// Details lists the entries written to the envelope's errors array.
func (e *AppError) Details() []FieldError {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	return []FieldError{{Code: e.Code, Message: e.Message}}
}

func newKind(kind Kind, code, msg string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: msg}
}

// NewValidationError builds a 400 error.
func NewValidationError(code, msg string, fields ...FieldError) *AppError {
	e := newKind(KindValidation, code, msg)
	e.Fields = fields
	return e
}

// NewUnauthorizedError builds a 401 error.
func NewUnauthorizedError(code, msg string) *AppError {
	return newKind(KindUnauthorized, code, msg)
}

// NewForbiddenError builds a 403 error.
func NewForbiddenError(code, msg string) *AppError {
	return newKind(KindForbidden, code, msg)
}

// NewNotFoundError builds a 404 error.
func NewNotFoundError(code, msg string) *AppError {
	return newKind(KindNotFound, code, msg)
}

// NewConflictError builds a 409 error.
func NewConflictError(code, msg string) *AppError {
	return newKind(KindConflict, code, msg)
}

// NewInternalError builds a 500 error around an unexpected cause.
func NewInternalError(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// FromError converts any error into an *AppError. Unknown errors become
// KindInternal with a generic message so internals never reach the client.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrResourceNotFound.Wrap(err)
	case errors.Is(err, ErrValidation):
		return ErrInvalidInput.Wrap(err)
	case errors.Is(err, ErrDuplicate):
		return ErrResourceConflict.Wrap(err)
	default:
		return NewInternalError("internal server error", err)
	}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
