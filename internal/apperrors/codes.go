package apperrors

// Machine-readable codes. Clients switch on these, never on messages.
const (
	CodeInternal              = "INTERNAL_ERROR"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeNotFound              = "NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeRateLimited           = "RATE_LIMITED"
	CodeMissingToken          = "MISSING_TOKEN"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeExpiredToken          = "EXPIRED_TOKEN"
	CodeWrongTokenType        = "WRONG_TOKEN_TYPE"
	CodeSessionRevoked        = "SESSION_REVOKED"
	CodeSessionMismatch       = "SESSION_MISMATCH"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionForbidden      = "SESSION_FORBIDDEN"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeUseProviderLogin      = "USE_PROVIDER_LOGIN"
	CodeAccountNotVerified    = "ACCOUNT_NOT_VERIFIED"
	CodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	CodeEmailAlreadyExists    = "EMAIL_ALREADY_EXISTS"
	CodeProviderMismatch      = "PROVIDER_MISMATCH"
	CodePasswordAlreadySet    = "PASSWORD_ALREADY_SET"
	CodeInvalidVerification   = "INVALID_VERIFICATION_CODE"
	CodeInvalidResetToken     = "INVALID_RESET_TOKEN"
	CodeUsernameAlreadyChange = "USERNAME_ALREADY_CHANGED"
	CodeUsernameTaken         = "USERNAME_TAKEN"
	CodeProfileNotFound       = "PROFILE_NOT_FOUND"
)

var (
	ErrInvalidInput     = NewValidationError(CodeInvalidInput, "invalid request")
	ErrResourceNotFound = NewNotFoundError(CodeNotFound, "resource not found")
	ErrResourceConflict = NewConflictError(CodeConflict, "resource already exists")
	ErrTooManyRequests  = newKind(KindTooManyRequests, CodeRateLimited, "too many requests, please try again later")

	ErrMissingToken   = NewUnauthorizedError(CodeMissingToken, "authorization header must be Bearer {token}")
	ErrInvalidToken   = NewUnauthorizedError(CodeInvalidToken, "invalid token")
	ErrExpiredToken   = NewUnauthorizedError(CodeExpiredToken, "token has expired")
	ErrWrongTokenType = NewUnauthorizedError(CodeWrongTokenType, "wrong token type")

	ErrSessionRevoked   = NewUnauthorizedError(CodeSessionRevoked, "session revoked")
	ErrSessionMismatch  = NewForbiddenError(CodeSessionMismatch, "session does not belong to this account")
	ErrSessionNotFound  = NewNotFoundError(CodeSessionNotFound, "session not found")
	ErrSessionForbidden = NewForbiddenError(CodeSessionForbidden, "cannot revoke a session owned by another account")

	ErrInvalidCredentials = NewUnauthorizedError(CodeInvalidCredentials, "invalid email or password")
	ErrUseProviderLogin   = NewUnauthorizedError(CodeUseProviderLogin, "this account does not have a password")
	ErrAccountNotVerified = NewForbiddenError(CodeAccountNotVerified, "please verify your email before logging in")
	ErrAccountNotFound    = NewNotFoundError(CodeAccountNotFound, "account not found")

	ErrEmailAlreadyExists = NewConflictError(CodeEmailAlreadyExists, "an account with this email already exists")
	ErrProviderMismatch   = NewConflictError(CodeProviderMismatch, "this email is registered with a different sign-in method")
	ErrPasswordAlreadySet = NewConflictError(CodePasswordAlreadySet, "this account already has a password")

	ErrInvalidVerificationCode = NewValidationError(CodeInvalidVerification, "invalid or expired verification code")
	ErrInvalidResetToken       = NewValidationError(CodeInvalidResetToken, "invalid or expired password reset token")

	ErrUsernameAlreadyChanged = NewConflictError(CodeUsernameAlreadyChange, "username can only be changed once")
	ErrUsernameTaken          = NewConflictError(CodeUsernameTaken, "username is already taken")
	ErrProfileNotFound        = NewNotFoundError(CodeProfileNotFound, "profile not found")
)
