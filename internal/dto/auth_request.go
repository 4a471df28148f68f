package dto

import "github.com/SscSPs/saas_starter_auth/internal/core/domain"

// CreateAccountRequest is the body of POST /auth/create-account.
type CreateAccountRequest struct {
	FirstName       string `json:"firstName" binding:"required,max=100"`
	LastName        string `json:"lastName" binding:"max=100"`
	Email           string `json:"email" binding:"required,email,max=254"`
	Password        string `json:"password" binding:"required,strongpassword,max=72"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// ToPasswordSignup converts the request into the service input.
func (r CreateAccountRequest) ToPasswordSignup() domain.PasswordSignup {
	return domain.PasswordSignup{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Password:  r.Password,
	}
}

// LogInRequest is the body of POST /auth/log-in.
type LogInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// EmailVerificationRequest is the body of POST /auth/email-verification.
type EmailVerificationRequest struct {
	Email            string `json:"email" binding:"required,email"`
	VerificationCode string `json:"verificationCode" binding:"required,len=6,numeric"`
}

// EmailRequest carries just an email address (resend, forgot password).
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RefreshRequest is the body of POST /auth/refresh. SessionID may also be
// sent in the X-Session-Id header.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
	SessionID    string `json:"sessionId"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password" binding:"required,strongpassword,max=72"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

// SetPasswordRequest is the body of POST /auth/set-password.
type SetPasswordRequest struct {
	Password        string `json:"password" binding:"required,strongpassword,max=72"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}
