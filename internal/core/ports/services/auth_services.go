package services

import (
	"context"

	"github.com/SscSPs/saas_starter_auth/internal/core/domain"
)

// SignupSvc covers email/password registration and verification.
type SignupSvc interface {
	CreateAccount(ctx context.Context, signup domain.PasswordSignup) (*domain.AuthAccount, error)
	VerifyEmail(ctx context.Context, email, code string, reqCtx domain.RequestContext) (*domain.AuthResult, error)
	ResendVerification(ctx context.Context, email string) error
}

// LoginSvc covers the login paths that end with a token pair and a session.
type LoginSvc interface {
	LogIn(ctx context.Context, email, password string, reqCtx domain.RequestContext) (*domain.AuthResult, error)
	CompleteOAuthLogin(ctx context.Context, info domain.OAuthUserInfo, reqCtx domain.RequestContext) (*domain.AuthResult, error)
	Refresh(ctx context.Context, refreshToken, sessionID string) (*domain.TokenPair, error)
	LogOut(ctx context.Context, principal domain.Principal) error
	LogOutEverywhere(ctx context.Context, principal domain.Principal) (int, error)
}

// PasswordSvc covers password recovery and setting a first password.
type PasswordSvc interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, token, newPassword string) error
	SetPassword(ctx context.Context, accountID, password string) (*domain.AuthAccount, error)
}

// AuthSvcFacade combines all auth orchestration interfaces.
type AuthSvcFacade interface {
	SignupSvc
	LoginSvc
	PasswordSvc
}
