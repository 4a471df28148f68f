package handlers

import (
	"net/http"
	"strings"

	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/dto"
	"github.com/SscSPs/saas_starter_auth/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
)

// authHandler serves the email/password and token endpoints under /auth.
type authHandler struct {
	authService portssvc.AuthSvcFacade
}

func newAuthHandler(as portssvc.AuthSvcFacade) *authHandler {
	return &authHandler{authService: as}
}

// authLimiters holds the rate limiters of the public auth routes. A nil
// limiter leaves the route unlimited.
type authLimiters struct {
	login  *limiter.Limiter
	signup *limiter.Limiter
}

// limited prefixes h with a limiter scoped to route, so each route keeps its
// own budget per client IP.
func limited(route string, lim *limiter.Limiter, h gin.HandlerFunc) []gin.HandlerFunc {
	if lim == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{middleware.RateLimit(route, lim), h}
}

// registerAuthRoutes sets up the routes for authentication.
func registerAuthRoutes(v1 *gin.RouterGroup, authService portssvc.AuthSvcFacade, guard *middleware.Guard, limits authLimiters) {
	h := newAuthHandler(authService)

	auth := v1.Group("/auth")
	{
		auth.POST("/create-account", limited("create-account", limits.signup, h.createAccount)...)
		auth.POST("/log-in", limited("log-in", limits.login, h.logIn)...)
		auth.POST("/email-verification", limited("email-verification", limits.login, h.verifyEmail)...)
		auth.POST("/resend-verification", limited("resend-verification", limits.signup, h.resendVerification)...)
		auth.POST("/refresh", h.refresh)
		auth.POST("/forgot-password", limited("forgot-password", limits.signup, h.forgotPassword)...)
		auth.POST("/reset-password", limited("reset-password", limits.login, h.resetPassword)...)

		guarded := auth.Group("", guard.RequireAuth())
		guarded.POST("/log-out", h.logOut)
		guarded.POST("/log-out-everywhere", h.logOutEverywhere)
		guarded.POST("/set-password", h.setPassword)
	}
}

// createAccount godoc
// @Summary Create an account with email and password
// @Description Creates an unverified account (or links a password to an existing OAuth account) and emails a verification code.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.CreateAccountRequest true "Signup details"
// @Success 201 {object} dto.Envelope{data=dto.CreateAccountResponse}
// @Failure 400 {object} dto.Envelope "Validation failed"
// @Failure 409 {object} dto.Envelope "Email already exists or provider mismatch"
// @Failure 429 {object} dto.Envelope "Rate limited"
// @Router /auth/create-account [post]
func (h *authHandler) createAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.authService.CreateAccount(c.Request.Context(), req.ToPasswordSignup())
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Account created. Check your email for a verification code.", dto.CreateAccountResponse{
		AuthAccountID: account.AuthAccountID,
		Email:         account.Email,
		IsVerified:    account.IsVerified,
	})
}

// logIn godoc
// @Summary Log in with email and password
// @Description Verifies credentials, starts a device session and returns a token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LogInRequest true "Credentials"
// @Success 200 {object} dto.Envelope{data=dto.AuthResponse}
// @Failure 400 {object} dto.Envelope "Validation failed"
// @Failure 401 {object} dto.Envelope "Invalid credentials or the account uses an OAuth provider"
// @Failure 403 {object} dto.Envelope "Email not verified"
// @Failure 429 {object} dto.Envelope "Rate limited"
// @Router /auth/log-in [post]
func (h *authHandler) logIn(c *gin.Context) {
	var req dto.LogInRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.LogIn(c.Request.Context(), req.Email, req.Password, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Logged in", dto.ToAuthResponse(result))
}

// verifyEmail godoc
// @Summary Verify an email address
// @Description Checks the emailed code, marks the email verified and logs the user in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailVerificationRequest true "Email and code"
// @Success 200 {object} dto.Envelope{data=dto.AuthResponse}
// @Failure 400 {object} dto.Envelope "Invalid or expired code"
// @Router /auth/email-verification [post]
func (h *authHandler) verifyEmail(c *gin.Context) {
	var req dto.EmailVerificationRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.VerifyEmail(c.Request.Context(), req.Email, req.VerificationCode, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Email verified", dto.ToAuthResponse(result))
}

// resendVerification godoc
// @Summary Resend the verification code
// @Description Always succeeds so that registered emails cannot be enumerated.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.Envelope
// @Router /auth/resend-verification [post]
func (h *authHandler) resendVerification(c *gin.Context) {
	var req dto.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ResendVerification(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "If the account exists and is unverified, a new code has been sent.", nil)
}

// refresh godoc
// @Summary Rotate the token pair
// @Description Exchanges a refresh token for a new pair. The session id may be sent in the body or the X-Session-Id header; a revoked session cannot refresh.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Refresh token"
// @Param X-Session-Id header string false "Session id"
// @Success 200 {object} dto.Envelope{data=dto.TokensResponse}
// @Failure 401 {object} dto.Envelope "Invalid, expired or wrong-type token, or revoked session"
// @Router /auth/refresh [post]
func (h *authHandler) refresh(c *gin.Context) {
	var req dto.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(c.GetHeader(middleware.SessionIDHeader))
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Token refreshed", dto.ToTokensResponse(*pair))
}

// forgotPassword godoc
// @Summary Request a password reset link
// @Description Always succeeds so that registered emails cannot be enumerated.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Email"
// @Success 200 {object} dto.Envelope
// @Router /auth/forgot-password [post]
func (h *authHandler) forgotPassword(c *gin.Context) {
	var req dto.EmailRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "If an account with a password exists, a reset link has been sent.", nil)
}

// resetPassword godoc
// @Summary Reset the password
// @Description Sets a new password from an emailed reset token and revokes every session.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset details"
// @Success 200 {object} dto.Envelope
// @Failure 400 {object} dto.Envelope "Invalid or expired token"
// @Router /auth/reset-password [post]
func (h *authHandler) resetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ResetPassword(c.Request.Context(), req.Email, req.Token, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password has been reset. Please log in again.", nil)
}

// logOut godoc
// @Summary Log out of the current session
// @Tags auth
// @Produce json
// @Param X-Session-Id header string false "Session id"
// @Success 200 {object} dto.Envelope
// @Failure 401 {object} dto.Envelope
// @Security BearerAuth
// @Router /auth/log-out [post]
func (h *authHandler) logOut(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.authService.LogOut(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Logged out", nil)
}

// logOutEverywhere godoc
// @Summary Log out of every other session
// @Tags auth
// @Produce json
// @Param X-Session-Id header string false "Session id kept alive"
// @Success 200 {object} dto.Envelope{data=dto.LogOutEverywhereResponse}
// @Failure 401 {object} dto.Envelope
// @Security BearerAuth
// @Router /auth/log-out-everywhere [post]
func (h *authHandler) logOutEverywhere(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	revoked, err := h.authService.LogOutEverywhere(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Logged out of other sessions", dto.LogOutEverywhereResponse{RevokedSessions: revoked})
}

// setPassword godoc
// @Summary Add a password to an OAuth-only account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SetPasswordRequest true "New password"
// @Success 200 {object} dto.Envelope{data=dto.UserResponse}
// @Failure 400 {object} dto.Envelope
// @Failure 409 {object} dto.Envelope "Password already set"
// @Security BearerAuth
// @Router /auth/set-password [post]
func (h *authHandler) setPassword(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	account, err := h.authService.SetPassword(c.Request.Context(), p.UserID, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password set", dto.ToUserResponse(account, nil))
}
