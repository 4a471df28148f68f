package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/dto"
	"github.com/gin-gonic/gin"
)

// profileHandler serves the caller's own account and profile.
type profileHandler struct {
	profileService portssvc.ProfileSvcFacade
}

func newProfileHandler(ps portssvc.ProfileSvcFacade) *profileHandler {
	return &profileHandler{profileService: ps}
}

func registerProfileRoutes(rg *gin.RouterGroup, profileService portssvc.ProfileSvcFacade) {
	h := newProfileHandler(profileService)

	rg.GET("/profile", h.getProfile)
	rg.PATCH("/profile", h.updateProfile)
	rg.POST("/change-username", h.changeUsername)
	rg.DELETE("/delete-user", h.deleteUser)
}

// getProfile godoc
// @Summary Get the caller's account and profile
// @Tags profile
// @Produce json
// @Success 200 {object} dto.Envelope{data=dto.UserResponse}
// @Failure 401 {object} dto.Envelope
// @Failure 404 {object} dto.Envelope
// @Security BearerAuth
// @Router /profile [get]
func (h *profileHandler) getProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	account, profile, err := h.profileService.GetAccountWithProfile(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile retrieved", dto.ToUserResponse(account, profile))
}

// updateProfile godoc
// @Summary Update profile fields
// @Description Omitted fields are left unchanged. Username changes go through /change-username.
// @Tags profile
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} dto.Envelope{data=dto.ProfileResponse}
// @Failure 400 {object} dto.Envelope
// @Security BearerAuth
// @Router /profile [patch]
func (h *profileHandler) updateProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.profileService.UpdateProfile(c.Request.Context(), p.UserID, req.ToProfileUpdate())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated", dto.ToProfileResponse(profile))
}

// changeUsername godoc
// @Summary Change the username
// @Description Allowed once per account.
// @Tags profile
// @Accept json
// @Produce json
// @Param request body dto.ChangeUsernameRequest true "New username"
// @Success 200 {object} dto.Envelope{data=dto.ProfileResponse}
// @Failure 400 {object} dto.Envelope
// @Failure 409 {object} dto.Envelope "Already changed or taken"
// @Security BearerAuth
// @Router /change-username [post]
func (h *profileHandler) changeUsername(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.ChangeUsernameRequest
	if !bindJSON(c, &req) {
		return
	}
	profile, err := h.profileService.ChangeUsername(c.Request.Context(), p.UserID, req.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Username changed", dto.ToProfileResponse(profile))
}

// deleteUser godoc
// @Summary Delete the caller's account
// @Description Requires the current password when the account has one. Revokes every session, then removes the account, its identities, profile and sessions.
// @Tags profile
// @Accept json
// @Produce json
// @Param request body dto.DeleteUserRequest false "Current password"
// @Success 200 {object} dto.Envelope
// @Failure 400 {object} dto.Envelope "Password missing or incorrect"
// @Security BearerAuth
// @Router /delete-user [delete]
func (h *profileHandler) deleteUser(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req dto.DeleteUserRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	if err := h.profileService.DeleteUser(c.Request.Context(), p.UserID, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Account deleted", nil)
}
