package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/saas_starter_auth/internal/core/ports/services"
	"github.com/SscSPs/saas_starter_auth/internal/dto"
	"github.com/gin-gonic/gin"
)

// sessionHandler lets a user see and revoke their device sessions.
type sessionHandler struct {
	sessionService portssvc.SessionSvcFacade
}

func newSessionHandler(ss portssvc.SessionSvcFacade) *sessionHandler {
	return &sessionHandler{sessionService: ss}
}

func registerSessionRoutes(rg *gin.RouterGroup, sessionService portssvc.SessionSvcFacade) {
	h := newSessionHandler(sessionService)

	sessions := rg.Group("/sessions")
	{
		sessions.GET("", h.listSessions)
		sessions.DELETE("", h.revokeSessionFromBody)
		sessions.DELETE("/:sessionId", h.revokeSession)
	}
}

// listSessions godoc
// @Summary List active sessions
// @Description Lists the caller's active sessions, most recently active first. The caller's own session is flagged as current.
// @Tags sessions
// @Produce json
// @Param X-Session-Id header string false "Session id"
// @Success 200 {object} dto.Envelope{data=[]dto.SessionResponse}
// @Failure 401 {object} dto.Envelope
// @Security BearerAuth
// @Router /sessions [get]
func (h *sessionHandler) listSessions(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	sessions, err := h.sessionService.ListSessions(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Sessions retrieved", dto.ToSessionListResponse(sessions, p.SessionID))
}

// revokeSession godoc
// @Summary Revoke a session
// @Tags sessions
// @Produce json
// @Param sessionId path string true "Session id"
// @Success 200 {object} dto.Envelope
// @Failure 403 {object} dto.Envelope "Session belongs to another account"
// @Failure 404 {object} dto.Envelope "Session not found"
// @Security BearerAuth
// @Router /sessions/{sessionId} [delete]
func (h *sessionHandler) revokeSession(c *gin.Context) {
	h.revoke(c, c.Param("sessionId"))
}

// revokeSessionFromBody godoc
// @Summary Revoke a session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body dto.RevokeSessionRequest true "Session id"
// @Success 200 {object} dto.Envelope
// @Failure 403 {object} dto.Envelope "Session belongs to another account"
// @Failure 404 {object} dto.Envelope "Session not found"
// @Security BearerAuth
// @Router /sessions [delete]
func (h *sessionHandler) revokeSessionFromBody(c *gin.Context) {
	var req dto.RevokeSessionRequest
	if !bindJSON(c, &req) {
		return
	}
	h.revoke(c, req.SessionID)
}

func (h *sessionHandler) revoke(c *gin.Context, sessionID string) {
	p, ok := principal(c)
	if !ok {
		return
	}
	if err := h.sessionService.RevokeSession(c.Request.Context(), sessionID, p.UserID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Session revoked", nil)
}
