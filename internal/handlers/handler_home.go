package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// healthCheck godoc
// @Summary Show the status of server.
// @Description Liveness probe.
// @Tags root
// @Produce json
// @Success 200 {object} dto.Envelope
// @Router /health [get]
func healthCheck(c *gin.Context) {
	respond(c, http.StatusOK, "OK", gin.H{"status": "ok"})
}
