package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status" jsonschema:"required,enum=ok,enum=degraded"`
	Grocy  string `json:"grocy" jsonschema:"required,enum=connected,enum=unreachable,enum=not configured"`
}

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status: "ok",
	}

	// Check the inventory service
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.logger.Warn().Err(err).Msg("Grocy health check failed")
			response.Status = "degraded"
			response.Grocy = "unreachable"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Grocy = "connected"
	} else {
		response.Grocy = "not configured"
	}

	c.JSON(http.StatusOK, response)
}
