// Package v1 provides HTTP handlers for the screening API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jcandel/hemoscan/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session API
	e.POST("/v1/sessions", h.SubmitSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.POST("/v1/sessions/:session_id/wait", h.WaitSession)

	// Interview API
	e.POST("/v1/interview/next", h.NextInterviewTurn)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
