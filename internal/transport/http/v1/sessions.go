package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jcandel/hemoscan/internal/domain"
)

// SubmitSession accepts a new screening session.
func (h *Handler) SubmitSession(c echo.Context) error {
	var req domain.SubmitSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()

	resp, err := h.service.Submit(ctx, &req)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, resp)
}

// GetSession retrieves the current state of a session.
func (h *Handler) GetSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	ctx := c.Request().Context()

	resp, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if resp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	return c.JSON(http.StatusOK, resp)
}

// WaitSession blocks until the session reaches a terminal status or the
// timeout elapses, whichever comes first.
func (h *Handler) WaitSession(c echo.Context) error {
	sessionID := c.Param("session_id")
	timeoutMs := 60000 // default 60s

	if t := c.QueryParam("timeout_ms"); t != "" {
		if val, err := strconv.Atoi(t); err == nil {
			timeoutMs = val
		}
	}

	ctx := c.Request().Context()

	resp, err := h.service.WaitSession(ctx, sessionID, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if resp == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}

	return c.JSON(http.StatusOK, resp)
}
