package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jcandel/hemoscan/internal/domain"
)

// NextInterviewTurn returns the next interview question for the supplied
// transcript, or a terminal marker when the interview is done.
func (h *Handler) NextInterviewTurn(c echo.Context) error {
	var req domain.InterviewTurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()

	resp, err := h.service.NextInterviewTurn(ctx, &req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}
