package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OutcomeResponse carries a rejection outcome with enough structure for
// the UI to render a precise message.
type OutcomeResponse struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	From             string `json:"from,omitempty"`
	To               string `json:"to,omitempty"`
	MinutesRemaining int    `json:"minutes_remaining,omitempty"`
}

// respondOutcome maps a rejection outcome to its HTTP representation.
func respondOutcome(c *gin.Context, outcome *service.Outcome) {
	response := OutcomeResponse{Error: string(outcome.Code)}

	switch outcome.Code {
	case service.OutcomeUnauthenticated:
		response.Message = "authentication required"
		c.JSON(http.StatusUnauthorized, response)

	case service.OutcomeForbidden:
		response.Message = "not permitted for this booking"
		c.JSON(http.StatusForbidden, response)

	case service.OutcomeNotFound:
		response.Message = "booking not found"
		c.JSON(http.StatusNotFound, response)

	case service.OutcomeInvalidTransition:
		response.Message = fmt.Sprintf("cannot transition from %s to %s", outcome.From, outcome.To)
		response.From = string(outcome.From)
		response.To = string(outcome.To)
		c.JSON(http.StatusConflict, response)

	case service.OutcomeReasonRequired:
		response.Message = "a reason is required for this transition"
		c.JSON(http.StatusBadRequest, response)

	case service.OutcomeNoShowTooEarly:
		response.Message = fmt.Sprintf("wait %d more minute(s) before recording a no-show", outcome.MinutesRemaining)
		response.MinutesRemaining = outcome.MinutesRemaining
		c.JSON(http.StatusUnprocessableEntity, response)

	case service.OutcomeNotFoundOrNotAssigned:
		response.Message = "this trip may have changed, please refresh"
		c.JSON(http.StatusConflict, response)

	default:
		response.Message = "request rejected"
		c.JSON(http.StatusInternalServerError, response)
	}
}

// respondRepoError maps repository errors on plain reads.
func respondRepoError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
