package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// BookingHandler handles HTTP requests for booking lifecycle operations.
type BookingHandler struct {
	transitionService *service.TransitionService
	store             repository.Store
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(transitionService *service.TransitionService, store repository.Store) *BookingHandler {
	return &BookingHandler{
		transitionService: transitionService,
		store:             store,
	}
}

// actorFromRequest builds the explicit Actor from the identity headers set
// by the upstream auth layer. Roles are normalized exactly once here,
// whether the gateway sends a single role or a comma-separated list.
func actorFromRequest(c *gin.Context) domain.Actor {
	var raw []string
	if role := c.GetHeader("X-Actor-Role"); role != "" {
		raw = append(raw, role)
	}
	if roles := c.GetHeader("X-Actor-Roles"); roles != "" {
		raw = append(raw, strings.Split(roles, ",")...)
	}

	return domain.Actor{
		ID:    c.GetHeader("X-Actor-Id"),
		Roles: domain.NormalizeRoles(raw),
	}
}

// UpdateStatusRequest is the body for POST /v1/bookings/:id/status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// TransitionResponse is the success response for transition operations.
type TransitionResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// UpdateStatus handles POST /v1/bookings/:id/status
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	outcome, err := h.transitionService.ApplyStatusTransition(c.Request.Context(), service.TransitionRequest{
		BookingID: c.Param("id"),
		Actor:     actorFromRequest(c),
		NewStatus: domain.BookingStatus(req.Status),
		Reason:    req.Reason,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if !outcome.OK() {
		respondOutcome(c, outcome)
		return
	}

	c.JSON(http.StatusOK, TransitionResponse{
		BookingID: c.Param("id"),
		Status:    string(outcome.NewStatus),
	})
}

// CancelRequest is the body for POST /v1/bookings/:id/cancel.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /v1/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
			return
		}
	}

	outcome, err := h.transitionService.CancelBooking(c.Request.Context(), c.Param("id"), actorFromRequest(c), req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if !outcome.OK() {
		respondOutcome(c, outcome)
		return
	}

	c.JSON(http.StatusOK, TransitionResponse{
		BookingID: c.Param("id"),
		Status:    string(outcome.NewStatus),
	})
}

// BookingResponse is the snapshot returned by GET /v1/bookings/:id.
type BookingResponse struct {
	BookingID  string       `json:"booking_id"`
	Status     string       `json:"status"`
	PickupAt   string       `json:"pickup_at"`
	TotalCents int64        `json:"total_cents"`
	Currency   string       `json:"currency"`
	DriverID   string       `json:"driver_id,omitempty"`
	VehicleID  string       `json:"vehicle_id,omitempty"`
	Payment    *PaymentInfo `json:"payment,omitempty"`
}

// PaymentInfo contains payment details in the response.
type PaymentInfo struct {
	Status              string `json:"status"`
	AmountTotalCents    int64  `json:"amount_total_cents"`
	AmountPaidCents     int64  `json:"amount_paid_cents"`
	TipCents            int64  `json:"tip_cents"`
	AmountRefundedCents int64  `json:"amount_refunded_cents"`
	ReceiptURL          string `json:"receipt_url,omitempty"`
}

// GetBooking handles GET /v1/bookings/:id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	booking, assignment, err := h.store.Bookings().GetWithAssignment(ctx, id)
	if err != nil {
		respondRepoError(c, err)
		return
	}

	response := BookingResponse{
		BookingID:  booking.ID,
		Status:     string(booking.Status),
		PickupAt:   booking.PickupAt.Format("2006-01-02T15:04:05Z07:00"),
		TotalCents: booking.TotalCents,
		Currency:   booking.Currency,
	}

	if assignment != nil {
		response.DriverID = assignment.DriverID
		response.VehicleID = assignment.VehicleID
	}

	payment, err := h.store.Payments().GetByBookingID(ctx, id)
	if err != nil {
		respondRepoError(c, err)
		return
	}
	if payment != nil {
		response.Payment = &PaymentInfo{
			Status:              string(payment.Status),
			AmountTotalCents:    payment.AmountTotalCents,
			AmountPaidCents:     payment.AmountPaidCents,
			TipCents:            payment.TipCents,
			AmountRefundedCents: payment.AmountRefundedCents,
			ReceiptURL:          payment.ReceiptURL,
		}
	}

	c.JSON(http.StatusOK, response)
}

// StatusEventResponse is one audit row in the events listing.
type StatusEventResponse struct {
	ID        string         `json:"id"`
	Status    string         `json:"status"`
	EventType string         `json:"event_type"`
	ActorID   string         `json:"actor_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// ListEvents handles GET /v1/bookings/:id/events
func (h *BookingHandler) ListEvents(c *gin.Context) {
	events, err := h.store.StatusEvents().ListByBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRepoError(c, err)
		return
	}

	response := make([]StatusEventResponse, 0, len(events))
	for _, event := range events {
		response = append(response, StatusEventResponse{
			ID:        event.ID,
			Status:    string(event.Status),
			EventType: string(event.EventType),
			ActorID:   event.ActorID,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}
