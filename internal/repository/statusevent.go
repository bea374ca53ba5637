package repository

import (
	"context"

	"dispatch/internal/domain"
)

// StatusEventRepository defines the persistence operations for the
// append-only status-event audit log.
type StatusEventRepository interface {
	// Append persists a new status event. Events are never updated or deleted.
	Append(ctx context.Context, event *domain.StatusEvent) error

	// LatestByBookingAndStatus retrieves the most recent event recording
	// the given status for a booking, or nil if none exists.
	LatestByBookingAndStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (*domain.StatusEvent, error)

	// ListByBooking retrieves all events for a booking, newest first.
	ListByBooking(ctx context.Context, bookingID string) ([]*domain.StatusEvent, error)
}
