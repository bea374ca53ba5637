package repository

import (
	"context"

	"dispatch/internal/domain"
)

// StatusPredicate constrains a conditional status update. The update only
// applies while the persisted row still matches every non-zero field, so a
// concurrent writer shows up as zero rows affected instead of a lost update.
type StatusPredicate struct {
	// FromStatus must equal the persisted status.
	FromStatus domain.BookingStatus

	// DriverID, when non-empty, requires the active assignment to belong
	// to this driver.
	DriverID string
}

// BookingRepository defines the persistence operations for bookings.
type BookingRepository interface {
	// GetByID retrieves a booking by ID.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// GetWithAssignment retrieves a booking and its active assignment in
	// one read. The assignment is nil when no driver is assigned. Inside
	// a transaction the booking row is locked for the transaction's
	// duration so concurrent transitions for the same booking serialize.
	GetWithAssignment(ctx context.Context, id string) (*domain.Booking, *domain.Assignment, error)

	// ConditionalUpdateStatus writes newStatus only while the predicate
	// still holds, and reports the number of rows affected.
	ConditionalUpdateStatus(ctx context.Context, id string, pred StatusPredicate, newStatus domain.BookingStatus) (int64, error)
}
