package repository

import (
	"context"

	"dispatch/internal/domain"
)

// PaymentRepository defines the persistence operations for payment records.
// Lookups by Stripe reference return nil (not an error) when no record
// exists, since missing rows are an expected webhook-resolution outcome.
type PaymentRepository interface {
	// GetByBookingID retrieves the payment record for a booking, or nil.
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)

	// GetByCheckoutSessionID retrieves a payment by Stripe checkout-session ID, or nil.
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Payment, error)

	// GetByPaymentIntentID retrieves a payment by Stripe payment-intent ID, or nil.
	GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Payment, error)

	// Upsert inserts or replaces the payment record keyed by booking ID.
	Upsert(ctx context.Context, payment *domain.Payment) error
}
