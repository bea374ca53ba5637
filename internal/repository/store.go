package repository

import "context"

// Tx bundles the transaction-scoped repositories. Every repository method
// called through a Tx runs on the same database transaction, so one
// logical operation (a transition, or one payment/refund event) commits
// or rolls back as a whole.
type Tx interface {
	Bookings() BookingRepository
	StatusEvents() StatusEventRepository
	Payments() PaymentRepository
}

// Store is the transactional entry point to the booking store.
type Store interface {
	// Bookings returns a non-transactional booking repository for plain reads.
	Bookings() BookingRepository

	// StatusEvents returns a non-transactional status-event repository.
	StatusEvents() StatusEventRepository

	// Payments returns a non-transactional payment repository.
	Payments() PaymentRepository

	// WithinTx runs fn inside one atomic transaction. A non-nil error
	// from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
