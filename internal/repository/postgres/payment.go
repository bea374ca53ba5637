package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `
	booking_id, status, amount_total_cents, amount_paid_cents, tip_cents,
	amount_refunded_cents, stripe_checkout_session_id, stripe_payment_intent_id,
	receipt_url, paid_at, refunded_at
`

// GetByBookingID retrieves the payment record for a booking, or nil.
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1`, bookingID)
}

// GetByCheckoutSessionID retrieves a payment by Stripe checkout-session ID, or nil.
func (r *PaymentRepository) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_checkout_session_id = $1`, sessionID)
}

// GetByPaymentIntentID retrieves a payment by Stripe payment-intent ID, or nil.
func (r *PaymentRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_payment_intent_id = $1`, intentID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg string) (*domain.Payment, error) {
	var payment domain.Payment
	var sessionID, intentID, receiptURL sql.NullString
	var paidAt, refundedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&payment.BookingID,
		&payment.Status,
		&payment.AmountTotalCents,
		&payment.AmountPaidCents,
		&payment.TipCents,
		&payment.AmountRefundedCents,
		&sessionID,
		&intentID,
		&receiptURL,
		&paidAt,
		&refundedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	payment.StripeCheckoutSessionID = sessionID.String
	payment.StripePaymentIntentID = intentID.String
	payment.ReceiptURL = receiptURL.String
	if paidAt.Valid {
		payment.PaidAt = paidAt.Time
	}
	if refundedAt.Valid {
		payment.RefundedAt = refundedAt.Time
	}

	return &payment, nil
}

// Upsert inserts or replaces the payment record keyed by booking ID.
// Stripe reference IDs are stored as NULL when empty so the unique
// indexes on them do not collide across bookings.
func (r *PaymentRepository) Upsert(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11)
		ON CONFLICT (booking_id) DO UPDATE SET
			status = EXCLUDED.status,
			amount_total_cents = EXCLUDED.amount_total_cents,
			amount_paid_cents = EXCLUDED.amount_paid_cents,
			tip_cents = EXCLUDED.tip_cents,
			amount_refunded_cents = EXCLUDED.amount_refunded_cents,
			stripe_checkout_session_id = COALESCE(EXCLUDED.stripe_checkout_session_id, payments.stripe_checkout_session_id),
			stripe_payment_intent_id = COALESCE(EXCLUDED.stripe_payment_intent_id, payments.stripe_payment_intent_id),
			receipt_url = COALESCE(EXCLUDED.receipt_url, payments.receipt_url),
			paid_at = EXCLUDED.paid_at,
			refunded_at = EXCLUDED.refunded_at
	`

	var paidAt, refundedAt sql.NullTime
	if !payment.PaidAt.IsZero() {
		paidAt = sql.NullTime{Time: payment.PaidAt, Valid: true}
	}
	if !payment.RefundedAt.IsZero() {
		refundedAt = sql.NullTime{Time: payment.RefundedAt, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		payment.BookingID,
		payment.Status,
		payment.AmountTotalCents,
		payment.AmountPaidCents,
		payment.TipCents,
		payment.AmountRefundedCents,
		payment.StripeCheckoutSessionID,
		payment.StripePaymentIntentID,
		payment.ReceiptURL,
		paidAt,
		refundedAt,
	)

	return err
}

// Ensure PaymentRepository implements repository.PaymentRepository.
var _ repository.PaymentRepository = (*PaymentRepository)(nil)
