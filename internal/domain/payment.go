package domain

import "time"

// PaymentStatus represents the current status of a booking's payment record.
type PaymentStatus string

const (
	PaymentStatusNone              PaymentStatus = "NONE"
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusPaid              PaymentStatus = "PAID"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Payment is the accumulated financial record for one booking (one-to-one).
// AmountPaidCents excludes tips and is never decremented; refunds are
// tracked in AmountRefundedCents so the original capture stays auditable.
type Payment struct {
	BookingID               string
	Status                  PaymentStatus
	AmountTotalCents        int64
	AmountPaidCents         int64
	TipCents                int64
	AmountRefundedCents     int64
	StripeCheckoutSessionID string
	StripePaymentIntentID   string
	ReceiptURL              string
	PaidAt                  time.Time
	RefundedAt              time.Time
}

// RemainingBalanceCents is the captured fare not yet refunded.
func (p *Payment) RemainingBalanceCents() int64 {
	return p.AmountPaidCents - p.AmountRefundedCents
}
