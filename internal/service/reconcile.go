package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dispatch/internal/domain"
	"dispatch/internal/notify"
	"dispatch/internal/repository"
	"dispatch/internal/stripe"
)

// ReconciliationService consumes Stripe webhook events and brings the
// booking's payment record and status into a consistent state exactly
// once per event's effect. Reprocessing any event is safe: payments are
// upserted by booking ID, the CONFIRMED advance is gated on "not already
// past payment", and refund status is recomputed from absolute totals.
type ReconciliationService struct {
	store        repository.Store
	stripeClient stripe.Client
	notifier     Notifier
	log          zerolog.Logger
	now          func() time.Time
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(store repository.Store, stripeClient stripe.Client, notifier Notifier, logger zerolog.Logger) *ReconciliationService {
	return &ReconciliationService{
		store:        store,
		stripeClient: stripeClient,
		notifier:     notifier,
		log:          logger,
		now:          time.Now,
	}
}

// HandleEvent routes one webhook event. A nil return acknowledges the
// event to Stripe; an error makes the webhook endpoint fail so Stripe
// redelivers. Only a failed reconciliation transaction returns an error:
// unresolvable or malformed events are acknowledged as no-ops.
func (s *ReconciliationService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventCheckoutSessionCompleted, stripe.EventCheckoutAsyncPaymentSucceeded:
		session, err := event.CheckoutSession()
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", event.ID).Msg("malformed checkout session payload")
			return nil
		}
		return s.handleCheckoutSession(ctx, session)

	case stripe.EventPaymentIntentSucceeded:
		intent, err := event.PaymentIntent()
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", event.ID).Msg("malformed payment intent payload")
			return nil
		}
		return s.handlePaymentIntent(ctx, intent)

	case stripe.EventChargeRefunded:
		charge, err := event.Charge()
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", event.ID).Msg("malformed charge payload")
			return nil
		}
		return s.applyRefundTotal(ctx, charge.PaymentIntent, charge.AmountRefunded)

	case stripe.EventChargeRefundUpdated:
		refund, err := event.Refund()
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", event.ID).Msg("malformed refund payload")
			return nil
		}
		if refund.Status != "succeeded" {
			return nil
		}
		return s.applyRefundTotal(ctx, refund.PaymentIntent, refund.Amount)

	default:
		s.log.Debug().Str("type", event.Type).Msg("ignoring unhandled stripe event")
		return nil
	}
}

func (s *ReconciliationService) handleCheckoutSession(ctx context.Context, session *stripe.CheckoutSession) error {
	metadata := stripe.ParsePaymentMetadata(session.Metadata)

	bookingID, err := s.resolveBookingID(ctx, metadata.BookingID, session.ID, session.PaymentIntent)
	if err != nil {
		return err
	}
	if bookingID == "" {
		s.log.Info().Str("session_id", session.ID).Msg("no booking resolvable for checkout session, acknowledging")
		return nil
	}

	result, err := s.FinalizePaid(ctx, FinalizePaidRequest{
		BookingID:          bookingID,
		CheckoutSessionID:  session.ID,
		PaymentIntentID:    session.PaymentIntent,
		ReceiptURL:         s.lookupReceiptURL(ctx, session.PaymentIntent),
		AmountCents:        session.AmountTotal,
		Currency:           session.Currency,
		IsBalancePayment:   metadata.IsBalancePayment,
		BalanceAmountCents: metadata.BalanceAmountCents,
		TipCents:           metadata.TipCents,
	})
	if err != nil {
		return err
	}
	s.logCapture(bookingID, result)

	return nil
}

func (s *ReconciliationService) handlePaymentIntent(ctx context.Context, intent *stripe.PaymentIntent) error {
	metadata := stripe.ParsePaymentMetadata(intent.Metadata)

	bookingID, err := s.resolveBookingID(ctx, metadata.BookingID, "", intent.ID)
	if err != nil {
		return err
	}
	if bookingID == "" {
		s.log.Info().Str("intent_id", intent.ID).Msg("no booking resolvable for payment intent, acknowledging")
		return nil
	}

	amount := intent.AmountReceived
	if amount == 0 {
		amount = intent.Amount
	}

	result, err := s.FinalizePaid(ctx, FinalizePaidRequest{
		BookingID:          bookingID,
		PaymentIntentID:    intent.ID,
		ReceiptURL:         intent.ReceiptURL(),
		AmountCents:        amount,
		Currency:           intent.Currency,
		IsBalancePayment:   metadata.IsBalancePayment,
		BalanceAmountCents: metadata.BalanceAmountCents,
		TipCents:           metadata.TipCents,
	})
	if err != nil {
		return err
	}
	s.logCapture(bookingID, result)

	return nil
}

// resolveBookingID finds the booking a provider event belongs to:
// explicit metadata first, then the stored Stripe references, then a
// session lookup against the Stripe API. An empty result means the event
// is not actionable.
func (s *ReconciliationService) resolveBookingID(ctx context.Context, metadataBookingID, sessionID, intentID string) (string, error) {
	if metadataBookingID != "" {
		return metadataBookingID, nil
	}

	payments := s.store.Payments()

	if sessionID != "" {
		payment, err := payments.GetByCheckoutSessionID(ctx, sessionID)
		if err != nil {
			return "", err
		}
		if payment != nil {
			return payment.BookingID, nil
		}
	}

	if intentID != "" {
		payment, err := payments.GetByPaymentIntentID(ctx, intentID)
		if err != nil {
			return "", err
		}
		if payment != nil {
			return payment.BookingID, nil
		}
	}

	if sessionID != "" {
		session, err := s.stripeClient.GetCheckoutSession(ctx, sessionID)
		if err != nil {
			// Enrichment is best-effort: the webhook still acks so
			// Stripe does not retry an event we cannot use anyway.
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("stripe session lookup failed")
			return "", nil
		}
		if id := session.Metadata["bookingId"]; id != "" {
			return id, nil
		}
	}

	return "", nil
}

// lookupReceiptURL fetches the receipt URL for a capture whose webhook
// payload does not carry one (checkout sessions never do; the receipt lives
// on the intent's charge). Best-effort: a payment without a receipt is
// still a payment.
func (s *ReconciliationService) lookupReceiptURL(ctx context.Context, intentID string) string {
	if intentID == "" {
		return ""
	}

	intent, err := s.stripeClient.GetPaymentIntent(ctx, intentID)
	if err != nil {
		if !errors.Is(err, stripe.ErrLookupDisabled) {
			s.log.Warn().Err(err).Str("intent_id", intentID).Msg("stripe payment intent lookup failed")
		}
		return ""
	}

	return intent.ReceiptURL()
}

// FinalizePaidRequest carries one capture event's inputs.
type FinalizePaidRequest struct {
	BookingID          string
	CheckoutSessionID  string
	PaymentIntentID    string
	ReceiptURL         string
	AmountCents        int64
	Currency           string
	IsBalancePayment   bool
	BalanceAmountCents int64
	TipCents           int64
}

// CaptureResult reports what a capture event changed.
type CaptureResult struct {
	Payment       *domain.Payment
	FullyPaid     bool
	StatusChanged bool
}

// FinalizePaid applies one capture event atomically: recomputes the
// cumulative fare and tip accumulators, upserts the payment record keyed
// by booking ID, and advances the booking to CONFIRMED only when it has
// not already progressed past payment. Returns (nil, nil) when the
// booking does not exist.
func (s *ReconciliationService) FinalizePaid(ctx context.Context, req FinalizePaidRequest) (*CaptureResult, error) {
	var result *CaptureResult

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		booking, _, err := tx.Bookings().GetWithAssignment(ctx, req.BookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		}

		existing, err := tx.Payments().GetByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}

		var previouslyPaid, previousTip, previouslyRefunded int64
		var refundedAt time.Time
		if existing != nil {
			previouslyPaid = existing.AmountPaidCents
			previousTip = existing.TipCents
			previouslyRefunded = existing.AmountRefundedCents
			refundedAt = existing.RefundedAt
		}

		// An ambiguous or legacy event without an amount falls back to
		// the booking's authoritative fare.
		newPaymentAmount := req.AmountCents
		if req.IsBalancePayment && req.BalanceAmountCents > 0 {
			newPaymentAmount = req.BalanceAmountCents
		} else if newPaymentAmount <= 0 {
			newPaymentAmount = booking.TotalCents
		}

		// Tips accumulate independently of the fare.
		baseFarePayment := newPaymentAmount - req.TipCents
		totalTip := previousTip + req.TipCents

		// A balance payment tops up the accumulator; a full/initial
		// payment event is authoritative and replaces it. That split is
		// what lets a first payment and a later balance top-up coexist
		// without double counting.
		totalPaid := baseFarePayment
		if req.IsBalancePayment {
			totalPaid = previouslyPaid + baseFarePayment
		}

		fullyPaid := totalPaid >= booking.TotalCents

		payment := &domain.Payment{
			BookingID:               booking.ID,
			Status:                  domain.PaymentStatusPaid,
			AmountTotalCents:        booking.TotalCents,
			AmountPaidCents:         totalPaid,
			TipCents:                totalTip,
			AmountRefundedCents:     previouslyRefunded,
			StripeCheckoutSessionID: req.CheckoutSessionID,
			StripePaymentIntentID:   req.PaymentIntentID,
			ReceiptURL:              req.ReceiptURL,
			PaidAt:                  s.now(),
			RefundedAt:              refundedAt,
		}
		if err := tx.Payments().Upsert(ctx, payment); err != nil {
			return err
		}

		// Advance to CONFIRMED only while the booking has not moved past
		// payment; a late or duplicate webhook must never re-confirm a
		// booking that is already ASSIGNED or further.
		statusChanged := false
		if s.shouldConfirm(booking.Status, previouslyPaid) {
			rows, err := tx.Bookings().ConditionalUpdateStatus(ctx, booking.ID,
				repository.StatusPredicate{FromStatus: booking.Status}, domain.BookingStatusConfirmed)
			if err != nil {
				return err
			}
			statusChanged = rows > 0
		}

		eventStatus := booking.Status
		if statusChanged {
			eventStatus = domain.BookingStatusConfirmed
		}

		if err := tx.StatusEvents().Append(ctx, &domain.StatusEvent{
			ID:        uuid.New().String(),
			BookingID: booking.ID,
			Status:    eventStatus,
			EventType: domain.StatusEventPaymentReceived,
			Metadata: map[string]any{
				"amountCents":         newPaymentAmount,
				"baseFareCents":       baseFarePayment,
				"tipCents":            req.TipCents,
				"previouslyPaidCents": previouslyPaid,
				"totalPaidCents":      totalPaid,
				"totalTipCents":       totalTip,
				"isBalancePayment":    req.IsBalancePayment,
				"fullyPaid":           fullyPaid,
				"statusChanged":       statusChanged,
			},
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		result = &CaptureResult{
			Payment:       payment,
			FullyPaid:     fullyPaid,
			StatusChanged: statusChanged,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result != nil && result.StatusChanged {
		s.notifier.Notify(notify.EventPaymentReceived, req.BookingID)
	}

	return result, nil
}

// shouldConfirm gates the CONFIRMED advance per the capture contract.
func (s *ReconciliationService) shouldConfirm(status domain.BookingStatus, previouslyPaid int64) bool {
	if domain.IsTerminalStatus(status) || status == domain.BookingStatusConfirmed {
		return false
	}
	return previouslyPaid == 0 || status == domain.BookingStatusPendingPayment
}

// RefundResult reports what a refund event changed.
type RefundResult struct {
	Payment       *domain.Payment
	FullyRefunded bool
}

// ApplyRefund applies one refund event atomically. The refunded total is
// absolute (recomputed by Stripe per charge), so replays converge on the
// same state. Capture amounts are never decremented.
func (s *ReconciliationService) ApplyRefund(ctx context.Context, paymentIntentID string, amountRefundedCents int64) (*RefundResult, error) {
	var result *RefundResult

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		payment, err := tx.Payments().GetByPaymentIntentID(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return nil
		}

		// Lock the booking row so refunds serialize against transitions.
		booking, _, err := tx.Bookings().GetWithAssignment(ctx, payment.BookingID)
		if err != nil {
			return err
		}

		fullyRefunded := amountRefundedCents > 0 && amountRefundedCents >= payment.AmountPaidCents

		switch {
		case fullyRefunded:
			payment.Status = domain.PaymentStatusRefunded
		case amountRefundedCents > 0:
			payment.Status = domain.PaymentStatusPartiallyRefunded
		}

		payment.AmountRefundedCents = amountRefundedCents
		if amountRefundedCents > 0 && payment.RefundedAt.IsZero() {
			payment.RefundedAt = s.now()
		}

		if err := tx.Payments().Upsert(ctx, payment); err != nil {
			return err
		}

		bookingRefunded := booking.Status == domain.BookingStatusRefunded
		if fullyRefunded && !bookingRefunded {
			rows, err := tx.Bookings().ConditionalUpdateStatus(ctx, booking.ID,
				repository.StatusPredicate{FromStatus: booking.Status}, domain.BookingStatusRefunded)
			if err != nil {
				return err
			}
			// A concurrent transition wins the race; the audit row must
			// record the status the booking actually holds.
			bookingRefunded = rows > 0
		}

		eventStatus := booking.Status
		if bookingRefunded {
			eventStatus = domain.BookingStatusRefunded
		}

		if err := tx.StatusEvents().Append(ctx, &domain.StatusEvent{
			ID:        uuid.New().String(),
			BookingID: payment.BookingID,
			Status:    eventStatus,
			EventType: domain.StatusEventRefundIssued,
			Metadata: map[string]any{
				"amountRefundedCents": amountRefundedCents,
				"amountPaidCents":     payment.AmountPaidCents,
				"remainingPaidCents":  payment.AmountPaidCents - amountRefundedCents,
				"fullyRefunded":       fullyRefunded,
			},
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		result = &RefundResult{Payment: payment, FullyRefunded: fullyRefunded}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result != nil && amountRefundedCents > 0 {
		s.notifier.Notify(notify.EventRefundIssued, result.Payment.BookingID)
	}

	return result, nil
}

func (s *ReconciliationService) applyRefundTotal(ctx context.Context, paymentIntentID string, amountRefundedCents int64) error {
	if paymentIntentID == "" {
		return nil
	}
	_, err := s.ApplyRefund(ctx, paymentIntentID, amountRefundedCents)
	return err
}

func (s *ReconciliationService) logCapture(bookingID string, result *CaptureResult) {
	if result == nil {
		s.log.Info().Str("booking_id", bookingID).Msg("capture event for unknown booking, acknowledging")
		return
	}
	s.log.Info().
		Str("booking_id", bookingID).
		Int64("amount_paid_cents", result.Payment.AmountPaidCents).
		Int64("tip_cents", result.Payment.TipCents).
		Bool("fully_paid", result.FullyPaid).
		Bool("status_changed", result.StatusChanged).
		Msg("payment capture reconciled")
}
