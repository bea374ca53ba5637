package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"dispatch/internal/domain"
	"dispatch/internal/notify"
	"dispatch/internal/stripe"
)

func newReconcileFixture(t *testing.T) (*ReconciliationService, *memStore, *fakeNotifier) {
	t.Helper()
	store := newMemStore()
	notifier := &fakeNotifier{}
	svc := NewReconciliationService(store, stripe.DisabledClient{}, notifier, zerolog.Nop())
	return svc, store, notifier
}

// ──────────────────────────────────────────────
// PAYMENT CAPTURE
// ──────────────────────────────────────────────

func TestFinalizePaid_InitialFullPaymentConfirms(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	result, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:         "booking-1",
		CheckoutSessionID: "cs_1",
		PaymentIntentID:   "pi_1",
		AmountCents:       10000,
		Currency:          "usd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.FullyPaid {
		t.Error("expected fully paid")
	}
	if !result.StatusChanged {
		t.Error("expected status change")
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", got)
	}

	payment := store.Payment("booking-1")
	if payment == nil {
		t.Fatal("expected payment record")
	}
	if payment.Status != domain.PaymentStatusPaid {
		t.Errorf("expected PAID, got %s", payment.Status)
	}
	if payment.AmountPaidCents != 10000 {
		t.Errorf("expected 10000 paid, got %d", payment.AmountPaidCents)
	}
	if payment.StripeCheckoutSessionID != "cs_1" || payment.StripePaymentIntentID != "pi_1" {
		t.Errorf("provider references not stored: %+v", payment)
	}

	events := store.EventsOfType(domain.StatusEventPaymentReceived)
	if len(events) != 1 {
		t.Fatalf("expected 1 PAYMENT_RECEIVED event, got %d", len(events))
	}

	sent := notifier.Sent()
	if len(sent) != 1 || sent[0].Event != notify.EventPaymentReceived {
		t.Errorf("expected one PAYMENT_RECEIVED notification, got %v", sent)
	}
}

func TestFinalizePaid_ReplayIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	req := FinalizePaidRequest{
		BookingID:         "booking-1",
		CheckoutSessionID: "cs_1",
		PaymentIntentID:   "pi_1",
		AmountCents:       10000,
		Currency:          "usd",
	}

	if _, err := svc.FinalizePaid(context.Background(), req); err != nil {
		t.Fatalf("first capture: %v", err)
	}
	result, err := svc.FinalizePaid(context.Background(), req)
	if err != nil {
		t.Fatalf("replayed capture: %v", err)
	}

	if result.StatusChanged {
		t.Error("replay must not report a status change")
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED after replay, got %s", got)
	}

	payment := store.Payment("booking-1")
	if payment.AmountPaidCents != 10000 {
		t.Errorf("replay inflated paid amount: %d", payment.AmountPaidCents)
	}
	if payment.TipCents != 0 {
		t.Errorf("replay inflated tip: %d", payment.TipCents)
	}

	// Only the first capture notifies.
	if sent := notifier.Sent(); len(sent) != 1 {
		t.Errorf("expected 1 notification after replay, got %d", len(sent))
	}
}

func TestFinalizePaid_BalancePaymentAccumulates(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	// Deposit of 6000 captured first.
	if _, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:       "booking-1",
		PaymentIntentID: "pi_deposit",
		AmountCents:     6000,
		Currency:        "usd",
	}); err != nil {
		t.Fatalf("deposit capture: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment.AmountPaidCents != 6000 {
		t.Fatalf("expected 6000 after deposit, got %d", payment.AmountPaidCents)
	}

	// Balance of 4000 tops up the accumulator instead of replacing it.
	result, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:          "booking-1",
		PaymentIntentID:    "pi_balance",
		AmountCents:        4000,
		Currency:           "usd",
		IsBalancePayment:   true,
		BalanceAmountCents: 4000,
	})
	if err != nil {
		t.Fatalf("balance capture: %v", err)
	}

	payment = store.Payment("booking-1")
	if payment.AmountPaidCents != 10000 {
		t.Errorf("expected 10000 total paid, got %d", payment.AmountPaidCents)
	}
	if !result.FullyPaid {
		t.Error("expected fully paid after balance payment")
	}
	if result.StatusChanged {
		t.Error("balance payment must not re-confirm an already confirmed booking")
	}
}

func TestFinalizePaid_TipSeparatedFromFare(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	// Gross charge 11000 of which 1000 is a tip; the fare accumulator
	// only sees 10000.
	result, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:       "booking-1",
		PaymentIntentID: "pi_1",
		AmountCents:     11000,
		Currency:        "usd",
		TipCents:        1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment.AmountPaidCents != 10000 {
		t.Errorf("expected fare 10000, got %d", payment.AmountPaidCents)
	}
	if payment.TipCents != 1000 {
		t.Errorf("expected tip 1000, got %d", payment.TipCents)
	}
	if !result.FullyPaid {
		t.Error("expected fully paid: tip must not count against the fare")
	}
}

func TestFinalizePaid_ZeroAmountFallsBackToBookingTotal(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	result, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:       "booking-1",
		PaymentIntentID: "pi_1",
		Currency:        "usd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment.AmountPaidCents != 10000 {
		t.Errorf("expected fallback to booking total 10000, got %d", payment.AmountPaidCents)
	}
	if !result.FullyPaid {
		t.Error("expected fully paid on fallback")
	}
}

func TestFinalizePaid_DoesNotReconfirmProgressedBooking(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusAssigned)
	store.AddPayment(&domain.Payment{
		BookingID:       "booking-1",
		Status:          domain.PaymentStatusPaid,
		AmountPaidCents: 10000,
	})

	// A late duplicate webhook for a booking already past payment.
	result, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:       "booking-1",
		PaymentIntentID: "pi_1",
		AmountCents:     10000,
		Currency:        "usd",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.StatusChanged {
		t.Error("late webhook must not change status")
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusAssigned {
		t.Errorf("expected ASSIGNED preserved, got %s", got)
	}
	if len(notifier.Sent()) != 0 {
		t.Error("late webhook must not notify")
	}
}

func TestHandleEvent_PaymentIntentStoresReceiptURL(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	event := checkoutSessionEvent(t, stripe.EventPaymentIntentSucceeded, map[string]any{
		"id":              "pi_1",
		"amount_received": 10000,
		"currency":        "usd",
		"metadata":        map[string]string{"bookingId": "booking-1"},
		"charges": map[string]any{
			"data": []map[string]any{
				{"id": "ch_1", "receipt_url": "https://pay.stripe.com/receipts/ch_1"},
			},
		},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment == nil {
		t.Fatal("expected payment record")
	}
	if payment.ReceiptURL != "https://pay.stripe.com/receipts/ch_1" {
		t.Errorf("capture stored no receipt URL: %+v", payment)
	}
}

func TestHandleEvent_CheckoutSessionFetchesReceiptURL(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	intent := &stripe.PaymentIntent{ID: "pi_1"}
	intent.Charges.Data = []stripe.Charge{
		{ID: "ch_1", ReceiptURL: "https://pay.stripe.com/receipts/ch_1"},
	}
	client := &fakeStripeClient{intents: map[string]*stripe.PaymentIntent{"pi_1": intent}}
	svc := NewReconciliationService(store, client, &fakeNotifier{}, zerolog.Nop())
	seedBooking(store, domain.BookingStatusPendingPayment)

	// The session object never carries a receipt URL; it is fetched from
	// the intent's charge.
	event := checkoutSessionEvent(t, stripe.EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_1",
		"payment_intent": "pi_1",
		"amount_total":   10000,
		"currency":       "usd",
		"metadata":       map[string]string{"bookingId": "booking-1"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment == nil {
		t.Fatal("expected payment record")
	}
	if payment.ReceiptURL != "https://pay.stripe.com/receipts/ch_1" {
		t.Errorf("capture stored no receipt URL: %+v", payment)
	}
}

func TestFinalizePaid_PreservesStoredReceiptURL(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)
	store.AddPayment(&domain.Payment{
		BookingID:       "booking-1",
		Status:          domain.PaymentStatusPaid,
		AmountPaidCents: 6000,
		ReceiptURL:      "https://pay.stripe.com/receipts/ch_deposit",
	})

	// A balance capture without receipt detail must not blank the one
	// already on record.
	if _, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:          "booking-1",
		PaymentIntentID:    "pi_balance",
		AmountCents:        4000,
		Currency:           "usd",
		IsBalancePayment:   true,
		BalanceAmountCents: 4000,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment.ReceiptURL != "https://pay.stripe.com/receipts/ch_deposit" {
		t.Errorf("balance capture dropped the stored receipt URL: %+v", payment)
	}
}

func TestFinalizePaid_UnknownBookingIsNoOp(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)

	result, err := svc.FinalizePaid(context.Background(), FinalizePaidRequest{
		BookingID:       "missing",
		PaymentIntentID: "pi_1",
		AmountCents:     10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for unknown booking, got %+v", result)
	}
	if store.CountEvents() != 0 {
		t.Error("event written for unknown booking")
	}
}

// ──────────────────────────────────────────────
// REFUNDS
// ──────────────────────────────────────────────

func seedPaidBooking(store *memStore) {
	seedBooking(store, domain.BookingStatusConfirmed)
	store.AddPayment(&domain.Payment{
		BookingID:             "booking-1",
		Status:                domain.PaymentStatusPaid,
		AmountTotalCents:      10000,
		AmountPaidCents:       10000,
		StripePaymentIntentID: "pi_1",
	})
}

func TestApplyRefund_FullRefund(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newReconcileFixture(t)
	seedPaidBooking(store)

	result, err := svc.ApplyRefund(context.Background(), "pi_1", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.FullyRefunded {
		t.Error("expected fully refunded")
	}

	payment := store.Payment("booking-1")
	if payment.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected REFUNDED, got %s", payment.Status)
	}
	if payment.AmountRefundedCents != 10000 {
		t.Errorf("expected 10000 refunded, got %d", payment.AmountRefundedCents)
	}
	if payment.AmountPaidCents != 10000 {
		t.Errorf("refund must not decrement the capture total, got %d", payment.AmountPaidCents)
	}
	if payment.RefundedAt.IsZero() {
		t.Error("expected RefundedAt to be set")
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusRefunded {
		t.Errorf("expected booking REFUNDED, got %s", got)
	}

	events := store.EventsOfType(domain.StatusEventRefundIssued)
	if len(events) != 1 {
		t.Fatalf("expected 1 REFUND_ISSUED event, got %d", len(events))
	}

	sent := notifier.Sent()
	if len(sent) != 1 || sent[0].Event != notify.EventRefundIssued {
		t.Errorf("expected one REFUND_ISSUED notification, got %v", sent)
	}
}

func TestApplyRefund_PartialRefund(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedPaidBooking(store)

	result, err := svc.ApplyRefund(context.Background(), "pi_1", 4000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FullyRefunded {
		t.Error("partial refund reported as full")
	}

	payment := store.Payment("booking-1")
	if payment.Status != domain.PaymentStatusPartiallyRefunded {
		t.Errorf("expected PARTIALLY_REFUNDED, got %s", payment.Status)
	}
	if payment.AmountRefundedCents != 4000 {
		t.Errorf("expected 4000 refunded, got %d", payment.AmountRefundedCents)
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusConfirmed {
		t.Errorf("partial refund must not change booking status, got %s", got)
	}

	events := store.EventsOfType(domain.StatusEventRefundIssued)
	if len(events) != 1 {
		t.Fatalf("expected 1 REFUND_ISSUED event, got %d", len(events))
	}
	if remaining, ok := events[0].Metadata["remainingPaidCents"].(int64); !ok || remaining != 6000 {
		t.Errorf("expected remainingPaidCents 6000, got %v", events[0].Metadata["remainingPaidCents"])
	}
}

func TestApplyRefund_ReplayConverges(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedPaidBooking(store)

	if _, err := svc.ApplyRefund(context.Background(), "pi_1", 10000); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	firstRefundedAt := store.Payment("booking-1").RefundedAt

	if _, err := svc.ApplyRefund(context.Background(), "pi_1", 10000); err != nil {
		t.Fatalf("replayed refund: %v", err)
	}

	payment := store.Payment("booking-1")
	if payment.AmountRefundedCents != 10000 {
		t.Errorf("replay changed the absolute refund total: %d", payment.AmountRefundedCents)
	}
	if !payment.RefundedAt.Equal(firstRefundedAt) {
		t.Error("replay moved RefundedAt")
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusRefunded {
		t.Errorf("expected REFUNDED after replay, got %s", got)
	}
}

func TestApplyRefund_LostRaceRecordsActualStatus(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedPaidBooking(store)

	// A concurrent cancellation lands between the read and the REFUNDED
	// advance; the audit row must not claim a status the booking never took.
	store.BeforeConditionalUpdate = func() {
		store.BeforeConditionalUpdate = nil
		store.AddBooking(&domain.Booking{
			ID:         "booking-1",
			CustomerID: "customer-1",
			Status:     domain.BookingStatusCancelled,
			TotalCents: 10000,
			Currency:   "usd",
		})
	}

	if _, err := svc.ApplyRefund(context.Background(), "pi_1", 10000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusCancelled {
		t.Errorf("lost race overwrote concurrent status: %s", got)
	}
	if got := store.Payment("booking-1").Status; got != domain.PaymentStatusRefunded {
		t.Errorf("payment status must still reflect the refund, got %s", got)
	}

	events := store.EventsOfType(domain.StatusEventRefundIssued)
	if len(events) != 1 {
		t.Fatalf("expected 1 REFUND_ISSUED event, got %d", len(events))
	}
	if events[0].Status == domain.BookingStatusRefunded {
		t.Errorf("audit row reports REFUNDED although the advance lost the race")
	}
}

func TestApplyRefund_UnknownIntentIsNoOp(t *testing.T) {
	t.Parallel()

	svc, store, notifier := newReconcileFixture(t)
	seedPaidBooking(store)

	result, err := svc.ApplyRefund(context.Background(), "pi_unknown", 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for unknown intent, got %+v", result)
	}
	if got := store.Payment("booking-1").AmountRefundedCents; got != 0 {
		t.Errorf("unrelated payment touched: %d", got)
	}
	if len(notifier.Sent()) != 0 {
		t.Error("notification sent for unknown intent")
	}
}

// ──────────────────────────────────────────────
// WEBHOOK ROUTING
// ──────────────────────────────────────────────

func checkoutSessionEvent(t *testing.T, eventType string, session map[string]any) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	event := &stripe.Event{ID: "evt_1", Type: eventType}
	event.Data.Object = raw
	return event
}

func TestHandleEvent_CheckoutSessionCompleted(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	event := checkoutSessionEvent(t, stripe.EventCheckoutSessionCompleted, map[string]any{
		"id":             "cs_1",
		"payment_intent": "pi_1",
		"amount_total":   10000,
		"currency":       "usd",
		"metadata":       map[string]string{"bookingId": "booking-1"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", got)
	}
	if payment := store.Payment("booking-1"); payment == nil || payment.AmountPaidCents != 10000 {
		t.Errorf("payment not reconciled: %+v", payment)
	}
}

func TestHandleEvent_ResolvesByStoredSessionReference(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)
	store.AddPayment(&domain.Payment{
		BookingID:               "booking-1",
		Status:                  domain.PaymentStatusPending,
		StripeCheckoutSessionID: "cs_1",
	})

	// No metadata on the event; the stored session reference resolves it.
	event := checkoutSessionEvent(t, stripe.EventCheckoutAsyncPaymentSucceeded, map[string]any{
		"id":           "cs_1",
		"amount_total": 10000,
		"currency":     "usd",
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED, got %s", got)
	}
}

func TestHandleEvent_ResolvesViaStripeLookup(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	notifier := &fakeNotifier{}
	client := &fakeStripeClient{sessions: map[string]*stripe.CheckoutSession{
		"cs_1": {ID: "cs_1", Metadata: map[string]string{"bookingId": "booking-1"}},
	}}
	svc := NewReconciliationService(store, client, notifier, zerolog.Nop())
	seedBooking(store, domain.BookingStatusPendingPayment)

	event := checkoutSessionEvent(t, stripe.EventCheckoutSessionCompleted, map[string]any{
		"id":           "cs_1",
		"amount_total": 10000,
		"currency":     "usd",
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.BookingStatus("booking-1"); got != domain.BookingStatusConfirmed {
		t.Errorf("expected CONFIRMED via API lookup, got %s", got)
	}
}

func TestHandleEvent_UnresolvableSessionAcks(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)

	event := checkoutSessionEvent(t, stripe.EventCheckoutSessionCompleted, map[string]any{
		"id":           "cs_unknown",
		"amount_total": 10000,
		"currency":     "usd",
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unresolvable event must ack, got error: %v", err)
	}
	if store.CountEvents() != 0 {
		t.Error("unresolvable event wrote state")
	}
}

func TestHandleEvent_ChargeRefundedRoutesToRefund(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedPaidBooking(store)

	event := checkoutSessionEvent(t, stripe.EventChargeRefunded, map[string]any{
		"id":              "ch_1",
		"payment_intent":  "pi_1",
		"amount_refunded": 10000,
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Payment("booking-1").Status; got != domain.PaymentStatusRefunded {
		t.Errorf("expected REFUNDED, got %s", got)
	}
}

func TestHandleEvent_PendingRefundUpdateIgnored(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedPaidBooking(store)

	event := checkoutSessionEvent(t, stripe.EventChargeRefundUpdated, map[string]any{
		"id":             "re_1",
		"payment_intent": "pi_1",
		"amount":         10000,
		"status":         "pending",
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.Payment("booking-1").Status; got != domain.PaymentStatusPaid {
		t.Errorf("pending refund must not change payment, got %s", got)
	}
}

func TestHandleEvent_UnhandledTypeIgnored(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	event := &stripe.Event{ID: "evt_1", Type: "customer.created"}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.CountEvents() != 0 {
		t.Error("unhandled event type wrote state")
	}
}

func TestHandleEvent_MalformedPayloadAcks(t *testing.T) {
	t.Parallel()

	svc, store, _ := newReconcileFixture(t)
	seedBooking(store, domain.BookingStatusPendingPayment)

	event := &stripe.Event{ID: "evt_1", Type: stripe.EventCheckoutSessionCompleted}
	event.Data.Object = json.RawMessage(`{"id": 42}`)

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("malformed payload must ack, got error: %v", err)
	}
	if store.CountEvents() != 0 {
		t.Error("malformed event wrote state")
	}
}
