package stripe

import (
	"encoding/json"
	"strconv"
)

// Webhook event types the reconciliation engine consumes. Anything else
// is acknowledged and ignored.
const (
	EventCheckoutSessionCompleted      = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventPaymentIntentSucceeded        = "payment_intent.succeeded"
	EventChargeRefunded                = "charge.refunded"
	EventChargeRefundUpdated           = "charge.refund.updated"
)

// Event is the envelope Stripe posts to the webhook endpoint. Signature
// verification happens upstream; by the time an Event reaches this package
// the payload is trusted to be Stripe's.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CheckoutSession is the subset of Stripe's checkout session object the
// engine reads.
type CheckoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// PaymentIntent is the subset of Stripe's payment intent object the engine reads.
// Charges carries the intent's charge list where the API version includes it;
// the receipt URL lives on the charge, not the intent itself.
type PaymentIntent struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
	Charges        struct {
		Data []Charge `json:"data"`
	} `json:"charges"`
}

// ReceiptURL returns the receipt URL of the first charge carrying one, or
// empty when the payload includes no charge detail.
func (p *PaymentIntent) ReceiptURL() string {
	for _, charge := range p.Charges.Data {
		if charge.ReceiptURL != "" {
			return charge.ReceiptURL
		}
	}
	return ""
}

// Charge is the subset of Stripe's charge object the engine reads.
// AmountRefunded is the cumulative refunded total for the charge.
type Charge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	AmountRefunded int64             `json:"amount_refunded"`
	Refunded       bool              `json:"refunded"`
	ReceiptURL     string            `json:"receipt_url"`
	Metadata       map[string]string `json:"metadata"`
}

// Refund is the subset of Stripe's refund object delivered by
// charge.refund.updated.
type Refund struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
}

// CheckoutSession decodes the event payload as a checkout session.
func (e *Event) CheckoutSession() (*CheckoutSession, error) {
	var session CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PaymentIntent decodes the event payload as a payment intent.
func (e *Event) PaymentIntent() (*PaymentIntent, error) {
	var intent PaymentIntent
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Charge decodes the event payload as a charge.
func (e *Event) Charge() (*Charge, error) {
	var charge Charge
	if err := json.Unmarshal(e.Data.Object, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// Refund decodes the event payload as a refund.
func (e *Event) Refund() (*Refund, error) {
	var refund Refund
	if err := json.Unmarshal(e.Data.Object, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// PaymentMetadata carries the booking-scoped fields the platform writes
// into checkout-session metadata when a payment link is created.
type PaymentMetadata struct {
	BookingID          string
	IsBalancePayment   bool
	BalanceAmountCents int64
	TipCents           int64
}

// ParsePaymentMetadata decodes the string-encoded metadata fields once at
// the boundary. Malformed numbers are treated as absent.
func ParsePaymentMetadata(metadata map[string]string) PaymentMetadata {
	parsed := PaymentMetadata{
		BookingID:        metadata["bookingId"],
		IsBalancePayment: metadata["isBalancePayment"] == "true",
	}
	if v, err := strconv.ParseInt(metadata["balanceAmount"], 10, 64); err == nil {
		parsed.BalanceAmountCents = v
	}
	if v, err := strconv.ParseInt(metadata["tipCents"], 10, 64); err == nil {
		parsed.TipCents = v
	}
	return parsed
}
