package domain

import "time"

// StatusEventType tags the kind of occurrence a status event records.
type StatusEventType string

const (
	StatusEventChange          StatusEventType = "STATUS_CHANGE"
	StatusEventReverted        StatusEventType = "STATUS_REVERTED"
	StatusEventPaymentReceived StatusEventType = "PAYMENT_RECEIVED"
	StatusEventRefundIssued    StatusEventType = "REFUND_ISSUED"
)

// StatusEvent is an immutable, append-only audit record. One row per
// accepted transition or financial event; never written for rejections,
// never updated or deleted.
type StatusEvent struct {
	ID        string
	BookingID string
	Status    BookingStatus
	EventType StatusEventType
	ActorID   string
	Metadata  map[string]any
	CreatedAt time.Time
}
