package domain

import "time"

// BookingStatus represents the current status of a booking.
type BookingStatus string

const (
	BookingStatusDraft             BookingStatus = "DRAFT"
	BookingStatusPendingReview     BookingStatus = "PENDING_REVIEW"
	BookingStatusPendingPayment    BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed         BookingStatus = "CONFIRMED"
	BookingStatusAssigned          BookingStatus = "ASSIGNED"
	BookingStatusEnRoute           BookingStatus = "EN_ROUTE"
	BookingStatusArrived           BookingStatus = "ARRIVED"
	BookingStatusInProgress        BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted         BookingStatus = "COMPLETED"
	BookingStatusNoShow            BookingStatus = "NO_SHOW"
	BookingStatusCancelled         BookingStatus = "CANCELLED"
	BookingStatusDeclined          BookingStatus = "DECLINED"
	BookingStatusRefunded          BookingStatus = "REFUNDED"
	BookingStatusPartiallyRefunded BookingStatus = "PARTIALLY_REFUNDED"
)

// forwardTransitions defines the driver/admin-operable forward edges.
// The key is the current status, the value the set of valid targets.
var forwardTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusConfirmed:  {BookingStatusAssigned},
	BookingStatusAssigned:   {BookingStatusEnRoute},
	BookingStatusEnRoute:    {BookingStatusArrived},
	BookingStatusArrived:    {BookingStatusInProgress, BookingStatusNoShow},
	BookingStatusInProgress: {BookingStatusCompleted},
}

// backwardTransitions defines the correction edges. Every backward
// transition requires a non-empty reason.
var backwardTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusEnRoute:    {BookingStatusAssigned},
	BookingStatusArrived:    {BookingStatusEnRoute},
	BookingStatusInProgress: {BookingStatusArrived},
}

// terminalStatuses have no outgoing edges in the driver/admin machine.
// Refund flows move bookings to REFUNDED through the payment axis only.
var terminalStatuses = map[BookingStatus]bool{
	BookingStatusCompleted:         true,
	BookingStatusNoShow:            true,
	BookingStatusCancelled:         true,
	BookingStatusDeclined:          true,
	BookingStatusRefunded:          true,
	BookingStatusPartiallyRefunded: true,
}

// customerCancellable lists the statuses from which the owning customer
// may cancel directly, outside the driver tables.
var customerCancellable = map[BookingStatus]bool{
	BookingStatusDraft:          true,
	BookingStatusPendingReview:  true,
	BookingStatusPendingPayment: true,
	BookingStatusConfirmed:      true,
	BookingStatusAssigned:       true,
}

// CanTransitionForward reports whether from -> to is a valid forward edge.
func CanTransitionForward(from, to BookingStatus) bool {
	for _, s := range forwardTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionBackward reports whether from -> to is a valid backward edge.
func CanTransitionBackward(from, to BookingStatus) bool {
	for _, s := range backwardTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether status has no outgoing transitions.
func IsTerminalStatus(status BookingStatus) bool {
	return terminalStatuses[status]
}

// IsCustomerCancellable reports whether the owning customer may still cancel.
func IsCustomerCancellable(status BookingStatus) bool {
	return customerCancellable[status]
}

// NoShowDwell is the mandatory wait after ARRIVED before NO_SHOW may be recorded.
const NoShowDwell = 15 * time.Minute

// Booking represents a ride reservation. Status is only ever written
// through the transition service or the payment reconciliation path.
type Booking struct {
	ID         string
	CustomerID string
	Status     BookingStatus
	PickupAt   time.Time
	TotalCents int64
	Currency   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Assignment binds one driver (and optionally a vehicle) to a booking.
// A booking has at most one active assignment.
type Assignment struct {
	BookingID string
	DriverID  string
	VehicleID string
	CreatedAt time.Time
}
