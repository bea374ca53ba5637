package service

import "dispatch/internal/domain"

// OutcomeCode discriminates the result of a status-transition request.
// Every rejection is an expected, terminal result for the caller, not an
// error; infrastructure failures travel separately as errors.
type OutcomeCode string

const (
	OutcomeSuccess               OutcomeCode = "SUCCESS"
	OutcomeUnauthenticated       OutcomeCode = "UNAUTHENTICATED"
	OutcomeForbidden             OutcomeCode = "FORBIDDEN"
	OutcomeNotFound              OutcomeCode = "NOT_FOUND"
	OutcomeInvalidTransition     OutcomeCode = "INVALID_TRANSITION"
	OutcomeReasonRequired        OutcomeCode = "REASON_REQUIRED"
	OutcomeNoShowTooEarly        OutcomeCode = "NO_SHOW_TOO_EARLY"
	OutcomeNotFoundOrNotAssigned OutcomeCode = "NOT_FOUND_OR_NOT_ASSIGNED"
)

// Outcome is the discriminated result of a transition request.
type Outcome struct {
	Code OutcomeCode

	// NewStatus is set on success.
	NewStatus domain.BookingStatus

	// From and To are set for invalid transitions.
	From domain.BookingStatus
	To   domain.BookingStatus

	// MinutesRemaining is set when a no-show was requested before the
	// dwell period elapsed: the whole minutes still to wait.
	MinutesRemaining int
}

// OK reports whether the transition was applied.
func (o *Outcome) OK() bool {
	return o.Code == OutcomeSuccess
}

func successOutcome(status domain.BookingStatus) *Outcome {
	return &Outcome{Code: OutcomeSuccess, NewStatus: status}
}

func invalidTransitionOutcome(from, to domain.BookingStatus) *Outcome {
	return &Outcome{Code: OutcomeInvalidTransition, From: from, To: to}
}

func noShowTooEarlyOutcome(minutesRemaining int) *Outcome {
	return &Outcome{Code: OutcomeNoShowTooEarly, MinutesRemaining: minutesRemaining}
}
