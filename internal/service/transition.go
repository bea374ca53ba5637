package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dispatch/internal/domain"
	"dispatch/internal/notify"
	"dispatch/internal/repository"
)

// Notifier dispatches a notification after a transaction commits.
// Fire-and-forget: implementations never block or fail the caller.
type Notifier interface {
	Notify(event notify.EventName, bookingID string)
}

// TransitionService validates and applies booking-status changes. It is
// the only writer of Booking.Status outside the payment reconciliation
// path.
type TransitionService struct {
	store    repository.Store
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewTransitionService creates a new TransitionService.
func NewTransitionService(store repository.Store, notifier Notifier, logger zerolog.Logger) *TransitionService {
	return &TransitionService{
		store:    store,
		notifier: notifier,
		log:      logger,
		now:      time.Now,
	}
}

// TransitionRequest contains the parameters for a status transition.
type TransitionRequest struct {
	BookingID string
	Actor     domain.Actor
	NewStatus domain.BookingStatus
	Reason    string
}

// ApplyStatusTransition validates the requested transition against the
// current persisted status inside one transaction and either commits the
// new status with its audit event or returns a rejection outcome. The
// returned error is only non-nil for infrastructure failures.
func (s *TransitionService) ApplyStatusTransition(ctx context.Context, req TransitionRequest) (*Outcome, error) {
	if !req.Actor.IsAuthenticated() {
		return &Outcome{Code: OutcomeUnauthenticated}, nil
	}

	var outcome *Outcome
	var isBackward bool

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		booking, assignment, err := tx.Bookings().GetWithAssignment(ctx, req.BookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = &Outcome{Code: OutcomeNotFound}
				return nil
			}
			return err
		}

		if rejected := checkPermission(req.Actor, assignment); rejected != nil {
			outcome = rejected
			return nil
		}

		outcome, isBackward = validateTransition(booking.Status, req.NewStatus, req.Reason)
		if outcome != nil {
			return nil
		}

		if req.NewStatus == domain.BookingStatusNoShow {
			outcome, err = s.checkNoShowDwell(ctx, tx, booking.ID)
			if err != nil || outcome != nil {
				return err
			}
		}

		pred := repository.StatusPredicate{FromStatus: booking.Status}
		if !req.Actor.IsAdmin() {
			pred.DriverID = req.Actor.ID
		}

		rows, err := tx.Bookings().ConditionalUpdateStatus(ctx, booking.ID, pred, req.NewStatus)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Another actor changed the booking between our read and
			// the write, or the assignment moved. Surfaced as a
			// refresh-and-retry condition, never retried blindly.
			outcome = &Outcome{Code: OutcomeNotFoundOrNotAssigned}
			return nil
		}

		eventType := domain.StatusEventChange
		if isBackward {
			eventType = domain.StatusEventReverted
		}

		if err := tx.StatusEvents().Append(ctx, &domain.StatusEvent{
			ID:        uuid.New().String(),
			BookingID: booking.ID,
			Status:    req.NewStatus,
			EventType: eventType,
			ActorID:   req.Actor.ID,
			Metadata: map[string]any{
				"previousStatus": string(booking.Status),
				"reason":         req.Reason,
				"isBackward":     isBackward,
			},
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		outcome = successOutcome(req.NewStatus)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.OK() {
		s.notifier.Notify(transitionEvent(req.NewStatus, isBackward), req.BookingID)
	}

	return outcome, nil
}

// CancelBooking applies a customer-initiated cancellation. Permitted only
// while the booking has not progressed past ASSIGNED and only for the
// owning customer (admins may cancel on their behalf).
func (s *TransitionService) CancelBooking(ctx context.Context, bookingID string, actor domain.Actor, reason string) (*Outcome, error) {
	if !actor.IsAuthenticated() {
		return &Outcome{Code: OutcomeUnauthenticated}, nil
	}

	var outcome *Outcome

	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		booking, _, err := tx.Bookings().GetWithAssignment(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				outcome = &Outcome{Code: OutcomeNotFound}
				return nil
			}
			return err
		}

		if booking.CustomerID != actor.ID && !actor.IsAdmin() {
			outcome = &Outcome{Code: OutcomeForbidden}
			return nil
		}

		if !domain.IsCustomerCancellable(booking.Status) {
			outcome = invalidTransitionOutcome(booking.Status, domain.BookingStatusCancelled)
			return nil
		}

		rows, err := tx.Bookings().ConditionalUpdateStatus(ctx, booking.ID,
			repository.StatusPredicate{FromStatus: booking.Status}, domain.BookingStatusCancelled)
		if err != nil {
			return err
		}
		if rows == 0 {
			outcome = &Outcome{Code: OutcomeNotFoundOrNotAssigned}
			return nil
		}

		if err := tx.StatusEvents().Append(ctx, &domain.StatusEvent{
			ID:        uuid.New().String(),
			BookingID: booking.ID,
			Status:    domain.BookingStatusCancelled,
			EventType: domain.StatusEventChange,
			ActorID:   actor.ID,
			Metadata: map[string]any{
				"previousStatus": string(booking.Status),
				"reason":         reason,
				"isBackward":     false,
			},
			CreatedAt: s.now(),
		}); err != nil {
			return err
		}

		outcome = successOutcome(domain.BookingStatusCancelled)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.OK() {
		s.notifier.Notify(notify.EventBookingCancelled, bookingID)
	}

	return outcome, nil
}

// checkPermission enforces the role contract: admins bypass assignment
// ownership, drivers must hold the booking's active assignment.
func checkPermission(actor domain.Actor, assignment *domain.Assignment) *Outcome {
	if actor.IsAdmin() {
		return nil
	}

	if !actor.HasRole(domain.RoleDriver) {
		return &Outcome{Code: OutcomeForbidden}
	}

	if assignment == nil || assignment.DriverID != actor.ID {
		return &Outcome{Code: OutcomeForbidden}
	}

	return nil
}

// validateTransition checks the requested edge against the forward and
// backward tables. Returns a rejection outcome, or nil with the backward
// flag when the edge is legal.
func validateTransition(from, to domain.BookingStatus, reason string) (*Outcome, bool) {
	if domain.CanTransitionForward(from, to) {
		if to == domain.BookingStatusNoShow && reason == "" {
			return &Outcome{Code: OutcomeReasonRequired}, false
		}
		return nil, false
	}

	if domain.CanTransitionBackward(from, to) {
		if reason == "" {
			return &Outcome{Code: OutcomeReasonRequired}, false
		}
		return nil, true
	}

	return invalidTransitionOutcome(from, to), false
}

// checkNoShowDwell enforces the mandatory wait after ARRIVED. The gate is
// computed from the persisted ARRIVED audit event, not caller input, so a
// driver cannot skip the contractual wait.
func (s *TransitionService) checkNoShowDwell(ctx context.Context, tx repository.Tx, bookingID string) (*Outcome, error) {
	arrived, err := tx.StatusEvents().LatestByBookingAndStatus(ctx, bookingID, domain.BookingStatusArrived)
	if err != nil {
		return nil, err
	}

	dwellMinutes := domain.NoShowDwell.Minutes()
	if arrived == nil {
		// No ARRIVED event on record: the full dwell still applies.
		return noShowTooEarlyOutcome(int(dwellMinutes)), nil
	}

	elapsed := s.now().Sub(arrived.CreatedAt)
	if elapsed < domain.NoShowDwell {
		remaining := int(math.Ceil(dwellMinutes - elapsed.Minutes()))
		return noShowTooEarlyOutcome(remaining), nil
	}

	return nil, nil
}

// transitionEvent maps a committed transition to its notification event.
func transitionEvent(status domain.BookingStatus, isBackward bool) notify.EventName {
	if isBackward {
		return notify.EventStatusReverted
	}
	switch status {
	case domain.BookingStatusNoShow:
		return notify.EventNoShowRecorded
	case domain.BookingStatusCompleted:
		return notify.EventBookingCompleted
	case domain.BookingStatusCancelled:
		return notify.EventBookingCancelled
	default:
		return notify.EventStatusChanged
	}
}
