package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// StatusEventRepository is a PostgreSQL implementation of repository.StatusEventRepository.
type StatusEventRepository struct {
	q Querier
}

// NewStatusEventRepository creates a new PostgreSQL status-event repository.
func NewStatusEventRepository(db *sql.DB) *StatusEventRepository {
	return &StatusEventRepository{q: db}
}

// NewStatusEventRepositoryWithTx creates a status-event repository using a transaction.
func NewStatusEventRepositoryWithTx(tx *sql.Tx) *StatusEventRepository {
	return &StatusEventRepository{q: tx}
}

// Append persists a new status event.
func (r *StatusEventRepository) Append(ctx context.Context, event *domain.StatusEvent) error {
	query := `
		INSERT INTO booking_status_events (id, booking_id, status, event_type, actor_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return err
	}

	var actorID sql.NullString
	if event.ActorID != "" {
		actorID = sql.NullString{String: event.ActorID, Valid: true}
	}

	_, err = r.q.ExecContext(ctx, query,
		event.ID,
		event.BookingID,
		event.Status,
		event.EventType,
		actorID,
		metadata,
		event.CreatedAt,
	)

	return err
}

// LatestByBookingAndStatus retrieves the most recent event recording the
// given status for a booking. Returns nil if none exists.
func (r *StatusEventRepository) LatestByBookingAndStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (*domain.StatusEvent, error) {
	query := `
		SELECT id, booking_id, status, event_type, actor_id, metadata, created_at
		FROM booking_status_events
		WHERE booking_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	event, err := scanStatusEvent(r.q.QueryRowContext(ctx, query, bookingID, status))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return event, nil
}

// ListByBooking retrieves all events for a booking, newest first.
func (r *StatusEventRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domain.StatusEvent, error) {
	query := `
		SELECT id, booking_id, status, event_type, actor_id, metadata, created_at
		FROM booking_status_events
		WHERE booking_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.StatusEvent
	for rows.Next() {
		event, err := scanStatusEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatusEvent(row rowScanner) (*domain.StatusEvent, error) {
	var event domain.StatusEvent
	var actorID sql.NullString
	var metadata []byte

	if err := row.Scan(
		&event.ID,
		&event.BookingID,
		&event.Status,
		&event.EventType,
		&actorID,
		&metadata,
		&event.CreatedAt,
	); err != nil {
		return nil, err
	}

	if actorID.Valid {
		event.ActorID = actorID.String
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, err
		}
	}

	return &event, nil
}

// Ensure StatusEventRepository implements repository.StatusEventRepository.
var _ repository.StatusEventRepository = (*StatusEventRepository)(nil)
