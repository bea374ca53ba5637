package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// BookingRepository is a PostgreSQL implementation of repository.BookingRepository.
type BookingRepository struct {
	q       Querier
	locking bool
}

// NewBookingRepository creates a new PostgreSQL booking repository.
func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{q: db}
}

// NewBookingRepositoryWithTx creates a booking repository using a transaction.
// Reads through it lock the booking row until the transaction ends.
func NewBookingRepositoryWithTx(tx *sql.Tx) *BookingRepository {
	return &BookingRepository{q: tx, locking: true}
}

// GetByID retrieves a booking by ID.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `
		SELECT id, customer_id, status, pickup_at, total_cents, currency, created_at, updated_at
		FROM bookings WHERE id = $1
	`

	var booking domain.Booking
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.Status,
		&booking.PickupAt,
		&booking.TotalCents,
		&booking.Currency,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &booking, nil
}

// GetWithAssignment retrieves a booking and its active assignment in one read.
func (r *BookingRepository) GetWithAssignment(ctx context.Context, id string) (*domain.Booking, *domain.Assignment, error) {
	query := `
		SELECT b.id, b.customer_id, b.status, b.pickup_at, b.total_cents, b.currency,
		       b.created_at, b.updated_at,
		       a.driver_id, a.vehicle_id, a.created_at
		FROM bookings b
		LEFT JOIN assignments a ON a.booking_id = b.id
		WHERE b.id = $1
	`

	// Locking only the bookings side: the outer-joined assignments row
	// may be absent and cannot carry a row lock.
	if r.locking {
		query += " FOR UPDATE OF b"
	}

	var booking domain.Booking
	var driverID, vehicleID sql.NullString
	var assignedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.CustomerID,
		&booking.Status,
		&booking.PickupAt,
		&booking.TotalCents,
		&booking.Currency,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&driverID,
		&vehicleID,
		&assignedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, repository.ErrNotFound
		}
		return nil, nil, err
	}

	var assignment *domain.Assignment
	if driverID.Valid {
		assignment = &domain.Assignment{
			BookingID: booking.ID,
			DriverID:  driverID.String,
			VehicleID: vehicleID.String,
		}
		if assignedAt.Valid {
			assignment.CreatedAt = assignedAt.Time
		}
	}

	return &booking, assignment, nil
}

// ConditionalUpdateStatus writes newStatus only while the predicate still
// holds and reports the number of rows affected.
func (r *BookingRepository) ConditionalUpdateStatus(ctx context.Context, id string, pred repository.StatusPredicate, newStatus domain.BookingStatus) (int64, error) {
	query := `
		UPDATE bookings b
		SET status = $1, updated_at = now()
		WHERE b.id = $2 AND b.status = $3
	`
	args := []any{newStatus, id, pred.FromStatus}

	if pred.DriverID != "" {
		query += ` AND EXISTS (
			SELECT 1 FROM assignments a
			WHERE a.booking_id = b.id AND a.driver_id = $4
		)`
		args = append(args, pred.DriverID)
	}

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Ensure BookingRepository implements repository.BookingRepository.
var _ repository.BookingRepository = (*BookingRepository)(nil)
