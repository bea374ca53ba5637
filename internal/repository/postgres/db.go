package postgres

import (
	"context"
	"database/sql"

	"dispatch/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Bookings returns a non-transactional booking repository.
func (s *Store) Bookings() repository.BookingRepository {
	return NewBookingRepository(s.db)
}

// StatusEvents returns a non-transactional status-event repository.
func (s *Store) StatusEvents() repository.StatusEventRepository {
	return NewStatusEventRepository(s.db)
}

// Payments returns a non-transactional payment repository.
func (s *Store) Payments() repository.PaymentRepository {
	return NewPaymentRepository(s.db)
}

// WithinTx runs fn inside one database transaction. Any error from fn
// rolls the whole transaction back.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(&storeTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// storeTx exposes transaction-scoped repositories.
type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Bookings() repository.BookingRepository {
	return NewBookingRepositoryWithTx(t.tx)
}

func (t *storeTx) StatusEvents() repository.StatusEventRepository {
	return NewStatusEventRepositoryWithTx(t.tx)
}

func (t *storeTx) Payments() repository.PaymentRepository {
	return NewPaymentRepositoryWithTx(t.tx)
}

// Ensure Store implements repository.Store.
var (
	_ repository.Store = (*Store)(nil)
	_ repository.Tx    = (*storeTx)(nil)
)
