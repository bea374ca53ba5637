package service

import (
	"context"
	"sync"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/notify"
	"dispatch/internal/repository"
	"dispatch/internal/stripe"
)

// ──────────────────────────────────────────────
// IN-MEMORY STORE
// ──────────────────────────────────────────────

// memStore is an in-memory implementation of repository.Store. It also
// implements repository.Tx and every repository interface, so WithinTx
// simply runs the callback against itself.
type memStore struct {
	mu          sync.Mutex
	bookings    map[string]*domain.Booking
	assignments map[string]*domain.Assignment
	payments    map[string]*domain.Payment
	events      []*domain.StatusEvent

	// BeforeConditionalUpdate runs between the transactional read and the
	// conditional write, to simulate a concurrent actor.
	BeforeConditionalUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		bookings:    make(map[string]*domain.Booking),
		assignments: make(map[string]*domain.Assignment),
		payments:    make(map[string]*domain.Payment),
	}
}

func (m *memStore) AddBooking(booking *domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[booking.ID] = booking
}

func (m *memStore) AddAssignment(assignment *domain.Assignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[assignment.BookingID] = assignment
}

func (m *memStore) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.BookingID] = payment
}

func (m *memStore) AddEvent(event *domain.StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// BookingStatus returns the stored status for assertions.
func (m *memStore) BookingStatus(id string) domain.BookingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		return b.Status
	}
	return ""
}

// Payment returns the stored payment for assertions.
func (m *memStore) Payment(bookingID string) *domain.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[bookingID]; ok {
		clone := *p
		return &clone
	}
	return nil
}

// EventsOfType returns stored events with the given type, oldest first.
func (m *memStore) EventsOfType(eventType domain.StatusEventType) []*domain.StatusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StatusEvent
	for _, e := range m.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) CountEvents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *memStore) Bookings() repository.BookingRepository         { return m }
func (m *memStore) StatusEvents() repository.StatusEventRepository { return m }
func (m *memStore) Payments() repository.PaymentRepository         { return m }

func (m *memStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return fn(m)
}

func (m *memStore) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *booking
	return &clone, nil
}

func (m *memStore) GetWithAssignment(ctx context.Context, id string) (*domain.Booking, *domain.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	bookingClone := *booking

	var assignment *domain.Assignment
	if a, ok := m.assignments[id]; ok {
		clone := *a
		assignment = &clone
	}

	return &bookingClone, assignment, nil
}

func (m *memStore) ConditionalUpdateStatus(ctx context.Context, id string, pred repository.StatusPredicate, newStatus domain.BookingStatus) (int64, error) {
	if m.BeforeConditionalUpdate != nil {
		m.BeforeConditionalUpdate()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	booking, ok := m.bookings[id]
	if !ok || booking.Status != pred.FromStatus {
		return 0, nil
	}

	if pred.DriverID != "" {
		assignment, ok := m.assignments[id]
		if !ok || assignment.DriverID != pred.DriverID {
			return 0, nil
		}
	}

	booking.Status = newStatus
	return 1, nil
}

func (m *memStore) Append(ctx context.Context, event *domain.StatusEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *event
	m.events = append(m.events, &clone)
	return nil
}

func (m *memStore) LatestByBookingAndStatus(ctx context.Context, bookingID string, status domain.BookingStatus) (*domain.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.StatusEvent
	for _, e := range m.events {
		if e.BookingID != bookingID || e.Status != status {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (m *memStore) ListByBooking(ctx context.Context, bookingID string) ([]*domain.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.StatusEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].BookingID == bookingID {
			clone := *m.events[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *memStore) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[bookingID]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (m *memStore) GetByCheckoutSessionID(ctx context.Context, sessionID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.StripeCheckoutSessionID == sessionID && sessionID != "" {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.StripePaymentIntentID == intentID && intentID != "" {
			clone := *p
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) Upsert(ctx context.Context, payment *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *payment
	if existing, ok := m.payments[payment.BookingID]; ok {
		// Mirror the SQL upsert: provider references stick once set.
		if clone.StripeCheckoutSessionID == "" {
			clone.StripeCheckoutSessionID = existing.StripeCheckoutSessionID
		}
		if clone.StripePaymentIntentID == "" {
			clone.StripePaymentIntentID = existing.StripePaymentIntentID
		}
		if clone.ReceiptURL == "" {
			clone.ReceiptURL = existing.ReceiptURL
		}
	}
	m.payments[payment.BookingID] = &clone
	return nil
}

// Ensure memStore satisfies the repository contracts.
var (
	_ repository.Store = (*memStore)(nil)
	_ repository.Tx    = (*memStore)(nil)
)

// ──────────────────────────────────────────────
// FAKE NOTIFIER & STRIPE CLIENT
// ──────────────────────────────────────────────

type sentNotification struct {
	Event     notify.EventName
	BookingID string
}

// fakeNotifier records dispatched notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *fakeNotifier) Notify(event notify.EventName, bookingID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Event: event, BookingID: bookingID})
}

func (n *fakeNotifier) Sent() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}

// fakeStripeClient serves canned checkout sessions and payment intents.
type fakeStripeClient struct {
	sessions map[string]*stripe.CheckoutSession
	intents  map[string]*stripe.PaymentIntent
	err      error
}

func (c *fakeStripeClient) GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	if session, ok := c.sessions[sessionID]; ok {
		return session, nil
	}
	return nil, stripe.ErrLookupDisabled
}

func (c *fakeStripeClient) GetPaymentIntent(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	if c.err != nil {
		return nil, c.err
	}
	if intent, ok := c.intents[intentID]; ok {
		return intent, nil
	}
	return nil, stripe.ErrLookupDisabled
}

// fixedClock returns a constant time for deterministic dwell checks.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
