package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventName identifies a notification trigger.
type EventName string

const (
	EventBookingConfirmed EventName = "BOOKING_CONFIRMED"
	EventStatusChanged    EventName = "STATUS_CHANGED"
	EventStatusReverted   EventName = "STATUS_REVERTED"
	EventBookingCancelled EventName = "BOOKING_CANCELLED"
	EventNoShowRecorded   EventName = "NO_SHOW_RECORDED"
	EventBookingCompleted EventName = "BOOKING_COMPLETED"
	EventPaymentReceived  EventName = "PAYMENT_RECEIVED"
	EventRefundIssued     EventName = "REFUND_ISSUED"
)

// Sender delivers one notification over one channel (email, SMS).
type Sender interface {
	Channel() string
	Send(ctx context.Context, event EventName, bookingID string) error
}

// Deduper claims dedupe keys so the same event+booking+channel is not
// delivered twice within the TTL.
type Deduper interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Dispatcher fans notifications out to the configured senders from a
// single worker goroutine. Delivery is fire-and-forget: Notify never
// blocks the caller and failures are only logged. Callers invoke Notify
// after their transaction commits, never inside it.
type Dispatcher struct {
	senders   []Sender
	deduper   Deduper
	queue     chan job
	dedupeTTL time.Duration
	log       zerolog.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type job struct {
	event     EventName
	bookingID string
}

// NewDispatcher creates a Dispatcher and starts its worker.
func NewDispatcher(senders []Sender, deduper Deduper, logger zerolog.Logger, queueSize int, dedupeTTL time.Duration) *Dispatcher {
	d := &Dispatcher{
		senders:   senders,
		deduper:   deduper,
		queue:     make(chan job, queueSize),
		dedupeTTL: dedupeTTL,
		log:       logger,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Notify enqueues a notification. Never blocks: if the queue is full the
// notification is dropped and logged, per the best-effort contract.
func (d *Dispatcher) Notify(event EventName, bookingID string) {
	select {
	case d.queue <- job{event: event, bookingID: bookingID}:
	default:
		d.log.Warn().
			Str("event", string(event)).
			Str("booking_id", bookingID).
			Msg("notification queue full, dropping")
	}
}

// Close stops accepting notifications and waits for the queued ones to drain.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	ctx := context.Background()
	for j := range d.queue {
		d.deliver(ctx, j)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	for _, sender := range d.senders {
		key := fmt.Sprintf("notify:%s:%s:%s", j.event, j.bookingID, sender.Channel())

		ok, err := d.deduper.Acquire(ctx, key, d.dedupeTTL)
		if err != nil {
			// Dedupe store unavailable: deliver anyway, a duplicate
			// beats a silently lost notification.
			d.log.Error().Err(err).Str("key", key).Msg("dedupe check failed")
		} else if !ok {
			continue
		}

		if err := sender.Send(ctx, j.event, j.bookingID); err != nil {
			d.log.Error().Err(err).
				Str("event", string(j.event)).
				Str("booking_id", j.bookingID).
				Str("channel", sender.Channel()).
				Msg("notification delivery failed")
		}
	}
}
