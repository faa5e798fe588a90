package notifier

import (
	"context"

	"example.com/ticketing/services/booking/internal/messaging"

	"github.com/rs/zerolog/log"
)

// Notifier dispatches the user-facing confirmation for a booking fact.
// Implementations must be idempotent per booking id: the consumer may
// deliver the same fact more than once.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, event *messaging.BookingEvent) error
}

// LogNotifier writes the confirmation to the log instead of an email
// gateway
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyBookingCreated logs the confirmation that would be sent to the
// user
func (n *LogNotifier) NotifyBookingCreated(ctx context.Context, event *messaging.BookingEvent) error {
	log.Info().
		Int64("booking_id", event.Data.ID).
		Str("user_id", event.Data.UserID).
		Str("event_name", event.Data.EventName).
		Msg("Booking confirmation notification dispatched")
	return nil
}
