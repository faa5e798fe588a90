package messaging

import (
	"time"

	"example.com/ticketing/services/booking/internal/models"
)

// EventTypeBookingCreated tags the reservation fact announcing a
// committed booking.
const EventTypeBookingCreated = "BOOKING_CREATED"

// BookingEventData is the booking snapshot carried by a reservation
// fact: the full booking plus the denormalized event name.
type BookingEventData struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	EventName string    `json:"event_name"`
}

// BookingEvent is the wire envelope published to the booking-events
// topic. Timestamp is the instant the fact was built, not the
// booking's creation time.
type BookingEvent struct {
	Type      string           `json:"type"`
	Data      BookingEventData `json:"data"`
	Timestamp string           `json:"timestamp"`
}

// NewBookingCreatedEvent builds the reservation fact for a committed
// booking.
func NewBookingCreatedEvent(booking *models.Booking, eventName string) *BookingEvent {
	return &BookingEvent{
		Type: EventTypeBookingCreated,
		Data: BookingEventData{
			ID:        booking.ID,
			EventID:   booking.EventID,
			UserID:    booking.UserID,
			CreatedAt: booking.CreatedAt,
			EventName: eventName,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
