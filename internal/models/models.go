package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Event is a bookable entity with a fixed seat capacity. Rows are
// created out of band and are read-only to this service.
type Event struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name       string    `gorm:"not null" json:"name"`
	TotalSeats int       `gorm:"not null;check:total_seats > 0" json:"total_seats"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	Bookings   []Booking `gorm:"foreignKey:EventID" json:"-"`
}

// Booking is a single user's confirmed seat reservation against an
// event. Bookings are append-only: never updated or deleted.
//
// The composite unique index on (event_id, user_id) is the
// authoritative guard against duplicate bookings; the advisory check
// inside the reserve transaction only fails fast.
type Booking struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID   int64     `gorm:"not null;uniqueIndex:idx_bookings_event_user" json:"event_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_bookings_event_user" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OutboxMessage is a reservation fact persisted in the same
// transaction as its booking. PublishedAt is set once the fact has
// been handed to the broker, either by the in-process publish right
// after commit or by the worker's forwarder.
type OutboxMessage struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID   int64      `gorm:"not null;uniqueIndex" json:"booking_id"`
	SessionKey  string     `gorm:"not null" json:"session_key"`
	Payload     []byte     `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
}

// TableName keeps the outbox table name explicit
func (OutboxMessage) TableName() string {
	return "booking_outbox"
}

// EventAvailability is the derived capacity view of an event.
// AvailableSeats is always total_seats - count(bookings), recomputed
// from committed state; it is never stored.
type EventAvailability struct {
	EventID        int64     `json:"event_id"`
	Name           string    `json:"name"`
	TotalSeats     int       `json:"total_seats"`
	BookedSeats    int       `json:"booked_seats"`
	AvailableSeats int       `json:"available_seats"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserBooking is a booking joined with its event's name for listing
type UserBooking struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	EventName  string    `json:"event_name"`
	UserID     string    `json:"user_id"`
	TotalSeats int       `json:"total_seats"`
	CreatedAt  time.Time `json:"created_at"`
}

// SetupModels runs the schema migrations
func SetupModels(db *gorm.DB) error {
	if err := db.AutoMigrate(&Event{}, &Booking{}, &OutboxMessage{}); err != nil {
		return errors.Wrap(err, "failed to migrate models")
	}
	return nil
}
