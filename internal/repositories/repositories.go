package repositories

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"example.com/ticketing/services/booking/internal/messaging"
	"example.com/ticketing/services/booking/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository provides access to event data. Events are created
// out of band; this repository only reads them.
type EventRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB, readOnlyDB *gorm.DB) *EventRepository {
	return &EventRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

const availabilityQuery = `
SELECT e.id AS event_id,
       e.name,
       e.total_seats,
       COUNT(b.id) AS booked_seats,
       e.total_seats - COUNT(b.id) AS available_seats,
       e.created_at
FROM events e
LEFT JOIN bookings b ON b.event_id = e.id`

// Availability returns the derived capacity view for one event. This
// read goes to the read-only database and may lag committed state; it
// must never gate a write. The reservation path recomputes the count
// under the event row lock instead.
func (r *EventRepository) Availability(ctx context.Context, eventID int64) (*models.EventAvailability, error) {
	var availability models.EventAvailability
	res := r.readOnlyDB.WithContext(ctx).
		Raw(availabilityQuery+" WHERE e.id = ? GROUP BY e.id", eventID).
		Scan(&availability)
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "failed to read event availability")
	}
	if res.RowsAffected == 0 {
		return nil, ErrEventNotFound
	}
	return &availability, nil
}

// ListWithAvailability returns all events with their derived
// availability, ordered by id
func (r *EventRepository) ListWithAvailability(ctx context.Context) ([]models.EventAvailability, error) {
	var events []models.EventAvailability
	err := r.readOnlyDB.WithContext(ctx).
		Raw(availabilityQuery + " GROUP BY e.id ORDER BY e.id").
		Scan(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	return events, nil
}

// BookingRepository provides access to booking data and owns the
// reservation transaction
type BookingRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *gorm.DB, readOnlyDB *gorm.DB) *BookingRepository {
	return &BookingRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Reserve admits or rejects a reservation attempt in a single atomic
// transaction against the write database.
//
// The SELECT ... FOR UPDATE on the event row serializes all concurrent
// attempts for the same event; attempts for different events proceed
// in parallel. The seat count is recomputed under that lock, so two
// transactions can never both observe the last free seat. The
// advisory duplicate check fails fast, and the unique index on
// (event_id, user_id) backstops the race it cannot close on its own.
//
// The reservation fact is written to the outbox in the same
// transaction, so a committed booking always has a durable fact even
// if the process dies before the post-commit publish.
//
// On any failure the transaction rolls back fully: no booking row, no
// outbox row, no partial state.
func (r *BookingRepository) Reserve(ctx context.Context, eventID int64, userID string) (*models.Booking, *models.Event, error) {
	var booking *models.Booking
	var event models.Event

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Exclusive row lock for the duration of the transaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, eventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEventNotFound
			}
			return errors.Wrap(err, "failed to lock event row")
		}

		var booked int64
		if err := tx.Model(&models.Booking{}).
			Where("event_id = ?", event.ID).
			Count(&booked).Error; err != nil {
			return errors.Wrap(err, "failed to count bookings")
		}

		if event.TotalSeats-int(booked) <= 0 {
			return ErrSoldOut
		}

		// Advisory fail-fast; the unique index is the real guard
		var existing int64
		if err := tx.Model(&models.Booking{}).
			Where("event_id = ? AND user_id = ?", event.ID, userID).
			Count(&existing).Error; err != nil {
			return errors.Wrap(err, "failed to check for existing booking")
		}
		if existing > 0 {
			return ErrDuplicateBooking
		}

		booking = &models.Booking{
			EventID: event.ID,
			UserID:  userID,
		}
		if err := tx.Create(booking).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateBooking
			}
			return errors.Wrap(err, "failed to insert booking")
		}

		fact := messaging.NewBookingCreatedEvent(booking, event.Name)
		payload, err := json.Marshal(fact)
		if err != nil {
			return errors.Wrap(err, "failed to serialize reservation fact")
		}

		outbox := &models.OutboxMessage{
			ID:         uuid.New(),
			BookingID:  booking.ID,
			SessionKey: strconv.FormatInt(booking.ID, 10),
			Payload:    payload,
		}
		if err := tx.Create(outbox).Error; err != nil {
			return errors.Wrap(err, "failed to write outbox row")
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return booking, &event, nil
}

// ListByUser returns a user's bookings joined with their event names,
// newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.UserBooking, error) {
	var bookings []models.UserBooking
	err := r.readOnlyDB.WithContext(ctx).
		Raw(`
SELECT b.id, b.event_id, e.name AS event_name, b.user_id, e.total_seats, b.created_at
FROM bookings b
JOIN events e ON e.id = b.event_id
WHERE b.user_id = ?
ORDER BY b.created_at DESC`, userID).
		Scan(&bookings).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user bookings")
	}
	return bookings, nil
}

// OutboxRepository provides access to the reservation fact outbox
type OutboxRepository struct {
	db *gorm.DB
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Unpublished returns outbox rows not yet handed to the broker,
// oldest first. The grace period keeps the forwarder from racing the
// in-process publish that usually marks the row first.
func (r *OutboxRepository) Unpublished(ctx context.Context, grace time.Duration, limit int) ([]models.OutboxMessage, error) {
	var rows []models.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND created_at <= ?", time.Now().Add(-grace)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load unpublished outbox rows")
	}
	return rows, nil
}

// MarkPublished records that the fact for a booking has been handed
// to the broker. Marking twice is harmless.
func (r *OutboxRepository) MarkPublished(ctx context.Context, bookingID int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.OutboxMessage{}).
		Where("booking_id = ? AND published_at IS NULL", bookingID).
		Update("published_at", time.Now()).Error
	if err != nil {
		return errors.Wrap(err, "failed to mark outbox row published")
	}
	return nil
}
