package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"example.com/ticketing/services/booking/config"
	"example.com/ticketing/services/booking/internal/cache"
	"example.com/ticketing/services/booking/internal/messaging"
	"example.com/ticketing/services/booking/internal/metrics"
	"example.com/ticketing/services/booking/internal/models"
	"example.com/ticketing/services/booking/internal/notifier"
	"example.com/ticketing/services/booking/internal/repositories"
	"example.com/ticketing/services/booking/internal/search"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrInvalidInput is returned when a malformed request reaches the
// coordinator despite HTTP-layer validation; the coordinator re-checks
// and fails closed.
var ErrInvalidInput = errors.New("invalid reservation input")

// availabilityCacheTTL bounds the staleness of the display-only
// availability endpoint. Reservation decisions never read this cache.
const availabilityCacheTTL = 5 * time.Second

// dedupTTL is how long a processed booking fact stays claimed. Facts
// are replayed within minutes, not weeks.
const dedupTTL = 7 * 24 * time.Hour

// ReservationStore is the transactional seat reservation boundary
type ReservationStore interface {
	Reserve(ctx context.Context, eventID int64, userID string) (*models.Booking, *models.Event, error)
	ListByUser(ctx context.Context, userID string) ([]models.UserBooking, error)
}

// EventStore reads events and their derived availability
type EventStore interface {
	Availability(ctx context.Context, eventID int64) (*models.EventAvailability, error)
	ListWithAvailability(ctx context.Context) ([]models.EventAvailability, error)
}

// OutboxStore tracks which reservation facts reached the broker
type OutboxStore interface {
	Unpublished(ctx context.Context, grace time.Duration, limit int) ([]models.OutboxMessage, error)
	MarkPublished(ctx context.Context, bookingID int64) error
}

// Cache is the subset of the Redis cache the service uses
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Claim(ctx context.Context, key string, expiration time.Duration) (bool, error)
}

// AuditIndexer writes audit records for processed booking facts
type AuditIndexer interface {
	IndexBookingAudit(ctx context.Context, event *messaging.BookingEvent) error
}

// ReservationResult is the outcome of a successful reservation.
// NotificationPending is set when the booking committed but the fact
// could not be handed to the broker immediately; the outbox forwarder
// delivers it later.
type ReservationResult struct {
	Booking             *models.Booking
	EventName           string
	NotificationPending bool
}

// BookingService handles reservation business logic for both the API
// process and the worker
type BookingService struct {
	bookings  ReservationStore
	events    EventStore
	outbox    OutboxStore
	cache     Cache
	bus       messaging.ServiceBusClient
	search    AuditIndexer
	notifier  notifier.Notifier
	metrics   *metrics.Metrics
	tracer    tracing.Tracer
	outboxCfg config.OutboxConfig
}

// NewBookingService creates a new booking service
func NewBookingService(
	db *gorm.DB,
	readOnlyDB *gorm.DB,
	redisCache *cache.RedisCache,
	bus messaging.ServiceBusClient,
	elasticClient *search.ElasticClient,
	notif notifier.Notifier,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	outboxCfg config.OutboxConfig,
) *BookingService {
	svc := &BookingService{
		bookings:  repositories.NewBookingRepository(db, readOnlyDB),
		events:    repositories.NewEventRepository(db, readOnlyDB),
		outbox:    repositories.NewOutboxRepository(db),
		cache:     redisCache,
		bus:       bus,
		notifier:  notif,
		metrics:   metricsCollector,
		tracer:    tracer,
		outboxCfg: outboxCfg,
	}
	if elasticClient != nil {
		svc.search = elasticClient
	}
	return svc
}

// Reserve admits or rejects a reservation attempt and, on success,
// makes one best-effort publish of the reservation fact. Publish
// failure never affects the committed booking.
func (s *BookingService) Reserve(ctx context.Context, eventID int64, userID string) (*ReservationResult, error) {
	txn := s.tracer.StartTransaction("reserve-booking")
	defer s.tracer.EndTransaction(txn)

	s.tracer.AddAttribute(txn, "event_id", eventID)
	s.tracer.AddAttribute(txn, "user_id", userID)

	userID = strings.TrimSpace(userID)
	if eventID <= 0 || userID == "" {
		return nil, ErrInvalidInput
	}

	span := s.tracer.StartSpan("reserve-transaction", txn)
	start := time.Now()
	booking, event, err := s.bookings.Reserve(ctx, eventID, userID)
	s.metrics.RecordTimer("reserve", time.Since(start).Milliseconds())
	span.End()

	if err != nil {
		s.tracer.RecordError(txn, err)
		s.recordReserveFailure(eventID, userID, err)
		return nil, err
	}

	s.metrics.IncrementCounter(metrics.CounterReservationsGranted)
	s.metrics.RecordSuccess("reserve")

	log.Info().
		Int64("booking_id", booking.ID).
		Int64("event_id", booking.EventID).
		Str("user_id", booking.UserID).
		Msg("Booking created")

	result := &ReservationResult{
		Booking:   booking,
		EventName: event.Name,
	}

	// Best-effort publish outside the transaction; the outbox row
	// written at commit time covers the failure case
	publishSpan := s.tracer.StartSpan("publish-booking-event", txn)
	result.NotificationPending = !s.publishBookingEvent(ctx, booking, event.Name)
	publishSpan.End()

	return result, nil
}

// publishBookingEvent hands the reservation fact to the broker and
// marks the outbox row. Returns whether the fact is on its way.
func (s *BookingService) publishBookingEvent(ctx context.Context, booking *models.Booking, eventName string) bool {
	if s.bus == nil {
		s.metrics.IncrementCounter(metrics.CounterPublishFailures)
		log.Warn().Int64("booking_id", booking.ID).Msg("No broker client, fact left to the outbox forwarder")
		return false
	}

	fact := messaging.NewBookingCreatedEvent(booking, eventName)
	key := strconv.FormatInt(booking.ID, 10)

	if err := s.bus.SendMessage(ctx, key, fact); err != nil {
		s.metrics.IncrementCounter(metrics.CounterPublishFailures)
		log.Warn().
			Err(err).
			Int64("booking_id", booking.ID).
			Msg("Failed to publish booking event, forwarder will retry from outbox")
		return false
	}

	if err := s.outbox.MarkPublished(ctx, booking.ID); err != nil {
		// The forwarder will republish; the consumer dedups by booking id
		log.Warn().Err(err).Int64("booking_id", booking.ID).Msg("Failed to mark outbox row published")
	}

	return true
}

func (s *BookingService) recordReserveFailure(eventID int64, userID string, err error) {
	switch {
	case errors.Is(err, repositories.ErrEventNotFound):
		s.metrics.IncrementCounter(metrics.CounterReservationsNotFound)
	case errors.Is(err, repositories.ErrSoldOut):
		s.metrics.IncrementCounter(metrics.CounterReservationsSoldOut)
	case errors.Is(err, repositories.ErrDuplicateBooking):
		s.metrics.IncrementCounter(metrics.CounterReservationsDupe)
	default:
		s.metrics.RecordError("reserve")
		log.Error().Err(err).Int64("event_id", eventID).Str("user_id", userID).Msg("Reservation failed")
		return
	}

	log.Info().
		Err(err).
		Int64("event_id", eventID).
		Str("user_id", userID).
		Msg("Reservation rejected")
}

// EventAvailability returns the derived capacity view for one event.
// This is the display read: cached briefly, eventually consistent.
func (s *BookingService) EventAvailability(ctx context.Context, eventID int64) (*models.EventAvailability, error) {
	if eventID <= 0 {
		return nil, ErrInvalidInput
	}

	key := cache.EventAvailabilityKey(eventID)
	var cached models.EventAvailability
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	availability, err := s.events.Availability(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, availability, availabilityCacheTTL); err != nil {
		log.Debug().Err(err).Int64("event_id", eventID).Msg("Failed to cache event availability")
	}

	return availability, nil
}

// ListEvents returns all events with their derived availability
func (s *BookingService) ListEvents(ctx context.Context) ([]models.EventAvailability, error) {
	return s.events.ListWithAvailability(ctx)
}

// UserBookings returns a user's bookings with event names
func (s *BookingService) UserBookings(ctx context.Context, userID string) ([]models.UserBooking, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.bookings.ListByUser(ctx, userID)
}
