package services

import (
	"context"
	"encoding/json"

	"example.com/ticketing/services/booking/internal/cache"
	"example.com/ticketing/services/booking/internal/messaging"
	"example.com/ticketing/services/booking/internal/metrics"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ExtractBookingEvent parses the reservation fact envelope out of a
// received message
func ExtractBookingEvent(message *azservicebus.ReceivedMessage) (*messaging.BookingEvent, error) {
	var event messaging.BookingEvent
	if err := json.Unmarshal(message.Body, &event); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal booking event")
	}
	if event.Type == "" {
		return nil, errors.New("booking event has no type")
	}
	return &event, nil
}

// ProcessBookingMessage handles one message from the booking-events
// subscription. Delivery is at least once, so every side effect is
// idempotent per booking id: the audit index uses the booking id as
// document id, and the notification is claimed through Redis before
// dispatch. A returned error abandons the message for redelivery.
func (s *BookingService) ProcessBookingMessage(ctx context.Context, message *azservicebus.ReceivedMessage, txn *newrelic.Transaction) error {
	event, err := ExtractBookingEvent(message)
	if err != nil {
		// Malformed messages are logged and completed; redelivery
		// cannot fix them
		log.Error().Err(err).Str("message_id", message.MessageID).Msg("Dropping unparseable message")
		return nil
	}

	if event.Type != messaging.EventTypeBookingCreated {
		log.Warn().Str("type", event.Type).Msg("Skipping message of unknown type")
		return nil
	}

	s.tracer.AddAttribute(txn, "booking_id", event.Data.ID)

	// Audit write first: keyed by booking id, so redoing it after a
	// partial failure is safe
	if s.search != nil {
		span := s.tracer.StartSpan("index-booking-audit", txn)
		err := s.search.IndexBookingAudit(ctx, event)
		span.End()
		if err != nil {
			return errors.Wrap(err, "failed to index booking audit record")
		}
	}

	first, err := s.cache.Claim(ctx, cache.BookingProcessedKey(event.Data.ID), dedupTTL)
	if err != nil {
		return errors.Wrap(err, "failed to claim booking fact")
	}
	if !first {
		s.metrics.IncrementCounter(metrics.CounterFactsDeduplicated)
		log.Info().Int64("booking_id", event.Data.ID).Msg("Booking fact already processed, skipping notification")
		return nil
	}

	// Notification dispatch is best effort: a failure here is logged,
	// not retried, and never blocks the stream
	if err := s.notifier.NotifyBookingCreated(ctx, event); err != nil {
		log.Error().Err(err).Int64("booking_id", event.Data.ID).Msg("Failed to dispatch booking notification")
	}

	s.metrics.IncrementCounter(metrics.CounterFactsProcessed)

	log.Info().
		Int64("booking_id", event.Data.ID).
		Str("event_name", event.Data.EventName).
		Msg("Booking fact processed")

	return nil
}

// ForwardOutbox relays reservation facts that never reached the
// broker: outbox rows past the grace period with no published mark.
// Runs periodically in the worker. Delivery is at least once; the
// consumer's dedup absorbs any overlap with the in-process publish.
func (s *BookingService) ForwardOutbox(ctx context.Context) error {
	txn := s.tracer.StartTransaction("forward-outbox")
	defer s.tracer.EndTransaction(txn)

	rows, err := s.outbox.Unpublished(ctx, s.outboxCfg.GracePeriod, s.outboxCfg.BatchSize)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return errors.Wrap(err, "failed to load unpublished outbox rows")
	}

	if len(rows) == 0 {
		return nil
	}

	log.Info().Int("count", len(rows)).Msg("Forwarding unpublished booking facts")

	for _, row := range rows {
		// The stored payload is already the serialized fact;
		// RawMessage keeps it byte-identical on the wire
		if err := s.bus.SendMessage(ctx, row.SessionKey, json.RawMessage(row.Payload)); err != nil {
			s.metrics.IncrementCounter(metrics.CounterPublishFailures)
			s.tracer.RecordError(txn, err)
			log.Error().Err(err).Int64("booking_id", row.BookingID).Msg("Failed to forward booking fact")
			continue
		}

		if err := s.outbox.MarkPublished(ctx, row.BookingID); err != nil {
			log.Error().Err(err).Int64("booking_id", row.BookingID).Msg("Failed to mark forwarded fact published")
			continue
		}

		s.metrics.IncrementCounter(metrics.CounterOutboxForwarded)
	}

	return nil
}
