package messaging

import (
	"context"
	"errors"
	"time"

	"example.com/ticketing/services/booking/config"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog/log"
)

// MessageHandler processes a single received message. A non-nil error
// abandons the message for redelivery; it never stops the stream.
type MessageHandler func(ctx context.Context, message *azservicebus.ReceivedMessage, txn *newrelic.Transaction) error

// Subscriber consumes the booking-events topic under a named
// subscription. Sessions are keyed by booking id, so within one key
// messages arrive in order and only one instance in the group handles
// a given session at a time.
type Subscriber struct {
	client       *azservicebus.Client
	topic        string
	subscription string
	tracer       tracing.Tracer
}

// NewSubscriber creates a subscriber for the configured topic and
// subscription
func NewSubscriber(cfg config.AzureConfig, tracer tracing.Tracer) (*Subscriber, error) {
	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, err
	}

	return &Subscriber{
		client:       client,
		topic:        cfg.Topic,
		subscription: cfg.Subscription,
		tracer:       tracer,
	}, nil
}

// ProcessMessages accepts sessions and dispatches their messages to
// the handler until the context is cancelled
func (s *Subscriber) ProcessMessages(ctx context.Context, handler MessageHandler) error {
	log.Info().
		Str("topic", s.topic).
		Str("subscription", s.subscription).
		Msg("Starting Service Bus processor")

	for {
		receiver, err := s.client.AcceptNextSessionForSubscription(ctx, s.topic, s.subscription, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var sbErr *azservicebus.Error
			if errors.As(err, &sbErr) && sbErr.Code == azservicebus.CodeTimeout {
				log.Debug().Msg("No session available, waiting...")
				time.Sleep(2 * time.Second)
				continue
			}
			return err
		}

		log.Info().Str("session_id", receiver.SessionID()).Msg("Session received")

		go s.handleSession(ctx, receiver, handler)
	}
}

func (s *Subscriber) handleSession(ctx context.Context, receiver *azservicebus.SessionReceiver, handler MessageHandler) {
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Str("session_id", receiver.SessionID()).Msg("Error closing session")
		}
	}()

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("session_id", receiver.SessionID()).Msg("Error receiving messages")
			}
			return
		}

		if len(messages) == 0 {
			// Session drained
			return
		}

		for _, message := range messages {
			txn := s.tracer.StartTransaction("process-booking-message")

			if err := handler(ctx, message, txn); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error processing message")
				s.tracer.RecordError(txn, err)
				s.tracer.EndTransaction(txn)

				// Return the message to the subscription for redelivery
				if err := receiver.AbandonMessage(context.Background(), message, nil); err != nil {
					log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to abandon message")
				}
				continue
			}

			s.tracer.EndTransaction(txn)

			if err := receiver.CompleteMessage(context.Background(), message, nil); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("Failed to complete message")
			}
		}
	}
}

// Close closes the underlying Service Bus client
func (s *Subscriber) Close() error {
	return s.client.Close(context.Background())
}
