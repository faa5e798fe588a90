package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"example.com/ticketing/services/booking/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// ServiceBusClient is an interface for Azure Service Bus publishing.
// Messages are session-keyed so the broker preserves ordering per key;
// the key is the booking identifier as text.
type ServiceBusClient interface {
	SendMessage(ctx context.Context, sessionKey string, body interface{}) error
	Close() error
}

// serviceBusClient implements the ServiceBusClient interface
type serviceBusClient struct {
	client     *azservicebus.Client
	sender     *azservicebus.Sender
	topic      string
	clientType string
}

// NewServiceBusClient creates a new Azure Service Bus client with a
// sender for the booking-events topic
func NewServiceBusClient(cfg config.AzureConfig, clientType string) (ServiceBusClient, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	sender, err := client.NewSender(cfg.Topic, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus sender: %w", err)
	}

	return &serviceBusClient{
		client:     client,
		sender:     sender,
		topic:      cfg.Topic,
		clientType: clientType,
	}, nil
}

// SendMessage publishes a message to the topic, keyed by sessionKey.
// A json.RawMessage body passes through unmodified, which is how the
// outbox forwarder replays already-serialized facts.
func (s *serviceBusClient) SendMessage(ctx context.Context, sessionKey string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message body: %w", err)
	}

	msg := &azservicebus.Message{
		Body:      data,
		SessionID: &sessionKey,
		ApplicationProperties: map[string]interface{}{
			"source": s.clientType,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	return s.sender.SendMessage(ctx, msg, nil)
}

// Close closes the sender and the underlying client
func (s *serviceBusClient) Close() error {
	if s.sender != nil {
		if err := s.sender.Close(context.Background()); err != nil {
			return err
		}
	}

	if s.client != nil {
		return s.client.Close(context.Background())
	}

	return nil
}
