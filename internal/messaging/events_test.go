package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"example.com/ticketing/services/booking/internal/models"

	"github.com/stretchr/testify/require"
)

func TestNewBookingCreatedEvent(t *testing.T) {
	created := time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC)
	booking := &models.Booking{ID: 42, EventID: 7, UserID: "user-1", CreatedAt: created}

	event := NewBookingCreatedEvent(booking, "Jazz Night")

	require.Equal(t, EventTypeBookingCreated, event.Type)
	require.Equal(t, int64(42), event.Data.ID)
	require.Equal(t, int64(7), event.Data.EventID)
	require.Equal(t, "user-1", event.Data.UserID)
	require.Equal(t, created, event.Data.CreatedAt)
	require.Equal(t, "Jazz Night", event.Data.EventName)

	ts, err := time.Parse(time.RFC3339, event.Timestamp)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().UTC(), ts, time.Minute)
}

// Consumers in other services parse this envelope by field name, so
// the JSON shape is a contract.
func TestBookingEventWireFormat(t *testing.T) {
	booking := &models.Booking{
		ID:        42,
		EventID:   7,
		UserID:    "user-1",
		CreatedAt: time.Date(2026, 5, 20, 18, 30, 0, 0, time.UTC),
	}

	body, err := json.Marshal(NewBookingCreatedEvent(booking, "Jazz Night"))
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.Contains(t, envelope, "type")
	require.Contains(t, envelope, "data")
	require.Contains(t, envelope, "timestamp")

	var eventType string
	require.NoError(t, json.Unmarshal(envelope["type"], &eventType))
	require.Equal(t, "BOOKING_CREATED", eventType)

	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope["data"], &data))
	require.Equal(t, float64(42), data["id"])
	require.Equal(t, float64(7), data["event_id"])
	require.Equal(t, "user-1", data["user_id"])
	require.Equal(t, "Jazz Night", data["event_name"])
	require.Contains(t, data, "created_at")
}
