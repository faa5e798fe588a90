package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/ticketing/services/booking/internal/models"
	"example.com/ticketing/services/booking/internal/repositories"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupEventsRouter(service BookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewEventsHandler(service, &tracing.NewRelicTracer{}).RegisterRoutes(router)
	return router
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandleListEvents(t *testing.T) {
	mockService := new(MockBookingService)
	events := []models.EventAvailability{
		{EventID: 1, Name: "Jazz Night", TotalSeats: 100, BookedSeats: 40, AvailableSeats: 60},
		{EventID: 2, Name: "Opera Gala", TotalSeats: 10, BookedSeats: 10, AvailableSeats: 0},
	}
	mockService.On("ListEvents", mock.Anything).Return(events, nil)

	recorder := getPath(setupEventsRouter(mockService), "/events")

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Success bool                       `json:"success"`
		Data    []models.EventAvailability `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	require.Equal(t, 0, resp.Data[1].AvailableSeats)
}

func TestHandleGetEvent(t *testing.T) {
	mockService := new(MockBookingService)
	availability := &models.EventAvailability{EventID: 7, Name: "Jazz Night", TotalSeats: 100, BookedSeats: 40, AvailableSeats: 60}
	mockService.On("EventAvailability", mock.Anything, int64(7)).Return(availability, nil)

	recorder := getPath(setupEventsRouter(mockService), "/events/7")

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Success bool                     `json:"success"`
		Data    models.EventAvailability `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, "Jazz Night", resp.Data.Name)
	require.Equal(t, 60, resp.Data.AvailableSeats)
}

func TestHandleGetEventNotFound(t *testing.T) {
	mockService := new(MockBookingService)
	mockService.On("EventAvailability", mock.Anything, int64(999)).Return(nil, repositories.ErrEventNotFound)

	recorder := getPath(setupEventsRouter(mockService), "/events/999")

	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestHandleGetEventRejectsBadID(t *testing.T) {
	mockService := new(MockBookingService)

	require.Equal(t, http.StatusBadRequest, getPath(setupEventsRouter(mockService), "/events/abc").Code)
	require.Equal(t, http.StatusBadRequest, getPath(setupEventsRouter(mockService), "/events/-3").Code)
	mockService.AssertNotCalled(t, "EventAvailability", mock.Anything, mock.Anything)
}

func TestHandleAvailableSeats(t *testing.T) {
	mockService := new(MockBookingService)
	availability := &models.EventAvailability{EventID: 7, Name: "Jazz Night", TotalSeats: 100, BookedSeats: 99, AvailableSeats: 1}
	mockService.On("EventAvailability", mock.Anything, int64(7)).Return(availability, nil)

	recorder := getPath(setupEventsRouter(mockService), "/events/7/available-seats")

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			EventID        int64 `json:"event_id"`
			AvailableSeats int   `json:"available_seats"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.Equal(t, int64(7), resp.Data.EventID)
	require.Equal(t, 1, resp.Data.AvailableSeats)
}
