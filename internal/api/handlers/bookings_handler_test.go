package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/ticketing/services/booking/internal/models"
	"example.com/ticketing/services/booking/internal/repositories"
	"example.com/ticketing/services/booking/internal/services"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Reserve(ctx context.Context, eventID int64, userID string) (*services.ReservationResult, error) {
	args := m.Called(ctx, eventID, userID)
	var result *services.ReservationResult
	if v := args.Get(0); v != nil {
		result = v.(*services.ReservationResult)
	}
	return result, args.Error(1)
}

func (m *MockBookingService) EventAvailability(ctx context.Context, eventID int64) (*models.EventAvailability, error) {
	args := m.Called(ctx, eventID)
	var availability *models.EventAvailability
	if v := args.Get(0); v != nil {
		availability = v.(*models.EventAvailability)
	}
	return availability, args.Error(1)
}

func (m *MockBookingService) ListEvents(ctx context.Context) ([]models.EventAvailability, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.EventAvailability), args.Error(1)
}

func (m *MockBookingService) UserBookings(ctx context.Context, userID string) ([]models.UserBooking, error) {
	args := m.Called(ctx, userID)
	var bookings []models.UserBooking
	if v := args.Get(0); v != nil {
		bookings = v.([]models.UserBooking)
	}
	return bookings, args.Error(1)
}

func setupBookingsRouter(service BookingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBookingsHandler(service, &tracing.NewRelicTracer{}).RegisterRoutes(router)
	return router
}

func postReserve(t *testing.T, router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/reserve", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestHandleReserveCreated(t *testing.T) {
	mockService := new(MockBookingService)
	result := &services.ReservationResult{
		Booking:   &models.Booking{ID: 42, EventID: 7, UserID: "user-1", CreatedAt: time.Now()},
		EventName: "Jazz Night",
	}
	mockService.On("Reserve", mock.Anything, int64(7), "user-1").Return(result, nil)

	router := setupBookingsRouter(mockService)
	recorder := postReserve(t, router, ReserveRequest{EventID: 7, UserID: "user-1"})

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp ReserveResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Booking created successfully", resp.Message)
	require.NotNil(t, resp.Data)
	require.Equal(t, int64(42), resp.Data.BookingID)
	require.Equal(t, "Jazz Night", resp.Data.EventName)
	require.False(t, resp.Data.NotificationPending)
}

func TestHandleReserveNotificationPending(t *testing.T) {
	mockService := new(MockBookingService)
	result := &services.ReservationResult{
		Booking:             &models.Booking{ID: 42, EventID: 7, UserID: "user-1"},
		EventName:           "Jazz Night",
		NotificationPending: true,
	}
	mockService.On("Reserve", mock.Anything, int64(7), "user-1").Return(result, nil)

	router := setupBookingsRouter(mockService)
	recorder := postReserve(t, router, ReserveRequest{EventID: 7, UserID: "user-1"})

	require.Equal(t, http.StatusCreated, recorder.Code)

	var resp ReserveResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, "Booking created successfully; confirmation may be delayed", resp.Message)
	require.True(t, resp.Data.NotificationPending)
}

func TestHandleReserveErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"event not found", repositories.ErrEventNotFound, http.StatusNotFound},
		{"sold out", repositories.ErrSoldOut, http.StatusConflict},
		{"duplicate booking", repositories.ErrDuplicateBooking, http.StatusConflict},
		{"invalid input", services.ErrInvalidInput, http.StatusBadRequest},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockBookingService)
			mockService.On("Reserve", mock.Anything, int64(7), "user-1").Return(nil, tc.err)

			router := setupBookingsRouter(mockService)
			recorder := postReserve(t, router, ReserveRequest{EventID: 7, UserID: "user-1"})

			require.Equal(t, tc.wantStatus, recorder.Code)

			var resp ReserveResponse
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
			require.False(t, resp.Success)
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleReserveRejectsMissingFields(t *testing.T) {
	mockService := new(MockBookingService)

	router := setupBookingsRouter(mockService)
	recorder := postReserve(t, router, map[string]interface{}{"event_id": 7})

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	mockService.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleReserveRejectsMalformedBody(t *testing.T) {
	mockService := new(MockBookingService)

	router := setupBookingsRouter(mockService)
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/reserve", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	mockService.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUserBookings(t *testing.T) {
	mockService := new(MockBookingService)
	bookings := []models.UserBooking{
		{ID: 1, EventID: 7, EventName: "Jazz Night", UserID: "user-1", TotalSeats: 100},
	}
	mockService.On("UserBookings", mock.Anything, "user-1").Return(bookings, nil)

	router := setupBookingsRouter(mockService)
	req := httptest.NewRequest(http.MethodGet, "/api/bookings/user/user-1", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Success bool                 `json:"success"`
		Data    []models.UserBooking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Jazz Night", resp.Data[0].EventName)
}

func TestHandleUserBookingsStorageFailure(t *testing.T) {
	mockService := new(MockBookingService)
	mockService.On("UserBookings", mock.Anything, "user-1").Return(nil, errors.New("connection reset"))

	router := setupBookingsRouter(mockService)
	req := httptest.NewRequest(http.MethodGet, "/api/bookings/user/user-1", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
}
