package handlers

import (
	"context"
	"net/http"
	"time"

	"example.com/ticketing/services/booking/internal/models"
	"example.com/ticketing/services/booking/internal/repositories"
	"example.com/ticketing/services/booking/internal/services"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BookingService is the service surface the handlers depend on
type BookingService interface {
	Reserve(ctx context.Context, eventID int64, userID string) (*services.ReservationResult, error)
	EventAvailability(ctx context.Context, eventID int64) (*models.EventAvailability, error)
	ListEvents(ctx context.Context) ([]models.EventAvailability, error)
	UserBookings(ctx context.Context, userID string) ([]models.UserBooking, error)
}

// BookingsHandler handles booking-related HTTP requests
type BookingsHandler struct {
	service BookingService
	tracer  tracing.Tracer
}

// NewBookingsHandler creates a new bookings handler
func NewBookingsHandler(service BookingService, tracer tracing.Tracer) *BookingsHandler {
	return &BookingsHandler{
		service: service,
		tracer:  tracer,
	}
}

// ReserveRequest is the reservation request body
type ReserveRequest struct {
	EventID int64  `json:"event_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

// ReservationData is the payload returned for a created booking
type ReservationData struct {
	BookingID           int64     `json:"booking_id"`
	EventID             int64     `json:"event_id"`
	EventName           string    `json:"event_name"`
	UserID              string    `json:"user_id"`
	CreatedAt           time.Time `json:"created_at"`
	NotificationPending bool      `json:"notification_pending"`
}

// ReserveResponse is the reservation response envelope
type ReserveResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    *ReservationData `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// HandleReserve handles POST /api/bookings/reserve
func (h *BookingsHandler) HandleReserve(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-reserve-booking")
	defer h.tracer.EndTransaction(txn)

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ReserveResponse{
			Success: false,
			Error:   "event_id and user_id are required",
		})
		return
	}

	h.tracer.AddAttribute(txn, "event_id", req.EventID)
	h.tracer.AddAttribute(txn, "user_id", req.UserID)

	result, err := h.service.Reserve(c.Request.Context(), req.EventID, req.UserID)
	if err != nil {
		h.tracer.RecordError(txn, err)
		status, message := reserveErrorResponse(err)
		c.JSON(status, ReserveResponse{Success: false, Error: message})
		return
	}

	message := "Booking created successfully"
	if result.NotificationPending {
		message = "Booking created successfully; confirmation may be delayed"
	}

	c.JSON(http.StatusCreated, ReserveResponse{
		Success: true,
		Message: message,
		Data: &ReservationData{
			BookingID:           result.Booking.ID,
			EventID:             result.Booking.EventID,
			EventName:           result.EventName,
			UserID:              result.Booking.UserID,
			CreatedAt:           result.Booking.CreatedAt,
			NotificationPending: result.NotificationPending,
		},
	})
}

// HandleUserBookings handles GET /api/bookings/user/:userId
func (h *BookingsHandler) HandleUserBookings(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-user-bookings")
	defer h.tracer.EndTransaction(txn)

	bookings, err := h.service.UserBookings(c.Request.Context(), c.Param("userId"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user id is required"})
			return
		}
		h.tracer.RecordError(txn, err)
		log.Error().Err(err).Msg("Failed to list user bookings")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": bookings})
}

// reserveErrorResponse maps a reservation error to an HTTP status and
// a caller-safe message
func reserveErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest, "event_id and user_id are required"
	case errors.Is(err, repositories.ErrEventNotFound):
		return http.StatusNotFound, "event not found"
	case errors.Is(err, repositories.ErrSoldOut):
		return http.StatusConflict, "no available seats for this event"
	case errors.Is(err, repositories.ErrDuplicateBooking):
		return http.StatusConflict, "you have already booked this event"
	default:
		log.Error().Err(err).Msg("Reservation failed")
		return http.StatusInternalServerError, "failed to create booking"
	}
}

// RegisterRoutes registers the handler's routes
func (h *BookingsHandler) RegisterRoutes(router *gin.Engine) {
	bookings := router.Group("/api/bookings")
	bookings.POST("/reserve", h.HandleReserve)
	bookings.GET("/user/:userId", h.HandleUserBookings)
}
