package handlers

import (
	"net/http"
	"strconv"

	"example.com/ticketing/services/booking/internal/repositories"
	"example.com/ticketing/services/booking/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EventsHandler handles event-related HTTP requests
type EventsHandler struct {
	service BookingService
	tracer  tracing.Tracer
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(service BookingService, tracer tracing.Tracer) *EventsHandler {
	return &EventsHandler{
		service: service,
		tracer:  tracer,
	}
}

// HandleListEvents handles GET /events
func (h *EventsHandler) HandleListEvents(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-list-events")
	defer h.tracer.EndTransaction(txn)

	events, err := h.service.ListEvents(c.Request.Context())
	if err != nil {
		h.tracer.RecordError(txn, err)
		log.Error().Err(err).Msg("Failed to list events")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": events})
}

// HandleGetEvent handles GET /events/:id
func (h *EventsHandler) HandleGetEvent(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-event")
	defer h.tracer.EndTransaction(txn)

	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	availability, err := h.service.EventAvailability(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "event not found"})
			return
		}
		h.tracer.RecordError(txn, err)
		log.Error().Err(err).Int64("event_id", eventID).Msg("Failed to get event")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to get event"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": availability})
}

// HandleAvailableSeats handles GET /events/:id/available-seats
func (h *EventsHandler) HandleAvailableSeats(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-available-seats")
	defer h.tracer.EndTransaction(txn)

	eventID, ok := parseEventID(c)
	if !ok {
		return
	}

	availability, err := h.service.EventAvailability(c.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "event not found"})
			return
		}
		h.tracer.RecordError(txn, err)
		log.Error().Err(err).Int64("event_id", eventID).Msg("Failed to get available seats")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to get available seats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"event_id":        availability.EventID,
			"available_seats": availability.AvailableSeats,
		},
	})
}

func parseEventID(c *gin.Context) (int64, bool) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "event id must be a positive integer"})
		return 0, false
	}
	return eventID, true
}

// RegisterRoutes registers the handler's routes
func (h *EventsHandler) RegisterRoutes(router *gin.Engine) {
	events := router.Group("/events")
	events.GET("", h.HandleListEvents)
	events.GET("/:id", h.HandleGetEvent)
	events.GET("/:id/available-seats", h.HandleAvailableSeats)
}
