package repositories

import "github.com/pkg/errors"

// Domain errors surfaced by the repositories. Callers discriminate
// with errors.Is; anything else is a wrapped store failure.
var (
	// ErrEventNotFound is returned when the target event does not exist
	ErrEventNotFound = errors.New("event not found")

	// ErrSoldOut is returned when the event has no remaining capacity
	ErrSoldOut = errors.New("no available seats for this event")

	// ErrDuplicateBooking is returned when the user already holds a
	// booking for the event, whether caught by the advisory check or
	// by the unique constraint at commit time
	ErrDuplicateBooking = errors.New("user has already booked this event")
)
