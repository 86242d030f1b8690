package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"slotify/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrStaleStatus         = errors.New("appointment status changed concurrently")

	// Hours resolution outcomes. Distinct so the UI can tell "no slots
	// today" from "this store never set up hours".
	ErrStoreClosed        = errors.New("store closed")
	ErrHoursNotConfigured = errors.New("store hours not configured")
)

// ConflictError is the booking-time race outcome. It always carries the
// blocking interval so the caller can propose the next free time without a
// second round trip.
type ConflictError struct {
	ExistingID    uuid.UUID
	ExistingStart domain.TimeOfDay
	ExistingEnd   domain.TimeOfDay
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("technician already booked %s-%s", e.ExistingStart, e.ExistingEnd)
}

// NextFree is the earliest start the caller could suggest instead.
func (e *ConflictError) NextFree() domain.TimeOfDay {
	return e.ExistingEnd
}
