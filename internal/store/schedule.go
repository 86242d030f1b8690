package store

import (
	"context"

	"github.com/google/uuid"

	"slotify/internal/domain"
)

// ScheduleDirectory reads the data owned by store management: operating
// hours and the technician roster. The booking core never writes through it.
type ScheduleDirectory interface {
	// ResolveDayWindow maps a date to the store's open interval, applying
	// exact-date closures over the weekly row. It returns ErrStoreClosed for
	// a configured closed day and ErrHoursNotConfigured when no row exists
	// at all.
	ResolveDayWindow(ctx context.Context, storeID string, date domain.Date) (domain.DayWindow, error)

	ListActiveTechnicians(ctx context.Context, storeID string) ([]uuid.UUID, error)
}
