package store

import (
	"context"

	"github.com/google/uuid"

	"slotify/internal/domain"
)

// BookingRepository owns the Appointment table. Create and Reschedule embed
// the conflict guard: the overlap check runs against a freshly read set of
// active bookings inside the same critical section as the write.
type BookingRepository interface {
	Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate domain.Date, newStart domain.TimeOfDay) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error)

	// ListBookedIntervals returns the active (pending/confirmed) intervals
	// for one technician on one date, ordered by start. Single-resource on
	// purpose; "any professional" fans out at the service layer.
	ListBookedIntervals(ctx context.Context, technicianID uuid.UUID, date domain.Date) ([]domain.Interval, error)

	ListForStoreDate(ctx context.Context, storeID string, date domain.Date) ([]domain.Appointment, error)
}

// ScheduleTx is the per-partition critical section the conflict guard runs
// in. The postgres implementation holds an advisory lock keyed by
// (technician, date) for the duration of the transaction.
type ScheduleTx interface {
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListActiveAppointments(ctx context.Context, technicianID uuid.UUID, date domain.Date) ([]domain.Appointment, error)
	UpdateAppointmentTimes(ctx context.Context, id uuid.UUID, date domain.Date, start domain.TimeOfDay) (domain.Appointment, error)
}
