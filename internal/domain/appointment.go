package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Active reports whether the appointment participates in conflict detection.
// Completed and cancelled rows are inert.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// CanTransitionTo encodes the lifecycle state machine:
// pending -> {confirmed, cancelled}, confirmed -> {completed, cancelled}.
// Cancel idempotency (cancelled -> cancelled) is handled by the caller as a
// no-op, not as a transition.
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return to == AppointmentStatusConfirmed || to == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return to == AppointmentStatusCompleted || to == AppointmentStatusCancelled
	default:
		return false
	}
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              uuid.UUID         `bun:"id,pk,type:uuid"`
	StoreID         string            `bun:"store_id,notnull"`
	ServiceID       string            `bun:"service_id,notnull"`
	TechnicianID    *uuid.UUID        `bun:"technician_id,type:uuid"`
	Date            Date              `bun:"date,notnull"`
	StartMinutes    TimeOfDay         `bun:"start_minutes,notnull"`
	DurationMinutes int               `bun:"duration_minutes,notnull"`
	Status          AppointmentStatus `bun:"status,notnull"`
	Notes           string            `bun:"notes"`
	CreatedAt       time.Time         `bun:"created_at,notnull"`
	UpdatedAt       time.Time         `bun:"updated_at,notnull"`
}

// End is the exclusive end of the booked interval.
func (a *Appointment) End() TimeOfDay {
	return a.StartMinutes + TimeOfDay(a.DurationMinutes)
}

func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartMinutes, End: a.End()}
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
