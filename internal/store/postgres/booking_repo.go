package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"slotify/internal/domain"
	"slotify/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

func (r *BookingRepo) Create(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.inScheduleTx(ctx, lockKey(appt.TechnicianID, appt.StoreID, appt.Date), func(ctx context.Context, tx store.ScheduleTx) error {
		if appt.TechnicianID != nil {
			// appt.ID is the deterministic idempotency id when a key was
			// supplied (uuid.Nil otherwise). Excluding it keeps a retry from
			// conflicting with its own previously inserted row, so the
			// 23505 replay in InsertAppointment can answer instead.
			if err := ensureNoBookingConflict(ctx, tx, *appt.TechnicianID, appt.Date, appt.Interval(), appt.ID); err != nil {
				return err
			}
		}
		a, err := tx.InsertAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var row domain.Appointment
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return row, nil
}

func (r *BookingRepo) Reschedule(ctx context.Context, id uuid.UUID, newDate domain.Date, newStart domain.TimeOfDay) (domain.Appointment, error) {
	cur, err := r.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.inScheduleTx(ctx, lockKey(cur.TechnicianID, cur.StoreID, newDate), func(ctx context.Context, tx store.ScheduleTx) error {
		row, err := tx.GetAppointmentForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !row.Status.Active() {
			return store.ErrStaleStatus
		}
		if row.TechnicianID != nil {
			slot := domain.Interval{Start: newStart, End: newStart + domain.TimeOfDay(row.DurationMinutes)}
			// The appointment's own current row never conflicts with its
			// new time (self-conflict exclusion).
			if err := ensureNoBookingConflict(ctx, tx, *row.TechnicianID, newDate, slot, id); err != nil {
				return err
			}
		}
		updated, err := tx.UpdateAppointmentTimes(ctx, id, newDate, newStart)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) (domain.Appointment, error) {
	res, err := r.db.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return domain.Appointment{}, err
		}
		return domain.Appointment{}, store.ErrStaleStatus
	}
	return r.Get(ctx, id)
}

func (r *BookingRepo) ListBookedIntervals(ctx context.Context, technicianID uuid.UUID, date domain.Date) ([]domain.Interval, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("technician_id = ?", technicianID).
		Where("date = ?", date).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.AppointmentStatusPending, domain.AppointmentStatusConfirmed})).
		OrderExpr("start_minutes ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Interval, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Interval())
	}
	return out, nil
}

func (r *BookingRepo) ListForStoreDate(ctx context.Context, storeID string, date domain.Date) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("store_id = ?", storeID).
		Where("date = ?", date).
		OrderExpr("start_minutes ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// inScheduleTx serializes writers on one (technician, date) partition:
// the advisory lock is held for the whole read-check-write transaction, so
// the second concurrent writer re-reads after the first commits.
func (r *BookingRepo) inScheduleTx(ctx context.Context, key string, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
}

// lockKey partitions writes per technician per date. Unassigned bookings
// (nil technician) have no interval to guard, so they share the store-wide
// key for their date instead.
func lockKey(technicianID *uuid.UUID, storeID string, date domain.Date) string {
	if technicianID != nil {
		return technicianID.String() + ":" + date.String()
	}
	return "store:" + storeID + ":" + date.String()
}

// ensureNoBookingConflict is the conflict guard proper: a fresh read of the
// technician's active bookings immediately before the write, under the
// partition lock. exclude skips the appointment's own row on reschedule.
func ensureNoBookingConflict(ctx context.Context, tx store.ScheduleTx, technicianID uuid.UUID, date domain.Date, slot domain.Interval, exclude uuid.UUID) error {
	existing, err := tx.ListActiveAppointments(ctx, technicianID, date)
	if err != nil {
		return err
	}
	for i := range existing {
		if exclude != uuid.Nil && existing[i].ID == exclude {
			continue
		}
		if slot.Overlaps(existing[i].Interval()) {
			return &store.ConflictError{
				ExistingID:    existing[i].ID,
				ExistingStart: existing[i].StartMinutes,
				ExistingEnd:   existing[i].End(),
			}
		}
	}
	return nil
}

func (r scheduleTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Idempotency replay: the deterministic id already exists.
			// Return the stored row when it matches the request, otherwise
			// the key was reused for a different booking.
			var existing domain.Appointment
			selectErr := r.tx.NewSelect().
				Model(&existing).
				Where("id = ?", m.ID).
				Limit(1).
				Scan(ctx)
			if selectErr != nil {
				return domain.Appointment{}, err
			}

			if existing.StoreID != appt.StoreID ||
				existing.ServiceID != appt.ServiceID ||
				!uuidPtrEqual(existing.TechnicianID, appt.TechnicianID) ||
				existing.Date != appt.Date ||
				existing.StartMinutes != appt.StartMinutes ||
				existing.DurationMinutes != appt.DurationMinutes {
				return domain.Appointment{}, store.ErrIdempotencyConflict
			}

			return existing, nil
		}
		return domain.Appointment{}, err
	}

	appt.ID = m.ID
	appt.CreatedAt = m.CreatedAt
	appt.UpdatedAt = m.UpdatedAt
	return appt, nil
}

func (r scheduleTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var row domain.Appointment
	err := r.tx.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return row, nil
}

func (r scheduleTx) ListActiveAppointments(ctx context.Context, technicianID uuid.UUID, date domain.Date) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.tx.NewSelect().
		Model(&rows).
		Where("technician_id = ?", technicianID).
		Where("date = ?", date).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.AppointmentStatusPending, domain.AppointmentStatusConfirmed})).
		OrderExpr("start_minutes ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r scheduleTx) UpdateAppointmentTimes(ctx context.Context, id uuid.UUID, date domain.Date, start domain.TimeOfDay) (domain.Appointment, error) {
	res, err := r.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("date = ?", date).
		Set("start_minutes = ?", start).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}

	var row domain.Appointment
	if err := r.tx.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Appointment{}, err
	}
	return row, nil
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
