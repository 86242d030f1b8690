package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"slotify/internal/domain"
	"slotify/internal/store"
)

// fakeScheduleTx serves a canned set of active appointments to the conflict
// guard. The write-side methods are never reached in these tests.
type fakeScheduleTx struct {
	active  []domain.Appointment
	listErr error
}

func (f *fakeScheduleTx) ListActiveAppointments(ctx context.Context, technicianID uuid.UUID, date domain.Date) ([]domain.Appointment, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.active, nil
}

func (f *fakeScheduleTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	panic("not used")
}

func (f *fakeScheduleTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	panic("not used")
}

func (f *fakeScheduleTx) UpdateAppointmentTimes(ctx context.Context, id uuid.UUID, date domain.Date, start domain.TimeOfDay) (domain.Appointment, error) {
	panic("not used")
}

func TestEnsureNoBookingConflict(t *testing.T) {
	ctx := context.Background()
	tech := uuid.MustParse("0195d000-0000-7000-8000-00000000000a")
	date := domain.Date{Year: 2026, Month: time.March, Day: 9}

	existingID := uuid.MustParse("0195d000-0000-7000-8000-000000000001")
	existing := domain.Appointment{
		ID:              existingID,
		TechnicianID:    &tech,
		Date:            date,
		StartMinutes:    600,
		DurationMinutes: 60,
		Status:          domain.AppointmentStatusConfirmed,
	}

	t.Run("overlap reports the blocking interval", func(t *testing.T) {
		tx := &fakeScheduleTx{active: []domain.Appointment{existing}}
		err := ensureNoBookingConflict(ctx, tx, tech, date, domain.Interval{Start: 630, End: 690}, uuid.Nil)

		var ce *store.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("err = %v, want ConflictError", err)
		}
		if ce.ExistingID != existingID {
			t.Fatalf("ExistingID = %s, want %s", ce.ExistingID, existingID)
		}
		if ce.ExistingStart != 600 || ce.ExistingEnd != 660 {
			t.Fatalf("blocking interval = %d-%d, want 600-660", ce.ExistingStart, ce.ExistingEnd)
		}
		if ce.NextFree() != 660 {
			t.Fatalf("NextFree = %d, want 660", ce.NextFree())
		}
	})

	t.Run("touching intervals do not conflict", func(t *testing.T) {
		tx := &fakeScheduleTx{active: []domain.Appointment{existing}}
		if err := ensureNoBookingConflict(ctx, tx, tech, date, domain.Interval{Start: 660, End: 720}, uuid.Nil); err != nil {
			t.Fatalf("back-to-back slot: err = %v", err)
		}
		if err := ensureNoBookingConflict(ctx, tx, tech, date, domain.Interval{Start: 540, End: 600}, uuid.Nil); err != nil {
			t.Fatalf("slot ending at existing start: err = %v", err)
		}
	})

	t.Run("own row is excluded on reschedule", func(t *testing.T) {
		tx := &fakeScheduleTx{active: []domain.Appointment{existing}}
		// Moving the appointment 30 minutes later overlaps its own current
		// row and nothing else.
		if err := ensureNoBookingConflict(ctx, tx, tech, date, domain.Interval{Start: 630, End: 690}, existingID); err != nil {
			t.Fatalf("self-overlap: err = %v", err)
		}
	})

	t.Run("exclusion still catches other rows", func(t *testing.T) {
		other := existing
		other.ID = uuid.MustParse("0195d000-0000-7000-8000-000000000002")
		other.StartMinutes = 720
		tx := &fakeScheduleTx{active: []domain.Appointment{existing, other}}

		err := ensureNoBookingConflict(ctx, tx, tech, date, domain.Interval{Start: 720, End: 780}, existingID)
		var ce *store.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("err = %v, want ConflictError", err)
		}
		if ce.ExistingID != other.ID {
			t.Fatalf("ExistingID = %s, want %s", ce.ExistingID, other.ID)
		}
	})

	t.Run("idempotent retry skips its own stored row", func(t *testing.T) {
		// A retried create carries the same deterministic id as the row the
		// first attempt inserted. The conflict scan must skip that row so
		// the insert can reach the duplicate-key replay.
		retryID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("slotify:create_appointment:s1:client-req-42"))
		stored := existing
		stored.ID = retryID

		tx := &fakeScheduleTx{active: []domain.Appointment{stored}}
		if err := ensureNoBookingConflict(ctx, tx, tech, date, stored.Interval(), retryID); err != nil {
			t.Fatalf("retry against own row: err = %v", err)
		}

		// A first attempt (no idempotency key, uuid.Nil id) against the same
		// row still conflicts.
		var ce *store.ConflictError
		if err := ensureNoBookingConflict(ctx, tx, tech, date, stored.Interval(), uuid.Nil); !errors.As(err, &ce) {
			t.Fatalf("fresh attempt: err = %v, want ConflictError", err)
		}
	})

	t.Run("read failure propagates", func(t *testing.T) {
		boom := errors.New("connection reset")
		tx := &fakeScheduleTx{listErr: boom}
		if err := ensureNoBookingConflict(ctx, tx, tech, date, domain.Interval{Start: 600, End: 660}, uuid.Nil); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want %v", err, boom)
		}
	})
}

func TestLockKey(t *testing.T) {
	tech := uuid.MustParse("0195d000-0000-7000-8000-00000000000a")
	other := uuid.MustParse("0195d000-0000-7000-8000-00000000000b")
	day := domain.Date{Year: 2026, Month: time.March, Day: 9}
	next := domain.Date{Year: 2026, Month: time.March, Day: 10}

	if lockKey(&tech, "s1", day) == lockKey(&other, "s1", day) {
		t.Fatalf("different technicians share a lock key")
	}
	if lockKey(&tech, "s1", day) == lockKey(&tech, "s1", next) {
		t.Fatalf("different dates share a lock key")
	}
	// Store does not partition assigned bookings: two stores (impossible in
	// practice for one technician) would still serialize per technician.
	if lockKey(&tech, "s1", day) != lockKey(&tech, "s2", day) {
		t.Fatalf("technician lock key must not depend on store")
	}

	if lockKey(nil, "s1", day) == lockKey(nil, "s2", day) {
		t.Fatalf("unassigned bookings in different stores share a lock key")
	}
	if lockKey(nil, "s1", day) == lockKey(&tech, "s1", day) {
		t.Fatalf("unassigned and assigned bookings share a lock key")
	}
}

func TestUUIDPtrEqual(t *testing.T) {
	a := uuid.MustParse("0195d000-0000-7000-8000-00000000000a")
	b := uuid.MustParse("0195d000-0000-7000-8000-00000000000b")
	aCopy := a

	if !uuidPtrEqual(nil, nil) {
		t.Fatalf("nil/nil should be equal")
	}
	if uuidPtrEqual(&a, nil) || uuidPtrEqual(nil, &a) {
		t.Fatalf("nil vs value should differ")
	}
	if !uuidPtrEqual(&a, &aCopy) {
		t.Fatalf("equal values behind distinct pointers should match")
	}
	if uuidPtrEqual(&a, &b) {
		t.Fatalf("distinct values should differ")
	}
}
