package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"slotify/internal/availability"
	"slotify/internal/cache"
	"slotify/internal/domain"
	"slotify/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// ErrPastTime marks a requested start earlier than now plus the minimum lead
// on the current date. Recoverable: the caller picks another slot.
var ErrPastTime = errors.New("requested time is in the past")

const (
	DefaultGranularityMinutes = 30
	DefaultMinLeadMinutes     = 30

	ReasonClosed             = "closed"
	ReasonHoursNotConfigured = "hours_not_configured"
)

type Config struct {
	GranularityMinutes int
	MinLeadMinutes     int
	Now                func() time.Time
	Logger             *slog.Logger
}

type Service struct {
	repo        store.BookingRepository
	schedule    store.ScheduleDirectory
	slots       cache.SlotCache
	granularity int
	lead        int
	now         func() time.Time
	log         *slog.Logger
}

func NewService(repo store.BookingRepository, schedule store.ScheduleDirectory, slots cache.SlotCache, cfg Config) *Service {
	if slots == nil {
		slots = cache.NopSlotCache{}
	}
	if cfg.GranularityMinutes <= 0 {
		cfg.GranularityMinutes = DefaultGranularityMinutes
	}
	if cfg.MinLeadMinutes <= 0 {
		cfg.MinLeadMinutes = DefaultMinLeadMinutes
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		schedule:    schedule,
		slots:       slots,
		granularity: cfg.GranularityMinutes,
		lead:        cfg.MinLeadMinutes,
		now:         cfg.Now,
		log:         cfg.Logger.With(slog.String("component", "service.booking")),
	}
}

type SlotsInput struct {
	StoreID         string
	Date            string
	DurationMinutes int
	TechnicianID    *uuid.UUID
}

type SlotsResult struct {
	Starts []domain.TimeOfDay
	// Reason distinguishes the two empty outcomes that are not errors:
	// "closed" and "hours_not_configured".
	Reason string
}

func (s *Service) AvailableSlots(ctx context.Context, in SlotsInput) (SlotsResult, error) {
	if in.StoreID == "" {
		return SlotsResult{}, validationError("store_id is required")
	}
	if in.DurationMinutes <= 0 {
		return SlotsResult{}, validationError("duration_minutes must be positive")
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return SlotsResult{}, err
	}

	key := cache.SlotKey{
		StoreID:         in.StoreID,
		Date:            date,
		TechnicianID:    in.TechnicianID,
		DurationMinutes: in.DurationMinutes,
	}
	if entry, ok, err := s.slots.Get(ctx, key); err != nil {
		s.log.Warn("slot cache read failed", slog.Any("err", err))
	} else if ok {
		return SlotsResult{Starts: entry.Starts, Reason: entry.Reason}, nil
	}

	res, err := s.computeSlots(ctx, in.StoreID, date, in.DurationMinutes, in.TechnicianID)
	if err != nil {
		return SlotsResult{}, err
	}

	if err := s.slots.Set(ctx, key, cache.Entry{Starts: res.Starts, Reason: res.Reason}); err != nil {
		s.log.Warn("slot cache write failed", slog.Any("err", err))
	}
	return res, nil
}

func (s *Service) computeSlots(ctx context.Context, storeID string, date domain.Date, duration int, technicianID *uuid.UUID) (SlotsResult, error) {
	window, err := s.schedule.ResolveDayWindow(ctx, storeID, date)
	if err != nil {
		// Closed and unconfigured are valid "no availability" results.
		if errors.Is(err, store.ErrStoreClosed) {
			return SlotsResult{Starts: []domain.TimeOfDay{}, Reason: ReasonClosed}, nil
		}
		if errors.Is(err, store.ErrHoursNotConfigured) {
			return SlotsResult{Starts: []domain.TimeOfDay{}, Reason: ReasonHoursNotConfigured}, nil
		}
		return SlotsResult{}, err
	}

	grid := availability.Grid(window, duration, s.granularity)

	var starts []domain.TimeOfDay
	switch {
	case technicianID != nil:
		busy, err := s.repo.ListBookedIntervals(ctx, *technicianID, date)
		if err != nil {
			return SlotsResult{}, err
		}
		starts = availability.FilterBusy(grid, duration, busy)
	default:
		technicians, err := s.schedule.ListActiveTechnicians(ctx, storeID)
		if err != nil {
			return SlotsResult{}, err
		}
		if len(technicians) == 0 {
			// Staffless store: fall back to the hours-only grid and defer
			// staff assignment to the booking itself.
			starts = grid
			break
		}
		sets := make([][]domain.TimeOfDay, 0, len(technicians))
		for _, id := range technicians {
			busy, err := s.repo.ListBookedIntervals(ctx, id, date)
			if err != nil {
				return SlotsResult{}, err
			}
			sets = append(sets, availability.FilterBusy(grid, duration, busy))
		}
		starts = availability.Union(sets...)
	}

	now := s.now()
	if date == domain.DateOf(now) {
		starts = availability.DropLead(starts, s.leadCutoff(now))
	}

	if starts == nil {
		starts = []domain.TimeOfDay{}
	}
	return SlotsResult{Starts: starts}, nil
}

type CreateInput struct {
	StoreID         string
	ServiceID       string
	TechnicianID    *uuid.UUID
	Date            string
	StartTime       string
	DurationMinutes int
	Notes           string
	IdempotencyKey  string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.StoreID == "" {
		return domain.Appointment{}, validationError("store_id is required")
	}
	if in.ServiceID == "" {
		return domain.Appointment{}, validationError("service_id is required")
	}
	date, err := domain.ParseDate(in.Date)
	if err != nil {
		return domain.Appointment{}, err
	}
	start, err := domain.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return domain.Appointment{}, err
	}
	if in.DurationMinutes <= 0 {
		return domain.Appointment{}, validationError("duration_minutes must be positive")
	}
	if in.DurationMinutes > domain.MinutesPerDay {
		return domain.Appointment{}, validationError("duration too long")
	}

	window, err := s.schedule.ResolveDayWindow(ctx, in.StoreID, date)
	if err != nil {
		return domain.Appointment{}, err
	}
	end := start + domain.TimeOfDay(in.DurationMinutes)
	if start < window.Open || end > window.Close {
		return domain.Appointment{}, validationError("requested time is outside store hours")
	}

	if err := s.checkLeadTime(date, start); err != nil {
		return domain.Appointment{}, err
	}

	status := domain.AppointmentStatusConfirmed
	if in.TechnicianID == nil {
		// Deferred staff assignment: the booking holds no technician
		// interval yet, so it stays pending until staff is assigned.
		status = domain.AppointmentStatusPending
	}

	appt := domain.Appointment{
		StoreID:         in.StoreID,
		ServiceID:       in.ServiceID,
		TechnicianID:    in.TechnicianID,
		Date:            date,
		StartMinutes:    start,
		DurationMinutes: in.DurationMinutes,
		Status:          status,
		Notes:           in.Notes,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("slotify:create_appointment:"+in.StoreID+":"+key))
	}

	out, err := s.repo.Create(ctx, appt)
	if err != nil {
		return domain.Appointment{}, err
	}
	s.invalidateDay(ctx, out.StoreID, out.Date)
	return out, nil
}

func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate, newTime string) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	date, err := domain.ParseDate(newDate)
	if err != nil {
		return domain.Appointment{}, err
	}
	start, err := domain.ParseTimeOfDay(newTime)
	if err != nil {
		return domain.Appointment{}, err
	}

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !cur.Status.Active() {
		return domain.Appointment{}, validationError("only pending or confirmed appointments can be rescheduled")
	}

	window, err := s.schedule.ResolveDayWindow(ctx, cur.StoreID, date)
	if err != nil {
		return domain.Appointment{}, err
	}
	end := start + domain.TimeOfDay(cur.DurationMinutes)
	if start < window.Open || end > window.Close {
		return domain.Appointment{}, validationError("requested time is outside store hours")
	}
	if err := s.checkLeadTime(date, start); err != nil {
		return domain.Appointment{}, err
	}

	out, err := s.repo.Reschedule(ctx, id, date, start)
	if err != nil {
		return domain.Appointment{}, err
	}
	s.invalidateDay(ctx, cur.StoreID, cur.Date)
	if out.Date != cur.Date {
		s.invalidateDay(ctx, out.StoreID, out.Date)
	}
	return out, nil
}

// Cancel is idempotent: cancelling an already-cancelled appointment returns
// it unchanged with no write.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if cur.Status == domain.AppointmentStatusCancelled {
		return cur, nil
	}
	if !cur.Status.CanTransitionTo(domain.AppointmentStatusCancelled) {
		return domain.Appointment{}, validationError("completed appointment cannot be cancelled")
	}

	out, err := s.repo.UpdateStatus(ctx, id, cur.Status, domain.AppointmentStatusCancelled)
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			// Lost a race with another writer. If that writer cancelled,
			// this call still succeeds idempotently.
			fresh, freshErr := s.repo.Get(ctx, id)
			if freshErr == nil && fresh.Status == domain.AppointmentStatusCancelled {
				return fresh, nil
			}
		}
		return domain.Appointment{}, err
	}
	s.invalidateDay(ctx, out.StoreID, out.Date)
	return out, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.AppointmentStatusConfirmed)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	out, err := s.transition(ctx, id, domain.AppointmentStatusCompleted)
	if err != nil {
		return domain.Appointment{}, err
	}
	// Completed rows stop blocking slots.
	s.invalidateDay(ctx, out.StoreID, out.Date)
	return out, nil
}

func (s *Service) ListForDay(ctx context.Context, storeID, dateStr string) ([]domain.Appointment, error) {
	if storeID == "" {
		return nil, validationError("store_id is required")
	}
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return nil, err
	}
	return s.repo.ListForStoreDate(ctx, storeID, date)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.AppointmentStatus) (domain.Appointment, error) {
	if id == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !cur.Status.CanTransitionTo(to) {
		return domain.Appointment{}, validationError("cannot transition from " + string(cur.Status) + " to " + string(to))
	}
	return s.repo.UpdateStatus(ctx, id, cur.Status, to)
}

func (s *Service) checkLeadTime(date domain.Date, start domain.TimeOfDay) error {
	now := s.now()
	today := domain.DateOf(now)
	if date.Before(today) {
		return ErrPastTime
	}
	if date == today && start < s.leadCutoff(now) {
		return ErrPastTime
	}
	return nil
}

func (s *Service) leadCutoff(now time.Time) domain.TimeOfDay {
	return domain.TimeOfDay(now.Hour()*60+now.Minute()) + domain.TimeOfDay(s.lead)
}

func (s *Service) invalidateDay(ctx context.Context, storeID string, date domain.Date) {
	if err := s.slots.InvalidateDay(ctx, storeID, date); err != nil {
		s.log.Warn("slot cache invalidation failed",
			slog.Any("err", err),
			slog.String("store_id", storeID),
			slog.String("date", date.String()),
		)
	}
}
