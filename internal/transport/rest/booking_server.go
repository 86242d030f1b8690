package rest

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"slotify/internal/domain"
	"slotify/internal/service/booking"
	"slotify/internal/store"
)

type BookingServer struct {
	svc bookingService
	log *slog.Logger
}

type bookingService interface {
	AvailableSlots(ctx context.Context, in booking.SlotsInput) (booking.SlotsResult, error)
	Create(ctx context.Context, in booking.CreateInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, newDate, newTime string) (domain.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	Complete(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListForDay(ctx context.Context, storeID, date string) ([]domain.Appointment, error)
}

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "rest.booking")),
	}
}

func (s *BookingServer) Register(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/v1")
	v1.Get("/stores/:store_id/slots", s.availableSlots)
	v1.Get("/stores/:store_id/appointments", s.listAppointments)
	v1.Post("/appointments", s.createAppointment)
	v1.Post("/appointments/:id/reschedule", s.rescheduleAppointment)
	v1.Post("/appointments/:id/cancel", s.cancelAppointment)
	v1.Post("/appointments/:id/confirm", s.confirmAppointment)
	v1.Post("/appointments/:id/complete", s.completeAppointment)
}

type appointmentPayload struct {
	ID              string           `json:"id"`
	StoreID         string           `json:"store_id"`
	ServiceID       string           `json:"service_id"`
	TechnicianID    *string          `json:"technician_id,omitempty"`
	Date            string           `json:"date"`
	StartMinutes    domain.TimeOfDay `json:"start_minutes"`
	StartTime       string           `json:"start_time"`
	EndMinutes      domain.TimeOfDay `json:"end_minutes"`
	DurationMinutes int              `json:"duration_minutes"`
	Status          string           `json:"status"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type slotsResponse struct {
	Slots  []domain.TimeOfDay `json:"slots"`
	Reason string             `json:"reason,omitempty"`
}

type createAppointmentRequest struct {
	StoreID         string `json:"store_id"`
	ServiceID       string `json:"service_id"`
	TechnicianID    string `json:"technician_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Notes           string `json:"notes"`
}

type rescheduleRequest struct {
	NewDate string `json:"new_date"`
	NewTime string `json:"new_time"`
}

func (s *BookingServer) availableSlots(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "AvailableSlots"))

	in := booking.SlotsInput{
		StoreID: c.Params("store_id"),
		Date:    c.Query("date"),
	}

	duration, err := strconv.Atoi(strings.TrimSpace(c.Query("duration_minutes")))
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_duration"))
		return badRequest(c, "duration_minutes must be an integer")
	}
	in.DurationMinutes = duration

	if raw := strings.TrimSpace(c.Query("technician_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "bad_technician_id"))
			return badRequest(c, "technician_id must be a UUID")
		}
		in.TechnicianID = &id
	}

	res, err := s.svc.AvailableSlots(c.UserContext(), in)
	if err != nil {
		return s.respondError(c, log, err)
	}

	log.Debug("slots listed",
		slog.String("store_id", in.StoreID),
		slog.String("date", in.Date),
		slog.Int("count", len(res.Starts)),
		slog.String("reason", res.Reason),
	)
	return c.JSON(slotsResponse{Slots: res.Starts, Reason: res.Reason})
}

func (s *BookingServer) createAppointment(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "CreateAppointment"))

	var req createAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		return badRequest(c, "invalid json body")
	}

	in := booking.CreateInput{
		StoreID:         strings.TrimSpace(req.StoreID),
		ServiceID:       strings.TrimSpace(req.ServiceID),
		Date:            strings.TrimSpace(req.Date),
		StartTime:       strings.TrimSpace(req.StartTime),
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		IdempotencyKey:  strings.TrimSpace(c.Get("Idempotency-Key")),
	}
	if raw := strings.TrimSpace(req.TechnicianID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			log.Warn("invalid request", slog.String("reason", "bad_technician_id"))
			return badRequest(c, "technician_id must be a UUID")
		}
		in.TechnicianID = &id
	}

	appt, err := s.svc.Create(c.UserContext(), in)
	if err != nil {
		return s.respondError(c, log, err)
	}

	log.Info("appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("store_id", appt.StoreID),
		slog.String("date", appt.Date.String()),
		slog.String("start", appt.StartMinutes.String()),
	)
	return c.Status(fiber.StatusCreated).JSON(toPayload(appt))
}

func (s *BookingServer) rescheduleAppointment(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "RescheduleAppointment"))

	id, err := parseAppointmentID(c)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_appointment_id"))
		return badRequest(c, "appointment id must be a UUID")
	}

	var req rescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_json"))
		return badRequest(c, "invalid json body")
	}

	appt, err := s.svc.Reschedule(c.UserContext(), id, strings.TrimSpace(req.NewDate), strings.TrimSpace(req.NewTime))
	if err != nil {
		return s.respondError(c, log, err)
	}

	log.Info("appointment rescheduled",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("date", appt.Date.String()),
		slog.String("start", appt.StartMinutes.String()),
	)
	return c.JSON(toPayload(appt))
}

func (s *BookingServer) cancelAppointment(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "CancelAppointment"))

	id, err := parseAppointmentID(c)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_appointment_id"))
		return badRequest(c, "appointment id must be a UUID")
	}

	appt, err := s.svc.Cancel(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, log, err)
	}

	log.Info("appointment cancelled", slog.String("appointment_id", appt.ID.String()))
	return c.JSON(toPayload(appt))
}

func (s *BookingServer) confirmAppointment(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "ConfirmAppointment"))

	id, err := parseAppointmentID(c)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_appointment_id"))
		return badRequest(c, "appointment id must be a UUID")
	}

	appt, err := s.svc.Confirm(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, log, err)
	}

	log.Info("appointment confirmed", slog.String("appointment_id", appt.ID.String()))
	return c.JSON(toPayload(appt))
}

func (s *BookingServer) completeAppointment(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "CompleteAppointment"))

	id, err := parseAppointmentID(c)
	if err != nil {
		log.Warn("invalid request", slog.String("reason", "bad_appointment_id"))
		return badRequest(c, "appointment id must be a UUID")
	}

	appt, err := s.svc.Complete(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, log, err)
	}

	log.Info("appointment completed", slog.String("appointment_id", appt.ID.String()))
	return c.JSON(toPayload(appt))
}

func (s *BookingServer) listAppointments(c *fiber.Ctx) error {
	log := s.log.With(slog.String("handler", "ListAppointments"))

	storeID := c.Params("store_id")
	date := c.Query("date")

	appts, err := s.svc.ListForDay(c.UserContext(), storeID, date)
	if err != nil {
		return s.respondError(c, log, err)
	}

	out := make([]appointmentPayload, 0, len(appts))
	for i := range appts {
		out = append(out, toPayload(appts[i]))
	}

	log.Debug("appointments listed",
		slog.String("store_id", storeID),
		slog.String("date", date),
		slog.Int("count", len(out)),
	)
	return c.JSON(out)
}

// respondError is the single mapping from the service error taxonomy to HTTP.
// Conflicts always carry the blocking interval so the UI can propose
// next_free without another round trip.
func (s *BookingServer) respondError(c *fiber.Ctx, log *slog.Logger, err error) error {
	var conflictErr *store.ConflictError
	if errors.As(err, &conflictErr) {
		log.Info("booking conflict",
			slog.String("existing_start", conflictErr.ExistingStart.String()),
			slog.String("existing_end", conflictErr.ExistingEnd.String()),
		)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "time slot already booked",
			"code":  "conflict",
			"conflict": fiber.Map{
				"existing_start": conflictErr.ExistingStart,
				"existing_end":   conflictErr.ExistingEnd,
				"next_free":      conflictErr.NextFree(),
			},
		})
	}

	var vErr *booking.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return errorJSON(c, fiber.StatusBadRequest, "invalid_argument", vErr.Error())
	case errors.Is(err, domain.ErrInvalidDateFormat):
		log.Warn("invalid request", slog.Any("err", err))
		return errorJSON(c, fiber.StatusBadRequest, "invalid_date_format", err.Error())
	case errors.Is(err, domain.ErrInvalidTimeFormat):
		log.Warn("invalid request", slog.Any("err", err))
		return errorJSON(c, fiber.StatusBadRequest, "invalid_time_format", err.Error())
	case errors.Is(err, booking.ErrPastTime):
		log.Info("past time rejected")
		return errorJSON(c, fiber.StatusUnprocessableEntity, "past_time", "requested time is too soon or in the past")
	case errors.Is(err, store.ErrStoreClosed):
		return errorJSON(c, fiber.StatusUnprocessableEntity, "store_closed", "store is closed on that date")
	case errors.Is(err, store.ErrHoursNotConfigured):
		return errorJSON(c, fiber.StatusUnprocessableEntity, "hours_not_configured", "store has no configured hours")
	case errors.Is(err, store.ErrNotFound):
		log.Info("appointment not found")
		return errorJSON(c, fiber.StatusNotFound, "not_found", "appointment not found")
	case errors.Is(err, store.ErrIdempotencyConflict):
		log.Info("idempotency key reuse")
		return errorJSON(c, fiber.StatusConflict, "idempotency_conflict", "this request key was already used for a different booking")
	case errors.Is(err, store.ErrStaleStatus):
		log.Info("stale status transition")
		return errorJSON(c, fiber.StatusConflict, "stale_status", "appointment changed concurrently, re-read and retry")
	default:
		log.Error("request failed", slog.Any("err", err))
		return errorJSON(c, fiber.StatusInternalServerError, "internal", "internal error")
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return errorJSON(c, fiber.StatusBadRequest, "invalid_argument", msg)
}

func errorJSON(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg, "code": code})
}

func parseAppointmentID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func toPayload(a domain.Appointment) appointmentPayload {
	p := appointmentPayload{
		ID:              a.ID.String(),
		StoreID:         a.StoreID,
		ServiceID:       a.ServiceID,
		Date:            a.Date.String(),
		StartMinutes:    a.StartMinutes,
		StartTime:       a.StartMinutes.String(),
		EndMinutes:      a.End(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.TechnicianID != nil {
		id := a.TechnicianID.String()
		p.TechnicianID = &id
	}
	return p
}
