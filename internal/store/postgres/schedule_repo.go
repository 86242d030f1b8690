package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"slotify/internal/domain"
	"slotify/internal/store"
)

// ScheduleRepo reads store hours and the technician roster. Both tables are
// owned by store management; this repo never writes them.
type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) ResolveDayWindow(ctx context.Context, storeID string, date domain.Date) (domain.DayWindow, error) {
	var closure domain.StoreClosure
	err := r.db.NewSelect().
		Model(&closure).
		Where("store_id = ?", storeID).
		Where("date = ?", date).
		Limit(1).
		Scan(ctx)
	switch {
	case err == nil:
		return windowFromClosure(closure)
	case !errors.Is(err, sql.ErrNoRows):
		return domain.DayWindow{}, err
	}

	var hours domain.StoreHours
	err = r.db.NewSelect().
		Model(&hours).
		Where("store_id = ?", storeID).
		Where("day_of_week = ?", date.Weekday()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DayWindow{}, store.ErrHoursNotConfigured
		}
		return domain.DayWindow{}, err
	}

	if hours.IsClosed {
		return domain.DayWindow{}, store.ErrStoreClosed
	}
	return domain.DayWindow{Open: hours.OpenMinutes, Close: hours.CloseMinutes}, nil
}

// windowFromClosure applies an exact-date override: a closure row without
// exceptional hours means the store is shut that day.
func windowFromClosure(c domain.StoreClosure) (domain.DayWindow, error) {
	if c.IsClosed || c.OpenMinutes == nil || c.CloseMinutes == nil {
		return domain.DayWindow{}, store.ErrStoreClosed
	}
	return domain.DayWindow{Open: *c.OpenMinutes, Close: *c.CloseMinutes}, nil
}

func (r *ScheduleRepo) ListActiveTechnicians(ctx context.Context, storeID string) ([]uuid.UUID, error) {
	var rows []domain.Technician
	err := r.db.NewSelect().
		Model(&rows).
		Where("store_id = ?", storeID).
		Where("active").
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ID)
	}
	return out, nil
}
