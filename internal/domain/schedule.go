package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StoreHours is one weekly row per (store, weekday). Owned by store
// management; the booking core only reads it.
type StoreHours struct {
	bun.BaseModel `bun:"table:store_hours"`

	ID           uuid.UUID `bun:"id,pk,type:uuid"`
	StoreID      string    `bun:"store_id,notnull"`
	DayOfWeek    int       `bun:"day_of_week,notnull"` // Monday=0 .. Sunday=6
	OpenMinutes  TimeOfDay `bun:"open_minutes"`
	CloseMinutes TimeOfDay `bun:"close_minutes"`
	IsClosed     bool      `bun:"is_closed,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// StoreClosure overrides the weekly row for one exact date: a holiday
// closure, or exceptional hours when Open/Close are set.
type StoreClosure struct {
	bun.BaseModel `bun:"table:store_closures"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	StoreID      string     `bun:"store_id,notnull"`
	Date         Date       `bun:"date,notnull"`
	IsClosed     bool       `bun:"is_closed,notnull"`
	OpenMinutes  *TimeOfDay `bun:"open_minutes"`
	CloseMinutes *TimeOfDay `bun:"close_minutes"`
	CreatedAt    time.Time  `bun:"created_at,notnull"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull"`
}

type Technician struct {
	bun.BaseModel `bun:"table:technicians"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	StoreID   string    `bun:"store_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Active    bool      `bun:"active,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// DayWindow is a store's resolved open interval for one calendar date.
type DayWindow struct {
	Open  TimeOfDay
	Close TimeOfDay
}

func (w DayWindow) Interval() Interval {
	return Interval{Start: w.Open, End: w.Close}
}

func (h *StoreHours) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &h.ID, &h.CreatedAt, &h.UpdatedAt)
}

func (c *StoreClosure) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (t *Technician) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampModel(query, &t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func stampModel(query bun.Query, id *uuid.UUID, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if *id == uuid.Nil {
			v, err := uuid.NewV7()
			if err != nil {
				return err
			}
			*id = v
		}
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
