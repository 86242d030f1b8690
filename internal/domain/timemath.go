package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDateFormat = errors.New("invalid date format, want YYYY-MM-DD")
	ErrInvalidTimeFormat = errors.New("invalid time format, want HH:MM or HH:MM:SS")
)

// TimeOfDay is a store-local wall-clock time expressed as minutes since
// midnight. All slot arithmetic happens in this unit; no timezone conversion
// is applied beyond what the caller supplies.
type TimeOfDay int

const MinutesPerDay = 24 * 60

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS". Seconds are truncated.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	layout := "15:04"
	if len(s) == 8 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Date is a store-local calendar day. It deliberately carries no location:
// the booking core treats every store as a single local clock.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, ErrInvalidDateFormat
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf truncates a wall-clock instant to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Weekday maps the day to Monday=0 .. Sunday=6.
func (d Date) Weekday() int {
	wd := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
	return (int(wd) + 6) % 7
}

// Value stores the date as a UTC-midnight timestamp, matching a postgres
// date column.
func (d Date) Value() (driver.Value, error) {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return ErrInvalidDateFormat
	}
	parsed, err := ParseDate(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Interval is a half-open [Start, End) span within one day. It is derived
// per query and never persisted.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether the two half-open intervals intersect. Touching
// endpoints do not conflict.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}
