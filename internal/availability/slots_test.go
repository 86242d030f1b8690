package availability

import (
	"reflect"
	"testing"

	"slotify/internal/domain"
)

func mins(ts ...int) []domain.TimeOfDay {
	out := make([]domain.TimeOfDay, len(ts))
	for i, t := range ts {
		out[i] = domain.TimeOfDay(t)
	}
	return out
}

func TestGrid(t *testing.T) {
	workday := domain.DayWindow{Open: 540, Close: 1080} // 09:00-18:00

	t.Run("full day hour slots", func(t *testing.T) {
		got := Grid(workday, 60, 30)
		if len(got) != 18 {
			t.Fatalf("len = %d, want 18", len(got))
		}
		if got[0] != 540 {
			t.Fatalf("first = %d, want 540", got[0])
		}
		// Last slot must still fit before close: 17:00-18:00.
		if got[len(got)-1] != 1020 {
			t.Fatalf("last = %d, want 1020", got[len(got)-1])
		}
	})

	t.Run("duration longer than window", func(t *testing.T) {
		if got := Grid(domain.DayWindow{Open: 540, Close: 600}, 90, 30); len(got) != 0 {
			t.Fatalf("got %v, want empty", got)
		}
	})

	t.Run("duration exactly fills window", func(t *testing.T) {
		got := Grid(domain.DayWindow{Open: 540, Close: 600}, 60, 30)
		if !reflect.DeepEqual(got, mins(540)) {
			t.Fatalf("got %v, want [540]", got)
		}
	})

	t.Run("non-positive inputs", func(t *testing.T) {
		if got := Grid(workday, 0, 30); got != nil {
			t.Fatalf("zero duration: got %v", got)
		}
		if got := Grid(workday, 60, 0); got != nil {
			t.Fatalf("zero step: got %v", got)
		}
	})
}

func TestFilterBusy(t *testing.T) {
	workday := domain.DayWindow{Open: 540, Close: 1080}
	grid := Grid(workday, 60, 30)

	t.Run("booked hour removes overlapping starts", func(t *testing.T) {
		// 10:00-11:00 booked: a 60-minute slot starting at 09:30, 10:00 or
		// 10:30 would overlap it. 09:00 and 11:00 stay.
		got := FilterBusy(grid, 60, []domain.Interval{{Start: 600, End: 660}})
		for _, gone := range mins(570, 600, 630) {
			for _, c := range got {
				if c == gone {
					t.Fatalf("start %d should have been filtered", gone)
				}
			}
		}
		if got[0] != 540 || got[1] != 660 {
			t.Fatalf("got %v, want 540 then 660", got[:2])
		}
		if len(got) != 15 {
			t.Fatalf("len = %d, want 15", len(got))
		}
	})

	t.Run("touching bookings do not block", func(t *testing.T) {
		got := FilterBusy(mins(540, 600), 60, []domain.Interval{{Start: 600, End: 660}})
		if !reflect.DeepEqual(got, mins(540)) {
			t.Fatalf("got %v, want [540]", got)
		}
	})

	t.Run("no busy intervals keeps all", func(t *testing.T) {
		got := FilterBusy(grid, 60, nil)
		if !reflect.DeepEqual(got, grid) {
			t.Fatalf("got %v, want unchanged grid", got)
		}
	})
}

func TestUnion(t *testing.T) {
	got := Union(mins(540, 600), mins(570, 600), mins(600))
	if !reflect.DeepEqual(got, mins(540, 570, 600)) {
		t.Fatalf("Union = %v, want [540 570 600]", got)
	}

	if got := Union(); len(got) != 0 {
		t.Fatalf("Union() = %v, want empty", got)
	}
}

func TestDropLead(t *testing.T) {
	grid := mins(540, 570, 600, 630)

	t.Run("drops earlier starts", func(t *testing.T) {
		got := DropLead(grid, 600)
		if !reflect.DeepEqual(got, mins(600, 630)) {
			t.Fatalf("got %v, want [600 630]", got)
		}
	})

	t.Run("start equal to cutoff is kept", func(t *testing.T) {
		got := DropLead(mins(600), 600)
		if !reflect.DeepEqual(got, mins(600)) {
			t.Fatalf("got %v, want [600]", got)
		}
	})

	t.Run("cutoff past all starts", func(t *testing.T) {
		if got := DropLead(grid, 1440); len(got) != 0 {
			t.Fatalf("got %v, want empty", got)
		}
	})
}
