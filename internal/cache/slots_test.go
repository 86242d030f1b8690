package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"slotify/internal/domain"
)

func TestSlotKeyString(t *testing.T) {
	tech := uuid.MustParse("0195d000-0000-7000-8000-00000000000a")
	date := domain.Date{Year: 2026, Month: time.March, Day: 9}

	t.Run("technician scoped", func(t *testing.T) {
		key := SlotKey{StoreID: "s1", Date: date, TechnicianID: &tech, DurationMinutes: 60}
		want := "slots:s1:2026-03-09:0195d000-0000-7000-8000-00000000000a:60"
		if got := key.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	})

	t.Run("any professional", func(t *testing.T) {
		key := SlotKey{StoreID: "s1", Date: date, DurationMinutes: 30}
		want := "slots:s1:2026-03-09:any:30"
		if got := key.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	})

	t.Run("day prefix covers every variant", func(t *testing.T) {
		prefix := dayPrefix("s1", date)
		keys := []SlotKey{
			{StoreID: "s1", Date: date, DurationMinutes: 30},
			{StoreID: "s1", Date: date, TechnicianID: &tech, DurationMinutes: 60},
			{StoreID: "s1", Date: date, DurationMinutes: 90},
		}
		for _, k := range keys {
			if !strings.HasPrefix(k.String(), prefix) {
				t.Fatalf("%q does not start with %q", k.String(), prefix)
			}
		}

		other := domain.Date{Year: 2026, Month: time.March, Day: 10}
		if strings.HasPrefix(SlotKey{StoreID: "s1", Date: other, DurationMinutes: 30}.String(), prefix) {
			t.Fatalf("another day matched the prefix")
		}
	})
}
