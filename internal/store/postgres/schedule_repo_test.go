package postgres

import (
	"errors"
	"testing"

	"slotify/internal/domain"
	"slotify/internal/store"
)

func TestWindowFromClosure(t *testing.T) {
	open := domain.TimeOfDay(600)
	close := domain.TimeOfDay(840)

	t.Run("closed holiday", func(t *testing.T) {
		_, err := windowFromClosure(domain.StoreClosure{IsClosed: true})
		if !errors.Is(err, store.ErrStoreClosed) {
			t.Fatalf("err = %v, want ErrStoreClosed", err)
		}
	})

	t.Run("closure without hours means shut", func(t *testing.T) {
		_, err := windowFromClosure(domain.StoreClosure{OpenMinutes: &open})
		if !errors.Is(err, store.ErrStoreClosed) {
			t.Fatalf("err = %v, want ErrStoreClosed", err)
		}
	})

	t.Run("exceptional hours override the weekly row", func(t *testing.T) {
		w, err := windowFromClosure(domain.StoreClosure{OpenMinutes: &open, CloseMinutes: &close})
		if err != nil {
			t.Fatalf("err = %v", err)
		}
		if w.Open != 600 || w.Close != 840 {
			t.Fatalf("window = %+v, want 600-840", w)
		}
	})
}
