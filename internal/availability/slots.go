// Package availability holds the pure slot arithmetic behind
// GetAvailableSlots. No I/O happens here; callers resolve store hours and
// booked intervals first and feed them in.
package availability

import (
	"sort"

	"slotify/internal/domain"
)

// Grid returns every candidate start time on the granularity step that fits a
// booking of length duration inside the window. A duration longer than the
// window yields an empty grid, not an error.
func Grid(window domain.DayWindow, durationMinutes, stepMinutes int) []domain.TimeOfDay {
	if durationMinutes <= 0 || stepMinutes <= 0 {
		return nil
	}
	last := window.Close - domain.TimeOfDay(durationMinutes)
	if last < window.Open {
		return nil
	}

	out := make([]domain.TimeOfDay, 0, int(last-window.Open)/stepMinutes+1)
	for t := window.Open; t <= last; t += domain.TimeOfDay(stepMinutes) {
		out = append(out, t)
	}
	return out
}

// FilterBusy drops candidates whose [c, c+duration) interval overlaps any
// busy interval.
func FilterBusy(candidates []domain.TimeOfDay, durationMinutes int, busy []domain.Interval) []domain.TimeOfDay {
	if len(busy) == 0 {
		return candidates
	}

	out := make([]domain.TimeOfDay, 0, len(candidates))
	for _, c := range candidates {
		slot := domain.Interval{Start: c, End: c + domain.TimeOfDay(durationMinutes)}
		if !overlapsAny(slot, busy) {
			out = append(out, c)
		}
	}
	return out
}

// Union merges per-technician candidate sets for the "any professional"
// query: a start time is available when at least one set contains it. The
// result is ascending and deduplicated.
func Union(sets ...[]domain.TimeOfDay) []domain.TimeOfDay {
	seen := make(map[domain.TimeOfDay]struct{})
	for _, set := range sets {
		for _, t := range set {
			seen[t] = struct{}{}
		}
	}

	out := make([]domain.TimeOfDay, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DropLead removes candidates earlier than the cutoff. Used only when the
// requested date is the caller's current date; future dates keep the full
// grid.
func DropLead(candidates []domain.TimeOfDay, cutoff domain.TimeOfDay) []domain.TimeOfDay {
	out := make([]domain.TimeOfDay, 0, len(candidates))
	for _, c := range candidates {
		if c >= cutoff {
			out = append(out, c)
		}
	}
	return out
}

func overlapsAny(slot domain.Interval, busy []domain.Interval) bool {
	for _, b := range busy {
		if slot.Overlaps(b) {
			return true
		}
	}
	return false
}
