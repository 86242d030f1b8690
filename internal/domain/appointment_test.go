package domain

import "testing"

func TestStatusCanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		want     bool
	}{
		{AppointmentStatusPending, AppointmentStatusConfirmed, true},
		{AppointmentStatusPending, AppointmentStatusCancelled, true},
		{AppointmentStatusPending, AppointmentStatusCompleted, false},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted, true},
		{AppointmentStatusConfirmed, AppointmentStatusCancelled, true},
		{AppointmentStatusConfirmed, AppointmentStatusPending, false},
		{AppointmentStatusCompleted, AppointmentStatusCancelled, false},
		{AppointmentStatusCompleted, AppointmentStatusConfirmed, false},
		{AppointmentStatusCancelled, AppointmentStatusConfirmed, false},
		{AppointmentStatusCancelled, AppointmentStatusPending, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusActive(t *testing.T) {
	for _, s := range []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed} {
		if !s.Active() {
			t.Errorf("%s.Active() = false, want true", s)
		}
	}
	for _, s := range []AppointmentStatus{AppointmentStatusCompleted, AppointmentStatusCancelled} {
		if s.Active() {
			t.Errorf("%s.Active() = true, want false", s)
		}
	}
}

func TestAppointmentInterval(t *testing.T) {
	a := Appointment{StartMinutes: 600, DurationMinutes: 90}
	if got := a.End(); got != 690 {
		t.Fatalf("End() = %d, want 690", got)
	}
	iv := a.Interval()
	if iv.Start != 600 || iv.End != 690 {
		t.Fatalf("Interval() = %+v, want {600 690}", iv)
	}
}
