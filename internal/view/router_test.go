package view

import (
	"errors"
	"testing"

	"guadagni/internal/core"
)

func TestRouter_InitialState(t *testing.T) {
	if got := NewRouter().Current(); got != Welcome {
		t.Errorf("initial view = %s, want WELCOME", got)
	}
}

func TestRouter_Transitions(t *testing.T) {
	ready := Guards{SnapshotReady: true, HasRecordForToday: true}

	tests := []struct {
		name    string
		path    []Event
		guards  Guards
		want    View
		wantErr error
	}{
		{"welcome to login", []Event{NavigateLogin}, ready, Login, nil},
		{"welcome to register", []Event{NavigateRegister}, ready, Register, nil},
		{"register back to login", []Event{NavigateRegister, Registered}, ready, Login, nil},
		{"login to today", []Event{NavigateLogin, LoginSucceeded}, ready, Today, nil},
		{"today to history", []Event{NavigateLogin, LoginSucceeded, SelectHistory}, ready, History, nil},
		{"today to fixed costs", []Event{NavigateLogin, LoginSucceeded, SelectFixedCosts}, ready, FixedCosts, nil},
		{"today to report", []Event{NavigateLogin, LoginSucceeded, ViewReport}, ready, Report, nil},
		{"report back to today", []Event{NavigateLogin, LoginSucceeded, ViewReport, Back}, ready, Today, nil},
		{"login back to welcome", []Event{NavigateLogin, Back}, ready, Welcome, nil},
		{"history back to today", []Event{NavigateLogin, LoginSucceeded, SelectHistory, Back}, ready, Today, nil},
		{"login blocked without snapshot", []Event{NavigateLogin, LoginSucceeded}, Guards{}, Login, ErrSnapshotNotReady},
		{"report blocked without today record", []Event{NavigateLogin, LoginSucceeded, ViewReport}, Guards{SnapshotReady: true}, Today, ErrNoRecordForToday},
		{"history unreachable from welcome", []Event{SelectHistory}, ready, Welcome, ErrInvalidTransition},
		{"report unreachable from history", []Event{NavigateLogin, LoginSucceeded, SelectHistory, ViewReport}, ready, History, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter()
			var lastErr error
			for _, ev := range tt.path {
				_, lastErr = r.Apply(ev, tt.guards)
			}
			if got := r.Current(); got != tt.want {
				t.Errorf("view = %s, want %s", got, tt.want)
			}
			if tt.wantErr == nil && lastErr != nil {
				t.Errorf("unexpected error: %v", lastErr)
			}
			if tt.wantErr != nil && !errors.Is(lastErr, tt.wantErr) {
				t.Errorf("error = %v, want %v", lastErr, tt.wantErr)
			}
		})
	}
}

func TestRouter_SelectDayCarriesDate(t *testing.T) {
	r := NewRouter()
	guards := Guards{SnapshotReady: true}
	r.Apply(NavigateLogin, guards)
	r.Apply(LoginSucceeded, guards)
	r.Apply(SelectHistory, guards)

	day := core.NewDate(2024, 5, 1)
	got, err := r.ApplySelectDay(day, guards)
	if err != nil {
		t.Fatalf("ApplySelectDay() error = %v", err)
	}
	if got != DayDetail {
		t.Errorf("view = %s, want DAY_DETAIL", got)
	}
	if !r.SelectedDate().Equal(day) {
		t.Errorf("selectedDate = %s, want %s", r.SelectedDate(), day)
	}

	// Leaving the detail view clears the selection.
	r.Apply(Back, guards)
	if !r.SelectedDate().IsZero() {
		t.Errorf("selectedDate = %s after leaving detail, want zero", r.SelectedDate())
	}
}

func TestRouter_SelectDayRejectsZeroDate(t *testing.T) {
	r := NewRouter()
	guards := Guards{SnapshotReady: true}
	r.Apply(NavigateLogin, guards)
	r.Apply(LoginSucceeded, guards)
	r.Apply(SelectHistory, guards)

	if _, err := r.ApplySelectDay(core.Date{}, guards); !errors.Is(err, core.ErrInvalidDate) {
		t.Errorf("ApplySelectDay(zero) error = %v, want ErrInvalidDate", err)
	}
	if r.Current() != History {
		t.Errorf("view = %s, want HISTORY unchanged", r.Current())
	}
}

func TestRouter_SessionAbsentOverridesEverything(t *testing.T) {
	guards := Guards{SnapshotReady: true, HasRecordForToday: true}
	states := [][]Event{
		{},
		{NavigateLogin},
		{NavigateLogin, LoginSucceeded},
		{NavigateLogin, LoginSucceeded, SelectHistory},
		{NavigateLogin, LoginSucceeded, ViewReport},
	}

	for _, path := range states {
		r := NewRouter()
		for _, ev := range path {
			r.Apply(ev, guards)
		}
		got, err := r.Apply(SessionAbsent, Guards{})
		if err != nil {
			t.Fatalf("SessionAbsent from %v error = %v", path, err)
		}
		if got != Welcome {
			t.Errorf("SessionAbsent from %v = %s, want WELCOME", path, got)
		}
	}
}
