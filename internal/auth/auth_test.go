package auth

import (
	"context"
	"testing"
)

func TestMonitor_FiresOncePerTransition(t *testing.T) {
	m := NewMonitor()
	var got []Signal
	m.Notify(func(s Signal) { got = append(got, s) })

	m.HandleEvent(Event{Present: true, UserID: "u1"})
	m.HandleEvent(Event{Present: true, UserID: "u1"}) // duplicate, dropped
	m.HandleEvent(Event{Present: true, UserID: "u1"}) // duplicate, dropped
	m.HandleEvent(Event{Present: false})
	m.HandleEvent(Event{Present: false}) // duplicate, dropped

	want := []Signal{
		{Present: true, UserID: "u1"},
		{Present: false},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d signals, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("signal[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMonitor_UserSwitchIsATransition(t *testing.T) {
	m := NewMonitor()
	var got []Signal
	m.Notify(func(s Signal) { got = append(got, s) })

	m.HandleEvent(Event{Present: true, UserID: "u1"})
	m.HandleEvent(Event{Present: true, UserID: "u2"})

	if len(got) != 2 {
		t.Fatalf("got %d signals, want 2", len(got))
	}
	if got[1].UserID != "u2" || !got[1].Present {
		t.Errorf("signal[1] = %+v, want present u2", got[1])
	}
}

func TestMonitor_PresentWithoutUserIDIsAbsent(t *testing.T) {
	m := NewMonitor()
	var got []Signal
	m.Notify(func(s Signal) { got = append(got, s) })

	m.HandleEvent(Event{Present: true, UserID: "u1"})
	m.HandleEvent(Event{Present: true, UserID: ""})

	if len(got) != 2 {
		t.Fatalf("got %d signals, want 2", len(got))
	}
	if got[1].Present {
		t.Errorf("signal[1] = %+v, want absent", got[1])
	}
}

func TestLocal_SignInSignOut(t *testing.T) {
	ctx := context.Background()
	provider := NewLocal()
	m := NewMonitor()
	var got []Signal
	m.Notify(func(s Signal) { got = append(got, s) })
	m.Attach(provider)

	if err := provider.SignIn(ctx, "u1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if err := provider.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}
	// Signing out twice is a no-op and emits nothing new.
	if err := provider.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() twice error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d signals, want 2: %+v", len(got), got)
	}
	if !got[0].Present || got[0].UserID != "u1" {
		t.Errorf("signal[0] = %+v, want present u1", got[0])
	}
	if got[1].Present {
		t.Errorf("signal[1] = %+v, want absent", got[1])
	}
}

func TestLocal_SignInEmptyUserID(t *testing.T) {
	if err := NewLocal().SignIn(context.Background(), "  "); err == nil {
		t.Error("SignIn() accepted blank user id")
	}
}
