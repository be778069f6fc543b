// Package auth observes the external authentication provider and turns
// its session-change stream into normalized signals. It never fetches
// data; loading is the snapshot loader's job.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Event is a raw session-change notification from a provider: either a
// valid session with a user identifier, or none.
type Event struct {
	Present bool
	UserID  string
}

// Signal is the normalized form forwarded to interested components, at
// most once per actual session transition.
type Signal struct {
	Present bool
	UserID  string
}

// Provider is the external authentication collaborator.
type Provider interface {
	// Subscribe registers a handler for session-change events. Handlers
	// are invoked sequentially in event order.
	Subscribe(handler func(Event))
	// SignOut ends the current session; the provider emits an absent
	// event as a consequence.
	SignOut(ctx context.Context) error
}

// SessionError reports a provider failure. It is never fatal: the system
// stays signed out until the provider recovers.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session provider: %v", e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// Monitor deduplicates provider events into one signal per transition.
// Providers may re-emit "present" for the same user (token refreshes do
// this); those are dropped here so downstream work is not re-triggered.
type Monitor struct {
	mu      sync.Mutex
	present bool
	userID  string
	sinks   []func(Signal)
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

// Notify registers a sink for normalized session signals. Must be called
// before Attach.
func (m *Monitor) Notify(sink func(Signal)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks = append(m.sinks, sink)
}

// Attach subscribes the monitor to a provider's event stream. Subscribes
// once; calling it with multiple providers merges their streams.
func (m *Monitor) Attach(p Provider) {
	p.Subscribe(m.HandleEvent)
}

// HandleEvent normalizes one raw provider event.
func (m *Monitor) HandleEvent(e Event) {
	m.mu.Lock()

	if e.Present && e.UserID == "" {
		// A session without an identifier is unusable; treat as absent.
		slog.Warn("Session event with empty user id, treating as absent")
		e = Event{Present: false}
	}

	if e.Present == m.present && e.UserID == m.userID {
		// Not a transition.
		m.mu.Unlock()
		return
	}

	m.present = e.Present
	m.userID = e.UserID
	sinks := make([]func(Signal), len(m.sinks))
	copy(sinks, m.sinks)
	m.mu.Unlock()

	sig := Signal{Present: e.Present, UserID: e.UserID}
	for _, sink := range sinks {
		sink(sig)
	}
}

// Current returns the monitor's view of the session.
func (m *Monitor) Current() (present bool, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present, m.userID
}
