// Package view holds the finite state machine over the application's
// named screens. The router decides what is shown; it never fetches data
// and never renders.
package view

import (
	"errors"
	"fmt"
	"sync"

	"guadagni/internal/core"
)

// View names the active screen.
type View string

const (
	Welcome    View = "WELCOME"
	Login      View = "LOGIN"
	Register   View = "REGISTER"
	Today      View = "TODAY"
	History    View = "HISTORY"
	FixedCosts View = "FIXED_COSTS"
	DayDetail  View = "DAY_DETAIL"
	Report     View = "REPORT"
)

// Event is a navigation trigger.
type Event string

const (
	NavigateLogin    Event = "navigate_login"
	NavigateRegister Event = "navigate_register"
	LoginSucceeded   Event = "login_succeeded"
	Registered       Event = "registered"
	SelectHistory    Event = "select_history"
	SelectDay        Event = "select_day"
	SelectFixedCosts Event = "select_fixed_costs"
	ViewReport       Event = "view_report"
	Back             Event = "back"
	SessionAbsent    Event = "session_absent"
)

// Guards carry the data-dependent conditions a transition may require.
// The router owns no snapshot; callers supply the facts.
type Guards struct {
	// SnapshotReady is true once a non-error AppState exists for the
	// signed-in user.
	SnapshotReady bool
	// HasRecordForToday is true when a daily record exists for the
	// current calendar date. Its absence is a displayable state, not an
	// error, but the report screen needs a record to report on.
	HasRecordForToday bool
}

var (
	ErrInvalidTransition = errors.New("invalid view transition")
	ErrSnapshotNotReady  = errors.New("snapshot not loaded yet")
	ErrNoRecordForToday  = errors.New("no daily record for today")
)

// transitions maps current view and event to the next view. Guarded and
// payload-carrying events are handled in Apply on top of this table.
var transitions = map[View]map[Event]View{
	Welcome: {
		NavigateLogin:    Login,
		NavigateRegister: Register,
	},
	Login: {
		LoginSucceeded: Today,
		Back:           Welcome,
	},
	Register: {
		Registered: Login,
		Back:       Welcome,
	},
	Today: {
		SelectHistory:    History,
		SelectFixedCosts: FixedCosts,
		ViewReport:       Report,
	},
	History: {
		SelectDay: DayDetail,
		Back:      Today,
	},
	FixedCosts: {
		Back: Today,
	},
	DayDetail: {
		Back: History,
	},
	Report: {
		Back: Today,
	},
}

// Router is the long-running view state machine. Initial state WELCOME;
// no terminal state.
type Router struct {
	mu           sync.Mutex
	current      View
	selectedDate core.Date
}

func NewRouter() *Router {
	return &Router{current: Welcome}
}

// Current returns the active view.
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SelectedDate returns the date carried by the last SelectDay transition.
// Only meaningful while on DAY_DETAIL.
func (r *Router) SelectedDate() core.Date {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectedDate
}

// Apply runs one event against the transition table. SessionAbsent
// overrides every other rule and is legal from any state.
func (r *Router) Apply(ev Event, guards Guards) (View, error) {
	return r.apply(ev, guards, core.Date{})
}

// ApplySelectDay runs the HISTORY -> DAY_DETAIL transition, carrying the
// selected date as payload.
func (r *Router) ApplySelectDay(date core.Date, guards Guards) (View, error) {
	if err := date.Validate(); err != nil {
		return r.Current(), err
	}
	return r.apply(SelectDay, guards, date)
}

func (r *Router) apply(ev Event, guards Guards, payload core.Date) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Highest-priority rule: a vanished session sends every state back to
	// the unauthenticated entry screen.
	if ev == SessionAbsent {
		r.current = Welcome
		r.selectedDate = core.Date{}
		return r.current, nil
	}

	next, ok := transitions[r.current][ev]
	if !ok {
		return r.current, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, r.current)
	}

	switch ev {
	case LoginSucceeded:
		if !guards.SnapshotReady {
			return r.current, ErrSnapshotNotReady
		}
	case ViewReport:
		if !guards.HasRecordForToday {
			return r.current, ErrNoRecordForToday
		}
	case SelectDay:
		r.selectedDate = payload
	}

	if next != DayDetail {
		r.selectedDate = core.Date{}
	}
	r.current = next
	return r.current, nil
}

// Reset returns the machine to its initial state.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = Welcome
	r.selectedDate = core.Date{}
}
