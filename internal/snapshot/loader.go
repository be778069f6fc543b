// Package snapshot fetches the three remote collections for a user
// concurrently and joins them into one consistent in-memory AppState.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"guadagni/internal/core"
	"guadagni/internal/store"
)

// ErrLoadInFlight is returned when a load is requested while another one
// is still running. The caller keeps the in-flight load; the most recent
// completed load wins.
var ErrLoadInFlight = errors.New("snapshot load already in flight")

// LoadError wraps any failure of the three fetches. No partial snapshot
// is ever produced: on a LoadError the caller's previous AppState must be
// left untouched.
type LoadError struct {
	UserID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load snapshot for %s: %v", e.UserID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader produces full AppState snapshots from the remote store.
type Loader struct {
	store store.Reader

	mu       sync.Mutex
	inFlight bool
}

func NewLoader(s store.Reader) *Loader {
	return &Loader{store: s}
}

// Load fetches profile, fixed costs and daily records concurrently, waits
// for all three, and normalizes the result. The three reads are
// independent; the first failure cancels the siblings and surfaces as a
// single *LoadError.
//
// At most one load runs at a time; concurrent calls get ErrLoadInFlight.
func (l *Loader) Load(ctx context.Context, userID string) (core.AppState, error) {
	if userID == "" {
		return core.AppState{}, &LoadError{UserID: userID, Err: core.ErrEmptyUserID}
	}

	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return core.AppState{}, ErrLoadInFlight
	}
	l.inFlight = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.inFlight = false
		l.mu.Unlock()
	}()

	var (
		profile *store.ProfileRow
		costs   []store.FixedCostRow
		records []store.DailyRecordRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := l.store.GetProfile(gctx, userID)
		if err != nil {
			return fmt.Errorf("profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		c, err := l.store.GetFixedCosts(gctx, userID)
		if err != nil {
			return fmt.Errorf("fixed costs: %w", err)
		}
		costs = c
		return nil
	})
	g.Go(func() error {
		r, err := l.store.GetDailyRecords(gctx, userID)
		if err != nil {
			return fmt.Errorf("daily records: %w", err)
		}
		records = r
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.AppState{}, &LoadError{UserID: userID, Err: err}
	}

	state := normalize(ctx, profile, costs, records)

	slog.DebugContext(ctx, "Snapshot loaded",
		"user_id", userID,
		"has_profile", state.User != nil,
		"daily_records", len(state.DailyRecords),
		"fixed_costs", len(state.FixedCosts))

	return state, nil
}
