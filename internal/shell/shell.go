// Package shell owns the application state: the session-driven snapshot
// lifecycle, the view router, and the mutation operations. All state
// changes funnel through here; views read, never write.
package shell

import (
	"context"
	"errors"
	"sync"
	"time"

	"guadagni/internal/auth"
	"guadagni/internal/core"
	"guadagni/internal/export"
	"guadagni/internal/log"
	"guadagni/internal/report"
	"guadagni/internal/snapshot"
	"guadagni/internal/store"
	"guadagni/internal/view"
)

var ErrNotSignedIn = errors.New("not signed in")

// Shell coordinates session signals, snapshot loads and navigation.
//
// Loads triggered by sign-in run in the background and are tagged with
// an epoch; any session transition bumps the epoch, so a load that
// finishes after the session changed is discarded instead of resurrecting
// state for a gone user.
type Shell struct {
	loader   *snapshot.Loader
	router   *view.Router
	writer   store.Writer
	exporter *export.Exporter
	reports  *report.Service
	provider auth.Provider
	logger   *log.Logger

	loadTimeout time.Duration

	mu      sync.Mutex
	epoch   uint64
	userID  string
	state   core.AppState
	loading bool
	ready   bool

	// loadMu serializes snapshot loads so a user switch queues the new
	// load behind the doomed one instead of colliding with it.
	loadMu sync.Mutex
	loads  sync.WaitGroup
}

type Options struct {
	Store       store.Store
	Provider    auth.Provider
	Exporter    *export.Exporter
	Logger      *log.Logger
	LoadTimeout time.Duration
}

func New(opts Options) *Shell {
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New("shell", log.Config{})
	}
	return &Shell{
		loader:      snapshot.NewLoader(opts.Store),
		router:      view.NewRouter(),
		writer:      opts.Store,
		exporter:    opts.Exporter,
		reports:     report.NewService(),
		provider:    opts.Provider,
		logger:      logger,
		loadTimeout: timeout,
		state:       core.Empty(),
	}
}

// HandleSession consumes one normalized session signal. Absent resets
// everything immediately; present kicks off a background snapshot load.
// Register this with the session monitor's Notify.
func (s *Shell) HandleSession(sig auth.Signal) {
	s.mu.Lock()
	s.epoch++

	if !sig.Present {
		s.userID = ""
		s.state = core.Empty()
		s.loading = false
		s.ready = false
		s.mu.Unlock()

		s.reports.Invalidate()
		s.router.Apply(view.SessionAbsent, view.Guards{})
		s.logger.Info("Session ended, state reset")
		return
	}

	s.userID = sig.UserID
	s.state = core.Empty()
	s.loading = true
	s.ready = false
	epoch := s.epoch
	s.mu.Unlock()

	s.reports.Invalidate()
	s.logger.Info("Session started, loading snapshot", "user_id", sig.UserID)

	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		s.load(context.Background(), epoch, sig.UserID)
	}()
}

// load fetches a snapshot and applies it if the session epoch has not
// moved on in the meantime. On failure the previous state stays as is.
func (s *Shell) load(ctx context.Context, epoch uint64, userID string) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	stale := epoch != s.epoch
	s.mu.Unlock()
	if stale {
		// The session moved on while this load was queued.
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	state, err := s.loader.Load(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		s.logger.Info("Discarding stale snapshot load", "user_id", userID)
		return nil
	}

	s.loading = false
	if err != nil {
		s.logger.Error("Snapshot load failed", "user_id", userID, "error", err)
		return err
	}

	s.state = state
	s.ready = true
	s.reports.Invalidate()
	s.logger.Info("Snapshot applied",
		"user_id", userID,
		"daily_records", len(state.DailyRecords),
		"fixed_costs", len(state.FixedCosts))
	return nil
}

// Wait blocks until background snapshot loads have finished. Used on
// shutdown and in tests.
func (s *Shell) Wait() {
	s.loads.Wait()
}

// Refresh synchronously re-fetches the snapshot for the signed-in user.
// Every mutation calls this; the snapshot is replaced whole, never
// patched.
func (s *Shell) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	epoch := s.epoch
	userID := s.userID
	s.mu.Unlock()

	return s.load(ctx, epoch, userID)
}

// State returns the current snapshot.
func (s *Shell) State() core.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Loading reports whether a sign-in snapshot load is still running. The
// UI shows the loading screen while this is true.
func (s *Shell) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// CurrentView returns the active screen.
func (s *Shell) CurrentView() view.View {
	return s.router.Current()
}

// SelectedDate returns the date shown on the day detail screen.
func (s *Shell) SelectedDate() core.Date {
	return s.router.SelectedDate()
}

// Navigate applies one navigation event with the current guards.
func (s *Shell) Navigate(ev view.Event) (view.View, error) {
	return s.router.Apply(ev, s.guards())
}

// SelectDay navigates from history to the detail screen for the date.
func (s *Shell) SelectDay(date core.Date) (view.View, error) {
	return s.router.ApplySelectDay(date, s.guards())
}

func (s *Shell) guards() view.Guards {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view.Guards{
		SnapshotReady:     s.ready,
		HasRecordForToday: s.state.HasRecordFor(core.Today()),
	}
}

// Logout ends the session via the provider; the resulting absent signal
// does the actual state reset.
func (s *Shell) Logout(ctx context.Context) error {
	return s.provider.SignOut(ctx)
}

// UpdateToday creates or updates the signed-in user's record for the
// current date.
func (s *Shell) UpdateToday(ctx context.Context, earnings core.Money, mileage int64) error {
	userID, err := s.signedInUser()
	if err != nil {
		return err
	}
	if err := earnings.Validate(); err != nil {
		return err
	}
	if mileage < 0 {
		return core.ErrInvalidMileage
	}
	if err := s.writer.UpsertDailyRecord(ctx, userID, core.Today(), earnings, mileage); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// AddExpense attaches an expense to the record for the given date.
func (s *Shell) AddExpense(ctx context.Context, date core.Date, expenseType core.ExpenseType, amount core.Money) error {
	userID, err := s.signedInUser()
	if err != nil {
		return err
	}
	e := core.Expense{Type: expenseType, Amount: amount}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.writer.AddExpense(ctx, userID, date, string(expenseType), amount); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// AddFixedCost registers a new monthly fixed cost.
func (s *Shell) AddFixedCost(ctx context.Context, name string, monthly core.Money) (string, error) {
	userID, err := s.signedInUser()
	if err != nil {
		return "", err
	}
	fc := core.FixedCost{Name: name, MonthlyAmount: monthly}
	if err := fc.Validate(); err != nil {
		return "", err
	}
	id, err := s.writer.AddFixedCost(ctx, userID, name, monthly)
	if err != nil {
		return "", err
	}
	return id, s.Refresh(ctx)
}

// RemoveFixedCost deletes a fixed cost by id.
func (s *Shell) RemoveFixedCost(ctx context.Context, costID string) error {
	userID, err := s.signedInUser()
	if err != nil {
		return err
	}
	if err := s.writer.RemoveFixedCost(ctx, userID, costID); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// CloseDay finalizes the record for the date and queues it for export.
func (s *Shell) CloseDay(ctx context.Context, date core.Date) error {
	userID, err := s.signedInUser()
	if err != nil {
		return err
	}
	if err := s.exporter.CloseDay(ctx, userID, date); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// DayReport computes the report for the date from the current snapshot.
func (s *Shell) DayReport(date core.Date) (report.DayReport, bool) {
	return s.reports.DayReport(s.State(), date)
}

// Summary aggregates the whole snapshot history.
func (s *Shell) Summary() report.PeriodSummary {
	return s.reports.Summary(s.State())
}

func (s *Shell) signedInUser() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == "" {
		return "", ErrNotSignedIn
	}
	return s.userID, nil
}
