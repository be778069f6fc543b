package shell

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"guadagni/internal/auth"
	"guadagni/internal/core"
	"guadagni/internal/export"
	"guadagni/internal/log"
	"guadagni/internal/store"
	"guadagni/internal/store/memory"
	"guadagni/internal/view"
)

// gatedStore wraps the memory store with a profile-fetch gate and an
// injectable fixed-costs error so tests can control load timing and
// failure.
type gatedStore struct {
	*memory.Store
	profileGate chan struct{}
	costsErr    error
}

func (g *gatedStore) GetProfile(ctx context.Context, userID string) (*store.ProfileRow, error) {
	if g.profileGate != nil {
		<-g.profileGate
	}
	return g.Store.GetProfile(ctx, userID)
}

func (g *gatedStore) GetFixedCosts(ctx context.Context, userID string) ([]store.FixedCostRow, error) {
	if g.costsErr != nil {
		return nil, g.costsErr
	}
	return g.Store.GetFixedCosts(ctx, userID)
}

func testLogger() *log.Logger {
	return log.New("shell-test", log.Config{Level: slog.LevelError})
}

func seededMemory() *memory.Store {
	st := memory.New()
	st.SeedProfile(store.ProfileRow{ID: "user-1", FirstName: "Ana", LastName: "Silva"})
	st.SeedFixedCost("user-1", store.FixedCostRow{ID: "c1", Name: "Insurance", MonthlyAmount: "93.00"})
	st.SeedDailyRecord("user-1", store.DailyRecordRow{
		Date:     "2024-05-01",
		Earnings: "120.50",
		Mileage:  80,
		Expenses: []store.ExpenseRow{{ID: "e1", Type: "fuel", Amount: "30.00"}},
	})
	return st
}

func newTestShell(st store.Store) *Shell {
	provider := auth.NewLocal()
	return New(Options{
		Store:    st,
		Provider: provider,
		Exporter: export.NewExporter(st, nil, testLogger()),
		Logger:   testLogger(),
	})
}

func TestShell_SignInLoadsSnapshot(t *testing.T) {
	s := newTestShell(seededMemory())

	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.Wait()

	if s.Loading() {
		t.Error("loading should be done")
	}
	state := s.State()
	if state.User == nil || state.User.FirstName != "Ana" {
		t.Fatalf("user = %+v, want Ana", state.User)
	}
	if len(state.DailyRecords) != 1 {
		t.Errorf("dailyRecords = %d, want 1", len(state.DailyRecords))
	}
	if len(state.FixedCosts) != 1 {
		t.Errorf("fixedCosts = %d, want 1", len(state.FixedCosts))
	}
}

func TestShell_LoginNavigationGatedOnSnapshot(t *testing.T) {
	gate := make(chan struct{})
	st := &gatedStore{Store: seededMemory(), profileGate: gate}
	s := newTestShell(st)

	if _, err := s.Navigate(view.NavigateLogin); err != nil {
		t.Fatalf("Navigate(login) error = %v", err)
	}

	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})

	// Snapshot not ready yet: the login transition must be refused.
	if _, err := s.Navigate(view.LoginSucceeded); !errors.Is(err, view.ErrSnapshotNotReady) {
		t.Errorf("Navigate(loginSucceeded) error = %v, want ErrSnapshotNotReady", err)
	}

	close(gate)
	s.Wait()

	got, err := s.Navigate(view.LoginSucceeded)
	if err != nil {
		t.Fatalf("Navigate(loginSucceeded) error = %v", err)
	}
	if got != view.Today {
		t.Errorf("view = %s, want TODAY", got)
	}
}

func TestShell_AbsentDiscardsInFlightLoad(t *testing.T) {
	gate := make(chan struct{})
	st := &gatedStore{Store: seededMemory(), profileGate: gate}
	s := newTestShell(st)

	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.HandleSession(auth.Signal{Present: false})
	close(gate)
	s.Wait()

	state := s.State()
	if state.User != nil {
		t.Error("stale load mutated state after sign-out")
	}
	if len(state.DailyRecords) != 0 {
		t.Errorf("dailyRecords = %d, want 0", len(state.DailyRecords))
	}
	if s.Loading() {
		t.Error("loading should be cleared on sign-out")
	}
	if got := s.CurrentView(); got != view.Welcome {
		t.Errorf("view = %s, want WELCOME", got)
	}
}

func TestShell_UserSwitchLoadsNewUser(t *testing.T) {
	gate := make(chan struct{})
	st := &gatedStore{Store: seededMemory(), profileGate: gate}
	st.SeedProfile(store.ProfileRow{ID: "user-2", FirstName: "Bruno"})
	s := newTestShell(st)

	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.HandleSession(auth.Signal{Present: true, UserID: "user-2"})
	close(gate)
	s.Wait()

	state := s.State()
	if state.User == nil || state.User.FirstName != "Bruno" {
		t.Fatalf("user = %+v, want Bruno", state.User)
	}
	if len(state.DailyRecords) != 0 {
		t.Errorf("dailyRecords = %d, want 0 for user-2", len(state.DailyRecords))
	}
}

func TestShell_LoadFailureKeepsPriorState(t *testing.T) {
	st := &gatedStore{Store: seededMemory()}
	s := newTestShell(st)

	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.Wait()

	st.costsErr = errors.New("remote unavailable")
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() should fail when a fetch fails")
	}

	state := s.State()
	if state.User == nil || state.User.FirstName != "Ana" {
		t.Error("failed refresh must leave the previous snapshot intact")
	}
	if len(state.FixedCosts) != 1 {
		t.Errorf("fixedCosts = %d, want 1 from prior snapshot", len(state.FixedCosts))
	}
}

func TestShell_MutationsRefreshSnapshot(t *testing.T) {
	s := newTestShell(seededMemory())
	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.Wait()
	ctx := context.Background()

	if err := s.UpdateToday(ctx, core.Money{Cents: 9900}, 60); err != nil {
		t.Fatalf("UpdateToday() error = %v", err)
	}
	today := core.Today()
	record, ok := s.State().RecordFor(today)
	if !ok {
		t.Fatal("today's record missing after UpdateToday")
	}
	if record.Earnings.Cents != 9900 || record.Mileage != 60 {
		t.Errorf("record = %+v, want 9900 cents / 60 km", record)
	}

	if err := s.AddExpense(ctx, today, core.ExpenseFuel, core.Money{Cents: 2500}); err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	record, _ = s.State().RecordFor(today)
	if record.ExpenseTotal().Cents != 2500 {
		t.Errorf("expenseTotal = %d, want 2500", record.ExpenseTotal().Cents)
	}

	id, err := s.AddFixedCost(ctx, "Lease", core.Money{Cents: 40000})
	if err != nil {
		t.Fatalf("AddFixedCost() error = %v", err)
	}
	if len(s.State().FixedCosts) != 2 {
		t.Errorf("fixedCosts = %d, want 2", len(s.State().FixedCosts))
	}

	if err := s.RemoveFixedCost(ctx, id); err != nil {
		t.Fatalf("RemoveFixedCost() error = %v", err)
	}
	if len(s.State().FixedCosts) != 1 {
		t.Errorf("fixedCosts = %d, want 1 after removal", len(s.State().FixedCosts))
	}
}

func TestShell_CloseDayFinalizesRecord(t *testing.T) {
	s := newTestShell(seededMemory())
	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.Wait()
	ctx := context.Background()

	if err := s.UpdateToday(ctx, core.Money{Cents: 5000}, 40); err != nil {
		t.Fatalf("UpdateToday() error = %v", err)
	}
	today := core.Today()
	if err := s.CloseDay(ctx, today); err != nil {
		t.Fatalf("CloseDay() error = %v", err)
	}

	record, _ := s.State().RecordFor(today)
	if !record.IsClosed {
		t.Error("record should be closed in the refreshed snapshot")
	}

	// Closed days refuse further edits.
	err := s.UpdateToday(ctx, core.Money{Cents: 6000}, 50)
	if !errors.Is(err, core.ErrRecordClosed) {
		t.Errorf("UpdateToday() on closed day error = %v, want ErrRecordClosed", err)
	}
}

func TestShell_ReportGuard(t *testing.T) {
	s := newTestShell(seededMemory())
	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.Wait()
	ctx := context.Background()

	s.Navigate(view.NavigateLogin)
	s.Navigate(view.LoginSucceeded)

	if _, err := s.Navigate(view.ViewReport); !errors.Is(err, view.ErrNoRecordForToday) {
		t.Fatalf("Navigate(viewReport) error = %v, want ErrNoRecordForToday", err)
	}

	if err := s.UpdateToday(ctx, core.Money{Cents: 5000}, 40); err != nil {
		t.Fatalf("UpdateToday() error = %v", err)
	}
	got, err := s.Navigate(view.ViewReport)
	if err != nil {
		t.Fatalf("Navigate(viewReport) error = %v", err)
	}
	if got != view.Report {
		t.Errorf("view = %s, want REPORT", got)
	}

	rep, ok := s.DayReport(core.Today())
	if !ok {
		t.Fatal("DayReport() missing for today")
	}
	if rep.Earnings.Cents != 5000 {
		t.Errorf("earnings = %d, want 5000", rep.Earnings.Cents)
	}
}

func TestShell_HistorySelection(t *testing.T) {
	s := newTestShell(seededMemory())
	s.HandleSession(auth.Signal{Present: true, UserID: "user-1"})
	s.Wait()

	s.Navigate(view.NavigateLogin)
	s.Navigate(view.LoginSucceeded)
	s.Navigate(view.SelectHistory)

	day := core.NewDate(2024, 5, 1)
	got, err := s.SelectDay(day)
	if err != nil {
		t.Fatalf("SelectDay() error = %v", err)
	}
	if got != view.DayDetail {
		t.Errorf("view = %s, want DAY_DETAIL", got)
	}
	if !s.SelectedDate().Equal(day) {
		t.Errorf("selectedDate = %s, want %s", s.SelectedDate(), day)
	}

	s.Navigate(view.Back)
	if got := s.CurrentView(); got != view.History {
		t.Errorf("view = %s, want HISTORY after back", got)
	}
}

func TestShell_LogoutThroughProvider(t *testing.T) {
	st := seededMemory()
	provider := auth.NewLocal()
	monitor := auth.NewMonitor()
	s := New(Options{
		Store:    st,
		Provider: provider,
		Exporter: export.NewExporter(st, nil, testLogger()),
		Logger:   testLogger(),
	})
	monitor.Notify(s.HandleSession)
	monitor.Attach(provider)

	if err := provider.SignIn(context.Background(), "user-1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	s.Wait()
	if s.State().User == nil {
		t.Fatal("snapshot not loaded after sign-in")
	}

	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if s.State().User != nil {
		t.Error("state should be reset after logout")
	}
	if got := s.CurrentView(); got != view.Welcome {
		t.Errorf("view = %s, want WELCOME after logout", got)
	}
}

func TestShell_MutationsRequireSession(t *testing.T) {
	s := newTestShell(seededMemory())

	if err := s.UpdateToday(context.Background(), core.Money{Cents: 100}, 1); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("UpdateToday() error = %v, want ErrNotSignedIn", err)
	}
	if err := s.Refresh(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Refresh() error = %v, want ErrNotSignedIn", err)
	}
}
