// Package memory provides an in-process remote store used by tests and
// the default development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"guadagni/internal/core"
	"guadagni/internal/store"
)

type userData struct {
	profile  *store.ProfileRow
	costs    []store.FixedCostRow
	records  map[string]*store.DailyRecordRow // keyed by YYYY-MM-DD
	exported map[string]bool                  // dates already on the sheet
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData
	seq   int
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userData)}
}

// SeedProfile installs a profile row for the user.
func (s *Store) SeedProfile(p store.ProfileRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(p.ID)
	cp := p
	u.profile = &cp
}

// SeedFixedCost installs a raw fixed cost row for the user.
func (s *Store) SeedFixedCost(userID string, row store.FixedCostRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	u.costs = append(u.costs, row)
}

// SeedDailyRecord installs a raw daily record row for the user. Seeding
// does not enforce date uniqueness so tests can exercise the loader's
// duplicate handling.
func (s *Store) SeedDailyRecord(userID string, row store.DailyRecordRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	cp := row
	// Allow duplicate dates by suffixing the key; GetDailyRecords sorts by
	// the row's Date field, not the key.
	key := row.Date
	for {
		if _, exists := u.records[key]; !exists {
			break
		}
		key += "+"
	}
	u.records[key] = &cp
}

func (s *Store) user(userID string) *userData {
	u, ok := s.users[userID]
	if !ok {
		u = &userData{
			records:  make(map[string]*store.DailyRecordRow),
			exported: make(map[string]bool),
		}
		s.users[userID] = u
	}
	return u
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Store) GetProfile(_ context.Context, userID string) (*store.ProfileRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.profile == nil {
		return nil, nil
	}
	cp := *u.profile
	return &cp, nil
}

func (s *Store) GetFixedCosts(_ context.Context, userID string) ([]store.FixedCostRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return []store.FixedCostRow{}, nil
	}
	out := make([]store.FixedCostRow, len(u.costs))
	copy(out, u.costs)
	return out, nil
}

func (s *Store) GetDailyRecords(_ context.Context, userID string) ([]store.DailyRecordRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return []store.DailyRecordRow{}, nil
	}
	out := make([]store.DailyRecordRow, 0, len(u.records))
	for _, r := range u.records {
		cp := *r
		cp.Expenses = append([]store.ExpenseRow(nil), r.Expenses...)
		out = append(out, cp)
	}
	// Date descending; ISO dates sort lexicographically.
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) UpsertDailyRecord(_ context.Context, userID string, date core.Date, earnings core.Money, mileage int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	key := date.String()
	if r, ok := u.records[key]; ok {
		if truthy(r.IsClosed) {
			return core.ErrRecordClosed
		}
		r.Earnings = earnings.FormatDecimal()
		r.Mileage = mileage
		return nil
	}
	u.records[key] = &store.DailyRecordRow{
		Date:     key,
		Earnings: earnings.FormatDecimal(),
		Mileage:  mileage,
		IsClosed: false,
		Expenses: []store.ExpenseRow{},
	}
	return nil
}

func (s *Store) AddExpense(_ context.Context, userID string, date core.Date, expenseType string, amount core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	r, ok := u.records[date.String()]
	if !ok {
		return core.ErrRecordNotFound
	}
	if truthy(r.IsClosed) {
		return core.ErrRecordClosed
	}
	r.Expenses = append(r.Expenses, store.ExpenseRow{
		ID:     s.nextID("exp"),
		Type:   expenseType,
		Amount: amount.FormatDecimal(),
	})
	return nil
}

func (s *Store) AddFixedCost(_ context.Context, userID string, name string, monthly core.Money) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("fc")
	u := s.user(userID)
	u.costs = append(u.costs, store.FixedCostRow{
		ID:            id,
		Name:          name,
		MonthlyAmount: monthly.FormatDecimal(),
	})
	return id, nil
}

func (s *Store) RemoveFixedCost(_ context.Context, userID string, costID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	for i, c := range u.costs {
		if c.ID == costID {
			u.costs = append(u.costs[:i], u.costs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) CloseDailyRecord(_ context.Context, userID string, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	r, ok := u.records[date.String()]
	if !ok {
		return core.ErrRecordNotFound
	}
	r.IsClosed = true
	return nil
}

func (s *Store) GetPendingExports(_ context.Context, limit int) ([]store.PendingExport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []store.PendingExport{}
	for userID, u := range s.users {
		for _, r := range u.records {
			if truthy(r.IsClosed) && !u.exported[r.Date] {
				out = append(out, store.PendingExport{UserID: userID, Date: r.Date})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkExported(_ context.Context, userID string, date core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if _, ok := u.records[date.String()]; !ok {
		return core.ErrRecordNotFound
	}
	u.exported[date.String()] = true
	return nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t == "true" || t == "1" || t == "t"
	default:
		return false
	}
}
