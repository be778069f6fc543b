package core

import (
	"errors"
	"strings"
	"time"
)

const (
	ExpenseFuel        ExpenseType = "fuel"
	ExpenseMaintenance ExpenseType = "maintenance"
	ExpenseFood        ExpenseType = "food"
	ExpenseToll        ExpenseType = "toll"
	ExpenseOther       ExpenseType = "other"
)

type (
	// ExpenseType is a free-form expense label; the constants above cover
	// the common ones but remote rows may carry anything.
	ExpenseType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// User mirrors the remote profile row one-to-one. A nil *User means no
	// profile exists for the session.
	User struct {
		FirstName string
		LastName  string
		Email     string
		Phone     string
	}

	FixedCost struct {
		ID            string
		Name          string
		MonthlyAmount Money
	}

	Expense struct {
		ID     string
		Type   ExpenseType
		Amount Money
	}

	// DailyRecord holds one day of driving: at most one per user per date.
	// IsClosed marks a finalized day that no longer accepts edits.
	DailyRecord struct {
		Date     Date
		Earnings Money
		Mileage  int64
		IsClosed bool
		Expenses []Expense
	}

	// AppState is the synchronized snapshot the view layer consumes. It is
	// replaced as a whole on every successful load and reset to Empty when
	// the session goes away; it is never merged or patched.
	AppState struct {
		User         *User
		DailyRecords []DailyRecord // ordered by date descending
		FixedCosts   []FixedCost
		Theme        string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMileage  = errors.New("invalid mileage")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyType       = errors.New("empty expense type")
	ErrRecordClosed    = errors.New("daily record is closed")
	ErrRecordNotFound  = errors.New("daily record not found")
	ErrEmptyUserID     = errors.New("empty user id")
	ErrDuplicateRecord = errors.New("duplicate daily record for date")
)

// Empty returns the zero snapshot used before sign-in and after sign-out.
func Empty() AppState {
	return AppState{
		User:         nil,
		DailyRecords: []DailyRecord{},
		FixedCosts:   []FixedCost{},
		Theme:        "light",
	}
}

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses the canonical YYYY-MM-DD calendar form used by the
// remote store.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar date in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the canonical YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Equal compares by calendar date only.
func (d Date) Equal(other Date) bool {
	return d.String() == other.String()
}

// DaysInMonth returns the number of days in the date's month, used to
// prorate monthly fixed costs to a single day.
func (d Date) DaysInMonth() int {
	y, m, _ := d.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (fc FixedCost) Validate() error {
	if strings.TrimSpace(fc.Name) == "" {
		return ErrEmptyName
	}
	if err := fc.MonthlyAmount.Validate(); err != nil {
		return err
	}
	if fc.MonthlyAmount.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(string(e.Type)) == "" {
		return ErrEmptyType
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Amount.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r DailyRecord) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if err := r.Earnings.Validate(); err != nil {
		return err
	}
	if r.Mileage < 0 {
		return ErrInvalidMileage
	}
	for _, e := range r.Expenses {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExpenseTotal sums the record's itemized expenses.
func (r DailyRecord) ExpenseTotal() Money {
	var cents int64
	for _, e := range r.Expenses {
		cents += e.Amount.Cents
	}
	return Money{Cents: cents}
}

// RecordFor returns the daily record matching the given date, if any.
func (s AppState) RecordFor(date Date) (DailyRecord, bool) {
	for _, r := range s.DailyRecords {
		if r.Date.Equal(date) {
			return r, true
		}
	}
	return DailyRecord{}, false
}

// HasRecordFor reports whether a daily record exists for the given date.
func (s AppState) HasRecordFor(date Date) bool {
	_, ok := s.RecordFor(date)
	return ok
}
