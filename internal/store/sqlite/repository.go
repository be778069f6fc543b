// Package sqlite implements the remote store ports on a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"guadagni/internal/core"
	"guadagni/internal/store"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetProfile implements store.ProfileReader. A missing row returns nil,
// nil: the remote contract treats an absent profile as a valid state.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*store.ProfileRow, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, phone FROM profiles WHERE id = ?`, userID)

	var p store.ProfileRow
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// GetFixedCosts implements store.FixedCostReader.
func (r *Repository) GetFixedCosts(ctx context.Context, userID string) ([]store.FixedCostRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, monthly_amount FROM fixed_costs WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("get fixed costs: %w", err)
	}
	defer rows.Close()

	out := []store.FixedCostRow{}
	for rows.Next() {
		var id int64
		var fc store.FixedCostRow
		if err := rows.Scan(&id, &fc.Name, &fc.MonthlyAmount); err != nil {
			return nil, fmt.Errorf("scan fixed cost: %w", err)
		}
		fc.ID = strconv.FormatInt(id, 10)
		out = append(out, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fixed costs: %w", err)
	}
	return out, nil
}

// GetDailyRecords implements store.DailyRecordReader: records ordered by
// date descending, each with its nested expenses.
func (r *Repository) GetDailyRecords(ctx context.Context, userID string) ([]store.DailyRecordRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, earnings, mileage, is_closed
		 FROM daily_records WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get daily records: %w", err)
	}
	defer rows.Close()

	type rec struct {
		id  int64
		row store.DailyRecordRow
	}
	recs := []rec{}
	for rows.Next() {
		var rc rec
		var closed int64
		if err := rows.Scan(&rc.id, &rc.row.Date, &rc.row.Earnings, &rc.row.Mileage, &closed); err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}
		// SQLite has no boolean type; hand the raw integer through and let
		// the loader coerce it like any other remote shape.
		rc.row.IsClosed = closed
		rc.row.Expenses = []store.ExpenseRow{}
		recs = append(recs, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily records: %w", err)
	}

	for i := range recs {
		expenses, err := r.expensesForRecord(ctx, recs[i].id)
		if err != nil {
			return nil, err
		}
		recs[i].row.Expenses = expenses
	}

	out := make([]store.DailyRecordRow, len(recs))
	for i, rc := range recs {
		out[i] = rc.row
	}
	return out, nil
}

func (r *Repository) expensesForRecord(ctx context.Context, recordID int64) ([]store.ExpenseRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, amount FROM expenses WHERE record_id = ? ORDER BY id`, recordID)
	if err != nil {
		return nil, fmt.Errorf("get expenses for record %d: %w", recordID, err)
	}
	defer rows.Close()

	out := []store.ExpenseRow{}
	for rows.Next() {
		var id int64
		var e store.ExpenseRow
		if err := rows.Scan(&id, &e.Type, &e.Amount); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.ID = strconv.FormatInt(id, 10)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// UpsertDailyRecord implements store.Writer. Closed records reject edits.
func (r *Repository) UpsertDailyRecord(ctx context.Context, userID string, date core.Date, earnings core.Money, mileage int64) error {
	var closed int64
	err := r.db.QueryRowContext(ctx,
		`SELECT is_closed FROM daily_records WHERE user_id = ? AND date = ?`,
		userID, date.String()).Scan(&closed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fall through to insert
	case err != nil:
		return fmt.Errorf("check daily record: %w", err)
	case closed != 0:
		return core.ErrRecordClosed
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO daily_records (user_id, date, earnings, mileage)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, date)
		 DO UPDATE SET earnings = excluded.earnings, mileage = excluded.mileage`,
		userID, date.String(), earnings.FormatDecimal(), mileage)
	if err != nil {
		return fmt.Errorf("upsert daily record: %w", err)
	}

	slog.InfoContext(ctx, "Daily record saved",
		"user_id", userID,
		"date", date.String(),
		"earnings_cents", earnings.Cents,
		"mileage", mileage)

	return nil
}

// AddExpense implements store.Writer.
func (r *Repository) AddExpense(ctx context.Context, userID string, date core.Date, expenseType string, amount core.Money) error {
	var recordID, closed int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, is_closed FROM daily_records WHERE user_id = ? AND date = ?`,
		userID, date.String()).Scan(&recordID, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("find daily record: %w", err)
	}
	if closed != 0 {
		return core.ErrRecordClosed
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO expenses (record_id, type, amount) VALUES (?, ?, ?)`,
		recordID, expenseType, amount.FormatDecimal())
	if err != nil {
		return fmt.Errorf("add expense: %w", err)
	}
	return nil
}

// AddFixedCost implements store.Writer.
func (r *Repository) AddFixedCost(ctx context.Context, userID string, name string, monthly core.Money) (string, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO fixed_costs (user_id, name, monthly_amount) VALUES (?, ?, ?)`,
		userID, name, monthly.FormatDecimal())
	if err != nil {
		return "", fmt.Errorf("add fixed cost: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("fixed cost id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// RemoveFixedCost implements store.Writer.
func (r *Repository) RemoveFixedCost(ctx context.Context, userID string, costID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM fixed_costs WHERE user_id = ? AND id = ?`, userID, costID)
	if err != nil {
		return fmt.Errorf("remove fixed cost: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove fixed cost result: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CloseDailyRecord implements store.Writer. Closing is idempotent.
func (r *Repository) CloseDailyRecord(ctx context.Context, userID string, date core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE daily_records SET is_closed = 1 WHERE user_id = ? AND date = ?`,
		userID, date.String())
	if err != nil {
		return fmt.Errorf("close daily record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close daily record result: %w", err)
	}
	if affected == 0 {
		return core.ErrRecordNotFound
	}

	slog.InfoContext(ctx, "Daily record closed", "user_id", userID, "date", date.String())
	return nil
}

// GetPendingExports implements store.ExportTracker: closed days that
// were never marked exported, oldest first.
func (r *Repository) GetPendingExports(ctx context.Context, limit int) ([]store.PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, date FROM daily_records
		 WHERE is_closed = 1 AND exported_at IS NULL
		 ORDER BY date ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	out := []store.PendingExport{}
	for rows.Next() {
		var p store.PendingExport
		if err := rows.Scan(&p.UserID, &p.Date); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending exports: %w", err)
	}
	return out, nil
}

// MarkExported implements store.ExportTracker.
func (r *Repository) MarkExported(ctx context.Context, userID string, date core.Date) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE daily_records SET exported_at = CURRENT_TIMESTAMP
		 WHERE user_id = ? AND date = ?`, userID, date.String())
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark exported result: %w", err)
	}
	if affected == 0 {
		return core.ErrRecordNotFound
	}
	return nil
}

// UpsertProfile installs or updates the profile row. The authentication
// provider owns account creation; this exists for registration flows and
// fixtures.
func (r *Repository) UpsertProfile(ctx context.Context, p store.ProfileRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, first_name, last_name, email, phone)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   email = excluded.email,
		   phone = excluded.phone`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
