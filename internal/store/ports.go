// Package store defines the ports and raw row shapes of the remote
// persistence service. Rows keep the remote's loose field shapes on
// purpose (decimals as text, truthy flags as any); only the snapshot
// loader converts them into the canonical model.
package store

import (
	"context"
	"errors"

	"guadagni/internal/core"
)

var ErrNotFound = errors.New("not found")

type (
	// ProfileRow is the raw remote profile shape.
	ProfileRow struct {
		ID        string
		FirstName string
		LastName  string
		Email     string
		Phone     string
	}

	// FixedCostRow carries the monthly amount as the remote's textual
	// arbitrary-precision decimal.
	FixedCostRow struct {
		ID            string
		Name          string
		MonthlyAmount string
	}

	// ExpenseRow belongs to exactly one daily record.
	ExpenseRow struct {
		ID     string
		Type   string
		Amount string
	}

	// DailyRecordRow is the raw remote daily record with nested expenses.
	// IsClosed is deliberately untyped: remotes deliver it as bool, int or
	// string depending on the driver.
	DailyRecordRow struct {
		Date     string
		Earnings string
		Mileage  int64
		IsClosed any
		Expenses []ExpenseRow
	}

	// PendingExport identifies a closed day that has not reached the
	// spreadsheet yet.
	PendingExport struct {
		UserID string
		Date   string
	}
)

// Ports for the remote store, consumed by the snapshot loader.
type (
	ProfileReader interface {
		// GetProfile returns the profile row for the user, or nil when no
		// profile exists. A missing profile is not an error.
		GetProfile(ctx context.Context, userID string) (*ProfileRow, error)
	}

	FixedCostReader interface {
		GetFixedCosts(ctx context.Context, userID string) ([]FixedCostRow, error)
	}

	DailyRecordReader interface {
		// GetDailyRecords returns the user's records ordered by date
		// descending, each with its nested expenses.
		GetDailyRecords(ctx context.Context, userID string) ([]DailyRecordRow, error)
	}

	// Reader bundles the three reads the snapshot loader fans out over.
	Reader interface {
		ProfileReader
		FixedCostReader
		DailyRecordReader
	}

	// Writer covers the mutations the shell performs. Every mutation is
	// followed by a full snapshot re-fetch; the writer never returns
	// normalized state.
	Writer interface {
		UpsertDailyRecord(ctx context.Context, userID string, date core.Date, earnings core.Money, mileage int64) error
		AddExpense(ctx context.Context, userID string, date core.Date, expenseType string, amount core.Money) error
		AddFixedCost(ctx context.Context, userID string, name string, monthly core.Money) (string, error)
		RemoveFixedCost(ctx context.Context, userID string, costID string) error
		CloseDailyRecord(ctx context.Context, userID string, date core.Date) error
	}

	// ExportTracker tracks which closed days still need exporting, the
	// worker's backup against lost broker messages.
	ExportTracker interface {
		GetPendingExports(ctx context.Context, limit int) ([]PendingExport, error)
		MarkExported(ctx context.Context, userID string, date core.Date) error
	}

	// Store is the full remote store surface.
	Store interface {
		Reader
		Writer
		ExportTracker
	}
)
