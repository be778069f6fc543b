// Package worker exports closed daily records to the spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"guadagni/internal/amqp"
	"guadagni/internal/core"
	"guadagni/internal/report"
	"guadagni/internal/sheets"
	"guadagni/internal/snapshot"
	"guadagni/internal/store"
)

// Store is the slice of the remote store the worker needs: the three
// reads plus export tracking.
type Store interface {
	store.Reader
	store.ExportTracker
}

// ExportWorker handles closed-day export messages: it re-reads the
// record and fixed costs from the store and appends the computed day
// report to the spreadsheet.
type ExportWorker struct {
	store     Store
	sheets    sheets.DayAppender
	batchSize int
}

func NewExportWorker(st Store, appender sheets.DayAppender, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     st,
		sheets:    appender,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single closed-day export message.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.DayExportMessage) error {
	slog.InfoContext(ctx, "Processing day export message",
		"user_id", msg.UserID,
		"date", msg.Date)

	date, err := core.ParseDate(msg.Date)
	if err != nil {
		return fmt.Errorf("parse export date %q: %w", msg.Date, err)
	}

	return w.exportDay(ctx, msg.UserID, date)
}

// ProcessPendingExports exports closed days that never made it onto the
// queue. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupExportCheck drains pending exports at worker startup to recover
// from missed messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *ExportWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.store.GetPendingExports(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		date, err := core.ParseDate(p.Date)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping pending export with unusable date",
				"user_id", p.UserID, "date", p.Date)
			continue
		}
		if err := w.exportDay(ctx, p.UserID, date); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending day",
				"user_id", p.UserID, "date", p.Date, "error", err)
			continue
		}
	}
	return nil
}

func (w *ExportWorker) exportDay(ctx context.Context, userID string, date core.Date) error {
	rep, err := w.buildReport(ctx, userID, date)
	if err != nil {
		return err
	}

	ref, err := w.sheets.AppendDay(ctx, rep)
	if err != nil {
		return fmt.Errorf("append day to sheets: %w", err)
	}

	if err := w.store.MarkExported(ctx, userID, date); err != nil {
		// The append succeeded; worst case the pending scan re-exports.
		slog.ErrorContext(ctx, "Failed to mark day exported",
			"user_id", userID, "date", date.String(), "error", err)
	}

	slog.InfoContext(ctx, "Exported closed day",
		"user_id", userID,
		"date", date.String(),
		"net_cents", rep.Net.Cents,
		"sheets_ref", ref)

	return nil
}

func (w *ExportWorker) buildReport(ctx context.Context, userID string, date core.Date) (report.DayReport, error) {
	rows, err := w.store.GetDailyRecords(ctx, userID)
	if err != nil {
		return report.DayReport{}, fmt.Errorf("get daily records: %w", err)
	}
	costRows, err := w.store.GetFixedCosts(ctx, userID)
	if err != nil {
		return report.DayReport{}, fmt.Errorf("get fixed costs: %w", err)
	}

	records := snapshot.NormalizeDailyRecords(ctx, rows)
	costs := snapshot.NormalizeFixedCosts(ctx, costRows)

	for _, r := range records {
		if r.Date.Equal(date) {
			return report.BuildDayReport(r, costs), nil
		}
	}
	return report.DayReport{}, fmt.Errorf("record for %s: %w", date.String(), core.ErrRecordNotFound)
}
