// Package export closes daily records and hands them to the spreadsheet
// pipeline over the broker.
package export

import (
	"context"
	"fmt"

	"guadagni/internal/core"
	"guadagni/internal/log"
	"guadagni/internal/store"
)

// Publisher is the broker surface the exporter needs.
type Publisher interface {
	PublishDayExport(ctx context.Context, userID, date string) error
}

// Exporter finalizes a day in the store and then publishes an export
// message. The store write is authoritative: a publish failure is logged
// and the day stays closed.
type Exporter struct {
	writer    store.Writer
	publisher Publisher
	logger    *log.Logger
}

// NewExporter creates an exporter. publisher may be nil, in which case
// days are closed locally without being exported.
func NewExporter(writer store.Writer, publisher Publisher, logger *log.Logger) *Exporter {
	return &Exporter{
		writer:    writer,
		publisher: publisher,
		logger:    logger,
	}
}

// CloseDay finalizes the record for the date and queues it for export.
func (e *Exporter) CloseDay(ctx context.Context, userID string, date core.Date) error {
	if userID == "" {
		return core.ErrEmptyUserID
	}
	if err := date.Validate(); err != nil {
		return err
	}

	if err := e.writer.CloseDailyRecord(ctx, userID, date); err != nil {
		return fmt.Errorf("close daily record: %w", err)
	}

	e.logger.InfoContext(ctx, "Closed daily record", "user_id", userID, "date", date.String())

	if e.publisher == nil {
		return nil
	}

	if err := e.publisher.PublishDayExport(ctx, userID, date.String()); err != nil {
		// The record is already closed; the export can be retried later.
		e.logger.ErrorContext(ctx, "Failed to publish day export",
			"user_id", userID,
			"date", date.String(),
			"error", err)
	}

	return nil
}
