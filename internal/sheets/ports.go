// Package sheets defines the spreadsheet port the export worker writes
// closed days to.
package sheets

import (
	"context"

	"guadagni/internal/report"
)

// DayAppender appends one closed-day report as a spreadsheet row and
// returns a reference to the written range.
type DayAppender interface {
	AppendDay(ctx context.Context, rep report.DayReport) (string, error)
}
