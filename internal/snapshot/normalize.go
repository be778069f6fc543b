package snapshot

import (
	"context"
	"log/slog"
	"strings"

	"guadagni/internal/core"
	"guadagni/internal/store"
)

// normalize converts raw remote rows into the canonical model. It never
// fails: unexpected shapes are logged and replaced by the field's default
// (zero for decimals, false for flags), and rows without a usable date
// are dropped. Unnormalized shapes must not leak past this file.
func normalize(ctx context.Context, profile *store.ProfileRow, costs []store.FixedCostRow, records []store.DailyRecordRow) core.AppState {
	state := core.Empty()

	if profile != nil {
		state.User = &core.User{
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Email:     profile.Email,
			Phone:     profile.Phone,
		}
	}

	state.FixedCosts = NormalizeFixedCosts(ctx, costs)
	state.DailyRecords = NormalizeDailyRecords(ctx, records)

	return state
}

// NormalizeFixedCosts converts raw fixed cost rows into the canonical
// model with the uniform decimal fallback.
func NormalizeFixedCosts(ctx context.Context, costs []store.FixedCostRow) []core.FixedCost {
	out := make([]core.FixedCost, 0, len(costs))
	for _, c := range costs {
		out = append(out, core.FixedCost{
			ID:            c.ID,
			Name:          c.Name,
			MonthlyAmount: decimalOrZero(ctx, "monthly_amount", c.MonthlyAmount),
		})
	}
	return out
}

// NormalizeDailyRecords converts raw daily record rows. Rows arrive date
// descending; the first row for a date wins so the result holds at most
// one record per calendar date.
func NormalizeDailyRecords(ctx context.Context, records []store.DailyRecordRow) []core.DailyRecord {
	out := make([]core.DailyRecord, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		date, err := core.ParseDate(r.Date)
		if err != nil {
			slog.WarnContext(ctx, "Dropping daily record with unusable date", "date", r.Date)
			continue
		}
		if _, dup := seen[date.String()]; dup {
			slog.WarnContext(ctx, "Dropping duplicate daily record", "date", date.String())
			continue
		}
		seen[date.String()] = struct{}{}

		record := core.DailyRecord{
			Date:     date,
			Earnings: decimalOrZero(ctx, "earnings", r.Earnings),
			Mileage:  r.Mileage,
			IsClosed: truthy(r.IsClosed),
			Expenses: []core.Expense{},
		}
		for _, e := range r.Expenses {
			record.Expenses = append(record.Expenses, core.Expense{
				ID:     e.ID,
				Type:   core.ExpenseType(e.Type),
				Amount: decimalOrZero(ctx, "amount", e.Amount),
			})
		}
		out = append(out, record)
	}
	return out
}

// decimalOrZero applies the uniform numeric fallback: a missing or
// malformed decimal becomes zero, with a warning, instead of failing the
// whole load.
func decimalOrZero(ctx context.Context, field, raw string) core.Money {
	if strings.TrimSpace(raw) == "" {
		return core.Money{}
	}
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		slog.WarnContext(ctx, "Malformed decimal in remote row, falling back to zero",
			"field", field, "value", raw)
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

// truthy coerces the remote's assorted boolean encodings.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "t" || s == "1"
	case nil:
		return false
	default:
		slog.Warn("Unexpected is_closed shape, treating as false", "value", v)
		return false
	}
}
