// Package report aggregates daily records and fixed costs into the
// figures the report and history screens display.
package report

import (
	"guadagni/internal/core"
)

// DayReport is the per-day profit breakdown: gross earnings minus
// itemized expenses minus the day's share of monthly fixed costs.
type DayReport struct {
	Date           core.Date
	Earnings       core.Money
	ExpenseTotal   core.Money
	FixedCostShare core.Money
	Net            core.Money
	Mileage        int64
	Closed         bool
}

// PeriodSummary aggregates a run of daily records for the history screen.
type PeriodSummary struct {
	Days           int
	Earnings       core.Money
	ExpenseTotal   core.Money
	FixedCostShare core.Money
	Net            core.Money
	Mileage        int64
}

// BuildDayReport computes the report for one record. The fixed-cost share
// is the monthly total prorated over the record month's number of days,
// rounded half-up to the cent.
func BuildDayReport(record core.DailyRecord, costs []core.FixedCost) DayReport {
	expenses := record.ExpenseTotal()
	share := dailyShare(costs, record.Date)

	return DayReport{
		Date:           record.Date,
		Earnings:       record.Earnings,
		ExpenseTotal:   expenses,
		FixedCostShare: share,
		Net:            core.Money{Cents: record.Earnings.Cents - expenses.Cents - share.Cents},
		Mileage:        record.Mileage,
		Closed:         record.IsClosed,
	}
}

// BuildPeriodSummary sums day reports over the given records.
func BuildPeriodSummary(records []core.DailyRecord, costs []core.FixedCost) PeriodSummary {
	var out PeriodSummary
	for _, r := range records {
		day := BuildDayReport(r, costs)
		out.Days++
		out.Earnings.Cents += day.Earnings.Cents
		out.ExpenseTotal.Cents += day.ExpenseTotal.Cents
		out.FixedCostShare.Cents += day.FixedCostShare.Cents
		out.Net.Cents += day.Net.Cents
		out.Mileage += day.Mileage
	}
	return out
}

func dailyShare(costs []core.FixedCost, date core.Date) core.Money {
	var monthly int64
	for _, c := range costs {
		monthly += c.MonthlyAmount.Cents
	}
	days := int64(date.DaysInMonth())
	if days == 0 {
		return core.Money{}
	}
	return core.Money{Cents: (monthly + days/2) / days}
}
