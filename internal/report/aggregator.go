// Package report reads committed rows back out of period sheets and
// reduces them into totals, per-user splits and per-category splits.
//
// Rows whose amount cell does not parse are skipped and counted, never
// fatal: one garbled row must not take down a whole summary.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"expensebot/internal/core"
	"expensebot/internal/sheets"
)

type Aggregator struct {
	backend sheets.Backend
}

func NewAggregator(backend sheets.Backend) *Aggregator {
	return &Aggregator{backend: backend}
}

type (
	// MonthSummary is the total of one month sheet plus per-user buckets.
	MonthSummary struct {
		Period  string
		Total   core.Money
		ByUser  map[string]core.Money
		Skipped int // rows dropped because their amount did not parse
	}

	// Comparison holds two period totals and their delta. PercentDefined is
	// false when the base total is zero and no percentage can be computed.
	Comparison struct {
		PeriodA, PeriodB string
		TotalA, TotalB   core.Money
		Delta            core.Money
		Negative         bool
		Percent          float64
		PercentDefined   bool
	}

	// MonthTotal is one point of a year series.
	MonthTotal struct {
		Month int
		Total core.Money
	}

	// InvestmentSummary aggregates a year overview sheet.
	InvestmentSummary struct {
		Year       int
		Invested   core.Money
		Returns    core.Money
		ByCategory map[string]core.Money
		Skipped    int
	}

	// LoanSummary aggregates the unscoped loan repayment sheet.
	LoanSummary struct {
		Total      core.Money
		ByCategory map[string]core.Money
		Skipped    int
	}
)

// MonthTotals sums a month sheet and buckets amounts by user. A missing
// sheet counts as an empty month.
func (a *Aggregator) MonthTotals(ctx context.Context, period string) (MonthSummary, error) {
	sum := MonthSummary{Period: period, ByUser: make(map[string]core.Money)}
	rows, err := a.readDataRows(ctx, period, "A:F")
	if err != nil {
		return MonthSummary{}, err
	}
	for _, row := range rows {
		amount, ok := a.rowAmount(ctx, period, row)
		if !ok {
			sum.Skipped++
			continue
		}
		user := cell(row, 4)
		if user == "" {
			user = "Unknown"
		}
		sum.Total = sum.Total.Add(amount)
		sum.ByUser[user] = sum.ByUser[user].Add(amount)
	}
	return sum, nil
}

// CategoryTotals buckets a month sheet by category with the same
// skip-on-error policy as MonthTotals.
func (a *Aggregator) CategoryTotals(ctx context.Context, period string) (map[string]core.Money, error) {
	rows, err := a.readDataRows(ctx, period, "A:F")
	if err != nil {
		return nil, err
	}
	totals := make(map[string]core.Money)
	for _, row := range rows {
		amount, ok := a.rowAmount(ctx, period, row)
		if !ok {
			continue
		}
		cat := cell(row, 3)
		if cat == "" {
			cat = "Uncategorized"
		}
		totals[cat] = totals[cat].Add(amount)
	}
	return totals, nil
}

// Compare totals two periods. The percent delta is relative to periodB and
// undefined when that total is zero.
func (a *Aggregator) Compare(ctx context.Context, periodA, periodB string) (Comparison, error) {
	sumA, err := a.MonthTotals(ctx, periodA)
	if err != nil {
		return Comparison{}, err
	}
	sumB, err := a.MonthTotals(ctx, periodB)
	if err != nil {
		return Comparison{}, err
	}
	cmp := Comparison{
		PeriodA: periodA, PeriodB: periodB,
		TotalA: sumA.Total, TotalB: sumB.Total,
	}
	diff := sumA.Total.Cents - sumB.Total.Cents
	if diff < 0 {
		cmp.Negative = true
		diff = -diff
	}
	cmp.Delta = core.Money{Cents: diff}
	if sumB.Total.Cents != 0 {
		cmp.Percent = float64(sumA.Total.Cents-sumB.Total.Cents) / float64(sumB.Total.Cents) * 100.0
		cmp.PercentDefined = true
	}
	return cmp, nil
}

// YearSeries totals all twelve months of a year in calendar order. Months
// without a backing sheet contribute zero.
func (a *Aggregator) YearSeries(ctx context.Context, year int) ([]MonthTotal, error) {
	series := make([]MonthTotal, 0, 12)
	for i, key := range core.MonthKeysOfYear(year) {
		sum, err := a.MonthTotals(ctx, key)
		if err != nil {
			return nil, err
		}
		series = append(series, MonthTotal{Month: i + 1, Total: sum.Total})
	}
	return series, nil
}

// InvestmentTotals aggregates the year overview sheet: amount in column B,
// category in column C, returns in column F.
func (a *Aggregator) InvestmentTotals(ctx context.Context, year int) (InvestmentSummary, error) {
	sum := InvestmentSummary{Year: year, ByCategory: make(map[string]core.Money)}
	title := core.OverviewKey(year)
	rows, err := a.readDataRows(ctx, title, "A:G")
	if err != nil {
		return InvestmentSummary{}, err
	}
	for _, row := range rows {
		amount, ok := core.ParseCellAmount(cell(row, 1))
		if !ok {
			sum.Skipped++
			continue
		}
		sum.Invested = sum.Invested.Add(amount)
		cat := cell(row, 2)
		if cat == "" {
			cat = "Uncategorized"
		}
		sum.ByCategory[cat] = sum.ByCategory[cat].Add(amount)
		if ret, ok := core.ParseCellAmount(cell(row, 5)); ok {
			sum.Returns = sum.Returns.Add(ret)
		}
	}
	return sum, nil
}

// LoanTotals aggregates the whole loan repayment sheet by category
// (column D; amount in column B).
func (a *Aggregator) LoanTotals(ctx context.Context) (LoanSummary, error) {
	sum := LoanSummary{ByCategory: make(map[string]core.Money)}
	rows, err := a.readDataRows(ctx, core.LoanSheet, "A:E")
	if err != nil {
		return LoanSummary{}, err
	}
	for _, row := range rows {
		amount, ok := core.ParseCellAmount(cell(row, 1))
		if !ok {
			sum.Skipped++
			continue
		}
		sum.Total = sum.Total.Add(amount)
		cat := cell(row, 3)
		if cat == "" {
			cat = "Uncategorized"
		}
		sum.ByCategory[cat] = sum.ByCategory[cat].Add(amount)
	}
	return sum, nil
}

// readDataRows reads a sheet and strips the header row. Missing sheets
// read as empty.
func (a *Aggregator) readDataRows(ctx context.Context, title, colRange string) ([][]string, error) {
	rows, err := a.backend.ReadRange(ctx, title, colRange)
	if err != nil {
		if sheets.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

func (a *Aggregator) rowAmount(ctx context.Context, period string, row []string) (core.Money, bool) {
	amount, ok := core.ParseCellAmount(cell(row, 1))
	if !ok {
		slog.WarnContext(ctx, "Skipping row with unparseable amount",
			"period", period, "amount", cell(row, 1))
	}
	return amount, ok
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
