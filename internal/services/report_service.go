package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"expensebot/internal/callback"
	"expensebot/internal/core"
)

// SummaryMenu returns the period choices for /summary.
func (s *EntryService) SummaryMenu() Reply {
	return Reply{
		Text: "📈 Select period for summary:",
		Choices: [][]Choice{
			{{Label: "Current Month", Data: callback.Encode(callback.ShowSummary{Period: "current"})}},
			{{Label: "Last Month", Data: callback.Encode(callback.ShowSummary{Period: "last"})}},
			{{Label: "Last 3 Months", Data: callback.Encode(callback.ShowSummary{Period: "last3"})}},
			{{Label: "Current Year", Data: callback.Encode(callback.ShowSummary{Period: "year"})}},
			{{Label: "Last Year", Data: callback.Encode(callback.ShowSummary{Period: "lastyear"})}},
		},
	}
}

// ShowSummary renders the summary for one of the menu periods.
func (s *EntryService) ShowSummary(ctx context.Context, period string) (Reply, error) {
	now := s.now()
	var b strings.Builder
	b.WriteString("📈 Expense Summary\n\n")

	switch period {
	case "current":
		if err := s.writeMonthSummary(ctx, &b, "Current Month", core.MonthKey(now)); err != nil {
			return Reply{}, err
		}
	case "last":
		if err := s.writeMonthSummary(ctx, &b, "Last Month", core.MonthsBack(now, 1)); err != nil {
			return Reply{}, err
		}
	case "last3":
		for n := 0; n < 3; n++ {
			key := core.MonthsBack(now, n)
			sum, err := s.reports.MonthTotals(ctx, key)
			if err != nil {
				return Reply{}, err
			}
			fmt.Fprintf(&b, "%s: ₹%s\n", key, sum.Total)
		}
	case "year":
		if err := s.writeYearSummary(ctx, &b, now.Year()); err != nil {
			return Reply{}, err
		}
	case "lastyear":
		if err := s.writeYearSummary(ctx, &b, now.Year()-1); err != nil {
			return Reply{}, err
		}
	default:
		return Reply{Text: "❌ Unknown summary period."}, nil
	}
	return Reply{Text: b.String()}, nil
}

func (s *EntryService) writeMonthSummary(ctx context.Context, b *strings.Builder, label, key string) error {
	sum, err := s.reports.MonthTotals(ctx, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(b, "%s (%s)\nTotal Expenses: ₹%s\n\nBy User:\n", label, key, sum.Total)
	for _, user := range sortedKeys(sum.ByUser) {
		fmt.Fprintf(b, "%s: ₹%s\n", user, sum.ByUser[user])
	}
	if sum.Skipped > 0 {
		fmt.Fprintf(b, "\n(%d rows skipped)\n", sum.Skipped)
	}
	return nil
}

func (s *EntryService) writeYearSummary(ctx context.Context, b *strings.Builder, year int) error {
	series, err := s.reports.YearSeries(ctx, year)
	if err != nil {
		return err
	}
	var total core.Money
	fmt.Fprintf(b, "Year %d\n", year)
	for _, mt := range series {
		total = total.Add(mt.Total)
		if mt.Total.Cents > 0 {
			fmt.Fprintf(b, "%04d-%02d: ₹%s\n", year, mt.Month, mt.Total)
		}
	}
	fmt.Fprintf(b, "\nTotal: ₹%s\n", total)
	return nil
}

// CompareMenu returns the comparison choices for /compare.
func (s *EntryService) CompareMenu() Reply {
	return Reply{
		Text: "📊 Select comparison:",
		Choices: [][]Choice{
			{{Label: "Current vs Last Month", Data: callback.Encode(callback.ShowComparison{Choice: "last1"})}},
			{{Label: "Last Month vs Previous", Data: callback.Encode(callback.ShowComparison{Choice: "last2"})}},
			{{Label: "Current Year Monthly", Data: callback.Encode(callback.ShowComparison{Choice: "year"})}},
		},
	}
}

// ShowComparison renders one of the comparison views. The percent change
// is reported as not calculable when the base period has no expenses.
func (s *EntryService) ShowComparison(ctx context.Context, choice string) (Reply, error) {
	now := s.now()
	switch choice {
	case "last1":
		return s.compareReply(ctx, core.MonthKey(now), core.MonthsBack(now, 1))
	case "last2":
		return s.compareReply(ctx, core.MonthsBack(now, 1), core.MonthsBack(now, 2))
	case "year":
		var b strings.Builder
		b.WriteString("📊 Monthly totals\n\n")
		if err := s.writeYearSummary(ctx, &b, now.Year()); err != nil {
			return Reply{}, err
		}
		return Reply{Text: b.String()}, nil
	default:
		return Reply{Text: "❌ Unknown comparison."}, nil
	}
}

func (s *EntryService) compareReply(ctx context.Context, periodA, periodB string) (Reply, error) {
	cmp, err := s.reports.Compare(ctx, periodA, periodB)
	if err != nil {
		return Reply{}, err
	}
	var b strings.Builder
	b.WriteString("📊 Expense Comparison\n\n")
	fmt.Fprintf(&b, "%s\nTotal: ₹%s\n\n", cmp.PeriodA, cmp.TotalA)
	fmt.Fprintf(&b, "%s\nTotal: ₹%s\n\n", cmp.PeriodB, cmp.TotalB)
	if cmp.PercentDefined {
		arrow := "📈"
		if cmp.Negative {
			arrow = "📉"
		}
		fmt.Fprintf(&b, "%s Change: %+.1f%%", arrow, cmp.Percent)
	} else {
		b.WriteString("Unable to calculate change: no expenses in the base month")
	}
	return Reply{Text: b.String()}, nil
}

// CategoryBreakdown renders per-category totals for the current month,
// with each category's share of the total.
func (s *EntryService) CategoryBreakdown(ctx context.Context) (Reply, error) {
	key := core.MonthKey(s.now())
	totals, err := s.reports.CategoryTotals(ctx, key)
	if err != nil {
		return Reply{}, err
	}
	if len(totals) == 0 {
		return Reply{Text: fmt.Sprintf("No expenses recorded for %s yet.", key)}, nil
	}

	var grand core.Money
	for _, amount := range totals {
		grand = grand.Add(amount)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Categories for %s\nTotal: ₹%s\n\n", key, grand)
	for _, cat := range sortedKeys(totals) {
		amount := totals[cat]
		pct := 0.0
		if grand.Cents > 0 {
			pct = float64(amount.Cents) / float64(grand.Cents) * 100.0
		}
		fmt.Fprintf(&b, "%s: ₹%s (%.1f%%)\n", cat, amount, pct)
	}
	return Reply{Text: b.String()}, nil
}

// InvestmentSummary renders the current year's overview sheet totals.
func (s *EntryService) InvestmentSummary(ctx context.Context) (Reply, error) {
	year := s.now().Year()
	sum, err := s.reports.InvestmentTotals(ctx, year)
	if err != nil {
		return Reply{}, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Investments %d\n\nInvested: ₹%s\nReturns: ₹%s\n", year, sum.Invested, sum.Returns)
	if sum.Invested.Cents > 0 {
		roi := float64(sum.Returns.Cents) / float64(sum.Invested.Cents) * 100.0
		fmt.Fprintf(&b, "ROI: %.1f%%\n", roi)
	} else {
		b.WriteString("ROI: unable to calculate\n")
	}
	if len(sum.ByCategory) > 0 {
		b.WriteString("\nBy Category:\n")
		for _, cat := range sortedKeys(sum.ByCategory) {
			fmt.Fprintf(&b, "• %s: ₹%s\n", cat, sum.ByCategory[cat])
		}
	}
	return Reply{Text: b.String()}, nil
}

// LoanSummary renders totals of the loan repayment sheet.
func (s *EntryService) LoanSummary(ctx context.Context) (Reply, error) {
	sum, err := s.reports.LoanTotals(ctx)
	if err != nil {
		return Reply{}, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Loan Repayments\n\nTotal: ₹%s\n", sum.Total)
	if len(sum.ByCategory) > 0 {
		b.WriteString("\nBy Category:\n")
		for _, cat := range sortedKeys(sum.ByCategory) {
			fmt.Fprintf(&b, "• %s: ₹%s\n", cat, sum.ByCategory[cat])
		}
	}
	return Reply{Text: b.String()}, nil
}

func sortedKeys(m map[string]core.Money) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
