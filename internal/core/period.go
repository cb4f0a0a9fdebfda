package core

import (
	"fmt"
	"time"
)

// LoanSheet is the single unscoped collection for loan repayments.
const LoanSheet = "Loan Repayment"

// MonthKey returns the period sheet title for ordinary expenses, e.g. "2026-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// OverviewKey returns the yearly investment sheet title, e.g. "2026 Overview".
func OverviewKey(year int) string {
	return fmt.Sprintf("%d Overview", year)
}

// MonthsBack returns the month key n months before now, computed by stepping
// to the last day of the previous month n times. It lands on the n-th prior
// calendar month regardless of day-of-month skew: stepping back from March
// 31st must not skip February.
func MonthsBack(now time.Time, n int) string {
	t := now
	for i := 0; i < n; i++ {
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 0, -1)
	}
	return MonthKey(t)
}

// MonthKeysOfYear returns the twelve month keys of a calendar year in order.
func MonthKeysOfYear(year int) []string {
	keys := make([]string, 0, 12)
	for m := time.January; m <= time.December; m++ {
		keys = append(keys, fmt.Sprintf("%04d-%02d", year, int(m)))
	}
	return keys
}
