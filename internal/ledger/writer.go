// Package ledger commits entries to period sheets, provisioning each sheet
// (with its header row) lazily on first write.
package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"expensebot/internal/core"
	"expensebot/internal/sheets"
)

// Column layouts per sheet kind. Header text is fixed and written verbatim
// when a sheet is first created.
var (
	ExpenseHeader    = []string{"Date", "Amount", "Description", "Category", "User", "Details"}
	InvestmentHeader = []string{"Date", "Amount", "Category", "User", "Description", "Returns", "Return Date"}
	LoanHeader       = []string{"Date", "Amount", "User", "Category", "Description"}
)

// Teacher records description-to-category pairs so that every committed
// entry becomes a future auto-classification rule.
type Teacher interface {
	Known(description string) bool
	Teach(ctx context.Context, description, category string) error
}

type Writer struct {
	backend sheets.Backend
	teacher Teacher
}

func NewWriter(backend sheets.Backend, teacher Teacher) *Writer {
	return &Writer{backend: backend, teacher: teacher}
}

// EnsureSheet makes sure a period sheet exists with its header row.
// Idempotent: the existence check runs before every write, the expensive
// creation happens once. Creation plus header write is two backend calls;
// two near-simultaneous first writes can race, which is accepted at the
// expected single-small-group write rate.
func (w *Writer) EnsureSheet(ctx context.Context, title string, header []string) error {
	titles, err := w.backend.ListSheets(ctx)
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}
	for _, t := range titles {
		if t == title {
			return nil
		}
	}

	if err := w.backend.CreateSheet(ctx, title); err != nil {
		return fmt.Errorf("create sheet %q: %w", title, err)
	}
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	cellRange := fmt.Sprintf("A1:%c1", 'A'+len(header)-1)
	if err := w.backend.UpdateRange(ctx, title, cellRange, row); err != nil {
		return fmt.Errorf("write header of %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Provisioned period sheet", "title", title)
	return nil
}

// AppendExpense commits an entry to its month sheet and teaches the
// resolver when the description key was not already known.
func (w *Writer) AppendExpense(ctx context.Context, e core.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	title := core.MonthKey(e.Date)
	if err := w.EnsureSheet(ctx, title, ExpenseHeader); err != nil {
		return err
	}
	row := []any{core.FormatDate(e.Date), e.Amount.Units(), e.Description, e.Category, e.User, e.Details}
	if err := w.backend.AppendRow(ctx, title, "A:F", row); err != nil {
		return fmt.Errorf("append expense: %w", err)
	}
	w.teachIfNew(ctx, e.Description, e.Category)
	return nil
}

// AppendInvestment commits an investment to its year overview sheet.
// Returns and return date are written empty; they are back-filled outside
// this system.
func (w *Writer) AppendInvestment(ctx context.Context, e core.InvestmentEntry) error {
	if e.Date.IsZero() {
		return fmt.Errorf("investment date cannot be zero")
	}
	title := core.OverviewKey(e.Date.Year())
	if err := w.EnsureSheet(ctx, title, InvestmentHeader); err != nil {
		return err
	}
	row := []any{core.FormatDate(e.Date), e.Amount.Units(), e.Category, e.User, e.Description, e.Returns, e.ReturnDate}
	if err := w.backend.AppendRow(ctx, title, "A:G", row); err != nil {
		return fmt.Errorf("append investment: %w", err)
	}
	return nil
}

// AppendLoan commits a loan payment to the single unscoped collection.
func (w *Writer) AppendLoan(ctx context.Context, p core.LoanPayment) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := w.EnsureSheet(ctx, core.LoanSheet, LoanHeader); err != nil {
		return err
	}
	row := []any{core.FormatDate(p.Date), p.Amount.Units(), p.User, p.Category, p.Description}
	if err := w.backend.AppendRow(ctx, core.LoanSheet, "A:E", row); err != nil {
		return fmt.Errorf("append loan payment: %w", err)
	}
	return nil
}

// LastRow holds the last data row of a month sheet and its 1-based index.
type LastRow struct {
	Row         int
	Date        string
	Amount      string
	Description string
	Category    string
	User        string
	Details     string
}

// LastEntry returns the last committed row of a month sheet, or nil when
// the sheet is absent or holds only its header.
func (w *Writer) LastEntry(ctx context.Context, title string) (*LastRow, error) {
	rows, err := w.backend.ReadRange(ctx, title, "A:F")
	if err != nil {
		if sheets.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %q: %w", title, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	lr := &LastRow{Row: len(rows)}
	for i, dst := range []*string{&lr.Date, &lr.Amount, &lr.Description, &lr.Category, &lr.User, &lr.Details} {
		if i < len(last) {
			*dst = last[i]
		}
	}
	return lr, nil
}

// UpdateEntry overwrites amount, description, category and details of one
// row. The user column is always re-written with the value the row already
// holds: edits never replace the original author's identity.
func (w *Writer) UpdateEntry(ctx context.Context, title string, row int, amount core.Money, description, category, details string) error {
	current, err := w.backend.ReadRange(ctx, title, fmt.Sprintf("A%d:F%d", row, row))
	if err != nil {
		return fmt.Errorf("read row %d of %q: %w", row, title, err)
	}
	user := ""
	if len(current) > 0 && len(current[0]) > 4 {
		user = current[0][4]
	}
	values := []any{amount.Units(), description, category, user, details}
	cellRange := fmt.Sprintf("B%d:F%d", row, row)
	if err := w.backend.UpdateRange(ctx, title, cellRange, values); err != nil {
		return fmt.Errorf("update row %d of %q: %w", row, title, err)
	}
	w.teachIfNew(ctx, description, category)
	return nil
}

// DeleteRow removes one row by position. The index comes from a snapshot
// taken when the delete was requested, so a confirmation landing after
// intervening writes can remove the wrong row; rows have no stable key, and
// the default flow only ever targets the last one.
func (w *Writer) DeleteRow(ctx context.Context, title string, row int) error {
	if err := w.backend.DeleteRow(ctx, title, row); err != nil {
		return fmt.Errorf("delete row %d of %q: %w", row, title, err)
	}
	return nil
}

func (w *Writer) teachIfNew(ctx context.Context, description, category string) {
	if w.teacher == nil || w.teacher.Known(description) {
		return
	}
	if err := w.teacher.Teach(ctx, description, category); err != nil {
		// The row is committed; a failed teach only costs a future prompt.
		slog.WarnContext(ctx, "Failed to teach category mapping",
			"description", description, "category", category, "error", err)
	}
}
