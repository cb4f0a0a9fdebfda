// Package sheets defines the outbound port for the spreadsheet backend.
package sheets

import (
	"context"
	"errors"
)

// ErrSheetNotFound is returned when an operation targets a sheet title the
// spreadsheet does not contain. Callers that treat missing periods as empty
// (year series) match on it with errors.Is.
var ErrSheetNotFound = errors.New("sheet not found")

// IsNotFound reports whether err wraps ErrSheetNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSheetNotFound)
}

// Backend is the narrow interface the core consumes. Every call is a
// synchronous request/response; there is no transaction spanning calls
// (create-sheet-then-write-header is two calls, not atomic).
type Backend interface {
	// ListSheets returns the titles of all sheets in the spreadsheet.
	ListSheets(ctx context.Context) ([]string, error)

	// CreateSheet adds a new, empty sheet with the given title.
	CreateSheet(ctx context.Context, title string) error

	// ReadRange returns the rows of a column range, e.g. ("2026-08", "A:F").
	// Cells come back as strings regardless of how they were written.
	ReadRange(ctx context.Context, title, colRange string) ([][]string, error)

	// AppendRow appends one row after the existing data of the range.
	AppendRow(ctx context.Context, title, colRange string, values []any) error

	// UpdateRange overwrites a cell range, e.g. ("2026-08", "B4:F4"), with
	// one row of values.
	UpdateRange(ctx context.Context, title, cellRange string, values []any) error

	// DeleteRow removes exactly one 1-based row, shifting later rows up.
	DeleteRow(ctx context.Context, title string, row int) error
}
