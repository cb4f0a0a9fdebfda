// Package memory implements sheets.Backend in process memory. It backs the
// tests and local development runs where no Google credentials exist.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"expensebot/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	order  []string
	sheets map[string][][]string
}

var _ sheets.Backend = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]string)}
}

// Seed creates a sheet with the given rows, replacing any existing content.
// Test helper; not part of the Backend port.
func (s *Store) Seed(title string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[title]; !ok {
		s.order = append(s.order, title)
	}
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	s.sheets[title] = copied
}

func (s *Store) ListSheets(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func (s *Store) CreateSheet(_ context.Context, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[title]; ok {
		return fmt.Errorf("sheet %q already exists", title)
	}
	s.order = append(s.order, title)
	s.sheets[title] = nil
	return nil
}

func (s *Store) ReadRange(_ context.Context, title, colRange string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, title)
	}
	startCol, startRow, endCol, endRow, err := parseRange(colRange)
	if err != nil {
		return nil, err
	}
	if endRow == 0 || endRow > len(rows) {
		endRow = len(rows)
	}
	if startRow > endRow {
		return nil, nil
	}
	out := make([][]string, 0, endRow-startRow+1)
	for _, r := range rows[startRow-1 : endRow] {
		lo, hi := startCol, endCol+1
		if lo > len(r) {
			lo = len(r)
		}
		if hi > len(r) {
			hi = len(r)
		}
		out = append(out, append([]string(nil), r[lo:hi]...))
	}
	return out, nil
}

func (s *Store) AppendRow(_ context.Context, title, _ string, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[title]; !ok {
		return fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, title)
	}
	s.sheets[title] = append(s.sheets[title], toStrings(values))
	return nil
}

// UpdateRange supports the single-row ranges the writer issues, e.g. "B4:F4"
// or "A1:F1". The leading column gives the first cell to overwrite.
func (s *Store) UpdateRange(_ context.Context, title, cellRange string, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, title)
	}
	col, row, err := parseCellRef(cellRange)
	if err != nil {
		return err
	}
	for len(rows) < row {
		rows = append(rows, nil)
	}
	line := rows[row-1]
	for len(line) < col+len(values) {
		line = append(line, "")
	}
	for i, v := range values {
		line[col+i] = fmt.Sprint(v)
	}
	rows[row-1] = line
	s.sheets[title] = rows
	return nil
}

func (s *Store) DeleteRow(_ context.Context, title string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[title]
	if !ok {
		return fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, title)
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("row %d out of range for %q", row, title)
	}
	s.sheets[title] = append(rows[:row-1], rows[row:]...)
	return nil
}

func toStrings(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// parseRange reads a range of the forms "A:F", "A2:B" or "A4:F4" into a
// zero-based column window and a 1-based row window. A missing start row
// means 1; a missing end row means the whole sheet (returned as 0).
func parseRange(r string) (startCol, startRow, endCol, endRow int, err error) {
	start, end, ok := strings.Cut(r, ":")
	if !ok {
		end = start
	}
	startCol, startRow, err = parseRef(start)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	endCol, endRow, err = parseRef(end)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if startRow == 0 {
		startRow = 1
	}
	return startCol, startRow, endCol, endRow, nil
}

// parseRef reads one range endpoint like "A", "B4". The row is 0 when the
// endpoint carries no digits.
func parseRef(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	if col == 0 || i < len(ref) && (ref[i] < '0' || ref[i] > '9') {
		return 0, 0, fmt.Errorf("bad range endpoint %q", ref)
	}
	col--
	for i < len(ref) && ref[i] >= '0' && ref[i] <= '9' {
		row = row*10 + int(ref[i]-'0')
		i++
	}
	return col, row, nil
}

// parseCellRef reads the first cell of a range like "B4:F4", returning the
// zero-based column offset and the 1-based row.
func parseCellRef(cellRange string) (col, row int, err error) {
	start, _, _ := strings.Cut(cellRange, ":")
	col, row, err = parseRef(start)
	if err == nil && row == 0 {
		err = fmt.Errorf("bad cell range %q", cellRange)
	}
	return col, row, err
}
