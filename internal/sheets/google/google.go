// Package google adapts the sheets.Backend port to the Google Sheets v4 API
// using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expensebot/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ sheets.Backend = (*Client)(nil)

// New creates a client for one spreadsheet using a service account
// credentials file.
func New(ctx context.Context, spreadsheetID, credentialsPath string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(credentialsPath) == "" {
		return nil, errors.New("missing credentials path")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsFile(credentialsPath),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) ListSheets(ctx context.Context) ([]string, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	titles := make([]string, 0, len(meta.Sheets))
	for _, s := range meta.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (c *Client) CreateSheet(ctx context.Context, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet", "title", title)
	return nil
}

func (c *Client) ReadRange(ctx context.Context, title, colRange string) ([][]string, error) {
	rng := fmt.Sprintf("%s!%s", title, colRange)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if nf := asNotFound(err, title); nf != nil {
			return nil, nf
		}
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cols := make([]string, len(row))
		for i, v := range row {
			cols[i] = strings.TrimSpace(fmt.Sprint(v))
		}
		out = append(out, cols)
	}
	return out, nil
}

func (c *Client) AppendRow(ctx context.Context, title, colRange string, values []any) error {
	rng := fmt.Sprintf("%s!%s", title, colRange)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		if nf := asNotFound(err, title); nf != nil {
			return nf
		}
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	return nil
}

func (c *Client) UpdateRange(ctx context.Context, title, cellRange string, values []any) error {
	rng := fmt.Sprintf("%s!%s", title, cellRange)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		if nf := asNotFound(err, title); nf != nil {
			return nf
		}
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) DeleteRow(ctx context.Context, title string, row int) error {
	sheetID, err := c.sheetID(ctx, title)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %q: %w", row, title, err)
	}
	return nil
}

// asNotFound translates a value-range call failing against a missing sheet
// title into the port's not-found error. The API reports that case as a
// 400 range-parse failure, not a 404.
func asNotFound(err error, title string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 400 && strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, title)
	}
	return nil
}

// sheetID resolves a sheet title to its numeric id, which the delete
// request needs where value operations take titles.
func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, title)
}
