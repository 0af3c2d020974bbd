// Package gsheets stores sheet tables in a Google Sheets spreadsheet, one tab
// per table.
package gsheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/vbonduro/pantry/internal/sheet"
)

const (
	valueInputRaw    = "RAW"
	renderUnformated = "UNFORMATTED_VALUE"
)

type Workbook struct {
	svc           *sheets.Service
	spreadsheetID string
}

func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Workbook, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &Workbook{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (w *Workbook) Table(ctx context.Context, name string) (sheet.Table, error) {
	ss, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == name {
			return w.table(name, s.Properties.SheetId), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", sheet.ErrTableNotFound, name)
}

func (w *Workbook) CreateTable(ctx context.Context, name string, header []string) (sheet.Table, error) {
	resp, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: name},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to add sheet %q: %w", name, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return nil, fmt.Errorf("add sheet %q: empty reply", name)
	}

	t := w.table(name, resp.Replies[0].AddSheet.Properties.SheetId)
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := t.Append(ctx, row); err != nil {
		return nil, err
	}
	return t, nil
}

func (w *Workbook) table(name string, sheetID int64) *Table {
	return &Table{svc: w.svc, spreadsheetID: w.spreadsheetID, name: name, sheetID: sheetID}
}

type Table struct {
	svc           *sheets.Service
	spreadsheetID string
	name          string
	sheetID       int64
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Rows(ctx context.Context) ([][]any, error) {
	resp, err := t.svc.Spreadsheets.Values.Get(t.spreadsheetID, quoteName(t.name)).
		ValueRenderOption(renderUnformated).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.name, err)
	}
	return resp.Values, nil
}

func (t *Table) Append(ctx context.Context, row []any) error {
	_, err := t.svc.Spreadsheets.Values.Append(t.spreadsheetID, quoteName(t.name), &sheets.ValueRange{
		Values: [][]any{row},
	}).ValueInputOption(valueInputRaw).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", t.name, err)
	}
	return nil
}

func (t *Table) SetCell(ctx context.Context, row, col int, value any) error {
	if row < 0 {
		return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	if col < 0 {
		return fmt.Errorf("invalid column %d", col)
	}
	cell := fmt.Sprintf("%s!%s%d", quoteName(t.name), columnLetter(col), row+1)
	_, err := t.svc.Spreadsheets.Values.Update(t.spreadsheetID, cell, &sheets.ValueRange{
		Values: [][]any{{value}},
	}).ValueInputOption(valueInputRaw).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", cell, err)
	}
	return nil
}

func (t *Table) DeleteRow(ctx context.Context, row int) error {
	if row < 0 {
		return fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	_, err := t.svc.Spreadsheets.BatchUpdate(t.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    t.sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row) + 1,
					// The first tab has sheet id 0 and the header is row 0;
					// both would otherwise be dropped as empty values.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to delete %s row %d: %w", t.name, row, err)
	}
	return nil
}

// quoteName turns a sheet title into an A1 range covering the whole sheet.
func quoteName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// columnLetter converts a 0-based column index to A1 letters (0 -> A, 26 -> AA).
func columnLetter(col int) string {
	var b []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}
