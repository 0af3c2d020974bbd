// Package sqlitesheet stores sheet tables in SQLite. Each table row is one
// sheet_rows record holding its cells as a JSON array; row order is insertion
// order.
package sqlitesheet

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vbonduro/pantry/internal/sheet"
)

type Workbook struct {
	db *sql.DB
}

func New(db *sql.DB) *Workbook {
	return &Workbook{db: db}
}

func (w *Workbook) Table(ctx context.Context, name string) (sheet.Table, error) {
	var count int
	err := w.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sheets WHERE name = ?
	`, name).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("failed to look up table %q: %w", name, err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: %s", sheet.ErrTableNotFound, name)
	}
	return &Table{db: w.db, name: name}, nil
}

func (w *Workbook) CreateTable(ctx context.Context, name string, header []string) (sheet.Table, error) {
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	encoded, err := json.Marshal(cells)
	if err != nil {
		return nil, fmt.Errorf("failed to encode header: %w", err)
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO sheets (name) VALUES (?)`, name); err != nil {
		return nil, fmt.Errorf("failed to create table %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet_name, cells) VALUES (?, ?)
	`, name, string(encoded)); err != nil {
		return nil, fmt.Errorf("failed to write header for %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit table %q: %w", name, err)
	}

	return &Table{db: w.db, name: name}, nil
}

type Table struct {
	db   *sql.DB
	name string
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Rows(ctx context.Context) ([][]any, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT cells FROM sheet_rows WHERE sheet_name = ? ORDER BY id ASC
	`, t.name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.name, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var out [][]any
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", t.name, err)
	}

	return out, nil
}

func (t *Table) Append(ctx context.Context, row []any) error {
	encoded, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	if _, err := t.db.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet_name, cells) VALUES (?, ?)
	`, t.name, string(encoded)); err != nil {
		return fmt.Errorf("failed to append to %s: %w", t.name, err)
	}
	return nil
}

func (t *Table) SetCell(ctx context.Context, row, col int, value any) error {
	if col < 0 {
		return fmt.Errorf("invalid column %d", col)
	}
	id, cells, err := t.rowAt(ctx, row)
	if err != nil {
		return err
	}

	for len(cells) <= col {
		cells = append(cells, nil)
	}
	cells[col] = value

	encoded, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("failed to encode row: %w", err)
	}
	if _, err := t.db.ExecContext(ctx, `
		UPDATE sheet_rows SET cells = ? WHERE id = ?
	`, string(encoded), id); err != nil {
		return fmt.Errorf("failed to update %s row %d: %w", t.name, row, err)
	}
	return nil
}

func (t *Table) DeleteRow(ctx context.Context, row int) error {
	id, _, err := t.rowAt(ctx, row)
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, `DELETE FROM sheet_rows WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete %s row %d: %w", t.name, row, err)
	}
	return nil
}

// rowAt resolves a positional row index to its record id.
func (t *Table) rowAt(ctx context.Context, row int) (int64, []any, error) {
	if row < 0 {
		return 0, nil, fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	var (
		id  int64
		raw string
	)
	err := t.db.QueryRowContext(ctx, `
		SELECT id, cells FROM sheet_rows WHERE sheet_name = ? ORDER BY id ASC LIMIT 1 OFFSET ?
	`, t.name, row).Scan(&id, &raw)
	if err == sql.ErrNoRows {
		return 0, nil, fmt.Errorf("%w: %d", sheet.ErrRowOutOfRange, row)
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to locate %s row %d: %w", t.name, row, err)
	}

	cells, err := decodeCells(raw)
	if err != nil {
		return 0, nil, err
	}
	return id, cells, nil
}

func decodeCells(raw string) ([]any, error) {
	var cells []any
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode row: %w", err)
	}
	return cells, nil
}
