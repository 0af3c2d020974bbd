package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/vbonduro/pantry/internal/sheet"
)

var ErrNotFound = errors.New("item not found")

const (
	InventoryTable       = "Inventory"
	ShoppingListTable    = "ShoppingList"
	MealSuggestionsTable = "MealSuggestions"
)

// Column order of every table. Cells are read and written by these
// positions; the header row written at setup carries the same names.
var (
	InventoryColumns = []string{
		"id", "item", "quantity", "unit", "minQuantity",
		"store", "category", "priority", "dateAdded",
		"lastUpdated", "addedBy", "notes",
	}
	ShoppingListColumns = []string{
		"id", "item", "quantityNeeded", "unit", "store",
		"category", "priority", "dateAdded", "purchased", "datePurchased",
	}
	MealSuggestionColumns = []string{
		"timestamp", "meal1", "meal2", "meal3", "ingredientsAvailable",
	}
)

// Inventory column positions.
const (
	invID = iota
	invItem
	invQuantity
	invUnit
	invMinQuantity
	invStore
	invCategory
	invPriority
	invDateAdded
	invLastUpdated
	invAddedBy
	invNotes
)

// ShoppingList column positions.
const (
	shopID = iota
	shopItem
	shopQuantityNeeded
	shopUnit
	shopStore
	shopCategory
	shopPriority
	shopDateAdded
	shopPurchased
	shopDatePurchased
)

// MealSuggestions column positions.
const (
	mealTimestamp = iota
	mealMeal1
	mealMeal2
	mealMeal3
	mealIngredients
)

type schema struct {
	table   string
	columns []string
}

var schemas = []schema{
	{table: InventoryTable, columns: InventoryColumns},
	{table: ShoppingListTable, columns: ShoppingListColumns},
	{table: MealSuggestionsTable, columns: MealSuggestionColumns},
}

// fit pads a row to the schema width and drops cells past the last known
// column. Spreadsheets trim trailing empty cells, so short rows are normal;
// long rows are logged.
func (s schema) fit(logger *slog.Logger, index int, row []any) []any {
	if len(row) > len(s.columns) {
		logger.Warn("row wider than schema",
			"table", s.table, "row", index, "cells", len(row), "columns", len(s.columns))
		row = row[:len(s.columns)]
	}
	out := make([]any, len(s.columns))
	copy(out, row)
	return out
}

// checkHeader logs when the stored header no longer matches the schema.
func (s schema) checkHeader(logger *slog.Logger, rows [][]any) {
	if len(rows) == 0 {
		return
	}
	header := make([]string, 0, len(rows[0]))
	for _, c := range rows[0] {
		header = append(header, sheet.String(c))
	}
	if !slices.Equal(header, s.columns) {
		logger.Warn("table header does not match schema", "table", s.table, "header", header)
	}
}

// Tables creates the pantry's tables on demand.
type Tables struct {
	book   sheet.Workbook
	logger *slog.Logger
}

func NewTables(book sheet.Workbook, logger *slog.Logger) *Tables {
	return &Tables{book: book, logger: logger}
}

// EnsureTables creates every missing table with its header row. Existing
// tables are left untouched, so it is safe to call repeatedly.
func (t *Tables) EnsureTables(ctx context.Context) error {
	for _, s := range schemas {
		_, err := t.book.Table(ctx, s.table)
		if err == nil {
			continue
		}
		if !errors.Is(err, sheet.ErrTableNotFound) {
			return fmt.Errorf("failed to check table %s: %w", s.table, err)
		}
		if _, err := t.book.CreateTable(ctx, s.table, s.columns); err != nil {
			return fmt.Errorf("failed to create table %s: %w", s.table, err)
		}
		t.logger.Info("created table", "table", s.table)
	}
	return nil
}
