package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/sheet"
)

type ShoppingListStore struct {
	book   sheet.Workbook
	logger *slog.Logger
}

func NewShoppingListStore(book sheet.Workbook, logger *slog.Logger) *ShoppingListStore {
	return &ShoppingListStore{book: book, logger: logger}
}

var shoppingSchema = schema{table: ShoppingListTable, columns: ShoppingListColumns}

// List returns every entry whose id cell is truthy, in row order.
func (s *ShoppingListStore) List(ctx context.Context) ([]*domain.ShoppingListEntry, error) {
	_, rows, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	shoppingSchema.checkHeader(s.logger, rows)

	entries := make([]*domain.ShoppingListEntry, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		cells := shoppingSchema.fit(s.logger, i, rows[i])
		if !sheet.Truthy(cells[shopID]) {
			continue
		}
		entries = append(entries, decodeShopping(cells))
	}
	return entries, nil
}

func (s *ShoppingListStore) Append(ctx context.Context, entry *domain.ShoppingListEntry) error {
	tbl, err := s.book.Table(ctx, ShoppingListTable)
	if err != nil {
		return fmt.Errorf("failed to open shopping list: %w", err)
	}
	if err := tbl.Append(ctx, encodeShopping(entry)); err != nil {
		return fmt.Errorf("failed to create shopping list entry: %w", err)
	}
	return nil
}

// UnpurchasedIDs returns the ids of every entry not yet marked purchased.
func (s *ShoppingListStore) UnpurchasedIDs(ctx context.Context) (map[string]bool, error) {
	_, rows, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]bool)
	for i := 1; i < len(rows); i++ {
		cells := shoppingSchema.fit(s.logger, i, rows[i])
		if cells[shopID] != nil && !sheet.Truthy(cells[shopPurchased]) {
			ids[sheet.String(cells[shopID])] = true
		}
	}
	return ids, nil
}

// SetPurchased updates the first entry matching id regardless of its current
// state.
func (s *ShoppingListStore) SetPurchased(ctx context.Context, id string, purchased bool, datePurchased string) error {
	tbl, rows, err := s.open(ctx)
	if err != nil {
		return err
	}

	for i := 1; i < len(rows); i++ {
		if len(rows[i]) == 0 || !sheet.LooseEqual(rows[i][shopID], id) {
			continue
		}
		if err := tbl.SetCell(ctx, i, shopPurchased, purchased); err != nil {
			return fmt.Errorf("failed to update purchased: %w", err)
		}
		if err := tbl.SetCell(ctx, i, shopDatePurchased, datePurchased); err != nil {
			return fmt.Errorf("failed to update datePurchased: %w", err)
		}
		return nil
	}

	return ErrNotFound
}

// DeletePurchased removes every row whose purchased cell is boolean true and
// returns how many were removed. Rows are deleted bottom-up so the indexes of
// rows still to be visited do not shift.
func (s *ShoppingListStore) DeletePurchased(ctx context.Context) (int, error) {
	tbl, rows, err := s.open(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := len(rows) - 1; i >= 1; i-- {
		if len(rows[i]) <= shopPurchased || !sheet.IsTrue(rows[i][shopPurchased]) {
			continue
		}
		if err := tbl.DeleteRow(ctx, i); err != nil {
			return removed, fmt.Errorf("failed to delete purchased entry: %w", err)
		}
		removed++
	}
	return removed, nil
}

func (s *ShoppingListStore) open(ctx context.Context) (sheet.Table, [][]any, error) {
	tbl, err := s.book.Table(ctx, ShoppingListTable)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open shopping list: %w", err)
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return nil, nil, err
	}
	return tbl, rows, nil
}

func decodeShopping(cells []any) *domain.ShoppingListEntry {
	return &domain.ShoppingListEntry{
		ID:             sheet.String(cells[shopID]),
		Item:           sheet.String(cells[shopItem]),
		QuantityNeeded: domain.Amount(sheet.Number(cells[shopQuantityNeeded])),
		Unit:           sheet.String(cells[shopUnit]),
		Store:          sheet.String(cells[shopStore]),
		Category:       sheet.String(cells[shopCategory]),
		Priority:       domain.Priority(sheet.String(cells[shopPriority])),
		DateAdded:      sheet.String(cells[shopDateAdded]),
		Purchased:      sheet.Truthy(cells[shopPurchased]),
		DatePurchased:  sheet.String(cells[shopDatePurchased]),
	}
}

func encodeShopping(entry *domain.ShoppingListEntry) []any {
	row := make([]any, len(ShoppingListColumns))
	row[shopID] = entry.ID
	row[shopItem] = entry.Item
	row[shopQuantityNeeded] = float64(entry.QuantityNeeded)
	row[shopUnit] = entry.Unit
	row[shopStore] = entry.Store
	row[shopCategory] = entry.Category
	row[shopPriority] = string(entry.Priority)
	row[shopDateAdded] = entry.DateAdded
	row[shopPurchased] = entry.Purchased
	row[shopDatePurchased] = entry.DatePurchased
	return row
}
