package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/sheet"
)

type InventoryStore struct {
	book   sheet.Workbook
	logger *slog.Logger
}

func NewInventoryStore(book sheet.Workbook, logger *slog.Logger) *InventoryStore {
	return &InventoryStore{book: book, logger: logger}
}

var inventorySchema = schema{table: InventoryTable, columns: InventoryColumns}

// List returns every inventory row whose id cell is truthy, in row order.
func (s *InventoryStore) List(ctx context.Context) ([]*domain.InventoryItem, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	inventorySchema.checkHeader(s.logger, rows)

	items := make([]*domain.InventoryItem, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		cells := inventorySchema.fit(s.logger, i, rows[i])
		if !sheet.Truthy(cells[invID]) {
			continue
		}
		items = append(items, decodeInventory(cells))
	}
	return items, nil
}

func (s *InventoryStore) Append(ctx context.Context, item *domain.InventoryItem) error {
	tbl, err := s.book.Table(ctx, InventoryTable)
	if err != nil {
		return fmt.Errorf("failed to open inventory: %w", err)
	}
	if err := tbl.Append(ctx, encodeInventory(item)); err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// UpdateQuantity overwrites the quantity and lastUpdated cells of the first
// row matching id and returns the row as it reads after the update.
func (s *InventoryStore) UpdateQuantity(ctx context.Context, id string, quantity domain.Amount, updatedAt string) (*domain.InventoryItem, error) {
	tbl, err := s.book.Table(ctx, InventoryTable)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory: %w", err)
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(rows); i++ {
		cells := inventorySchema.fit(s.logger, i, rows[i])
		if !sheet.LooseEqual(cells[invID], id) {
			continue
		}
		if err := tbl.SetCell(ctx, i, invQuantity, float64(quantity)); err != nil {
			return nil, fmt.Errorf("failed to update quantity: %w", err)
		}
		if err := tbl.SetCell(ctx, i, invLastUpdated, updatedAt); err != nil {
			return nil, fmt.Errorf("failed to update lastUpdated: %w", err)
		}
		cells[invQuantity] = float64(quantity)
		cells[invLastUpdated] = updatedAt
		return decodeInventory(cells), nil
	}

	return nil, ErrNotFound
}

func (s *InventoryStore) Delete(ctx context.Context, id string) error {
	tbl, err := s.book.Table(ctx, InventoryTable)
	if err != nil {
		return fmt.Errorf("failed to open inventory: %w", err)
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return err
	}

	for i := 1; i < len(rows); i++ {
		if len(rows[i]) > 0 && sheet.LooseEqual(rows[i][invID], id) {
			if err := tbl.DeleteRow(ctx, i); err != nil {
				return fmt.Errorf("failed to delete item: %w", err)
			}
			return nil
		}
	}

	return ErrNotFound
}

func (s *InventoryStore) rows(ctx context.Context) ([][]any, error) {
	tbl, err := s.book.Table(ctx, InventoryTable)
	if err != nil {
		return nil, fmt.Errorf("failed to open inventory: %w", err)
	}
	return tbl.Rows(ctx)
}

func decodeInventory(cells []any) *domain.InventoryItem {
	return &domain.InventoryItem{
		ID:          sheet.String(cells[invID]),
		Item:        sheet.String(cells[invItem]),
		Quantity:    domain.Amount(sheet.Number(cells[invQuantity])),
		Unit:        sheet.String(cells[invUnit]),
		MinQuantity: domain.Amount(sheet.Number(cells[invMinQuantity])),
		Store:       sheet.String(cells[invStore]),
		Category:    sheet.String(cells[invCategory]),
		Priority:    domain.Priority(sheet.String(cells[invPriority])),
		DateAdded:   sheet.String(cells[invDateAdded]),
		LastUpdated: sheet.String(cells[invLastUpdated]),
		AddedBy:     sheet.String(cells[invAddedBy]),
		Notes:       sheet.String(cells[invNotes]),
	}
}

func encodeInventory(item *domain.InventoryItem) []any {
	row := make([]any, len(InventoryColumns))
	row[invID] = item.ID
	row[invItem] = item.Item
	row[invQuantity] = float64(item.Quantity)
	row[invUnit] = item.Unit
	row[invMinQuantity] = float64(item.MinQuantity)
	row[invStore] = item.Store
	row[invCategory] = item.Category
	row[invPriority] = string(item.Priority)
	row[invDateAdded] = item.DateAdded
	row[invLastUpdated] = item.LastUpdated
	row[invAddedBy] = item.AddedBy
	row[invNotes] = item.Notes
	return row
}
