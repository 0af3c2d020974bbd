package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/pantry/internal/db"
	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/sheet"
	"github.com/vbonduro/pantry/internal/sheet/sqlitesheet"
	"github.com/vbonduro/pantry/internal/store"
	"github.com/vbonduro/pantry/internal/vision"
)

// stubVision is a minimal VisionAnalyzer for tests.
type stubVision struct {
	result *vision.AnalysisResult
	err    error
}

func (s *stubVision) Analyze(_ context.Context, _ io.Reader, _ string) (*vision.AnalysisResult, error) {
	return s.result, s.err
}

var testEpoch = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestService(t *testing.T, analyzer vision.VisionAnalyzer) (*PantryService, sheet.Workbook) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	book := sqlitesheet.New(d)
	logger := slog.Default()
	svc := NewPantryService(
		store.NewTables(book, logger),
		store.NewInventoryStore(book, logger),
		store.NewShoppingListStore(book, logger),
		store.NewMealSuggestionStore(book, logger),
		analyzer,
		logger,
	)
	require.NoError(t, svc.Setup(context.Background()))

	// Every reading of the clock advances it by one millisecond so generated
	// ids stay distinct.
	tick := testEpoch
	svc.now = func() time.Time {
		tick = tick.Add(time.Millisecond)
		return tick
	}
	svc.newSuffix = func() string { return "abcdefghi" }
	return svc, book
}

func amount(f float64) *domain.Amount {
	a := domain.Amount(f)
	return &a
}

func unpurchasedFor(t *testing.T, svc *PantryService, id string) []*domain.ShoppingListEntry {
	t.Helper()
	entries, err := svc.GetShoppingList(context.Background())
	require.NoError(t, err)
	var out []*domain.ShoppingListEntry
	for _, e := range entries {
		if e.ID == id && !e.Purchased {
			out = append(out, e)
		}
	}
	return out
}

func TestSetup_Idempotent(t *testing.T) {
	svc, book := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Setup(ctx))

	for _, name := range []string{store.InventoryTable, store.ShoppingListTable, store.MealSuggestionsTable} {
		tbl, err := book.Table(ctx, name)
		require.NoError(t, err)
		rows, err := tbl.Rows(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 1, name)
	}
}

func TestAddItem_Defaults(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.AddItem(ctx, NewItem{Item: "Rice", Quantity: amount(4), Unit: "bag", Priority: domain.PriorityNiceToHave})
	require.NoError(t, err)
	assert.Equal(t, "1773480413590", id)

	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	got := items[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, domain.Amount(4), got.Quantity)
	assert.Equal(t, domain.Amount(1), got.MinQuantity)
	assert.Equal(t, "Unknown", got.AddedBy)
	assert.Equal(t, "", got.Notes)
	assert.Equal(t, "2026-03-14T09:26:53.590Z", got.DateAdded)
	assert.Equal(t, "2026-03-14T09:26:53.590Z", got.LastUpdated)
}

func TestAddItem_KeepsCallerFields(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	id, err := svc.AddItem(ctx, NewItem{
		ID:          "milk-1",
		Item:        "Milk",
		Quantity:    amount(2),
		MinQuantity: amount(1),
		DateAdded:   "2026-01-01T00:00:00.000Z",
		AddedBy:     "Sam",
		Notes:       "oat",
	})
	require.NoError(t, err)
	assert.Equal(t, "milk-1", id)

	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", items[0].DateAdded)
	assert.Equal(t, "Sam", items[0].AddedBy)
	assert.Equal(t, "oat", items[0].Notes)
}

func TestAddItem_EssentialLowStockReconciles(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	in := NewItem{
		ID:          "eggs",
		Item:        "Eggs",
		Quantity:    amount(1),
		Unit:        "dozen",
		MinQuantity: amount(2),
		Store:       "Costco",
		Category:    "Dairy",
		Priority:    domain.PriorityEssential,
	}
	_, err := svc.AddItem(ctx, in)
	require.NoError(t, err)

	entries := unpurchasedFor(t, svc, "eggs")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.Amount(2), entries[0].QuantityNeeded)
	assert.Equal(t, "dozen", entries[0].Unit)
	assert.Equal(t, "Costco", entries[0].Store)
	assert.Equal(t, domain.PriorityEssential, entries[0].Priority)
	assert.False(t, entries[0].Purchased)
	assert.Empty(t, entries[0].DatePurchased)

	// A second add of the same id must not duplicate the entry.
	_, err = svc.AddItem(ctx, in)
	require.NoError(t, err)
	assert.Len(t, unpurchasedFor(t, svc, "eggs"), 1)
}

func TestAddItem_NoReconcile(t *testing.T) {
	tests := []struct {
		name string
		in   NewItem
	}{
		{
			name: "nice to have",
			in:   NewItem{ID: "a", Quantity: amount(0), Priority: domain.PriorityNiceToHave},
		},
		{
			name: "above minimum",
			in:   NewItem{ID: "a", Quantity: amount(5), MinQuantity: amount(2), Priority: domain.PriorityEssential},
		},
		{
			name: "missing quantity",
			in:   NewItem{ID: "a", Priority: domain.PriorityEssential},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, nil)
			_, err := svc.AddItem(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Empty(t, unpurchasedFor(t, svc, "a"))
		})
	}
}

func TestAddItems_BulkDefaultsWithoutReconcile(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	n, err := svc.AddItems(ctx, []NewItem{
		{Item: "Beans"},
		{Item: "Salt", Quantity: amount(0), Priority: domain.PriorityEssential},
		{ID: "given", Item: "Flour", Unit: "lb", Store: "Aldi", Category: "Baking", AddedBy: "Sam"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	beans := items[0]
	assert.Len(t, beans.ID, 13+9)
	assert.Equal(t, domain.Amount(1), beans.Quantity)
	assert.Equal(t, "count", beans.Unit)
	assert.Equal(t, domain.Amount(1), beans.MinQuantity)
	assert.Equal(t, "Walmart", beans.Store)
	assert.Equal(t, "Groceries", beans.Category)
	assert.Equal(t, domain.PriorityNiceToHave, beans.Priority)
	assert.Equal(t, "AI Scan", beans.AddedBy)
	assert.NotEqual(t, beans.ID, items[1].ID)

	flour := items[2]
	assert.Equal(t, "given", flour.ID)
	assert.Equal(t, "Aldi", flour.Store)
	assert.Equal(t, "Sam", flour.AddedBy)

	// Salt is Essential at or below its minimum but bulk adds never reconcile.
	shopping, err := svc.GetShoppingList(ctx)
	require.NoError(t, err)
	assert.Empty(t, shopping)
}

func TestAddItems_Empty(t *testing.T) {
	svc, _ := newTestService(t, nil)

	n, err := svc.AddItems(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateQuantity(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, NewItem{
		ID: "oil", Item: "Olive Oil", Quantity: amount(3), MinQuantity: amount(2), Priority: domain.PriorityEssential,
	})
	require.NoError(t, err)
	assert.Empty(t, unpurchasedFor(t, svc, "oil"))

	require.NoError(t, svc.UpdateQuantity(ctx, "oil", 1))

	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.Amount(1), items[0].Quantity)
	assert.NotEqual(t, items[0].DateAdded, items[0].LastUpdated)

	entries := unpurchasedFor(t, svc, "oil")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.Amount(2), entries[0].QuantityNeeded)
	assert.Equal(t, "Olive Oil", entries[0].Item)

	require.NoError(t, svc.UpdateQuantity(ctx, "oil", 0))
	assert.Len(t, unpurchasedFor(t, svc, "oil"), 1)
}

func TestUpdateQuantity_NotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	err := svc.UpdateQuantity(context.Background(), "missing", 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteItem(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, NewItem{ID: "1", Item: "Tea", Quantity: amount(2)})
	require.NoError(t, err)

	err = svc.DeleteItem(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, svc.DeleteItem(ctx, "1"))
	items, err = svc.GetInventory(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAddToShoppingList_Defaults(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.AddToShoppingList(ctx, NewShoppingEntry{ID: "x", Item: "Bread"}))

	entries, err := svc.GetShoppingList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.Amount(1), entries[0].QuantityNeeded)
	assert.Equal(t, "count", entries[0].Unit)
	assert.False(t, entries[0].Purchased)
	assert.Empty(t, entries[0].DatePurchased)
}

func TestAddToShoppingListIfNotExists_ScopedToUnpurchased(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	added, err := svc.AddToShoppingListIfNotExists(ctx, NewShoppingEntry{ID: "x", Item: "Bread"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = svc.AddToShoppingListIfNotExists(ctx, NewShoppingEntry{ID: "x", Item: "Bread"})
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, svc.TogglePurchased(ctx, "x", true))

	added, err = svc.AddToShoppingListIfNotExists(ctx, NewShoppingEntry{ID: "x", Item: "Bread"})
	require.NoError(t, err)
	assert.True(t, added)
}

func TestTogglePurchased(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.AddToShoppingList(ctx, NewShoppingEntry{ID: "x", Item: "Bread"}))

	require.NoError(t, svc.TogglePurchased(ctx, "x", true))
	entries, err := svc.GetShoppingList(ctx)
	require.NoError(t, err)
	assert.True(t, entries[0].Purchased)
	assert.NotEmpty(t, entries[0].DatePurchased)

	require.NoError(t, svc.TogglePurchased(ctx, "x", false))
	entries, err = svc.GetShoppingList(ctx)
	require.NoError(t, err)
	assert.False(t, entries[0].Purchased)
	assert.Empty(t, entries[0].DatePurchased)

	assert.ErrorIs(t, svc.TogglePurchased(ctx, "nope", true), ErrNotFound)
}

func TestClearPurchased(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, svc.AddToShoppingList(ctx, NewShoppingEntry{ID: domain.ID(id), Item: id}))
	}
	for _, id := range []string{"a", "b", "d"} {
		require.NoError(t, svc.TogglePurchased(ctx, id, true))
	}

	n, err := svc.ClearPurchased(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	entries, err := svc.GetShoppingList(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].ID)
	assert.Equal(t, "e", entries[1].ID)
}

func TestSyncShoppingList(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, []NewItem{
		{ID: "low", Item: "Coffee", Quantity: amount(1), MinQuantity: amount(3), Priority: domain.PriorityEssential},
		{ID: "at-min", Item: "Sugar", Quantity: amount(2), MinQuantity: amount(2), Priority: domain.PriorityEssential},
		{ID: "ok", Item: "Rice", Quantity: amount(9), MinQuantity: amount(2), Priority: domain.PriorityEssential},
		{ID: "nice", Item: "Chips", Quantity: amount(1), MinQuantity: amount(2)},
	})
	require.NoError(t, err)
	require.NoError(t, svc.AddToShoppingList(ctx, NewShoppingEntry{ID: "at-min", Item: "Sugar"}))

	added, err := svc.SyncShoppingList(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	entries := unpurchasedFor(t, svc, "low")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.Amount(3), entries[0].QuantityNeeded)
	assert.Len(t, unpurchasedFor(t, svc, "at-min"), 1)

	added, err = svc.SyncShoppingList(ctx)
	require.NoError(t, err)
	assert.Zero(t, added)

	// Buying the entry lets the next sweep put it back.
	require.NoError(t, svc.TogglePurchased(ctx, "low", true))
	added, err = svc.SyncShoppingList(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
}

func TestSyncShoppingList_DuplicateInventoryIDs(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	low := NewItem{ID: "dup", Item: "Milk", Quantity: amount(0), MinQuantity: amount(1), Priority: domain.PriorityEssential}
	_, err := svc.AddItems(ctx, []NewItem{low, low})
	require.NoError(t, err)

	added, err := svc.SyncShoppingList(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, unpurchasedFor(t, svc, "dup"), 1)
}

func TestSyncShoppingList_QuantityNeededAtLeastOne(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.AddItems(ctx, []NewItem{
		{ID: "x", Item: "Yeast", Quantity: amount(2.5), MinQuantity: amount(2.5), Priority: domain.PriorityEssential},
	})
	require.NoError(t, err)

	_, err = svc.SyncShoppingList(ctx)
	require.NoError(t, err)

	entries := unpurchasedFor(t, svc, "x")
	require.Len(t, entries, 1)
	assert.Equal(t, domain.Amount(1), entries[0].QuantityNeeded)
}

func TestMealSuggestions_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.SaveMealSuggestions(ctx, []*domain.Meal{
		{Name: "A", Description: "d1", Ingredients: []string{"x"}},
	}))

	got, err := svc.GetMealSuggestions(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "A: d1", got.Meal1)
	assert.Equal(t, "", got.Meal2)
	assert.Equal(t, "", got.Meal3)
	assert.Equal(t, "x", got.Ingredients)
}

func TestMealSuggestions_LatestWins(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.SaveMealSuggestions(ctx, []*domain.Meal{{Name: "Old", Description: "o"}}))
	require.NoError(t, svc.SaveMealSuggestions(ctx, []*domain.Meal{
		{Name: "Soup", Description: "hot", Ingredients: []string{"carrot", "onion"}},
		nil,
		{Name: "Salad", Description: "cold", Ingredients: []string{"lettuce", "onion"}},
		{Name: "Stew", Description: "slow", Ingredients: []string{"beef"}},
	}))

	got, err := svc.GetMealSuggestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Soup: hot", got.Meal1)
	assert.Equal(t, "", got.Meal2)
	assert.Equal(t, "Salad: cold", got.Meal3)
	assert.Equal(t, "carrot, onion, lettuce, onion, beef", got.Ingredients)
}

func TestGetMealSuggestions_Empty(t *testing.T) {
	svc, _ := newTestService(t, nil)

	got, err := svc.GetMealSuggestions(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestScanPhoto(t *testing.T) {
	analyzer := &stubVision{result: &vision.AnalysisResult{Items: []vision.DetectedItem{
		{Name: "Pasta", Quantity: "3 boxes", Unit: "Box", Category: "Groceries"},
		{Name: "Ketchup", Quantity: "some"},
	}}}
	svc, _ := newTestService(t, analyzer)
	ctx := context.Background()

	detected, err := svc.ScanPhoto(ctx, []byte{0xFF, 0xD8}, "image/jpeg")
	require.NoError(t, err)
	assert.Len(t, detected, 2)

	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.Amount(3), items[0].Quantity)
	assert.Equal(t, "box", items[0].Unit)
	assert.Equal(t, "AI Scan", items[0].AddedBy)
	assert.Equal(t, domain.Amount(1), items[1].Quantity)
	assert.Equal(t, "count", items[1].Unit)
}

func TestScanPhoto_Errors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.ScanPhoto(context.Background(), []byte{0xFF}, "image/jpeg")
	assert.ErrorIs(t, err, ErrScanUnavailable)

	boom := errors.New("boom")
	svc, _ = newTestService(t, &stubVision{err: boom})
	_, err = svc.ScanPhoto(context.Background(), []byte{0xFF}, "image/jpeg")
	assert.ErrorIs(t, err, boom)
}

func TestParseQuantity(t *testing.T) {
	assert.Equal(t, domain.Amount(2), *parseQuantity("2"))
	assert.Equal(t, domain.Amount(1.5), *parseQuantity("1.5 lb"))
	assert.Nil(t, parseQuantity("a few"))
	assert.Nil(t, parseQuantity(""))
}
