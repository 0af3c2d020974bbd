package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/store"
	"github.com/vbonduro/pantry/internal/vision"
)

// TimeLayout is the ISO-8601 UTC form every date cell is written in.
const TimeLayout = "2006-01-02T15:04:05.000Z"

const (
	defaultAddedBy     = "Unknown"
	defaultUnit        = "count"
	bulkAddedBy        = "AI Scan"
	bulkStore          = "Walmart"
	bulkCategory       = "Groceries"
	bulkIDSuffixLength = 9
)

var (
	ErrNotFound = store.ErrNotFound
	// ErrScanUnavailable is returned by ScanPhoto when no vision backend is
	// configured.
	ErrScanUnavailable = errors.New("photo scanning is not configured")
)

// inventoryRepository is the subset of store.InventoryStore that PantryService requires.
type inventoryRepository interface {
	List(ctx context.Context) ([]*domain.InventoryItem, error)
	Append(ctx context.Context, item *domain.InventoryItem) error
	UpdateQuantity(ctx context.Context, id string, quantity domain.Amount, updatedAt string) (*domain.InventoryItem, error)
	Delete(ctx context.Context, id string) error
}

// shoppingRepository is the subset of store.ShoppingListStore that PantryService requires.
type shoppingRepository interface {
	List(ctx context.Context) ([]*domain.ShoppingListEntry, error)
	Append(ctx context.Context, entry *domain.ShoppingListEntry) error
	UnpurchasedIDs(ctx context.Context) (map[string]bool, error)
	SetPurchased(ctx context.Context, id string, purchased bool, datePurchased string) error
	DeletePurchased(ctx context.Context) (int, error)
}

// mealRepository is the subset of store.MealSuggestionStore that PantryService requires.
type mealRepository interface {
	Append(ctx context.Context, rec *domain.MealSuggestion) error
	Latest(ctx context.Context) (*domain.MealSuggestion, error)
}

type tableInitializer interface {
	EnsureTables(ctx context.Context) error
}

// NewItem is the input to AddItem and AddItems. Pointer amounts distinguish an
// absent value from an explicit zero.
type NewItem struct {
	ID          domain.ID       `json:"id"`
	Item        string          `json:"item"`
	Quantity    *domain.Amount  `json:"quantity"`
	Unit        string          `json:"unit"`
	MinQuantity *domain.Amount  `json:"minQuantity"`
	Store       string          `json:"store"`
	Category    string          `json:"category"`
	Priority    domain.Priority `json:"priority"`
	DateAdded   string          `json:"dateAdded"`
	LastUpdated string          `json:"lastUpdated"`
	AddedBy     string          `json:"addedBy"`
	Notes       string          `json:"notes"`
}

// NewShoppingEntry is the input to AddToShoppingList.
type NewShoppingEntry struct {
	ID             domain.ID       `json:"id"`
	Item           string          `json:"item"`
	QuantityNeeded *domain.Amount  `json:"quantityNeeded"`
	Unit           string          `json:"unit"`
	Store          string          `json:"store"`
	Category       string          `json:"category"`
	Priority       domain.Priority `json:"priority"`
}

type PantryService struct {
	tables    tableInitializer
	inventory inventoryRepository
	shopping  shoppingRepository
	meals     mealRepository
	visionAPI vision.VisionAnalyzer
	logger    *slog.Logger

	now       func() time.Time
	newSuffix func() string
}

// NewPantryService wires the service. visionAPI may be nil, in which case
// ScanPhoto returns ErrScanUnavailable.
func NewPantryService(
	tables tableInitializer,
	inventory inventoryRepository,
	shopping shoppingRepository,
	meals mealRepository,
	visionAPI vision.VisionAnalyzer,
	logger *slog.Logger,
) *PantryService {
	return &PantryService{
		tables:    tables,
		inventory: inventory,
		shopping:  shopping,
		meals:     meals,
		visionAPI: visionAPI,
		logger:    logger,
		now:       time.Now,
		newSuffix: randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:bulkIDSuffixLength]
}

func (s *PantryService) timestamp() string {
	return formatTime(s.now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func millisID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// Setup creates any missing table with its header row.
func (s *PantryService) Setup(ctx context.Context) error {
	if err := s.tables.EnsureTables(ctx); err != nil {
		return fmt.Errorf("failed to set up tables: %w", err)
	}
	return nil
}

func (s *PantryService) GetInventory(ctx context.Context) ([]*domain.InventoryItem, error) {
	return s.inventory.List(ctx)
}

// AddItem appends one inventory row and returns its id. An Essential item
// added at or below its minimum is put on the shopping list unless an
// unpurchased entry for the id is already there.
func (s *PantryService) AddItem(ctx context.Context, in NewItem) (string, error) {
	at := s.now()
	now := formatTime(at)
	item := &domain.InventoryItem{
		ID:          string(in.ID),
		Item:        in.Item,
		Unit:        in.Unit,
		MinQuantity: orDefault(in.MinQuantity, 1),
		Store:       in.Store,
		Category:    in.Category,
		Priority:    in.Priority,
		DateAdded:   orString(in.DateAdded, now),
		LastUpdated: orString(in.LastUpdated, now),
		AddedBy:     orString(in.AddedBy, defaultAddedBy),
		Notes:       in.Notes,
	}
	if item.ID == "" {
		item.ID = millisID(at)
	}

	// A missing quantity is stored as 0 but never triggers a restock.
	trigger := math.NaN()
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
		trigger = float64(*in.Quantity)
	}

	if err := s.inventory.Append(ctx, item); err != nil {
		return "", err
	}
	s.logger.Info("item added", "id", item.ID, "item", item.Item)

	if domain.IsLowStock(item.Priority, trigger, float64(item.MinQuantity)) {
		needed := domain.Amount(math.Max(1, float64(item.MinQuantity)-trigger+1))
		if _, err := s.AddToShoppingListIfNotExists(ctx, restockEntry(item, needed)); err != nil {
			return item.ID, fmt.Errorf("failed to restock %s: %w", item.ID, err)
		}
	}
	return item.ID, nil
}

// AddItems appends every item with bulk defaults and returns how many were
// stored. Unlike AddItem it never touches the shopping list.
func (s *PantryService) AddItems(ctx context.Context, items []NewItem) (int, error) {
	for i, in := range items {
		at := s.now()
		now := formatTime(at)
		item := &domain.InventoryItem{
			ID:          string(in.ID),
			Item:        in.Item,
			Quantity:    orDefault(in.Quantity, 1),
			Unit:        orString(in.Unit, defaultUnit),
			MinQuantity: orDefault(in.MinQuantity, 1),
			Store:       orString(in.Store, bulkStore),
			Category:    orString(in.Category, bulkCategory),
			Priority:    domain.Priority(orString(string(in.Priority), string(domain.PriorityNiceToHave))),
			DateAdded:   now,
			LastUpdated: now,
			AddedBy:     orString(in.AddedBy, bulkAddedBy),
			Notes:       in.Notes,
		}
		if item.ID == "" {
			item.ID = millisID(at) + s.newSuffix()
		}
		if err := s.inventory.Append(ctx, item); err != nil {
			return i, err
		}
	}
	s.logger.Info("items added", "count", len(items))
	return len(items), nil
}

// UpdateQuantity overwrites an item's quantity. Dropping an Essential item to
// its minimum or below puts it on the shopping list once.
func (s *PantryService) UpdateQuantity(ctx context.Context, id string, quantity domain.Amount) error {
	item, err := s.inventory.UpdateQuantity(ctx, id, quantity, s.timestamp())
	if err != nil {
		return fmt.Errorf("failed to update quantity of %s: %w", id, err)
	}

	if item.NeedsRestock() {
		item.ID = id
		needed := item.MinQuantity - quantity + 1
		if _, err := s.AddToShoppingListIfNotExists(ctx, restockEntry(item, needed)); err != nil {
			return fmt.Errorf("failed to restock %s: %w", id, err)
		}
	}
	return nil
}

func (s *PantryService) DeleteItem(ctx context.Context, id string) error {
	if err := s.inventory.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

func (s *PantryService) GetShoppingList(ctx context.Context) ([]*domain.ShoppingListEntry, error) {
	return s.shopping.List(ctx)
}

// AddToShoppingList appends an unpurchased entry without checking for
// duplicates.
func (s *PantryService) AddToShoppingList(ctx context.Context, in NewShoppingEntry) error {
	return s.shopping.Append(ctx, &domain.ShoppingListEntry{
		ID:             string(in.ID),
		Item:           in.Item,
		QuantityNeeded: orDefault(in.QuantityNeeded, 1),
		Unit:           orString(in.Unit, defaultUnit),
		Store:          in.Store,
		Category:       in.Category,
		Priority:       in.Priority,
		DateAdded:      s.timestamp(),
	})
}

// AddToShoppingListIfNotExists adds the entry unless an unpurchased entry with
// the same id is already listed. Purchased entries do not block a re-add.
func (s *PantryService) AddToShoppingListIfNotExists(ctx context.Context, in NewShoppingEntry) (bool, error) {
	ids, err := s.shopping.UnpurchasedIDs(ctx)
	if err != nil {
		return false, err
	}
	if ids[string(in.ID)] {
		s.logger.Debug("already on list", "id", in.ID)
		return false, nil
	}
	if err := s.AddToShoppingList(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PantryService) TogglePurchased(ctx context.Context, id string, purchased bool) error {
	datePurchased := ""
	if purchased {
		datePurchased = s.timestamp()
	}
	if err := s.shopping.SetPurchased(ctx, id, purchased, datePurchased); err != nil {
		return fmt.Errorf("failed to toggle %s: %w", id, err)
	}
	return nil
}

// ClearPurchased removes every purchased entry and returns how many went.
func (s *PantryService) ClearPurchased(ctx context.Context) (int, error) {
	n, err := s.shopping.DeletePurchased(ctx)
	if err != nil {
		return n, err
	}
	s.logger.Info("cleared purchased entries", "count", n)
	return n, nil
}

// SyncShoppingList adds an entry for every low-stock Essential item that has
// no unpurchased entry yet and returns how many were added.
func (s *PantryService) SyncShoppingList(ctx context.Context) (int, error) {
	listed, err := s.shopping.UnpurchasedIDs(ctx)
	if err != nil {
		return 0, err
	}
	items, err := s.inventory.List(ctx)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, item := range items {
		if !item.NeedsRestock() || listed[item.ID] {
			continue
		}
		needed := domain.Amount(math.Max(1, float64(item.MinQuantity-item.Quantity+1)))
		if err := s.AddToShoppingList(ctx, restockEntry(item, needed)); err != nil {
			return added, err
		}
		listed[item.ID] = true
		added++
	}
	s.logger.Info("shopping list synced", "added", added)
	return added, nil
}

// SaveMealSuggestions appends one log record holding up to three meal
// summaries and every meal's ingredients in order.
func (s *PantryService) SaveMealSuggestions(ctx context.Context, meals []*domain.Meal) error {
	rec := &domain.MealSuggestion{Timestamp: s.timestamp()}
	summaries := []*string{&rec.Meal1, &rec.Meal2, &rec.Meal3}
	var ingredients []string
	for i, m := range meals {
		if i < len(summaries) {
			*summaries[i] = m.Summary()
		}
		if m != nil {
			ingredients = append(ingredients, m.Ingredients...)
		}
	}
	rec.Ingredients = strings.Join(ingredients, ", ")
	return s.meals.Append(ctx, rec)
}

// GetMealSuggestions returns the newest record, or nil when none was saved.
func (s *PantryService) GetMealSuggestions(ctx context.Context) (*domain.MealSuggestion, error) {
	return s.meals.Latest(ctx)
}

func restockEntry(item *domain.InventoryItem, needed domain.Amount) NewShoppingEntry {
	return NewShoppingEntry{
		ID:             domain.ID(item.ID),
		Item:           item.Item,
		QuantityNeeded: &needed,
		Unit:           item.Unit,
		Store:          item.Store,
		Category:       item.Category,
		Priority:       item.Priority,
	}
}

// orDefault treats an absent, zero or NaN amount as missing.
func orDefault(a *domain.Amount, def domain.Amount) domain.Amount {
	if a == nil || *a == 0 || math.IsNaN(float64(*a)) {
		return def
	}
	return *a
}

func orString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
