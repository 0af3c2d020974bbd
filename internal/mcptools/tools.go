package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/service"
)

// PantryTools holds the service the tool handlers call into.
type PantryTools struct {
	Service *service.PantryService
}

// --- Input types ---

type AddItemInput struct {
	ID          string   `json:"id,omitempty" jsonschema:"Item id; generated when omitted"`
	Item        string   `json:"item" jsonschema:"Item name"`
	Quantity    *float64 `json:"quantity,omitempty" jsonschema:"Quantity on hand"`
	Unit        string   `json:"unit,omitempty" jsonschema:"Unit the quantity is counted in (e.g. count, lb, box)"`
	MinQuantity *float64 `json:"min_quantity,omitempty" jsonschema:"Restock threshold; defaults to 1"`
	Store       string   `json:"store,omitempty" jsonschema:"Where the item is usually bought"`
	Category    string   `json:"category,omitempty" jsonschema:"Category (e.g. Produce, Dairy, Household)"`
	Priority    string   `json:"priority,omitempty" jsonschema:"Essential or Nice-to-Have"`
	Notes       string   `json:"notes,omitempty" jsonschema:"Free-form notes"`
}

type UpdateQuantityInput struct {
	ID       string  `json:"id" jsonschema:"Inventory item id"`
	Quantity float64 `json:"quantity" jsonschema:"New quantity on hand"`
}

type IDInput struct {
	ID string `json:"id" jsonschema:"Item or entry id"`
}

type AddToShoppingListInput struct {
	ID             string   `json:"id,omitempty" jsonschema:"Entry id; use the inventory id to link the two"`
	Item           string   `json:"item" jsonschema:"Item name"`
	QuantityNeeded *float64 `json:"quantity_needed,omitempty" jsonschema:"How many to buy; defaults to 1"`
	Unit           string   `json:"unit,omitempty" jsonschema:"Unit; defaults to count"`
	Store          string   `json:"store,omitempty" jsonschema:"Store to buy from"`
	Category       string   `json:"category,omitempty" jsonschema:"Category"`
	Priority       string   `json:"priority,omitempty" jsonschema:"Essential or Nice-to-Have"`
}

type TogglePurchasedInput struct {
	ID        string `json:"id" jsonschema:"Shopping list entry id"`
	Purchased bool   `json:"purchased" jsonschema:"Whether the entry has been bought"`
}

type MealInput struct {
	Name        string   `json:"name" jsonschema:"Meal name"`
	Description string   `json:"description" jsonschema:"One-line description"`
	Ingredients []string `json:"ingredients,omitempty" jsonschema:"Pantry ingredients the meal uses"`
}

type SaveMealSuggestionsInput struct {
	Meals []MealInput `json:"meals" jsonschema:"Up to three meals; extra meals only contribute ingredients"`
}

// --- Handlers ---

func (t *PantryTools) GetInventory(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	items, err := t.Service.GetInventory(ctx)
	if err != nil {
		return toolError("Failed to read inventory: %v", err), nil, nil
	}
	return toolJSON(items)
}

func (t *PantryTools) AddItem(ctx context.Context, _ *mcp.CallToolRequest, input AddItemInput) (*mcp.CallToolResult, any, error) {
	if input.Item == "" {
		return toolError("item is required"), nil, nil
	}
	id, err := t.Service.AddItem(ctx, service.NewItem{
		ID:          domain.ID(input.ID),
		Item:        input.Item,
		Quantity:    amountPtr(input.Quantity),
		Unit:        input.Unit,
		MinQuantity: amountPtr(input.MinQuantity),
		Store:       input.Store,
		Category:    input.Category,
		Priority:    domain.Priority(input.Priority),
		AddedBy:     "Assistant",
		Notes:       input.Notes,
	})
	if err != nil {
		return toolError("Failed to add item: %v", err), nil, nil
	}
	return toolJSON(map[string]string{"id": id})
}

func (t *PantryTools) UpdateQuantity(ctx context.Context, _ *mcp.CallToolRequest, input UpdateQuantityInput) (*mcp.CallToolResult, any, error) {
	if err := t.Service.UpdateQuantity(ctx, input.ID, domain.Amount(input.Quantity)); err != nil {
		return failure(err, input.ID), nil, nil
	}
	return toolText("Updated %s to %g", input.ID, input.Quantity), nil, nil
}

func (t *PantryTools) DeleteItem(ctx context.Context, _ *mcp.CallToolRequest, input IDInput) (*mcp.CallToolResult, any, error) {
	if err := t.Service.DeleteItem(ctx, input.ID); err != nil {
		return failure(err, input.ID), nil, nil
	}
	return toolText("Deleted %s", input.ID), nil, nil
}

func (t *PantryTools) GetShoppingList(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	entries, err := t.Service.GetShoppingList(ctx)
	if err != nil {
		return toolError("Failed to read shopping list: %v", err), nil, nil
	}
	return toolJSON(entries)
}

func (t *PantryTools) AddToShoppingList(ctx context.Context, _ *mcp.CallToolRequest, input AddToShoppingListInput) (*mcp.CallToolResult, any, error) {
	if input.Item == "" {
		return toolError("item is required"), nil, nil
	}
	err := t.Service.AddToShoppingList(ctx, service.NewShoppingEntry{
		ID:             domain.ID(input.ID),
		Item:           input.Item,
		QuantityNeeded: amountPtr(input.QuantityNeeded),
		Unit:           input.Unit,
		Store:          input.Store,
		Category:       input.Category,
		Priority:       domain.Priority(input.Priority),
	})
	if err != nil {
		return toolError("Failed to add to shopping list: %v", err), nil, nil
	}
	return toolText("Added %s to the shopping list", input.Item), nil, nil
}

func (t *PantryTools) TogglePurchased(ctx context.Context, _ *mcp.CallToolRequest, input TogglePurchasedInput) (*mcp.CallToolResult, any, error) {
	if err := t.Service.TogglePurchased(ctx, input.ID, input.Purchased); err != nil {
		return failure(err, input.ID), nil, nil
	}
	return toolText("Marked %s purchased=%t", input.ID, input.Purchased), nil, nil
}

func (t *PantryTools) ClearPurchased(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	n, err := t.Service.ClearPurchased(ctx)
	if err != nil {
		return toolError("Failed to clear purchased entries: %v", err), nil, nil
	}
	return toolJSON(map[string]int{"count": n})
}

func (t *PantryTools) SyncShoppingList(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	n, err := t.Service.SyncShoppingList(ctx)
	if err != nil {
		return toolError("Failed to sync shopping list: %v", err), nil, nil
	}
	return toolJSON(map[string]int{"added": n})
}

func (t *PantryTools) GetMealSuggestions(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	rec, err := t.Service.GetMealSuggestions(ctx)
	if err != nil {
		return toolError("Failed to read meal suggestions: %v", err), nil, nil
	}
	if rec == nil {
		return toolText("No meal suggestions saved yet"), nil, nil
	}
	return toolJSON(rec)
}

func (t *PantryTools) SaveMealSuggestions(ctx context.Context, _ *mcp.CallToolRequest, input SaveMealSuggestionsInput) (*mcp.CallToolResult, any, error) {
	meals := make([]*domain.Meal, 0, len(input.Meals))
	for _, m := range input.Meals {
		meals = append(meals, &domain.Meal{Name: m.Name, Description: m.Description, Ingredients: m.Ingredients})
	}
	if err := t.Service.SaveMealSuggestions(ctx, meals); err != nil {
		return toolError("Failed to save meal suggestions: %v", err), nil, nil
	}
	return toolText("Saved %d meal suggestions", len(meals)), nil, nil
}

// --- Helpers ---

func failure(err error, id string) *mcp.CallToolResult {
	if errors.Is(err, service.ErrNotFound) {
		return toolError("No item with id %s", id)
	}
	return toolError("Request failed: %v", err)
}

func amountPtr(f *float64) *domain.Amount {
	if f == nil {
		return nil
	}
	a := domain.Amount(*f)
	return &a
}

func toolText(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
