// Package mcptools exposes the pantry service as Model Context Protocol tools
// so an assistant can read stock levels and record meal suggestions.
package mcptools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vbonduro/pantry/internal/service"
)

// NewServer creates an MCP server with every pantry tool registered.
func NewServer(svc *service.PantryService, version string) *mcp.Server {
	pt := &PantryTools{Service: svc}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "pantry",
		Version: version,
	}, nil)

	// Inventory
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_inventory",
		Description: "List every item in the pantry inventory with its quantity, minimum quantity and priority",
	}, pt.GetInventory)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_item",
		Description: "Add one item to the inventory. Essential items at or below their minimum are put on the shopping list",
	}, pt.AddItem)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "update_quantity",
		Description: "Set the quantity of an inventory item by id",
	}, pt.UpdateQuantity)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_item",
		Description: "Remove an inventory item by id",
	}, pt.DeleteItem)

	// Shopping list
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_shopping_list",
		Description: "List every shopping list entry, purchased or not",
	}, pt.GetShoppingList)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_to_shopping_list",
		Description: "Append an entry to the shopping list",
	}, pt.AddToShoppingList)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "toggle_purchased",
		Description: "Mark a shopping list entry as purchased or not purchased",
	}, pt.TogglePurchased)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "clear_purchased",
		Description: "Remove every purchased entry from the shopping list",
	}, pt.ClearPurchased)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "sync_shopping_list",
		Description: "Add a shopping list entry for every low-stock Essential item not already listed",
	}, pt.SyncShoppingList)

	// Meal suggestions
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_meal_suggestions",
		Description: "Return the most recently saved meal suggestions",
	}, pt.GetMealSuggestions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "save_meal_suggestions",
		Description: "Save up to three meal suggestions built from what is in the pantry",
	}, pt.SaveMealSuggestions)

	return srv
}
