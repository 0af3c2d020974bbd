package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Priority string

const (
	PriorityEssential  Priority = "Essential"
	PriorityNiceToHave Priority = "Nice-to-Have"
)

// Amount is a numeric cell value. It accepts JSON numbers or numeric strings
// on input and encodes NaN/Inf as null so unparsable cells do not break the
// response encoder.
type Amount float64

func (a Amount) MarshalJSON() ([]byte, error) {
	f := float64(a)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*a = Amount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid amount %s", b)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q", s)
	}
	*a = Amount(f)
	return nil
}

// ID is a caller-supplied row id. Clients send ids both as strings and as
// bare numbers (timestamps), so both forms decode to the same string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(n.String())
	return nil
}

type InventoryItem struct {
	ID          string   `json:"id"`
	Item        string   `json:"item"`
	Quantity    Amount   `json:"quantity"`
	Unit        string   `json:"unit"`
	MinQuantity Amount   `json:"minQuantity"`
	Store       string   `json:"store"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	DateAdded   string   `json:"dateAdded"`
	LastUpdated string   `json:"lastUpdated"`
	AddedBy     string   `json:"addedBy"`
	Notes       string   `json:"notes"`
}

// NeedsRestock reports whether the item is Essential and at or below its
// minimum quantity.
func (i *InventoryItem) NeedsRestock() bool {
	return IsLowStock(i.Priority, float64(i.Quantity), float64(i.MinQuantity))
}

// IsLowStock is the low-stock predicate shared by every reconciliation path.
// NaN quantities never compare true.
func IsLowStock(priority Priority, quantity, minQuantity float64) bool {
	return priority == PriorityEssential && quantity <= minQuantity
}

type ShoppingListEntry struct {
	ID             string   `json:"id"`
	Item           string   `json:"item"`
	QuantityNeeded Amount   `json:"quantityNeeded"`
	Unit           string   `json:"unit"`
	Store          string   `json:"store"`
	Category       string   `json:"category"`
	Priority       Priority `json:"priority"`
	DateAdded      string   `json:"dateAdded"`
	Purchased      bool     `json:"purchased"`
	DatePurchased  string   `json:"datePurchased"`
}

// Meal is one candidate produced by a meal-suggestion generator.
type Meal struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// Summary renders the meal the way it is stored in the suggestions log.
func (m *Meal) Summary() string {
	if m == nil {
		return ""
	}
	return m.Name + ": " + m.Description
}

type MealSuggestion struct {
	Timestamp   string `json:"timestamp"`
	Meal1       string `json:"meal1"`
	Meal2       string `json:"meal2"`
	Meal3       string `json:"meal3"`
	Ingredients string `json:"ingredients"`
}
