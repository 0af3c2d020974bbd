package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/service"
)

const maxRequestSize = 1 << 20 // 1 MB

// command is the union of every POST action's fields. addItem and
// addToShoppingList decode the whole body a second time into their own
// input types.
type command struct {
	Action    string            `json:"action"`
	ID        domain.ID         `json:"id"`
	Quantity  *domain.Amount    `json:"quantity"`
	Purchased bool              `json:"purchased"`
	Items     []service.NewItem `json:"items"`
	Meals     []*domain.Meal    `json:"meals"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	ctx := r.Context()

	switch action {
	case "getInventory":
		items, err := s.service.GetInventory(ctx)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Data: items}, s.logger)

	case "getShoppingList":
		entries, err := s.service.GetShoppingList(ctx)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Data: entries}, s.logger)

	case "getMealSuggestions":
		rec, err := s.service.GetMealSuggestions(ctx)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		var data any = []any{}
		if rec != nil {
			data = rec
		}
		writeJSON(w, http.StatusOK, result{Success: true, Data: data}, s.logger)

	default:
		writeJSON(w, http.StatusOK, result{Error: msgUnknownAction}, s.logger)
	}
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, result{Error: "request too large"}, s.logger)
			return
		}
		writeJSON(w, http.StatusBadRequest, result{Error: "failed to read request"}, s.logger)
		return
	}

	var cmd command
	if err := json.Unmarshal(body, &cmd); err != nil {
		writeJSON(w, http.StatusBadRequest, result{Error: "invalid request body"}, s.logger)
		return
	}

	ctx := r.Context()
	action := cmd.Action
	s.logger.Debug("command received", "action", action)

	switch action {
	case "addItem":
		var in service.NewItem
		if err := json.Unmarshal(body, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, result{Error: "invalid item"}, s.logger)
			return
		}
		id, err := s.service.AddItem(ctx, in)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, ID: id}, s.logger)

	case "updateQuantity":
		if cmd.Quantity == nil {
			writeJSON(w, http.StatusBadRequest, result{Error: "quantity is required"}, s.logger)
			return
		}
		s.respond(w, action, s.service.UpdateQuantity(ctx, string(cmd.ID), *cmd.Quantity))

	case "deleteItem":
		s.respond(w, action, s.service.DeleteItem(ctx, string(cmd.ID)))

	case "togglePurchased":
		s.respond(w, action, s.service.TogglePurchased(ctx, string(cmd.ID), cmd.Purchased))

	case "addToShoppingList":
		var in service.NewShoppingEntry
		if err := json.Unmarshal(body, &in); err != nil {
			writeJSON(w, http.StatusBadRequest, result{Error: "invalid entry"}, s.logger)
			return
		}
		s.respond(w, action, s.service.AddToShoppingList(ctx, in))

	case "clearPurchased":
		n, err := s.service.ClearPurchased(ctx)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Count: intPtr(n)}, s.logger)

	case "addItems":
		n, err := s.service.AddItems(ctx, cmd.Items)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Count: intPtr(n)}, s.logger)

	case "syncShoppingList":
		n, err := s.service.SyncShoppingList(ctx)
		if err != nil {
			s.writeFailure(w, action, err)
			return
		}
		writeJSON(w, http.StatusOK, result{Success: true, Added: intPtr(n)}, s.logger)

	case "saveMealSuggestions":
		s.respond(w, action, s.service.SaveMealSuggestions(ctx, cmd.Meals))

	default:
		writeJSON(w, http.StatusOK, result{Error: msgUnknownAction}, s.logger)
	}
}

// respond writes a bare success envelope or the failure for err.
func (s *Server) respond(w http.ResponseWriter, action string, err error) {
	if err != nil {
		s.writeFailure(w, action, err)
		return
	}
	writeJSON(w, http.StatusOK, result{Success: true}, s.logger)
}
