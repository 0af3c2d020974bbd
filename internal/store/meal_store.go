package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/sheet"
)

// MealSuggestionStore is an append-only log; only the newest record is read.
type MealSuggestionStore struct {
	book   sheet.Workbook
	logger *slog.Logger
}

func NewMealSuggestionStore(book sheet.Workbook, logger *slog.Logger) *MealSuggestionStore {
	return &MealSuggestionStore{book: book, logger: logger}
}

var mealSchema = schema{table: MealSuggestionsTable, columns: MealSuggestionColumns}

func (s *MealSuggestionStore) Append(ctx context.Context, rec *domain.MealSuggestion) error {
	tbl, err := s.book.Table(ctx, MealSuggestionsTable)
	if err != nil {
		return fmt.Errorf("failed to open meal suggestions: %w", err)
	}
	row := make([]any, len(MealSuggestionColumns))
	row[mealTimestamp] = rec.Timestamp
	row[mealMeal1] = rec.Meal1
	row[mealMeal2] = rec.Meal2
	row[mealMeal3] = rec.Meal3
	row[mealIngredients] = rec.Ingredients
	if err := tbl.Append(ctx, row); err != nil {
		return fmt.Errorf("failed to save meal suggestions: %w", err)
	}
	return nil
}

// Latest returns the last appended record, or nil when the log has no data
// rows.
func (s *MealSuggestionStore) Latest(ctx context.Context) (*domain.MealSuggestion, error) {
	tbl, err := s.book.Table(ctx, MealSuggestionsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to open meal suggestions: %w", err)
	}
	rows, err := tbl.Rows(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	last := len(rows) - 1
	cells := mealSchema.fit(s.logger, last, rows[last])
	return &domain.MealSuggestion{
		Timestamp:   sheet.String(cells[mealTimestamp]),
		Meal1:       sheet.String(cells[mealMeal1]),
		Meal2:       sheet.String(cells[mealMeal2]),
		Meal3:       sheet.String(cells[mealMeal3]),
		Ingredients: sheet.String(cells[mealIngredients]),
	}, nil
}
