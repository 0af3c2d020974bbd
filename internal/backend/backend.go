// Package backend assembles the pantry service from configuration: the
// tabular store, the stores layered on it and the optional vision backend.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/vbonduro/pantry/internal/config"
	"github.com/vbonduro/pantry/internal/db"
	"github.com/vbonduro/pantry/internal/service"
	"github.com/vbonduro/pantry/internal/sheet"
	"github.com/vbonduro/pantry/internal/sheet/gsheets"
	"github.com/vbonduro/pantry/internal/sheet/sqlitesheet"
	"github.com/vbonduro/pantry/internal/store"
	"github.com/vbonduro/pantry/internal/vision"
	claudevision "github.com/vbonduro/pantry/internal/vision/claude"
	ollamavision "github.com/vbonduro/pantry/internal/vision/ollama"
)

// OpenWorkbook opens the configured tabular store. The returned cleanup func
// releases it; callers must defer it.
func OpenWorkbook(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheet.Workbook, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreSheets:
		opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
		if cfg.SheetsCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.SheetsCredentialsFile))
		}
		book, err := gsheets.New(ctx, cfg.SheetsSpreadsheetID, opts...)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using Google Sheets store", "spreadsheet_id", cfg.SheetsSpreadsheetID)
		return book, func() {}, nil

	default:
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("using SQLite store", "path", cfg.DBPath)
		cleanup := func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}
		return sqlitesheet.New(database), cleanup, nil
	}
}

// NewVisionAnalyzer returns the configured vision backend, or nil when it
// cannot be built, which disables photo scanning.
func NewVisionAnalyzer(cfg *config.Config, logger *slog.Logger) vision.VisionAnalyzer {
	switch cfg.VisionBackend {
	case "claude":
		if cfg.ClaudeAPIKey == "" {
			logger.Error("CLAUDE_API_KEY is required when VISION_BACKEND=claude")
			return nil
		}
		logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel)
	case "none", "":
		logger.Info("photo scanning disabled")
		return nil
	default:
		logger.Info("using Ollama vision backend", "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel)
	}
}

// NewService wires a PantryService over book.
func NewService(book sheet.Workbook, analyzer vision.VisionAnalyzer, logger *slog.Logger) *service.PantryService {
	return service.NewPantryService(
		store.NewTables(book, logger),
		store.NewInventoryStore(book, logger),
		store.NewShoppingListStore(book, logger),
		store.NewMealSuggestionStore(book, logger),
		analyzer,
		logger,
	)
}

// Open builds the service the way every pantry binary needs it: store opened,
// vision backend selected and tables created.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*service.PantryService, func(), error) {
	book, cleanup, err := OpenWorkbook(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	svc := NewService(book, NewVisionAnalyzer(cfg, logger), logger)
	if err := svc.Setup(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
