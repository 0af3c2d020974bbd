package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/pantry/internal/config"
	"github.com/vbonduro/pantry/internal/domain"
	"github.com/vbonduro/pantry/internal/service"
	claudevision "github.com/vbonduro/pantry/internal/vision/claude"
	ollamavision "github.com/vbonduro/pantry/internal/vision/ollama"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.Config{
		StoreBackend:  config.StoreSQLite,
		DBPath:        filepath.Join(t.TempDir(), "pantry.db"),
		VisionBackend: "none",
	}
	ctx := context.Background()

	svc, cleanup, err := Open(ctx, cfg, discard)
	require.NoError(t, err)

	qty := domain.Amount(2)
	_, err = svc.AddItem(ctx, service.NewItem{ID: "1", Item: "Honey", Quantity: &qty})
	require.NoError(t, err)
	cleanup()

	// The data survives a reopen.
	svc, cleanup, err = Open(ctx, cfg, discard)
	require.NoError(t, err)
	defer cleanup()

	items, err := svc.GetInventory(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Honey", items[0].Item)
}

func TestNewVisionAnalyzer(t *testing.T) {
	cfg := &config.Config{VisionBackend: "claude", ClaudeAPIKey: "sk-test", ClaudeModel: "claude-sonnet-4-5"}
	assert.IsType(t, &claudevision.ClaudeAnalyzer{}, NewVisionAnalyzer(cfg, discard))

	cfg = &config.Config{VisionBackend: "claude"}
	assert.Nil(t, NewVisionAnalyzer(cfg, discard))

	cfg = &config.Config{VisionBackend: "ollama", OllamaHost: "http://localhost:11434", OllamaModel: "moondream"}
	assert.IsType(t, &ollamavision.OllamaAnalyzer{}, NewVisionAnalyzer(cfg, discard))

	cfg = &config.Config{VisionBackend: "none"}
	assert.Nil(t, NewVisionAnalyzer(cfg, discard))
}
