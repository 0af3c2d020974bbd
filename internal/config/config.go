package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	StoreSQLite = "sqlite"
	StoreSheets = "sheets"
)

type Config struct {
	ListenAddr      string `env:"LISTEN_ADDR" envDefault:":8080"`
	CORSAllowOrigin string `env:"CORS_ALLOW_ORIGIN" envDefault:"*"`

	StoreBackend          string `env:"STORE_BACKEND" envDefault:"sqlite"`
	DBPath                string `env:"DB_PATH" envDefault:"/data/pantry.db"`
	SheetsSpreadsheetID   string `env:"SHEETS_SPREADSHEET_ID"`
	SheetsCredentialsFile string `env:"SHEETS_CREDENTIALS_FILE"`

	VisionBackend string `env:"VISION_BACKEND" envDefault:"ollama"`
	OllamaHost    string `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel   string `env:"OLLAMA_MODEL" envDefault:"moondream"`
	ClaudeAPIKey  string `env:"CLAUDE_API_KEY"`
	ClaudeModel   string `env:"CLAUDE_MODEL" envDefault:"claude-sonnet-4-5"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	Gateway GatewayConfig
}

// GatewayConfig configures the offline cache gateway. Empty asset and bypass
// lists fall back to the gateway's built-in defaults.
type GatewayConfig struct {
	ListenAddr   string   `env:"GATEWAY_LISTEN_ADDR" envDefault:":8081"`
	Origin       string   `env:"GATEWAY_ORIGIN" envDefault:"http://localhost:3000"`
	CacheDir     string   `env:"GATEWAY_CACHE_DIR" envDefault:"/data/offline-cache"`
	CacheVersion string   `env:"GATEWAY_CACHE_VERSION" envDefault:"family-pantry-v1"`
	Assets       []string `env:"GATEWAY_ASSETS" envSeparator:" "`
	Bypass       []string `env:"GATEWAY_BYPASS" envSeparator:","`
	// ServiceURL is the pantry API; its host is always bypassed.
	ServiceURL string `env:"SERVICE_URL"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.StoreBackend {
	case StoreSQLite:
	case StoreSheets:
		if cfg.SheetsSpreadsheetID == "" {
			return nil, fmt.Errorf("SHEETS_SPREADSHEET_ID is required when STORE_BACKEND=%s", StoreSheets)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return &cfg, nil
}
