// Command pantry runs the pantry HTTP API and its maintenance jobs.
//
// Usage:
//
//	pantry [serve]          serve the action API (default)
//	pantry setup            create missing tables
//	pantry sync             copy low-stock essentials onto the shopping list
//	pantry clear-purchased  remove purchased shopping list entries
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/pantry/internal/backend"
	"github.com/vbonduro/pantry/internal/config"
	"github.com/vbonduro/pantry/internal/logging"
	"github.com/vbonduro/pantry/internal/service"
	"github.com/vbonduro/pantry/internal/web"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [serve|setup|sync|clear-purchased]\n", os.Args[0])
	}
	flag.Parse()

	cmd := "serve"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, cfg, logger); err != nil {
		logger.Error("command failed", "command", cmd, "error", err)
		cancel()
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, cfg *config.Config, logger *slog.Logger) error {
	var job func(context.Context, *service.PantryService) error
	switch cmd {
	case "serve":
		job = func(ctx context.Context, svc *service.PantryService) error {
			return web.NewServer(svc, cfg.CORSAllowOrigin, logger).ListenAndServe(ctx, cfg.ListenAddr)
		}
	case "setup":
		// Open already ensures the tables exist.
		job = func(context.Context, *service.PantryService) error {
			logger.Info("tables ready")
			return nil
		}
	case "sync":
		job = func(ctx context.Context, svc *service.PantryService) error {
			added, err := svc.SyncShoppingList(ctx)
			if err != nil {
				return err
			}
			logger.Info("shopping list synced", "added", added)
			return nil
		}
	case "clear-purchased":
		job = func(ctx context.Context, svc *service.PantryService) error {
			count, err := svc.ClearPurchased(ctx)
			if err != nil {
				return err
			}
			logger.Info("purchased entries cleared", "count", count)
			return nil
		}
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	svc, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	return job(ctx, svc)
}
