// Command pantry-mcp exposes the pantry as Model Context Protocol tools over
// stdio or streamable HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vbonduro/pantry/internal/backend"
	"github.com/vbonduro/pantry/internal/config"
	"github.com/vbonduro/pantry/internal/logging"
	"github.com/vbonduro/pantry/internal/mcptools"
)

var version = "dev"

func main() {
	transport := flag.String("transport", "stdio", "Transport mode: stdio or http")
	addr := flag.String("addr", ":8082", "HTTP listen address (only used with --transport http)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Logs go to stderr; stdout belongs to the stdio transport.
	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, closeStore, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open pantry", "error", err)
		return
	}
	defer closeStore()

	srv := mcptools.NewServer(svc, version)

	switch *transport {
	case "stdio":
		logger.Info("pantry MCP server starting", "transport", "stdio")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
			logger.Error("server error", "error", err)
		}
	case "http":
		handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
			return srv
		}, nil)
		httpSrv := &http.Server{Addr: *addr, Handler: handler}
		go func() {
			<-ctx.Done()
			_ = httpSrv.Shutdown(context.WithoutCancel(ctx))
		}()
		logger.Info("pantry MCP server listening", "addr", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	default:
		logger.Error("unknown transport (use stdio or http)", "transport", *transport)
	}
}
