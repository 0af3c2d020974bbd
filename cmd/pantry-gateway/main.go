// Command pantry-gateway serves the pantry client through the offline cache
// gateway.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vbonduro/pantry/internal/config"
	"github.com/vbonduro/pantry/internal/logging"
	"github.com/vbonduro/pantry/internal/offline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	gwCfg := cfg.Gateway

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	origin, err := url.Parse(gwCfg.Origin)
	if err != nil {
		logger.Error("invalid gateway origin", "origin", gwCfg.Origin, "error", err)
		return
	}

	assets := gwCfg.Assets
	if len(assets) == 0 {
		assets = offline.DefaultAssets
	}
	bypass := gwCfg.Bypass
	if len(bypass) == 0 {
		bypass = append([]string(nil), offline.DefaultBypass...)
	}
	if gwCfg.ServiceURL != "" {
		svcURL, err := url.Parse(gwCfg.ServiceURL)
		if err != nil || svcURL.Host == "" {
			logger.Error("invalid SERVICE_URL", "url", gwCfg.ServiceURL)
			return
		}
		bypass = append(bypass, svcURL.Host)
	}

	storage, err := offline.NewDiskStorage(gwCfg.CacheDir)
	if err != nil {
		logger.Error("failed to open cache storage", "error", err)
		return
	}

	gw, err := offline.New(offline.Config{
		Origin:  origin,
		Version: gwCfg.CacheVersion,
		Assets:  assets,
		Bypass:  bypass,
	}, storage, &http.Client{Timeout: 30 * time.Second}, logger)
	if err != nil {
		logger.Error("failed to create gateway", "error", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// A failed install leaves the gateway passing every request through.
	if err := gw.Start(ctx); err != nil {
		logger.Error("offline cache not installed", "error", err)
	}

	srv := &http.Server{
		Addr:         gwCfg.ListenAddr,
		Handler:      gw,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("gateway listening", "addr", gwCfg.ListenAddr, "origin", origin.String())

	select {
	case err := <-errCh:
		logger.Error("server error", "error", err)
		return
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
	}
	gw.Wait()
}
