package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appconfig "github.com/fedutinova/meshgen/internal/config"
	"github.com/fedutinova/meshgen/internal/generator"
	"github.com/fedutinova/meshgen/internal/imagefetch"
	"github.com/fedutinova/meshgen/internal/metrics"
	"github.com/fedutinova/meshgen/internal/server"
	"github.com/fedutinova/meshgen/internal/storage"
	httpapi "github.com/fedutinova/meshgen/internal/transport/http"
)

func setupLogger(debug bool) {
	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	cfg := appconfig.Load()
	setupLogger(cfg.Debug)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if cfg.HFToken == "" {
		slog.Warn("HF_TOKEN is not set, the Space may reject or throttle requests")
	}
	slog.Info("starting meshgen", "addr", cfg.HTTPAddr, "space", cfg.Space, "debug", cfg.Debug)

	layout, err := storage.NewLayout(cfg.UploadDir, cfg.OutputDir)
	if err != nil {
		slog.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	slog.Info("storage initialized", "uploads", layout.UploadDir(), "output", layout.OutputDir())

	space, err := generator.NewSpaceClient(generator.SpaceOptions{
		Space:      cfg.Space,
		SpaceURL:   cfg.SpaceURL,
		APIName:    cfg.APIName,
		HubAPIBase: cfg.HubAPIBase,
		Token:      cfg.HFToken,
		CacheDir:   cfg.CacheDir,
	})
	if err != nil {
		slog.Error("failed to initialize generator", "err", err)
		os.Exit(1)
	}

	collector := metrics.NewCollector()

	handlers := &httpapi.Handlers{
		Store:     layout,
		Generator: generator.Instrument(space, collector),
		Fetcher: imagefetch.New(imagefetch.Options{
			Timeout:  cfg.ImageFetchTimeout,
			MaxBytes: cfg.MaxUploadBytes,
		}),
		Observer: collector,
		Config:   cfg,
	}
	r := server.NewRouter(handlers, collector)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	slog.Info("shutting down")

	shCtx, shCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		slog.Warn("graceful shutdown incomplete", "err", err)
	}
}
