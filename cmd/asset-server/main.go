package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/chi-demo/app"
	"github.com/tendant/simple-asset/internal/logging"
	"github.com/tendant/simple-asset/pkg/simpleasset/api"
	"github.com/tendant/simple-asset/pkg/simpleasset/config"
	"github.com/tendant/simple-asset/pkg/simpleasset/purge"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	logger, logCloser := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logCloser.Close()
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	ctx := context.Background()
	rt, err := cfg.BuildService(ctx)
	if err != nil {
		slog.Error("Failed to build asset service", "err", err)
		os.Exit(1)
	}
	defer rt.Close()

	// Trash purge
	purgeJob, err := purge.New(rt.Service, purge.Config{
		Cron:      cfg.PurgeCron,
		Retention: cfg.PurgeRetention,
		Batch:     cfg.PurgeBatch,
	}, logger)
	if err != nil {
		slog.Error("Failed to schedule trash purge", "err", err)
		os.Exit(1)
	}
	purgeJob.Start()
	defer purgeJob.Shutdown()

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)
	server.R.Handle("/metrics", rt.Metrics.Handler())

	tokenAuth := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)
	assetHandler := api.NewAssetHandler(rt.Service, 0)

	server.R.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.Metrics.Middleware)
		r.Group(func(r chi.Router) {
			r.Use(api.Authenticate(tokenAuth))
			r.Mount("/", assetHandler.Routes())
		})
	})

	if err := mountAdmin(server.R, rt.Service, cfg); err != nil {
		slog.Error("Failed initialize API Key middleware", "err", err)
		purgeJob.Shutdown()
		rt.Close()
		os.Exit(1)
	}

	slog.Info("Starting asset server",
		"environment", cfg.Environment,
		"database", cfg.DatabaseType,
		"events", cfg.EventDriver)

	// Start server
	server.Run()
}
