package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"courseforge/internal/api/v1/router"
	"courseforge/internal/config"
	"courseforge/internal/logger"
	"courseforge/internal/metrics"
	"courseforge/internal/orchestrator/generation"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "generation", "Orchestrator mode: generation")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Initialize DB connection. lib/pq does not understand pgx-only DSN settings.
	dsn := cfg.DBConnectionString
	if cfg.IsDevelopment() && !strings.Contains(dsn, "sslmode") {
		dsn = router.AppendDSNParam(dsn, "sslmode=disable")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svcs, res, err := router.NewServices(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to build services: %v", err)
	}
	defer res.Close()

	metricsSrv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metrics.Handler(), ReadTimeout: 5 * time.Second}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()
	defer metricsSrv.Close()

	// Dispatch to the selected orchestrator
	var runErr error
	switch *mode {
	case "generation":
		runErr = generation.Run(ctx, logger, svcs.Queue, svcs.Content, svcs.DLQ, generation.OptionsFromConfig(cfg))
	default:
		logger.Error().Msgf("Invalid mode: %s", *mode)
		return
	}

	if runErr != nil {
		logger.Error().Msgf("%s orchestrator failed: %v", *mode, runErr)
		return
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}
