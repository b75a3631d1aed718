package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/deskwatch/backend/internal/cache"
	"github.com/deskwatch/backend/internal/config"
	"github.com/deskwatch/backend/internal/db"
	"github.com/deskwatch/backend/internal/fetch"
	"github.com/deskwatch/backend/internal/helpdesk"
	httpapi "github.com/deskwatch/backend/internal/http"
	"github.com/deskwatch/backend/internal/ratelimit"
	"github.com/deskwatch/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "deskwatch-backend").Logger()

	ctx := context.Background()

	var store *db.Store
	if cfg.DatabaseURL != "" {
		store, err = db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
	} else {
		logger.Info().Msg("run history disabled, no DATABASE_URL")
	}

	client := &helpdesk.Client{
		BaseURL: cfg.HelpdeskBaseURL,
		APIKey:  cfg.HelpdeskAPIKey,
	}

	// The cache and limiter are the process-wide singletons; every
	// aggregation request shares them so rate accounting stays global.
	cacheInst := cache.New()
	limiter := ratelimit.New(cfg.RateLimitOverall, cfg.RateLimitTickets)

	fetcher := fetch.New(client, cacheInst, limiter, logger)
	fetcher.MaxAttempts = cfg.RetryMaxAttempts
	fetcher.BaseDelay = cfg.RetryBaseDelay

	dashboards := &service.DashboardService{
		Fetcher:           fetcher,
		Logger:            logger,
		ScoringDepartment: cfg.ScoringDepartment,
		ExcludedKeywords:  cfg.KeywordList(),
	}

	router := httpapi.Router(cfg, dashboards, store, cacheInst, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
