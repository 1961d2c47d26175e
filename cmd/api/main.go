package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/QTest-hq/casegen/internal/api"
	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/db"
	"github.com/QTest-hq/casegen/internal/events"
	"github.com/QTest-hq/casegen/internal/generator"
	"github.com/QTest-hq/casegen/internal/llm"
	"github.com/QTest-hq/casegen/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() || term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// LLM stack: router -> cache -> usage tracking
	router, err := llm.NewRouter(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create LLM router")
	}
	cache := llm.CreateCache(cfg.LLM.CacheType, cfg.LLM.CacheSize, cfg.LLM.CacheTTL)
	if mc, ok := cache.(*llm.MemoryCache); ok {
		defer mc.Close()
	}
	tracker := llm.NewUsageTracker(llm.UsageTrackerConfig{
		Budget: llm.BudgetConfig{
			HourlyTokenLimit:  cfg.LLM.HourlyTokenLimit,
			DailyTokenLimit:   cfg.LLM.DailyTokenLimit,
			MonthlyBudgetUSD:  cfg.LLM.MonthlyBudgetUSD,
			RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		},
	})
	defer tracker.Close()
	completer := llm.NewTrackedRouter(llm.NewCachedRouter(router, cache, cfg.LLM.CacheTTL), tracker)

	gen := generator.NewGenerator(completer, generator.Options{
		ThinkingBudget: cfg.LLM.ThinkingBudget,
	})

	deps := api.Deps{
		Usage: tracker,
		Checks: map[string]api.HealthCheck{
			"llm": func(context.Context) error { return router.HealthCheck() },
		},
	}
	opts := session.Options{
		Generator: gen,
		Model:     cfg.LLM.GenerationModel,
	}

	// Run history
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer database.Close()

		store := db.NewStore(database)
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		opts.Recorder = store
		deps.Runs = store
		deps.Checks["database"] = database.HealthCheck
	} else {
		log.Info().Msg("DATABASE_URL not set, run history disabled")
	}

	// Generation events
	if cfg.NATSURL != "" {
		client, err := events.NewClient(cfg.NATSURL, "casegen-api")
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer client.Close()

		if err := client.SetupStreams(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to setup streams")
		}
		opts.Publisher = events.NewPublisher(client)
		deps.Checks["nats"] = func(context.Context) error { return client.HealthCheck() }
	}

	sessions := session.NewManager(opts)
	defer sessions.CloseAll()
	deps.Sessions = sessions

	// Create server
	srv, err := api.NewServer(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Start server. WriteTimeout leaves room for slow generations.
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 7 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("could not gracefully shutdown the server")
		}
		close(done)
	}()

	log.Info().
		Int("port", cfg.Port).
		Interface("providers", router.Providers()).
		Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("could not listen on port")
	}

	<-done
	log.Info().Msg("server stopped")
}
