package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/db"
	"github.com/QTest-hq/casegen/internal/events"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if cfg.DatabaseURL == "" || cfg.NATSURL == "" {
		log.Fatal().Msg("DATABASE_URL and NATS_URL are required for the archiver")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("archiver is shutting down...")
		cancel()
	}()

	// Connect to database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	store := db.NewStore(database)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Connect to NATS
	client, err := events.NewClient(cfg.NATSURL, "casegen-worker")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer client.Close()
	log.Info().Str("url", cfg.NATSURL).Msg("connected to NATS")

	if err := client.SetupStreams(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to setup streams")
	}

	archiver := events.NewArchiver(client, store)
	if err := archiver.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("archiver error")
	}

	log.Info().Msg("archiver stopped")
}
