package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/repository/postgres"
)

func main() {
	source := flag.String("source", "file://migrations", "migration source URL")
	down := flag.Int("down", 0, "roll back this many migrations instead of applying")
	flag.Parse()

	_ = godotenv.Load()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("source", *source).
		Msg("Running database migrations")

	if *down > 0 {
		err = postgres.RollbackMigrations(cfg.Database.DSN(), *source, *down)
	} else {
		err = postgres.RunMigrations(cfg.Database.DSN(), *source)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}
