// Command shelfkeep opens (or creates) a shelfkeep database and brings its
// schema up to the current version. The library packages under internal/ do
// the real work; this binary exists to run migrations standalone and to give
// embedders a reference wiring.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/shelfkeep/shelfkeep/internal/store"
)

func main() {
	dbPath := flag.StringP("db", "d", "shelfkeep.db", "path to the database file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*debug {
		log = log.Level(zerolog.InfoLevel)
	}

	if err := run(context.Background(), *dbPath, log); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run(ctx context.Context, dbPath string, log zerolog.Logger) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := store.NewMigrator(s, log).Run(ctx); err != nil {
		return err
	}
	v, err := s.SchemaVersion()
	if err != nil {
		return err
	}
	log.Info().Str("db", dbPath).Int("schema", v).Msg("database ready")
	return nil
}
