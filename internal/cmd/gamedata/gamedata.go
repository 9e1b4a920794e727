// Package gamedata parses gamedata command flags and prepares the store.
//
// The command brings the backing store to the current schema version and
// hydrates the preference caches, which is exactly what the bot process
// does before its chat transport connects. Run standalone it doubles as a
// pre-flight migration check for a data directory.
package gamedata

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	entrypoint "github.com/moonhollow/moonhollow/internal/platform/cmd"
	"github.com/moonhollow/moonhollow/internal/services/gamedata/app"
	gamesqlite "github.com/moonhollow/moonhollow/internal/services/gamedata/storage/sqlite"
)

// Config holds gamedata command configuration.
type Config struct {
	DBPath     string `env:"MOONHOLLOW_GAMEDATA_DB_PATH" envDefault:"data/gamedata.db"`
	SystemName string `env:"MOONHOLLOW_GAMEDATA_SYSTEM_NAME" envDefault:"moonhollow"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the gamedata SQLite database")
	fs.StringVar(&cfg.SystemName, "system-name", cfg.SystemName, "Display name for system-issued warnings")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run brings the store to the current schema version and hydrates the
// preference caches.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGamedata, func(ctx context.Context) error {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}

		store, err := gamesqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		service := app.New(store, app.Config{SystemName: cfg.SystemName})
		if err := service.HydratePreferences(ctx); err != nil {
			return err
		}

		log.Printf("gamedata store ready at %s (schema v%d)", cfg.DBPath, gamesqlite.SchemaVersion)
		return nil
	})
}
