package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/observability"
	"github.com/your-org/mpf/internal/storage"
)

// The migrate command ensures the database schema exists and optionally
// imports a legacy JSON encodings file into the cases tables.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	legacyPath := flag.String("legacy", "", "path to legacy encodings JSON file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database schema ensured")

	if *legacyPath != "" {
		imported, err := db.MigrateLegacyEncodings(ctx, *legacyPath)
		if err != nil {
			slog.Error("migrate legacy encodings", "error", err)
			os.Exit(1)
		}
		slog.Info("legacy encodings migrated", "imported", imported)
	}
}
