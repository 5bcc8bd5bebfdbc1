// Command importer loads an import manifest into the store: users,
// technicians, station exports with their daily reports and synthetic
// maintenance logs, radiosonde launches, and manual observations.
//
// Usage:
//
//	go run ./cmd/importer -manifest data/manifest.json -rebuild
//
// Source file paths in the manifest are relative to its directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/weather-report-store/internal/account"
	mongoadapter "github.com/couchcryptid/weather-report-store/internal/adapter/mongo"
	"github.com/couchcryptid/weather-report-store/internal/config"
	"github.com/couchcryptid/weather-report-store/internal/credential"
	"github.com/couchcryptid/weather-report-store/internal/ingest"
	"github.com/couchcryptid/weather-report-store/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	manifestPath := flag.String("manifest", "", "path to the import manifest (JSON)")
	rebuild := flag.Bool("rebuild", false, "drop the database and recreate indexes before importing")
	flag.Parse()

	if *manifestPath == "" {
		flag.Usage()
		return errors.New("missing required flag: -manifest")
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	f, err := os.Open(*manifestPath)
	if err != nil {
		return err
	}
	manifest, err := ingest.ReadManifest(f)
	f.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongoadapter.Connect(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("store close error", "error", err)
		}
	}()

	if *rebuild {
		logger.Warn("rebuilding database", "database", cfg.MongoDatabase)
		if err := store.Rebuild(ctx); err != nil {
			return err
		}
	} else if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	hasher, err := credential.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	cipher, err := credential.NewFieldCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}
	accounts := account.NewService(store, hasher, cipher, logger)

	importer := ingest.NewImporter(store, accounts, hasher, cfg.SourceTimezone, logger, metrics)
	sum, err := importer.Run(ctx, manifest, os.DirFS(filepath.Dir(*manifestPath)))

	fmt.Printf("users=%d technicians=%d stations=%d reports=%d maintenance=%d balloons=%d observations=%d failed=%d\n",
		sum.Users, sum.Technicians, sum.Stations, sum.Reports, sum.Maintenance, sum.Balloons, sum.Observations, sum.Failed)
	return err
}
