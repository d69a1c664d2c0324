package main

import (
	"context"
	"flag"
	"os"

	"medrent/internal/cli"
	mlog "medrent/internal/log"
	"medrent/internal/storage"
)

// seed loads a fixtures file into the SQLite database.
func main() {
	file := flag.String("file", "", "fixtures JSON file to import")
	reset := flag.Bool("reset", false, "roll back every migration before importing")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(mlog.ComponentStorage, cfg.LogLevel)

	path := *file
	if path == "" {
		path = cfg.SeedFile
	}
	if path == "" {
		logger.Error("No fixtures file: pass -file or set SEED_FILE")
		os.Exit(1)
	}

	if *reset {
		if err := storage.RollbackMigrations(cfg.SQLiteDBPath); err != nil {
			logger.Error("Failed to reset database", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		logger.Info("Database reset", "path", cfg.SQLiteDBPath)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	if err := repo.ImportFixtures(context.Background(), path); err != nil {
		logger.Error("Failed to import fixtures", "error", err, "file", path)
		os.Exit(1)
	}

	version, dirty, err := storage.SchemaVersion(cfg.SQLiteDBPath)
	if err != nil {
		logger.Warn("Could not read schema version", "error", err)
	}
	logger.Info("Fixtures imported", "file", path, "db", cfg.SQLiteDBPath, "schema_version", version, "dirty", dirty)
}
