package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/reelkeep/reelkeep-backend/pkg/config"
	"github.com/reelkeep/reelkeep-backend/pkg/db"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
	"github.com/reelkeep/reelkeep-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "status", "migration command: up, down, status, validate")
	dir := flag.String("dir", migrate.DefaultDir, "directory containing migration files")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	switch *cmd {
	case "up", "down", "status", "validate":
	default:
		logg.Error(ctx, "unknown migration command", fmt.Errorf("cmd %q is not supported", *cmd))
		os.Exit(1)
	}

	if *cmd == "validate" {
		if err := migrate.ValidateDir(*dir); err != nil {
			logg.Error(ctx, "migration directory is invalid", err)
			os.Exit(1)
		}
		logg.Info(ctx, "migration directory is valid")
		return
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.SQLDB()
	if err != nil {
		logg.Error(ctx, "failed to resolve sql connection", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "dir": *dir})
	logg.Info(ctx, "running migrations")

	if err := migrate.Run(ctx, sqlDB, *dir, *cmd); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrations complete")
}
