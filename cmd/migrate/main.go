package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/JhnOkall/avenuefashion-backend/pkg/config"
	"github.com/JhnOkall/avenuefashion-backend/pkg/db"
	"github.com/JhnOkall/avenuefashion-backend/pkg/logger"
	"github.com/JhnOkall/avenuefashion-backend/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to get sql handle", err)
		os.Exit(1)
	}

	if err := migrate.Run(ctx, sqlDB, *dir, *cmd, flag.Args()...); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration complete")
}
