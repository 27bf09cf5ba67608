package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"bastion-icc/config"
	"bastion-icc/core/appbootstrap"
	"bastion-icc/core/store"
	"bastion-icc/core/utils"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()
	logger := utils.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Errorf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, cfg, logger); err != nil {
		logger.Errorf("apply migrations: %v", err)
		os.Exit(1)
	}

	app, err := appbootstrap.Compose(cfg, db, logger)
	if err != nil {
		logger.Errorf("compose application: %v", err)
		os.Exit(1)
	}
	if err := app.Run(ctx); err != nil {
		logger.Errorf("server: %v", err)
		os.Exit(1)
	}
}
