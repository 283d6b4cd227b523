package main

import (
	"context"
	"flag"
	"time"

	"settlement-service/internal/config"
	"settlement-service/internal/database"
	"settlement-service/internal/logger"
	"settlement-service/internal/repository"
	"settlement-service/internal/services"
)

func main() {
	syncBanks := flag.Bool("sync-banks", false, "refresh the bank catalogue from Flutterwave after migrating")
	country := flag.String("country", "NG", "country whose banks are synced")
	flag.Parse()

	// Load environment variables
	config.LoadEnv()
	cfg := config.Load()
	log := logger.New(cfg.AppName+"-migrate", cfg.LogLevel)

	// Initialize Database
	db, err := database.Connect(cfg.DB.DSN(), log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Run Migrations
	log.Info("Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("Migration failed")
	}
	log.Info("Migrations completed successfully!")

	if !*syncBanks {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	helper := services.NewHelperService(repository.NewLedger(db), log, nil, nil, nil)
	gateway := services.NewFlutterwaveService(cfg.Flutterwave.BaseURL, cfg.Flutterwave.SecretKey, cfg.Flutterwave.Timeout, log)
	count, err := services.NewWalletService(helper).SyncBanks(ctx, gateway, *country)
	if err != nil {
		log.WithError(err).Fatal("Bank sync failed")
	}
	log.Infof("Synced %d banks", count)
}
