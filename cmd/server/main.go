package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"portfoliolab/internal/analytics"
	"portfoliolab/internal/api"
	"portfoliolab/internal/marketdata"
	"portfoliolab/internal/migrations"
	"portfoliolab/internal/store"
	"portfoliolab/internal/utils"
)

func main() {
	logger := utils.NewAppLogger()
	logger.Info("Starting PortfolioLab server...")

	config, err := utils.LoadConfig("configs")
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", config.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established")

	if err := migrations.RunMigrations(db); err != nil {
		logger.Fatal("Failed to run migrations: %v", err)
	}

	st := store.New(db)
	provider := marketdata.NewProvider(st)
	fetcher := marketdata.NewFetcher(config.MarketData.QuoteURL,
		time.Duration(config.MarketData.Timeout)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updater := marketdata.NewUpdater(st, fetcher, logger, config.MarketData.LookbackDays)
	if err := updater.Start(ctx, config.MarketData.RefreshSchedule); err != nil {
		logger.Fatal("Failed to start price updater: %v", err)
	}
	defer updater.Stop()

	engine := analytics.NewEngine(provider, logger)

	server := api.NewServer(logger, config, st, engine)
	if err := server.Start(); err != nil {
		logger.Fatal("Server exited with error: %v", err)
	}
}
