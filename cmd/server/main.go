package main

import (
	"context"
	"net/http"
	"time"

	"masterfy/internal/config"
	"masterfy/internal/database"
	"masterfy/internal/handlers"
	"masterfy/internal/portfolio"
	"masterfy/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal(err)
	}
	logger.SetLevel(cfg.LogLevel)

	db, err := initDB(cfg.PostgresURL)
	if err != nil {
		logger.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	r := database.New(db, logger)
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	quotes := service.NewYahooQuotes(httpClient, logger)
	rates := service.NewCDIRates(httpClient, logger)
	refresher := service.NewPriceRefresher(r, quotes, logger)
	backups := service.NewBackupService(r, cfg.BackupDir, cfg.BackupRetain, logger)
	engine := portfolio.NewEngine(rates, cfg.DefaultBenchmarkMultiplier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher.Start(ctx, cfg.PriceUpdateInterval)
	backups.Start(ctx, cfg.BackupInterval)

	h := handlers.NewHandler(r, engine, refresher, backups, logger)

	rg := gin.Default()
	h.Register(rg)

	logger.Infof("server starting on :%s", cfg.Port)
	if err := rg.Run(":" + cfg.Port); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

func initDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return db, nil
}
