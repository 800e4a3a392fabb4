package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"masterfy/internal/config"
	"masterfy/internal/database"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// app holds what every subcommand needs.
type app struct {
	cfg  config.Config
	db   *sqlx.DB
	repo *database.Repo
	http *http.Client
	log  *logrus.Logger
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	return &app{
		cfg:  cfg,
		db:   db,
		repo: database.New(db, log),
		http: &http.Client{Timeout: cfg.HTTPTimeout},
		log:  log,
	}, nil
}

func (a *app) Close() error { return a.db.Close() }
