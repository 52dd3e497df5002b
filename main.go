package main

import (
	"context"
	"database/sql"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))

	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := NewConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		slog.Error("Failed to open the database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		slog.Error("Failed to ping the database", "error", err)
		os.Exit(1)
	}

	pg := NewPostgreSQLDatabase(db)
	if err := pg.ApplySchema(context.Background()); err != nil {
		slog.Warn("Failed to apply database schema", "error", err)
	} else {
		slog.Info("Database schema applied")
	}

	store, err := NewDiskStorage(cfg.StorageDir)
	if err != nil {
		slog.Error("Failed to init storage", "error", err)
		os.Exit(1)
	}

	sweeper := NewOrphanSweeper(pg, store, cfg.SweepGrace)
	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSchedule, sweeper.Run); err != nil {
		slog.Error("Failed to schedule the orphan sweep", "error", err)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	server := NewAPIServer(cfg, pg, store, NewMailer(cfg))
	if err := server.Run(); err != nil {
		slog.Error("Server run error", "error", err)
		os.Exit(1)
	}
}
