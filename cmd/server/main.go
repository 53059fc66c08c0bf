package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"quizmaster/internal/config"
	"quizmaster/internal/db"
	"quizmaster/internal/server"
)

func main() {
	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(logger)

	if err := config.LoadDotEnv(".env"); err != nil {
		logger.Warn("failed to load .env", slog.Any("error", err))
	}
	cfg := config.Load()

	conn, err := db.Open()
	if err != nil {
		logger.Error("database open failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.ConfigurePool(conn,
		cfg.DBMaxOpenConns,
		cfg.DBMaxIdleConns,
		time.Duration(cfg.DBConnMaxLifetimeSeconds)*time.Second,
		time.Duration(cfg.DBConnMaxIdleTimeSeconds)*time.Second,
	); err != nil {
		logger.Error("pool configuration failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.Migrate(conn); err != nil {
		logger.Error("migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	srv := server.New(conn, cfg, logger)
	addr := ":" + cfg.Port
	logger.Info("quizmaster server listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
