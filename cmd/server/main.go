// Package main is the entry point for the devconnect API server.
//
// main stays minimal: load configuration, build the logger, make sure the
// database directory exists, then hand everything to internal/server.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/devconnect/internal/config"
	"github.com/sakif/devconnect/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	if !cfg.TokenVerify {
		logger.Warn("TOKEN_VERIFY=false: tokens are decoded without checking signature or expiry")
	}

	// Make sure the data directory exists (like `mkdir -p`).
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
