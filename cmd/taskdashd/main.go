// Command taskdashd is the TaskDash server daemon.
// It wires the persistence adapter, task store, timer engine, and tracker
// together and serves the REST API.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GoCodeAlone/taskdash/config"
	"github.com/GoCodeAlone/taskdash/internal/version"
	"github.com/GoCodeAlone/taskdash/notify"
	"github.com/GoCodeAlone/taskdash/server"
	"github.com/GoCodeAlone/taskdash/session"
	"github.com/GoCodeAlone/taskdash/storage"
	"github.com/GoCodeAlone/taskdash/task"
	"github.com/GoCodeAlone/taskdash/timer"
	"github.com/GoCodeAlone/taskdash/tracker"
)

var configPath = flag.String("config", "", "path to YAML config file")

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting taskdashd",
		"version", version.Version,
		"commit", version.Commit,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}
	kv, err := storage.NewSQLiteKV(filepath.Join(cfg.DataDir, "taskdash.db"))
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer kv.Close() //nolint:errcheck

	store, err := task.NewStore(kv)
	if err != nil {
		log.Fatalf("Failed to load tasks: %v", err)
	}

	notifier := notify.NewInMemoryNotifier()
	timers := timer.New(kv, logger)
	tr := tracker.New(store, timers, notifier, logger)
	tr.ResumeTimers()

	sessions := session.NewManager(cfg.Users, kv, cfg.Auth.JWTSecret)

	srv := server.New(*cfg, version.Version, logger)
	srv.SetTracker(tr)
	srv.SetSessions(sessions)
	srv.SetNotifier(notifier)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server error: %v", err)
	case <-sigCh:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	tr.Shutdown()
	logger.Info("shutdown complete")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
