// Package main implements the lingua terminal client. It keeps the login and
// the last known ledger snapshot in a local SQLite database between runs.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/lingua-api/internal/client"
	"github.com/phrazzld/lingua-api/internal/client/session"
	"github.com/phrazzld/lingua-api/internal/client/snapshot"
	"github.com/phrazzld/lingua-api/internal/config"
	"github.com/phrazzld/lingua-api/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.SetupWithWriter(cfg.LogLevel, os.Stderr)
	log.Debug("client configuration loaded",
		slog.String("server_url", cfg.ServerURL),
		slog.String("cache_path", cfg.CachePath))

	api, err := client.New(cfg.ServerURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second)
	if err != nil {
		return err
	}

	store, err := snapshot.Open(ctx, cfg.CachePath, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close snapshot database", slog.String("error", err.Error()))
		}
	}()

	a := &app{
		sess: session.New(api, store, log),
		in:   bufio.NewReader(os.Stdin),
		out:  os.Stdout,
	}
	return a.run(ctx, args)
}
