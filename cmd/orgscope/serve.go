package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/orgscope/api"
	"github.com/use-agent/orgscope/config"
)

// shutdownGrace is how long in-flight requests get to finish.
const shutdownGrace = 5 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve starts the HTTP API on ORGSCOPE_HOST:ORGSCOPE_PORT.

Endpoints:
  GET  /api/v1/health
  GET  /api/v1/companies/:id    cached lookup by slug (?refresh=true re-scrapes)
  GET  /api/v1/companies        search stored records
  POST /api/v1/scrape           cached lookup by company page address`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides ORGSCOPE_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}
	if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
		return errors.New("auth is enabled but ORGSCOPE_API_KEYS is empty")
	}
	slog.Info("orgscope starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxContexts", cfg.Browser.MaxPages,
	)

	// ── 2. Wire components (launches browser) ───────────────────────
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("close failed", "error", err)
		}
	}()

	// ── 3. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(a.lookup, a.scraper, cfg, startTime)

	// ── 4. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// ── 5. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// a.Close() runs via defer and kills Chrome.
	slog.Info("orgscope stopped")
	return nil
}
