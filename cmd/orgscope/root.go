package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/orgscope/api/handler"
	"github.com/use-agent/orgscope/config"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgscope",
		Short: "Company profile scraper for an authenticated browser session",
		Long: `orgscope extracts company profiles from LinkedIn company pages using a
previously captured sign-in session, stores them in SQLite, and serves them
over an HTTP API.

Run 'orgscope login' once to capture a session, then 'orgscope serve' or
'orgscope scrape <url>'. Configuration is read from ORGSCOPE_* environment
variables.`,
		Version:       handler.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cfg := config.Load().Log
			if v, _ := cmd.Flags().GetBool("verbose"); v {
				cfg.Level = "debug"
			}
			initLogger(cfg)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewQueryCmd())
	cmd.AddCommand(NewExtractCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// command output on stdout stays machine-readable.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
