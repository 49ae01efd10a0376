package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/use-agent/orgscope/config"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <company-url>",
		Short: "Scrape one company page and print the record as JSON",
		Long: `Scrape resolves one company through the same cache-aside path the API
uses: a stored record is printed as is, otherwise the page is scraped,
stored and printed.

Examples:
  orgscope scrape https://www.linkedin.com/company/acme/
  orgscope scrape --refresh https://www.linkedin.com/company/acme/about/`,
		Args: cobra.ExactArgs(1),
		RunE: runScrape,
	}
	cmd.Flags().BoolP("refresh", "r", false, "Ignore stored records and scrape again")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	refresh, _ := cmd.Flags().GetBool("refresh")

	a, err := newApp(config.Load())
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Error("close failed", "error", err)
		}
	}()

	res, err := a.lookup.GetURL(cmd.Context(), args[0], refresh)
	if err != nil {
		return err
	}
	slog.Info("company resolved",
		"pageID", res.Record.PageID,
		"cacheStatus", res.CacheStatus,
		"partial", res.Record.Partial,
	)

	out, err := json.MarshalIndent(res.Record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}
