package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/extract"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <html-file>",
		Short: "Run the field extractors against a saved page",
		Long: `Extract applies the configured field locators to a saved HTML file and
prints the resulting profile. Use it to check a selectors file against
captured markup without a browser or a session.

Examples:
  orgscope extract --page primary top-card.html
  orgscope extract --page details --report about.html`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}
	cmd.Flags().StringP("page", "p", "details", "Which field set to apply: primary or details")
	cmd.Flags().StringP("source-url", "u", "", "Value recorded as source_about_url")
	cmd.Flags().BoolP("report", "r", false, "Print per-field locator attempts instead of the profile")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	opts, err := config.Load().PipelineOptions()
	if err != nil {
		return err
	}

	page, _ := cmd.Flags().GetString("page")
	var fields []extract.FieldSpec
	switch page {
	case "primary":
		fields = opts.PrimaryFields
	case "details":
		fields = opts.DetailsFields
	default:
		return fmt.Errorf("--page must be primary or details, got %q", page)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := extract.ParseHTML(f)
	if err != nil {
		return err
	}

	values := extract.NewValues()
	ex := extract.Extractor{
		Resolver: extract.Resolver{Timeout: opts.QueryTimeout},
		Fields:   fields,
	}
	reports := ex.Extract(cmd.Context(), doc, values)

	if report, _ := cmd.Flags().GetBool("report"); report {
		renderReports(cmd.OutOrStdout(), reports)
		return nil
	}

	source, _ := cmd.Flags().GetString("source-url")
	out, err := json.MarshalIndent(values.Profile(source), "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// renderReports prints one row per locator attempt.
func renderReports(w io.Writer, reports []extract.FieldReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "#", "Strategy", "Outcome", "Value"})
	for _, r := range reports {
		if len(r.Resolution.Attempts) == 0 {
			t.AppendRow(table.Row{r.Field, "", "", "absent", ""})
			continue
		}
		for i, a := range r.Resolution.Attempts {
			detail := a.Text
			if a.Err != nil {
				detail = a.Err.Error()
			}
			t.AppendRow(table.Row{r.Field, i + 1, a.Strategy.String(), a.Outcome.String(), detail})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
