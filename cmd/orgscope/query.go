package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/models"
	"github.com/use-agent/orgscope/store"
)

// NewQueryCmd creates the query command.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Search stored company records",
		Long: `Query lists stored records without touching the browser. Results are
ordered by follower count, largest first.

Examples:
  orgscope query --min-followers 10000
  orgscope query --name acme --json
  orgscope query --industry "Software Development" --limit 20`,
		Args: cobra.NoArgs,
		RunE: runQuery,
	}

	cmd.Flags().Int64("min-followers", -1, "Only records with at least this many followers")
	cmd.Flags().Int64("max-followers", -1, "Only records with at most this many followers")
	cmd.Flags().StringP("name", "n", "", "Case-insensitive substring of the company name")
	cmd.Flags().StringP("industry", "i", "", "Exact industry")
	cmd.Flags().IntP("limit", "l", store.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolP("json", "j", false, "Output records as JSON")
	return cmd
}

func runQuery(cmd *cobra.Command, _ []string) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}

	cfg := config.Load()
	opts := store.DefaultOptions()
	opts.CreateIfNotExists = false
	st, err := store.Open(cfg.Store.Dir, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.Query(cmd.Context(), q)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		if recs == nil {
			recs = []*models.CompanyRecord{}
		}
		out, err := json.MarshalIndent(recs, "", "  ")
		if err != nil {
			return fmt.Errorf("encode records: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}

	renderRecords(cmd.OutOrStdout(), recs)
	return nil
}

func queryFromFlags(cmd *cobra.Command) (models.CompanyQuery, error) {
	var q models.CompanyQuery
	if v, _ := cmd.Flags().GetInt64("min-followers"); v >= 0 {
		q.MinFollowers = &v
	}
	if v, _ := cmd.Flags().GetInt64("max-followers"); v >= 0 {
		q.MaxFollowers = &v
	}
	if q.MinFollowers != nil && q.MaxFollowers != nil && *q.MinFollowers > *q.MaxFollowers {
		return q, errors.New("--min-followers must not exceed --max-followers")
	}
	q.Name, _ = cmd.Flags().GetString("name")
	q.Industry, _ = cmd.Flags().GetString("industry")
	q.Limit, _ = cmd.Flags().GetInt("limit")
	if q.Limit < 1 || q.Limit > store.MaxLimit {
		return q, fmt.Errorf("--limit must be between 1 and %d", store.MaxLimit)
	}
	return q, nil
}

// renderRecords prints recs as a table.
func renderRecords(w io.Writer, recs []*models.CompanyRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Page ID", "Name", "Followers", "Industry", "Size", "Partial", "Scraped"})
	for _, r := range recs {
		followers := "-"
		if r.Profile.Followers != nil {
			followers = strconv.FormatInt(*r.Profile.Followers, 10)
		}
		t.AppendRow(table.Row{
			r.PageID,
			models.Deref(r.Profile.Name),
			followers,
			models.Deref(r.Profile.Industry),
			models.Deref(r.Profile.CompanySize),
			r.Partial,
			r.ScrapedAt.Format("2006-01-02 15:04"),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(recs)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
