// Command orgscope-mcp exposes the orgscope HTTP API as MCP tools over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/orgscope/models"
)

func main() {
	apiURL := os.Getenv("ORGSCOPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("ORGSCOPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "ORGSCOPE_API_KEY is required")
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(apiURL, apiKey)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"orgscope",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	// Scrapes can wait on a browser slot and two page loads.
	client := &http.Client{Timeout: 180 * time.Second}

	getCompanyTool := mcp.NewTool("get_company",
		mcp.WithDescription("Look up a company profile by its LinkedIn page id (the slug in linkedin.com/company/<slug>/). Returns the stored record, scraping the page first when none is stored."),
		mcp.WithString("page_id",
			mcp.Required(),
			mcp.Description("Company slug, e.g. 'acme'"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Ignore the stored record and scrape again (default: false)"),
		),
	)
	s.AddTool(getCompanyTool, handleGetCompany(client, apiURL, apiKey))

	scrapeCompanyTool := mcp.NewTool("scrape_company",
		mcp.WithDescription("Look up a company profile by its LinkedIn company page address. Accepts the top-card or about page in any common form."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Company page address, e.g. https://www.linkedin.com/company/acme/"),
		),
		mcp.WithBoolean("refresh",
			mcp.Description("Ignore the stored record and scrape again (default: false)"),
		),
	)
	s.AddTool(scrapeCompanyTool, handleScrapeCompany(client, apiURL, apiKey))

	searchTool := mcp.NewTool("search_companies",
		mcp.WithDescription("Search previously stored company profiles. Does not scrape. Results are ordered by follower count, largest first."),
		mcp.WithNumber("min_followers",
			mcp.Description("Only companies with at least this many followers"),
		),
		mcp.WithNumber("max_followers",
			mcp.Description("Only companies with at most this many followers"),
		),
		mcp.WithString("name",
			mcp.Description("Case-insensitive substring of the company name"),
		),
		mcp.WithString("industry",
			mcp.Description("Exact industry, e.g. 'Software Development'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 100, max: 500)"),
		),
	)
	s.AddTool(searchTool, handleSearchCompanies(client, apiURL, apiKey))

	return s
}

// apiDo sends a request to the orgscope API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, endpoint, apiKey string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleGetCompany(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		pageID, err := request.RequireString("page_id")
		if err != nil || strings.TrimSpace(pageID) == "" {
			return mcp.NewToolResultError("page_id is required"), nil
		}

		endpoint := apiURL + "/api/v1/companies/" + url.PathEscape(pageID)
		if request.GetBool("refresh", false) {
			endpoint += "?refresh=true"
		}

		respBody, err := apiDo(ctx, client, http.MethodGet, endpoint, apiKey, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return companyResult(respBody), nil
	}
}

func handleScrapeCompany(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		address, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.ScrapeRequest{
			URL:     address,
			Refresh: request.GetBool("refresh", false),
		}
		respBody, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/scrape", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return companyResult(respBody), nil
	}
}

func handleSearchCompanies(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := url.Values{}
		args := request.GetArguments()
		for _, key := range []string{"min_followers", "max_followers", "limit"} {
			if _, ok := args[key]; ok {
				params.Set(key, strconv.Itoa(request.GetInt(key, 0)))
			}
		}
		if name := request.GetString("name", ""); name != "" {
			params.Set("name", name)
		}
		if industry := request.GetString("industry", ""); industry != "" {
			params.Set("industry", industry)
		}

		endpoint := apiURL + "/api/v1/companies"
		if len(params) > 0 {
			endpoint += "?" + params.Encode()
		}

		respBody, err := apiDo(ctx, client, http.MethodGet, endpoint, apiKey, nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var listResp models.CompanyListResponse
		if err := json.Unmarshal(respBody, &listResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !listResp.Success {
			return mcp.NewToolResultError(errorText(listResp.Error, "search failed")), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d companies:\n\n", listResp.Total)
		for i, rec := range listResp.Results {
			fmt.Fprintf(&sb, "%d. %s (%s)", i+1, displayName(rec), rec.PageID)
			if rec.Profile.Followers != nil {
				fmt.Fprintf(&sb, ", %d followers", *rec.Profile.Followers)
			}
			if rec.Profile.Industry != nil {
				fmt.Fprintf(&sb, ", %s", *rec.Profile.Industry)
			}
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// companyResult renders a CompanyResponse body as tool output.
func companyResult(body []byte) *mcp.CallToolResult {
	var resp models.CompanyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err))
	}
	if !resp.Success || resp.Data == nil {
		return mcp.NewToolResultError(errorText(resp.Error, "lookup failed"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Company: %s\nPage ID: %s\nCache: %s\n", models.Deref(resp.Data.Name), resp.PageID, resp.CacheStatus)
	if resp.Partial {
		sb.WriteString("Note: the about page could not be read; only top-card fields are present.\n")
	}

	data, _ := json.MarshalIndent(resp.Data, "", "  ")
	sb.WriteString("\n")
	sb.Write(data)
	return mcp.NewToolResultText(sb.String())
}

func errorText(e *models.ErrorDetail, fallback string) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func displayName(rec *models.CompanyRecord) string {
	if rec.Profile.Name != nil {
		return *rec.Profile.Name
	}
	return rec.PageID
}
