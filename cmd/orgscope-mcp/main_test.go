package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/use-agent/orgscope/models"
)

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestGetCompany(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotKey = r.URL.Path, r.URL.RawQuery, r.Header.Get("X-API-Key")
		_ = json.NewEncoder(w).Encode(models.CompanyResponse{
			Success:     true,
			PageID:      "acme",
			Data:        &models.CompanyProfile{Name: models.StringPtr("Acme Corp")},
			Partial:     true,
			CacheStatus: "refresh",
		})
	}))
	defer srv.Close()

	text, isErr := callTool(t, handleGetCompany(srv.Client(), srv.URL, "k1"), map[string]any{
		"page_id": "acme",
		"refresh": true,
	})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	if gotPath != "/api/v1/companies/acme" || gotQuery != "refresh=true" || gotKey != "k1" {
		t.Errorf("request = %s?%s key=%s", gotPath, gotQuery, gotKey)
	}
	for _, want := range []string{"Company: Acme Corp", "Cache: refresh", "about page could not be read", `"name": "Acme Corp"`} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}

func TestScrapeCompany_APIError(t *testing.T) {
	var got models.ScrapeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(models.CompanyResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeNotAuthenticated, Message: "session expired"},
		})
	}))
	defer srv.Close()

	text, isErr := callTool(t, handleScrapeCompany(srv.Client(), srv.URL, "k1"), map[string]any{
		"url": "https://www.linkedin.com/company/acme/",
	})
	if !isErr {
		t.Fatalf("expected an error result, got %s", text)
	}
	if text != "[NOT_AUTHENTICATED] session expired" {
		t.Errorf("text = %q", text)
	}
	if got.URL != "https://www.linkedin.com/company/acme/" || got.Refresh {
		t.Errorf("payload = %+v", got)
	}
}

func TestScrapeCompany_MissingURL(t *testing.T) {
	_, isErr := callTool(t, handleScrapeCompany(http.DefaultClient, "http://127.0.0.1:0", "k1"), map[string]any{})
	if !isErr {
		t.Fatal("expected an error result")
	}
}

func TestSearchCompanies(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		followers := int64(12345)
		_ = json.NewEncoder(w).Encode(models.CompanyListResponse{
			Success: true,
			Total:   2,
			Results: []*models.CompanyRecord{
				{PageID: "acme", Profile: models.CompanyProfile{Name: models.StringPtr("Acme Corp"), Followers: &followers}},
				{PageID: "nameless"},
			},
		})
	}))
	defer srv.Close()

	text, isErr := callTool(t, handleSearchCompanies(srv.Client(), srv.URL, "k1"), map[string]any{
		"min_followers": float64(100),
		"name":          "ac",
	})
	if isErr {
		t.Fatalf("unexpected error result: %s", text)
	}
	if gotQuery != "min_followers=100&name=ac" {
		t.Errorf("query = %q", gotQuery)
	}
	for _, want := range []string{"Found 2 companies", "1. Acme Corp (acme), 12345 followers", "2. nameless (nameless)"} {
		if !strings.Contains(text, want) {
			t.Errorf("result missing %q:\n%s", want, text)
		}
	}
}
