package models

import "time"

// CompanyResponse is the response for single-company lookups
// (GET /api/v1/companies/:id and POST /api/v1/scrape).
type CompanyResponse struct {
	// Success indicates whether a record could be produced.
	Success bool `json:"success"`

	// PageID is the company slug the record is stored under.
	PageID string `json:"page_id,omitempty"`

	// Data is the extracted company profile.
	Data *CompanyProfile `json:"data,omitempty"`

	// Partial is true when the details page could not be loaded and only
	// top-card fields were extracted.
	Partial bool `json:"partial,omitempty"`

	// ScrapedAt is when the underlying record was produced.
	ScrapedAt *time.Time `json:"scraped_at,omitempty"`

	// CacheStatus is "hit" (served from storage), "miss" (freshly scraped)
	// or "refresh" (forced re-scrape).
	CacheStatus string `json:"cache_status,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// CompanyListResponse is the response for GET /api/v1/companies.
type CompanyListResponse struct {
	Success bool             `json:"success"`
	Total   int              `json:"total"`
	Results []*CompanyRecord `json:"results"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// ErrorResponse is written by middleware that aborts before a handler runs.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// ScrapeMs is the time spent in the browser, zero on cache hits.
	ScrapeMs int64 `json:"scrape_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status       string       `json:"status"` // "healthy" or "degraded"
	Uptime       string       `json:"uptime"`
	BrowserStats BrowserStats `json:"browser_stats"`
	Version      string       `json:"version"`
}

// BrowserStats reports how many browsing contexts are in use.
type BrowserStats struct {
	MaxContexts    int `json:"max_contexts"`
	ActiveContexts int `json:"active_contexts"`
}
