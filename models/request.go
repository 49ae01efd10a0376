package models

// ScrapeRequest is the payload for POST /api/v1/scrape.
type ScrapeRequest struct {
	// URL is the company page to scrape, e.g.
	// https://www.linkedin.com/company/<slug>/. Required.
	URL string `json:"url" binding:"required"`

	// Refresh bypasses both cache tiers and replaces any stored record.
	Refresh bool `json:"refresh,omitempty"`
}

// CompanyQuery holds the query-string filters for GET /api/v1/companies.
type CompanyQuery struct {
	MinFollowers *int64 `form:"min_followers" binding:"omitempty,min=0"`
	MaxFollowers *int64 `form:"max_followers" binding:"omitempty,min=0"`
	Name         string `form:"name"`
	Industry     string `form:"industry"`
	Limit        int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Defaults applies default values to unset fields.
func (q *CompanyQuery) Defaults() {
	if q.Limit == 0 {
		q.Limit = 100
	}
}
