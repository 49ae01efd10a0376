package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/orgscope/lookup"
	"github.com/use-agent/orgscope/models"
)

// Scrape returns a handler for POST /api/v1/scrape.
//
// Flow:
//  1. Parse & validate request.
//  2. Lookup.GetURL → stored record, or a fresh extraction that is stored.
//  3. Fill timing, return 200.
func Scrape(lk Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.CompanyResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		// ── 2. Resolve ──────────────────────────────────────────────
		res, err := lk.GetURL(c.Request.Context(), req.URL, req.Refresh)
		if err != nil {
			respondError(c, err, start)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		respondRecord(c, res, start)
	}
}

func respondRecord(c *gin.Context, res *lookup.Result, start time.Time) {
	rec := res.Record
	scrapedAt := rec.ScrapedAt
	total := time.Since(start).Milliseconds()

	timing := models.TimingInfo{TotalMs: total}
	if res.CacheStatus != lookup.StatusHit {
		timing.ScrapeMs = total
	}

	c.JSON(http.StatusOK, models.CompanyResponse{
		Success:     true,
		PageID:      rec.PageID,
		Data:        &rec.Profile,
		Partial:     rec.Partial,
		ScrapedAt:   &scrapedAt,
		CacheStatus: res.CacheStatus,
		Timing:      timing,
	})
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, start time.Time) {
	se := models.AsScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.CompanyResponse{
		Success: false,
		Error:   se.ToDetail(),
		Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidAddress, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeSessionMissing, models.ErrCodeSessionInvalid, models.ErrCodeNotAuthenticated:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
