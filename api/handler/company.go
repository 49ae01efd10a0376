package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/orgscope/lookup"
	"github.com/use-agent/orgscope/models"
)

// Lookup is the cache-aside service the handlers call.
type Lookup interface {
	Get(ctx context.Context, pageID string, refresh bool) (*lookup.Result, error)
	GetURL(ctx context.Context, rawAddress string, refresh bool) (*lookup.Result, error)
	Search(ctx context.Context, q models.CompanyQuery) ([]*models.CompanyRecord, error)
}

// GetCompany returns a handler for GET /api/v1/companies/:id.
//
// The id is the company slug. A stored record is returned as is; otherwise
// the company is scraped, stored and returned. ?refresh=true forces a scrape.
func GetCompany(lk Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		refresh, err := parseBool(c.Query("refresh"))
		if err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "refresh must be a boolean", err), start)
			return
		}

		res, err := lk.Get(c.Request.Context(), c.Param("id"), refresh)
		if err != nil {
			respondError(c, err, start)
			return
		}
		respondRecord(c, res, start)
	}
}

// ListCompanies returns a handler for GET /api/v1/companies.
//
// Filters: min_followers, max_followers, name (substring), industry (exact),
// limit (1-500, default 100). Only stored records are searched.
func ListCompanies(lk Lookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q models.CompanyQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, models.CompanyListResponse{
				Success: false,
				Results: []*models.CompanyRecord{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		if q.MinFollowers != nil && q.MaxFollowers != nil && *q.MinFollowers > *q.MaxFollowers {
			c.JSON(http.StatusBadRequest, models.CompanyListResponse{
				Success: false,
				Results: []*models.CompanyRecord{},
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "min_followers must not exceed max_followers",
				},
			})
			return
		}

		recs, err := lk.Search(c.Request.Context(), q)
		if err != nil {
			se := models.AsScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.CompanyListResponse{
				Success: false,
				Results: []*models.CompanyRecord{},
				Error:   se.ToDetail(),
			})
			return
		}
		if recs == nil {
			recs = []*models.CompanyRecord{}
		}
		c.JSON(http.StatusOK, models.CompanyListResponse{
			Success: true,
			Total:   len(recs),
			Results: recs,
		})
	}
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
