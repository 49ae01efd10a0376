package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/orgscope/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// StatsProvider reports browser usage.
type StatsProvider interface {
	Stats() models.BrowserStats
}

// Health returns a handler for GET /api/v1/health.
//
// Reports browsing context utilisation and degrades status when more than
// 80% of contexts are active.
func Health(sp StatsProvider, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sp.Stats()

		status := "healthy"
		if stats.MaxContexts > 0 && stats.ActiveContexts > int(float64(stats.MaxContexts)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       status,
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			BrowserStats: stats,
			Version:      Version,
		})
	}
}
