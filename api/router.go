package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/orgscope/api/handler"
	"github.com/use-agent/orgscope/api/middleware"
	"github.com/use-agent/orgscope/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is served without auth.
func NewRouter(lk handler.Lookup, sp handler.StatsProvider, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth.
	v1.GET("/health", handler.Health(sp, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Companies
	protected.GET("/companies", handler.ListCompanies(lk))
	protected.GET("/companies/:id", handler.GetCompany(lk))

	// Scrape by address
	protected.POST("/scrape", handler.Scrape(lk))

	return r
}
