package scraper

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/models"
	"golang.org/x/sync/semaphore"
)

// Scraper owns the browser process and hands out one incognito browsing
// context per extraction run. It is safe for concurrent use.
type Scraper struct {
	browser        *rod.Browser
	slots          *semaphore.Weighted
	browserCfg     config.BrowserConfig
	scraperCfg     config.ScraperConfig
	activeContexts atomic.Int32
	startTime      time.Time
}

// NewScraper launches a browser and prepares the context limiter.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig) (*Scraper, error) {
	if browserCfg.MaxPages <= 0 {
		browserCfg.MaxPages = 1
	}

	browser, err := launch(browserCfg, browserCfg.Headless)
	if err != nil {
		return nil, err
	}
	slog.Info("context limiter created", "maxContexts", browserCfg.MaxPages)

	return &Scraper{
		browser:    browser,
		slots:      semaphore.NewWeighted(int64(browserCfg.MaxPages)),
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		startTime:  time.Now(),
	}, nil
}

// launch starts Chromium and connects to it.
func launch(cfg config.BrowserConfig, headless bool) (*rod.Browser, error) {
	l := launcher.New().
		Headless(headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Resource flags ──────────────────────────────────────────────
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", headless)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	return browser, nil
}

// Stats returns a snapshot of browsing context usage.
func (s *Scraper) Stats() models.BrowserStats {
	return models.BrowserStats{
		MaxContexts:    s.browserCfg.MaxPages,
		ActiveContexts: int(s.activeContexts.Load()),
	}
}

// Close kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: closing browser",
		"activeContexts", s.activeContexts.Load(),
		"uptime", time.Since(s.startTime).Round(time.Second),
	)
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	slog.Info("scraper shutdown complete")
}
