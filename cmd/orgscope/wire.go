package main

import (
	"log/slog"

	"github.com/use-agent/orgscope/cache"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/lookup"
	"github.com/use-agent/orgscope/pipeline"
	"github.com/use-agent/orgscope/scraper"
	"github.com/use-agent/orgscope/store"
	"github.com/use-agent/orgscope/webhook"
)

// app holds the long-lived components shared by serve and scrape.
type app struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	store   *store.Store
	hot     *cache.Cache
	lookup  *lookup.Service
}

// newApp wires config → browser → orchestrator → store → lookup service.
// The caller must Close the returned app.
func newApp(cfg *config.Config) (*app, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Dir, store.DefaultOptions())
	if err != nil {
		return nil, err
	}

	sc, err := scraper.NewScraper(cfg.Browser, cfg.Scraper)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		scraper: sc,
		store:   st,
		hot:     cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL),
	}

	lopts := lookup.Options{
		Normalizer: opts.Normalizer,
		Hot:        a.hot,
		RunTimeout: cfg.Scraper.RunTimeout,
	}
	if n := webhook.NewNotifier(cfg.Webhook.URL, cfg.Webhook.Secret); n != nil {
		lopts.Notifier = n
		slog.Info("webhook delivery enabled", "url", cfg.Webhook.URL)
	}

	a.lookup = lookup.New(st, pipeline.New(sc, opts), lopts)
	slog.Info("components ready",
		"store", st.Path(),
		"session", cfg.Session.File,
		"maxContexts", cfg.Browser.MaxPages,
	)
	return a, nil
}

// Close shuts the browser down and closes the store.
func (a *app) Close() error {
	a.hot.Close()
	a.scraper.Close()
	return a.store.Close()
}
