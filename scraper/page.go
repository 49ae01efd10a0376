package scraper

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/orgscope/extract"
	"github.com/use-agent/orgscope/models"
	"github.com/use-agent/orgscope/pipeline"
	"github.com/use-agent/orgscope/session"
	"github.com/ysmood/gson"
)

// Open creates a fresh incognito browsing context carrying sess and returns
// a page bound to it. The caller must Close the page; Close releases the
// context and the concurrency slot on every path.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Acquire slot       – bounded by Browser.MaxPages, honours ctx
//  2. Incognito context  – no cookies or storage shared between runs
//  3. Cookie injection   – session cookies set before any navigation
//  4. Create tab
//  5. Identity           – user agent, Accept-Language, viewport
//  6. Hijack mount       – block heavy resource types (before navigation!)
func (s *Scraper) Open(ctx context.Context, sess *session.Session) (pipeline.Page, error) {
	// ── 1. Acquire slot ──────────────────────────────────────────────
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, categorizeError(err, "no browsing context available")
	}
	s.activeContexts.Add(1)

	bp := &browserPage{scraper: s}
	ok := false
	// ── CRITICAL DEFER: give everything back if setup fails midway ───
	defer func() {
		if !ok {
			_ = bp.Close()
		}
	}()

	// ── 2. Incognito context ─────────────────────────────────────────
	incognito, err := s.browser.Incognito()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create browsing context", err)
	}
	bp.browser = incognito

	// ── 3. Session cookies ───────────────────────────────────────────
	if err := incognito.SetCookies(toCookieParams(sess.Cookies())); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to load session cookies", err)
	}

	// ── 4. Tab ───────────────────────────────────────────────────────
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}
	bp.page = page

	// ── 5. Identity ──────────────────────────────────────────────────
	cfg := s.scraperCfg
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      cfg.UserAgent,
			AcceptLanguage: cfg.AcceptLanguage,
		}); err != nil {
			slog.Warn("user agent override failed", "error", err)
		}
	}
	if cfg.AcceptLanguage != "" {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Accept-Language": cfg.AcceptLanguage}),
		}.Call(page)
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		}); err != nil {
			slog.Warn("viewport override failed", "error", err)
		}
	}

	// ── 6. Hijack router ─────────────────────────────────────────────
	bp.router = setupHijack(page, cfg.BlockedResourceTypes)

	ok = true
	slog.Debug("browsing context opened",
		"session", sess.Source(),
		"cookies", len(sess.Cookies()),
		"active", s.activeContexts.Load(),
	)
	return bp, nil
}

// browserPage is one live tab inside its own incognito context.
type browserPage struct {
	scraper *Scraper
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter
	once    sync.Once
}

var _ pipeline.Page = (*browserPage)(nil)

// Navigate loads url and waits for DOMContentLoaded. The lifecycle waiter
// MUST be registered before Navigate or the event can be missed.
func (b *browserPage) Navigate(ctx context.Context, url string) error {
	p := b.page.Context(ctx)
	wait := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(url); err != nil {
		return categorizeError(err, "navigation failed")
	}
	wait()
	if err := ctx.Err(); err != nil {
		return categorizeError(err, "page did not finish loading")
	}
	return nil
}

// URL returns the current location, or "" if it cannot be read.
func (b *browserPage) URL(ctx context.Context) string {
	return evalStringOrEmpty(b.page.Context(ctx), `() => window.location.href`)
}

// Exists checks selector once, without waiting.
func (b *browserPage) Exists(ctx context.Context, selector string) bool {
	has, _, err := b.page.Context(ctx).Has(selector)
	return err == nil && has
}

// WaitReady returns once any selector matches.
func (b *browserPage) WaitReady(ctx context.Context, selectors ...string) error {
	if len(selectors) == 0 {
		return nil
	}
	race := b.page.Context(ctx).Race()
	for _, sel := range selectors {
		race = race.Element(sel)
	}
	if _, err := race.Do(); err != nil {
		return categorizeError(err, "page not ready")
	}
	return nil
}

// Query implements extract.Document against the live DOM. Each step waits
// for its element until ctx expires; expiry on a step means no match.
func (b *browserPage) Query(ctx context.Context, q extract.QuerySpec) (string, error) {
	p := b.page.Context(ctx)

	var (
		el  *rod.Element
		err error
	)
	if q.Contains != "" {
		el, err = p.ElementR(q.Selector, regexp.QuoteMeta(q.Contains))
	} else {
		el, err = p.Element(q.Selector)
	}
	if err != nil {
		return "", queryError(err)
	}

	if q.Sibling != "" {
		if el, err = el.ElementX("following-sibling::" + q.Sibling + "[1]"); err != nil {
			return "", queryError(err)
		}
	}
	if q.Within != "" {
		if el, err = el.Element(q.Within); err != nil {
			return "", queryError(err)
		}
	}

	if q.Attr != "" {
		return attrValue(el.Attribute(q.Attr))
	}
	text, err := el.Text()
	if err != nil {
		return "", queryError(err)
	}
	return text, nil
}

// attrValue reads an attribute lookup; a missing attribute is "".
func attrValue(v *string, err error) (string, error) {
	if err != nil {
		return "", queryError(err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

// Close stops the hijack router, disposes of the incognito context and
// returns the slot. Safe to call more than once.
func (b *browserPage) Close() error {
	var err error
	b.once.Do(func() {
		if b.router != nil {
			_ = b.router.Stop()
		}
		if b.page != nil {
			_ = b.page.Close()
		}
		if b.browser != nil {
			err = b.browser.Close()
		}
		b.scraper.activeContexts.Add(-1)
		b.scraper.slots.Release(1)
	})
	return err
}

// queryError maps a locator wait that ran out of time to extract.ErrNoMatch.
func queryError(err error) error {
	var notFound *rod.ElementNotFoundError
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &notFound) {
		return extract.ErrNoMatch
	}
	return err
}

// toCookieParams converts stored session cookies to CDP parameters.
// Non-positive expiry means a session cookie.
func toCookieParams(cookies []session.Cookie) []*proto.NetworkCookieParam {
	out := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: sameSite(c.SameSite),
		}
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		out = append(out, p)
	}
	return out
}

// fromCookies is the inverse of toCookieParams for cookies read back from
// the browser.
func fromCookies(cookies []*proto.NetworkCookie) []session.Cookie {
	out := make([]session.Cookie, 0, len(cookies))
	for _, c := range cookies {
		expires := float64(c.Expires)
		if c.Session {
			expires = -1
		}
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}

func sameSite(v string) proto.NetworkCookieSameSite {
	switch v {
	case "Strict", "strict":
		return proto.NetworkCookieSameSiteStrict
	case "Lax", "lax":
		return proto.NetworkCookieSameSiteLax
	case "None", "none":
		return proto.NetworkCookieSameSiteNone
	default:
		return ""
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
