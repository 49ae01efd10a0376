package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/orgscope/config"
	"github.com/use-agent/orgscope/models"
	"github.com/use-agent/orgscope/session"
)

// LoginOptions configures CaptureSession.
type LoginOptions struct {
	LoginURL string
	Domain   string
	Path     string

	// Wait blocks until the operator has finished signing in.
	Wait func(ctx context.Context) error
}

// CaptureSession opens a visible browser on the login page, waits for the
// operator, then saves the context's cookies as a session artifact. Nothing
// is written unless at least one cookie belongs to opts.Domain.
func CaptureSession(ctx context.Context, browserCfg config.BrowserConfig, opts LoginOptions) (*session.Session, error) {
	browser, err := launch(browserCfg, false)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := browser.Close(); cerr != nil {
			slog.Warn("browser close failed", "error", cerr)
		}
	}()

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create browsing context", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Context(ctx).Navigate(opts.LoginURL); err != nil {
		return nil, categorizeError(err, "failed to open login page")
	}
	wait()

	if err := opts.Wait(ctx); err != nil {
		return nil, err
	}

	cookies, err := incognito.GetCookies()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to read cookies", err)
	}
	artifact := &session.Artifact{Cookies: fromCookies(cookies)}

	sess, err := session.New(artifact, opts.Domain)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionInvalid,
			fmt.Sprintf("no %s cookies captured; sign in inside the opened window, then try again", opts.Domain),
			err,
		)
	}
	if err := session.Save(opts.Path, artifact); err != nil {
		return nil, err
	}

	slog.Info("session saved",
		"path", opts.Path,
		"cookies", len(artifact.Cookies),
		"domainCookies", sess.DomainCookieNames(),
	)
	return sess, nil
}
