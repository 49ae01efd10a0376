package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/orgscope/models"
)

// Page is the browsing capability the validator needs.
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) string
	Exists(ctx context.Context, selector string) bool
}

// Validator proves a browsing context is signed in. Landmarks are plain
// configuration because the target markup drifts.
type Validator struct {
	// LandingURL is a page only reachable when signed in.
	LandingURL string

	// SignedIn selectors: at least one must be present.
	SignedIn []string

	// LoginGate selectors: none may be present.
	LoginGate []string

	// LoginURLPrefixes: the context must not have been redirected to any of these.
	LoginURLPrefixes []string

	// Timeout bounds navigation to LandingURL.
	Timeout time.Duration
}

// DefaultValidator returns the landmarks for the public service.
func DefaultValidator() Validator {
	return Validator{
		LandingURL: "https://www.linkedin.com/feed/",
		SignedIn: []string{
			"header.global-nav",
			"div.share-box-feed-entry__closed-share-box",
		},
		LoginGate: []string{
			"input#username",
			"a[href*='/login']",
		},
		LoginURLPrefixes: []string{
			"https://www.linkedin.com/login",
			"https://www.linkedin.com/uas/login",
			"https://www.linkedin.com/authwall",
			"https://www.linkedin.com/checkpoint",
		},
		Timeout: 30 * time.Second,
	}
}

// AssertAuthenticated navigates page to the landing URL and returns a
// NOT_AUTHENTICATED error unless a signed-in landmark is present and no
// login-gate signal is. A landing page that fails to load is reported with
// its own timeout or navigation code.
func (v Validator) AssertAuthenticated(ctx context.Context, page Page) error {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.Navigate(navCtx, v.LandingURL); err != nil {
		return landingError(err)
	}

	signedIn := v.firstPresent(ctx, page, v.SignedIn)
	gate := v.loginGate(ctx, page)

	slog.Debug("session check",
		"landing", v.LandingURL,
		"signedInLandmark", signedIn,
		"loginGate", gate,
	)

	if signedIn == "" || gate != "" {
		reason := "no signed-in landmark found"
		if gate != "" {
			reason = "login gate detected (" + gate + ")"
		}
		return models.NewScrapeError(
			models.ErrCodeNotAuthenticated,
			fmt.Sprintf("not authenticated: %s; run `orgscope login` again", reason),
			nil,
		)
	}
	return nil
}

// landingError keeps a coded navigation error as is and codes a raw one.
func landingError(err error) error {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeTimeout, "signed-in landing page did not load in time", err)
	}
	return models.NewScrapeError(models.ErrCodeNavigation, "could not load the signed-in landing page", err)
}

// loginGate returns a description of the first negative signal, or "".
func (v Validator) loginGate(ctx context.Context, page Page) string {
	current := page.URL(ctx)
	for _, prefix := range v.LoginURLPrefixes {
		if prefix != "" && strings.HasPrefix(current, prefix) {
			return "redirected to " + current
		}
	}
	if sel := v.firstPresent(ctx, page, v.LoginGate); sel != "" {
		return sel
	}
	return ""
}

func (v Validator) firstPresent(ctx context.Context, page Page, selectors []string) string {
	for _, sel := range selectors {
		if page.Exists(ctx, sel) {
			return sel
		}
	}
	return ""
}
