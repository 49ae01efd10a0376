// Package pipeline sequences one authenticated extraction run: normalize the
// address, load the session, prove the browsing context is signed in, then
// read the primary and details pages in order.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/orgscope/extract"
	"github.com/use-agent/orgscope/models"
	"github.com/use-agent/orgscope/session"
	"github.com/use-agent/orgscope/target"
)

// Page is one browsing context with a session loaded into it.
type Page interface {
	session.Page
	extract.Document

	// WaitReady blocks until any of selectors matches or ctx is done.
	WaitReady(ctx context.Context, selectors ...string) error

	// Close releases the browsing context. It must be safe to call once
	// after any failure.
	Close() error
}

// Opener creates a fresh browsing context carrying sess.
type Opener interface {
	Open(ctx context.Context, sess *session.Session) (Page, error)
}

// Default timeouts for a run.
const (
	DefaultNavTimeout   = 30 * time.Second
	DefaultReadyTimeout = 15 * time.Second

	// DefaultOpenTimeout is the allowance for creating a browsing context,
	// including waiting for a free slot.
	DefaultOpenTimeout = 30 * time.Second
)

// Default readiness selectors. A generic heading is accepted on the primary
// page so a layout change degrades to a best-effort read.
var (
	DefaultPrimaryReady = []string{"section.org-top-card", "h1"}
	DefaultDetailsReady = []string{"section.org-grid__wide-column", "dl dt"}
)

// Options configures an Orchestrator. Zero values fall back to defaults.
type Options struct {
	ArtifactPath string
	Domain       string

	Normalizer target.Normalizer
	Validator  session.Validator

	NavTimeout   time.Duration
	ReadyTimeout time.Duration
	QueryTimeout time.Duration

	PrimaryFields []extract.FieldSpec
	DetailsFields []extract.FieldSpec
	PrimaryReady  []string
	DetailsReady  []string
}

func (o Options) withDefaults() Options {
	if o.Domain == "" {
		o.Domain = target.DefaultDomain
	}
	if o.Normalizer.Domain == "" {
		o.Normalizer.Domain = o.Domain
	}
	if o.Validator.LandingURL == "" {
		o.Validator = session.DefaultValidator()
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = DefaultNavTimeout
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = DefaultReadyTimeout
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = extract.DefaultQueryTimeout
	}
	if o.Validator.Timeout <= 0 {
		o.Validator.Timeout = session.DefaultValidator().Timeout
	}
	if o.PrimaryFields == nil {
		o.PrimaryFields = extract.PrimaryFields()
	}
	if o.DetailsFields == nil {
		o.DetailsFields = extract.DetailsFields()
	}
	if len(o.PrimaryReady) == 0 {
		o.PrimaryReady = DefaultPrimaryReady
	}
	if len(o.DetailsReady) == 0 {
		o.DetailsReady = DefaultDetailsReady
	}
	return o
}

// Result is the outcome of a run that reached Done or PartialDone.
type Result struct {
	Target  target.Target
	State   State
	Profile models.CompanyProfile
	Reports []extract.FieldReport
}

// Partial reports whether the details page was never read.
func (r *Result) Partial() bool { return r.State == PartialDone }

// Orchestrator runs extractions. It holds no per-run state and is safe for
// concurrent use; each Run opens and closes its own browsing context.
type Orchestrator struct {
	opener Opener
	opts   Options
}

// New returns an Orchestrator that opens browsing contexts through opener.
func New(opener Opener, opts Options) *Orchestrator {
	return &Orchestrator{opener: opener, opts: opts.withDefaults()}
}

// Budget is the longest a run can take when every step uses its full
// timeout: opening the context, the sign-in check, two page loads and one
// query per locator strategy. A run deadline shorter than this can cut off
// the details page.
func (o *Orchestrator) Budget() time.Duration {
	queries := 0
	for _, f := range o.opts.PrimaryFields {
		queries += len(f.Strategies)
	}
	for _, f := range o.opts.DetailsFields {
		queries += len(f.Strategies)
	}
	return DefaultOpenTimeout +
		o.opts.Validator.Timeout +
		2*(o.opts.NavTimeout+o.opts.ReadyTimeout) +
		time.Duration(queries)*o.opts.QueryTimeout
}

// Normalizer returns the address normalizer used by Run.
func (o *Orchestrator) Normalizer() target.Normalizer { return o.opts.Normalizer }

// Run extracts the profile at rawAddress.
//
// Fatal outcomes (bad address, missing or invalid session, failed sign-in
// check, browser failure, caller cancellation before the primary page is
// read) return an error and no Result. Once primary fields are extracted,
// any failure to read the details page, ctx expiry included, yields a
// PartialDone result.
func (o *Orchestrator) Run(ctx context.Context, rawAddress string) (*Result, error) {
	r := &run{opts: o.opts, state: Init, values: extract.NewValues()}
	start := time.Now()

	res, err := r.execute(ctx, o.opener, rawAddress)
	if err != nil {
		slog.Warn("extraction failed",
			"address", rawAddress,
			"state", r.state,
			"error", err,
			"elapsed", time.Since(start),
		)
		return nil, err
	}

	slog.Info("extraction finished",
		"pageID", res.Target.Slug(),
		"state", res.State,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// run is the mutable state of one Run call.
type run struct {
	opts    Options
	state   State
	values  *extract.Values
	reports []extract.FieldReport
}

func (r *run) enter(s State, attrs ...any) {
	slog.Debug("extraction state", append([]any{"from", r.state, "to", s}, attrs...)...)
	r.state = s
}

func (r *run) execute(ctx context.Context, opener Opener, rawAddress string) (*Result, error) {
	// ── 1. Init: target + session ────────────────────────────────────
	tgt, err := r.opts.Normalizer.Normalize(rawAddress)
	if err != nil {
		return nil, err
	}
	sess, err := session.Load(r.opts.ArtifactPath, r.opts.Domain)
	if err != nil {
		return nil, err
	}

	page, err := opener.Open(ctx, sess)
	if err != nil {
		return nil, err
	}
	// ── 2. CRITICAL DEFER: the context is released on every exit path ─
	defer func() {
		if cerr := page.Close(); cerr != nil {
			slog.Warn("browsing context close failed", "error", cerr)
		}
	}()

	// ── 3. Validating ────────────────────────────────────────────────
	r.enter(Validating, "landing", r.opts.Validator.LandingURL)
	if err := r.opts.Validator.AssertAuthenticated(ctx, page); err != nil {
		return nil, err
	}

	// ── 4. ExtractingPrimary: failures here only thin the result ─────
	if err := callerDone(ctx); err != nil {
		return nil, err
	}
	r.enter(ExtractingPrimary, "url", tgt.PrimaryURL())
	if err := r.load(ctx, page, tgt.PrimaryURL(), r.opts.PrimaryReady); err != nil {
		slog.Warn("primary page not ready, extracting from what loaded",
			"url", tgt.PrimaryURL(),
			"error", err,
		)
	}
	r.extract(ctx, page, r.opts.PrimaryFields)

	// ── 5. ExtractingDetails: from here every failure is partial ─────
	if err := callerDone(ctx); err != nil {
		return r.partial(tgt, "run ended before the details page", err), nil
	}
	r.enter(ExtractingDetails, "url", tgt.DetailsURL())
	if err := r.load(ctx, page, tgt.DetailsURL(), r.opts.DetailsReady); err != nil {
		return r.partial(tgt, "details page unavailable", err), nil
	}
	r.extract(ctx, page, r.opts.DetailsFields)
	if err := callerDone(ctx); err != nil {
		return r.partial(tgt, "run ended while reading the details page", err), nil
	}

	r.enter(Done)
	return r.result(tgt), nil
}

// partial ends the run in PartialDone, keeping whatever was extracted.
func (r *run) partial(tgt target.Target, reason string, err error) *Result {
	slog.Warn(reason+", returning partial result",
		"url", tgt.DetailsURL(),
		"error", err,
	)
	r.enter(PartialDone)
	return r.result(tgt)
}

// load navigates once and then waits for readiness, each under its own
// timeout.
func (r *run) load(ctx context.Context, page Page, url string, ready []string) error {
	navCtx, cancel := context.WithTimeout(ctx, r.opts.NavTimeout)
	err := page.Navigate(navCtx, url)
	cancel()
	if err != nil {
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, r.opts.ReadyTimeout)
	defer cancel()
	return page.WaitReady(readyCtx, ready...)
}

func (r *run) extract(ctx context.Context, page Page, fields []extract.FieldSpec) {
	ex := extract.Extractor{
		Resolver: extract.Resolver{Timeout: r.opts.QueryTimeout},
		Fields:   fields,
	}
	r.reports = append(r.reports, ex.Extract(ctx, page, r.values)...)
}

func (r *run) result(tgt target.Target) *Result {
	return &Result{
		Target:  tgt,
		State:   r.state,
		Profile: r.values.Profile(tgt.DetailsURL()),
		Reports: r.reports,
	}
}

// callerDone converts a cancelled or expired parent context into a coded
// error. Local step timeouts never reach here because they use child
// contexts.
func callerDone(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, "extraction deadline exceeded", err)
	default:
		return models.NewScrapeError(models.ErrCodeTimeout, "extraction canceled", err)
	}
}
