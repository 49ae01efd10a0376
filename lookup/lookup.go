// Package lookup is the cache-aside boundary: hot cache, then the record
// store, then a fresh extraction run whose result is stored.
package lookup

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/orgscope/cache"
	"github.com/use-agent/orgscope/models"
	"github.com/use-agent/orgscope/pipeline"
	"github.com/use-agent/orgscope/target"
	"golang.org/x/sync/singleflight"
)

// Cache status values reported with every lookup.
const (
	StatusHit     = "hit"
	StatusMiss    = "miss"
	StatusRefresh = "refresh"
)

// Store is the persisted record store.
type Store interface {
	Find(ctx context.Context, pageID string) (*models.CompanyRecord, error)
	Insert(ctx context.Context, rec *models.CompanyRecord) error
	Query(ctx context.Context, q models.CompanyQuery) ([]*models.CompanyRecord, error)
}

// Runner performs one extraction run.
type Runner interface {
	Run(ctx context.Context, rawAddress string) (*pipeline.Result, error)
}

// Notifier is told about every freshly stored record.
type Notifier interface {
	CompanyScraped(rec *models.CompanyRecord)
}

// Options configures a Service.
type Options struct {
	Normalizer target.Normalizer

	// Hot is an optional in-memory tier in front of the store.
	Hot *cache.Cache

	// Notifier is optional.
	Notifier Notifier

	// RunTimeout bounds a shared extraction run. Zero means the runner's
	// Budget when it has one, otherwise DefaultRunTimeout.
	RunTimeout time.Duration
}

// Result is a resolved record and where it came from.
type Result struct {
	Record      *models.CompanyRecord
	CacheStatus string
}

// DefaultRunTimeout bounds a run whose runner reports no budget.
const DefaultRunTimeout = 5 * time.Minute

// budgeter is implemented by runners that know their worst-case duration.
type budgeter interface {
	Budget() time.Duration
}

// Service resolves company records. It is safe for concurrent use.
type Service struct {
	store  Store
	runner Runner
	opts   Options
	group  singleflight.Group
	now    func() time.Time
}

// New returns a Service.
func New(store Store, runner Runner, opts Options) *Service {
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
		if b, ok := runner.(budgeter); ok {
			opts.RunTimeout = b.Budget()
		}
	}
	return &Service{store: store, runner: runner, opts: opts, now: time.Now}
}

// Get resolves the company with slug pageID. With refresh set, both cache
// tiers are skipped and the stored record is replaced.
func (s *Service) Get(ctx context.Context, pageID string, refresh bool) (*Result, error) {
	t, err := s.opts.Normalizer.FromSlug(pageID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, t, refresh)
}

// GetURL resolves the company at a raw address.
func (s *Service) GetURL(ctx context.Context, rawAddress string, refresh bool) (*Result, error) {
	t, err := s.opts.Normalizer.Normalize(rawAddress)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, t, refresh)
}

// Search returns stored records matching q. It never triggers extraction.
func (s *Service) Search(ctx context.Context, q models.CompanyQuery) ([]*models.CompanyRecord, error) {
	q.Defaults()
	recs, err := s.store.Query(ctx, q)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeStorage, "record query failed", err)
	}
	return recs, nil
}

func (s *Service) resolve(ctx context.Context, t target.Target, refresh bool) (*Result, error) {
	id := t.Slug()

	// ── 1. Cached tiers ──────────────────────────────────────────────
	if !refresh {
		if rec, ok := s.hotGet(id); ok {
			return &Result{Record: rec, CacheStatus: StatusHit}, nil
		}
		rec, err := s.store.Find(ctx, id)
		if err != nil {
			return nil, models.NewScrapeError(models.ErrCodeStorage, "record lookup failed", err)
		}
		if rec != nil {
			s.hotSet(rec)
			return &Result{Record: rec, CacheStatus: StatusHit}, nil
		}
	}

	// ── 2. Extraction, one run per page ID at a time ─────────────────
	ch := s.group.DoChan(id, func() (any, error) {
		return s.extract(ctx, t)
	})

	status := StatusMiss
	if refresh {
		status = StatusRefresh
	}
	select {
	case <-ctx.Done():
		return nil, models.NewScrapeError(models.ErrCodeTimeout, "lookup abandoned", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			slog.Debug("lookup coalesced", "pageID", id)
		}
		return &Result{Record: r.Val.(*models.CompanyRecord), CacheStatus: status}, nil
	}
}

// extract runs the orchestrator and stores its result. The run is detached
// from the first caller's cancellation because other callers may share it.
func (s *Service) extract(ctx context.Context, t target.Target) (*models.CompanyRecord, error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RunTimeout)
	defer cancel()

	res, err := s.runner.Run(runCtx, t.PrimaryURL())
	if err != nil {
		return nil, err
	}

	rec := &models.CompanyRecord{
		PageID:    t.Slug(),
		Profile:   res.Profile,
		Partial:   res.Partial(),
		ScrapedAt: s.now().UTC(),
	}
	if err := s.store.Insert(runCtx, rec); err != nil {
		slog.Error("record insert failed, returning unsaved result",
			"pageID", rec.PageID,
			"error", err,
		)
		return rec, nil
	}
	s.hotSet(rec)
	if s.opts.Notifier != nil {
		s.opts.Notifier.CompanyScraped(rec)
	}
	return rec, nil
}

func (s *Service) hotGet(id string) (*models.CompanyRecord, bool) {
	if s.opts.Hot == nil {
		return nil, false
	}
	return s.opts.Hot.Get(id)
}

func (s *Service) hotSet(rec *models.CompanyRecord) {
	if s.opts.Hot != nil {
		s.opts.Hot.Set(rec)
	}
}
