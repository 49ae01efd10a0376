package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultQueryTimeout bounds a single strategy attempt.
const DefaultQueryTimeout = 4 * time.Second

// Outcome classifies one strategy attempt.
type Outcome int

const (
	// Found means the strategy produced non-empty text.
	Found Outcome = iota
	// NotFound means the query ran but yielded only whitespace or nothing.
	NotFound
	// QueryError means the query failed (missing element, timeout, fault).
	QueryError
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case QueryError:
		return "query_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Attempt records what one strategy did.
type Attempt struct {
	Strategy QuerySpec
	Outcome  Outcome
	Text     string
	Err      error
}

// Resolution is the result of running a strategy list.
type Resolution struct {
	Text     string
	Found    bool
	Attempts []Attempt
}

// Resolver is the locator fallback engine.
type Resolver struct {
	// Timeout bounds each strategy attempt. Zero means DefaultQueryTimeout.
	Timeout time.Duration
}

// Resolve tries strategies strictly in order and returns the first result
// that is non-empty after trimming. Errors, panics and timeouts inside a
// strategy only end that strategy; they never escape Resolve.
func (r Resolver) Resolve(ctx context.Context, doc Document, strategies []QuerySpec) Resolution {
	var res Resolution
	for _, q := range strategies {
		if ctx.Err() != nil {
			break
		}
		a := r.attempt(ctx, doc, q)
		res.Attempts = append(res.Attempts, a)

		slog.Debug("locator attempt",
			"strategy", q.String(),
			"outcome", a.Outcome.String(),
			"error", a.Err,
		)

		if a.Outcome == Found {
			res.Text = a.Text
			res.Found = true
			return res
		}
	}
	return res
}

func (r Resolver) attempt(ctx context.Context, doc Document, q QuerySpec) (a Attempt) {
	a.Strategy = q

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			a.Outcome = QueryError
			a.Text = ""
			a.Err = fmt.Errorf("extract: query panicked: %v", p)
		}
	}()

	raw, err := doc.Query(qctx, q)
	if errors.Is(err, ErrNoMatch) {
		a.Outcome = NotFound
		return a
	}
	if err != nil {
		a.Outcome = QueryError
		a.Err = err
		return a
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		a.Outcome = NotFound
		return a
	}
	a.Outcome = Found
	a.Text = text
	return a
}
