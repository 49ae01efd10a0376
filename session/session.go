// Package session loads, validates and persists the authenticated browsing
// state produced by the one-time interactive login.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/orgscope/models"
	"github.com/use-agent/orgscope/target"
)

// Cookie is one entry of a storage-state artifact.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// Artifact is the serialized storage state. Origins is carried through
// untouched so artifacts written by other tools round-trip.
type Artifact struct {
	Cookies []Cookie        `json:"cookies"`
	Origins json.RawMessage `json:"origins,omitempty"`
}

// HasDomainCookie reports whether at least one cookie is scoped to domain
// and has a non-empty name.
func (a *Artifact) HasDomainCookie(domain string) bool {
	for _, c := range a.Cookies {
		if c.Name != "" && c.Domain != "" && target.HostMatches(c.Domain, domain) {
			return true
		}
	}
	return false
}

// Session is an immutable authenticated-state handle for one domain.
type Session struct {
	domain  string
	source  string
	cookies []Cookie
}

// New validates a and returns a Session for domain. An artifact without a
// qualifying cookie is rejected here rather than at use time.
func New(a *Artifact, domain string) (*Session, error) {
	if a == nil || !a.HasDomainCookie(domain) {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionInvalid,
			fmt.Sprintf("session has no %s cookies; run the login flow again", domain),
			nil,
		)
	}
	cookies := make([]Cookie, len(a.Cookies))
	copy(cookies, a.Cookies)
	return &Session{domain: domain, cookies: cookies}, nil
}

// Load reads the artifact at path and validates it for domain.
func Load(path, domain string) (*Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.NewScrapeError(
			models.ErrCodeSessionMissing,
			fmt.Sprintf("session not found at %s; run `orgscope login` first", path),
			err,
		)
	}
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSessionInvalid, "failed to read session artifact", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSessionInvalid, "session artifact is not valid JSON", err)
	}

	s, err := New(&a, domain)
	if err != nil {
		return nil, err
	}
	s.source = path
	return s, nil
}

// Save writes a to path with owner-only permissions, creating the parent
// directory if needed.
func Save(path string, a *Artifact) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("session: create directory: %w", err)
	}
	if len(a.Origins) == 0 {
		a.Origins = json.RawMessage("[]")
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	return os.Rename(tmp, path)
}

// Domain returns the domain this session was validated for.
func (s *Session) Domain() string { return s.domain }

// Source returns the artifact path the session was loaded from, if any.
func (s *Session) Source() string { return s.source }

// Cookies returns a copy of the session cookies.
func (s *Session) Cookies() []Cookie {
	out := make([]Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// DomainCookieNames lists the names of cookies scoped to the session domain.
// Values are never exposed in logs.
func (s *Session) DomainCookieNames() []string {
	var names []string
	for _, c := range s.cookies {
		if target.HostMatches(strings.TrimSpace(c.Domain), s.domain) && c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}
