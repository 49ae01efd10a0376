package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/use-agent/orgscope/extract"
	"github.com/use-agent/orgscope/pipeline"
	"github.com/use-agent/orgscope/session"
	"github.com/use-agent/orgscope/target"
	"gopkg.in/yaml.v3"
)

// ErrSelectorsNotFound is returned when the selector file does not exist.
var ErrSelectorsNotFound = errors.New("selectors file not found")

// Selectors overrides the page landmarks and field strategies compiled into
// the binary. Every section is optional; omitted values keep the defaults.
//
//	auth:
//	  landing_url: https://www.linkedin.com/feed/
//	  signed_in: ["header.global-nav"]
//	  login_gate: ["input#username"]
//	ready:
//	  primary: ["section.org-top-card", "h1"]
//	fields:
//	  name:
//	    - selector: h1.org-top-card-summary__title
//	  website:
//	    - {selector: dt, contains: Website, sibling: dd, within: a, attr: href}
type Selectors struct {
	Auth   AuthSelectors                  `yaml:"auth"`
	Ready  ReadySelectors                 `yaml:"ready"`
	Fields map[string][]extract.QuerySpec `yaml:"fields"`
}

// AuthSelectors overrides session.Validator landmarks.
type AuthSelectors struct {
	LandingURL       string   `yaml:"landing_url"`
	SignedIn         []string `yaml:"signed_in"`
	LoginGate        []string `yaml:"login_gate"`
	LoginURLPrefixes []string `yaml:"login_url_prefixes"`
}

// ReadySelectors overrides page readiness landmarks.
type ReadySelectors struct {
	Primary []string `yaml:"primary"`
	Details []string `yaml:"details"`
}

// LoadSelectors reads a selector override file.
// If the file does not exist, it returns ErrSelectorsNotFound.
func LoadSelectors(path string) (*Selectors, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSelectorsNotFound
		}
		return nil, err
	}

	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: parse selectors %s: %w", path, err)
	}
	return &s, nil
}

// ApplyTo merges s into opts and validates every resulting CSS selector.
// Unset slices in opts are filled with the package defaults first, so the
// result is always complete.
func (s *Selectors) ApplyTo(opts *pipeline.Options) error {
	if opts.PrimaryFields == nil {
		opts.PrimaryFields = extract.PrimaryFields()
	}
	if opts.DetailsFields == nil {
		opts.DetailsFields = extract.DetailsFields()
	}
	if opts.Validator.LandingURL == "" {
		opts.Validator = session.DefaultValidator()
	}

	if s != nil {
		if unknown := extract.UnknownFields(s.Fields, opts.PrimaryFields, opts.DetailsFields); len(unknown) > 0 {
			sort.Strings(unknown)
			return fmt.Errorf("config: unknown fields in selectors file: %v", unknown)
		}

		var err error
		if opts.PrimaryFields, err = extract.ApplyOverrides(opts.PrimaryFields, s.Fields); err != nil {
			return err
		}
		if opts.DetailsFields, err = extract.ApplyOverrides(opts.DetailsFields, s.Fields); err != nil {
			return err
		}

		a := s.Auth
		if a.LandingURL != "" {
			opts.Validator.LandingURL = a.LandingURL
		}
		if len(a.SignedIn) > 0 {
			opts.Validator.SignedIn = a.SignedIn
		}
		if len(a.LoginGate) > 0 {
			opts.Validator.LoginGate = a.LoginGate
		}
		if len(a.LoginURLPrefixes) > 0 {
			opts.Validator.LoginURLPrefixes = a.LoginURLPrefixes
		}
		if len(s.Ready.Primary) > 0 {
			opts.PrimaryReady = s.Ready.Primary
		}
		if len(s.Ready.Details) > 0 {
			opts.DetailsReady = s.Ready.Details
		}
	}

	return validate(opts)
}

func validate(opts *pipeline.Options) error {
	if err := extract.ValidateSelectors(opts.PrimaryFields); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := extract.ValidateSelectors(opts.DetailsFields); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	groups := map[string][]string{
		"auth.signed_in":  opts.Validator.SignedIn,
		"auth.login_gate": opts.Validator.LoginGate,
		"ready.primary":   opts.PrimaryReady,
		"ready.details":   opts.DetailsReady,
	}
	for name, sels := range groups {
		for _, sel := range sels {
			if err := extract.CompileSelector(sel); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
		}
	}
	if len(opts.Validator.SignedIn) == 0 {
		return errors.New("config: auth.signed_in must list at least one selector")
	}
	return nil
}

// PipelineOptions builds orchestrator options from c, applying the selector
// file when one is configured. A configured but missing file is an error.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		ArtifactPath: c.Session.File,
		Domain:       c.Session.Domain,
		Normalizer:   target.Normalizer{Domain: c.Session.Domain},
		Validator:    session.DefaultValidator(),
		NavTimeout:   c.Scraper.NavigationTimeout,
		ReadyTimeout: c.Scraper.ReadyTimeout,
		QueryTimeout: c.Scraper.QueryTimeout,
	}
	opts.Validator.Timeout = c.Scraper.AuthTimeout

	var sel *Selectors
	if c.Scraper.SelectorsFile != "" {
		var err error
		if sel, err = LoadSelectors(c.Scraper.SelectorsFile); err != nil {
			return pipeline.Options{}, fmt.Errorf("config: selectors %s: %w", c.Scraper.SelectorsFile, err)
		}
	}
	if opts.PrimaryReady == nil {
		opts.PrimaryReady = pipeline.DefaultPrimaryReady
	}
	if opts.DetailsReady == nil {
		opts.DetailsReady = pipeline.DefaultDetailsReady
	}
	if err := sel.ApplyTo(&opts); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}
