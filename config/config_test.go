package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/orgscope/extract"
	"github.com/use-agent/orgscope/pipeline"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Session.File != "linkedin_session/storage.json" {
		t.Errorf("session file = %q", cfg.Session.File)
	}
	if cfg.Session.Domain != "linkedin.com" {
		t.Errorf("session domain = %q", cfg.Session.Domain)
	}
	if cfg.Scraper.NavigationTimeout != 30*time.Second || cfg.Scraper.QueryTimeout != 4*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.Scraper.NavigationTimeout, cfg.Scraper.QueryTimeout)
	}
	if diff := cmp.Diff([]string{"Image", "Font", "Media"}, cfg.Scraper.BlockedResourceTypes); diff != "" {
		t.Errorf("blocked resources (-want +got):\n%s", diff)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("ORGSCOPE_PORT", "9090")
	t.Setenv("ORGSCOPE_API_KEYS", " a , b ,,")
	t.Setenv("ORGSCOPE_NAV_TIMEOUT", "5s")
	t.Setenv("ORGSCOPE_HEADLESS", "false")
	t.Setenv("ORGSCOPE_MAX_PAGES", "not-a-number")

	cfg := Load()

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if diff := cmp.Diff([]string{"a", "b"}, cfg.Auth.APIKeys); diff != "" {
		t.Errorf("api keys (-want +got):\n%s", diff)
	}
	if cfg.Scraper.NavigationTimeout != 5*time.Second {
		t.Errorf("nav timeout = %v", cfg.Scraper.NavigationTimeout)
	}
	if cfg.Browser.Headless {
		t.Error("headless = true")
	}
	if cfg.Browser.MaxPages != 4 {
		t.Errorf("max pages = %d, want fallback 4", cfg.Browser.MaxPages)
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write selectors: %v", err)
	}
	return path
}

func TestLoadSelectors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSelectors(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrSelectorsNotFound) {
			t.Fatalf("error = %v, want ErrSelectorsNotFound", err)
		}
	})

	t.Run("parses every section", func(t *testing.T) {
		path := writeFile(t, `
auth:
  landing_url: https://www.linkedin.com/mynetwork/
  signed_in: ["nav.global-nav__nav"]
ready:
  details: ["main"]
fields:
  website:
    - {selector: dt, contains: Site, sibling: dd, within: a, attr: href}
`)
		s, err := LoadSelectors(path)
		if err != nil {
			t.Fatalf("LoadSelectors() error: %v", err)
		}
		want := []extract.QuerySpec{{Selector: "dt", Contains: "Site", Sibling: "dd", Within: "a", Attr: "href"}}
		if diff := cmp.Diff(want, s.Fields["website"]); diff != "" {
			t.Errorf("website strategies (-want +got):\n%s", diff)
		}
		if s.Auth.LandingURL != "https://www.linkedin.com/mynetwork/" {
			t.Errorf("landing = %q", s.Auth.LandingURL)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		if _, err := LoadSelectors(writeFile(t, "fields: [")); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestSelectors_ApplyTo(t *testing.T) {
	s := &Selectors{
		Auth:   AuthSelectors{SignedIn: []string{"nav.global-nav__nav"}},
		Ready:  ReadySelectors{Details: []string{"main"}},
		Fields: map[string][]extract.QuerySpec{extract.FieldIndustry: {{Selector: "span.industry"}}},
	}
	var opts pipeline.Options
	if err := s.ApplyTo(&opts); err != nil {
		t.Fatalf("ApplyTo() error: %v", err)
	}

	if diff := cmp.Diff([]string{"nav.global-nav__nav"}, opts.Validator.SignedIn); diff != "" {
		t.Errorf("signed-in landmarks (-want +got):\n%s", diff)
	}
	if len(opts.Validator.LoginGate) == 0 {
		t.Error("login gate defaults dropped")
	}
	if diff := cmp.Diff([]string{"main"}, opts.DetailsReady); diff != "" {
		t.Errorf("details ready (-want +got):\n%s", diff)
	}
	for _, f := range opts.DetailsFields {
		if f.Name == extract.FieldIndustry && f.Strategies[0].Selector != "span.industry" {
			t.Errorf("industry strategies = %v", f.Strategies)
		}
	}
}

func TestSelectors_ApplyToRejects(t *testing.T) {
	tests := []struct {
		name string
		sel  *Selectors
	}{
		{"unknown field", &Selectors{Fields: map[string][]extract.QuerySpec{"revenue": {{Selector: "p"}}}}},
		{"bad field selector", &Selectors{Fields: map[string][]extract.QuerySpec{extract.FieldName: {{Selector: "h1[["}}}}},
		{"bad landmark", &Selectors{Auth: AuthSelectors{LoginGate: []string{"input##"}}}},
		{"bad readiness", &Selectors{Ready: ReadySelectors{Primary: []string{"div["}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts pipeline.Options
			if err := tt.sel.ApplyTo(&opts); err == nil {
				t.Fatal("ApplyTo() accepted invalid selectors")
			}
		})
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := Load()
	cfg.Scraper.AuthTimeout = 7 * time.Second
	cfg.Scraper.SelectorsFile = writeFile(t, "ready:\n  primary: [\"h1\"]\n")

	opts, err := cfg.PipelineOptions()
	if err != nil {
		t.Fatalf("PipelineOptions() error: %v", err)
	}
	if opts.Validator.Timeout != 7*time.Second {
		t.Errorf("auth timeout = %v", opts.Validator.Timeout)
	}
	if diff := cmp.Diff([]string{"h1"}, opts.PrimaryReady); diff != "" {
		t.Errorf("primary ready (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pipeline.DefaultDetailsReady, opts.DetailsReady); diff != "" {
		t.Errorf("details ready (-want +got):\n%s", diff)
	}

	cfg.Scraper.SelectorsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.PipelineOptions(); !errors.Is(err, ErrSelectorsNotFound) {
		t.Errorf("missing selectors file error = %v", err)
	}
}
