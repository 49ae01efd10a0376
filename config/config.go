package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Session   SessionConfig
	Store     StoreConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages bounds concurrent extraction runs (one incognito context each).
	MaxPages int // default: 4

	// DefaultProxy is the proxy URL for all browser traffic.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls one extraction run.
type ScraperConfig struct {
	// NavigationTimeout bounds each page.Navigate.
	NavigationTimeout time.Duration // default: 30s

	// ReadyTimeout bounds the wait for a readiness landmark after navigation.
	ReadyTimeout time.Duration // default: 15s

	// QueryTimeout bounds each locator query.
	QueryTimeout time.Duration // default: 4s

	// AuthTimeout bounds navigation to the signed-in landing page.
	AuthTimeout time.Duration // default: 30s

	// RunTimeout is the hard deadline for a whole run, browser start included.
	// Zero derives it from the other step timeouts.
	RunTimeout time.Duration // default: 0

	UserAgent      string
	AcceptLanguage string // default: "en-US,en;q=0.9"
	ViewportWidth  int    // default: 1366
	ViewportHeight int    // default: 900

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// SelectorsFile is an optional YAML file overriding landmarks and
	// field strategies. See LoadSelectors.
	SelectorsFile string
}

// SessionConfig locates the persisted sign-in artifact.
type SessionConfig struct {
	// File is the storage-state JSON written by `orgscope login`.
	File string // default: "linkedin_session/storage.json"

	// Domain is the service domain session cookies must belong to.
	Domain string // default: "linkedin.com"

	// LoginURL is opened by `orgscope login`.
	LoginURL string // default: "https://www.linkedin.com/login"
}

// StoreConfig controls the SQLite record store.
type StoreConfig struct {
	// Dir holds the database file.
	Dir string // default: "data"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the in-memory hot tier in front of the store.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records. 0 disables the tier.
	MaxEntries int // default: 1000

	// TTL is how long a record stays hot.
	TTL time.Duration // default: 1h
}

// WebhookConfig controls company.scraped event delivery.
type WebhookConfig struct {
	// URL receives events; empty disables delivery.
	URL string

	// Secret signs the payload with HMAC-SHA256 when set.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("ORGSCOPE_HOST", "0.0.0.0"),
			Port: envIntOr("ORGSCOPE_PORT", 8080),
			Mode: envOr("ORGSCOPE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("ORGSCOPE_HEADLESS", true),
			MaxPages:     envIntOr("ORGSCOPE_MAX_PAGES", 4),
			DefaultProxy: os.Getenv("ORGSCOPE_PROXY"),
			NoSandbox:    envBoolOr("ORGSCOPE_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("ORGSCOPE_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("ORGSCOPE_NAV_TIMEOUT", 30*time.Second),
			ReadyTimeout:      envDurationOr("ORGSCOPE_READY_TIMEOUT", 15*time.Second),
			QueryTimeout:      envDurationOr("ORGSCOPE_QUERY_TIMEOUT", 4*time.Second),
			AuthTimeout:       envDurationOr("ORGSCOPE_AUTH_TIMEOUT", 30*time.Second),
			RunTimeout:        envDurationOr("ORGSCOPE_RUN_TIMEOUT", 0),
			UserAgent:         envOr("ORGSCOPE_USER_AGENT", DefaultUserAgent),
			AcceptLanguage:    envOr("ORGSCOPE_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
			ViewportWidth:     envIntOr("ORGSCOPE_VIEWPORT_WIDTH", 1366),
			ViewportHeight:    envIntOr("ORGSCOPE_VIEWPORT_HEIGHT", 900),
			BlockedResourceTypes: envSliceOr("ORGSCOPE_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			SelectorsFile: os.Getenv("ORGSCOPE_SELECTORS_FILE"),
		},
		Session: SessionConfig{
			File:     envOr("ORGSCOPE_SESSION_FILE", "linkedin_session/storage.json"),
			Domain:   envOr("ORGSCOPE_SESSION_DOMAIN", "linkedin.com"),
			LoginURL: envOr("ORGSCOPE_LOGIN_URL", "https://www.linkedin.com/login"),
		},
		Store: StoreConfig{
			Dir: envOr("ORGSCOPE_DATA_DIR", "data"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("ORGSCOPE_AUTH_ENABLED", true),
			APIKeys: envSliceOr("ORGSCOPE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("ORGSCOPE_RATE_RPS", 1.0),
			Burst:             envIntOr("ORGSCOPE_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("ORGSCOPE_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("ORGSCOPE_CACHE_TTL", time.Hour),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("ORGSCOPE_WEBHOOK_URL"),
			Secret: os.Getenv("ORGSCOPE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("ORGSCOPE_LOG_LEVEL", "info"),
			Format: envOr("ORGSCOPE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
