// Package config handles loading and validating the client configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the marketplace API root used when none is configured.
const DefaultBaseURL = "http://localhost:8000/api/"

// Favorite cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the top-level configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Listings  ListingsConfig  `yaml:"listings"`
	Favorites FavoritesConfig `yaml:"favorites"`
	Mock      MockConfig      `yaml:"mock"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig defines how the marketplace API is reached.
type APIConfig struct {
	BaseURL   string          `yaml:"base_url"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines client-side request pacing. A zero PerSecond
// disables the limiter.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// SessionConfig defines where credentials and local state are kept.
type SessionConfig struct {
	StateDir string `yaml:"state_dir"`
}

// CredentialsPath returns the credential file location.
func (s *SessionConfig) CredentialsPath() string {
	return filepath.Join(s.StateDir, "credentials.yaml")
}

// FavoritesPath returns the favorite cache file location.
func (s *SessionConfig) FavoritesPath() string {
	return filepath.Join(s.StateDir, "favorites.json")
}

// ListingsConfig defines the my-listings aggregation parameters.
type ListingsConfig struct {
	PageSize      int `yaml:"page_size"`
	FallbackLimit int `yaml:"fallback_limit"`
}

// FavoritesConfig defines the favorites resolver and cache backend.
type FavoritesConfig struct {
	Concurrency int         `yaml:"concurrency"`
	Backend     string      `yaml:"backend"` // file, redis
	Redis       RedisConfig `yaml:"redis"`
}

// RedisConfig defines the Redis favorite cache backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// My-listings response modes of the mock API.
const (
	MyListingsPaginated = "paginated"
	MyListingsRaw       = "raw"
)

// MockConfig defines the mock API server settings.
type MockConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	JWTSecret      string        `yaml:"jwt_secret"`
	AccessTTL      time.Duration `yaml:"access_ttl"`
	RefreshTTL     time.Duration `yaml:"refresh_ttl"`
	FavoritesShape string        `yaml:"favorites_shape"`  // bare, wrapped, nested, listings
	MyListingsMode string        `yaml:"my_listings_mode"` // paginated, raw
	PruneInterval  time.Duration `yaml:"prune_interval"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyAPIDefaults(&cfg.API)
	applySessionDefaults(&cfg.Session)
	applyListingsDefaults(&cfg.Listings)
	applyFavoritesDefaults(&cfg.Favorites)
	applyMockDefaults(&cfg.Mock)
	applyLoggingDefaults(&cfg.Logging)
}

func applyAPIDefaults(a *APIConfig) {
	if a.BaseURL == "" {
		a.BaseURL = DefaultBaseURL
	}
	if a.Timeout == 0 {
		a.Timeout = 30 * time.Second
	}
	if a.RateLimit.PerSecond > 0 && a.RateLimit.Burst == 0 {
		a.RateLimit.Burst = 1
	}
}

func applySessionDefaults(s *SessionConfig) {
	if s.StateDir != "" {
		return
	}
	if dir, err := os.UserConfigDir(); err == nil {
		s.StateDir = filepath.Join(dir, "amc")
		return
	}
	s.StateDir = ".amc"
}

func applyListingsDefaults(l *ListingsConfig) {
	if l.PageSize == 0 {
		l.PageSize = 10
	}
	if l.FallbackLimit == 0 {
		l.FallbackLimit = 1000
	}
}

func applyFavoritesDefaults(f *FavoritesConfig) {
	if f.Concurrency == 0 {
		f.Concurrency = 8
	}
	if f.Backend == "" {
		f.Backend = BackendFile
	}
	if f.Redis.KeyPrefix == "" {
		f.Redis.KeyPrefix = "amc:favorites:"
	}
}

func applyMockDefaults(m *MockConfig) {
	if m.Host == "" {
		m.Host = "127.0.0.1"
	}
	if m.Port == 0 {
		m.Port = 8000
	}
	if m.ReadTimeout == 0 {
		m.ReadTimeout = 10 * time.Second
	}
	if m.WriteTimeout == 0 {
		m.WriteTimeout = 10 * time.Second
	}
	if m.JWTSecret == "" {
		m.JWTSecret = "mock-marketplace-secret" //nolint:gosec // mock-only signing key
	}
	if m.AccessTTL == 0 {
		m.AccessTTL = 60 * time.Minute
	}
	if m.RefreshTTL == 0 {
		m.RefreshTTL = 24 * time.Hour
	}
	if m.FavoritesShape == "" {
		m.FavoritesShape = "bare"
	}
	if m.MyListingsMode == "" {
		m.MyListingsMode = MyListingsPaginated
	}
	if m.PruneInterval == 0 {
		m.PruneInterval = 10 * time.Minute
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if !strings.HasPrefix(cfg.API.BaseURL, "http://") &&
		!strings.HasPrefix(cfg.API.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("api.base_url must be an http(s) URL (got %q)", cfg.API.BaseURL))
	}
	if cfg.API.RateLimit.PerSecond < 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit.per_second must not be negative"))
	}
	if cfg.Listings.PageSize < 1 {
		errs = append(errs, fmt.Errorf("listings.page_size must be at least 1"))
	}
	if cfg.Listings.FallbackLimit < cfg.Listings.PageSize {
		errs = append(errs, fmt.Errorf("listings.fallback_limit must be at least listings.page_size"))
	}
	if cfg.Mock.PruneInterval < time.Second {
		errs = append(errs, fmt.Errorf("mock.prune_interval must be at least 1s"))
	}
	if cfg.Favorites.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("favorites.concurrency must be at least 1"))
	}

	switch cfg.Mock.FavoritesShape {
	case "bare", "wrapped", "nested", "listings":
	default:
		errs = append(errs, fmt.Errorf(
			"mock.favorites_shape must be one of: bare, wrapped, nested, listings (got %q)",
			cfg.Mock.FavoritesShape,
		))
	}
	switch cfg.Mock.MyListingsMode {
	case MyListingsPaginated, MyListingsRaw:
	default:
		errs = append(errs, fmt.Errorf(
			"mock.my_listings_mode must be one of: paginated, raw (got %q)",
			cfg.Mock.MyListingsMode,
		))
	}

	switch cfg.Favorites.Backend {
	case BackendFile:
	case BackendRedis:
		if cfg.Favorites.Redis.Addr == "" {
			errs = append(
				errs,
				fmt.Errorf("favorites.redis.addr is required when backend is redis"),
			)
		}
	default:
		errs = append(
			errs,
			fmt.Errorf(
				"favorites.backend must be one of: file, redis (got %q)",
				cfg.Favorites.Backend,
			),
		)
	}

	return errors.Join(errs...)
}
