package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty config gets defaults",
			yaml: `{}`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
				assert.Equal(t, 30*time.Second, cfg.API.Timeout)
				assert.Zero(t, cfg.API.RateLimit.PerSecond)
				assert.NotEmpty(t, cfg.Session.StateDir)
				assert.Equal(t, 10, cfg.Listings.PageSize)
				assert.Equal(t, 1000, cfg.Listings.FallbackLimit)
				assert.Equal(t, 8, cfg.Favorites.Concurrency)
				assert.Equal(t, BackendFile, cfg.Favorites.Backend)
				assert.Equal(t, "amc:favorites:", cfg.Favorites.Redis.KeyPrefix)
				assert.Equal(t, "127.0.0.1", cfg.Mock.Host)
				assert.Equal(t, 8000, cfg.Mock.Port)
				assert.Equal(t, 10*time.Second, cfg.Mock.ReadTimeout)
				assert.NotEmpty(t, cfg.Mock.JWTSecret)
				assert.Equal(t, time.Hour, cfg.Mock.AccessTTL)
				assert.Equal(t, 24*time.Hour, cfg.Mock.RefreshTTL)
				assert.Equal(t, "bare", cfg.Mock.FavoritesShape)
				assert.Equal(t, MyListingsPaginated, cfg.Mock.MyListingsMode)
				assert.Equal(t, 10*time.Minute, cfg.Mock.PruneInterval)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "rate limit burst defaults to one",
			yaml: `
api:
  rate_limit:
    per_second: 4
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.InDelta(t, 4.0, cfg.API.RateLimit.PerSecond, 0.0001)
				assert.Equal(t, 1, cfg.API.RateLimit.Burst)
			},
		},
		{
			name: "env var substitution",
			yaml: `
api:
  base_url: "${TEST_AMC_URL}"
favorites:
  backend: redis
  redis:
    addr: localhost:6379
    password: "${TEST_AMC_REDIS_PASSWORD}"
`,
			envVars: map[string]string{
				"TEST_AMC_URL":            "https://cars.example.com/api/",
				"TEST_AMC_REDIS_PASSWORD": "hunter2",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "https://cars.example.com/api/", cfg.API.BaseURL)
				assert.Equal(t, "hunter2", cfg.Favorites.Redis.Password)
			},
		},
		{
			name: "full config with overrides",
			yaml: `
api:
  base_url: http://api.internal:9000/api/
  timeout: 5s
  rate_limit:
    per_second: 2.5
    burst: 5
session:
  state_dir: /tmp/amc-state
listings:
  page_size: 25
  fallback_limit: 500
favorites:
  concurrency: 3
mock:
  host: 0.0.0.0
  port: 9999
  access_ttl: 30s
  favorites_shape: nested
  my_listings_mode: raw
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "http://api.internal:9000/api/", cfg.API.BaseURL)
				assert.Equal(t, 5*time.Second, cfg.API.Timeout)
				assert.Equal(t, 5, cfg.API.RateLimit.Burst)
				assert.Equal(t, "/tmp/amc-state", cfg.Session.StateDir)
				assert.Equal(t, "/tmp/amc-state/credentials.yaml", cfg.Session.CredentialsPath())
				assert.Equal(t, "/tmp/amc-state/favorites.json", cfg.Session.FavoritesPath())
				assert.Equal(t, 25, cfg.Listings.PageSize)
				assert.Equal(t, 500, cfg.Listings.FallbackLimit)
				assert.Equal(t, 3, cfg.Favorites.Concurrency)
				assert.Equal(t, 9999, cfg.Mock.Port)
				assert.Equal(t, 30*time.Second, cfg.Mock.AccessTTL)
				assert.Equal(t, "nested", cfg.Mock.FavoritesShape)
				assert.Equal(t, MyListingsRaw, cfg.Mock.MyListingsMode)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
		{
			name: "non-http base url",
			yaml: `
api:
  base_url: ftp://cars
`,
			wantErr: `api.base_url must be an http(s) URL (got "ftp://cars")`,
		},
		{
			name: "redis backend missing addr",
			yaml: `
favorites:
  backend: redis
`,
			wantErr: "favorites.redis.addr is required when backend is redis",
		},
		{
			name: "unknown backend",
			yaml: `
favorites:
  backend: memcached
`,
			wantErr: `favorites.backend must be one of: file, redis (got "memcached")`,
		},
		{
			name: "unknown favorites shape",
			yaml: `
mock:
  favorites_shape: xml
`,
			wantErr: `mock.favorites_shape must be one of: bare, wrapped, nested, listings (got "xml")`,
		},
		{
			name: "unknown my listings mode",
			yaml: `
mock:
  my_listings_mode: cursor
`,
			wantErr: `mock.my_listings_mode must be one of: paginated, raw (got "cursor")`,
		},
		{
			name: "sub-second prune interval",
			yaml: `
mock:
  prune_interval: 500ms
`,
			wantErr: "mock.prune_interval must be at least 1s",
		},
		{
			name: "negative page size",
			yaml: `
listings:
  page_size: -1
`,
			wantErr: "listings.page_size must be at least 1",
		},
		{
			name: "fallback below page size",
			yaml: `
listings:
  page_size: 50
  fallback_limit: 20
`,
			wantErr: "listings.fallback_limit must be at least listings.page_size",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, validate(cfg))
	assert.Equal(t, DefaultBaseURL, cfg.API.BaseURL)
}
