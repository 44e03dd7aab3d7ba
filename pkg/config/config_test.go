package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

func validConfig() *Config {
	cfg := Default()
	cfg.GraphQL.Endpoint = "https://api.novo.example/graphql"
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(EndpointEnv, "https://api.novo.example/graphql")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, StoreMemory, cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Equal(t, "__Secure-novo-session", cfg.Cookie.Name)
	assert.True(t, cfg.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cfg.Cookie.SameSiteMode())
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.Level())
}

func TestLoadConfig_MissingEndpoint(t *testing.T) {
	t.Setenv(EndpointEnv, "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EndpointEnv)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv(EndpointEnv, "http://localhost:4000/graphql")
	t.Setenv("NOVO_PORT", "9090")
	t.Setenv("NOVO_READ_TIMEOUT", "3s")
	t.Setenv("NOVO_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NOVO_SESSION_STORE", "REDIS")
	t.Setenv("NOVO_REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("NOVO_REDIS_POOL_SIZE", "25")
	t.Setenv("NOVO_COOKIE_SAMESITE", "strict")
	t.Setenv("NOVO_RATE_LIMIT_REQUESTS", "3")
	t.Setenv("NOVO_LOG_LEVEL", "debug")
	t.Setenv("NOVO_METRICS_ENABLED", "false")
	t.Setenv("NOVO_MAX_BODY_BYTES", "2048")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(2048), cfg.Server.MaxBodyBytes)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Session.RedisURL)
	assert.Equal(t, 25, cfg.Session.RedisPoolSize)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Cookie.SameSiteMode())
	assert.Equal(t, 3, cfg.RateLimit.Requests)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.Level())
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestLoadConfig_InvalidEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv(EndpointEnv, "https://api.novo.example/graphql")
	t.Setenv("NOVO_READ_TIMEOUT", "soon")
	t.Setenv("NOVO_SESSION_MEMORY_SIZE", "lots")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10000, cfg.Session.MemorySize)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
graphql:
  endpoint: https://file.example/graphql
  cache_ttl: 30s
session:
  store: redis
  redis_url: redis://cache:6379/0
rate_limit:
  requests: 20
`), 0o600))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("NOVO_RATE_LIMIT_REQUESTS", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://file.example/graphql", cfg.GraphQL.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.GraphQL.CacheTTL)
	assert.Equal(t, StoreRedis, cfg.Session.Store)
	assert.Equal(t, "redis://cache:6379/0", cfg.Session.RedisURL)
	// env wins over the file
	assert.Equal(t, 7, cfg.RateLimit.Requests)
	// untouched keys keep defaults
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadConfig_FileErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "absent.yaml"))
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("graphql: [unclosed"), 0o600))
		t.Setenv(ConfigFileEnv, path)
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse config file")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "relative endpoint",
			mutate:  func(c *Config) { c.GraphQL.Endpoint = "/graphql" },
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "non-http endpoint",
			mutate:  func(c *Config) { c.GraphQL.Endpoint = "ftp://api.example/graphql" },
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "empty port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "non-numeric port",
			mutate:  func(c *Config) { c.Server.Port = "http" },
			wantErr: "must be numeric",
		},
		{
			name:    "unknown store",
			mutate:  func(c *Config) { c.Session.Store = "postgres" },
			wantErr: "invalid session store",
		},
		{
			name:    "redis without url",
			mutate:  func(c *Config) { c.Session.Store = StoreRedis },
			wantErr: "redis URL is required",
		},
		{
			name:    "zero memory size",
			mutate:  func(c *Config) { c.Session.MemorySize = 0 },
			wantErr: "memory size must be positive",
		},
		{
			name:    "zero max age",
			mutate:  func(c *Config) { c.Session.MaxAge = 0 },
			wantErr: "max age must be positive",
		},
		{
			name:    "bad reap schedule",
			mutate:  func(c *Config) { c.Session.ReapSchedule = "every so often" },
			wantErr: "invalid session reap schedule",
		},
		{
			name:    "secure prefix without secure",
			mutate:  func(c *Config) { c.Cookie.Secure = false },
			wantErr: "requires secure cookies",
		},
		{
			name: "samesite none without secure",
			mutate: func(c *Config) {
				c.Cookie.Name = "novo-session"
				c.Cookie.Secure = false
				c.Cookie.SameSite = "none"
			},
			wantErr: "SameSite=None requires secure cookies",
		},
		{
			name:    "unknown samesite",
			mutate:  func(c *Config) { c.Cookie.SameSite = "sometimes" },
			wantErr: "invalid cookie SameSite",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.RateLimit.Requests = 0 },
			wantErr: "rate limit requests must be positive",
		},
		{
			name: "disabled rate limit skips checks",
			mutate: func(c *Config) {
				c.RateLimit.Enabled = false
				c.RateLimit.Requests = 0
			},
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCookieConfig_SameSiteMode(t *testing.T) {
	assert.Equal(t, http.SameSiteLaxMode, CookieConfig{SameSite: "Lax"}.SameSiteMode())
	assert.Equal(t, http.SameSiteStrictMode, CookieConfig{SameSite: "STRICT"}.SameSiteMode())
	assert.Equal(t, http.SameSiteNoneMode, CookieConfig{SameSite: "none"}.SameSiteMode())
	assert.Equal(t, http.SameSiteLaxMode, CookieConfig{}.SameSiteMode())
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("NOVO_TEST_BOOL", "1")
	t.Setenv("NOVO_TEST_INT64", "42")
	t.Setenv("NOVO_TEST_LIST", " a ,b")

	assert.True(t, getEnvBool("NOVO_TEST_BOOL", false))
	assert.False(t, getEnvBool("NOVO_TEST_UNSET", false))
	assert.Equal(t, int64(42), getEnvInt64("NOVO_TEST_INT64", 0))
	assert.Equal(t, []string{"a", "b"}, getEnvList("NOVO_TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, getEnvList("NOVO_TEST_UNSET", []string{"x"}))
}
