package config

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/novo-auth/pkg/observability"
)

// Environment variables read outside the NOVO_ prefix.
const (
	EndpointEnv   = "GRAPHQL_ENDPOINT"
	ConfigFileEnv = "NOVO_CONFIG_FILE"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	GraphQL       GraphQLConfig       `yaml:"graphql"`
	Session       SessionConfig       `yaml:"session"`
	Cookie        CookieConfig        `yaml:"cookie"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// GraphQLConfig holds the backend endpoint and client cache settings
type GraphQLConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CacheSize      int           `yaml:"cache_size"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// SessionConfig holds session storage settings
type SessionConfig struct {
	Store           string        `yaml:"store"`
	MemorySize      int           `yaml:"memory_size"`
	MaxAge          time.Duration `yaml:"max_age"`
	ReapSchedule    string        `yaml:"reap_schedule"`
	RedisURL        string        `yaml:"redis_url"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	RedisMaxRetries int           `yaml:"redis_max_retries"`
	RedisPoolSize   int           `yaml:"redis_pool_size"`
}

// CookieConfig holds session cookie settings
type CookieConfig struct {
	Name     string `yaml:"name"`
	Domain   string `yaml:"domain"`
	Secure   bool   `yaml:"secure"`
	SameSite string `yaml:"same_site"`
}

// SameSiteMode maps SameSite onto net/http's constants.
func (c CookieConfig) SameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// RateLimitConfig holds limits for the credential endpoints
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Burst    int           `yaml:"burst"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Level returns the parsed log level.
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Default returns the configuration used when nothing is set. It has no
// GraphQL endpoint and so does not validate on its own.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		GraphQL: GraphQLConfig{
			RequestTimeout: 30 * time.Second,
			CacheSize:      512,
			CacheTTL:       5 * time.Minute,
		},
		Session: SessionConfig{
			Store:           StoreMemory,
			MemorySize:      10000,
			MaxAge:          24 * time.Hour,
			ReapSchedule:    "*/15 * * * *",
			RedisMaxRetries: 3,
			RedisPoolSize:   10,
		},
		Cookie: CookieConfig{
			Name:     "__Secure-novo-session",
			Secure:   true,
			SameSite: "lax",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 10,
			Window:   time.Minute,
			Burst:    5,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "novo-gateway",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration: defaults, then the YAML file named by
// NOVO_CONFIG_FILE (if any), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv(ConfigFileEnv, ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the YAML file at path onto c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("NOVO_HOST", s.Host)
	s.Port = getEnv("NOVO_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("NOVO_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("NOVO_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("NOVO_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("NOVO_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.CORSOrigins = getEnvList("NOVO_CORS_ORIGINS", s.CORSOrigins)
	s.MaxBodyBytes = getEnvInt64("NOVO_MAX_BODY_BYTES", s.MaxBodyBytes)

	g := &c.GraphQL
	g.Endpoint = getEnv(EndpointEnv, g.Endpoint)
	g.RequestTimeout = getEnvDuration("NOVO_GRAPHQL_TIMEOUT", g.RequestTimeout)
	g.CacheSize = getEnvInt("NOVO_QUERY_CACHE_SIZE", g.CacheSize)
	g.CacheTTL = getEnvDuration("NOVO_QUERY_CACHE_TTL", g.CacheTTL)

	ss := &c.Session
	ss.Store = strings.ToLower(getEnv("NOVO_SESSION_STORE", ss.Store))
	ss.MemorySize = getEnvInt("NOVO_SESSION_MEMORY_SIZE", ss.MemorySize)
	ss.MaxAge = getEnvDuration("NOVO_SESSION_MAX_AGE", ss.MaxAge)
	ss.ReapSchedule = getEnv("NOVO_SESSION_REAP_SCHEDULE", ss.ReapSchedule)
	ss.RedisURL = getEnv("NOVO_REDIS_URL", ss.RedisURL)
	ss.RedisPassword = getEnv("NOVO_REDIS_PASSWORD", ss.RedisPassword)
	ss.RedisDB = getEnvInt("NOVO_REDIS_DB", ss.RedisDB)
	ss.RedisMaxRetries = getEnvInt("NOVO_REDIS_MAX_RETRIES", ss.RedisMaxRetries)
	ss.RedisPoolSize = getEnvInt("NOVO_REDIS_POOL_SIZE", ss.RedisPoolSize)

	ck := &c.Cookie
	ck.Domain = getEnv("NOVO_COOKIE_DOMAIN", ck.Domain)
	ck.Secure = getEnvBool("NOVO_COOKIE_SECURE", ck.Secure)
	ck.SameSite = getEnv("NOVO_COOKIE_SAMESITE", ck.SameSite)

	rl := &c.RateLimit
	rl.Enabled = getEnvBool("NOVO_RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Requests = getEnvInt("NOVO_RATE_LIMIT_REQUESTS", rl.Requests)
	rl.Window = getEnvDuration("NOVO_RATE_LIMIT_WINDOW", rl.Window)
	rl.Burst = getEnvInt("NOVO_RATE_LIMIT_BURST", rl.Burst)

	o := &c.Observability
	o.LogLevel = getEnv("NOVO_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("NOVO_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("NOVO_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("NOVO_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("NOVO_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("NOVO_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("NOVO_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	endpoint := strings.TrimSpace(c.GraphQL.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("%s is required", EndpointEnv)
	}
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL: %q", EndpointEnv, endpoint)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server port must be numeric: %q", c.Server.Port)
	}

	switch c.Session.Store {
	case StoreMemory:
		if c.Session.MemorySize <= 0 {
			return fmt.Errorf("session memory size must be positive")
		}
	case StoreRedis:
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis session store")
		}
	default:
		return fmt.Errorf("invalid session store: %s (must be memory or redis)", c.Session.Store)
	}
	if c.Session.MaxAge <= 0 {
		return fmt.Errorf("session max age must be positive")
	}
	if _, err := cron.ParseStandard(c.Session.ReapSchedule); err != nil {
		return fmt.Errorf("invalid session reap schedule %q: %w", c.Session.ReapSchedule, err)
	}

	if c.Cookie.Name == "" {
		return fmt.Errorf("cookie name is required")
	}
	if strings.HasPrefix(c.Cookie.Name, "__Secure-") && !c.Cookie.Secure {
		return fmt.Errorf("cookie %s requires secure cookies", c.Cookie.Name)
	}
	switch strings.ToLower(c.Cookie.SameSite) {
	case "lax", "strict":
	case "none":
		if !c.Cookie.Secure {
			return fmt.Errorf("SameSite=None requires secure cookies")
		}
	default:
		return fmt.Errorf("invalid cookie SameSite: %s (must be lax, strict, or none)", c.Cookie.SameSite)
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 {
			return fmt.Errorf("rate limit requests must be positive")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate limit window must be positive")
		}
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
