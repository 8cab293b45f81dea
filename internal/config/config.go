// Package config handles loading and validating the proxy configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Auth        AuthConfig        `yaml:"auth"`
	Search      SearchConfig      `yaml:"search"`
	Cache       CacheConfig       `yaml:"cache"`
	Affiliate   AffiliateConfig   `yaml:"affiliate"`
	CORS        CORSConfig        `yaml:"cors"`
	Database    DatabaseConfig    `yaml:"database"`
	Schedule    ScheduleConfig    `yaml:"schedule"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Notify      NotifyConfig      `yaml:"notify"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MarketplaceConfig defines the upstream marketplace endpoints and the
// fixed header set sent with every call.
type MarketplaceConfig struct {
	SearchURL      string          `yaml:"search_url"`
	ItemsURL       string          `yaml:"items_url"`
	TokenURL       string          `yaml:"token_url"`
	AuthURL        string          `yaml:"auth_url"`
	UserAgent      string          `yaml:"user_agent"`
	AcceptLanguage string          `yaml:"accept_language"`
	Timeout        time.Duration   `yaml:"timeout"`
	AllowedHosts   []string        `yaml:"allowed_hosts"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines marketplace API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// AuthConfig holds the OAuth application credentials and the token pair
// seeded into the credential manager at startup.
type AuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
}

// SearchConfig defines query normalization defaults.
type SearchConfig struct {
	DefaultTerm  string `yaml:"default_term"`
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	Strict       bool   `yaml:"strict"`
}

// CacheConfig defines the result cache.
type CacheConfig struct {
	Enabled    *bool         `yaml:"enabled"` // default: true
	Backend    string        `yaml:"backend"` // memory, redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// IsEnabled reports whether caching is on. Absent means on.
func (c *CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// RedisConfig defines the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// AffiliateConfig defines the tracking parameters appended to outbound links.
type AffiliateConfig struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
}

// CORSConfig lists browser origins allowed to call the proxy.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig defines the optional PostgreSQL analytics store. When
// Host is empty analytics events are discarded.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// Enabled reports whether a database is configured.
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// ScheduleConfig defines background job intervals. Zero disables a job.
type ScheduleConfig struct {
	TokenRefreshInterval time.Duration `yaml:"token_refresh_interval"`
	WarmupInterval       time.Duration `yaml:"warmup_interval"`
	WarmupQueries        int           `yaml:"warmup_queries"`
	WarmupWindow         time.Duration `yaml:"warmup_window"`
}

// TelemetryConfig defines OpenTelemetry export. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Insecure     bool    `yaml:"insecure"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// NotifyConfig defines where operator notifications go. An empty webhook
// discards them.
type NotifyConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation. A .env file in the working directory is
// loaded first when present; variables already set take precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte) (*Config, error) {
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
	applyServerDefaults(&cfg.Server)
	applyMarketplaceDefaults(&cfg.Marketplace)
	applySearchDefaults(&cfg.Search)
	applyCacheDefaults(&cfg.Cache)
	applyDatabaseDefaults(&cfg.Database)
	applyScheduleDefaults(&cfg.Schedule)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyMarketplaceDefaults(m *MarketplaceConfig) {
	if m.SearchURL == "" {
		m.SearchURL = "https://api.mercadolibre.com/sites/MLB/search"
	}
	if m.ItemsURL == "" {
		m.ItemsURL = "https://api.mercadolibre.com/items"
	}
	if m.TokenURL == "" {
		m.TokenURL = "https://api.mercadolibre.com/oauth/token" //nolint:gosec // not a credential
	}
	if m.AuthURL == "" {
		m.AuthURL = "https://auth.mercadolivre.com.br/authorization"
	}
	if m.UserAgent == "" {
		m.UserAgent = "Mozilla/5.0 (compatible; StorefrontProxy/1.0)"
	}
	if m.AcceptLanguage == "" {
		m.AcceptLanguage = "pt-BR,pt;q=0.9,en;q=0.8"
	}
	if m.Timeout == 0 {
		m.Timeout = 10 * time.Second
	}
	if len(m.AllowedHosts) == 0 {
		m.AllowedHosts = []string{"mercadolivre.com.br", "mercadolibre.com"}
	}
	applyRateLimitDefaults(&m.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 10.0
	}
	if r.Burst == 0 {
		r.Burst = 20
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 100000
	}
}

func applySearchDefaults(s *SearchConfig) {
	if s.DefaultTerm == "" {
		s.DefaultTerm = "iphone"
	}
	if s.DefaultLimit == 0 {
		s.DefaultLimit = 24
	}
	if s.MaxLimit == 0 {
		s.MaxLimit = 50
	}
}

func applyCacheDefaults(c *CacheConfig) {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.TTL == 0 {
		c.TTL = 60 * time.Second
	}
	if c.MaxEntries == 0 {
		c.MaxEntries = 1000
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "sfp:search:"
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.WarmupQueries == 0 {
		s.WarmupQueries = 10
	}
	if s.WarmupWindow == 0 {
		s.WarmupWindow = 24 * time.Hour
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "storefront-proxy"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
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

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535 (got %d)", cfg.Server.Port))
	}

	if cfg.Search.DefaultLimit < 1 {
		errs = append(errs, fmt.Errorf("search.default_limit must be positive"))
	}
	if cfg.Search.MaxLimit < cfg.Search.DefaultLimit {
		errs = append(errs, fmt.Errorf(
			"search.max_limit (%d) must be >= search.default_limit (%d)",
			cfg.Search.MaxLimit, cfg.Search.DefaultLimit,
		))
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("cache.redis.addr is required when backend is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"cache.backend must be one of: memory, redis (got %q)",
			cfg.Cache.Backend,
		))
	}
	if cfg.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative"))
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when database.host is set"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when database.host is set"))
		}
	}

	if cfg.Schedule.WarmupInterval > 0 && !cfg.Database.Enabled() {
		errs = append(errs, fmt.Errorf("schedule.warmup_interval requires database.host"))
	}

	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_ratio must be within [0, 1]"))
	}

	return errors.Join(errs...)
}
