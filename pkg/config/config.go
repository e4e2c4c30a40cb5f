package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/umputun/feedpipe/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:feedpipe.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Schedule ScheduleConfig `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration"`
	Fetch    FetchConfig    `yaml:"fetch" json:"fetch" jsonschema:"description=Feed fetching configuration"`
	Breaker  BreakerConfig  `yaml:"breaker" json:"breaker" jsonschema:"description=Per-source circuit breaker configuration"`
	Dedup    DedupConfig    `yaml:"dedup" json:"dedup" jsonschema:"description=Deduplication configuration"`
	Cache    CacheConfig    `yaml:"cache" json:"cache" jsonschema:"description=Fingerprint cache configuration"`

	Sources []Source `yaml:"sources" json:"sources" jsonschema:"description=Feed sources"`
}

// ScheduleConfig holds scheduler settings
type ScheduleConfig struct {
	Tick       time.Duration `yaml:"tick" json:"tick" jsonschema:"default=1m,description=How often due sources are checked"`
	MaxWorkers int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,minimum=1,description=Maximum concurrent source pipelines"`
	RunTimeout time.Duration `yaml:"run_timeout" json:"run_timeout" jsonschema:"default=2m,description=Maximum duration of a single source run"`
}

// FetchConfig holds HTTP fetcher settings
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Timeout of a single HTTP request"`
	Retries       int           `yaml:"retries" json:"retries" jsonschema:"default=3,minimum=1,description=Attempts per logical fetch"`
	RetryDelay    time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=500ms,description=Initial backoff delay"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay" jsonschema:"default=5s,description=Maximum backoff delay"`
	MaxSize       int64         `yaml:"max_size" json:"max_size" jsonschema:"default=10485760,description=Maximum payload size in bytes"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Feedpipe/1.0,description=User agent for HTTP requests"`
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" jsonschema:"default=3,minimum=1,description=Failures to open the circuit"`
	Window           time.Duration `yaml:"window" json:"window" jsonschema:"default=10m,description=Sliding window for counting failures"`
	Cooldown         time.Duration `yaml:"cooldown" json:"cooldown" jsonschema:"default=60s,description=Time in open state before a probe is allowed"`
}

// DedupConfig holds deduplication settings
type DedupConfig struct {
	Fingerprint string `yaml:"fingerprint" json:"fingerprint" jsonschema:"default=full,enum=full,enum=url,description=Fingerprint key: full (title+url+date) or url"`
}

// CacheConfig holds fingerprint cache settings
type CacheConfig struct {
	Type     string        `yaml:"type" json:"type" jsonschema:"default=memory,enum=none,enum=memory,enum=redis,description=Cache backend"`
	Addr     string        `yaml:"addr" json:"addr" jsonschema:"description=Redis address (host:port)"`
	Password string        `yaml:"password" json:"password" jsonschema:"description=Redis password"`
	DB       int           `yaml:"db" json:"db" jsonschema:"default=0,description=Redis database"`
	TTL      time.Duration `yaml:"ttl" json:"ttl" jsonschema:"default=24h,description=Cache entry TTL"`
	MaxKeys  int           `yaml:"max_keys" json:"max_keys" jsonschema:"default=100000,description=Maximum entries of the memory cache"`
}

// Source is a feed source entry of the static registry
type Source struct {
	Name     string        `yaml:"name" json:"name" jsonschema:"required,description=Unique source symbol"`
	Title    string        `yaml:"title" json:"title" jsonschema:"description=Display name"`
	URL      string        `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
	Parser   string        `yaml:"parser" json:"parser" jsonschema:"default=rss,enum=rss,enum=atom,enum=json,description=Feed format"`
	Interval time.Duration `yaml:"interval" json:"interval" jsonschema:"default=30m,description=Polling interval"`
	Enabled  *bool         `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Source is polled"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	// server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:feedpipe.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// schedule
	if cfg.Schedule.Tick == 0 {
		cfg.Schedule.Tick = time.Minute
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 5
	}
	if cfg.Schedule.RunTimeout == 0 {
		cfg.Schedule.RunTimeout = 2 * time.Minute
	}

	// fetch
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 10 * time.Second
	}
	if cfg.Fetch.Retries == 0 {
		cfg.Fetch.Retries = 3
	}
	if cfg.Fetch.RetryDelay == 0 {
		cfg.Fetch.RetryDelay = 500 * time.Millisecond
	}
	if cfg.Fetch.MaxRetryDelay == 0 {
		cfg.Fetch.MaxRetryDelay = 5 * time.Second
	}
	if cfg.Fetch.MaxSize == 0 {
		cfg.Fetch.MaxSize = 10 << 20
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "Feedpipe/1.0"
	}

	// breaker
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 3
	}
	if cfg.Breaker.Window == 0 {
		cfg.Breaker.Window = 10 * time.Minute
	}
	if cfg.Breaker.Cooldown == 0 {
		cfg.Breaker.Cooldown = 60 * time.Second
	}

	// dedup and cache
	if cfg.Dedup.Fingerprint == "" {
		cfg.Dedup.Fingerprint = "full"
	}
	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "memory"
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 24 * time.Hour
	}
	if cfg.Cache.MaxKeys == 0 {
		cfg.Cache.MaxKeys = 100_000
	}

	// sources
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.Title == "" {
			src.Title = src.Name
		}
		if src.Parser == "" {
			src.Parser = string(domain.ParserRSS)
		}
		if src.Interval == 0 {
			src.Interval = 30 * time.Minute
		}
		if src.Enabled == nil {
			enabled := true
			src.Enabled = &enabled
		}
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Schedule.MaxWorkers < 1 {
		return fmt.Errorf("schedule.max_workers must be at least 1")
	}
	if cfg.Fetch.Retries < 1 {
		return fmt.Errorf("fetch.retries must be at least 1")
	}
	if cfg.Fetch.MaxSize < 1 {
		return fmt.Errorf("fetch.max_size must be positive")
	}
	if cfg.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be at least 1")
	}
	if cfg.Breaker.Cooldown < time.Second {
		return fmt.Errorf("breaker.cooldown must be at least 1 second")
	}
	if cfg.Dedup.Fingerprint != "full" && cfg.Dedup.Fingerprint != "url" {
		return fmt.Errorf("dedup.fingerprint must be full or url, got %q", cfg.Dedup.Fingerprint)
	}

	switch cfg.Cache.Type {
	case "none", "memory":
	case "redis":
		if cfg.Cache.Addr == "" {
			return fmt.Errorf("cache.addr is required for redis cache")
		}
	default:
		return fmt.Errorf("unknown cache.type %q", cfg.Cache.Type)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d].name is required", i)
		}
		if seen[src.Name] {
			return fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		u, err := url.Parse(src.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("source %s: invalid url %q", src.Name, src.URL)
		}
		if !domain.ParserKind(src.Parser).Valid() {
			return fmt.Errorf("source %s: unknown parser %q", src.Name, src.Parser)
		}
		if src.Interval < time.Second {
			return fmt.Errorf("source %s: interval must be at least 1 second", src.Name)
		}
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// DomainSources converts configured sources to domain sources
func (c *Config) DomainSources() []domain.Source {
	res := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		res = append(res, domain.Source{
			Name:     s.Name,
			Title:    s.Title,
			URL:      s.URL,
			Parser:   domain.ParserKind(s.Parser),
			Interval: s.Interval,
			Enabled:  s.Enabled == nil || *s.Enabled,
		})
	}
	return res
}
