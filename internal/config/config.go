// Package config loads service configuration: embedded defaults, an optional
// YAML override file, then environment variables.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Storage  StorageConfig  `yaml:"storage"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Sports   []SportConfig  `yaml:"sports"`
	Prefetch PrefetchConfig `yaml:"prefetch"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

type ProviderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"` // Server key, only used by prefetch
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond caps all outgoing provider requests; 0 disables
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type CacheConfig struct {
	RedisURL  string        `yaml:"redis_url"` // Empty selects the in-memory cache
	OddsTTL   time.Duration `yaml:"odds_ttl"`
	ScoresTTL time.Duration `yaml:"scores_ttl"`
	MergedTTL time.Duration `yaml:"merged_ttl"`
}

type StorageConfig struct {
	PostgresDSN    string        `yaml:"postgres_dsn"`
	MongoURI       string        `yaml:"mongo_uri"`
	MongoDatabase  string        `yaml:"mongo_database"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
}

type FetchConfig struct {
	PaceInterval    time.Duration `yaml:"pace_interval"`
	DefaultRegion   string        `yaml:"default_region"`
	DefaultDaysFrom int           `yaml:"default_days_from"`
	BookmakerGroups [][]string    `yaml:"bookmaker_groups"`
	DefaultMarkets  []string      `yaml:"default_markets"`
	AllMarkets      []string      `yaml:"all_markets"`
}

// SportConfig is one row of the sport -> default bookmakers table
type SportConfig struct {
	Key        string   `yaml:"key"`
	Bookmakers []string `yaml:"bookmakers"`
}

type PrefetchConfig struct {
	Sports   []string      `yaml:"sports"`
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the embedded defaults
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	return &cfg, nil
}

// Load builds the configuration. configPath may be empty; a file given there
// overrides the defaults key by key, and environment variables override both.
func Load(configPath string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the rest of the service relies on
func (c *Config) Validate() error {
	if len(c.Fetch.BookmakerGroups) == 0 {
		return fmt.Errorf("fetch.bookmaker_groups must not be empty")
	}
	for i, g := range c.Fetch.BookmakerGroups {
		if len(g) == 0 {
			return fmt.Errorf("fetch.bookmaker_groups[%d] is empty", i)
		}
	}

	seen := make(map[string]bool, len(c.Sports))
	for _, s := range c.Sports {
		if s.Key == "" {
			return fmt.Errorf("sports: entry without key")
		}
		if seen[s.Key] {
			return fmt.Errorf("sports: duplicate key %s", s.Key)
		}
		seen[s.Key] = true
	}

	if c.Cache.OddsTTL <= 0 || c.Cache.ScoresTTL <= 0 || c.Cache.MergedTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Fetch.DefaultDaysFrom < 1 {
		return fmt.Errorf("fetch.default_days_from must be at least 1")
	}
	if len(c.Prefetch.Sports) > 0 && c.Prefetch.Interval <= 0 {
		return fmt.Errorf("prefetch.interval must be positive")
	}

	return nil
}

// applyEnv overrides settings from environment variables
func (c *Config) applyEnv() error {
	c.Provider.APIKey = getEnv("ODDS_API_KEY", c.Provider.APIKey)
	c.Provider.BaseURL = getEnv("ODDS_API_BASE_URL", c.Provider.BaseURL)
	if rps := os.Getenv("ODDS_API_RPS"); rps != "" {
		v, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return fmt.Errorf("invalid ODDS_API_RPS %q: %w", rps, err)
		}
		c.Provider.RequestsPerSecond = v
	}

	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Addr = getEnv("LISTEN_ADDR", c.Server.Addr)
	c.Server.CORSOrigins = getEnvList("CORS_ORIGINS", c.Server.CORSOrigins)

	c.Cache.RedisURL = getEnv("REDIS_URL", c.Cache.RedisURL)
	c.Storage.PostgresDSN = getEnv("POSTGRES_DSN", c.Storage.PostgresDSN)
	c.Storage.MongoURI = getEnv("MONGO_URI", c.Storage.MongoURI)
	c.Storage.MongoDatabase = getEnv("MONGO_DATABASE", c.Storage.MongoDatabase)

	c.Prefetch.Sports = getEnvList("PREFETCH_SPORTS", c.Prefetch.Sports)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"ODDS_CACHE_TTL", &c.Cache.OddsTTL},
		{"SCORES_CACHE_TTL", &c.Cache.ScoresTTL},
		{"MERGED_CACHE_TTL", &c.Cache.MergedTTL},
		{"FETCH_PACE_INTERVAL", &c.Fetch.PaceInterval},
		{"PREFETCH_INTERVAL", &c.Prefetch.Interval},
		{"ODDS_API_TIMEOUT", &c.Provider.Timeout},
	}
	for _, d := range durations {
		v, err := getEnvDuration(d.key, *d.target)
		if err != nil {
			return err
		}
		*d.target = v
	}

	return nil
}

// SportBookmakers returns the sport -> default bookmakers table
func (c *Config) SportBookmakers() map[string][]string {
	out := make(map[string][]string, len(c.Sports))
	for _, s := range c.Sports {
		out[s.Key] = append([]string(nil), s.Bookmakers...)
	}
	return out
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList reads a comma-separated list
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

// getEnvDuration accepts a Go duration ("5m") or a bare number of seconds ("300")
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
