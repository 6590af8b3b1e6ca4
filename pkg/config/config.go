package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces every environment override. Keys follow the field
// path, e.g. MERCHPULSE_SERVER_PORT or MERCHPULSE_RATE_LIMIT_BACKEND.
const EnvPrefix = "MERCHPULSE"

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" split_words:"true"`
	Database  DatabaseConfig  `json:"database" yaml:"database" split_words:"true"`
	Scrapers  ScraperConfig   `json:"scrapers" yaml:"scrapers" split_words:"true"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit" split_words:"true"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler" split_words:"true"`
	Forecast  ForecastConfig  `json:"forecast" yaml:"forecast" split_words:"true"`
	Spotify   SpotifyConfig   `json:"spotify" yaml:"spotify" split_words:"true"`
}

// ServerConfig for HTTP server settings
type ServerConfig struct {
	Port         string `json:"port" yaml:"port" split_words:"true"`
	ReadTimeout  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds" split_words:"true"`
	WriteTimeout int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds" split_words:"true"`
}

// DatabaseConfig selects the store backend. Path is used by sqlite, the
// connection fields by postgres.
type DatabaseConfig struct {
	Driver   string `json:"driver" yaml:"driver" split_words:"true"`
	Path     string `json:"path" yaml:"path" split_words:"true"`
	Host     string `json:"host" yaml:"host" split_words:"true"`
	Port     int    `json:"port" yaml:"port" split_words:"true"`
	User     string `json:"user" yaml:"user" split_words:"true"`
	Password string `json:"password" yaml:"password" split_words:"true"`
	Database string `json:"database" yaml:"database" split_words:"true"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode" split_words:"true"`
}

// ScraperConfig for web scraper settings
type ScraperConfig struct {
	UserAgent        string       `json:"user_agent" yaml:"user_agent" split_words:"true"`
	RateLimitSeconds float64      `json:"rate_limit_seconds" yaml:"rate_limit_seconds" split_words:"true"`
	Timeout          int          `json:"timeout_seconds" yaml:"timeout_seconds" split_words:"true"`
	MaxRetries       int          `json:"max_retries" yaml:"max_retries" split_words:"true"`
	RetryBackoffMS   int          `json:"retry_backoff_ms" yaml:"retry_backoff_ms" split_words:"true"`
	MaxConcurrent    int          `json:"max_concurrent" yaml:"max_concurrent" split_words:"true"`
	Platforms        []string     `json:"platforms" yaml:"platforms" split_words:"true"`
	Shopee           ShopeeConfig `json:"shopee" yaml:"shopee" split_words:"true"`
}

type ShopeeConfig struct {
	PageSize           int `json:"page_size" yaml:"page_size" split_words:"true"`
	MaxPages           int `json:"max_pages" yaml:"max_pages" split_words:"true"`
	MaxRetries         int `json:"max_retries" yaml:"max_retries" split_words:"true"`
	BackoffStepSeconds int `json:"backoff_step_seconds" yaml:"backoff_step_seconds" split_words:"true"`
}

// RateLimitConfig chooses where the per-platform request interval is kept.
// The redis backend shares it across processes.
type RateLimitConfig struct {
	Backend       string `json:"backend" yaml:"backend" split_words:"true"`
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" split_words:"true"`
	RedisPassword string `json:"redis_password" yaml:"redis_password" split_words:"true"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" split_words:"true"`
	RedisPrefix   string `json:"redis_prefix" yaml:"redis_prefix" split_words:"true"`
}

type SchedulerConfig struct {
	Enabled                      bool `json:"enabled" yaml:"enabled" split_words:"true"`
	IngestionIntervalHours       int  `json:"ingestion_interval_hours" yaml:"ingestion_interval_hours" split_words:"true"`
	RecalculationIntervalMinutes int  `json:"recalculation_interval_minutes" yaml:"recalculation_interval_minutes" split_words:"true"`
}

type ForecastConfig struct {
	DaysAhead int `json:"days_ahead" yaml:"days_ahead" split_words:"true"`
	Workers   int `json:"workers" yaml:"workers" split_words:"true"`
}

// SpotifyConfig for the popularity seeder. Both fields empty disables it.
type SpotifyConfig struct {
	ClientID     string `json:"client_id" yaml:"client_id" split_words:"true"`
	ClientSecret string `json:"client_secret" yaml:"client_secret" split_words:"true"`
}

// Load reads configuration from a JSON or YAML file, fills defaults, then
// applies environment overrides. A .env file in the working directory is
// loaded into the environment first; real environment variables win over it.
func Load(configPath string) (*Config, error) {
	config := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := decodeFile(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(config)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}

func decodeFile(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30
	}
	if config.Server.WriteTimeout == 0 {
		// Trigger endpoints hold the request open for a full scrape.
		config.Server.WriteTimeout = 600
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite"
	}
	if config.Database.Path == "" {
		config.Database.Path = "./merchpulse.db"
	}
	if config.Database.Port == 0 {
		config.Database.Port = 5432
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = "disable"
	}
	if config.Scrapers.UserAgent == "" {
		config.Scrapers.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if config.Scrapers.RateLimitSeconds == 0 {
		config.Scrapers.RateLimitSeconds = 2
	}
	if config.Scrapers.Timeout == 0 {
		config.Scrapers.Timeout = 30
	}
	if config.Scrapers.MaxRetries == 0 {
		config.Scrapers.MaxRetries = 3
	}
	if config.Scrapers.RetryBackoffMS == 0 {
		config.Scrapers.RetryBackoffMS = 1000
	}
	if config.Scrapers.MaxConcurrent == 0 {
		config.Scrapers.MaxConcurrent = 4
	}
	if config.Scrapers.Shopee.PageSize == 0 {
		config.Scrapers.Shopee.PageSize = 15
	}
	if config.Scrapers.Shopee.MaxPages == 0 {
		config.Scrapers.Shopee.MaxPages = 1
	}
	if config.Scrapers.Shopee.MaxRetries == 0 {
		config.Scrapers.Shopee.MaxRetries = 3
	}
	if config.Scrapers.Shopee.BackoffStepSeconds == 0 {
		config.Scrapers.Shopee.BackoffStepSeconds = 3
	}
	if config.RateLimit.Backend == "" {
		config.RateLimit.Backend = "memory"
	}
	if config.RateLimit.RedisAddr == "" {
		config.RateLimit.RedisAddr = "localhost:6379"
	}
	if config.RateLimit.RedisPrefix == "" {
		config.RateLimit.RedisPrefix = "merchpulse:ratelimit:"
	}
	if config.Scheduler.IngestionIntervalHours == 0 {
		config.Scheduler.IngestionIntervalHours = 12
	}
	if config.Scheduler.RecalculationIntervalMinutes == 0 {
		config.Scheduler.RecalculationIntervalMinutes = 60
	}
	if config.Forecast.DaysAhead == 0 {
		config.Forecast.DaysAhead = 90
	}
	if config.Forecast.Workers == 0 {
		config.Forecast.Workers = 4
	}
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func (c ScraperConfig) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimitSeconds * float64(time.Second))
}

func (c ScraperConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c ScraperConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

func (c SchedulerConfig) IngestionInterval() time.Duration {
	return time.Duration(c.IngestionIntervalHours) * time.Hour
}

func (c SchedulerConfig) RecalculationInterval() time.Duration {
	return time.Duration(c.RecalculationIntervalMinutes) * time.Minute
}

// SpotifyEnabled reports whether popularity seeding can run.
func (c *Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// Validate checks if required configurations are present
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			problems = append(problems, "database.path")
		}
	case "postgres":
		if c.Database.Host == "" {
			problems = append(problems, "database.host")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user")
		}
		if c.Database.Database == "" {
			problems = append(problems, "database.database")
		}
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q (want sqlite or postgres)", c.Database.Driver))
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			problems = append(problems, "rate_limit.redis_addr")
		}
	default:
		problems = append(problems, fmt.Sprintf("rate_limit.backend %q (want memory or redis)", c.RateLimit.Backend))
	}

	if c.Scrapers.RateLimitSeconds < 0 {
		problems = append(problems, "scrapers.rate_limit_seconds must not be negative")
	}
	if (c.Spotify.ClientID == "") != (c.Spotify.ClientSecret == "") {
		problems = append(problems, "spotify client_id and client_secret must be set together")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}

	return nil
}
