package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Service  ServiceConfig  `yaml:"service"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	LLM      LLMConfig      `yaml:"llm"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
}

// GetHost returns the listen host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr is host:port for net/http.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// ServiceConfig holds the shared secret automation clients present as a
// bearer token. It is only ever populated from the environment.
type ServiceConfig struct {
	Bearer string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the pool connection lifetime.
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds the optional Redis URL used for the completion cache
// and migration locks.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// IngestConfig bounds import batches.
type IngestConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// LLMConfig selects and tunes the completion provider.
type LLMConfig struct {
	Provider        string  `yaml:"provider"` // openai or bedrock
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Region          string  `yaml:"region"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	MaxAttempts     int     `yaml:"max_attempts"`
	BackoffSeconds  int     `yaml:"backoff_seconds"`
	CacheTTLMinutes int     `yaml:"cache_ttl_minutes"`
}

// Timeout returns the overall deadline for one completion, retries included.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Backoff returns the wait before the first retry.
func (c LLMConfig) Backoff() time.Duration {
	return time.Duration(c.BackoffSeconds) * time.Second
}

// CacheTTL returns how long completions stay cached. Zero disables the cache.
func (c LLMConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// CrawlerConfig holds page fetch settings.
type CrawlerConfig struct {
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	UserAgent      string         `yaml:"user_agent"`
	MaxBodyBytes   int64          `yaml:"max_body_bytes"`
	Snapshot       SnapshotConfig `yaml:"snapshot"`
	// AllowPrivateNetworks lets local development crawl loopback and
	// private addresses. Leave off in any shared deployment.
	AllowPrivateNetworks bool `yaml:"allow_private_networks"`
}

// Timeout returns the per-fetch deadline.
func (c CrawlerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnapshotConfig enables archiving fetched HTML to S3.
type SnapshotConfig struct {
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a bucket is configured.
func (c SnapshotConfig) Enabled() bool { return c.S3Bucket != "" }

// JobsConfig holds the optional SQS queue that receives job ledger events.
type JobsConfig struct {
	EventsQueueURL string `yaml:"events_queue_url"`
	AWSRegion      string `yaml:"aws_region"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedactPII defaults to true when unset.
func (c LogConfig) ShouldRedactPII() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 10 << 20
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 3
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 5
	}
	if cfg.Ingest.MaxBatchSize == 0 {
		cfg.Ingest.MaxBatchSize = 1000
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		if cfg.LLM.Provider == "bedrock" {
			cfg.LLM.Model = "anthropic.claude-3-5-sonnet-20240620-v1:0"
		} else {
			cfg.LLM.Model = "gpt-4"
		}
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.LLM.Region == "" {
		cfg.LLM.Region = "us-east-1"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 1024
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = 60
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.LLM.BackoffSeconds == 0 {
		cfg.LLM.BackoffSeconds = 2
	}
	if cfg.Crawler.TimeoutSeconds == 0 {
		cfg.Crawler.TimeoutSeconds = 10
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = "AuditAI-InsightEngine/1.0"
	}
	if cfg.Crawler.MaxBodyBytes == 0 {
		cfg.Crawler.MaxBodyBytes = 5 << 20
	}
	if cfg.Crawler.Snapshot.Prefix == "" {
		cfg.Crawler.Snapshot.Prefix = "snapshots/"
	}
	if cfg.Crawler.Snapshot.S3Region == "" {
		cfg.Crawler.Snapshot.S3Region = cfg.LLM.Region
	}
	if cfg.Jobs.AWSRegion == "" {
		cfg.Jobs.AWSRegion = cfg.LLM.Region
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first. A missing config file is not an
// error: the service can be configured from the environment alone.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := read(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
	} else if err != nil {
		return nil, err
	}

	cfg.Service.Bearer = strings.TrimSpace(os.Getenv("SERVICE_BEARER"))

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.LLM.Region = v
	}
	if v := os.Getenv("SNAPSHOT_S3_BUCKET"); v != "" {
		cfg.Crawler.Snapshot.S3Bucket = v
	}
	if v := os.Getenv("JOB_EVENTS_QUEUE_URL"); v != "" {
		cfg.Jobs.EventsQueueURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
