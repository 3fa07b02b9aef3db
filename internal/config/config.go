// Package config provides configuration loading for threadbank.
//
// Settings come from a YAML file overridden by environment variables,
// with hardcoded defaults underneath. See LoadWithFile for precedence
// and the environment variable mapping.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete threadbank configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
	Corpus        CorpusConfig        `koanf:"corpus"`
	Index         IndexConfig         `koanf:"index"`
	Queue         QueueConfig         `koanf:"queue"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	Collector     CollectorConfig     `koanf:"collector"`
	Worker        WorkerConfig        `koanf:"worker"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
}

// CorpusConfig holds corpus service configuration.
type CorpusConfig struct {
	Model          string `koanf:"model"`
	QueryCacheSize int    `koanf:"query_cache_size"`
}

// IndexConfig tunes TF-IDF vectorization.
type IndexConfig struct {
	MaxTerms      int `koanf:"max_terms"`
	BodyPrefixLen int `koanf:"body_prefix_len"`
}

// QueueConfig holds retry queue backoff configuration.
type QueueConfig struct {
	BaseDelay     Duration `koanf:"base_delay"`
	BackoffFactor float64  `koanf:"backoff_factor"`
	MaxDelay      Duration `koanf:"max_delay"`
	MaxRetries    int      `koanf:"max_retries"`
	JitterFactor  float64  `koanf:"jitter_factor"`
}

// EmbeddingsConfig holds embedding storage and generator configuration.
type EmbeddingsConfig struct {
	// Path is the directory for the persistent vector database.
	// Empty means memory only.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`

	// Endpoint and APIKey configure the external embedding service.
	// With an empty endpoint no embedding jobs are issued and
	// similarity falls back to TF-IDF.
	Endpoint string `koanf:"endpoint"`
	APIKey   Secret `koanf:"api_key"`
	Timeout  Duration `koanf:"timeout"`
}

// CollectorConfig holds spool directory ingestion configuration.
type CollectorConfig struct {
	// SpoolDir is watched for dropped transcript files. Empty
	// disables the collector.
	SpoolDir string `koanf:"spool_dir"`
}

// WorkerConfig holds queue worker configuration.
type WorkerConfig struct {
	PollInterval   Duration `koanf:"poll_interval"`
	RatePerSecond  float64  `koanf:"rate_per_second"`
	RateBurst      int      `koanf:"rate_burst"`
}

// applyDefaults fills unset fields with defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9180
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "threadbank"
	}
	if cfg.Corpus.Model == "" {
		cfg.Corpus.Model = "text-embedding-3-small"
	}
	if cfg.Corpus.QueryCacheSize == 0 {
		cfg.Corpus.QueryCacheSize = 256
	}
	if cfg.Index.MaxTerms == 0 {
		cfg.Index.MaxTerms = 100
	}
	if cfg.Index.BodyPrefixLen == 0 {
		cfg.Index.BodyPrefixLen = 2000
	}
	if cfg.Queue.BaseDelay == 0 {
		cfg.Queue.BaseDelay = Duration(time.Second)
	}
	if cfg.Queue.BackoffFactor == 0 {
		cfg.Queue.BackoffFactor = 2
	}
	if cfg.Queue.MaxDelay == 0 {
		cfg.Queue.MaxDelay = Duration(30 * time.Second)
	}
	if cfg.Queue.MaxRetries == 0 {
		cfg.Queue.MaxRetries = 3
	}
	if cfg.Queue.JitterFactor == 0 {
		cfg.Queue.JitterFactor = 0.25
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = Duration(30 * time.Second)
	}
	if cfg.Worker.PollInterval == 0 {
		cfg.Worker.PollInterval = Duration(500 * time.Millisecond)
	}
	if cfg.Worker.RatePerSecond == 0 {
		cfg.Worker.RatePerSecond = 10
	}
	if cfg.Worker.RateBurst == 0 {
		cfg.Worker.RateBurst = 5
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.http_port must be 1-65535, got %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	if c.Queue.BackoffFactor < 1 {
		return fmt.Errorf("queue.backoff_factor must be >= 1, got %g", c.Queue.BackoffFactor)
	}
	if c.Queue.JitterFactor < 0 || c.Queue.JitterFactor > 1 {
		return fmt.Errorf("queue.jitter_factor must be in [0, 1], got %g", c.Queue.JitterFactor)
	}
	if c.Queue.MaxRetries < 1 {
		return fmt.Errorf("queue.max_retries must be >= 1, got %d", c.Queue.MaxRetries)
	}
	if c.Queue.MaxDelay.Duration() < c.Queue.BaseDelay.Duration() {
		return errors.New("queue.max_delay must be >= queue.base_delay")
	}
	if c.Embeddings.Endpoint != "" && !c.Embeddings.APIKey.IsSet() {
		return errors.New("embeddings.api_key is required when embeddings.endpoint is set")
	}
	return nil
}
