// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"device-inspector/backend/internal/eventstore"
	"device-inspector/backend/internal/security"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// MetricsAddr is the address of the Prometheus /metrics listener. Empty disables it.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	// DatabaseURL is the Postgres DSN. Required by the server, worker and migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// OTLPEndpoint is the OTLP gRPC collector (e.g. localhost:4317). Empty keeps no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// KafkaBrokers is a comma-separated list of broker addresses. When set, pushed events go
	// through Kafka and the worker persists them; otherwise the server writes directly.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the topic carrying event batches and session lifecycle messages.
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL, when set, makes the worker mirror log and error events to Loki.
	LokiURL string `mapstructure:"LOKI_URL"`

	// IngestPolicy is a Rego module (inline or path) defining data.inspector.ingest.drop. Empty admits every event.
	IngestPolicy string `mapstructure:"INGEST_POLICY"`

	// ProducerJWTPublicKey (inline PEM or path) enables producer authentication on IngestService.
	// ProducerJWTPrivateKey is only read by cmd/producer-token.
	ProducerJWTPublicKey  string `mapstructure:"PRODUCER_JWT_PUBLIC_KEY"`
	ProducerJWTPrivateKey string `mapstructure:"PRODUCER_JWT_PRIVATE_KEY"`
	ProducerJWTIssuer     string `mapstructure:"PRODUCER_JWT_ISSUER"`
	ProducerJWTAudience   string `mapstructure:"PRODUCER_JWT_AUDIENCE"`

	// Store tuning. Window values are milliseconds of session-relative time.
	RingCapacity   int   `mapstructure:"RING_CAPACITY"`
	PageCacheSize  int   `mapstructure:"PAGE_CACHE_SIZE"`
	DisplayCap     int   `mapstructure:"DISPLAY_CAP"`
	QueryLimit     int   `mapstructure:"QUERY_LIMIT"`
	WindowSlackMs  int64 `mapstructure:"WINDOW_SLACK_MS"`
	WindowExpandMs int64 `mapstructure:"WINDOW_EXPAND_MS"`
	JumpWindowMs   int64 `mapstructure:"JUMP_WINDOW_MS"`
	TailLeadMs     int64 `mapstructure:"TAIL_LEAD_MS"`

	// SessionIdleTimeout is how long an active session may go without events before the
	// supervisor fails it (e.g. "30m"). "0" disables the supervisor.
	SessionIdleTimeout string `mapstructure:"SESSION_IDLE_TIMEOUT"`
	// CleanupMaxAgeDays is the retention of stored sessions; 0 disables periodic cleanup.
	CleanupMaxAgeDays int `mapstructure:"CLEANUP_MAX_AGE_DAYS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9102")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "device-inspector")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "device-events")
	v.SetDefault("KAFKA_GROUP_ID", "device-events-worker")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("INGEST_POLICY", "")
	v.SetDefault("PRODUCER_JWT_PUBLIC_KEY", "")
	v.SetDefault("PRODUCER_JWT_PRIVATE_KEY", "")
	v.SetDefault("PRODUCER_JWT_ISSUER", "device-inspector")
	v.SetDefault("PRODUCER_JWT_AUDIENCE", "device-inspector-ingest")
	v.SetDefault("RING_CAPACITY", 2000)
	v.SetDefault("PAGE_CACHE_SIZE", 50)
	v.SetDefault("DISPLAY_CAP", 2000)
	v.SetDefault("QUERY_LIMIT", 1000)
	v.SetDefault("WINDOW_SLACK_MS", 10000)
	v.SetDefault("WINDOW_EXPAND_MS", 30000)
	v.SetDefault("JUMP_WINDOW_MS", 30000)
	v.SetDefault("TAIL_LEAD_MS", 5000)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("CLEANUP_MAX_AGE_DAYS", 30)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.RingCapacity <= 0 || cfg.PageCacheSize <= 0 || cfg.DisplayCap <= 0 || cfg.QueryLimit <= 0 {
		return nil, errors.New("config: RING_CAPACITY, PAGE_CACHE_SIZE, DISPLAY_CAP and QUERY_LIMIT must be positive")
	}
	if cfg.WindowSlackMs < 0 || cfg.WindowExpandMs < 0 || cfg.JumpWindowMs < 0 || cfg.TailLeadMs < 0 {
		return nil, errors.New("config: window settings must not be negative")
	}
	if cfg.CleanupMaxAgeDays < 0 {
		return nil, errors.New("config: CLEANUP_MAX_AGE_DAYS must not be negative")
	}
	if _, err := time.ParseDuration(cfg.SessionIdleTimeout); err != nil {
		return nil, errors.New("config: SESSION_IDLE_TIMEOUT must be a duration (e.g. 30m)")
	}

	return &cfg, nil
}

// IdleTimeout parses SessionIdleTimeout. Returns 0 (supervisor disabled) if unset, invalid or negative.
func (c *Config) IdleTimeout() time.Duration {
	d, err := time.ParseDuration(c.SessionIdleTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list means Kafka is disabled.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ProducerVerifier returns a verify-only token provider for producer Bearer tokens, or nil when
// PRODUCER_JWT_PUBLIC_KEY is unset.
func (c *Config) ProducerVerifier() (*security.TokenProvider, error) {
	if strings.TrimSpace(c.ProducerJWTPublicKey) == "" {
		return nil, nil
	}
	pub, err := security.ParsePublicKey(c.ProducerJWTPublicKey)
	if err != nil {
		return nil, fmt.Errorf("config: PRODUCER_JWT_PUBLIC_KEY: %w", err)
	}
	return security.NewVerifier(pub, c.ProducerJWTIssuer, c.ProducerJWTAudience), nil
}

// ProducerSigner returns a token provider that can issue producer tokens.
func (c *Config) ProducerSigner() (*security.TokenProvider, error) {
	key, err := security.ParsePrivateKey(c.ProducerJWTPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("config: PRODUCER_JWT_PRIVATE_KEY: %w", err)
	}
	return security.NewTokenProvider(key, c.ProducerJWTIssuer, c.ProducerJWTAudience), nil
}

// StoreOptions maps the tuning keys onto eventstore.Options.
func (c *Config) StoreOptions() eventstore.Options {
	return eventstore.Options{
		RingCapacity:  c.RingCapacity,
		PageCacheSize: c.PageCacheSize,
		DisplayCap:    c.DisplayCap,
		QueryLimit:    c.QueryLimit,
		WindowSlack:   c.WindowSlackMs,
		WindowExpand:  c.WindowExpandMs,
		JumpWindow:    c.JumpWindowMs,
		TailLead:      c.TailLeadMs,
	}
}
