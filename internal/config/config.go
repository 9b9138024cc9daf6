// Package config loads the service configuration from config.yaml, a .env
// file and WMS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverMongoDB  = "mongodb"
	DriverPostgres = "postgres"
)

// Config holds all service configuration
type Config struct {
	ServiceName string
	Server      ServerConfig
	Storage     StorageConfig
	MongoDB     MongoDBConfig
	Postgres    PostgresConfig
	Kafka       KafkaConfig
	Outbox      OutboxConfig
	Tracing     TracingConfig
	Log         LogConfig
	Retry       RetryConfig
	Metadata    MetadataConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedProxies  []string
	RequireTenant   bool
}

// StorageConfig selects the store implementation
type StorageConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// PostgresConfig holds PostgreSQL connection settings
type PostgresConfig struct {
	URL         string
	MaxConns    int32
	AutoMigrate bool
}

// KafkaConfig holds event publishing settings
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// OutboxConfig tunes the outbox relay
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Retention    time.Duration
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
}

// LogConfig holds logging settings
type LogConfig struct {
	Level       string
	Environment string
}

// RetryConfig bounds optimistic-concurrency retries
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// MetadataConfig points at an optional JSON schema for order metadata
type MetadataConfig struct {
	Schema string
}

// Load reads configuration. Priority, highest first:
//  1. WMS_* environment variables (WMS_STORAGE_DRIVER, WMS_MONGODB_URI, ...)
//  2. a .env file in the working directory
//  3. config.yaml in . or /etc/warehouse-core
//  4. built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/warehouse-core")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("WMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServiceName: v.GetString("service_name"),
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			TrustedProxies:  v.GetStringSlice("server.trusted_proxies"),
			RequireTenant:   v.GetBool("server.require_tenant"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("storage.driver")),
		},
		MongoDB: MongoDBConfig{
			URI:            v.GetString("mongodb.uri"),
			Database:       v.GetString("mongodb.database"),
			ConnectTimeout: v.GetDuration("mongodb.connect_timeout"),
			MaxPoolSize:    v.GetUint64("mongodb.max_pool_size"),
		},
		Postgres: PostgresConfig{
			URL:         v.GetString("postgres.url"),
			MaxConns:    v.GetInt32("postgres.max_conns"),
			AutoMigrate: v.GetBool("postgres.auto_migrate"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: splitList(v.GetStringSlice("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("outbox.poll_interval"),
			BatchSize:    v.GetInt("outbox.batch_size"),
			Retention:    v.GetDuration("outbox.retention"),
		},
		Tracing: TracingConfig{
			Enabled:      v.GetBool("tracing.enabled"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			SampleRate:   v.GetFloat64("tracing.sample_rate"),
		},
		Log: LogConfig{
			Level:       strings.ToLower(v.GetString("log.level")),
			Environment: v.GetString("log.environment"),
		},
		Retry: RetryConfig{
			MaxAttempts:  v.GetInt("retry.max_attempts"),
			InitialDelay: v.GetDuration("retry.initial_delay"),
			MaxDelay:     v.GetDuration("retry.max_delay"),
		},
		Metadata: MetadataConfig{
			Schema: v.GetString("metadata.schema"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// environment variables deliver lists as one comma separated string
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func applyDefaults(cfg *Config) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "warehouse-core"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverMemory
	}
	if cfg.MongoDB.Database == "" {
		cfg.MongoDB.Database = "warehouse_core"
	}
	if cfg.MongoDB.ConnectTimeout == 0 {
		cfg.MongoDB.ConnectTimeout = 10 * time.Second
	}
	if cfg.MongoDB.MaxPoolSize == 0 {
		cfg.MongoDB.MaxPoolSize = 100
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 20
	}
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "wms.warehouse-core.events"
	}
	if cfg.Outbox.PollInterval == 0 {
		cfg.Outbox.PollInterval = time.Second
	}
	if cfg.Outbox.BatchSize == 0 {
		cfg.Outbox.BatchSize = 100
	}
	if cfg.Outbox.Retention == 0 {
		cfg.Outbox.Retention = 24 * time.Hour
	}
	if cfg.Tracing.OTLPEndpoint == "" {
		cfg.Tracing.OTLPEndpoint = "localhost:4317"
	}
	if cfg.Tracing.SampleRate == 0 {
		cfg.Tracing.SampleRate = 1.0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Environment == "" {
		cfg.Log.Environment = "development"
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 5
	}
	if cfg.Retry.InitialDelay == 0 {
		cfg.Retry.InitialDelay = 10 * time.Millisecond
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 200 * time.Millisecond
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverMemory:
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return fmt.Errorf("mongodb.uri is required when storage.driver is %s", DriverMongoDB)
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres.url is required when storage.driver is %s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown storage driver %q (want memory, mongodb or postgres)", c.Storage.Driver)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka is enabled")
	}
	return nil
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}
