// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Service       ServiceConfig
	Schemas       SchemasConfig
	Kafka         KafkaConfig
	Validation    ValidationConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds service identity and listener settings.
type ServiceConfig struct {
	Principal   string
	GRPCPort    string
	HTTPPort    string
	MetricsAddr string
}

// Schema source kinds.
const (
	SourceFiles  = "files"
	SourceSQLite = "sqlite"
)

// SchemasConfig selects where schema documents come from.
type SchemasConfig struct {
	Source string // files or sqlite
	Dir    string
	Watch  bool
	DBPath string
}

// KafkaConfig holds the event bus settings.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	TopicInput   string
	TopicValid   string
	TopicInvalid string
	GroupID      string
	Principal    string
}

// ValidationConfig holds consumer worker settings.
type ValidationConfig struct {
	Workers int
	Timeout time.Duration
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. Unparseable values fall
// back to their defaults.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-event-validator")

	return &Config{
		Service: ServiceConfig{
			Principal:   principal,
			GRPCPort:    envOrDefault("GRPC_PORT", "50051"),
			HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Schemas: SchemasConfig{
			Source: envOrDefault("SCHEMA_SOURCE", SourceFiles),
			Dir:    envOrDefault("SCHEMA_DIR", "./schemas"),
			Watch:  envOrDefaultBool("SCHEMA_WATCH", true),
			DBPath: envOrDefault("SCHEMA_DB_PATH", "./schemas.sqlite"),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      envOrDefaultList("KAFKA_BROKERS", []string{"localhost:9092"}),
			TopicInput:   envOrDefault("KAFKA_TOPIC_INPUT", "events.requested"),
			TopicValid:   envOrDefault("KAFKA_TOPIC_VALID", "events.validated"),
			TopicInvalid: envOrDefault("KAFKA_TOPIC_INVALID", "events.rejected"),
			GroupID:      envOrDefault("KAFKA_GROUP_ID", "event-validator"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Validation: ValidationConfig{
			Workers: envOrDefaultInt("VALIDATION_WORKERS", 4),
			Timeout: envOrDefaultDuration("VALIDATION_TIMEOUT", 5*time.Second),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList reads a comma-separated list, dropping empty items.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
