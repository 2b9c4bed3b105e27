package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration for the checklist engine.
// FromEnv keeps main lean; every knob has a development-safe default.
type Server struct {
	Addr          string
	JWTSigningKey string
	AdminKeyHash  string

	Postgres   PostgresConfig
	Redis      RedisConfig
	Enrichment EnrichmentConfig
	Generation GenerationConfig
	Kafka      KafkaConfig

	BackendURL string
}

// PostgresConfig configures the rules and checklist stores. An empty URL
// selects the in-memory stores.
type PostgresConfig struct {
	URL string
}

// RedisConfig configures the distributed generation lock. An empty URL selects
// the in-process lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// EnrichmentConfig bounds the external model call.
type EnrichmentConfig struct {
	Endpoint  string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// GenerationConfig holds the coordinator's tunables.
type GenerationConfig struct {
	MinItems        int
	MaxItems        int
	LockTimeout     time.Duration
	InfraRetries    int
	InfraBackoff    time.Duration
	GenerateTimeout time.Duration
}

// KafkaConfig configures the lifecycle event publisher. Empty brokers disable
// publishing.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("VISADESK_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminKeyHash:  os.Getenv("ADMIN_KEY_HASH"),
		Postgres: PostgresConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Enrichment: EnrichmentConfig{
			Endpoint:  envOr("ENRICHMENT_ENDPOINT", "http://localhost:8090/v1/structured"),
			APIKey:    os.Getenv("ENRICHMENT_API_KEY"),
			Model:     envOr("ENRICHMENT_MODEL", "gpt-4o-mini"),
			Timeout:   envDuration("ENRICHMENT_TIMEOUT", 45*time.Second),
			MaxTokens: envInt("ENRICHMENT_MAX_TOKENS", 2000),
		},
		Generation: GenerationConfig{
			MinItems:        envInt("CHECKLIST_MIN_ITEMS", 8),
			MaxItems:        envInt("CHECKLIST_MAX_ITEMS", 16),
			LockTimeout:     envDuration("GENERATION_LOCK_TIMEOUT", 2*time.Second),
			InfraRetries:    envInt("GENERATION_INFRA_RETRIES", 3),
			InfraBackoff:    envDuration("GENERATION_INFRA_BACKOFF", 200*time.Millisecond),
			GenerateTimeout: envDuration("GENERATION_TIMEOUT", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "visadesk.checklist.events"),
		},
		BackendURL: envOr("BACKEND_URL", "http://localhost:3000"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
