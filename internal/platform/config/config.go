package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	strutil "glint/pkg/platform/strings"
)

// Config captures everything the engine reads from the environment so main
// stays lean.
type Config struct {
	Addr        string
	DatabaseURL string

	// OperatorTokenHash is the bcrypt hash of the shared operator token used
	// by compliance tooling. The raw token is never configured server-side.
	OperatorTokenHash string

	// JWTSigningKey verifies operator JWTs on the read-only audit API.
	JWTSigningKey string

	Redis     RedisConfig
	Kafka     KafkaConfig
	Retention RetentionConfig
}

// RedisConfig configures the shared Redis client used for the purge run lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox publisher. Empty brokers disable
// publishing (outbox rows accumulate until a publisher drains them).
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RetentionConfig carries the per-category retention settings and the purge
// job knobs. Day values of zero disable purging for that category.
type RetentionConfig struct {
	ApplicationLogDays int
	AnalyticsEventDays int
	SoftDeletedDays    int
	AuditLogDays       int

	DryRun       bool
	Schedule     string // cron expression for the purge cadence
	BatchSize    int
	MaxAttempts  int
	BatchTimeout time.Duration
	LockTTL      time.Duration
}

// FromEnv builds the engine configuration from environment variables.
func FromEnv() Config {
	return Config{
		Addr:              envOr("GLINT_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("GLINT_DATABASE_URL"),
		OperatorTokenHash: os.Getenv("GLINT_OPERATOR_TOKEN_HASH"),
		JWTSigningKey:     envOr("GLINT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("GLINT_REDIS_URL"),
			PoolSize:     envInt("GLINT_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("GLINT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("GLINT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("GLINT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("GLINT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: strutil.DedupeAndTrim(strings.Split(os.Getenv("GLINT_KAFKA_BROKERS"), ",")),
			Topic:   envOr("GLINT_KAFKA_AUDIT_TOPIC", "glint.audit.compliance"),
		},
		Retention: RetentionConfig{
			ApplicationLogDays: envInt("retention_application_log_days", 90),
			AnalyticsEventDays: envInt("retention_analytics_event_days", 180),
			SoftDeletedDays:    envInt("retention_soft_deleted_days", 30),
			AuditLogDays:       envInt("retention_audit_log_days", 2555),
			DryRun:             os.Getenv("audit_retention_dry_run") == "true",
			Schedule:           envOr("GLINT_PURGE_SCHEDULE", "0 3 * * *"),
			BatchSize:          envInt("GLINT_PURGE_BATCH_SIZE", 500),
			MaxAttempts:        envInt("GLINT_PURGE_MAX_ATTEMPTS", 3),
			BatchTimeout:       envDuration("GLINT_PURGE_BATCH_TIMEOUT", 30*time.Second),
			LockTTL:            envDuration("GLINT_PURGE_LOCK_TTL", time.Hour),
		},
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
