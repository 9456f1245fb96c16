// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig carries connection settings for the Redis-backed stores. An
// empty URL means Redis is not configured and in-memory stores are used.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Config is the full server configuration.
type Config struct {
	Addr        string
	MetricsAddr string
	IssuerURL   string
	// SigningKey signs access and ID tokens and verifies request objects.
	SigningKey string
	LogLevel   string

	Redis       RedisConfig
	PostgresURL string

	KafkaBrokers []string
	AuditTopic   string

	SessionTTL         time.Duration
	ConsentTTL         time.Duration
	PARRequestTTL      time.Duration
	DeviceCodeTTL      time.Duration
	DevicePollInterval time.Duration
	CIBARequestTTL     time.Duration
	CIBAMaxTTL         time.Duration
	CIBAPollInterval   time.Duration

	// DeviceVerificationURI is the absolute URL users are told to visit.
	DeviceVerificationURI string
}

// FromEnv reads configuration from environment variables, with development
// defaults for everything but the signing key in production.
func FromEnv() Config {
	cfg := Config{
		Addr:        envOr("AUTHGATE_ADDR", ":8080"),
		MetricsAddr: envOr("AUTHGATE_METRICS_ADDR", ":9090"),
		IssuerURL:   envOr("AUTHGATE_ISSUER_URL", "http://localhost:8080"),
		SigningKey:  envOr("AUTHGATE_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LogLevel:    envOr("AUTHGATE_LOG_LEVEL", "info"),

		Redis: RedisConfig{
			URL:          os.Getenv("AUTHGATE_REDIS_URL"),
			PoolSize:     envInt("AUTHGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("AUTHGATE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("AUTHGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("AUTHGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("AUTHGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		PostgresURL: os.Getenv("AUTHGATE_POSTGRES_URL"),

		AuditTopic: envOr("AUTHGATE_AUDIT_TOPIC", "authgate.audit"),

		SessionTTL:         envDuration("AUTHGATE_SESSION_TTL", 24*time.Hour),
		ConsentTTL:         envDuration("AUTHGATE_CONSENT_TTL", 0),
		PARRequestTTL:      envDuration("AUTHGATE_PAR_TTL", 90*time.Second),
		DeviceCodeTTL:      envDuration("AUTHGATE_DEVICE_CODE_TTL", 10*time.Minute),
		DevicePollInterval: envDuration("AUTHGATE_DEVICE_POLL_INTERVAL", 5*time.Second),
		CIBARequestTTL:     envDuration("AUTHGATE_CIBA_TTL", 2*time.Minute),
		CIBAMaxTTL:         envDuration("AUTHGATE_CIBA_MAX_TTL", 10*time.Minute),
		CIBAPollInterval:   envDuration("AUTHGATE_CIBA_POLL_INTERVAL", 5*time.Second),
	}
	cfg.DeviceVerificationURI = envOr("AUTHGATE_DEVICE_VERIFICATION_URI", cfg.IssuerURL+"/device")
	if brokers := os.Getenv("AUTHGATE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
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
