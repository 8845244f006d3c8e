// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinHMACSecretLen is the minimum accepted length of HMAC_SECRET in bytes.
const MinHMACSecretLen = 32

// MaxRequestTimeout caps REQUEST_TIMEOUT at the OTP cooldown window.
const MaxRequestTimeout = 60 * time.Second

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server (health, receipt verification) listens on.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// HMACSecret signs receipts and keys OTP digests. Required.
	HMACSecret string `mapstructure:"HMAC_SECRET"`
	// CreatorJWTSecret is the HS256 key for creator bearer tokens.
	CreatorJWTSecret string `mapstructure:"CREATOR_JWT_SECRET"`
	// CreatorJWTIssuer is checked against the iss claim when set.
	CreatorJWTIssuer string `mapstructure:"CREATOR_JWT_ISSUER"`
	// FrontendURL prefixes signer links (FRONTEND_URL/sign/<token>).
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	SendGridAPIKey    string `mapstructure:"SENDGRID_API_KEY"`
	SendGridFromEmail string `mapstructure:"SENDGRID_FROM_EMAIL"`
	SendGridBaseURL   string `mapstructure:"SENDGRID_BASE_URL"`

	// OTPReturnToClient when true enables dev OTP mode: no email, code stored for GET /dev/otp. Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`
	// Env is the application environment (e.g. "development", "production").
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// RequestTimeout bounds each HTTP request; at most MaxRequestTimeout.
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses. When set, lifecycle events are published.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsTopic is the Kafka topic for lifecycle events.
	EventsTopic string `mapstructure:"AGREEMENT_EVENTS_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("HMAC_SECRET", "")
	v.SetDefault("CREATOR_JWT_SECRET", "")
	v.SetDefault("CREATOR_JWT_ISSUER", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SENDGRID_FROM_EMAIL", "noreply@handshake.app")
	v.SetDefault("SENDGRID_BASE_URL", "")
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AGREEMENT_EVENTS_TOPIC", "handshake-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "handshake-event-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if strings.TrimSpace(c.HMACSecret) == "" {
		return errors.New("config: HMAC_SECRET must be set")
	}
	if strings.TrimSpace(c.HMACSecret) != c.HMACSecret {
		return errors.New("config: HMAC_SECRET must not have surrounding whitespace")
	}
	if len(c.HMACSecret) < MinHMACSecretLen {
		return fmt.Errorf("config: HMAC_SECRET must be at least %d bytes", MinHMACSecretLen)
	}
	if c.OTPReturnToClient && c.IsProduction() {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.DatabaseURL == "" && c.IsProduction() {
		return errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}
	if c.RequestTimeout <= 0 || c.RequestTimeout > MaxRequestTimeout {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be in (0, %s]", MaxRequestTimeout)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// CORSOriginsList returns the allowed CORS origins.
func (c *Config) CORSOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSOrigins)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
