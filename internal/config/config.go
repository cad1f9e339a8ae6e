// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Authorization engines accepted by AUTHZ_ENGINE.
const (
	AuthzEngineBuiltin = "builtin"
	AuthzEngineOPA     = "opa"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// AutoPauseAfterDays is the number of days without a session stamp after which a membership is reported inactive.
	AutoPauseAfterDays int `mapstructure:"AUTO_PAUSE_AFTER_DAYS"`
	// StoreTimeout bounds every single store round trip (e.g. "5s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`
	// AuthzEngine selects the admin predicate implementation: "builtin" or "opa".
	AuthzEngine string `mapstructure:"AUTHZ_ENGINE"`
	// AuthzPolicyFile is an optional Rego module replacing the built-in admin policy when AuthzEngine is "opa".
	AuthzPolicyFile string `mapstructure:"AUTHZ_POLICY_FILE"`

	// IdentityHeader carries the email verified by the upstream identity provider.
	IdentityHeader string `mapstructure:"IDENTITY_HEADER"`
	// DevEmailFallback accepts ?email= (and a JSON email on stamp) when the identity header is absent.
	// Must not be true when Env is production.
	DevEmailFallback bool `mapstructure:"DEV_EMAIL_FALLBACK"`
	// ActiveSlugCookie is the cookie echoed back as the active slug hint.
	ActiveSlugCookie string `mapstructure:"ACTIVE_SLUG_COOKIE"`

	// Telemetry (optional). When Kafka brokers are set, membership and request events are written to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
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
	v.SetDefault("APP_ENV", "")
	v.SetDefault("AUTO_PAUSE_AFTER_DAYS", 90)
	v.SetDefault("STORE_TIMEOUT", "5s")
	v.SetDefault("AUTHZ_ENGINE", AuthzEngineBuiltin)
	v.SetDefault("AUTHZ_POLICY_FILE", "")
	v.SetDefault("IDENTITY_HEADER", "cf-access-authenticated-user-email")
	v.SetDefault("DEV_EMAIL_FALLBACK", false)
	v.SetDefault("ACTIVE_SLUG_COOKIE", "_portal_active_slug")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "portal-telemetry")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "slug-portal")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "portal-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.AutoPauseAfterDays < 1 {
		return nil, errors.New("config: AUTO_PAUSE_AFTER_DAYS must be at least 1")
	}
	cfg.AuthzEngine = strings.ToLower(strings.TrimSpace(cfg.AuthzEngine))
	if cfg.AuthzEngine != AuthzEngineBuiltin && cfg.AuthzEngine != AuthzEngineOPA {
		return nil, errors.New("config: AUTHZ_ENGINE must be builtin or opa")
	}
	if strings.TrimSpace(cfg.IdentityHeader) == "" {
		return nil, errors.New("config: IDENTITY_HEADER must be set")
	}
	if cfg.DevEmailFallback && cfg.Env == "production" {
		return nil, errors.New("config: DEV_EMAIL_FALLBACK must not be true when APP_ENV=production")
	}

	return &cfg, nil
}

// StoreTimeoutDuration parses StoreTimeout as a time.Duration. Returns 5s if unset or invalid.
func (c *Config) StoreTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
