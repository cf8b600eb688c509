// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN for the durable store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the coordination store address (host:port). Empty selects the in-process store (dev only).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the coordination store password; empty for none.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the coordination store logical database index.
	RedisDB int `mapstructure:"REDIS_DB"`
	// KeyPrefix namespaces every coordination-store key (e.g. "locker").
	KeyPrefix string `mapstructure:"KEY_PREFIX"`
	// MQTTBrokerURL is the device channel broker (e.g. tcp://localhost:1883). Empty disables device dispatch.
	MQTTBrokerURL string `mapstructure:"MQTT_BROKER_URL"`
	// MQTTClientID is the MQTT client identifier prefix.
	MQTTClientID string `mapstructure:"MQTT_CLIENT_ID"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTKeyID is the key identifier stamped into token headers for rotation (e.g. "2025-09").
	JWTKeyID string `mapstructure:"JWT_KEY_ID"`
	// JWTIssuer is the iss claim (e.g. "locker-core").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// UnlockTokenTTL is the unlock capability token lifetime (e.g. "60s"). Must not exceed 60s.
	UnlockTokenTTL string `mapstructure:"UNLOCK_TOKEN_TTL"`
	// SessionTTL is the staff/courier session token lifetime (e.g. "12h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// ClockSkew is the verification leeway for time claims (e.g. "10s").
	ClockSkew string `mapstructure:"CLOCK_SKEW"`
	// ReservationTTL is the slot reservation lease duration (e.g. "5m").
	ReservationTTL string `mapstructure:"RESERVATION_TTL"`
	// CollectionWindow is how long an open slot waits before resetting to empty (e.g. "90s").
	CollectionWindow string `mapstructure:"COLLECTION_WINDOW"`
	// UnlockRateLimit is the max unlock requests per courier per window.
	UnlockRateLimit int `mapstructure:"UNLOCK_RATE_LIMIT"`
	// UnlockRateWindow is the sliding rate-limit window (e.g. "1m").
	UnlockRateWindow string `mapstructure:"UNLOCK_RATE_WINDOW"`
	// StepUpTTL is the emergency-override OTP validity window (e.g. "2m").
	StepUpTTL string `mapstructure:"STEP_UP_TTL"`
	// MagicLinkTTL is the courier magic-link validity window (e.g. "15m").
	MagicLinkTTL string `mapstructure:"MAGIC_LINK_TTL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// AuditRetentionDays is how long security events are kept before the retention sweep removes them.
	AuditRetentionDays int `mapstructure:"AUDIT_RETENTION_DAYS"`

	// Audit stream (optional). When Kafka brokers are set, security events are mirrored to Kafka.
	// AuditKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	AuditKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the Kafka topic for security events (default locker-security-events).
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// SMSAPIKey is the API key for the step-up OTP SMS provider.
	SMSAPIKey string `mapstructure:"SMS_API_KEY"`
	// SMSSender is the optional sender ID for step-up OTP SMS.
	SMSSender string `mapstructure:"SMS_SENDER"`
	// SMSBaseURL is the SMS provider API base URL.
	SMSBaseURL string `mapstructure:"SMS_BASE_URL"`

	// TenantIDs is a comma-separated list of tenants the background sweeps cover.
	TenantIDs string `mapstructure:"TENANT_IDS"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KEY_PREFIX", "locker")
	v.SetDefault("MQTT_BROKER_URL", "")
	v.SetDefault("MQTT_CLIENT_ID", "locker-core")
	v.SetDefault("JWT_KEY_ID", "dev")
	v.SetDefault("JWT_ISSUER", "locker-core")
	v.SetDefault("UNLOCK_TOKEN_TTL", "60s")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("CLOCK_SKEW", "10s")
	v.SetDefault("RESERVATION_TTL", "5m")
	v.SetDefault("COLLECTION_WINDOW", "90s")
	v.SetDefault("UNLOCK_RATE_LIMIT", 5)
	v.SetDefault("UNLOCK_RATE_WINDOW", "1m")
	v.SetDefault("STEP_UP_TTL", "2m")
	v.SetDefault("MAGIC_LINK_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("AUDIT_RETENTION_DAYS", 90)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "locker-security-events")
	v.SetDefault("SMS_BASE_URL", "")
	v.SetDefault("TENANT_IDS", "")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.KeyPrefix == "" {
		return nil, errors.New("config: KEY_PREFIX must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.UnlockTTL() > 60*time.Second {
		return nil, errors.New("config: UNLOCK_TOKEN_TTL must not exceed 60s")
	}
	if cfg.AuditRetentionDays <= 0 {
		return nil, errors.New("config: AUDIT_RETENTION_DAYS must be positive")
	}

	return &cfg, nil
}

// UnlockTTL parses UnlockTokenTTL as a time.Duration. Returns 60s if unset or invalid.
func (c *Config) UnlockTTL() time.Duration {
	return duration(c.UnlockTokenTTL, 60*time.Second)
}

// SessionTokenTTL parses SessionTTL as a time.Duration. Returns 12h if unset or invalid.
func (c *Config) SessionTokenTTL() time.Duration {
	return duration(c.SessionTTL, 12*time.Hour)
}

// Skew parses ClockSkew as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) Skew() time.Duration {
	return duration(c.ClockSkew, 10*time.Second)
}

// ReservationLease parses ReservationTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) ReservationLease() time.Duration {
	return duration(c.ReservationTTL, 5*time.Minute)
}

// Collection parses CollectionWindow. Returns 90s if unset or invalid.
func (c *Config) Collection() time.Duration {
	return duration(c.CollectionWindow, 90*time.Second)
}

// RateWindow parses UnlockRateWindow. Returns 1m if unset or invalid.
func (c *Config) RateWindow() time.Duration {
	return duration(c.UnlockRateWindow, time.Minute)
}

// StepUpWindow parses StepUpTTL. Returns 2m if unset or invalid.
func (c *Config) StepUpWindow() time.Duration {
	return duration(c.StepUpTTL, 2*time.Minute)
}

// MagicLinkWindow parses MagicLinkTTL. Returns 15m if unset or invalid.
func (c *Config) MagicLinkWindow() time.Duration {
	return duration(c.MagicLinkTTL, 15*time.Minute)
}

func duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// TenantList returns the tenant ids from the comma-separated config.
func (c *Config) TenantList() []string {
	if c == nil || c.TenantIDs == "" {
		return nil
	}
	parts := strings.Split(c.TenantIDs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AuditKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the audit stream is enabled (non-empty list) and to create the producer.
func (c *Config) AuditKafkaBrokersList() []string {
	if c == nil || c.AuditKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuditKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
