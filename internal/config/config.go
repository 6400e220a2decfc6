// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// CSRFToken is the anti-forgery token sent as X-CSRFToken on every API call.
	CSRFToken string `mapstructure:"CSRF_TOKEN"`
	// OTPEndpoint is the base URL for issuing (POST) and verifying (PUT {otp_id}/) OTPs.
	OTPEndpoint string `mapstructure:"OTP_ENDPOINT"`
	// UserDetailsEndpoint is the base URL for PUT {user_id}/ detail submission.
	UserDetailsEndpoint string `mapstructure:"USER_DETAILS_ENDPOINT"`

	SellerLandingURL string `mapstructure:"SELLER_LANDING_URL"`
	BuyerLandingURL  string `mapstructure:"BUYER_LANDING_URL"`
	HomeURL          string `mapstructure:"HOME_URL"`

	// ResendCountdownSeconds is where the resend countdown starts (default 30).
	ResendCountdownSeconds int `mapstructure:"RESEND_COUNTDOWN_SECONDS"`
	// RedirectDelayRaw is the pause before redirecting (e.g. "1500ms").
	RedirectDelayRaw string `mapstructure:"REDIRECT_DELAY"`
	// HTTPTimeoutRaw is the API client timeout (e.g. "15s").
	HTTPTimeoutRaw string `mapstructure:"HTTP_TIMEOUT"`
	// OTPPrefill allows filling the OTP input when the server returns the code. Must not be true
	// when Env is production (Load fails).
	OTPPrefill bool `mapstructure:"OTP_PREFILL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// StorageDriver selects the client-side store: memory, postgres or redis.
	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required for the postgres driver.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is host:port; required for the redis driver.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// StorageNamespace scopes stored keys to one device. Empty means the host generates one.
	StorageNamespace string `mapstructure:"STORAGE_NAMESPACE"`

	// ApprovalPolicyFile is an optional Rego module replacing the built-in approval policy.
	ApprovalPolicyFile string `mapstructure:"APPROVAL_POLICY_FILE"`

	// Telemetry (optional).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// FlowEventsTopic is the Kafka topic for flow events (default onboarding-flow-events).
	FlowEventsTopic string `mapstructure:"FLOW_EVENTS_TOPIC"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	}

	v.AutomaticEnv()

	v.SetDefault("CSRF_TOKEN", "")
	v.SetDefault("OTP_ENDPOINT", "")
	v.SetDefault("USER_DETAILS_ENDPOINT", "")
	v.SetDefault("SELLER_LANDING_URL", "/seller/profile/")
	v.SetDefault("BUYER_LANDING_URL", "/buyer/profile/")
	v.SetDefault("HOME_URL", "/")
	v.SetDefault("RESEND_COUNTDOWN_SECONDS", 30)
	v.SetDefault("REDIRECT_DELAY", "1500ms")
	v.SetDefault("HTTP_TIMEOUT", "15s")
	v.SetDefault("OTP_PREFILL", true)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("STORAGE_DRIVER", StorageMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("STORAGE_NAMESPACE", "")
	v.SetDefault("APPROVAL_POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("FLOW_EVENTS_TOPIC", "onboarding-flow-events")
	v.SetDefault("LOG_LEVEL", "info")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabaseURL reads only DATABASE_URL from .env and the environment. Used by tools that do
// not run the onboarding flow (e.g. cmd/migrate).
func LoadDatabaseURL() string {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	v.AutomaticEnv()
	v.SetDefault("DATABASE_URL", "")
	return v.GetString("DATABASE_URL")
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.CSRFToken) == "" {
		return errors.New("config: CSRF_TOKEN must be set")
	}
	for name, raw := range map[string]string{
		"OTP_ENDPOINT":          c.OTPEndpoint,
		"USER_DETAILS_ENDPOINT": c.UserDetailsEndpoint,
	} {
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("config: %s must be set", name)
		}
		if _, err := url.Parse(raw); err != nil {
			return fmt.Errorf("config: %s is not a valid URL: %w", name, err)
		}
	}

	if c.OTPPrefill && c.Env == "production" {
		return errors.New("config: OTP_PREFILL must not be true when APP_ENV=production")
	}

	if c.ResendCountdownSeconds == 0 {
		c.ResendCountdownSeconds = 30
	}
	if c.ResendCountdownSeconds < 0 {
		return errors.New("config: RESEND_COUNTDOWN_SECONDS must be positive")
	}

	switch c.StorageDriver {
	case "":
		c.StorageDriver = StorageMemory
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORAGE_DRIVER=postgres")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when STORAGE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return nil
}

// RedirectDelay parses RedirectDelayRaw. Returns 1500ms if unset or invalid; zero is allowed.
func (c *Config) RedirectDelay() time.Duration {
	d, err := time.ParseDuration(c.RedirectDelayRaw)
	if err != nil || d < 0 {
		return 1500 * time.Millisecond
	}
	return d
}

// HTTPTimeout parses HTTPTimeoutRaw. Returns 15s if unset or invalid.
func (c *Config) HTTPTimeout() time.Duration {
	d, err := time.ParseDuration(c.HTTPTimeoutRaw)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// LoggerLevel returns the zap level for LogLevel, info when invalid.
func (c *Config) LoggerLevel() zapcore.Level {
	l, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka producer is enabled (non-empty list).
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
