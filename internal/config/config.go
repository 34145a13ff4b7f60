package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultJWTSecret           = "change-me-jwt-secret"
	defaultReservationHashKey  = "change-me-reservation-hash-key-0123456789"
	defaultReservationBlockKey = "change-me-reservation-blockkey32"
)

// Config is the runtime configuration, read from the environment and an
// optional config.yaml.
type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	Location string `mapstructure:"APP_LOCATION"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	ReservationHashKey  string        `mapstructure:"RESERVATION_HASH_KEY"`
	ReservationBlockKey string        `mapstructure:"RESERVATION_BLOCK_KEY"`
	ReservationWindow   time.Duration `mapstructure:"RESERVATION_WINDOW"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	NotifyWebhookURL string        `mapstructure:"NOTIFY_WEBHOOK_URL"`
	NotifyTimeout    time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	NotifyRetries    int           `mapstructure:"NOTIFY_RETRIES"`
	NotifyQueueSize  int           `mapstructure:"NOTIFY_QUEUE_SIZE"`

	PaymentDeclineRate float64       `mapstructure:"PAYMENT_DECLINE_RATE"`
	PaymentLatency     time.Duration `mapstructure:"PAYMENT_LATENCY"`
	PaymentTimeout     time.Duration `mapstructure:"PAYMENT_TIMEOUT"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMin    int    `mapstructure:"RATE_LIMIT_PER_MIN"`
}

// Load reads configuration. Environment variables win over config.yaml,
// which wins over defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_LOCATION", "Local")
	v.SetDefault("DATABASE_URL", "pcbooking.db")
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RESERVATION_HASH_KEY", defaultReservationHashKey)
	v.SetDefault("RESERVATION_BLOCK_KEY", defaultReservationBlockKey)
	v.SetDefault("RESERVATION_WINDOW", "600s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "booking.confirmed")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_RETRIES", 2)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("PAYMENT_DECLINE_RATE", 0.1)
	v.SetDefault("PAYMENT_LATENCY", "2s")
	v.SetDefault("PAYMENT_TIMEOUT", "15s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.ReservationWindow <= 0 {
		return fmt.Errorf("RESERVATION_WINDOW must be > 0")
	}
	if cfg.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.PaymentDeclineRate < 0 || cfg.PaymentDeclineRate > 1 {
		return fmt.Errorf("PAYMENT_DECLINE_RATE must be within [0, 1]")
	}
	if cfg.NotifyRetries < 0 || cfg.NotifyRetries > 2 {
		return fmt.Errorf("NOTIFY_RETRIES must be within [0, 2]")
	}
	if cfg.NotifyQueueSize <= 0 {
		return fmt.Errorf("NOTIFY_QUEUE_SIZE must be > 0")
	}
	if len(cfg.ReservationHashKey) < 32 {
		return fmt.Errorf("RESERVATION_HASH_KEY must be at least 32 bytes")
	}
	switch len(cfg.ReservationBlockKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("RESERVATION_BLOCK_KEY must be 16, 24 or 32 bytes")
	}
	if _, err := time.LoadLocation(cfg.Location); err != nil {
		return fmt.Errorf("invalid APP_LOCATION %q: %w", cfg.Location, err)
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.ReservationHashKey, defaultReservationHashKey) {
			return fmt.Errorf("in prod/release RESERVATION_HASH_KEY must be set and not default")
		}
		if isEmptyOrDefault(cfg.ReservationBlockKey, defaultReservationBlockKey) {
			return fmt.Errorf("in prod/release RESERVATION_BLOCK_KEY must be set and not default")
		}
	} else if strings.TrimSpace(cfg.JWTSecret) == "" {
		cfg.JWTSecret = defaultJWTSecret
	}

	return nil
}

// LoadLocation resolves APP_LOCATION, which validateConfig already checked.
func (c *Config) LoadLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.Local
	}
	return loc
}

// Brokers splits KAFKA_BROKERS; empty means Kafka is disabled.
func (c *Config) Brokers() []string {
	return splitCSV(c.KafkaBrokers)
}

func (c *Config) AllowedOrigins() []string {
	return splitCSV(c.CORSAllowedOrigins)
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
