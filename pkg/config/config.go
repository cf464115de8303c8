package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payments PaymentsConfig
	Booking  BookingConfig
	Payout   PayoutConfig
	Cache    CacheConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host     string
	Port     int
	Env      string
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// PaymentsConfig holds payment provider configuration
type PaymentsConfig struct {
	StripeAPIKey        string
	WebhookSecret       string
	WebhookToleranceSec int
	Currency            string
	AllowMockFallback   bool
}

// BookingConfig holds booking-rule defaults applied when a provider has no
// availability row configured
type BookingConfig struct {
	DefaultSlotMinutes    int
	DefaultAdvanceDaysMax int
	DefaultMinHoursAhead  int
	DefaultCommissionPct  float64
}

// PayoutConfig holds payout sweep configuration
type PayoutConfig struct {
	SweepInterval         time.Duration
	DelayAfterAppointment time.Duration
}

// CacheConfig holds read-path cache windows
type CacheConfig struct {
	FreshTTL time.Duration
	StaleTTL time.Duration
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "booking_core"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Payments: PaymentsConfig{
			StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
			WebhookSecret:       getEnv("STRIPE_WEBHOOK_SECRET", ""),
			WebhookToleranceSec: getEnvAsInt("STRIPE_WEBHOOK_TOLERANCE_SEC", 300),
			Currency:            getEnv("PAYMENTS_CURRENCY", "usd"),
			AllowMockFallback:   getEnvAsBool("PAYMENTS_ALLOW_MOCK", true),
		},
		Booking: BookingConfig{
			DefaultSlotMinutes:    getEnvAsInt("BOOKING_DEFAULT_SLOT_MINUTES", 30),
			DefaultAdvanceDaysMax: getEnvAsInt("BOOKING_ADVANCE_DAYS_MAX", 30),
			DefaultMinHoursAhead:  getEnvAsInt("BOOKING_MIN_HOURS_AHEAD", 1),
			DefaultCommissionPct:  getEnvAsFloat("PLATFORM_COMMISSION_PCT", 5.0),
		},
		Payout: PayoutConfig{
			SweepInterval:         getEnvAsDuration("PAYOUT_SWEEP_INTERVAL", 5*time.Minute),
			DelayAfterAppointment: getEnvAsDuration("PAYOUT_DELAY_AFTER_APPOINTMENT", 2*time.Hour),
		},
		Cache: CacheConfig{
			FreshTTL: getEnvAsDuration("CACHE_FRESH_TTL", time.Minute),
			StaleTTL: getEnvAsDuration("CACHE_STALE_TTL", 10*time.Minute),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "booking-core"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
