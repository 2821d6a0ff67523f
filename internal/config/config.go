package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	LogLevel    string

	// Delivery is evaluated in one fixed civil time zone regardless of
	// where the server runs.
	DeliveryTimezone string
	CutoffHour       int

	PricingCacheTTL time.Duration

	OverdueThresholdDays int

	ReconcilerInterval  time.Duration
	ReconcilerBatchSize int

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "milkrun"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DeliveryTimezone: getenv("DELIVERY_TIMEZONE", "Asia/Kolkata"),
		CutoffHour:       getenvInt("DELIVERY_CUTOFF_HOUR", 19),

		PricingCacheTTL: getenvDuration("PRICING_CACHE_TTL", 5*time.Minute),

		OverdueThresholdDays: getenvInt("BOTTLE_OVERDUE_THRESHOLD_DAYS", 7),

		ReconcilerInterval:  getenvDuration("RECONCILER_INTERVAL", time.Minute),
		ReconcilerBatchSize: getenvInt("RECONCILER_BATCH_SIZE", 50),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "milkrun"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
