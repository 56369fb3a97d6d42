package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Module provides application configuration.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Provide(func(cfg Config) BillingConfig { return cfg.Billing }),
	fx.Provide(func(cfg Config) SchedulerConfig { return cfg.Scheduler }),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	DBType        string
	DBHost        string
	DBPort        string
	DBName        string
	DBUser        string
	DBPassword    string
	DBSSLMode     string
	DBMaxIdleConn int
	DBMaxOpenConn int

	Billing   BillingConfig
	Scheduler SchedulerConfig
}

// SchedulerConfig controls the lifecycle sweep loop.
type SchedulerConfig struct {
	// Interval between sweep rounds.
	Interval time.Duration
	// BatchSize caps how many subscriptions one sweep round touches.
	BatchSize int
}

// BillingConfig holds subscription lifecycle policy knobs.
type BillingConfig struct {
	// GraceDays is how long a past-due subscription may settle before suspension.
	GraceDays int
	// RoundingTolerance is the maximum overpayment, in minor units, absorbed
	// into an invoice instead of being booked as credit.
	RoundingTolerance int64
	// ProrationRounding selects the rounding rule for prorated amounts.
	// Supported: "half_up" (default), "down".
	ProrationRounding string
	// ConflictRetries bounds transparent retries on optimistic-lock conflicts.
	ConflictRetries int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "velo"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		DBType:        getenv("DATABASE_TYPE", "postgres"),
		DBHost:        getenv("DATABASE_HOST", "localhost"),
		DBPort:        getenv("DATABASE_PORT", "5432"),
		DBName:        getenv("DATABASE_NAME", "velo"),
		DBUser:        getenv("DATABASE_USER", "postgres"),
		DBPassword:    getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:     getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn: getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn: getenvInt("DATABASE_MAX_OPEN_CONN", 25),

		Billing: BillingConfig{
			GraceDays:         getenvInt("BILLING_GRACE_DAYS", 5),
			RoundingTolerance: getenvInt64("BILLING_ROUNDING_TOLERANCE", 50),
			ProrationRounding: strings.ToLower(getenv("BILLING_PRORATION_ROUNDING", "half_up")),
			ConflictRetries:   getenvInt("BILLING_CONFLICT_RETRIES", 3),
		},
		Scheduler: SchedulerConfig{
			Interval:  time.Duration(getenvInt("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
			BatchSize: getenvInt("SCHEDULER_BATCH_SIZE", 100),
		},
	}

	return cfg
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
