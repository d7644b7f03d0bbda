package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port     string
	DBConn   string
	LogLevel string

	JWTSecret string

	// Rent engine
	EngineSchedule        string
	Location              *time.Location
	DefaultDailyLateFee   decimal.Decimal
	HistoricalOverdueDays int
	Workers               int
	StoreTimeout          time.Duration
	RunTimeout            time.Duration
	RunLockTTL            time.Duration
	ReconcileProcedure    string

	// Run reports
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	ReportEmail  string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBConn:             getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=fleet sslmode=disable"),
		LogLevel:           getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		EngineSchedule:     getEnv("ENGINE_SCHEDULE", "0 2 * * *"),
		ReconcileProcedure: getEnv("RECONCILE_PROCEDURE", "generate_missing_payment_records"),
		SMTPHost:           getEnv("SMTP_HOST", "localhost"),
		SMTPPort:           getEnv("SMTP_PORT", "25"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SenderEmail:        getEnv("SENDER_EMAIL", "billing@localhost"),
		ReportEmail:        getEnv("REPORT_EMAIL", ""),
	}

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.EngineSchedule == "" {
		return nil, fmt.Errorf("ENGINE_SCHEDULE is required")
	}

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Location = loc

	fee, err := decimal.NewFromString(getEnv("DEFAULT_DAILY_LATE_FEE", "120"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_DAILY_LATE_FEE: %w", err)
	}
	if !fee.IsPositive() {
		return nil, fmt.Errorf("DEFAULT_DAILY_LATE_FEE must be positive")
	}
	cfg.DefaultDailyLateFee = fee

	if cfg.HistoricalOverdueDays, err = getEnvInt("HISTORICAL_OVERDUE_DAYS", 30); err != nil {
		return nil, err
	}
	if cfg.HistoricalOverdueDays <= 0 {
		return nil, fmt.Errorf("HISTORICAL_OVERDUE_DAYS must be positive")
	}
	if cfg.Workers, err = getEnvInt("ENGINE_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("ENGINE_WORKERS must be positive")
	}
	if cfg.StoreTimeout, err = getEnvDuration("STORE_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getEnvDuration("RUN_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RunLockTTL, err = getEnvDuration("RUN_LOCK_TTL", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
