// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for all databases, always absolute
	BackupDir string // Directory for local database backups
	Port      int
	LogLevel  string
	DevMode   bool

	Brokerage  BrokerageConfig
	Capture    CaptureConfig
	Benchmarks BenchmarksConfig
	Backup     BackupConfig
}

// BrokerageConfig holds credentials for the brokerage holdings feed.
// Empty credentials disable the feed; manual assets still work.
type BrokerageConfig struct {
	BaseURL     string
	AppKey      string
	AppSecret   string
	AccountNo   string
	AccountCode string
}

// Enabled reports whether the brokerage feed can be used.
func (c BrokerageConfig) Enabled() bool {
	return c.AppKey != "" && c.AppSecret != "" && c.AccountNo != ""
}

// CaptureConfig holds the snapshot capture schedules (six-field cron).
type CaptureConfig struct {
	DomesticSchedule string // After the KRX close
	OverseasSchedule string // After the US close, KST
}

// BenchmarksConfig controls benchmark index tracking.
type BenchmarksConfig struct {
	Enabled bool
}

// BackupConfig holds backup behavior and optional R2 off-site settings.
type BackupConfig struct {
	RetentionDays     int
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("WONFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	backupDir := getEnv("WONFOLIO_BACKUP_DIR", filepath.Join(absDataDir, "backups"))

	cfg := &Config{
		DataDir:   absDataDir,
		BackupDir: backupDir,
		Port:      getEnvAsInt("PORT", 8000),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Brokerage: BrokerageConfig{
			BaseURL:     getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
			AppKey:      getEnv("KIS_APP_KEY", ""),
			AppSecret:   getEnv("KIS_APP_SECRET", ""),
			AccountNo:   getEnv("KIS_ACCOUNT_NO", ""),
			AccountCode: getEnv("KIS_ACCOUNT_CODE", "01"),
		},
		Capture: CaptureConfig{
			DomesticSchedule: getEnv("CAPTURE_DOMESTIC_SCHEDULE", ""),
			OverseasSchedule: getEnv("CAPTURE_OVERSEAS_SCHEDULE", ""),
		},
		Benchmarks: BenchmarksConfig{
			Enabled: getEnvAsBool("BENCHMARKS_ENABLED", true),
		},
		Backup: BackupConfig{
			RetentionDays:     getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
			R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			R2Bucket:          getEnv("R2_BUCKET", ""),
		},
	}

	return cfg, nil
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
