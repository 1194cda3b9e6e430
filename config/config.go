package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Reporting ReportingConfig
	Warehouse WarehouseConfig
	Redis     RedisConfig
	Lucernex  LucernexConfig
	Refresh   RefreshConfig
	App       AppConfig
}

type ServerConfig struct {
	Port string
	// CORSOrigins is a comma-separated allowlist; "*" allows all.
	CORSOrigins []string
}

// ReportingConfig points at the Postgres database owned by the loader.
type ReportingConfig struct {
	DSN string
}

// WarehouseConfig points at the upstream ODS warehouse the extractors read.
type WarehouseConfig struct {
	DSN string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LucernexConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

type RefreshConfig struct {
	// CronSpec uses six fields (with seconds), e.g. "0 0 5 * * *".
	// Empty disables the scheduler.
	CronSpec string
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		},
		Reporting: ReportingConfig{
			DSN: getEnv("REPORTING_DSN", ""),
		},
		Warehouse: WarehouseConfig{
			DSN: getEnv("WAREHOUSE_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Lucernex: LucernexConfig{
			BaseURL:  getEnv("LUCERNEX_BASE_URL", "https://api-walmart.lucernex.com"),
			Username: getEnv("LUCERNEX_USER", ""),
			Password: getEnv("LUCERNEX_PASS", ""),
			Timeout:  time.Duration(getEnvAsInt("LUCERNEX_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Refresh: RefreshConfig{
			CronSpec: getEnv("REFRESH_CRON", "0 0 5 * * *"),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Reporting.DSN == "" {
		return fmt.Errorf("REPORTING_DSN is required")
	}

	if c.Warehouse.DSN == "" {
		return fmt.Errorf("WAREHOUSE_DSN is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
