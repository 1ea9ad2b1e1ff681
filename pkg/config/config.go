package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional: persistence is disabled without DATABASE_URL)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Agency feeds and auxiliary inputs
	Feeds FeedConfig

	// Composite rating policy
	Composite CompositeConfig

	// Output
	Output OutputConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Reconstruction fan-out
	Workers int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
	Timeout  time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// FeedConfig points at the data-warehouse exports
type FeedConfig struct {
	MoodysPath         string
	SPPath             string
	FitchPath          string
	SPDefaultsPath     string
	FitchDefaultsPath  string
	ManualDefaultsPath string // Excel workbook
	UniversePath       string
	SkipUnknownCodes   bool
}

// CompositeConfig holds the averaging policy
type CompositeConfig struct {
	MinAgencies  int
	RoundingBias float64
}

// OutputConfig holds export settings
type OutputConfig struct {
	Dir string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
			Timeout:  getEnvAsDuration("REDIS_TIMEOUT", "3s"),
		},

		Feeds: FeedConfig{
			MoodysPath:         getEnv("MOODYS_FEED", "moodys_issue_rating_history.csv"),
			SPPath:             getEnv("SP_FEED", "s_p_issue_rating_history.csv"),
			FitchPath:          getEnv("FITCH_FEED", "fitch_issue_rating_history.csv"),
			SPDefaultsPath:     getEnv("SP_DEFAULTS_FEED", ""),
			FitchDefaultsPath:  getEnv("FITCH_DEFAULTS_FEED", ""),
			ManualDefaultsPath: getEnv("MANUAL_DEFAULTS_WORKBOOK", ""),
			UniversePath:       getEnv("UNIVERSE_FILE", ""),
			SkipUnknownCodes:   getEnvAsBool("SKIP_UNKNOWN_CODES", false),
		},

		Composite: CompositeConfig{
			MinAgencies:  getEnvAsInt("MIN_AGENCIES", 2),
			RoundingBias: getEnvAsFloat("ROUNDING_BIAS", 0.0002),
		},

		Output: OutputConfig{
			Dir: getEnv("OUTPUT_DIR", "."),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		Workers: getEnvAsInt("WORKERS", runtime.NumCPU()),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Composite.MinAgencies < 1 || c.Composite.MinAgencies > 3 {
		return fmt.Errorf("MIN_AGENCIES must be between 1 and 3, got %d", c.Composite.MinAgencies)
	}

	if c.Composite.RoundingBias < 0 || c.Composite.RoundingBias >= 0.5 {
		return fmt.Errorf("ROUNDING_BIAS must be in [0, 0.5), got %g", c.Composite.RoundingBias)
	}

	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
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
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
