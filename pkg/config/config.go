package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: every environment variable is read here and nowhere else
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// HTTP timeouts. Allocation runs hold the request open while they
	// persist, so WriteTimeout must cover ALLOC_LOCK_TTL.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Allocation / classification defaults
	Allocation     AllocationConfig
	Classification ClassificationConfig

	// PolicyFile optionally points at a YAML policy (internal/strategyconfig)
	// which overrides Allocation/Classification when present.
	PolicyFile string

	// Logging
	LogLevel  string
	LogFormat string

	// API
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// AllocationConfig holds teacher-subject allocation defaults
type AllocationConfig struct {
	AcademicPeriod    string // e.g. "2025-2026"
	TargetSemesters   []int  // semester codes processed by a run
	MaxLoadPerTeacher int
	Strategy          string // shuffle, round_robin
	Seed              int64  // 0 = time-based
	Departments       []int  // departments the scheduler allocates
	LockTTL           time.Duration
}

// ClassificationConfig holds risk/penalty defaults
type ClassificationConfig struct {
	RiskVariant  string // four_bucket, five_bucket
	PenaltyTable string // standard, strict
	MarkScheme   string // seventy_ten, twenty_five
}

// Load reads configuration from environment variables
// ⭐ SSOT: the only function that calls os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	semesters, err := getEnvAsIntList("ALLOC_TARGET_SEMESTERS", []int{2, 4, 6, 8})
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	departments, err := getEnvAsIntList("ALLOC_DEPARTMENTS", nil)
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", "15s"),
		WriteTimeout:    getEnvAsDuration("HTTP_WRITE_TIMEOUT", "60s"),
		ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", "30s"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "acadport"),
			User:            getEnv("DB_USER", "acadport"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
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
		},

		Allocation: AllocationConfig{
			AcademicPeriod:    getEnv("ACADEMIC_PERIOD", "2025-2026"),
			TargetSemesters:   semesters,
			MaxLoadPerTeacher: getEnvAsInt("ALLOC_MAX_LOAD", 5),
			Strategy:          getEnv("ALLOC_STRATEGY", "shuffle"),
			Seed:              getEnvAsInt64("ALLOC_SEED", 0),
			Departments:       departments,
			LockTTL:           getEnvAsDuration("ALLOC_LOCK_TTL", "30s"),
		},

		Classification: ClassificationConfig{
			RiskVariant:  getEnv("RISK_VARIANT", "four_bucket"),
			PenaltyTable: getEnv("PENALTY_TABLE", "standard"),
			MarkScheme:   getEnv("MARK_SCHEME", "seventy_ten"),
		},

		PolicyFile: getEnv("POLICY_FILE", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RateLimitPerSecond: getEnvAsFloat("API_RATE_LIMIT", 5),
		RateLimitBurst:     getEnvAsInt("API_RATE_BURST", 10),
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

	if c.Allocation.MaxLoadPerTeacher <= 0 {
		return fmt.Errorf("ALLOC_MAX_LOAD must be > 0")
	}
	if len(c.Allocation.TargetSemesters) == 0 {
		return fmt.Errorf("ALLOC_TARGET_SEMESTERS must not be empty")
	}
	if c.Allocation.AcademicPeriod == "" {
		return fmt.Errorf("ACADEMIC_PERIOD is required")
	}

	return nil
}

// RequireDatabase reports an error when no DATABASE_URL is configured.
// Commands that never touch storage (classify, penalty) skip this check.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
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

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
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

// getEnvAsIntList parses a comma separated list ("2,4,6,8").
// Unlike the scalar helpers a malformed list is an error: silently falling
// back would allocate the wrong semesters.
func getEnvAsIntList(key string, defaultValue []int) ([]int, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}

	parts := strings.Split(valueStr, ",")
	values := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid integer %q", key, part)
		}
		values = append(values, v)
	}

	return values, nil
}
