package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration read from the environment.
type Config struct {
	AppPort int

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	CachePrefix string
	CacheTTL    time.Duration

	JWTSecret         string
	CallbackSecret    string
	LogLevel          string
	LogFile           string
	AuditLogging      bool
	NotificationTopic string
}

// LoadConfig reads envFile (if it exists) into the environment and builds a
// Config from it. Variables already set in the environment win.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		PostgresHost:      getEnv("POSTGRES_HOST", "localhost"),
		PostgresUser:      getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:  getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:        getEnv("POSTGRES_DB", "governance"),
		PostgresSSLMode:   getEnv("POSTGRES_SSLMODE", "disable"),
		RedisHost:         getEnv("REDIS_HOST", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		CachePrefix:       getEnv("CACHE_PREFIX", "governance:"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		CallbackSecret:    getEnv("SIGNATURE_CALLBACK_SECRET", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFile:           getEnv("LOG_FILE", "app.log"),
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "governance.notifications"),
	}

	var err error
	if cfg.AppPort, err = getInt("APP_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.PostgresPort, err = getInt("POSTGRES_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.RedisPort, err = getInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AuditLogging, err = getBool("AUDIT_LOGGING", true); err != nil {
		return nil, err
	}
	ttl := getEnv("CACHE_TTL", "30m")
	if cfg.CacheTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL %q: %w", ttl, err)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.CallbackSecret != "" && cfg.CallbackSecret == cfg.JWTSecret {
		return nil, errors.New("SIGNATURE_CALLBACK_SECRET must differ from JWT_SECRET")
	}
	return cfg, nil
}

// PostgresDSN renders the connection string for lib/pq and the gorm driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode)
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
