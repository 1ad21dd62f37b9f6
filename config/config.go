// Package config provides configuration management and environment variable handling for the console
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConsoleConfig holds all configuration for the admin console process
type ConsoleConfig struct {
	Server    ServerConfig    `json:"server"`
	Upstream  UpstreamConfig  `json:"upstream"`
	Session   SessionConfig   `json:"session"`
	Cache     CacheConfig     `json:"cache"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Security  SecurityConfig  `json:"security"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

// UpstreamConfig points at the dashboard REST API the console is a client of
type UpstreamConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// SessionConfig controls where the bearer token is persisted and how it is decoded
type SessionConfig struct {
	Store         string `json:"store"` // file, redis or memory
	FilePath      string `json:"file_path"`
	TokenKey      string `json:"token_key"`
	EncryptionKey string `json:"-"`
	VerifySecret  string `json:"-"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	CatalogTTL      time.Duration `json:"catalog_ttl"`
	HealthCheckTick time.Duration `json:"health_check_tick"`
}

// DatabaseConfig backs the optional audit log
type DatabaseConfig struct {
	AuditEnabled    bool          `json:"audit_enabled"`
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"-"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	AutoMigrate     bool          `json:"auto_migrate"`
}

type LoggingConfig struct {
	Level            string `json:"level"`
	Format           string `json:"format"`
	Output           string `json:"output"`
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"`
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"`
	Compress         bool   `json:"compress"`
	EnableStackTrace bool   `json:"enable_stack_trace"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type SecurityConfig struct {
	AllowedOrigins  []string      `json:"allowed_origins"`
	RateLimit       int           `json:"rate_limit"`
	AuthRateLimit   int           `json:"auth_rate_limit"`
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

// SchedulerConfig drives the background maintenance loop
type SchedulerConfig struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

// DSN returns the postgres connection string for the audit database
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Address returns host:port for the HTTP listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads an optional .env file and builds the console configuration from the environment
func LoadConfig(envFiles ...string) (*ConsoleConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	cfg := &ConsoleConfig{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "127.0.0.1"),
			Port:            getEnvInt("SERVER_PORT", 8088),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024),
		},
		Upstream: UpstreamConfig{
			BaseURL: getEnvString("UPSTREAM_API_URL", "https://dokany-api-production.up.railway.app"),
			Timeout: getEnvDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			Store:         strings.ToLower(getEnvString("SESSION_STORE", "file")),
			FilePath:      getEnvString("SESSION_FILE_PATH", defaultSessionFile()),
			TokenKey:      getEnvString("SESSION_TOKEN_KEY", "token"),
			EncryptionKey: getEnvString("SESSION_ENCRYPTION_KEY", ""),
			VerifySecret:  getEnvString("SESSION_VERIFY_SECRET", ""),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", false),
			RedisURL:        getEnvString("REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("REDIS_DB", 0),
			RedisPrefix:     getEnvString("REDIS_PREFIX", "dokany-admin:"),
			CatalogTTL:      getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
			HealthCheckTick: getEnvDuration("CACHE_HEALTH_CHECK_INTERVAL", 30*time.Second),
		},
		Database: DatabaseConfig{
			AuditEnabled:    getEnvBool("AUDIT_ENABLED", false),
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "dokany_admin"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Logging: LoggingConfig{
			Level:            getEnvString("LOG_LEVEL", "info"),
			Format:           getEnvString("LOG_FORMAT", "json"),
			Output:           getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:         getEnvString("LOG_FILE_PATH", "logs/console.log"),
			MaxSize:          getEnvInt("LOG_MAX_SIZE", 50),
			MaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAge:           getEnvInt("LOG_MAX_AGE", 14),
			Compress:         getEnvBool("LOG_COMPRESS", true),
			EnableStackTrace: getEnvBool("LOG_ENABLE_STACK_TRACE", false),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Security: SecurityConfig{
			AllowedOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			RateLimit:       getEnvInt("RATE_LIMIT", 600),
			AuthRateLimit:   getEnvInt("AUTH_RATE_LIMIT", 20),
			RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvBool("SCHEDULER_ENABLED", true),
			Interval: getEnvDuration("SCHEDULER_INTERVAL", 10*time.Minute),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultSessionFile() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return dir + string(os.PathSeparator) + "dokany-admin" + string(os.PathSeparator) + "session.json"
	}
	return ".dokany-admin-session.json"
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateConfig validates the console configuration and reports every problem at once
func ValidateConfig(cfg *ConsoleConfig) error {
	var errors []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		errors = append(errors, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if u, err := url.Parse(cfg.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, "UPSTREAM_API_URL must be an absolute URL")
	}
	if cfg.Upstream.Timeout <= 0 {
		errors = append(errors, "UPSTREAM_TIMEOUT must be positive")
	}

	switch cfg.Session.Store {
	case "file":
		if cfg.Session.FilePath == "" {
			errors = append(errors, "SESSION_FILE_PATH is required when SESSION_STORE=file")
		}
	case "redis":
		if cfg.Cache.RedisURL == "" {
			errors = append(errors, "REDIS_URL is required when SESSION_STORE=redis")
		}
	case "memory":
	default:
		errors = append(errors, "SESSION_STORE must be one of: file, redis, memory")
	}
	if cfg.Session.TokenKey == "" {
		errors = append(errors, "SESSION_TOKEN_KEY is required")
	}
	if cfg.Session.EncryptionKey != "" && len(cfg.Session.EncryptionKey) < 16 {
		errors = append(errors, "SESSION_ENCRYPTION_KEY must be at least 16 characters long")
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "REDIS_URL is required when CACHE_ENABLED=true")
	}
	if cfg.Cache.Enabled && cfg.Cache.CatalogTTL <= 0 {
		errors = append(errors, "CATALOG_CACHE_TTL must be positive")
	}

	if cfg.Database.AuditEnabled {
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required when AUDIT_ENABLED=true")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required when AUDIT_ENABLED=true")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required when AUDIT_ENABLED=true")
		}
	}

	switch strings.ToLower(cfg.Logging.Output) {
	case "stdout", "file", "both":
	default:
		errors = append(errors, "LOG_OUTPUT must be one of: stdout, file, both")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errors = append(errors, "METRICS_PATH must start with /")
	}

	if cfg.Security.RateLimit <= 0 || cfg.Security.AuthRateLimit <= 0 {
		errors = append(errors, "RATE_LIMIT and AUTH_RATE_LIMIT must be positive")
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.Interval <= 0 {
		errors = append(errors, "SCHEDULER_INTERVAL must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
