package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brightclass/brightclass/pkg/authz"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration (optional; in-memory cache is used when unset)
	Redis RedisConfig

	// Auth holds session verification settings
	Auth AuthConfig

	// Authz holds decision engine and audit settings
	Authz AuthzConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MaxIdle     int
	PingTimeout time.Duration
}

// RedisConfig holds the shared decision cache settings
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuthConfig holds OIDC session verification settings
type AuthConfig struct {
	IssuerURL string
	ClientID  string

	// AdminEmails is a legacy fallback granting platform-admin to listed
	// addresses. Empty by default; prefer the is_platform_admin claim.
	AdminEmails []string
}

// AuthzConfig holds decision cache and audit settings
type AuthzConfig struct {
	CacheTTL  time.Duration
	CacheSize int

	// AuditReads records permission/route checks, not just mutations
	AuditReads bool

	AuditRetentionDays int
	AuditFilePath      string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string

	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Authz:         loadAuthzConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("BRIGHTCLASS_HOST", "0.0.0.0"),
		Port:            getEnv("BRIGHTCLASS_PORT", "8080"),
		ReadTimeout:     getEnvDuration("BRIGHTCLASS_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("BRIGHTCLASS_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("BRIGHTCLASS_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("BRIGHTCLASS_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("BRIGHTCLASS_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("BRIGHTCLASS_POSTGRES_URL", ""),
		MaxConns:    getEnvInt("BRIGHTCLASS_POSTGRES_MAX_CONNS", 25),
		MaxIdle:     getEnvInt("BRIGHTCLASS_POSTGRES_MAX_IDLE", 5),
		PingTimeout: getEnvDuration("BRIGHTCLASS_POSTGRES_PING_TIMEOUT", 5*time.Second),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("BRIGHTCLASS_REDIS_URL", ""),
		Password: getEnv("BRIGHTCLASS_REDIS_PASSWORD", ""),
		DB:       getEnvInt("BRIGHTCLASS_REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		IssuerURL:   getEnv("BRIGHTCLASS_OIDC_ISSUER", ""),
		ClientID:    getEnv("BRIGHTCLASS_OIDC_CLIENT_ID", ""),
		AdminEmails: getEnvList("BRIGHTCLASS_ADMIN_EMAILS"),
	}
}

func loadAuthzConfig() AuthzConfig {
	return AuthzConfig{
		CacheTTL:           getEnvDuration("BRIGHTCLASS_CACHE_TTL", authz.DefaultCacheTTL),
		CacheSize:          getEnvInt("BRIGHTCLASS_CACHE_SIZE", authz.DefaultCacheSize),
		AuditReads:         getEnvBool("BRIGHTCLASS_AUDIT_READS", false),
		AuditRetentionDays: getEnvInt("BRIGHTCLASS_AUDIT_RETENTION_DAYS", 90),
		AuditFilePath:      getEnv("BRIGHTCLASS_AUDIT_FILE", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       getEnv("BRIGHTCLASS_LOG_LEVEL", "info"),
		LogFormat:      getEnv("BRIGHTCLASS_LOG_FORMAT", "json"),
		MetricsEnabled: getEnvBool("BRIGHTCLASS_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.IssuerURL == "" {
		return fmt.Errorf("OIDC issuer URL is required")
	}
	if c.Auth.ClientID == "" {
		return fmt.Errorf("OIDC client ID is required")
	}

	if c.Authz.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Authz.AuditRetentionDays <= 0 {
		return fmt.Errorf("audit retention must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
