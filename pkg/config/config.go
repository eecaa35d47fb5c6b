package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/registry"
)

// Config holds all application configuration for configd.
type Config struct {
	Server        ServerConfig
	Registry      registry.Config
	Auth          AuthConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// ReconcileSchedule is the standard 5-field cron expression for the
	// nightly drift sweep; empty disables the scheduler.
	ReconcileSchedule     string
	ReconcileConcurrency int
}

// AuthConfig configures bearer-token verification on the publish endpoint.
// Empty IssuerURL disables auth entirely, which is the default for local
// development against the filesystem backend.
type AuthConfig struct {
	OIDCIssuerURL   string
	OIDCClientID    string
	OIDCGroupsClaim string
	GroupRoles      map[string]string // provider group name -> propconf role
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Registry:      loadRegistryConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:                  getEnv("PROPCONF_HOST", "0.0.0.0"),
		Port:                  getEnv("PROPCONF_PORT", "8080"),
		ReadTimeout:           getEnvDuration("PROPCONF_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:          getEnvDuration("PROPCONF_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:           getEnvDuration("PROPCONF_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:       getEnvDuration("PROPCONF_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:            getEnv("PROPCONF_HEALTH_PORT", "9090"),
		ReconcileSchedule:     getEnv("PROPCONF_RECONCILE_SCHEDULE", "5 0 * * *"),
		ReconcileConcurrency:  getEnvInt("PROPCONF_RECONCILE_CONCURRENCY", 4),
	}
}

func loadRegistryConfig() registry.Config {
	cfg := registry.DefaultConfig()

	if registryType := getEnv("PROPCONF_REGISTRY_TYPE", ""); registryType != "" {
		cfg.Type = registryType
	}

	if fsRoot := getEnv("PROPCONF_FILESYSTEM_ROOT", ""); fsRoot != "" {
		cfg.FilesystemRoot = fsRoot
	}

	if pgURL := getEnv("PROPCONF_POSTGRES_URL", ""); pgURL != "" {
		cfg.PostgresURL = pgURL
	}
	if maxConns := getEnvInt("PROPCONF_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("PROPCONF_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("PROPCONF_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.PostgresTimeout = timeout
	}

	if s3Endpoint := getEnv("PROPCONF_S3_ENDPOINT", ""); s3Endpoint != "" {
		cfg.S3Endpoint = s3Endpoint
	}
	if s3Region := getEnv("PROPCONF_S3_REGION", ""); s3Region != "" {
		cfg.S3Region = s3Region
	}
	if s3Bucket := getEnv("PROPCONF_S3_BUCKET", ""); s3Bucket != "" {
		cfg.S3Bucket = s3Bucket
	}
	if s3AccessKey := getEnv("PROPCONF_S3_ACCESS_KEY", ""); s3AccessKey != "" {
		cfg.S3AccessKey = s3AccessKey
	}
	if s3SecretKey := getEnv("PROPCONF_S3_SECRET_KEY", ""); s3SecretKey != "" {
		cfg.S3SecretKey = s3SecretKey
	}
	if s3UsePathStyle := getEnv("PROPCONF_S3_USE_PATH_STYLE", ""); s3UsePathStyle != "" {
		cfg.S3UsePathStyle = strings.ToLower(s3UsePathStyle) == "true"
	}

	if redisURL := getEnv("PROPCONF_REDIS_URL", ""); redisURL != "" {
		cfg.RedisURL = redisURL
	}

	if cacheEnabled := getEnv("PROPCONF_CACHE_ENABLED", ""); cacheEnabled != "" {
		cfg.CacheEnabled = strings.ToLower(cacheEnabled) == "true"
	}
	if cacheTTL := getEnvDuration("PROPCONF_CACHE_TTL", 0); cacheTTL > 0 {
		cfg.CacheTTL = cacheTTL
	}
	if l1CacheSize := getEnvInt("PROPCONF_L1_CACHE_SIZE", 0); l1CacheSize > 0 {
		cfg.L1CacheSize = l1CacheSize
	}

	return cfg
}

func loadAuthConfig() AuthConfig {
	groupRoles := make(map[string]string)
	if raw := getEnv("PROPCONF_AUTH_GROUP_ROLES", ""); raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			parts := strings.SplitN(pair, "=", 2)
			if len(parts) == 2 {
				groupRoles[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
			}
		}
	}

	return AuthConfig{
		OIDCIssuerURL:   getEnv("PROPCONF_OIDC_ISSUER_URL", ""),
		OIDCClientID:    getEnv("PROPCONF_OIDC_CLIENT_ID", ""),
		OIDCGroupsClaim: getEnv("PROPCONF_OIDC_GROUPS_CLAIM", "groups"),
		GroupRoles:      groupRoles,
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("PROPCONF_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("PROPCONF_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("PROPCONF_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("PROPCONF_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("PROPCONF_OTEL_SERVICE_NAME", "propconf-registry"),
		OTelServiceVersion: getEnv("PROPCONF_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("PROPCONF_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid.
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

	switch c.Registry.Type {
	case "filesystem":
		if c.Registry.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem registry")
		}
	case "postgres":
		if c.Registry.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres registry")
		}
	case "s3":
		if c.Registry.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 registry")
		}
	default:
		return fmt.Errorf("invalid registry type: %s (must be filesystem, postgres, or s3)", c.Registry.Type)
	}

	if c.Auth.OIDCIssuerURL != "" && c.Auth.OIDCClientID == "" {
		return fmt.Errorf("oidc_client_id is required when oidc_issuer_url is set")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
