// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	PROPCONF_HOST="0.0.0.0"
//	PROPCONF_PORT="8080"
//	PROPCONF_HEALTH_PORT="9090"
//	PROPCONF_READ_TIMEOUT="15s"
//	PROPCONF_WRITE_TIMEOUT="15s"
//	PROPCONF_RECONCILE_SCHEDULE="5 0 * * *"
//
// Registry settings:
//
//	PROPCONF_REGISTRY_TYPE="postgres"  # filesystem, postgres, s3
//	PROPCONF_FILESYSTEM_ROOT="/var/propconf/schemas"
//	PROPCONF_POSTGRES_URL="postgres://localhost/propconf"
//	PROPCONF_POSTGRES_MAX_CONNS="20"
//	PROPCONF_S3_BUCKET="propconf-schemas"
//	PROPCONF_S3_REGION="us-east-1"
//
// Cache settings:
//
//	PROPCONF_CACHE_ENABLED="true"
//	PROPCONF_REDIS_URL="redis://localhost:6379"
//	PROPCONF_L1_CACHE_SIZE="256"
//
// Auth settings:
//
//	PROPCONF_OIDC_ISSUER_URL="https://idp.example.com"
//	PROPCONF_OIDC_CLIENT_ID="propconf-registry"
//	PROPCONF_AUTH_GROUP_ROLES="platform-team=publish,readers=viewer"
//
// Observability settings:
//
//	PROPCONF_LOG_LEVEL="info"  # debug, info, warn, error
//	PROPCONF_METRICS_ENABLED="true"
//	PROPCONF_OTEL_ENABLED="true"
//	PROPCONF_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Registry: %s\n", cfg.Registry.Type)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/registry: uses registry configuration
//   - pkg/observability: uses observability configuration
//   - pkg/auth: uses auth configuration
package config
