// Package registry stores schema documents and the audit trail of
// validate() calls made against them, behind a storage-backend-agnostic
// interface. It is the persistence layer pkg/api and pkg/reconcile build on;
// the validation engine itself (pkg/schema, pkg/validate, ...) has no
// dependency on it.
//
// The interface segregation here — a reader, a writer, a run recorder, a
// cache manager, a health checker, composed into one Registry — follows the
// same shape the underlying storage layer uses for its own resources.
package registry

import (
	"context"
	"time"
)

// SchemaDocument is one named, versioned schema document as stored by the
// registry — the raw bytes plus enough metadata to list and fetch it
// without fully parsing it.
type SchemaDocument struct {
	Name      string
	Version   string
	Content   []byte
	CreatedAt time.Time
}

// Run is one audit record of a validate() call, recorded for replay and for
// the nightly reconciliation sweep to compare against.
type Run struct {
	ID             string
	SchemaName     string
	SchemaVersion  string
	ProductVersion string
	Role           string
	FileTarget     string
	ErrorCount     int
	WarnCount      int
	CreatedAt      time.Time
}

// SchemaReader reads schema documents.
type SchemaReader interface {
	GetSchema(ctx context.Context, name, version string) (*SchemaDocument, error)
	ListSchemaVersions(ctx context.Context, name string) ([]string, error)
	LatestSchemaVersion(ctx context.Context, name string) (string, error)
	// ListSchemaNames returns every distinct schema name with at least one
	// published revision. pkg/reconcile uses this to discover what to sweep.
	ListSchemaNames(ctx context.Context) ([]string, error)
}

// SchemaWriter publishes new schema document revisions.
type SchemaWriter interface {
	PutSchema(ctx context.Context, doc *SchemaDocument) error
}

// RunRecorder records and lists validate() audit entries.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *Run) error
	ListRunsForSchema(ctx context.Context, name, version string) ([]*Run, error)
}

// CacheManager invalidates cached entries for a schema name.
type CacheManager interface {
	InvalidateCache(ctx context.Context, schemaName string) error
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Registry composes every capability a storage backend must provide.
type Registry interface {
	SchemaReader
	SchemaWriter
	RunRecorder
	CacheManager
	HealthChecker
}

// Config selects and configures a storage backend.
type Config struct {
	Type string // "filesystem", "postgres", "s3"

	FilesystemRoot string

	PostgresURL      string
	PostgresMaxConns int
	PostgresMinConns int
	PostgresTimeout  time.Duration

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3UsePathStyle bool
	S3AccessKey    string
	S3SecretKey    string

	CacheEnabled bool
	CacheTTL     time.Duration
	L1CacheSize  int
	RedisURL     string
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		Type:             "filesystem",
		FilesystemRoot:   "/tmp/propconf",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		CacheEnabled:     true,
		CacheTTL:         5 * time.Minute,
		L1CacheSize:      256,
	}
}
