package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/propconf/pkg/registry"
)

// Registry implements registry.Registry against PostgreSQL. Schema document
// bytes are stored inline in schema_documents; each validate() call is
// recorded as one row in validation_runs, correlated with a UUID so it can
// be cross-referenced from logs and traces.
type Registry struct {
	db *sql.DB
}

// New opens a PostgresRegistry against cfg.URL and ensures its tables exist.
func New(cfg ConnectionConfig) (*Registry, error) {
	db, err := openPrimary(cfg)
	if err != nil {
		return nil, err
	}
	r := &Registry{db: db}
	if err := r.ensureTables(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

const createSchemaDocumentsTable = `
	CREATE TABLE IF NOT EXISTS schema_documents (
		name       VARCHAR(255) NOT NULL,
		version    VARCHAR(100) NOT NULL,
		content    BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (name, version)
	)
`

const createValidationRunsTable = `
	CREATE TABLE IF NOT EXISTS validation_runs (
		id              UUID PRIMARY KEY,
		schema_name     VARCHAR(255) NOT NULL,
		schema_version  VARCHAR(100) NOT NULL,
		product_version VARCHAR(100) NOT NULL,
		role            VARCHAR(100) NOT NULL,
		file_target     VARCHAR(255),
		error_count     INTEGER NOT NULL DEFAULT 0,
		warn_count      INTEGER NOT NULL DEFAULT 0,
		created_at      TIMESTAMP WITH TIME ZONE NOT NULL
	)
`

func (r *Registry) ensureTables() error {
	if _, err := r.db.Exec(createSchemaDocumentsTable); err != nil {
		return fmt.Errorf("postgres registry: ensure schema_documents table: %w", err)
	}
	if _, err := r.db.Exec(createValidationRunsTable); err != nil {
		return fmt.Errorf("postgres registry: ensure validation_runs table: %w", err)
	}
	return nil
}

func (r *Registry) GetSchema(ctx context.Context, name, version string) (*registry.SchemaDocument, error) {
	const query = `
		SELECT content, created_at FROM schema_documents
		WHERE name = $1 AND version = $2
	`
	var content []byte
	var createdAt time.Time
	err := r.db.QueryRowContext(ctx, query, name, version).Scan(&content, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("postgres registry: schema %s@%s not found", name, version)
	} else if err != nil {
		return nil, fmt.Errorf("postgres registry: get schema %s@%s: %w", name, version, err)
	}
	return &registry.SchemaDocument{Name: name, Version: version, Content: content, CreatedAt: createdAt}, nil
}

func (r *Registry) ListSchemaVersions(ctx context.Context, name string) ([]string, error) {
	const query = `
		SELECT version FROM schema_documents WHERE name = $1 ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("postgres registry: list versions for %s: %w", name, err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("postgres registry: scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *Registry) ListSchemaNames(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT name FROM schema_documents ORDER BY name ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres registry: list schema names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("postgres registry: scan schema name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r *Registry) LatestSchemaVersion(ctx context.Context, name string) (string, error) {
	const query = `
		SELECT version FROM schema_documents WHERE name = $1
		ORDER BY created_at DESC LIMIT 1
	`
	var v string
	err := r.db.QueryRowContext(ctx, query, name).Scan(&v)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("postgres registry: no versions for schema %s", name)
	} else if err != nil {
		return "", fmt.Errorf("postgres registry: latest version for %s: %w", name, err)
	}
	return v, nil
}

func (r *Registry) PutSchema(ctx context.Context, doc *registry.SchemaDocument) error {
	const query = `
		INSERT INTO schema_documents (name, version, content, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name, version) DO UPDATE SET content = EXCLUDED.content
	`
	_, err := r.db.ExecContext(ctx, query, doc.Name, doc.Version, doc.Content, time.Now())
	if err != nil {
		return fmt.Errorf("postgres registry: put schema %s@%s: %w", doc.Name, doc.Version, err)
	}
	return nil
}

func (r *Registry) RecordRun(ctx context.Context, run *registry.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	const query = `
		INSERT INTO validation_runs
			(id, schema_name, schema_version, product_version, role, file_target, error_count, warn_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.SchemaName, run.SchemaVersion, run.ProductVersion, run.Role, run.FileTarget,
		run.ErrorCount, run.WarnCount, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("postgres registry: record run: %w", err)
	}
	return nil
}

func (r *Registry) ListRunsForSchema(ctx context.Context, name, version string) ([]*registry.Run, error) {
	const query = `
		SELECT id, schema_name, schema_version, product_version, role, file_target,
		       error_count, warn_count, created_at
		FROM validation_runs
		WHERE schema_name = $1 AND schema_version = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, name, version)
	if err != nil {
		return nil, fmt.Errorf("postgres registry: list runs for %s@%s: %w", name, version, err)
	}
	defer rows.Close()

	var runs []*registry.Run
	for rows.Next() {
		run := &registry.Run{}
		if err := rows.Scan(&run.ID, &run.SchemaName, &run.SchemaVersion, &run.ProductVersion,
			&run.Role, &run.FileTarget, &run.ErrorCount, &run.WarnCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres registry: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Registry) InvalidateCache(ctx context.Context, schemaName string) error {
	return nil // the postgres backend has no cache of its own; registry.Cache wraps it
}

func (r *Registry) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres registry: unhealthy: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *Registry) Close() error { return r.db.Close() }

var _ registry.Registry = (*Registry)(nil)
