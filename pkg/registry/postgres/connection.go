// Package postgres implements registry.Registry against PostgreSQL: schema
// documents and validate() audit runs live in ordinary tables, adapted from
// the connection-pooling and query shape of the wider storage corpus.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" sql.DB driver
)

// ConnectionConfig configures the pooled primary connection.
type ConnectionConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// openPrimary opens and pings a pooled connection to cfg.URL. The registry's
// scale does not warrant read-replica fan-out, so unlike the wider storage
// corpus this manages a single pooled connection rather than a primary plus
// a replica set.
func openPrimary(cfg ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres registry: open connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres registry: ping: %w", err)
	}
	return db, nil
}
