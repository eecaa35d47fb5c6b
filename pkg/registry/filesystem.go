package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileSystemRegistry stores schema documents as files on local disk, one
// directory per schema name and one file per version. It is intended for
// local development and for configctl, which never runs against a shared
// backend.
type FileSystemRegistry struct {
	root string

	mu   sync.RWMutex
	runs []*Run // in-memory only; the filesystem backend does not persist audit runs
}

// NewFileSystemRegistry creates a registry rooted at dir, creating it if it
// does not already exist.
func NewFileSystemRegistry(dir string) (*FileSystemRegistry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem registry: create root %s: %w", dir, err)
	}
	return &FileSystemRegistry{root: dir}, nil
}

func (r *FileSystemRegistry) schemaDir(name string) string {
	return filepath.Join(r.root, sanitize(name))
}

func (r *FileSystemRegistry) schemaPath(name, version string) string {
	return filepath.Join(r.schemaDir(name), sanitize(version)+".yaml")
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, string(filepath.Separator), "_")
}

func (r *FileSystemRegistry) GetSchema(ctx context.Context, name, version string) (*SchemaDocument, error) {
	path := r.schemaPath(name, version)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("filesystem registry: schema %s@%s not found: %w", name, version, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("filesystem registry: read %s@%s: %w", name, version, err)
	}
	return &SchemaDocument{
		Name:      name,
		Version:   version,
		Content:   content,
		CreatedAt: info.ModTime(),
	}, nil
}

func (r *FileSystemRegistry) ListSchemaVersions(ctx context.Context, name string) ([]string, error) {
	entries, err := os.ReadDir(r.schemaDir(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filesystem registry: list versions for %s: %w", name, err)
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(versions)
	return versions, nil
}

func (r *FileSystemRegistry) ListSchemaNames(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("filesystem registry: list schema names: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (r *FileSystemRegistry) LatestSchemaVersion(ctx context.Context, name string) (string, error) {
	versions, err := r.ListSchemaVersions(ctx, name)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("filesystem registry: no versions for schema %s", name)
	}
	return versions[len(versions)-1], nil
}

func (r *FileSystemRegistry) PutSchema(ctx context.Context, doc *SchemaDocument) error {
	dir := r.schemaDir(doc.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filesystem registry: create dir for %s: %w", doc.Name, err)
	}
	path := r.schemaPath(doc.Name, doc.Version)
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return fmt.Errorf("filesystem registry: write %s@%s: %w", doc.Name, doc.Version, err)
	}
	return nil
}

func (r *FileSystemRegistry) RecordRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *FileSystemRegistry) ListRunsForSchema(ctx context.Context, name, version string) ([]*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Run
	for _, run := range r.runs {
		if run.SchemaName == name && run.SchemaVersion == version {
			out = append(out, run)
		}
	}
	return out, nil
}

func (r *FileSystemRegistry) InvalidateCache(ctx context.Context, schemaName string) error {
	return nil // no cache layer of its own; callers wrap with registry.Cache
}

func (r *FileSystemRegistry) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("filesystem registry: root %s unreachable: %w", r.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("filesystem registry: root %s is not a directory", r.root)
	}
	return nil
}

var _ Registry = (*FileSystemRegistry)(nil)
