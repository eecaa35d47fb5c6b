package reconcile

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/registry"
)

const reconcileTestSchemaV1 = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: ENV_REQUEST_TIMEOUT
        kind: env
    datatype:
      type: integer
      min: "1"
      max: "60000"
    default_values:
      - from_version: "1.0.0"
        value: "5000"
    roles:
      - role: worker
    as_of_version: "1.0.0"
`

// reconcileTestSchemaV2 tightens the max bound, drops the default and marks
// the property required for worker, so a combo recorded with no value and no
// errors now fails with MissingRequired, simulating a publish that
// introduces drift.
const reconcileTestSchemaV2 = `
version: 1
spec:
  units: []
properties:
  - names:
      - name: ENV_REQUEST_TIMEOUT
        kind: env
    datatype:
      type: integer
      min: "1"
      max: "1000"
    roles:
      - role: worker
        required: true
    as_of_version: "1.0.0"
`

func newTestSweeper(t *testing.T) (*Sweeper, registry.Registry) {
	t.Helper()
	store, err := registry.NewFileSystemRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger := observability.NewLogger(observability.InfoLevel, bytes.NewBuffer(nil))
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return New(store, nil, metrics, logger, 2), store
}

func TestSweepOnceDetectsDrift(t *testing.T) {
	ctx := context.Background()
	sweeper, store := newTestSweeper(t)

	if err := store.PutSchema(ctx, &registry.SchemaDocument{
		Name: "worker", Version: "1.0.0", Content: []byte(reconcileTestSchemaV1),
	}); err != nil {
		t.Fatalf("put v1: %v", err)
	}
	if err := store.RecordRun(ctx, &registry.Run{
		SchemaName: "worker", SchemaVersion: "1.0.0", ProductVersion: "1.2.0",
		Role: "worker", ErrorCount: 0, WarnCount: 0,
	}); err != nil {
		t.Fatalf("record run: %v", err)
	}

	// Publish a revision that requires the property for worker with no
	// default; the recorded combo supplies no value, so it now errors.
	if err := store.PutSchema(ctx, &registry.SchemaDocument{
		Name: "worker", Version: "1.1.0", Content: []byte(reconcileTestSchemaV2),
	}); err != nil {
		t.Fatalf("put v2: %v", err)
	}

	report, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.SchemasSwept != 1 {
		t.Fatalf("expected 1 schema swept, got %d", report.SchemasSwept)
	}
	if report.CombosChecked != 1 {
		t.Fatalf("expected 1 combo checked, got %d", report.CombosChecked)
	}
	if report.DriftDetected != 1 {
		t.Fatalf("expected drift detected, got %d", report.DriftDetected)
	}
	if len(report.Errs) != 0 {
		t.Fatalf("unexpected sweep errors: %v", report.Errs)
	}
}

func TestSweepOnceNoDriftWhenSchemaUnchanged(t *testing.T) {
	ctx := context.Background()
	sweeper, store := newTestSweeper(t)

	if err := store.PutSchema(ctx, &registry.SchemaDocument{
		Name: "worker", Version: "1.0.0", Content: []byte(reconcileTestSchemaV1),
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.RecordRun(ctx, &registry.Run{
		SchemaName: "worker", SchemaVersion: "1.0.0", ProductVersion: "1.2.0",
		Role: "worker", ErrorCount: 0, WarnCount: 0,
	}); err != nil {
		t.Fatalf("record run: %v", err)
	}

	report, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.DriftDetected != 0 {
		t.Fatalf("expected no drift, got %d", report.DriftDetected)
	}
}

func TestSweepOnceNoSchemas(t *testing.T) {
	sweeper, _ := newTestSweeper(t)
	report, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.SchemasSwept != 0 {
		t.Fatalf("expected 0 schemas swept, got %d", report.SchemasSwept)
	}
}
