// Package reconcile runs the nightly schema-drift sweep: every (schema,
// product version, role, file target) combination that has ever been
// validated gets re-run against that schema's latest published revision,
// and any newly-introduced Error or Warn outcome is logged as drift. A
// schema publish that silently breaks configurations nobody has re-checked
// is exactly the failure mode this catches.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/propconf/pkg/expand"
	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/outcome"
	"github.com/platinummonkey/propconf/pkg/registry"
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/validate"
	"github.com/platinummonkey/propconf/pkg/version"
)

// Resolver compiles a schema name@version into its parsed form, serving from
// cache when one is configured. registry.Cache and a bare registry.Registry
// (via storeResolver) both satisfy the shape reconcile needs.
type Resolver interface {
	GetCompiledSchema(ctx context.Context, name, version string) (*schema.Schema, error)
}

// Sweeper re-validates every previously recorded run against the current
// latest schema revision for its schema name.
type Sweeper struct {
	store       registry.Registry
	resolver    Resolver
	metrics     *observability.Metrics
	logger      *observability.Logger
	concurrency int
}

// storeResolver compiles straight from the registry when no cache wraps it.
type storeResolver struct{ store registry.Registry }

func (r storeResolver) GetCompiledSchema(ctx context.Context, name, ver string) (*schema.Schema, error) {
	doc, err := r.store.GetSchema(ctx, name, ver)
	if err != nil {
		return nil, err
	}
	return schema.Load(doc.Content)
}

// New builds a Sweeper. If cache is nil, schemas are compiled directly from
// store on every sweep. concurrency bounds how many schema names are swept
// in parallel; values <= 0 default to 4.
func New(store registry.Registry, cache *registry.Cache, metrics *observability.Metrics, logger *observability.Logger, concurrency int) *Sweeper {
	if concurrency <= 0 {
		concurrency = 4
	}
	var resolver Resolver = storeResolver{store: store}
	if cache != nil {
		resolver = cache
	}
	return &Sweeper{store: store, resolver: resolver, metrics: metrics, logger: logger, concurrency: concurrency}
}

// combo is one distinct (product version, role, file target) triple
// observed across a schema's recorded runs, re-checked against the latest
// revision regardless of which revision it was originally recorded against.
type combo struct {
	productVersion string
	role           string
	fileTarget     string
}

// Report summarizes one sweep.
type Report struct {
	SchemasSwept   int
	CombosChecked  int
	DriftDetected  int
	Errs           []error
}

// SweepOnce re-validates every known (schema, product version, role, file
// target) combination against each schema's latest revision and returns a
// summary. It fans out across schema names with a bounded errgroup; a
// failure on one schema name does not stop the others.
func (s *Sweeper) SweepOnce(ctx context.Context) (*Report, error) {
	start := time.Now()
	names, err := s.store.ListSchemaNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list schema names: %w", err)
	}

	report := &Report{}
	var reportMu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, name := range names {
		name := name
		g.Go(func() error {
			checked, drifted, err := s.sweepSchema(ctx, name)
			reportMu.Lock()
			defer reportMu.Unlock()
			report.SchemasSwept++
			report.CombosChecked += checked
			report.DriftDetected += drifted
			if err != nil {
				report.Errs = append(report.Errs, fmt.Errorf("reconcile: schema %s: %w", name, err))
			}
			return nil // a single schema's failure never aborts the sweep
		})
	}
	_ = g.Wait()

	duration := time.Since(start)
	if s.metrics != nil {
		status := "ok"
		if len(report.Errs) > 0 {
			status = "partial_error"
		}
		s.metrics.ReconcileRunsTotal.WithLabelValues(status).Inc()
		s.metrics.ReconcileDuration.Observe(duration.Seconds())
	}
	s.logger.WithField("schemas_swept", report.SchemasSwept).
		WithField("combos_checked", report.CombosChecked).
		WithField("drift_detected", report.DriftDetected).
		WithField("duration_ms", duration.Milliseconds()).
		Info("reconciliation sweep complete")

	return report, nil
}

// sweepSchema re-validates every combo recorded under any revision of name
// against its current latest revision.
func (s *Sweeper) sweepSchema(ctx context.Context, name string) (checked, drifted int, err error) {
	latest, err := s.store.LatestSchemaVersion(ctx, name)
	if err != nil {
		return 0, 0, fmt.Errorf("latest version: %w", err)
	}
	compiled, err := s.resolver.GetCompiledSchema(ctx, name, latest)
	if err != nil {
		return 0, 0, fmt.Errorf("compile %s@%s: %w", name, latest, err)
	}

	versions, err := s.store.ListSchemaVersions(ctx, name)
	if err != nil {
		return 0, 0, fmt.Errorf("list versions: %w", err)
	}

	combos := map[combo]*registry.Run{}
	for _, v := range versions {
		runs, err := s.store.ListRunsForSchema(ctx, name, v)
		if err != nil {
			return checked, drifted, fmt.Errorf("list runs for %s@%s: %w", name, v, err)
		}
		for _, run := range runs {
			c := combo{productVersion: run.ProductVersion, role: run.Role, fileTarget: run.FileTarget}
			// Keep only the most recently recorded run per combo; that is
			// the one whose error/warn counts drift is measured against.
			if existing, ok := combos[c]; !ok || run.CreatedAt.After(existing.CreatedAt) {
				combos[c] = run
			}
		}
	}

	for c, previous := range combos {
		checked++
		if s.recheckCombo(ctx, name, latest, compiled, c, previous) {
			drifted++
		}
	}
	return checked, drifted, nil
}

// recheckCombo re-runs validate() for one combo against compiled and
// reports whether it introduced errors or warnings the previous run did not
// have. It never returns an error: a combo whose product version no longer
// parses is logged and skipped, not treated as a sweep failure.
func (s *Sweeper) recheckCombo(ctx context.Context, schemaName, latestVersion string, compiled *schema.Schema, c combo, previous *registry.Run) bool {
	pv, err := version.Parse(c.productVersion)
	if err != nil {
		s.logger.WithField("schema_name", schemaName).
			WithField("product_version", c.productVersion).
			WithError(err).
			Warn("reconcile: skipping combo with unparseable product version")
		return false
	}

	target := validate.Target{Kind: validate.TargetEnv}
	if c.fileTarget != "" {
		target = validate.Target{Kind: validate.TargetFile, File: c.fileTarget}
	}

	results := validate.Run(compiled, pv, c.role, target, []expand.UserValue{})

	errorCount, warnCount := 0, 0
	for _, entry := range results.Entries() {
		switch entry.Outcome.Kind {
		case outcome.Error:
			errorCount++
		case outcome.Warn:
			warnCount++
		}
	}

	drifted := errorCount > previous.ErrorCount || warnCount > previous.WarnCount
	if drifted {
		s.logger.WithField("schema_name", schemaName).
			WithField("schema_version", latestVersion).
			WithField("product_version", c.productVersion).
			WithField("role", c.role).
			WithField("file_target", c.fileTarget).
			WithField("previous_error_count", previous.ErrorCount).
			WithField("new_error_count", errorCount).
			WithField("previous_warn_count", previous.WarnCount).
			WithField("new_warn_count", warnCount).
			Warn("reconcile: schema drift detected")
		if s.metrics != nil {
			s.metrics.ReconcileDriftTotal.WithLabelValues(schemaName).Inc()
		}
	}

	_ = s.store.RecordRun(ctx, &registry.Run{
		SchemaName:     schemaName,
		SchemaVersion:  latestVersion,
		ProductVersion: c.productVersion,
		Role:           c.role,
		FileTarget:     c.fileTarget,
		ErrorCount:     errorCount,
		WarnCount:      warnCount,
	})

	return drifted
}
