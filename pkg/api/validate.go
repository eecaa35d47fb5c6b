package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/propconf/pkg/expand"
	"github.com/platinummonkey/propconf/pkg/httputil"
	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/outcome"
	"github.com/platinummonkey/propconf/pkg/registry"
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/validate"
	"github.com/platinummonkey/propconf/pkg/version"
)

type valueInput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// validateRequest is the POST /v1/validate request body. SchemaRef is
// "name" (resolves to the latest published revision) or "name@version".
type validateRequest struct {
	SchemaRef      string       `json:"schema_ref"`
	ProductVersion string       `json:"product_version"`
	Role           string       `json:"role"`
	FileTarget     string       `json:"file_target,omitempty"` // empty projects onto env names
	Values         []valueInput `json:"values"`
}

func splitSchemaRef(ref string) (name, version string) {
	if i := strings.LastIndex(ref, "@"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, "latest"
}

type propertyOutcome struct {
	Name           string                `json:"name"`
	Kind           string                `json:"kind"`
	Value          string                `json:"value,omitempty"`
	WarnKind       outcome.WarnKind      `json:"warn_kind,omitempty"`
	ErrorKind      outcome.ErrorKind     `json:"error_kind,omitempty"`
	ExtraKinds     []outcome.ErrorKind   `json:"extra_error_kinds,omitempty"`
	OffendingValue string                `json:"offending_value,omitempty"`
	Recommended    string                `json:"recommended,omitempty"`
	Hidden         bool                  `json:"hidden,omitempty"`
}

type validateResponse struct {
	SchemaName    string            `json:"schema_name"`
	SchemaVersion string            `json:"schema_version"`
	Valid         bool              `json:"valid"`
	ErrorCount    int               `json:"error_count"`
	WarnCount     int               `json:"warn_count"`
	Properties    []propertyOutcome `json:"properties"`
}

// handleValidate handles POST /v1/validate: resolve the named schema
// (defaulting to its latest revision), run validate.Run against the
// supplied values, and record the run to the registry's audit trail.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SchemaRef, "schema_ref") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.ProductVersion, "product_version") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Role, "role") {
		return
	}

	ctx := r.Context()
	schemaName, resolvedVersion := splitSchemaRef(req.SchemaRef)
	if resolvedVersion == "latest" {
		v, err := s.store.LatestSchemaVersion(ctx, schemaName)
		if err != nil {
			httputil.WriteNotFoundError(w, "no published revision for schema "+schemaName)
			return
		}
		resolvedVersion = v
	}

	compiled, err := s.resolveSchema(ctx, schemaName, resolvedVersion)
	if err != nil {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}

	productVersion, err := version.Parse(req.ProductVersion)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid product_version: "+err.Error())
		return
	}

	target := validate.Target{Kind: validate.TargetEnv}
	if req.FileTarget != "" {
		target = validate.Target{Kind: validate.TargetFile, File: req.FileTarget}
	}

	userValues := make([]expand.UserValue, 0, len(req.Values))
	for _, v := range req.Values {
		userValues = append(userValues, expand.UserValue{Name: v.Name, Value: v.Value})
	}

	start := time.Now()
	results := validate.Run(compiled, productVersion, req.Role, target, userValues)
	duration := time.Since(start)

	resp := validateResponse{
		SchemaName:    schemaName,
		SchemaVersion: resolvedVersion,
		Valid:         true,
		Properties:    make([]propertyOutcome, 0, results.Len()),
	}
	for _, entry := range results.Entries() {
		o := entry.Outcome
		po := propertyOutcome{
			Name:           entry.Name,
			Kind:           o.Kind.String(),
			Value:          o.Value,
			WarnKind:       o.WarnKind,
			ErrorKind:      o.ErrorKind,
			ExtraKinds:     o.Extra,
			OffendingValue: o.OffendingValue,
			Hidden:         o.Hidden,
		}
		if o.HasRecommended {
			po.Recommended = o.Recommended
		}
		resp.Properties = append(resp.Properties, po)

		switch o.Kind {
		case outcome.Error:
			resp.ErrorCount++
			resp.Valid = false
		case outcome.Warn:
			resp.WarnCount++
		}
		if s.metrics != nil {
			s.metrics.ValidateOutcomesTotal.WithLabelValues(schemaName, o.Kind.String()).Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.ValidateRunsTotal.WithLabelValues(schemaName, req.Role).Inc()
		s.metrics.ValidateDuration.WithLabelValues(schemaName).Observe(duration.Seconds())
	}

	if err := s.store.RecordRun(ctx, &registry.Run{
		SchemaName:     schemaName,
		SchemaVersion:  resolvedVersion,
		ProductVersion: req.ProductVersion,
		Role:           req.Role,
		FileTarget:     req.FileTarget,
		ErrorCount:     resp.ErrorCount,
		WarnCount:      resp.WarnCount,
	}); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to record validate run")
	}

	status := http.StatusOK
	if !resp.Valid {
		status = http.StatusUnprocessableEntity
	}
	httputil.WriteJSONOrError(w, status, resp, "encode validate response")
}

// resolveSchema returns the compiled schema for name@version, preferring
// the cache tier when one is configured.
func (s *Server) resolveSchema(ctx context.Context, name, ver string) (*schema.Schema, error) {
	if s.cache != nil {
		return s.cache.GetCompiledSchema(ctx, name, ver)
	}
	doc, err := s.store.GetSchema(ctx, name, ver)
	if err != nil {
		return nil, err
	}
	return schema.Load(doc.Content)
}
