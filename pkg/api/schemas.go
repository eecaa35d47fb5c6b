package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/propconf/pkg/httputil"
	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/registry"
	"github.com/platinummonkey/propconf/pkg/schema"
)

// handleGetSchema handles GET /v1/schemas/{name}/{version}, returning the
// raw YAML document. version may be "latest".
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	ver := vars["version"]

	ctx := r.Context()
	if ver == "latest" {
		resolved, err := s.store.LatestSchemaVersion(ctx, name)
		if err != nil {
			httputil.WriteNotFoundError(w, "no published revision for schema "+name)
			return
		}
		ver = resolved
	}

	doc, err := s.store.GetSchema(ctx, name, ver)
	if err != nil {
		httputil.WriteNotFoundError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("X-Schema-Version", doc.Version)
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Content)
}

// handleListSchemaVersions handles GET /v1/schemas/{name}.
func (s *Server) handleListSchemaVersions(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	versions, err := s.store.ListSchemaVersions(r.Context(), name)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if len(versions) == 0 {
		httputil.WriteNotFoundError(w, "no revisions for schema "+name)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"schema_name": name,
		"versions":    versions,
	})
}

// handleListRuns handles GET /v1/schemas/{name}/{version}/runs, returning
// the audit trail of validate() calls recorded against that revision.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, ver := vars["name"], vars["version"]

	runs, err := s.store.ListRunsForSchema(r.Context(), name, ver)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{
		"schema_name":    name,
		"schema_version": ver,
		"runs":           runs,
	})
}

// handlePutSchema handles PUT /v1/schemas/{name}/{version}: the body is a
// raw YAML schema document. It is loaded (and therefore fully validated
// against every invariant pkg/schema enforces) before it is ever written to
// the store, so a bad publish never reaches readers.
func (s *Server) handlePutSchema(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, ver := vars["name"], vars["version"]

	content, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body: "+err.Error())
		return
	}

	if _, err := schema.Load(content); err != nil {
		if loadErr, ok := err.(*schema.LoadError); ok {
			httputil.WriteDetailedError(w, http.StatusUnprocessableEntity, loadErr, issueDetails(loadErr))
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	ctx := r.Context()
	doc := &registry.SchemaDocument{
		Name:      name,
		Version:   ver,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.PutSchema(ctx, doc); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if err := s.store.InvalidateCache(ctx, name); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("failed to invalidate cache after publish")
	}

	if s.metrics != nil {
		s.metrics.RegistryOperationsTotal.WithLabelValues("put_schema", "api", "ok").Inc()
	}

	httputil.WriteCreated(w, map[string]string{
		"schema_name":    name,
		"schema_version": ver,
	})
}

func issueDetails(err *schema.LoadError) map[string]string {
	details := make(map[string]string, len(err.Issues))
	for _, issue := range err.Issues {
		details[issue.Location] = string(issue.Kind) + ": " + issue.Message
	}
	return details
}
