// Package api exposes the registry over HTTP: validating configuration
// values against a published schema, and publishing, fetching, and listing
// schema document revisions. It is the thin transport shell around
// pkg/validate, pkg/schema, and pkg/registry — every interesting decision
// lives in those packages.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/propconf/pkg/auth"
	"github.com/platinummonkey/propconf/pkg/httputil"
	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/registry"
)

// PublishRole is the role a verified Principal must carry to publish a new
// schema document revision.
const PublishRole = "publish"

// Server wires the registry, the validation engine, and observability into
// a routable HTTP handler.
type Server struct {
	store   registry.Registry
	cache   *registry.Cache // optional; nil means compile on every request
	metrics *observability.Metrics
	logger  *observability.Logger

	verifier auth.Verifier // optional; nil disables publish-endpoint auth

	router  *mux.Router
	handler http.Handler // router wrapped with otelhttp span instrumentation
}

// Options configures optional Server behavior.
type Options struct {
	// Cache, when set, is consulted for compiled schemas instead of
	// recompiling the stored document on every validate call.
	Cache *registry.Cache
	// Verifier, when set, gates the publish endpoint with RequireRole.
	Verifier auth.Verifier
}

// NewServer builds a Server and registers its routes.
func NewServer(store registry.Registry, metrics *observability.Metrics, logger *observability.Logger, opts Options) *Server {
	s := &Server{
		store:    store,
		cache:    opts.Cache,
		metrics:  metrics,
		logger:   logger,
		verifier: opts.Verifier,
		router:   mux.NewRouter(),
	}
	s.setupRoutes()
	s.handler = otelhttp.NewHandler(s.router, "propconf.api")
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(mux.MiddlewareFunc(recoveryMiddleware(s.logger)))
	s.router.Use(mux.MiddlewareFunc(requestIDMiddleware))
	s.router.Use(mux.MiddlewareFunc(loggingMiddleware(s.logger)))
	if s.metrics != nil {
		s.router.Use(mux.MiddlewareFunc(observability.HTTPMetricsMiddleware(s.metrics)))
	}

	s.router.HandleFunc("/v1/validate", s.handleValidate).Methods(http.MethodPost)

	s.router.HandleFunc("/v1/schemas/{name}", s.handleListSchemaVersions).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/schemas/{name}/{version}", s.handleGetSchema).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/schemas/{name}/{version}/runs", s.handleListRuns).Methods(http.MethodGet)

	var publishHandler http.Handler = http.HandlerFunc(s.handlePutSchema)
	if s.verifier != nil {
		publishHandler = auth.RequireRole(s.verifier, PublishRole, publishHandler)
	}
	s.router.Handle("/v1/schemas/{name}/{version}", httputil.MaxBytesMiddleware(1<<20)(publishHandler)).Methods(http.MethodPut)
}

// ServeHTTP implements http.Handler. Every request is wrapped in an otel
// span before it reaches the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying mux.Router so configd can wrap it with
// otelhttp or mount it under an API gateway prefix.
func (s *Server) Router() *mux.Router { return s.router }
