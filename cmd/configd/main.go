package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/propconf/pkg/api"
	"github.com/platinummonkey/propconf/pkg/auth"
	"github.com/platinummonkey/propconf/pkg/config"
	"github.com/platinummonkey/propconf/pkg/observability"
	"github.com/platinummonkey/propconf/pkg/reconcile"
	"github.com/platinummonkey/propconf/pkg/registry"
	"github.com/platinummonkey/propconf/pkg/registry/postgres"
	"github.com/platinummonkey/propconf/pkg/registry/s3"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("starting propconf registry")
	logger.Infof("registry backend: %s", cfg.Registry.Type)

	ctx := context.Background()
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("failed to initialize OpenTelemetry; continuing without it")
	}

	store, err := newBackend(cfg.Registry)
	if err != nil {
		log.Fatalf("failed to initialize registry backend: %v", err)
	}

	var cache *registry.Cache
	var l2 *redis.Client
	if cfg.Registry.CacheEnabled {
		if cfg.Registry.RedisURL != "" {
			opts, parseErr := redis.ParseURL(cfg.Registry.RedisURL)
			if parseErr != nil {
				logger.WithError(parseErr).Error("failed to parse redis URL; L2 cache disabled")
			} else {
				l2 = redis.NewClient(opts)
				logger.Info("L2 redis cache enabled")
			}
		}
		cache, err = registry.NewCache(store, cfg.Registry.L1CacheSize, l2, cfg.Registry.CacheTTL)
		if err != nil {
			logger.WithError(err).Error("failed to initialize compiled-schema cache; serving uncached")
			cache = nil
		} else {
			logger.Info("compiled-schema cache enabled")
		}
	}

	var verifier auth.Verifier
	if cfg.Auth.OIDCIssuerURL != "" {
		verifier, err = auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
			IssuerURL:   cfg.Auth.OIDCIssuerURL,
			ClientID:    cfg.Auth.OIDCClientID,
			GroupsClaim: cfg.Auth.OIDCGroupsClaim,
			Groups:      auth.GroupMapping(cfg.Auth.GroupRoles),
		})
		if err != nil {
			log.Fatalf("failed to initialize OIDC verifier: %v", err)
		}
		logger.Info("publish endpoint requires an authenticated publish-role principal")
	} else {
		logger.Warn("no OIDC issuer configured; publish endpoint is unauthenticated")
	}

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)
	server := api.NewServer(store, metrics, logger, api.Options{Cache: cache, Verifier: verifier})

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "propconf.registry")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthChecker := observability.NewHealthChecker(store, cfg.Observability.OTelServiceVersion)
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, healthChecker)
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, promRegistry)
	}

	healthServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	var scheduler *reconcile.Scheduler
	if cfg.Server.ReconcileSchedule != "" {
		sweeper := reconcile.New(store, cache, metrics, logger, cfg.Server.ReconcileConcurrency)
		scheduler, err = reconcile.NewScheduler(sweeper, logger, cfg.Server.ReconcileSchedule)
		if err != nil {
			logger.WithError(err).Error("failed to schedule reconciliation sweep; continuing without it")
		} else {
			scheduler.Start()
			logger.Infof("reconciliation sweep scheduled: %s", cfg.Server.ReconcileSchedule)
		}
	}

	go func() {
		logger.Infof("starting health/metrics server on port %s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	shutdownManager := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
		logger.Info("shutting down health server")
		return healthServer.Shutdown(ctx)
	})
	if scheduler != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			logger.Info("stopping reconciliation scheduler")
			<-scheduler.Stop().Done()
			return nil
		})
	}
	if l2 != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			logger.Info("closing L2 redis cache connection")
			return l2.Close()
		})
	}
	if otelProviders != nil {
		shutdownManager.RegisterShutdownFunc(func(ctx context.Context) error {
			logger.Info("shutting down OpenTelemetry")
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.Infof("starting registry API server on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	logger.Info("registry started successfully, waiting for shutdown signal")
	if err := shutdownManager.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
		os.Exit(1)
	}
	logger.Info("registry shutdown complete")
}

// newBackend selects a registry.Registry implementation from cfg.Type.
func newBackend(cfg registry.Config) (registry.Registry, error) {
	switch cfg.Type {
	case "filesystem":
		return registry.NewFileSystemRegistry(cfg.FilesystemRoot)
	case "postgres":
		return postgres.New(postgres.ConnectionConfig{
			URL:      cfg.PostgresURL,
			MaxConns: cfg.PostgresMaxConns,
			MinConns: cfg.PostgresMinConns,
			Timeout:  cfg.PostgresTimeout,
		})
	case "s3":
		return s3.New(s3.Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			UsePathStyle: cfg.S3UsePathStyle,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown registry type: %s", cfg.Type)
	}
}
