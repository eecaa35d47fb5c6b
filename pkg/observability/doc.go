// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing
// for configd and configctl.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging (backed by
// logrus), metrics collection, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).WithError(err).Error("validate failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.ValidateRunsTotal.WithLabelValues("worker", "worker").Inc()
//	metrics.ValidateOutcomesTotal.WithLabelValues("worker", "Error").Inc()
//
// Registry contents:
//
//	metrics.SchemasTotal.Set(float64(count))
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		ServiceName:    "configd",
//		ServiceVersion: "v1.0.0",
//		Endpoint:       "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/api: Request logging middleware
package observability
