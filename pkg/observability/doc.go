// Package observability provides structured logging, the Observer capability
// used by the GraphQL pipeline and session normalizer, Prometheus metrics,
// health checks and OpenTelemetry setup.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("endpoint", endpoint).Info("client created")
//
// # Observers
//
// Pipeline stages and the session normalizer never log directly. They report
// scope/event pairs to an injected Observer:
//
//	obs := observability.NewLoggerObserver(logger)
//	obs.Warn("transport:link:auth", "missing-token", nil)
//
// NopObserver discards events, LogrusObserver forwards them to logrus and
// Recorder captures them for tests.
//
// # Prometheus Metrics
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.RecordOperation("Me", "success", time.Since(start))
//	http.Handle("/metrics", metrics.Handler())
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "novo-gateway",
//	}, logger)
//	defer providers.Shutdown(ctx)
package observability
