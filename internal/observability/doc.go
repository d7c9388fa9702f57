// Package observability provides logging, metrics, and tracing
// functionality for the payment proxy.
//
// Logging is structured via zap behind the Logger interface, metrics are
// collected into a dedicated Prometheus registry, and traces are exported
// through OpenTelemetry with an OTLP gRPC exporter.
//
// # Logging
//
//	logger, err := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request proxied",
//	    observability.Backend("paypal"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
//	metrics := observability.NewMetrics("solitude")
//	handler := metrics.Handler()
//
// # Tracing
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{
//	    ServiceName:  "solitude",
//	    OTLPEndpoint: "localhost:4317",
//	    Enabled:      true,
//	})
//	defer tracer.Shutdown(ctx)
package observability
