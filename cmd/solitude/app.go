package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	backendauth "github.com/vyrodovalexey/solitude/internal/backend/auth"
	"github.com/vyrodovalexey/solitude/internal/bluevia"
	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/health"
	"github.com/vyrodovalexey/solitude/internal/middleware"
	"github.com/vyrodovalexey/solitude/internal/observability"
	"github.com/vyrodovalexey/solitude/internal/proxy"
	"github.com/vyrodovalexey/solitude/internal/ratelimit"
	"github.com/vyrodovalexey/solitude/internal/vault"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "solitude"

// application holds all application components.
type application struct {
	config      *config.Config
	logger      observability.Logger
	metrics     *observability.Metrics
	tracer      *observability.Tracer
	vaultClient *vault.Client
	redisClient redis.UniversalClient
	limiter     ratelimit.Limiter
	dispatcher  *proxy.Dispatcher
	health      *health.Handler
	handler     http.Handler
	server      *http.Server
	adminServer *http.Server

	// logLevelPinned keeps reloads from overriding a flag or env level.
	logLevelPinned bool
	// lastReload is the configuration seen by the previous reload. It is
	// only touched by the watcher goroutine.
	lastReload *config.Config
}

// initApplication wires every component from cfg. Components created
// before a failure are released before the error is returned.
func initApplication(cfg *config.Config, logger observability.Logger) (app *application, err error) {
	metrics := observability.NewMetrics(metricsNamespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	app = &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  observability.NopTracer(),
	}
	defer func() {
		if err != nil {
			app.closeResources(context.Background())
			app = nil
		}
	}()

	app.tracer, err = initTracer(cfg, logger)
	if err != nil {
		return app, err
	}

	healthMetrics := health.NewMetrics(metricsNamespace)
	metrics.MustRegisterCollector(healthMetrics)
	app.health = health.NewHandler(
		health.WithLogger(logger),
		health.WithMetrics(healthMetrics),
		health.WithVersion(version),
	)

	if err = initVault(app); err != nil {
		return app, err
	}
	if err = initRateLimiter(app); err != nil {
		return app, err
	}
	if err = initDispatcher(app); err != nil {
		return app, err
	}

	mux := http.NewServeMux()
	mux.Handle(proxy.RoutePattern, app.dispatcher)
	if err = initBluevia(app, mux); err != nil {
		return app, err
	}

	app.handler = buildMiddlewareChain(app)(observability.MetricsMiddleware(metrics)(mux))
	app.server = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           app.handler,
		ReadTimeout:       cfg.Server.ReadTimeout.OrDefault(config.DefaultReadTimeout),
		ReadHeaderTimeout: cfg.Server.ReadTimeout.OrDefault(config.DefaultReadTimeout),
		WriteTimeout:      cfg.Server.WriteTimeout.OrDefault(config.DefaultWriteTimeout),
		IdleTimeout:       cfg.Server.IdleTimeout.OrDefault(config.DefaultIdleTimeout),
	}

	if cfg.Admin.Enabled {
		app.adminServer = createAdminServer(app)
	}

	return app, nil
}

// initTracer creates the tracer described by cfg.Tracing.
func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled",
			observability.String("service_name", serviceName),
			observability.String("otlp_endpoint", cfg.Tracing.OTLPEndpoint),
		)
	}
	return tracer, nil
}

// initVault connects to Vault when an address is configured and adds
// its readiness check.
func initVault(app *application) error {
	if app.config.Vault.Address == "" {
		return nil
	}

	vaultMetrics := vault.NewMetrics(metricsNamespace)
	app.metrics.MustRegisterCollector(vaultMetrics)

	client, err := vault.New(app.config.Vault, app.logger, vault.WithMetrics(vaultMetrics))
	if err != nil {
		return fmt.Errorf("failed to create vault client: %w", err)
	}
	app.vaultClient = client
	app.health.AddCheck(health.NewVaultCheck(client))

	app.logger.Info("vault client initialized",
		observability.String("address", app.config.Vault.Address),
	)
	return nil
}

// initRateLimiter builds the inbound limiter. The Redis store gets a
// readiness check.
func initRateLimiter(app *application) error {
	rl := app.config.RateLimit
	if !rl.Enabled {
		return nil
	}

	opts := []ratelimit.Option{ratelimit.WithLogger(app.logger)}
	if rl.Store == config.RateLimitStoreRedis {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     rl.Redis.Address,
			Password: rl.Redis.Password,
			DB:       rl.Redis.DB,
		})
		opts = append(opts, ratelimit.WithRedisClient(app.redisClient))
		app.health.AddCheck(health.NewRedisCheck(app.redisClient))
	}

	limiter, err := ratelimit.New(rl, opts...)
	if err != nil {
		return fmt.Errorf("failed to create rate limiter: %w", err)
	}
	app.limiter = limiter

	app.logger.Info("rate limiting enabled",
		observability.String("store", limiter.Store()),
		observability.Int("requests", rl.Requests),
		observability.Int("burst", rl.Burst),
	)
	return nil
}

// initDispatcher builds the backend adapters and the dispatcher.
func initDispatcher(app *application) error {
	authMetrics := backendauth.NewMetrics(metricsNamespace)
	app.metrics.MustRegisterCollector(authMetrics)

	// A nil *vault.Client must not become a non-nil interface.
	var reader vault.KVReader
	if app.vaultClient != nil {
		reader = app.vaultClient
	}

	adapters, err := proxy.NewAdaptersFromConfig(app.config.Proxy, reader,
		proxy.WithFactoryLogger(app.logger),
		proxy.WithAuthMetrics(authMetrics),
	)
	if err != nil {
		return fmt.Errorf("failed to build proxy adapters: %w", err)
	}

	proxyMetrics := proxy.NewMetrics(metricsNamespace)
	app.metrics.MustRegisterCollector(proxyMetrics)

	app.dispatcher = proxy.NewDispatcher(adapters,
		proxy.WithLogger(app.logger),
		proxy.WithMetrics(proxyMetrics),
		proxy.WithTracer(app.tracer),
	)
	return nil
}

// initBluevia registers the pay-JWT endpoints when enabled.
func initBluevia(app *application, mux *http.ServeMux) error {
	if !app.config.Bluevia.Enabled {
		return nil
	}

	service, err := bluevia.NewService(app.config.Bluevia, bluevia.WithLogger(app.logger))
	if err != nil {
		return fmt.Errorf("failed to create bluevia service: %w", err)
	}
	bluevia.NewHandler(service, app.logger).Register(mux)

	app.logger.Info("bluevia endpoints enabled")
	return nil
}

// buildMiddlewareChain returns the middleware applied in front of the
// public mux, outermost first.
func buildMiddlewareChain(app *application) func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(app.logger),
		middleware.RequestID(),
		observability.TracingMiddleware(app.tracer),
		middleware.Logging(app.logger),
	}
	if app.limiter != nil {
		mws = append(mws, middleware.RateLimit(app.limiter,
			middleware.WithRateLimitLogger(app.logger),
			middleware.WithRateLimitMetrics(app.metrics),
		))
	}
	mws = append(mws, middleware.BodyLimit(app.config.Server.MaxBodyBytes, app.logger))

	return middleware.Chain(mws...)
}

// createAdminServer builds the listener serving health probes and
// Prometheus metrics.
func createAdminServer(app *application) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	metricsPath := app.config.Admin.MetricsPath
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}
	address := app.config.Admin.Address
	if address == "" {
		address = config.DefaultAdminAddress
	}

	return &http.Server{
		Addr:              address,
		Handler:           health.NewRouter(app.health, app.metrics.Handler(), metricsPath),
		ReadTimeout:       config.DefaultReadTimeout,
		ReadHeaderTimeout: config.DefaultReadTimeout,
		WriteTimeout:      config.DefaultWriteTimeout,
	}
}
