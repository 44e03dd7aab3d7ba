package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/novo-auth/pkg/api"
	"github.com/platinummonkey/novo-auth/pkg/auth"
	"github.com/platinummonkey/novo-auth/pkg/config"
	"github.com/platinummonkey/novo-auth/pkg/gqlclient"
	"github.com/platinummonkey/novo-auth/pkg/middleware"
	"github.com/platinummonkey/novo-auth/pkg/observability"
	"github.com/platinummonkey/novo-auth/pkg/session"
	"github.com/platinummonkey/novo-auth/pkg/transport"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// sessionStore is what the gateway needs from a session backend.
type sessionStore interface {
	session.Store
	session.Sweeper
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "novo-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", "novo-gateway").
		WithField("version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,

		GraphQLEndpoint: cfg.GraphQL.Endpoint,
		SessionStore:    cfg.Session.Store,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	observer := observability.NewLoggerObserver(logger)
	normalizer := session.NewNormalizer(
		session.WithObserver(observer),
		session.WithMetrics(metrics),
	)

	// Session storage
	var (
		store       sessionStore
		redisClient *redis.Client
	)
	switch cfg.Session.Store {
	case config.StoreRedis:
		rs, err := session.NewRedisStore(ctx, session.RedisConfig{
			URL:        cfg.Session.RedisURL,
			Password:   cfg.Session.RedisPassword,
			DB:         cfg.Session.RedisDB,
			MaxRetries: cfg.Session.RedisMaxRetries,
			PoolSize:   cfg.Session.RedisPoolSize,
			MaxAge:     cfg.Session.MaxAge,
		})
		if err != nil {
			return err
		}
		store, redisClient = rs, rs.Client()
		logger.Info("Using Redis session store")
	default:
		store = session.NewMemoryStore(cfg.Session.MemorySize, cfg.Session.MaxAge)
		logger.Info("Using in-memory session store")
	}

	// Backend client. Requests from different users share this client, so it
	// carries no cookie jar; identity travels only in the bearer token.
	client, err := gqlclient.New(gqlclient.Config{
		Endpoint:      cfg.GraphQL.Endpoint,
		TokenAccessor: auth.ContextAccessor(normalizer),
		Observer:      observer,
		Metrics:       metrics,
		Logger:        logger,
		HTTPClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.GraphQL.RequestTimeout,
		},
		CacheSize: cfg.GraphQL.CacheSize,
		CacheTTL:  cfg.GraphQL.CacheTTL,
	})
	if err != nil {
		return err
	}
	service := auth.NewService(client, store, normalizer, observer)

	health := observability.NewHealthChecker(redisClient, version)
	health.AddCheck("graphql", observability.PingFunc(func(ctx context.Context) error {
		// Any GraphQL answer, even an error, means the backend is up.
		if _, err := service.SessionStatus(ctx); transport.IsNetworkError(err) {
			return err
		}
		return nil
	}))

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		rl := &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			WindowDuration:    cfg.RateLimit.Window,
			BurstSize:         cfg.RateLimit.Burst,
		}
		if redisClient != nil {
			limiter = middleware.NewDistributedRateLimiter(redisClient, rl, "")
		} else {
			local := middleware.NewRateLimiter(rl)
			local.StartCleanup(ctx)
			limiter = local
		}
	}

	server := api.NewServer(service, api.Options{
		Normalizer: normalizer,
		Cookie: middleware.CookieConfig{
			Name:     cfg.Cookie.Name,
			Domain:   cfg.Cookie.Domain,
			Path:     "/",
			Secure:   cfg.Cookie.Secure,
			SameSite: cfg.Cookie.SameSiteMode(),
			MaxAge:   cfg.Session.MaxAge,
		},
		Limiter:      limiter,
		Health:       health,
		Metrics:      metrics,
		Logger:       logger,
		Observer:     observer,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	reaper, err := session.NewReaper(store, normalizer, cfg.Session.ReapSchedule, logger, metrics)
	if err != nil {
		return err
	}
	reaper.Start()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(reaper.Stop)
	shutdown.RegisterShutdownFunc(providers.Shutdown)
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(context.Context) error {
			return redisClient.Close()
		})
	}

	go func() {
		defer observability.RecoverPanic(logger, "http server")

		logger.WithField("addr", httpServer.Addr).Info("Starting novo gateway")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("HTTP server failed")
			stop()
		}
	}()

	return shutdown.WaitForShutdown(ctx)
}
