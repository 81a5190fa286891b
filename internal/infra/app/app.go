package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/core/port"
	"github.com/loadtrail/freight-authz/internal/infra/config"
	"github.com/loadtrail/freight-authz/internal/infra/database"
	kafkainfra "github.com/loadtrail/freight-authz/internal/infra/kafka"
	"github.com/loadtrail/freight-authz/internal/infra/logger"
	redisinfra "github.com/loadtrail/freight-authz/internal/infra/redis"
	"github.com/loadtrail/freight-authz/internal/infra/telemetry"
	postgresrepo "github.com/loadtrail/freight-authz/internal/repository/postgres"
	redisrepo "github.com/loadtrail/freight-authz/internal/repository/redis"
	"github.com/loadtrail/freight-authz/internal/transport/http/middleware"
	"github.com/loadtrail/freight-authz/internal/transport/http/routes"
	"github.com/loadtrail/freight-authz/internal/usecase"
)

type Application struct {
	cfg     *config.AppConfig
	engine  *gin.Engine
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redisinfra.Client
	tracing *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	metrics, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var tracing *telemetry.TracerProvider
	if cfg.Telemetry.OTLPEndpoint != "" {
		tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
		if err != nil {
			log.Warn("failed to init tracer provider, continuing without tracing", zap.Error(err))
			tracing = nil
		}
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	var notificationSink port.NotificationSink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			stub := kafkainfra.NewStubPublisher(log)
			eventPublisher = stub
			notificationSink = stub
		} else {
			publisher := kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, metrics, log)
			eventPublisher = publisher
			notificationSink = kafkainfra.NewNotificationPublisher(publisher)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		stub := kafkainfra.NewStubPublisher(log)
		eventPublisher = stub
		notificationSink = stub
	}

	catalogCache := redisrepo.NewCatalogCache(redisClient.Client(), cfg.Redis.CatalogKey)
	catalogLoader := usecase.NewCatalogLoader(catalogCache, log)
	catalog, err := catalogLoader.Load(ctx)
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("load permission catalog: %w", err)
	}

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitKey,
		TTL:       rateLimitWindow * 2,
	})

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	resolver := usecase.NewRoleResolver(repos.Users, repos.Roles, catalog)
	roleService := usecase.NewRoleService(repos.Roles, repos.Users, repos.History, catalog, log)
	recorder := usecase.NewEventRecorder(repos.Events, repos.History, eventPublisher, notificationSink, log)
	historyService := usecase.NewHistoryService(repos.Events, repos.History)
	archiveService := usecase.NewArchiveService(repos.History, log).WithMetrics(metrics)
	exportService := usecase.NewExportService(repos.History)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Resolver: resolver,
			Roles:    roleService,
			Recorder: recorder,
			History:  historyService,
			Archive:  archiveService,
			Export:   exportService,
			Catalog:  catalogLoader,
		},
	})

	return &Application{
		cfg:     cfg,
		engine:  engine,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		tracing: tracing,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.tracing != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = a.tracing.Shutdown(shutdownCtx)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting authorization API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
