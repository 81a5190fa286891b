package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loadtrail/freight-authz/internal/infra/config"
	"github.com/loadtrail/freight-authz/internal/transport/http/handlers"
	"github.com/loadtrail/freight-authz/internal/transport/http/middleware"
	"github.com/loadtrail/freight-authz/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Resolver *usecase.RoleResolver
	Roles    *usecase.RoleService
	Recorder *usecase.EventRecorder
	History  *usecase.HistoryService
	Archive  *usecase.ArchiveService
	Export   *usecase.ExportService
	Catalog  *usecase.CatalogLoader
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.Use(middleware.Logger(deps.Logger))

	if httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err != nil {
		deps.Logger.Warn("failed to register http metrics, continuing without them", zap.Error(err))
	} else {
		r.Use(httpMetrics.Handler())
	}

	healthOptions := make([]handlers.HealthOption, 0, 2)

	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}

	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		if deps.Services.Resolver != nil {
			accessHandler := handlers.NewAccessHandler(deps.Services.Resolver, deps.Services.Catalog)

			userGroup := api.Group("/users")
			accessHandler.RegisterUserRoutes(userGroup)

			catalogGroup := api.Group("/permissions")
			accessHandler.RegisterCatalogRoutes(catalogGroup)
		}

		if deps.Services.Roles != nil {
			rolesGroup := api.Group("/roles")
			if deps.Services.Resolver != nil {
				rolesGroup.Use(middleware.RequirePermission(deps.Services.Resolver, usecase.PermissionManageRoles, deps.Logger))
			}
			roleHandler := handlers.NewRoleHandler(deps.Services.Roles)
			roleHandler.RegisterRoutes(rolesGroup)
		}

		if deps.Services.Recorder != nil && deps.Services.History != nil {
			loadsGroup := api.Group("/loads")
			loadsGroup.Use(middleware.RequireActor())
			eventHandler := handlers.NewEventHandler(deps.Services.Recorder, deps.Services.History)
			eventHandler.RegisterRoutes(loadsGroup)
		}

		if deps.Services.History != nil && deps.Services.Archive != nil {
			historyGroup := api.Group("/history")
			historyHandler := handlers.NewHistoryHandler(deps.Services.History, deps.Services.Archive)
			historyHandler.RegisterRoutes(historyGroup)

			if deps.Services.Export != nil {
				exportMiddlewares := buildExportMiddlewares(deps)
				exportGroup := historyGroup.Group("")
				if len(exportMiddlewares) > 0 {
					exportGroup.Use(exportMiddlewares...)
				}
				exportHandler := handlers.NewExportHandler(deps.Services.Export)
				exportHandler.RegisterRoutes(exportGroup)
			}
		}
	}

	return r
}

func buildExportMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.ExportMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       "history_export",
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ActorIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
