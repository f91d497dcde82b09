package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	// swaggerFiles "github.com/swaggo/files"
	// ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	commonmw "github.com/OrangesCloud/wealist-advanced-go-pkg/middleware"

	"event-service/internal/client"
	"event-service/internal/config"
	"event-service/internal/handler"
	"event-service/internal/metrics"
	"event-service/internal/middleware"
	"event-service/internal/repository"
	"event-service/internal/service"
	ws "event-service/internal/websocket"
)

func Setup(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Middleware (using common package)
	r.Use(commonmw.Recovery(logger))
	r.Use(commonmw.Logger(logger))
	r.Use(commonmw.DefaultCORS())
	r.Use(commonmw.Metrics())

	// Initialize repositories and services
	eventRepo := repository.NewEventRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	broadcastService := service.NewBroadcastService(redisClient, m, logger)
	sessionService := service.NewSessionService(sessionRepo, broadcastService, m, logger)
	eventService := service.NewEventService(eventRepo, broadcastService, redisClient, cfg, m, logger)

	// Initialize handlers
	validator := middleware.NewAuthServiceValidator(cfg.Auth.ServiceURL, cfg.Auth.SecretKey, logger)
	workspaceClient := client.NewWorkspaceClient(cfg.Services.WorkspaceServiceURL, logger)
	hub := ws.NewHub(validator, workspaceClient, sessionService, broadcastService, m, logger)

	eventHandler := handler.NewEventHandler(eventService, logger)
	sessionHandler := handler.NewSessionHandler(sessionService, logger)
	healthHandler := handler.NewHealthHandler(redisClient, hub.Directory())

	// Health endpoints (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation (disabled for faster builds)
	// r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group(cfg.Server.BasePath)
	{
		// WebSocket endpoint does its own handshake auth (token via query
		// param because browsers cannot set headers on websocket upgrade)
		api.GET("/ws", hub.HandleWebSocket)

		// Event routes (require auth + workspace scope)
		events := api.Group("")
		events.Use(middleware.AuthMiddleware(validator))
		events.Use(middleware.WorkspaceMiddleware())
		{
			events.GET("", eventHandler.ListEvents)
			events.GET("/sync", eventHandler.SyncEvents)
			events.GET("/unconsumed", eventHandler.ListUnconsumed)
			events.GET("/unconsumed/count", eventHandler.UnconsumedCount)
			events.POST("/:id/consume", eventHandler.ConsumeEvent)
			events.POST("/consume", eventHandler.ConsumeEvents)
			events.GET("/entity/:entityType/:entityId", eventHandler.ListByEntity)
			events.GET("/type/:eventType", eventHandler.ListByType)

			events.GET("/sessions/active", sessionHandler.ListActive)
			events.GET("/sessions/active/count", sessionHandler.ActiveCount)
			events.GET("/sessions/user/:userId", sessionHandler.ListByUser)
			events.POST("/sessions/heartbeat", sessionHandler.Heartbeat)
			events.POST("/sessions/logout", sessionHandler.Logout)
		}

		// Internal API routes (require API key)
		internal := api.Group("/internal")
		internal.Use(middleware.InternalAuthMiddleware(cfg.Auth.InternalAPIKey))
		{
			internal.POST("/events", eventHandler.AppendEvent)
			internal.POST("/events/bulk", eventHandler.AppendEvents)
		}
	}

	return r
}
