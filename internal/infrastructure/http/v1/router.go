// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"skusync/internal/domain/activity"
	"skusync/internal/domain/auth"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/settings"
	syncdomain "skusync/internal/domain/sync"
	"skusync/internal/infrastructure/http/v1/handlers"
	"skusync/internal/infrastructure/http/v1/middleware"
	"skusync/internal/infrastructure/storage/postgres"
	"skusync/internal/infrastructure/teamleader"
	"skusync/pkg/logger"
)

// RouterConfig holds everything the router wires together.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator

	AuthService     *auth.Service
	CatalogService  *catalog.Service
	SettingsService *settings.Service
	SyncService     *syncdomain.Service
	ActivityService *activity.Service
	Teamleader      *teamleader.Client
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	authHandler := handlers.NewAuthHandler(cfg.AuthService)
	productHandler := handlers.NewProductHandler(cfg.CatalogService)
	settingsHandler := handlers.NewSettingsHandler(cfg.SettingsService)
	syncHandler := handlers.NewSyncHandler(cfg.SyncService)
	logHandler := handlers.NewLogHandler(cfg.ActivityService)
	relayHandler := handlers.NewRelayHandler(cfg.Teamleader)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Public: login only.
		v1.POST("/auth/login", authHandler.Login)

		// Everything else needs a valid token.
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		protected.GET("/auth/me", authHandler.Me)

		products := protected.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/template", productHandler.Template)
			products.GET("/:id", productHandler.Get)
			products.GET("/:id/validate", productHandler.Validate)

			// Mutations require editor rights.
			editor := products.Group("")
			editor.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleEditor))
			editor.POST("", productHandler.Save)
			editor.POST("/bulk-margins", productHandler.BulkMargins)
			editor.DELETE("/:id", productHandler.Delete)
		}

		settingsGroup := protected.Group("/settings")
		{
			settingsGroup.GET("", settingsHandler.Get)
			settingsGroup.POST("/formula-check", settingsHandler.CheckFormula)
			settingsGroup.PUT("", middleware.RequireRole(auth.RoleAdmin), settingsHandler.Save)
		}

		syncGroup := protected.Group("/sync")
		syncGroup.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleEditor))
		{
			syncGroup.POST("/products", syncHandler.SyncAll)
			syncGroup.POST("/products/:id", syncHandler.SyncOne)
		}

		teamleaderGroup := protected.Group("/teamleader")
		{
			teamleaderGroup.GET("/status", relayHandler.Status)
			teamleaderGroup.POST("/relay", middleware.RequireRole(auth.RoleAdmin), relayHandler.Relay)
		}

		protected.GET("/logs", logHandler.Recent)

		// User management is admin only.
		users := protected.Group("/users")
		users.Use(middleware.RequireRole(auth.RoleAdmin))
		{
			users.GET("", authHandler.ListUsers)
			users.POST("", authHandler.CreateUser)
			users.PUT("/:id/role", authHandler.SetRole)
			users.PUT("/:id/password", authHandler.ResetPassword)
			users.DELETE("/:id", authHandler.DeleteUser)
		}
	}

	return router
}
