// Package main is the entry point for the skusync API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skusync/internal/domain/activity"
	"skusync/internal/domain/auth"
	"skusync/internal/domain/catalog"
	"skusync/internal/domain/settings"
	syncdomain "skusync/internal/domain/sync"
	v1 "skusync/internal/infrastructure/http/v1"
	"skusync/internal/infrastructure/storage/postgres"
	"skusync/internal/infrastructure/teamleader"
	"skusync/pkg/logger"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting skusync server")

	// --- Database ---
	dsn := mustEnv("DATABASE_URL")
	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// Periodic pool stats for capacity tuning.
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-statsCtx.Done():
				return
			case <-ticker.C:
				postgres.LogPoolStats(statsCtx, pool.Unwrap())
			}
		}
	}()

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	productRepo := postgres.NewProductRepo(txManager)
	marginRepo := postgres.NewMarginRepo(txManager)
	userRepo := postgres.NewUserRepo(txManager)
	integrationRepo := postgres.NewIntegrationRepo(txManager)
	settingsRepo := postgres.NewSettingsRepo(integrationRepo)
	credentialStore := postgres.NewTeamleaderStore(integrationRepo)

	activityRepo, err := postgres.NewActivityRepo(txManager)
	if err != nil {
		log.Fatalw("failed to initialize activity storage", "error", err)
	}

	// --- Services ---
	jwtSecret := mustEnv("JWT_SECRET")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(userRepo, jwtService, auth.DefaultServiceConfig())

	activityService := activity.NewService(activityRepo)
	settingsService := settings.NewService(settingsRepo)
	catalogService := catalog.NewService(productRepo, marginRepo, settingsService, activityService)

	tlClient := teamleader.NewClient(teamleader.Config{
		AuthBaseURL:    getEnv("TEAMLEADER_AUTH_URL", ""),
		APIBaseURL:     getEnv("TEAMLEADER_API_URL", ""),
		B2BPriceListID: getEnv("TEAMLEADER_B2B_PRICE_LIST_ID", ""),
	}, credentialStore)

	syncService := syncdomain.NewService(productRepo, tlClient, activityService)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:            pool,
		Logger:          log,
		JWTValidator:    jwtService,
		AuthService:     authService,
		CatalogService:  catalogService,
		SettingsService: settingsService,
		SyncService:     syncService,
		ActivityService: activityService,
		Teamleader:      tlClient,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
