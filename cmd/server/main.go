package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appintegration "github.com/ledgercrm/backend/internal/application/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/auth"
	"github.com/ledgercrm/backend/internal/infrastructure/cache"
	"github.com/ledgercrm/backend/internal/infrastructure/config"
	"github.com/ledgercrm/backend/internal/infrastructure/connectors"
	"github.com/ledgercrm/backend/internal/infrastructure/logger"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence"
	"github.com/ledgercrm/backend/internal/infrastructure/scheduler"
	"github.com/ledgercrm/backend/internal/infrastructure/telemetry"
	"github.com/ledgercrm/backend/internal/interfaces/http/handler"
	"github.com/ledgercrm/backend/internal/interfaces/http/middleware"
	"github.com/ledgercrm/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			LedgerCRM Integrations API
//	@version		1.0
//	@description	External integrations backend: provider connections, OAuth lifecycle, field mappings and bidirectional sync.

//	@contact.name	API Support
//	@contact.email	support@ledgercrm.example.com

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting LedgerCRM Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize tracing (no-op provider when disabled)
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Route GORM's SQL traces through the zap logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Token cipher for provider credentials and webhook secrets at rest
	cipherKey, err := integrationCipherKey(cfg.Integrations.EncryptionKey, log)
	if err != nil {
		log.Fatal("Failed to load integrations encryption key", zap.Error(err))
	}
	tokenCipher, err := persistence.NewTokenCipher(cipherKey)
	if err != nil {
		log.Fatal("Failed to initialize token cipher", zap.Error(err))
	}

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB, tokenCipher)
	syncConfigRepo := persistence.NewGormSyncConfigRepository(db.DB)
	fieldMappingRepo := persistence.NewGormFieldMappingRepository(db.DB)
	syncRecordRepo := persistence.NewGormSyncRecordRepository(db.DB)
	syncLogRepo := persistence.NewGormSyncLogRepository(db.DB)
	webhookRepo := persistence.NewGormWebhookRepository(db.DB, tokenCipher)
	localStore := persistence.NewGormLocalStore(db.DB)

	// Provider connector registry with configured request timeout
	registry := connectors.NewDefaultRegistry(log,
		connectors.WithHTTPClient(&http.Client{Timeout: cfg.Integrations.RequestTimeout}),
	)
	log.Info("Connector registry initialized",
		zap.Int("providers", len(registry.Providers())))

	// OAuth state store and webhook event deduper, Redis-backed when available
	storeFactory := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log))
	stateStore, err := storeFactory.CreateOAuthStateStore()
	if err != nil {
		log.Fatal("Failed to create OAuth state store", zap.Error(err))
	}
	eventDeduper, err := storeFactory.CreateEventDeduper()
	if err != nil {
		log.Fatal("Failed to create event deduper", zap.Error(err))
	}

	// Initialize application services
	oauthManager := appintegration.NewOAuthManager(
		integrationRepo, stateStore, registry,
		cfg.Integrations.StateTTL, cfg.Integrations.TokenRefreshMargin, log,
	)
	syncEngine := appintegration.NewSyncEngine(
		integrationRepo, syncConfigRepo, fieldMappingRepo,
		syncRecordRepo, syncLogRepo, localStore,
		registry, oauthManager, log,
	)
	integrationService := appintegration.NewIntegrationService(
		integrationRepo, syncConfigRepo, fieldMappingRepo,
		syncRecordRepo, syncLogRepo, webhookRepo,
		registry, syncEngine, oauthManager, log,
	)
	if cfg.Integrations.RedirectBaseURL != "" {
		integrationService.SetDefaultRedirectURI(cfg.Integrations.RedirectBaseURL + "/api/v1/integrations/oauth/callback")
	}

	// Identity service
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize sync scheduler (if enabled)
	var syncScheduler *scheduler.SyncScheduler
	if cfg.Scheduler.Enabled {
		var err error
		syncScheduler, err = scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
			Enabled:      cfg.Scheduler.Enabled,
			PollInterval: cfg.Scheduler.PollInterval,
			Workers:      cfg.Scheduler.Workers,
			JobTimeout:   cfg.Scheduler.JobTimeout,
		}, integrationService, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			if err := syncScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Duration("poll_interval", cfg.Scheduler.PollInterval),
			zap.Int("workers", cfg.Scheduler.Workers),
			zap.Duration("job_timeout", cfg.Scheduler.JobTimeout),
		)
	}

	// Initialize HTTP handlers
	integrationHandler := handler.NewIntegrationHandler(integrationService)
	webhookHandler := handler.NewWebhookHandler(integrationService, eventDeduper, cfg.Integrations.WebhookDedupTTL, log)
	systemHandler := handler.NewSystemHandler()
	if syncScheduler != nil {
		systemHandler.SetJobHistorySource(syncScheduler)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Record spans (if enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Provider webhook endpoints (no authentication required)
	// These are called directly by external providers; payload signatures
	// are verified inside the handler.
	webhookGroup := engine.Group("/api/v1/webhooks")
	webhookGroup.POST("/:id", webhookHandler.Receive)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
			"/api/v1/integrations/oauth/callback",
		},
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Resolve the organization after authentication. JWT claims win; the
	// X-Organization-ID header covers service-to-service calls.
	orgConfig := middleware.DefaultOrganizationConfig()
	orgConfig.SkipPaths = []string{
		"/api/v1/ping",
		"/api/v1/system/ping",
		"/api/v1/system/info",
		"/api/v1/integrations/oauth/callback",
		"/api/v1/webhooks",
	}
	orgConfig.Logger = log
	r.Use(middleware.OrganizationMiddlewareWithConfig(orgConfig))

	// Integrations domain (provider connections, OAuth, sync triggers)
	integrationRoutes := router.NewDomainGroup("integrations", "/integrations")
	integrationRoutes.POST("", integrationHandler.Create)
	integrationRoutes.GET("", integrationHandler.List)
	integrationRoutes.GET("/providers", integrationHandler.ListProviders)
	integrationRoutes.GET("/oauth/callback", integrationHandler.Callback)
	integrationRoutes.GET("/:id", integrationHandler.GetByID)
	integrationRoutes.DELETE("/:id", integrationHandler.Delete)
	integrationRoutes.POST("/:id/test", integrationHandler.TestConnection)
	integrationRoutes.POST("/:id/connect", integrationHandler.Connect)
	integrationRoutes.GET("/:id/health", integrationHandler.Health)
	integrationRoutes.POST("/:id/sync", integrationHandler.TriggerSync)
	integrationRoutes.POST("/:id/sync-configs", integrationHandler.CreateSyncConfig)
	integrationRoutes.GET("/:id/sync-configs", integrationHandler.ListSyncConfigs)
	integrationRoutes.POST("/:id/webhooks", integrationHandler.CreateWebhook)
	integrationRoutes.GET("/:id/webhooks", integrationHandler.ListWebhooks)
	integrationRoutes.DELETE("/:id/webhooks/:webhook_id", integrationHandler.DeleteWebhook)

	// Sync config routes (per-entity sync settings, mappings, run history)
	syncConfigRoutes := router.NewDomainGroup("sync-configs", "/sync-configs")
	syncConfigRoutes.PATCH("/:id", integrationHandler.UpdateSyncConfig)
	syncConfigRoutes.DELETE("/:id", integrationHandler.DeleteSyncConfig)
	syncConfigRoutes.POST("/:id/mappings", integrationHandler.CreateFieldMapping)
	syncConfigRoutes.GET("/:id/mappings", integrationHandler.ListFieldMappings)
	syncConfigRoutes.DELETE("/:id/mappings/:mapping_id", integrationHandler.DeleteFieldMapping)
	syncConfigRoutes.GET("/:id/runs", integrationHandler.ListSyncRuns)
	syncConfigRoutes.GET("/:id/conflicts", integrationHandler.ListConflicts)

	// Sync record routes (conflict resolution)
	syncRecordRoutes := router.NewDomainGroup("sync-records", "/sync-records")
	syncRecordRoutes.POST("/:id/resolve", integrationHandler.ResolveConflict)

	// Local change notifications from the rest of the application
	syncRoutes := router.NewDomainGroup("sync", "/sync")
	syncRoutes.POST("/local-changes", integrationHandler.NotifyLocalChange)

	// Register all domain groups
	r.Register(integrationRoutes).
		Register(syncConfigRoutes).
		Register(syncRecordRoutes).
		Register(syncRoutes)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.GET("/sync-jobs", systemHandler.ListSyncJobs)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// integrationCipherKey decodes the configured hex key. When no key is
// configured (development only, enforced by config validation) an
// ephemeral key is generated; stored credentials will not survive a
// restart.
func integrationCipherKey(encoded string, log *zap.Logger) ([]byte, error) {
	if encoded == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate ephemeral key: %w", err)
		}
		log.Warn("integrations.encryption_key not set, using an ephemeral key; " +
			"stored provider credentials will not survive a restart")
		return key, nil
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("integrations.encryption_key must be hex-encoded: %w", err)
	}
	return key, nil
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
