package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accessapp "github.com/erp/payments/internal/application/access"
	paymentapp "github.com/erp/payments/internal/application/payment"
	pricingapp "github.com/erp/payments/internal/application/pricing"
	"github.com/erp/payments/internal/domain/access"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/erp/payments/internal/infrastructure/auth"
	"github.com/erp/payments/internal/infrastructure/cache"
	"github.com/erp/payments/internal/infrastructure/config"
	"github.com/erp/payments/internal/infrastructure/logger"
	"github.com/erp/payments/internal/infrastructure/persistence"
	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/erp/payments/internal/interfaces/http/handler"
	"github.com/erp/payments/internal/interfaces/http/middleware"
	"github.com/erp/payments/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Payments API
//	@version		1.0
//	@description	Multi-invoice payment registration service: batch payment grouping, write-offs, pricelists and menu visibility

//	@contact.name	API Support
//	@contact.email	support@payments.example.com

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

	log.Info("Starting payments backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry providers. Disabled providers are no-ops, so the rest of
	// the wiring does not branch on cfg.Telemetry.Enabled.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdownProvider(tracerProvider.Shutdown, "tracer provider", log)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownProvider(meterProvider.Shutdown, "meter provider", log)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdownProvider(loggerProvider.Shutdown, "logger provider", log)

	if loggerProvider.IsEnabled() {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: loggerProvider,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore)
		log.Info("Log export to collector enabled")
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Telemetry.Enabled && cfg.Telemetry.ProfilingEnabled,
		ServerAddress:       cfg.Telemetry.ProfilingServer,
		ApplicationName:     cfg.App.Name,
		ProfileCPU:          true,
		ProfileAllocSpace:   true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
		ProfileMutexCount:   true,
		ProfileBlockCount:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Initialize database connection
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database observability plugins
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: true,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	} else if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	registrationRepo := persistence.NewGormRegistrationRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	depositRepo := persistence.NewGormBatchDepositRepository(db.DB)
	policyRepo := persistence.NewGormDiscountPolicyRepository(db.DB)
	pricelistRepo := persistence.NewGormPricelistRepository(db.DB)
	menuRepo := persistence.NewGormMenuRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB)

	// Menu visibility cache (Redis with in-memory fallback)
	var menuCache access.MenuVisibilityCache
	if cfg.MenuCache.Enabled {
		cacheCfg := access.DefaultCacheConfig()
		if cfg.MenuCache.TTL > 0 {
			cacheCfg.TTL = cfg.MenuCache.TTL
		}
		factory := cache.NewMenuCacheFactory(cfg.Redis,
			cache.WithLogger(log),
			cache.WithMenuCacheConfig(cacheCfg),
		)
		c, err := factory.CreateCache()
		if err != nil {
			log.Warn("Menu visibility cache unavailable, lookups hit the database", zap.Error(err))
		} else {
			menuCache = c
		}
	}

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	registerService := paymentapp.NewRegisterService(
		registrationRepo, invoiceRepo, policyRepo, scope,
		paymentapp.RegisterServiceConfig{
			CompanyCurrency:         valueobject.Currency(cfg.Payment.CompanyCurrency),
			LiquidityAccounts:       cfg.Payment.LiquidityAccounts,
			DefaultLiquidityAccount: cfg.Payment.DefaultLiquidityAccount,
		},
		log,
	)
	invoiceService := paymentapp.NewInvoiceService(invoiceRepo)
	policyService := paymentapp.NewDiscountPolicyService(policyRepo)
	paymentQueryService := paymentapp.NewPaymentQueryService(paymentRepo, depositRepo)
	pricingService := pricingapp.NewPricingService(pricelistRepo, log)
	menuService := accessapp.NewMenuService(menuRepo, menuCache, log)

	// Business metrics on the ledger (open residuals, draft registrations)
	if meterProvider.IsEnabled() {
		financeProvider := telemetry.NewGormFinanceMetricsProvider(db.DB)
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter("payments/business"),
			Logger:          log,
			CollectInterval: cfg.Telemetry.MetricsInterval,
			FinanceProvider: financeProvider,
		})
		if err != nil {
			log.Warn("Failed to create business metrics", zap.Error(err))
		} else {
			businessMetrics.StartPeriodicCollection(ctx, financeProvider, cfg.Telemetry.MetricsInterval)
			defer businessMetrics.Stop()
		}
	}

	// Initialize HTTP handlers
	registrationHandler := handler.NewRegistrationHandler(registerService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentQueryService)
	policyHandler := handler.NewDiscountPolicyHandler(policyService)
	pricelistHandler := handler.NewPricelistHandler(pricingService)
	menuHandler := handler.NewMenuHandler(menuService)
	systemHandler := handler.NewSystemHandler()

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

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
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
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Request observability
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       meterProvider.IsEnabled(),
		}))
		if profiler.IsEnabled() {
			profilingCfg := middleware.DefaultProfilingConfig()
			profilingCfg.Enabled = true
			engine.Use(middleware.ProfilingWithConfig(profilingCfg))
		}
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	r.Register(registrationHandler).
		Register(invoiceHandler).
		Register(paymentHandler).
		Register(policyHandler).
		Register(pricelistHandler).
		Register(menuHandler).
		Register(systemHandler)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdownProvider flushes a telemetry provider with a bounded timeout
func shutdownProvider(shutdown func(context.Context) error, name string, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
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
