package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/wms/backend/internal/application/inventory"
	scanapp "github.com/wms/backend/internal/application/scan"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/infrastructure/cache"
	"github.com/wms/backend/internal/infrastructure/config"
	"github.com/wms/backend/internal/infrastructure/event"
	"github.com/wms/backend/internal/infrastructure/logger"
	"github.com/wms/backend/internal/infrastructure/persistence"
	"github.com/wms/backend/internal/infrastructure/scheduler"
	"github.com/wms/backend/internal/infrastructure/telemetry"
	"github.com/wms/backend/internal/interfaces/http/handler"
	"github.com/wms/backend/internal/interfaces/http/middleware"
	"github.com/wms/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxRequestBody caps scan and workflow payloads. Nothing a handheld or the
// back office posts comes close to this.
const maxRequestBody = 1 << 20 // 1 MiB

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

	log.Info("Starting WMS Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()
	serviceName := cfg.Telemetry.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}

	// OpenTelemetry providers. All three are no-ops when telemetry is
	// disabled, so the wiring below stays unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       serviceName,
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

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       serviceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()

	// With log export enabled, swap the plain logger for one that tees
	// every record to the OTEL Collector as well.
	if logsProvider.IsEnabled() {
		bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			Output:     cfg.Log.Output,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		}, logsProvider, serviceName)
		if err != nil {
			log.Fatal("Failed to create bridged logger", zap.Error(err))
		}
		log = bridged
		log.Info("Log export to OTEL Collector enabled")
	}

	// Continuous profiling via Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiler.Enabled,
		ServerAddress:       cfg.Profiler.ServerAddress,
		ApplicationName:     cfg.App.Name,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Database.LogLevel)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
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

	// Database query tracing (otelgorm)
	if cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := tracingPlugin.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
		log.Info("Database tracing enabled",
			zap.Duration("slow_query_thresh", cfg.Telemetry.DBSlowQueryThresh))
	}

	// Database metrics (query latency, pool stats)
	meter := meterProvider.Meter("wms-backend")
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize database metrics", zap.Error(err))
		}
		if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Fatal("Failed to register database metrics plugin", zap.Error(err))
		}
		if sqlDB, err := db.DB.DB(); err == nil {
			dbMetrics.SetSQLDB(sqlDB)
			dbMetrics.StartPoolStatsCollection(ctx)
			defer dbMetrics.Stop()
		}
	}

	// Initialize repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	snapshotRepo := persistence.NewGormSnapshotRepository(db.DB)
	barcodeRepo := persistence.NewGormBarcodeRepository(db.DB)
	purchaseOrderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	vendorReturnRepo := persistence.NewGormVendorReturnRepository(db.DB)

	repos := inventoryapp.Repositories{
		Items:          itemRepo,
		Batches:        batchRepo,
		Stocks:         stockRepo,
		Ledger:         ledgerRepo,
		Snapshots:      snapshotRepo,
		Barcodes:       barcodeRepo,
		PurchaseOrders: purchaseOrderRepo,
		VendorReturns:  vendorReturnRepo,
	}
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)

	threeBooksAlertHandler := inventoryapp.NewThreeBooksAlertHandler(log)
	eventBus.Subscribe(threeBooksAlertHandler)

	scanAuditHandler := inventoryapp.NewScanAuditHandler(log)
	eventBus.Subscribe(scanAuditHandler)

	log.Info("Event handlers registered",
		zap.Strings("three_books_alert_events", threeBooksAlertHandler.EventTypes()),
		zap.Strings("scan_audit_events", scanAuditHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Initialize application services
	mutator := inventoryapp.NewStockMutator(inventory.NewExpiryResolver(0))
	allocator := inventoryapp.NewFefoAllocator(mutator)
	snapshots := inventoryapp.NewSnapshotEngine()
	enforcer := inventoryapp.NewThreeBooksEnforcer(snapshots)

	receipts := inventoryapp.NewReceiptWorkflow(txScope, mutator, enforcer, eventBus, log)
	outbound := inventoryapp.NewOutboundService(txScope, mutator, allocator, enforcer, eventBus, log)
	counts := inventoryapp.NewCountWorkflow(txScope, mutator, enforcer, eventBus, log)
	issues := inventoryapp.NewInternalIssueWorkflow(txScope, mutator, allocator, enforcer, eventBus, log)
	vendorReturns := inventoryapp.NewVendorReturnWorkflow(txScope, mutator, enforcer, eventBus, log).
		WithAllowExpired(cfg.Inventory.AllowExpiredReturns)
	reconcile := inventoryapp.NewReconcileService(txScope, log)
	queries := inventoryapp.NewStockQueryService(repos, txScope, snapshots, log)

	// Barcode lookup with read-through cache (Redis when enabled, in-memory
	// otherwise)
	lookupFactory := cache.NewBarcodeLookupFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	barcodeLookup, err := lookupFactory.Create(barcodeRepo)
	if err != nil {
		log.Fatal("Failed to create barcode lookup", zap.Error(err))
	}

	parser := scanapp.NewParser(barcodeLookup)
	orchestrator := scanapp.NewOrchestrator(txScope, parser, receipts, outbound, counts, eventBus, log)

	// Business metrics (scan outcomes, stock totals, drift, near-expiry)
	if cfg.Telemetry.Enabled {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:             meter,
			Logger:            log,
			InventoryProvider: telemetry.NewGormInventoryMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		expiryHorizon := time.Duration(cfg.Inventory.SoftExpiryToleranceDays) * 24 * time.Hour
		businessMetrics.StartPeriodicCollection(ctx, expiryHorizon, 5*time.Minute)
		defer businessMetrics.Stop()
		log.Info("Business metrics collection started",
			zap.Duration("expiry_horizon", expiryHorizon))
	}

	// Nightly maintenance: snapshot rebuild plus a ledger-vs-stocks drift
	// check per scope
	if cfg.Scheduler.Enabled {
		cronHour, cronMinute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
		if err != nil {
			log.Fatal("Invalid scheduler cron schedule", zap.Error(err))
		}
		maintenanceCron := scheduler.NewMaintenanceCron(scheduler.MaintenanceCronConfig{
			Enabled:           true,
			CronHour:          cronHour,
			CronMinute:        cronMinute,
			DailyCronSchedule: cfg.Scheduler.DailyCronSchedule,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		}, scheduler.NewMaintenanceExecutor(queries, reconcile, log), log)
		if err := maintenanceCron.Start(context.Background()); err != nil {
			log.Fatal("Failed to start maintenance cron", zap.Error(err))
		}
		defer func() {
			if err := maintenanceCron.Stop(context.Background()); err != nil {
				log.Error("Error stopping maintenance cron", zap.Error(err))
			}
		}()
		log.Info("Nightly maintenance scheduled",
			zap.Int("cron_hour", cronHour),
			zap.Int("cron_minute", cronMinute),
			zap.Int("max_concurrent_jobs", cfg.Scheduler.MaxConcurrentJobs),
		)
	}

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler()
	scanHandler := handler.NewScanHandler(orchestrator)
	receiptHandler := handler.NewReceiptHandler(receipts)
	shipmentHandler := handler.NewShipmentHandler(outbound)
	countHandler := handler.NewCountHandler(counts)
	issueHandler := handler.NewIssueHandler(issues)
	vendorReturnHandler := handler.NewVendorReturnHandler(vendorReturns, vendorReturnRepo)
	stockHandler := handler.NewStockHandler(queries)
	reconcileHandler := handler.NewReconcileHandler(reconcile)
	barcodeHandler := handler.NewBarcodeHandler(barcodeRepo, barcodeLookup)

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS())
	engine.Use(middleware.BodyLimit(maxRequestBody))
	engine.Use(middleware.DeviceID())

	if cfg.Server.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
		engine.Use(middleware.RateLimitByKey(rateLimiter, func(c *gin.Context) string {
			if device := c.GetHeader(middleware.DeviceIDHeader); device != "" {
				return device
			}
			return c.ClientIP()
		}))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.Server.RateLimitRequests),
			zap.Duration("window", cfg.Server.RateLimitWindow),
		)
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: serviceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   serviceName,
			Enabled:       true,
		}))
	}
	if profiler.IsEnabled() {
		engine.Use(middleware.Profiling())
		engine.Use(middleware.ProfilingAttributeInjector())
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))
	engine.GET("/ready", healthHandler(db))

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(systemHandler).
		Register(scanHandler).
		Register(receiptHandler).
		Register(shipmentHandler).
		Register(countHandler).
		Register(issueHandler).
		Register(vendorReturnHandler).
		Register(stockHandler).
		Register(reconcileHandler).
		Register(barcodeHandler)
	r.Setup()

	// Simple ping at root API level for load balancer checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
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
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["db_pool"] = gin.H{
				"open":    stats.OpenConnections,
				"in_use":  stats.InUse,
				"idle":    stats.Idle,
				"waiting": stats.WaitCount,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
