package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	contactapp "github.com/chatdesk/backend/internal/application/contact"
	ticketapp "github.com/chatdesk/backend/internal/application/ticket"
	"github.com/chatdesk/backend/internal/infrastructure/auth"
	"github.com/chatdesk/backend/internal/infrastructure/config"
	"github.com/chatdesk/backend/internal/infrastructure/event"
	"github.com/chatdesk/backend/internal/infrastructure/lock"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/persistence"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"github.com/chatdesk/backend/internal/infrastructure/transport"
	"github.com/chatdesk/backend/internal/interfaces/http/handler"
	"github.com/chatdesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

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

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log.Info("Starting chatdesk backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	providers, err := telemetry.Setup(ctx, telemetry.Settings{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRatio:  cfg.Telemetry.SamplingRatio,
		ExportInterval: cfg.Telemetry.MetricsInterval,
		Service: telemetry.ServiceInfo{
			Name:        cfg.Telemetry.ServiceName,
			Version:     version,
			Environment: cfg.App.Env,
		},
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	meter := providers.Meter.Meter(cfg.Telemetry.ServiceName)
	identityMetrics, err := telemetry.NewIdentityMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register identity metrics", zap.Error(err))
	}

	// Initialize database connection
	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Tenant lock
	locker, closeLocker := newTenantLocker(ctx, cfg, log)
	defer closeLocker()

	// Initialize repositories
	contactRepo := persistence.NewGormContactRepository(db.DB)
	crossRefRepo := persistence.NewGormCrossReferenceRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)
	ticketRepo := persistence.NewGormTicketRepository(db.DB)

	// Transport session
	gateway := transport.NewHTTPSessionGateway(transport.Config{
		BaseURL:    cfg.Transport.SessionBaseURL,
		APIKey:     cfg.Transport.APIKey,
		Timeout:    cfg.Identity.TransportTimeout,
		RetryCount: cfg.Transport.RetryCount,
	})

	// Initialize event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	metricsHandler := contactapp.NewResolutionMetricsHandler(identityMetrics)
	eventBus.Subscribe(metricsHandler, metricsHandler.EventTypes()...)
	auditHandler := contactapp.NewResolutionAuditLogHandler(log)
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Initialize application services
	lifecycle := ticketapp.NewLifecycleService(ticketRepo, log)
	lifecycle.SetEventPublisher(eventBus)

	crossRefs := contactapp.NewCrossReferenceStore(contactRepo, crossRefRepo)
	namespaces := contactapp.NewNamespaceResolver(gateway, cfg.Identity.TransportTimeout, identityMetrics, log)
	consolidator := contactapp.NewConsolidator(contactRepo, crossRefRepo, messageRepo, ticketRepo, lifecycle, identityMetrics, log)
	resolver := contactapp.NewResolver(contactRepo, crossRefs, namespaces, consolidator, locker, contactapp.ResolverConfig{
		LockWaitTimeout: cfg.Identity.LockWaitTimeout,
		StaleRetryLimit: cfg.Identity.StaleRetryLimit,
	}, identityMetrics, log)
	resolver.SetEventPublisher(eventBus)
	queryService := contactapp.NewQueryService(contactRepo)
	backfill := contactapp.NewBackfillService(contactRepo, crossRefs, locker, cfg.Identity.BackfillBatchSize, log)

	// HTTP engine
	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		JWTService:     auth.NewJWTService(cfg.JWT),
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: providers.Tracer.IsEnabled(),
		Meter:          meter,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Contact: handler.NewContactHandler(resolver, queryService, backfill),
		System:  handler.NewSystemHandler(cfg.App.Name, version, db),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus did not drain", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newTenantLocker selects the tenant lock backend. The redis backend is
// required when more than one replica resolves identities for a tenant.
func newTenantLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (contactapp.TenantLocker, func()) {
	if cfg.Identity.LockBackend != "redis" {
		log.Info("Using in-process tenant lock")
		return lock.NewKeyedMutex(), func() {}
	}

	client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	log.Info("Using redis tenant lock", zap.String("addr", cfg.Redis.Addr()))

	locker := lock.NewRedisLocker(client, lock.RedisLockerConfig{
		KeyPrefix:     cfg.App.Name + ":tenant-lock:",
		TTL:           cfg.Identity.LockTTL,
		WaitTimeout:   cfg.Identity.LockWaitTimeout,
		RetryInterval: cfg.Identity.LockRetryInterval,
	})
	return locker, func() {
		if err := client.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
}
