package router

import (
	"time"

	"github.com/chatdesk/backend/internal/infrastructure/auth"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/interfaces/http/handler"
	"github.com/chatdesk/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig holds what the HTTP engine needs besides its handlers
type EngineConfig struct {
	Logger         *zap.Logger
	JWTService     *auth.JWTService
	ServiceName    string
	TracingEnabled bool
	// Meter receives HTTP metrics when not nil
	Meter          metric.Meter
	MaxBodySize    int64
	RequestTimeout time.Duration
	TrustedProxies []string
}

// Handlers are the HTTP handlers served by the engine
type Handlers struct {
	Contact *handler.ContactHandler
	System  *handler.SystemHandler
}

// NewEngine builds the gin engine with the middleware stack and all routes.
//
// Middleware order:
//  1. RequestID, so every later log line and span carries it
//  2. Recovery and request logging
//  3. Tracing and span error marking
//  4. Security headers, body limit and request deadline
//  5. on /api/v1 only: JWT, span attributes, HTTP metrics
func NewEngine(cfg EngineConfig, h Handlers) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			return nil, err
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.ServiceName,
		Enabled:     cfg.TracingEnabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.RequestTimeout))

	engine.GET("/health", h.System.Health)

	jwtConfig := middleware.DefaultJWTConfig(cfg.JWTService)
	jwtConfig.Logger = log

	api := NewAPI(engine, "v1").
		Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig)).
		Use(middleware.TracingAttributeInjector())
	if cfg.Meter != nil {
		httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
		if err != nil {
			return nil, err
		}
		api.Use(httpMetrics)
	}

	routes := api.Mount(SystemRoutes(h.System), ContactRoutes(h.Contact)).Build()
	log.Debug("HTTP routes registered", zap.Strings("routes", routes))

	return engine, nil
}
