package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/pkg/idempotency"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
)

// RouterConfig holds everything NewRouter needs
type RouterConfig struct {
	ServiceName   string
	Services      *application.Services
	Logger        *logging.Logger
	Metrics       *metrics.Metrics
	Tenant        *middleware.TenantConfig
	Idempotency   *idempotency.Config
	EnableTracing bool

	TrustedProxies []string

	// Ready backs GET /ready; nil always reports ready
	Ready func(ctx context.Context) error
}

// NewRouter builds the gin engine with the middleware chain, the probes and
// the /api/v1 routes
func NewRouter(config RouterConfig) *gin.Engine {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	router := gin.New()
	mwConfig := middleware.DefaultConfig(config.ServiceName, logger, config.Metrics)
	mwConfig.EnableTracing = config.EnableTracing
	mwConfig.TrustedProxies = config.TrustedProxies
	middleware.Setup(router, mwConfig)

	ready := config.Ready
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	router.GET("/health", middleware.HealthCheck(config.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(config.ServiceName, ready))
	if config.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(config.Metrics))
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Tenant(config.Tenant))
	v1.Use(idempotency.Middleware(config.Idempotency))

	NewInventoryHandler(config.Services.Inventory, logger).RegisterRoutes(v1)
	NewInboundHandler(config.Services.Inbound, logger).RegisterRoutes(v1)
	NewOutboundHandler(config.Services.Outbound, logger).RegisterRoutes(v1)
	NewPickingHandler(config.Services.Picking, logger).RegisterRoutes(v1)
	NewWaveHandler(config.Services.Waves, logger).RegisterRoutes(v1)

	return router
}
