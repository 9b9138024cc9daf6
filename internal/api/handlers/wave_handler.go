package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
)

// WaveHandler handles HTTP requests for waves
type WaveHandler struct {
	base
	service *application.WaveApplicationService
}

// NewWaveHandler creates a new WaveHandler
func NewWaveHandler(service *application.WaveApplicationService, logger *logging.Logger) *WaveHandler {
	return &WaveHandler{base: base{logger: logger}, service: service}
}

// RegisterRoutes mounts the wave routes on rg
func (h *WaveHandler) RegisterRoutes(rg *gin.RouterGroup) {
	waves := rg.Group("/waves")
	{
		waves.POST("", h.Create)
		waves.GET("", h.List)
		waves.GET("/:id", h.Get)
		waves.POST("/:id/release", h.Release)
		waves.POST("/:id/cancel", h.Cancel)
	}
}

// Create handles POST /api/v1/waves
func (h *WaveHandler) Create(c *gin.Context) {
	var cmd application.CreateWaveCommand
	if !h.bind(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c, map[string]any{
		"warehouse.id": cmd.WarehouseID,
		"orders.count": len(cmd.OrderIDs),
	})

	result, err := h.service.CreateWave(c.Request.Context(), cmd)
	h.created(c, result, err)
}

// List handles GET /api/v1/waves
func (h *WaveHandler) List(c *gin.Context) {
	var query application.ListWavesQuery
	if !h.bindQuery(c, &query) {
		return
	}
	result, err := h.service.ListWaves(c.Request.Context(), query)
	h.ok(c, result, err)
}

// Get handles GET /api/v1/waves/:id
func (h *WaveHandler) Get(c *gin.Context) {
	result, err := h.service.GetWave(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Release handles POST /api/v1/waves/:id/release
func (h *WaveHandler) Release(c *gin.Context) {
	result, err := h.service.Release(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Cancel handles POST /api/v1/waves/:id/cancel
func (h *WaveHandler) Cancel(c *gin.Context) {
	result, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}
