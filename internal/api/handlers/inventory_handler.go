package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
)

// InventoryHandler handles HTTP requests for the stock ledger
type InventoryHandler struct {
	base
	service *application.InventoryApplicationService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service *application.InventoryApplicationService, logger *logging.Logger) *InventoryHandler {
	return &InventoryHandler{base: base{logger: logger}, service: service}
}

// RegisterRoutes mounts the inventory routes on rg
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	inventory := rg.Group("/inventory")
	{
		inventory.POST("/receipts", h.Receive)
		inventory.GET("", h.List)
		inventory.GET("/summary/:productId", h.Summary)
		inventory.GET("/:id", h.Get)
		inventory.GET("/:id/movements", h.Movements)
		inventory.POST("/:id/reserve", h.Reserve)
		inventory.POST("/:id/release", h.Release)
		inventory.POST("/:id/consume", h.Consume)
		inventory.POST("/:id/adjust", h.Adjust)
		inventory.POST("/:id/transfer", h.Transfer)
		inventory.POST("/:id/status", h.SetStatus)
	}
}

// Receive handles POST /api/v1/inventory/receipts
func (h *InventoryHandler) Receive(c *gin.Context) {
	var cmd application.ReceiveStockCommand
	if !h.bind(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c, map[string]any{
		"product.id":  cmd.ProductID,
		"location.id": cmd.LocationID,
		"quantity":    cmd.Quantity,
	})

	result, err := h.service.ReceiveStock(c.Request.Context(), cmd)
	h.created(c, result, err)
}

// List handles GET /api/v1/inventory
func (h *InventoryHandler) List(c *gin.Context) {
	var query application.ListInventoryQuery
	if !h.bindQuery(c, &query) {
		return
	}
	result, err := h.service.ListRecords(c.Request.Context(), query)
	h.ok(c, result, err)
}

// Get handles GET /api/v1/inventory/:id
func (h *InventoryHandler) Get(c *gin.Context) {
	result, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Movements handles GET /api/v1/inventory/:id/movements
func (h *InventoryHandler) Movements(c *gin.Context) {
	result, err := h.service.ListMovements(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Summary handles GET /api/v1/inventory/summary/:productId
func (h *InventoryHandler) Summary(c *gin.Context) {
	result, err := h.service.StockSummary(c.Request.Context(), warehouseID(c), c.Param("productId"))
	h.ok(c, result, err)
}

// Reserve handles POST /api/v1/inventory/:id/reserve
func (h *InventoryHandler) Reserve(c *gin.Context) {
	var cmd application.QuantityCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.RecordID = c.Param("id")

	result, err := h.service.Reserve(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Release handles POST /api/v1/inventory/:id/release
func (h *InventoryHandler) Release(c *gin.Context) {
	var cmd application.QuantityCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.RecordID = c.Param("id")

	result, err := h.service.Release(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Consume handles POST /api/v1/inventory/:id/consume
func (h *InventoryHandler) Consume(c *gin.Context) {
	var cmd application.QuantityCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.RecordID = c.Param("id")

	result, err := h.service.Consume(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Adjust handles POST /api/v1/inventory/:id/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var cmd application.AdjustCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.RecordID = c.Param("id")

	middleware.AddSpanAttributes(c, map[string]any{
		"record.id": cmd.RecordID,
		"delta":     cmd.Delta,
	})

	result, err := h.service.Adjust(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Transfer handles POST /api/v1/inventory/:id/transfer
func (h *InventoryHandler) Transfer(c *gin.Context) {
	var cmd application.TransferCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.RecordID = c.Param("id")

	result, err := h.service.Transfer(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// SetStatus handles POST /api/v1/inventory/:id/status
func (h *InventoryHandler) SetStatus(c *gin.Context) {
	var cmd application.SetStatusCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.RecordID = c.Param("id")

	result, err := h.service.SetStatus(c.Request.Context(), cmd)
	h.ok(c, result, err)
}
