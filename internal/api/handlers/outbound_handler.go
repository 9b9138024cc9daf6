package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
)

// OutboundHandler handles HTTP requests for outbound orders and allocations
type OutboundHandler struct {
	base
	service *application.OutboundApplicationService
}

// NewOutboundHandler creates a new OutboundHandler
func NewOutboundHandler(service *application.OutboundApplicationService, logger *logging.Logger) *OutboundHandler {
	return &OutboundHandler{base: base{logger: logger}, service: service}
}

// RegisterRoutes mounts the outbound order routes on rg
func (h *OutboundHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/outbound-orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.GET("/:id/allocations", h.Allocations)
		orders.POST("/:id/allocate", h.Allocate)
		orders.POST("/:id/lines/:lineId/allocate", h.AllocateLine)
		orders.POST("/:id/release", h.Release)
		orders.POST("/:id/pack", h.Pack)
		orders.POST("/:id/ship", h.Ship)
		orders.POST("/:id/deliver", h.Deliver)
		orders.POST("/:id/cancel", h.Cancel)
	}

	rg.POST("/allocations/:id/cancel", h.CancelAllocation)
}

// Create handles POST /api/v1/outbound-orders
func (h *OutboundHandler) Create(c *gin.Context) {
	var cmd application.CreateOutboundOrderCommand
	if !h.bind(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c, map[string]any{
		"warehouse.id": cmd.WarehouseID,
		"lines.count":  len(cmd.Lines),
		"priority":     cmd.Priority,
	})

	result, err := h.service.CreateOrder(c.Request.Context(), cmd)
	h.created(c, result, err)
}

// List handles GET /api/v1/outbound-orders
func (h *OutboundHandler) List(c *gin.Context) {
	var query application.ListOutboundQuery
	if !h.bindQuery(c, &query) {
		return
	}
	result, err := h.service.ListOrders(c.Request.Context(), query)
	h.ok(c, result, err)
}

// Get handles GET /api/v1/outbound-orders/:id
func (h *OutboundHandler) Get(c *gin.Context) {
	result, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Allocations handles GET /api/v1/outbound-orders/:id/allocations
func (h *OutboundHandler) Allocations(c *gin.Context) {
	result, err := h.service.ListAllocations(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Allocate handles POST /api/v1/outbound-orders/:id/allocate
func (h *OutboundHandler) Allocate(c *gin.Context) {
	result, err := h.service.Allocate(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// AllocateLine handles POST /api/v1/outbound-orders/:id/lines/:lineId/allocate
func (h *OutboundHandler) AllocateLine(c *gin.Context) {
	result, err := h.service.AllocateLine(c.Request.Context(), c.Param("id"), c.Param("lineId"))
	h.ok(c, result, err)
}

// CancelAllocation handles POST /api/v1/allocations/:id/cancel
func (h *OutboundHandler) CancelAllocation(c *gin.Context) {
	result, err := h.service.CancelAllocation(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Release handles POST /api/v1/outbound-orders/:id/release
func (h *OutboundHandler) Release(c *gin.Context) {
	result, err := h.service.ReleaseForPicking(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Pack handles POST /api/v1/outbound-orders/:id/pack
func (h *OutboundHandler) Pack(c *gin.Context) {
	result, err := h.service.Pack(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Ship handles POST /api/v1/outbound-orders/:id/ship
func (h *OutboundHandler) Ship(c *gin.Context) {
	var cmd application.ShipCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.OrderID = c.Param("id")

	middleware.AddSpanAttributes(c, map[string]any{
		"order.id": cmd.OrderID,
		"carrier":  cmd.Carrier,
	})

	result, err := h.service.Ship(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Deliver handles POST /api/v1/outbound-orders/:id/deliver
func (h *OutboundHandler) Deliver(c *gin.Context) {
	result, err := h.service.Deliver(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Cancel handles POST /api/v1/outbound-orders/:id/cancel
func (h *OutboundHandler) Cancel(c *gin.Context) {
	var cmd application.CancelCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	cmd.ID = c.Param("id")

	result, err := h.service.Cancel(c.Request.Context(), cmd)
	h.ok(c, result, err)
}
