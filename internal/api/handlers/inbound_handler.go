package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
)

// InboundHandler handles HTTP requests for inbound orders
type InboundHandler struct {
	base
	service *application.InboundApplicationService
}

// NewInboundHandler creates a new InboundHandler
func NewInboundHandler(service *application.InboundApplicationService, logger *logging.Logger) *InboundHandler {
	return &InboundHandler{base: base{logger: logger}, service: service}
}

// RegisterRoutes mounts the inbound order routes on rg
func (h *InboundHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/inbound-orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("/:id/transition", h.Transition)
		orders.POST("/:id/receipts", h.RecordReceipt)
		orders.POST("/:id/putaway", h.Putaway)
		orders.POST("/:id/complete", h.Complete)
		orders.POST("/:id/hold", h.Hold)
		orders.POST("/:id/resume", h.Resume)
		orders.POST("/:id/cancel", h.Cancel)
	}
}

// Create handles POST /api/v1/inbound-orders
func (h *InboundHandler) Create(c *gin.Context) {
	var cmd application.CreateInboundOrderCommand
	if !h.bind(c, &cmd) {
		return
	}

	middleware.AddSpanAttributes(c, map[string]any{
		"warehouse.id": cmd.WarehouseID,
		"lines.count":  len(cmd.Lines),
	})

	result, err := h.service.CreateOrder(c.Request.Context(), cmd)
	h.created(c, result, err)
}

// List handles GET /api/v1/inbound-orders
func (h *InboundHandler) List(c *gin.Context) {
	var query application.ListInboundQuery
	if !h.bindQuery(c, &query) {
		return
	}
	result, err := h.service.ListOrders(c.Request.Context(), query)
	h.ok(c, result, err)
}

// Get handles GET /api/v1/inbound-orders/:id
func (h *InboundHandler) Get(c *gin.Context) {
	result, err := h.service.GetOrder(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Transition handles POST /api/v1/inbound-orders/:id/transition
func (h *InboundHandler) Transition(c *gin.Context) {
	var cmd application.TransitionCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.OrderID = c.Param("id")

	result, err := h.service.Transition(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// RecordReceipt handles POST /api/v1/inbound-orders/:id/receipts
func (h *InboundHandler) RecordReceipt(c *gin.Context) {
	var cmd application.RecordReceiptCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.OrderID = c.Param("id")

	middleware.AddSpanAttributes(c, map[string]any{
		"order.id": cmd.OrderID,
		"line.id":  cmd.LineID,
		"quantity": cmd.Quantity,
	})

	result, err := h.service.RecordReceipt(c.Request.Context(), cmd)
	h.created(c, result, err)
}

// Putaway handles POST /api/v1/inbound-orders/:id/putaway
func (h *InboundHandler) Putaway(c *gin.Context) {
	var cmd application.PutawayCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.OrderID = c.Param("id")

	result, err := h.service.Putaway(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Complete handles POST /api/v1/inbound-orders/:id/complete
func (h *InboundHandler) Complete(c *gin.Context) {
	result, err := h.service.Complete(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Hold handles POST /api/v1/inbound-orders/:id/hold
func (h *InboundHandler) Hold(c *gin.Context) {
	result, err := h.service.Hold(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Resume handles POST /api/v1/inbound-orders/:id/resume
func (h *InboundHandler) Resume(c *gin.Context) {
	result, err := h.service.Resume(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Cancel handles POST /api/v1/inbound-orders/:id/cancel
func (h *InboundHandler) Cancel(c *gin.Context) {
	var cmd application.CancelCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	cmd.ID = c.Param("id")

	result, err := h.service.Cancel(c.Request.Context(), cmd)
	h.ok(c, result, err)
}
