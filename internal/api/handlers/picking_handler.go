package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/pkg/logging"
)

// PickingHandler handles HTTP requests for pick tasks
type PickingHandler struct {
	base
	service *application.PickingApplicationService
}

// NewPickingHandler creates a new PickingHandler
func NewPickingHandler(service *application.PickingApplicationService, logger *logging.Logger) *PickingHandler {
	return &PickingHandler{base: base{logger: logger}, service: service}
}

// RegisterRoutes mounts the pick task routes on rg
func (h *PickingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/pick-tasks")
	{
		tasks.GET("", h.List)
		tasks.GET("/stats", h.Stats)
		tasks.GET("/mine/:userId", h.Mine)
		tasks.GET("/:id", h.Get)
		tasks.POST("/:id/assign", h.Assign)
		tasks.POST("/:id/start", h.Start)
		tasks.POST("/:id/complete", h.Complete)
		tasks.POST("/:id/cancel", h.Cancel)
	}
}

// List handles GET /api/v1/pick-tasks
func (h *PickingHandler) List(c *gin.Context) {
	var query application.ListTasksQuery
	if !h.bindQuery(c, &query) {
		return
	}
	result, err := h.service.ListTasks(c.Request.Context(), query)
	h.ok(c, result, err)
}

// Stats handles GET /api/v1/pick-tasks/stats
func (h *PickingHandler) Stats(c *gin.Context) {
	result, err := h.service.Stats(c.Request.Context(), warehouseID(c))
	h.ok(c, result, err)
}

// Mine handles GET /api/v1/pick-tasks/mine/:userId
func (h *PickingHandler) Mine(c *gin.Context) {
	result, err := h.service.MyTasks(c.Request.Context(), c.Param("userId"))
	h.ok(c, result, err)
}

// Get handles GET /api/v1/pick-tasks/:id
func (h *PickingHandler) Get(c *gin.Context) {
	result, err := h.service.GetTask(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Assign handles POST /api/v1/pick-tasks/:id/assign
func (h *PickingHandler) Assign(c *gin.Context) {
	var cmd application.AssignTaskCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.TaskID = c.Param("id")

	result, err := h.service.Assign(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Start handles POST /api/v1/pick-tasks/:id/start
func (h *PickingHandler) Start(c *gin.Context) {
	result, err := h.service.Start(c.Request.Context(), c.Param("id"))
	h.ok(c, result, err)
}

// Complete handles POST /api/v1/pick-tasks/:id/complete
func (h *PickingHandler) Complete(c *gin.Context) {
	var cmd application.CompleteTaskCommand
	if !h.bind(c, &cmd) {
		return
	}
	cmd.TaskID = c.Param("id")

	result, err := h.service.Complete(c.Request.Context(), cmd)
	h.ok(c, result, err)
}

// Cancel handles POST /api/v1/pick-tasks/:id/cancel
func (h *PickingHandler) Cancel(c *gin.Context) {
	var cmd application.CancelCommand
	if !h.bindOptional(c, &cmd) {
		return
	}
	cmd.ID = c.Param("id")

	result, err := h.service.Cancel(c.Request.Context(), cmd)
	h.ok(c, result, err)
}
