// Package handlers exposes the application services over HTTP with gin
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
)

type base struct {
	logger *logging.Logger
}

func (b base) respond(c *gin.Context, status int, data any, err error) {
	if err != nil {
		middleware.NewErrorResponder(c, b.logger).RespondWithError(err)
		return
	}
	c.JSON(status, gin.H{"data": data})
}

func (b base) ok(c *gin.Context, data any, err error) {
	b.respond(c, http.StatusOK, data, err)
}

func (b base) created(c *gin.Context, data any, err error) {
	b.respond(c, http.StatusCreated, data, err)
}

// bind decodes the JSON body into obj and writes the error response on failure
func (b base) bind(c *gin.Context, obj any) bool {
	if appErr := middleware.BindAndValidate(c, obj); appErr != nil {
		middleware.NewErrorResponder(c, b.logger).RespondWithAppError(appErr)
		return false
	}
	return true
}

func (b base) bindOptional(c *gin.Context, obj any) bool {
	if appErr := middleware.BindOptionalJSON(c, obj); appErr != nil {
		middleware.NewErrorResponder(c, b.logger).RespondWithAppError(appErr)
		return false
	}
	return true
}

func (b base) bindQuery(c *gin.Context, obj any) bool {
	if appErr := middleware.BindQueryAndValidate(c, obj); appErr != nil {
		middleware.NewErrorResponder(c, b.logger).RespondWithAppError(appErr)
		return false
	}
	return true
}

// warehouseID prefers the query parameter over the X-WMS-Warehouse-ID header
func warehouseID(c *gin.Context) string {
	if id := c.Query("warehouseId"); id != "" {
		return id
	}
	return middleware.GetTenant(c).WarehouseID
}
