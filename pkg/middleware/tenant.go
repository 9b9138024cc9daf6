package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/wms-platform/warehouse-core/pkg/errors"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/tenant"
)

// ContextKeyTenant is the gin context key holding the *tenant.Context
const ContextKeyTenant = "tenantContext"

// TenantConfig holds configuration for the tenant middleware
type TenantConfig struct {
	// Required rejects requests without a tenant header
	Required bool

	// DefaultTenantID is used when no tenant header is provided and Required is false
	DefaultTenantID string
}

// DefaultTenantConfig falls back to the default tenant
func DefaultTenantConfig() *TenantConfig {
	return &TenantConfig{DefaultTenantID: tenant.DefaultTenantID}
}

// Tenant extracts the tenant context from the X-WMS-* headers and adds it to
// the request context
func Tenant(config *TenantConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultTenantConfig()
	}

	return func(c *gin.Context) {
		tc := &tenant.Context{
			TenantID:    c.GetHeader(tenant.HeaderTenantID),
			WarehouseID: c.GetHeader(tenant.HeaderWarehouseID),
			UserID:      c.GetHeader(tenant.HeaderUserID),
		}
		if tc.TenantID == "" && !config.Required {
			tc.TenantID = config.DefaultTenantID
		}
		if err := tc.Validate(); err != nil {
			AbortWithAppError(c, errors.ErrValidation(err.Error()).WithDetail("header", tenant.HeaderTenantID))
			return
		}

		ctx := tenant.ToContext(c.Request.Context(), tc)
		ctx = logging.ContextWithTenantID(ctx, tc.TenantID)
		if tc.UserID != "" {
			ctx = logging.ContextWithUserID(ctx, tc.UserID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Set(ContextKeyTenant, tc)

		c.Next()
	}
}

// GetTenant returns the tenant context stored by Tenant
func GetTenant(c *gin.Context) *tenant.Context {
	if v, ok := c.Get(ContextKeyTenant); ok {
		if tc, ok := v.(*tenant.Context); ok {
			return tc
		}
	}
	return &tenant.Context{TenantID: tenant.TenantID(c.Request.Context())}
}
