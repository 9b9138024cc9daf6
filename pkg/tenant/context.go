package tenant

import (
	"context"
	"errors"
	"regexp"
)

// DefaultTenantID is used when a request carries no tenant header
const DefaultTenantID = "default"

// HTTP header names for tenant context
const (
	HeaderTenantID    = "X-WMS-Tenant-ID"
	HeaderWarehouseID = "X-WMS-Warehouse-ID"
	HeaderUserID      = "X-WMS-User-ID"
)

type contextKey string

const (
	tenantIDKey    contextKey = "tenantId"
	warehouseIDKey contextKey = "warehouseId"
	userIDKey      contextKey = "userId"
)

var (
	ErrMissingTenantContext = errors.New("tenant context is required")
	ErrInvalidTenantID      = errors.New("tenantId must be 1-64 characters of letters, digits, '-' or '_'")
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Context holds the tenant identifiers every warehouse operation is scoped to.
type Context struct {
	TenantID    string `json:"tenantId"`
	WarehouseID string `json:"warehouseId,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// Validate checks the tenant id format
func (c *Context) Validate() error {
	if c.TenantID == "" {
		return ErrMissingTenantContext
	}
	if !ValidTenantID(c.TenantID) {
		return ErrInvalidTenantID
	}
	return nil
}

// ValidTenantID reports whether id is an acceptable tenant identifier
func ValidTenantID(id string) bool {
	return tenantIDPattern.MatchString(id)
}

// FromContext extracts the tenant Context. It fails when no tenant was set.
func FromContext(ctx context.Context) (*Context, error) {
	tc := &Context{}
	if v, ok := ctx.Value(tenantIDKey).(string); ok {
		tc.TenantID = v
	}
	if v, ok := ctx.Value(warehouseIDKey).(string); ok {
		tc.WarehouseID = v
	}
	if v, ok := ctx.Value(userIDKey).(string); ok {
		tc.UserID = v
	}
	if tc.TenantID == "" {
		return nil, ErrMissingTenantContext
	}
	return tc, nil
}

// TenantID returns the tenant of ctx or DefaultTenantID
func TenantID(ctx context.Context) string {
	if v, ok := ctx.Value(tenantIDKey).(string); ok && v != "" {
		return v
	}
	return DefaultTenantID
}

// UserID returns the acting user of ctx, if any
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// ToContext stores tc in ctx
func ToContext(ctx context.Context, tc *Context) context.Context {
	if tc == nil {
		return ctx
	}
	if tc.TenantID != "" {
		ctx = context.WithValue(ctx, tenantIDKey, tc.TenantID)
	}
	if tc.WarehouseID != "" {
		ctx = context.WithValue(ctx, warehouseIDKey, tc.WarehouseID)
	}
	if tc.UserID != "" {
		ctx = context.WithValue(ctx, userIDKey, tc.UserID)
	}
	return ctx
}
