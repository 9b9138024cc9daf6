package application

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/idempotency"
	"github.com/wms-platform/warehouse-core/pkg/tenant"
)

func tenantID(ctx context.Context) string {
	return tenant.TenantID(ctx)
}

// actor is the authenticated user, "system" for unauthenticated callers
func actor(ctx context.Context) string {
	if user := tenant.UserID(ctx); user != "" {
		return user
	}
	return "system"
}

// movementMeta builds the audit context of a ledger call from the request
func movementMeta(ctx context.Context, reason, referenceType, referenceID string) domain.MovementMeta {
	return domain.MovementMeta{
		Actor:          actor(ctx),
		Reason:         reason,
		ReferenceType:  referenceType,
		ReferenceID:    referenceID,
		IdempotencyKey: idempotency.FromContext(ctx),
	}
}
