// Package infrastructure holds the store adapters of the warehouse core.
package infrastructure

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/cloudevents"
	"github.com/wms-platform/warehouse-core/pkg/kafka"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
	"github.com/wms-platform/warehouse-core/pkg/tenant"
)

// OutboxEvents turns domain events into outbox rows for the events topic
type OutboxEvents struct {
	converter *outbox.Converter
}

// NewOutboxEvents creates a converter for topic; an empty topic uses the default
func NewOutboxEvents(topic string) *OutboxEvents {
	if topic == "" {
		topic = kafka.DefaultTopic
	}
	return &OutboxEvents{converter: outbox.NewConverter(cloudevents.SourceWarehouseCore, topic)}
}

// Rows converts events. Movement events carry their tenant; other events take
// the tenant of ctx.
func (o *OutboxEvents) Rows(ctx context.Context, events []domain.DomainEvent) ([]*outbox.OutboxEvent, error) {
	rows := make([]*outbox.OutboxEvent, 0, len(events))
	for _, e := range events {
		tenantID := tenant.TenantID(ctx)
		if m, ok := e.(*domain.MovementRecordedEvent); ok && m.Movement.TenantID != "" {
			tenantID = m.Movement.TenantID
		}
		converted, err := o.converter.Convert(ctx, tenantID, e)
		if err != nil {
			return nil, err
		}
		rows = append(rows, converted...)
	}
	return rows, nil
}
