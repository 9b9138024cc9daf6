package memory

import (
	"maps"
	"slices"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
)

func cloneRecord(r *domain.InventoryRecord) *domain.InventoryRecord {
	c := *r
	return &c
}

func cloneMovement(m *domain.InventoryMovement) *domain.InventoryMovement {
	c := *m
	return &c
}

func cloneInbound(o *domain.InboundOrder) *domain.InboundOrder {
	c := *o
	c.AggregateEvents = domain.AggregateEvents{}
	c.Lines = make([]domain.InboundOrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.Receipts = slices.Clone(l.Receipts)
		c.Lines[i] = l
	}
	c.Metadata = maps.Clone(o.Metadata)
	return &c
}

func cloneOutbound(o *domain.OutboundOrder) *domain.OutboundOrder {
	c := *o
	c.AggregateEvents = domain.AggregateEvents{}
	c.Lines = slices.Clone(o.Lines)
	c.Metadata = maps.Clone(o.Metadata)
	return &c
}

func cloneAllocation(a *domain.Allocation) *domain.Allocation {
	c := *a
	return &c
}

func cloneTask(t *domain.PickTask) *domain.PickTask {
	c := *t
	c.AggregateEvents = domain.AggregateEvents{}
	return &c
}

func cloneWave(w *domain.Wave) *domain.Wave {
	c := *w
	c.AggregateEvents = domain.AggregateEvents{}
	c.OrderIDs = slices.Clone(w.OrderIDs)
	return &c
}

func cloneOutboxEvent(e *outbox.OutboxEvent) *outbox.OutboxEvent {
	c := *e
	c.Payload = slices.Clone(e.Payload)
	return &c
}
