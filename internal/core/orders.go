package core

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

const (
	inboundPrefix  = "INB"
	outboundPrefix = "OUT"
	taskPrefix     = "PT"
	wavePrefix     = "W"
)

// orderBook holds the order-side helpers shared by the allocator, picking,
// fulfilment and wave components. Every method expects an open transaction.
type orderBook struct {
	repos domain.Repositories
	clock domain.Clock
}

// nextNumber draws the next yearly document number for prefix
func (b *orderBook) nextNumber(ctx context.Context, tenantID, prefix string, width int) (string, error) {
	now := b.clock.Now()
	seq, err := b.repos.Sequences.Next(ctx, tenantID, fmt.Sprintf("%s-%d", prefix, now.Year()))
	if err != nil {
		return "", err
	}
	return domain.FormatNumber(prefix, now, seq, width), nil
}

// saveOrder re-derives the order status from its allocations, persists the order,
// records its events and moves its wave along when the status changed.
func (b *orderBook) saveOrder(ctx context.Context, order *domain.OutboundOrder) error {
	allocs, err := b.repos.Allocations.FindByOrder(ctx, order.TenantID, order.ID)
	if err != nil {
		return err
	}
	now := b.clock.Now()
	order.Refresh(allocs, now)

	events := order.PullEvents()
	if err := b.repos.Outbound.Save(ctx, order); err != nil {
		return err
	}
	if err := b.repos.Events.Record(ctx, events...); err != nil {
		return err
	}
	if len(events) > 0 && order.WaveID != "" {
		return b.syncWave(ctx, order.TenantID, order.WaveID, now)
	}
	return nil
}

// syncWave recomputes a wave's progress from its member orders
func (b *orderBook) syncWave(ctx context.Context, tenantID, waveID string, now time.Time) error {
	wave, err := b.repos.Waves.Get(ctx, tenantID, waveID)
	if err != nil {
		return err
	}
	members, err := b.repos.Outbound.List(ctx, domain.OutboundFilter{TenantID: tenantID, WaveID: waveID})
	if err != nil {
		return err
	}
	statuses := make([]domain.OutboundStatus, 0, len(members))
	for _, m := range members {
		statuses = append(statuses, m.Status)
	}
	if !wave.Progress(statuses, now) {
		return nil
	}
	return b.saveWave(ctx, wave)
}

func (b *orderBook) saveWave(ctx context.Context, wave *domain.Wave) error {
	events := wave.PullEvents()
	if err := b.repos.Waves.Save(ctx, wave); err != nil {
		return err
	}
	return b.repos.Events.Record(ctx, events...)
}

func (b *orderBook) saveTask(ctx context.Context, task *domain.PickTask) error {
	events := task.PullEvents()
	if err := b.repos.PickTasks.Save(ctx, task); err != nil {
		return err
	}
	return b.repos.Events.Record(ctx, events...)
}

func (b *orderBook) saveInbound(ctx context.Context, order *domain.InboundOrder) error {
	events := order.PullEvents()
	if err := b.repos.Inbound.Save(ctx, order); err != nil {
		return err
	}
	return b.repos.Events.Record(ctx, events...)
}

// releaseAllocation cancels an allocation and returns its reservation to
// available. An unpicked allocation on a live order hands its quantity back to
// the line so it can be allocated again. Cancelling an already cancelled
// allocation is a no-op.
func (b *orderBook) releaseAllocation(ctx context.Context, ledger *Ledger, order *domain.OutboundOrder, alloc *domain.Allocation, meta domain.MovementMeta) error {
	reserved := alloc.ReservedQuantity()
	unpicked := alloc.Status != domain.AllocationStatusPicked
	now := b.clock.Now()
	if !alloc.Cancel(now) {
		return nil
	}
	if unpicked && !order.Status.IsTerminal() {
		if err := order.ReturnAllocated(alloc.LineID, alloc.Quantity, now); err != nil {
			return err
		}
	}
	if reserved > 0 {
		meta.ReferenceType = "allocation"
		meta.ReferenceID = alloc.ID
		meta.IdempotencyKey = ""
		if _, err := ledger.ReleaseReservation(ctx, alloc.TenantID, alloc.RecordID, reserved, meta); err != nil {
			return err
		}
	}
	return b.repos.Allocations.Save(ctx, alloc)
}
