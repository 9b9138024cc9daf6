package core

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

func TestAllocator_FIFOAcrossRecords(t *testing.T) {
	f := newFixture(t)
	older := f.stock(binB, 4)
	newer := f.stock(binA, 10)
	order := f.order(6)

	outcome, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)

	allocs := outcome.Allocations()
	require.Len(t, allocs, 2)
	assert.Equal(t, older.ID, allocs[0].RecordID, "oldest stock goes first even from a later pick sequence")
	assert.Equal(t, int64(4), allocs[0].Quantity)
	assert.Equal(t, newer.ID, allocs[1].RecordID)
	assert.Equal(t, int64(2), allocs[1].Quantity)
	assert.Zero(t, outcome.Shortfall())
	assert.Equal(t, domain.OutboundStatusAllocated, outcome.Order.Status)
	assert.Equal(t, int64(6), outcome.Order.Lines[0].AllocatedQuantity)

	assert.Equal(t, int64(4), f.record(older.ID).Reserved)
	assert.Equal(t, int64(8), f.record(newer.ID).Available)
}

func TestAllocator_PickSequenceBreaksTies(t *testing.T) {
	f := newFixture(t)
	far, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: key(binB, skuPlain), Quantity: 5})
	require.NoError(t, err)
	near, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: key(binA, skuPlain), Quantity: 5})
	require.NoError(t, err)
	require.Equal(t, far.ReceivedAt, near.ReceivedAt)

	outcome, err := f.allocator.Allocate(f.ctx, tenantID, f.order(3).ID, "planner")
	require.NoError(t, err)
	require.Len(t, outcome.Allocations(), 1)
	assert.Equal(t, near.ID, outcome.Allocations()[0].RecordID)
}

func TestAllocator_Backorder(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 3)
	order := f.order(5)

	outcome, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	assert.Equal(t, int64(2), outcome.Shortfall())
	assert.Equal(t, domain.OutboundStatusBackordered, outcome.Order.Status)
	assert.Equal(t, int64(3), f.record(rec.ID).Reserved)

	// fresh stock lets a second pass finish the line
	f.stock(binB, 10)
	outcome, err = f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	assert.Zero(t, outcome.Shortfall())
	assert.Equal(t, domain.OutboundStatusAllocated, outcome.Order.Status)

	allocs, err := f.allocator.ListAllocations(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Len(t, allocs, 2)

	again, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	assert.Empty(t, again.Allocations(), "a fully allocated order is left alone")
}

func TestAllocator_NoStock(t *testing.T) {
	f := newFixture(t)
	order := f.order(2)

	outcome, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	assert.Equal(t, int64(2), outcome.Shortfall())
	assert.Equal(t, domain.OutboundStatusPending, outcome.Order.Status)
}

func TestAllocator_SkipsHeldStock(t *testing.T) {
	f := newFixture(t)
	held := f.stock(binA, 10)
	_, err := f.ledger.SetStatus(f.ctx, tenantID, held.ID, domain.InventoryStatusHold, domain.MovementMeta{Reason: "audit"})
	require.NoError(t, err)
	good := f.stock(binB, 10)

	outcome, err := f.allocator.Allocate(f.ctx, tenantID, f.order(4).ID, "planner")
	require.NoError(t, err)
	require.Len(t, outcome.Allocations(), 1)
	assert.Equal(t, good.ID, outcome.Allocations()[0].RecordID)
}

func TestAllocator_AllocateLine(t *testing.T) {
	f := newFixture(t)
	f.stock(binA, 10)
	order := f.order(2, 3)

	outcome, err := f.allocator.AllocateLine(f.ctx, tenantID, order.ID, order.Lines[1].ID, "planner")
	require.NoError(t, err)
	require.Len(t, outcome.Lines, 1)
	assert.Equal(t, int64(3), outcome.Lines[0].Allocated)
	assert.Equal(t, domain.OutboundStatusBackordered, outcome.Order.Status)

	_, err = f.allocator.AllocateLine(f.ctx, tenantID, order.ID, "no-such-line", "planner")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAllocator_ConcurrentOrdersNeverOverReserve(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 4)
	orders := []*domain.OutboundOrder{f.order(3), f.order(3)}

	var wg sync.WaitGroup
	outcomes := make([]*AllocationOutcome, len(orders))
	for i, o := range orders {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			out, err := f.allocator.Allocate(context.Background(), tenantID, id, "planner")
			assert.NoError(t, err)
			outcomes[i] = out
		}(i, o.ID)
	}
	wg.Wait()

	var total int64
	statuses := map[domain.OutboundStatus]int{}
	for _, out := range outcomes {
		for _, a := range out.Allocations() {
			total += a.Quantity
		}
		statuses[out.Order.Status]++
	}
	assert.Equal(t, int64(4), total)
	assert.Equal(t, map[domain.OutboundStatus]int{domain.OutboundStatusAllocated: 1, domain.OutboundStatusBackordered: 1}, statuses)
	final := f.record(rec.ID)
	assert.Equal(t, int64(4), final.Reserved)
	assert.Zero(t, final.Available)
}

func TestAllocator_CancelAllocationIsIdempotent(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)
	order := f.order(4)
	outcome, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	tasks, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	alloc := outcome.Allocations()[0]
	for i := 0; i < 2; i++ {
		cancelled, err := f.allocator.CancelAllocation(f.ctx, tenantID, alloc.ID, "planner")
		require.NoError(t, err)
		assert.Equal(t, domain.AllocationStatusCancelled, cancelled.Status)
	}

	after := f.record(rec.ID)
	assert.Zero(t, after.Reserved)
	assert.Equal(t, int64(10), after.Available)
	f.conserved(rec.ID)

	reopened := f.outbound(order.ID)
	assert.Equal(t, domain.OutboundStatusPending, reopened.Status)
	assert.Equal(t, int64(4), reopened.Lines[0].ReleasedQuantity, "a second cancel returns nothing more")
	assert.Equal(t, int64(4), reopened.Lines[0].Unallocated())

	task, err := f.picking.Get(f.ctx, tenantID, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PickTaskStatusCancelled, task.Status)
}

func TestAllocator_RejectsTerminalOrders(t *testing.T) {
	f := newFixture(t)
	f.stock(binA, 10)
	order := f.order(1)
	_, err := f.fulfillment.Cancel(f.ctx, tenantID, order.ID, "customer", "ops")
	require.NoError(t, err)

	_, err = f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
