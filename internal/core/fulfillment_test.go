package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

func TestFulfillment_CreateOrderNumbers(t *testing.T) {
	f := newFixture(t)

	first := f.order(1)
	second := f.order(2)

	assert.Equal(t, "OUT-2024-0001", first.OrderNumber)
	assert.Equal(t, "OUT-2024-0002", second.OrderNumber)
	assert.Equal(t, domain.OutboundStatusPending, first.Status)
	assert.Equal(t, domain.PriorityNormal, first.Priority)
	assert.NotEmpty(t, first.Lines[0].ID)

	_, err := f.fulfillment.CreateOrder(f.ctx, NewOutboundOrder{TenantID: tenantID, WarehouseID: warehouse})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.fulfillment.CreateOrder(f.ctx, NewOutboundOrder{TenantID: tenantID, WarehouseID: warehouse,
		Lines: []domain.OutboundOrderLine{{ProductID: skuPlain, OrderedQuantity: 0}}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

// receive 10, order 6, pick all, ship
func TestFulfillment_HappyPath(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)
	order := f.order(6)

	_, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	tasks, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "PT-2024-00001", tasks[0].TaskNumber)
	assert.Equal(t, binA, tasks[0].FromLocationID)

	again, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Empty(t, again, "tasks are created once per allocation")

	f.pickAll(tasks, 0)
	assert.Equal(t, domain.OutboundStatusPicked, f.outbound(order.ID).Status)
	assert.Equal(t, int64(6), f.record(rec.ID).Reserved, "picked stock stays reserved until shipment")

	_, err = f.fulfillment.Ship(f.ctx, tenantID, order.ID, ShipDetails{Carrier: "UPS"})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "orders ship only once packed")

	_, err = f.fulfillment.Pack(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	shipped, err := f.fulfillment.Ship(f.ctx, tenantID, order.ID, ShipDetails{Carrier: "UPS", TrackingNumber: "1Z999", Actor: "dock"})
	require.NoError(t, err)

	assert.Equal(t, domain.OutboundStatusShipped, shipped.Status)
	assert.Equal(t, int64(6), shipped.Lines[0].ShippedQuantity)
	assert.Equal(t, "1Z999", shipped.TrackingNumber)
	final := f.record(rec.ID)
	assert.Equal(t, int64(4), final.OnHand)
	assert.Zero(t, final.Reserved)
	assert.Equal(t, int64(4), final.Available)
	f.conserved(rec.ID)

	delivered, err := f.fulfillment.Deliver(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OutboundStatusDelivered, delivered.Status)

	_, err = f.fulfillment.Cancel(f.ctx, tenantID, order.ID, "too late", "ops")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

// order 5, pick 3, ship: 3 consumed, 2 released
func TestFulfillment_ShortPick(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)
	order := f.order(5)

	_, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	tasks, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	f.pickAll(tasks, 2)

	picked := f.outbound(order.ID)
	assert.Equal(t, domain.OutboundStatusPicked, picked.Status)
	assert.Equal(t, int64(3), picked.Lines[0].PickedQuantity)

	task, err := f.picking.Get(f.ctx, tenantID, tasks[0].ID)
	require.NoError(t, err)
	assert.True(t, task.IsShort())

	_, err = f.fulfillment.Pack(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	shipped, err := f.fulfillment.Ship(f.ctx, tenantID, order.ID, ShipDetails{Carrier: "DHL"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), shipped.Lines[0].ShippedQuantity)

	final := f.record(rec.ID)
	assert.Equal(t, int64(7), final.OnHand)
	assert.Zero(t, final.Reserved)
	assert.Equal(t, int64(7), final.Available)
	f.conserved(rec.ID)
}

// cancel after allocation, before picking: every reservation comes back
func TestFulfillment_CancelReleasesReservations(t *testing.T) {
	f := newFixture(t)
	a := f.stock(binA, 3)
	b := f.stock(binB, 10)
	order := f.order(5)

	_, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	tasks, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	_, err = f.picking.Assign(f.ctx, tenantID, tasks[0].ID, "picker-1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		cancelled, err := f.fulfillment.Cancel(f.ctx, tenantID, order.ID, "customer request", "ops")
		require.NoError(t, err)
		assert.Equal(t, domain.OutboundStatusCancelled, cancelled.Status)
		assert.Equal(t, "customer request", cancelled.CancelReason)
	}

	for _, rec := range []*domain.InventoryRecord{a, b} {
		after := f.record(rec.ID)
		assert.Zero(t, after.Reserved)
		assert.Equal(t, after.OnHand, after.Available)
		f.conserved(rec.ID)
	}

	allocs, err := f.allocator.ListAllocations(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	for _, alloc := range allocs {
		assert.Equal(t, domain.AllocationStatusCancelled, alloc.Status)
	}
	open, err := f.picking.List(f.ctx, domain.PickTaskFilter{TenantID: tenantID, OrderID: order.ID,
		Statuses: []domain.PickTaskStatus{domain.PickTaskStatusPending, domain.PickTaskStatusAssigned}})
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestFulfillment_CancelAfterPickingReleasesPickedStock(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)
	order := f.order(4)

	_, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	tasks, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	f.pickAll(tasks, 0)

	_, err = f.fulfillment.Cancel(f.ctx, tenantID, order.ID, "fraud", "ops")
	require.NoError(t, err)

	after := f.record(rec.ID)
	assert.Equal(t, int64(10), after.OnHand)
	assert.Zero(t, after.Reserved)
	f.conserved(rec.ID)
}

func TestFulfillment_ReleaseRequiresAllocation(t *testing.T) {
	f := newFixture(t)
	order := f.order(1)

	_, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.fulfillment.Get(f.ctx, "other-tenant", order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFulfillment_LineCountersStayOrdered(t *testing.T) {
	f := newFixture(t)
	f.stock(binA, 2)
	order := f.order(4)

	_, err := f.allocator.Allocate(f.ctx, tenantID, order.ID, "planner")
	require.NoError(t, err)
	tasks, err := f.fulfillment.ReleaseForPicking(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	f.pickAll(tasks, 1)
	_, err = f.fulfillment.Pack(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	_, err = f.fulfillment.Ship(f.ctx, tenantID, order.ID, ShipDetails{})
	require.NoError(t, err)

	line := f.outbound(order.ID).Lines[0]
	assert.Equal(t, int64(4), line.OrderedQuantity)
	assert.Equal(t, int64(2), line.AllocatedQuantity)
	assert.Equal(t, int64(1), line.PickedQuantity)
	assert.Equal(t, int64(1), line.ShippedQuantity)
	assert.LessOrEqual(t, line.ShippedQuantity, line.PickedQuantity)
	assert.LessOrEqual(t, line.PickedQuantity, line.AllocatedQuantity)
	assert.LessOrEqual(t, line.AllocatedQuantity, line.OrderedQuantity)
}
