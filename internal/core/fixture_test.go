package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure/memory"
)

const (
	tenantID  = "acme"
	warehouse = "wh-1"
	skuPlain  = "sku-plain"
	skuLot    = "sku-lot"
	dock      = "DOCK-1"
	binA      = "A-01"
	binB      = "B-01"
	farBin    = "Z-99"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t           *testing.T
	ctx         context.Context
	store       *memory.Store
	repos       domain.Repositories
	clock       *testClock
	ledger      *Ledger
	allocator   *Allocator
	picking     *Picking
	fulfillment *Fulfillment
	receiving   *Receiving
	waves       *Waves
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore("")
	repos := store.Repositories()
	clock := &testClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	ledger := NewLedger(repos, clock)
	allocator := NewAllocator(repos, clock, ledger)
	fulfillment := NewFulfillment(repos, clock, ledger)
	f := &fixture{
		t:           t,
		ctx:         context.Background(),
		store:       store,
		repos:       repos,
		clock:       clock,
		ledger:      ledger,
		allocator:   allocator,
		picking:     NewPicking(repos, clock, ledger),
		fulfillment: fulfillment,
		receiving:   NewReceiving(repos, clock, ledger),
		waves:       NewWaves(repos, clock, allocator, fulfillment),
	}

	products := []*domain.Product{
		{ID: skuPlain, TenantID: tenantID, SKU: "PLAIN", Name: "Plain widget", UnitOfMeasure: "each"},
		{ID: skuLot, TenantID: tenantID, SKU: "LOT", Name: "Lot tracked widget", UnitOfMeasure: "each", LotTracked: true},
	}
	for _, p := range products {
		require.NoError(t, repos.Products.SaveProduct(f.ctx, p))
	}
	locations := []*domain.Location{
		{ID: dock, TenantID: tenantID, WarehouseID: warehouse, Code: "DOCK-1", Type: domain.LocationTypeReceiving, PickSequence: 1, Active: true},
		{ID: binA, TenantID: tenantID, WarehouseID: warehouse, Code: "A-01", Type: domain.LocationTypeStorage, PickSequence: 10, Active: true},
		{ID: binB, TenantID: tenantID, WarehouseID: warehouse, Code: "B-01", Type: domain.LocationTypeStorage, PickSequence: 20, Active: true},
		{ID: farBin, TenantID: tenantID, WarehouseID: "wh-2", Code: "Z-99", Type: domain.LocationTypeStorage, PickSequence: 1, Active: true},
	}
	for _, l := range locations {
		require.NoError(t, repos.Locations.SaveLocation(f.ctx, l))
	}
	return f
}

func key(location, product string) domain.RecordKey {
	return domain.RecordKey{TenantID: tenantID, WarehouseID: warehouse, LocationID: location, ProductID: product}
}

// stock receives quantity at location and moves the clock on so that later
// receipts are younger
func (f *fixture) stock(location string, quantity int64) *domain.InventoryRecord {
	f.t.Helper()
	rec, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: key(location, skuPlain), Quantity: quantity})
	require.NoError(f.t, err)
	f.clock.Advance(time.Minute)
	return rec
}

func (f *fixture) record(id string) *domain.InventoryRecord {
	f.t.Helper()
	rec, err := f.ledger.Get(f.ctx, tenantID, id)
	require.NoError(f.t, err)
	require.NoError(f.t, rec.CheckInvariants())
	return rec
}

func (f *fixture) order(quantities ...int64) *domain.OutboundOrder {
	f.t.Helper()
	lines := make([]domain.OutboundOrderLine, len(quantities))
	for i, q := range quantities {
		lines[i] = domain.OutboundOrderLine{ProductID: skuPlain, OrderedQuantity: q}
	}
	order, err := f.fulfillment.CreateOrder(f.ctx, NewOutboundOrder{TenantID: tenantID, WarehouseID: warehouse, Lines: lines})
	require.NoError(f.t, err)
	return order
}

func (f *fixture) outbound(id string) *domain.OutboundOrder {
	f.t.Helper()
	order, err := f.fulfillment.Get(f.ctx, tenantID, id)
	require.NoError(f.t, err)
	return order
}

// pickAll walks every pending task of an order to completion, picking short by
// shortBy units on each
func (f *fixture) pickAll(tasks []*domain.PickTask, shortBy int64) {
	f.t.Helper()
	for _, task := range tasks {
		_, err := f.picking.Assign(f.ctx, tenantID, task.ID, "picker-1")
		require.NoError(f.t, err)
		_, err = f.picking.Start(f.ctx, tenantID, task.ID)
		require.NoError(f.t, err)
		_, err = f.picking.Complete(f.ctx, tenantID, task.ID, task.Quantity-shortBy)
		require.NoError(f.t, err)
	}
}

func (f *fixture) movements(recordID string) []*domain.InventoryMovement {
	f.t.Helper()
	list, err := f.ledger.ListMovements(f.ctx, tenantID, recordID)
	require.NoError(f.t, err)
	return list
}

// conserved checks on_hand equals the sum of on-hand deltas in the log
func (f *fixture) conserved(recordID string) {
	f.t.Helper()
	rec := f.record(recordID)
	var onHand, reserved int64
	for _, m := range f.movements(recordID) {
		onHand += m.OnHandDelta
		reserved += m.ReservedDelta
	}
	require.Equal(f.t, rec.OnHand, onHand, "on hand drifted from the movement log")
	require.Equal(f.t, rec.Reserved, reserved, "reserved drifted from the movement log")
}
