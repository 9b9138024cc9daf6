package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

func TestLedger_Receive(t *testing.T) {
	f := newFixture(t)

	first := f.stock(binA, 10)
	second := f.stock(binA, 5)

	assert.Equal(t, first.ID, second.ID, "same key accumulates into one record")
	rec := f.record(first.ID)
	assert.Equal(t, int64(15), rec.OnHand)
	assert.Equal(t, int64(15), rec.Available)
	assert.Equal(t, domain.LocationTypeStorage, rec.LocationType)
	assert.Equal(t, 10, rec.PickSequence)
	assert.Len(t, f.movements(rec.ID), 2)
	f.conserved(rec.ID)
}

func TestLedger_ReceiveWeightedCost(t *testing.T) {
	f := newFixture(t)
	ten := decimal.NewFromInt(10)
	sixteen := decimal.NewFromInt(16)

	_, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: key(binA, skuPlain), Quantity: 10, UnitCost: &ten})
	require.NoError(t, err)
	rec, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: key(binA, skuPlain), Quantity: 5, UnitCost: &sixteen})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(12).Equal(rec.UnitCost), "got %s", rec.UnitCost)

	summary, err := f.ledger.StockSummary(f.ctx, tenantID, warehouse, skuPlain)
	require.NoError(t, err)
	assert.Equal(t, int64(15), summary.OnHand)
	assert.True(t, decimal.NewFromInt(180).Equal(summary.Valuation))
}

func TestLedger_ReceiveValidation(t *testing.T) {
	lotKey := key(binA, skuLot)
	tests := []struct {
		name string
		req  ReceiveRequest
		want error
	}{
		{"zero quantity", ReceiveRequest{Key: key(binA, skuPlain), Quantity: 0}, domain.ErrInvalidQuantity},
		{"negative quantity", ReceiveRequest{Key: key(binA, skuPlain), Quantity: -3}, domain.ErrInvalidQuantity},
		{"location in another warehouse", ReceiveRequest{Key: key(farBin, skuPlain), Quantity: 1}, domain.ErrInvalidArgument},
		{"unknown location", ReceiveRequest{Key: key("nowhere", skuPlain), Quantity: 1}, domain.ErrNotFound},
		{"unknown product", ReceiveRequest{Key: key(binA, "ghost"), Quantity: 1}, domain.ErrNotFound},
		{"lot tracked without lot", ReceiveRequest{Key: lotKey, Quantity: 1}, domain.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.ledger.Receive(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)

			records, err := f.ledger.List(f.ctx, domain.InventoryFilter{TenantID: tenantID})
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestLedger_ReceiveSeparatesLots(t *testing.T) {
	f := newFixture(t)
	expiry := time.Date(2025, 1, 31, 15, 4, 0, 0, time.UTC)

	a := key(binA, skuLot)
	a.LotNumber = "L1"
	a.ExpiryDate = &expiry
	b := a
	b.LotNumber = "L2"

	r1, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: a, Quantity: 3})
	require.NoError(t, err)
	r2, err := f.ledger.Receive(f.ctx, ReceiveRequest{Key: b, Quantity: 4})
	require.NoError(t, err)

	assert.NotEqual(t, r1.ID, r2.ID)
	require.NotNil(t, r1.ExpiryDate)
	assert.Equal(t, 0, r1.ExpiryDate.Hour(), "expiry is kept at day precision")
}

func TestLedger_ReceiveIdempotent(t *testing.T) {
	f := newFixture(t)
	req := ReceiveRequest{Key: key(binA, skuPlain), Quantity: 7, Meta: domain.MovementMeta{IdempotencyKey: "rcv-1"}}

	first, err := f.ledger.Receive(f.ctx, req)
	require.NoError(t, err)
	again, err := f.ledger.Receive(f.ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, int64(7), f.record(first.ID).OnHand)
	assert.Len(t, f.movements(first.ID), 1)

	_, err = f.ledger.Adjust(f.ctx, tenantID, first.ID, -1, domain.MovementTypeAdjustment,
		domain.MovementMeta{Reason: "recount", IdempotencyKey: "rcv-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "a key cannot be reused for another operation")
}

func TestLedger_ReserveReleaseConsume(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)

	res, err := f.ledger.Reserve(f.ctx, tenantID, rec.ID, 6, domain.MovementMeta{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Record.Reserved)
	assert.Equal(t, int64(4), res.Record.Available)

	_, err = f.ledger.Reserve(f.ctx, tenantID, rec.ID, 5, domain.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)

	_, err = f.ledger.ReleaseReservation(f.ctx, tenantID, rec.ID, 7, domain.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	after, err := f.ledger.ReleaseReservation(f.ctx, tenantID, rec.ID, 2, domain.MovementMeta{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), after.Reserved)

	_, err = f.ledger.Consume(f.ctx, tenantID, rec.ID, 5, domain.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrInsufficientReserved)

	after, err = f.ledger.Consume(f.ctx, tenantID, rec.ID, 4, domain.MovementMeta{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), after.OnHand)
	assert.Zero(t, after.Reserved)
	assert.Equal(t, int64(6), after.Available)
	f.conserved(rec.ID)
}

func TestLedger_ReserveIdempotent(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)
	meta := domain.MovementMeta{IdempotencyKey: "res-1"}

	first, err := f.ledger.Reserve(f.ctx, tenantID, rec.ID, 4, meta)
	require.NoError(t, err)
	again, err := f.ledger.Reserve(f.ctx, tenantID, rec.ID, 4, meta)
	require.NoError(t, err)

	assert.Equal(t, first.MovementID, again.MovementID)
	assert.Equal(t, int64(4), f.record(rec.ID).Reserved)
}

func TestLedger_ReserveRequiresAvailableStatus(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 10)

	_, err := f.ledger.SetStatus(f.ctx, tenantID, rec.ID, domain.InventoryStatusQuarantine, domain.MovementMeta{Reason: "inspection"})
	require.NoError(t, err)

	_, err = f.ledger.Reserve(f.ctx, tenantID, rec.ID, 1, domain.MovementMeta{})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	summary, err := f.ledger.StockSummary(f.ctx, tenantID, warehouse, skuPlain)
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.Available)
	assert.Zero(t, summary.Allocatable)

	movements := f.movements(rec.ID)
	assert.Equal(t, domain.MovementTypeStatus, movements[len(movements)-1].Type)
}

func TestLedger_Adjust(t *testing.T) {
	tests := []struct {
		name   string
		delta  int64
		reason string
		want   error
		onHand int64
	}{
		{name: "count up", delta: 3, reason: "cycle count", onHand: 13},
		{name: "shrink", delta: -4, reason: "damaged", onHand: 6},
		{name: "below reserved", delta: -8, reason: "lost", want: domain.ErrInvalidAdjustment, onHand: 10},
		{name: "zero", delta: 0, reason: "noop", want: domain.ErrInvalidQuantity, onHand: 10},
		{name: "no reason", delta: 1, want: domain.ErrInvalidArgument, onHand: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.stock(binA, 10)
			_, err := f.ledger.Reserve(f.ctx, tenantID, rec.ID, 3, domain.MovementMeta{})
			require.NoError(t, err)

			_, err = f.ledger.Adjust(f.ctx, tenantID, rec.ID, tt.delta, "", domain.MovementMeta{Reason: tt.reason})
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.onHand, f.record(rec.ID).OnHand)
			f.conserved(rec.ID)
		})
	}
}

func TestLedger_Transfer(t *testing.T) {
	f := newFixture(t)
	src := f.stock(binA, 10)
	_, err := f.ledger.Reserve(f.ctx, tenantID, src.ID, 2, domain.MovementMeta{})
	require.NoError(t, err)

	res, err := f.ledger.Transfer(f.ctx, TransferRequest{
		TenantID: tenantID, RecordID: src.ID, ToLocationID: binB, Quantity: 5,
		Meta: domain.MovementMeta{IdempotencyKey: "mv-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Source.OnHand)
	assert.Equal(t, int64(5), res.Destination.OnHand)
	assert.Equal(t, src.ReceivedAt, res.Destination.ReceivedAt, "moved stock keeps its age")

	replay, err := f.ledger.Transfer(f.ctx, TransferRequest{
		TenantID: tenantID, RecordID: src.ID, ToLocationID: binB, Quantity: 5,
		Meta: domain.MovementMeta{IdempotencyKey: "mv-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, res.Destination.ID, replay.Destination.ID)
	assert.Equal(t, int64(5), f.record(res.Destination.ID).OnHand)

	out := f.movements(src.ID)
	in := f.movements(res.Destination.ID)
	require.Len(t, in, 1)
	assert.Equal(t, res.Destination.ID, out[len(out)-1].CounterpartID)
	assert.Equal(t, src.ID, in[0].CounterpartID)
	f.conserved(src.ID)
	f.conserved(res.Destination.ID)

	_, err = f.ledger.Transfer(f.ctx, TransferRequest{TenantID: tenantID, RecordID: src.ID, ToLocationID: binB, Quantity: 4})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable, "reserved units cannot move")
	_, err = f.ledger.Transfer(f.ctx, TransferRequest{TenantID: tenantID, RecordID: src.ID, ToLocationID: farBin, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = f.ledger.Transfer(f.ctx, TransferRequest{TenantID: tenantID, RecordID: src.ID, ToLocationID: binA, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestLedger_TransferKeepsStatus(t *testing.T) {
	quarantine := func(f *fixture, rec *domain.InventoryRecord) {
		f.t.Helper()
		_, err := f.ledger.SetStatus(f.ctx, tenantID, rec.ID, domain.InventoryStatusQuarantine, domain.MovementMeta{Reason: "inspection"})
		require.NoError(f.t, err)
	}

	tests := []struct {
		name          string
		quarantineSrc bool
		quarantineDst bool
	}{
		{name: "quarantined into available", quarantineSrc: true},
		{name: "available into quarantined", quarantineDst: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			src := f.stock(binA, 5)
			dst := f.stock(binB, 10)
			if tt.quarantineSrc {
				quarantine(f, src)
			}
			if tt.quarantineDst {
				quarantine(f, dst)
			}
			allocatable := func() int64 {
				summary, err := f.ledger.StockSummary(f.ctx, tenantID, warehouse, skuPlain)
				require.NoError(t, err)
				return summary.Allocatable
			}
			before := allocatable()

			_, err := f.ledger.Transfer(f.ctx, TransferRequest{TenantID: tenantID, RecordID: src.ID, ToLocationID: binB, Quantity: 5})
			assert.ErrorIs(t, err, domain.ErrInvalidState)

			assert.Equal(t, int64(5), f.record(src.ID).OnHand)
			assert.Equal(t, int64(10), f.record(dst.ID).OnHand)
			assert.Equal(t, before, allocatable())
			f.conserved(src.ID)
			f.conserved(dst.ID)
		})
	}

	t.Run("quarantined into empty bin", func(t *testing.T) {
		f := newFixture(t)
		src := f.stock(binA, 5)
		quarantine(f, src)

		res, err := f.ledger.Transfer(f.ctx, TransferRequest{TenantID: tenantID, RecordID: src.ID, ToLocationID: binB, Quantity: 5})
		require.NoError(t, err)
		assert.Equal(t, domain.InventoryStatusQuarantine, res.Destination.Status)

		_, err = f.ledger.Reserve(f.ctx, tenantID, res.Destination.ID, 1, domain.MovementMeta{})
		assert.ErrorIs(t, err, domain.ErrInvalidState, "moved stock is still not allocatable")
	})
}

func TestLedger_ConcurrentReserve(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 4)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Reserve(context.Background(), tenantID, rec.ID, 3, domain.MovementMeta{})
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
			failed++
		}
	}
	assert.Equal(t, 1, failed, "exactly one reservation wins")
	final := f.record(rec.ID)
	assert.Equal(t, int64(3), final.Reserved)
	assert.Equal(t, int64(1), final.Available)
}

func TestLedger_ListMovementsUnknownRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ListMovements(f.ctx, tenantID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLedger_MovementEventsReachOutbox(t *testing.T) {
	f := newFixture(t)
	rec := f.stock(binA, 2)

	events, err := f.store.Outbox().FindByAggregateID(f.ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "wms.inventory.movement-recorded", events[0].EventType)
	assert.Equal(t, tenantID, events[0].TenantID)
}
