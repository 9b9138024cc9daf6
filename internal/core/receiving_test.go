package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

func inboundOrder(t *testing.T, f *fixture, expected ...int64) *domain.InboundOrder {
	t.Helper()
	lines := make([]domain.InboundOrderLine, len(expected))
	for i, q := range expected {
		lines[i] = domain.InboundOrderLine{ProductID: skuPlain, ExpectedQuantity: q, UnitCost: decimal.NewFromFloat(2.5)}
	}
	order, err := f.receiving.CreateOrder(f.ctx, NewInboundOrder{
		TenantID: tenantID, WarehouseID: warehouse, SupplierName: "Acme Supply",
		ReceivingLocationID: dock, Lines: lines,
	})
	require.NoError(t, err)
	order, err = f.receiving.Transition(f.ctx, tenantID, order.ID, domain.InboundStatusReceiving)
	require.NoError(t, err)
	return order
}

func TestReceiving_CreateOrder(t *testing.T) {
	f := newFixture(t)

	order, err := f.receiving.CreateOrder(f.ctx, NewInboundOrder{
		TenantID: tenantID, WarehouseID: warehouse, ReceivingLocationID: dock, Status: domain.InboundStatusDraft,
		Lines: []domain.InboundOrderLine{{ProductID: skuPlain, ExpectedQuantity: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, "INB-2024-0001", order.OrderNumber)
	assert.Equal(t, domain.InboundStatusDraft, order.Status)

	_, err = f.receiving.CreateOrder(f.ctx, NewInboundOrder{
		TenantID: tenantID, WarehouseID: warehouse, ReceivingLocationID: farBin,
		Lines: []domain.InboundOrderLine{{ProductID: skuPlain, ExpectedQuantity: 5}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "receiving location must be in the order's warehouse")

	_, err = f.receiving.CreateOrder(f.ctx, NewInboundOrder{
		TenantID: tenantID, WarehouseID: warehouse, Status: domain.InboundStatusReceived,
		Lines: []domain.InboundOrderLine{{ProductID: skuPlain, ExpectedQuantity: 5}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestReceiving_RecordReceipt(t *testing.T) {
	f := newFixture(t)
	order := inboundOrder(t, f, 10, 4)
	line := order.Lines[0]

	res, err := f.receiving.RecordReceipt(f.ctx, ReceiptInput{
		TenantID: tenantID, OrderID: order.ID, LineID: line.ID, Quantity: 6, ReceivedBy: "clerk",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InboundStatusPartiallyReceived, res.Order.Status)
	assert.False(t, res.OverReceipt)
	assert.Equal(t, dock, res.Record.LocationID, "receipts default to the receiving location")
	assert.True(t, decimal.NewFromFloat(2.5).Equal(res.Record.UnitCost))
	assert.Equal(t, int64(6), res.Order.Lines[0].ReceivedQuantity)
	require.Len(t, res.Order.Lines[0].Receipts, 1)
	assert.Equal(t, res.Record.ID, res.Order.Lines[0].Receipts[0].RecordID)

	res, err = f.receiving.RecordReceipt(f.ctx, ReceiptInput{
		TenantID: tenantID, OrderID: order.ID, LineID: line.ID, Quantity: 6,
	})
	require.NoError(t, err)
	assert.True(t, res.OverReceipt, "over-receipt is accepted and flagged")
	assert.Equal(t, int64(12), res.Order.Lines[0].ReceivedQuantity)
	assert.Equal(t, domain.InboundStatusPartiallyReceived, res.Order.Status)

	res, err = f.receiving.RecordReceipt(f.ctx, ReceiptInput{
		TenantID: tenantID, OrderID: order.ID, LineID: order.Lines[1].ID, Quantity: 4, LocationID: binA,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InboundStatusReceived, res.Order.Status)
	assert.Equal(t, binA, res.Record.LocationID)

	summary, err := f.ledger.StockSummary(f.ctx, tenantID, warehouse, skuPlain)
	require.NoError(t, err)
	assert.Equal(t, int64(16), summary.OnHand)
}

func TestReceiving_ReceiptIdempotency(t *testing.T) {
	f := newFixture(t)
	order := inboundOrder(t, f, 5)
	in := ReceiptInput{
		TenantID: tenantID, OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 5, IdempotencyKey: "asn-77",
	}

	first, err := f.receiving.RecordReceipt(f.ctx, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	require.Equal(t, domain.InboundStatusReceived, first.Order.Status)

	// a retried call after the order moved on still answers with the original outcome
	again, err := f.receiving.RecordReceipt(f.ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Record.ID, again.Record.ID)
	assert.Equal(t, int64(5), again.Order.Lines[0].ReceivedQuantity)
	assert.Equal(t, int64(5), f.record(first.Record.ID).OnHand)
	f.conserved(first.Record.ID)
}

func TestReceiving_ReceiptKeyReusedElsewhere(t *testing.T) {
	tests := []struct {
		name  string
		spend func(f *fixture, first *domain.InboundOrder)
		reuse func(f *fixture, first *domain.InboundOrder) ReceiptInput
	}{
		{
			name: "other line of the same order",
			spend: func(f *fixture, first *domain.InboundOrder) {
				_, err := f.receiving.RecordReceipt(f.ctx, ReceiptInput{
					TenantID: tenantID, OrderID: first.ID, LineID: first.Lines[0].ID, Quantity: 2, IdempotencyKey: "asn-1",
				})
				require.NoError(f.t, err)
			},
			reuse: func(f *fixture, first *domain.InboundOrder) ReceiptInput {
				return ReceiptInput{TenantID: tenantID, OrderID: first.ID, LineID: first.Lines[1].ID, Quantity: 2, IdempotencyKey: "asn-1"}
			},
		},
		{
			name: "other order",
			spend: func(f *fixture, first *domain.InboundOrder) {
				_, err := f.receiving.RecordReceipt(f.ctx, ReceiptInput{
					TenantID: tenantID, OrderID: first.ID, LineID: first.Lines[0].ID, Quantity: 2, IdempotencyKey: "asn-1",
				})
				require.NoError(f.t, err)
			},
			reuse: func(f *fixture, _ *domain.InboundOrder) ReceiptInput {
				other := inboundOrder(f.t, f, 4, 4)
				return ReceiptInput{TenantID: tenantID, OrderID: other.ID, LineID: other.Lines[0].ID, Quantity: 2, IdempotencyKey: "asn-1"}
			},
		},
		{
			name: "direct ledger receive",
			spend: func(f *fixture, _ *domain.InboundOrder) {
				_, err := f.ledger.Receive(f.ctx, ReceiveRequest{
					Key: key(dock, skuPlain), Quantity: 2, Meta: domain.MovementMeta{IdempotencyKey: "asn-1"},
				})
				require.NoError(f.t, err)
			},
			reuse: func(f *fixture, first *domain.InboundOrder) ReceiptInput {
				return ReceiptInput{TenantID: tenantID, OrderID: first.ID, LineID: first.Lines[0].ID, Quantity: 2, IdempotencyKey: "asn-1"}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			first := inboundOrder(t, f, 4, 4)
			tt.spend(f, first)
			in := tt.reuse(f, first)

			_, err := f.receiving.RecordReceipt(f.ctx, in)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)

			order, err := f.receiving.Get(f.ctx, tenantID, in.OrderID)
			require.NoError(t, err)
			line, err := order.Line(in.LineID)
			require.NoError(t, err)
			assert.Empty(t, line.Receipts, "the rejected receipt is not booked")
		})
	}
}

func TestReceiving_ReceiptFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, order *domain.InboundOrder)
		qty    int64
		want   error
	}{
		{name: "zero quantity", qty: 0, want: domain.ErrInvalidQuantity},
		{name: "cancelled order", qty: 1, want: domain.ErrInvalidState, mutate: func(f *fixture, o *domain.InboundOrder) {
			_, err := f.receiving.Cancel(f.ctx, tenantID, o.ID, "supplier withdrew")
			require.NoError(f.t, err)
		}},
		{name: "order on hold", qty: 1, want: domain.ErrInvalidState, mutate: func(f *fixture, o *domain.InboundOrder) {
			_, err := f.receiving.Hold(f.ctx, tenantID, o.ID)
			require.NoError(f.t, err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			order := inboundOrder(t, f, 5)
			if tt.mutate != nil {
				tt.mutate(f, order)
			}
			_, err := f.receiving.RecordReceipt(f.ctx, ReceiptInput{
				TenantID: tenantID, OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: tt.qty,
			})
			assert.ErrorIs(t, err, tt.want)

			records, err := f.ledger.List(f.ctx, domain.InventoryFilter{TenantID: tenantID})
			require.NoError(t, err)
			assert.Empty(t, records, "a failed receipt leaves no stock behind")
		})
	}
}

func TestReceiving_HoldResume(t *testing.T) {
	f := newFixture(t)
	order := inboundOrder(t, f, 5)

	held, err := f.receiving.Hold(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboundStatusOnHold, held.Status)

	resumed, err := f.receiving.Resume(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboundStatusReceiving, resumed.Status)

	_, err = f.receiving.Resume(f.ctx, tenantID, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReceiving_PutawayAndComplete(t *testing.T) {
	f := newFixture(t)
	order := inboundOrder(t, f, 8)
	res, err := f.receiving.RecordReceipt(f.ctx, ReceiptInput{
		TenantID: tenantID, OrderID: order.ID, LineID: order.Lines[0].ID, Quantity: 8,
	})
	require.NoError(t, err)
	dockRecord := res.Record.ID

	_, err = f.receiving.Putaway(f.ctx, tenantID, order.ID, "clerk", []PutawayMove{{RecordID: dockRecord, ToLocationID: binA, Quantity: 8}})
	assert.ErrorIs(t, err, domain.ErrInvalidState, "putaway waits for putaway_pending")

	_, err = f.receiving.Transition(f.ctx, tenantID, order.ID, domain.InboundStatusPutawayPending)
	require.NoError(t, err)

	_, err = f.receiving.Putaway(f.ctx, tenantID, order.ID, "clerk", []PutawayMove{
		{RecordID: dockRecord, ToLocationID: binA, Quantity: 5},
		{RecordID: dockRecord, ToLocationID: binB, Quantity: 9},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientAvailable)
	assert.Equal(t, int64(8), f.record(dockRecord).OnHand, "failed putaway moves nothing")

	after, err := f.receiving.Putaway(f.ctx, tenantID, order.ID, "clerk", []PutawayMove{
		{RecordID: dockRecord, ToLocationID: binA, Quantity: 5},
		{RecordID: dockRecord, ToLocationID: binB, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InboundStatusPutaway, after.Status)
	assert.Zero(t, f.record(dockRecord).OnHand)

	movements := f.movements(dockRecord)
	last := movements[len(movements)-1]
	assert.Equal(t, domain.MovementTypePutaway, last.Type)
	assert.Equal(t, order.ID, last.ReferenceID)

	done, err := f.receiving.Complete(f.ctx, tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboundStatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = f.receiving.Cancel(f.ctx, tenantID, order.ID, "late")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReceiving_TransitionRejectsDerivedTargets(t *testing.T) {
	f := newFixture(t)
	order := inboundOrder(t, f, 5)

	_, err := f.receiving.Transition(f.ctx, tenantID, order.ID, domain.InboundStatusReceived)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}
