package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInbound(t *testing.T, expected ...int64) *InboundOrder {
	t.Helper()
	lines := make([]InboundOrderLine, 0, len(expected))
	for i, qty := range expected {
		lines = append(lines, InboundOrderLine{ID: string(rune('a' + i)), ProductID: "P1", ExpectedQuantity: qty})
	}
	order, err := NewInboundOrder("IN-1", "T1", "WH1", "INB-2024-0001", "RCV-1", lines, "", testNow)
	require.NoError(t, err)
	return order
}

func TestInboundStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to InboundStatus
		want     bool
	}{
		{InboundStatusDraft, InboundStatusPending, true},
		{InboundStatusPending, InboundStatusReceiving, true},
		{InboundStatusArrived, InboundStatusReceiving, true},
		{InboundStatusReceived, InboundStatusPutawayPending, true},
		{InboundStatusPutawayPending, InboundStatusPutaway, true},
		{InboundStatusPutaway, InboundStatusCompleted, true},
		{InboundStatusReceived, InboundStatusCompleted, false},
		{InboundStatusDraft, InboundStatusReceiving, false},
		{InboundStatusReceiving, InboundStatusCancelled, true},
		{InboundStatusPutaway, InboundStatusOnHold, true},
		{InboundStatusOnHold, InboundStatusOnHold, false},
		{InboundStatusCompleted, InboundStatusCancelled, false},
		{InboundStatusCancelled, InboundStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestInboundOrder_RecordReceipt(t *testing.T) {
	t.Run("rejected before receiving", func(t *testing.T) {
		order := createTestInbound(t, 10)
		_, err := order.RecordReceipt("a", Receipt{Quantity: 1}, testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("partial then full", func(t *testing.T) {
		order := createTestInbound(t, 10, 5)
		require.NoError(t, order.Transition(InboundStatusReceiving, testNow))

		over, err := order.RecordReceipt("a", Receipt{Quantity: 10}, testNow)
		require.NoError(t, err)
		assert.False(t, over)
		assert.Equal(t, InboundStatusPartiallyReceived, order.Status)

		_, err = order.RecordReceipt("b", Receipt{Quantity: 5}, testNow)
		require.NoError(t, err)
		assert.Equal(t, InboundStatusReceived, order.Status)
		assert.Equal(t, int64(15), order.TotalReceived())
	})

	t.Run("over receipt is recorded", func(t *testing.T) {
		order := createTestInbound(t, 10)
		require.NoError(t, order.Transition(InboundStatusReceiving, testNow))

		over, err := order.RecordReceipt("a", Receipt{Quantity: 12}, testNow)
		require.NoError(t, err)
		assert.True(t, over)
		assert.Equal(t, int64(12), order.Lines[0].ReceivedQuantity)
		assert.Len(t, order.Lines[0].Receipts, 1)
	})

	t.Run("invalid quantity and unknown line", func(t *testing.T) {
		order := createTestInbound(t, 10)
		require.NoError(t, order.Transition(InboundStatusReceiving, testNow))

		_, err := order.RecordReceipt("a", Receipt{Quantity: 0}, testNow)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		_, err = order.RecordReceipt("zz", Receipt{Quantity: 1}, testNow)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejected once cancelled", func(t *testing.T) {
		order := createTestInbound(t, 10)
		require.NoError(t, order.Transition(InboundStatusReceiving, testNow))
		require.NoError(t, order.Cancel("supplier no-show", testNow))

		_, err := order.RecordReceipt("a", Receipt{Quantity: 1}, testNow)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestInboundOrder_HoldResume(t *testing.T) {
	order := createTestInbound(t, 10)
	require.NoError(t, order.Transition(InboundStatusConfirmed, testNow))
	require.NoError(t, order.Hold(testNow))
	assert.Equal(t, InboundStatusOnHold, order.Status)

	assert.ErrorIs(t, order.Transition(InboundStatusScheduled, testNow), ErrInvalidState)

	require.NoError(t, order.Resume(testNow))
	assert.Equal(t, InboundStatusConfirmed, order.Status)
	assert.Empty(t, order.HeldFrom)
	assert.ErrorIs(t, order.Resume(testNow), ErrInvalidState)
}

func TestInboundOrder_OperatorCannotSkipToDerivedStates(t *testing.T) {
	order := createTestInbound(t, 10)
	require.NoError(t, order.Transition(InboundStatusReceiving, testNow))
	assert.ErrorIs(t, order.Transition(InboundStatusReceived, testNow), ErrInvalidState)
	assert.ErrorIs(t, order.Transition(InboundStatusCompleted, testNow), ErrInvalidState)

	events := order.PullEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "wms.inbound.status-changed", events[0].EventType())
	assert.Empty(t, order.PullEvents())
}

func createTestOutbound(t *testing.T, ordered ...int64) *OutboundOrder {
	t.Helper()
	lines := make([]OutboundOrderLine, 0, len(ordered))
	for i, qty := range ordered {
		lines = append(lines, OutboundOrderLine{ID: string(rune('a' + i)), ProductID: "P1", OrderedQuantity: qty})
	}
	order, err := NewOutboundOrder("OUT-1", "T1", "WH1", "OUT-2024-0001", PriorityHigh, lines, testNow)
	require.NoError(t, err)
	return order
}

func TestDeriveOutboundStatus(t *testing.T) {
	alloc := func(status AllocationStatus, qty, picked int64) *Allocation {
		return &Allocation{Status: status, Quantity: qty, PickedQuantity: picked}
	}
	line := func(ordered, allocated int64) OutboundOrderLine {
		return OutboundOrderLine{OrderedQuantity: ordered, AllocatedQuantity: allocated}
	}
	released := func(ordered, allocated, returned int64) OutboundOrderLine {
		return OutboundOrderLine{OrderedQuantity: ordered, AllocatedQuantity: allocated, ReleasedQuantity: returned}
	}

	tests := []struct {
		name   string
		lines  []OutboundOrderLine
		allocs []*Allocation
		want   OutboundStatus
	}{
		{"nothing allocated", []OutboundOrderLine{line(10, 0)}, nil, OutboundStatusPending},
		{"fully allocated", []OutboundOrderLine{line(10, 10)}, []*Allocation{alloc(AllocationStatusAllocated, 10, 0)}, OutboundStatusAllocated},
		{"short line", []OutboundOrderLine{line(100, 60)}, []*Allocation{alloc(AllocationStatusAllocated, 60, 0)}, OutboundStatusBackordered},
		{"one line short of two", []OutboundOrderLine{line(5, 5), line(5, 0)}, []*Allocation{alloc(AllocationStatusAllocated, 5, 0)}, OutboundStatusBackordered},
		{"pick started", []OutboundOrderLine{line(10, 10)}, []*Allocation{alloc(AllocationStatusPicking, 10, 0)}, OutboundStatusPicking},
		{"partly picked", []OutboundOrderLine{line(10, 10)}, []*Allocation{alloc(AllocationStatusPicked, 5, 5), alloc(AllocationStatusAllocated, 5, 0)}, OutboundStatusPicking},
		{"all picked", []OutboundOrderLine{line(10, 10)}, []*Allocation{alloc(AllocationStatusPicked, 10, 10)}, OutboundStatusPicked},
		{"short pick settles", []OutboundOrderLine{line(10, 10)}, []*Allocation{alloc(AllocationStatusPicked, 10, 7)}, OutboundStatusPicked},
		{"cancelled task settles", []OutboundOrderLine{line(10, 10)}, []*Allocation{alloc(AllocationStatusPicked, 6, 6), alloc(AllocationStatusCancelled, 4, 0)}, OutboundStatusPicked},
		{"every allocation cancelled", []OutboundOrderLine{released(6, 6, 6)}, []*Allocation{alloc(AllocationStatusCancelled, 6, 0)}, OutboundStatusPending},
		{"one of two allocations cancelled", []OutboundOrderLine{released(6, 6, 3)}, []*Allocation{alloc(AllocationStatusAllocated, 3, 0), alloc(AllocationStatusCancelled, 3, 0)}, OutboundStatusBackordered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOutboundStatus(tt.lines, tt.allocs))
		})
	}
}

func TestOutboundOrder_Lifecycle(t *testing.T) {
	order := createTestOutbound(t, 30)
	assert.True(t, order.CanAllocate())

	require.NoError(t, order.AddAllocated("a", 30, testNow))
	assert.ErrorIs(t, order.AddAllocated("a", 1, testNow), ErrInvalidQuantity)

	allocs := []*Allocation{{Status: AllocationStatusAllocated, Quantity: 30}}
	assert.True(t, order.Refresh(allocs, testNow))
	assert.Equal(t, OutboundStatusAllocated, order.Status)
	assert.False(t, order.Refresh(allocs, testNow))

	assert.ErrorIs(t, order.Pack(testNow), ErrInvalidState)

	require.NoError(t, order.AddPicked("a", 30, testNow))
	allocs[0].Status = AllocationStatusPicked
	allocs[0].PickedQuantity = 30
	order.Refresh(allocs, testNow)
	assert.Equal(t, OutboundStatusPicked, order.Status)

	require.NoError(t, order.Pack(testNow))
	require.NoError(t, order.Ship("UPS", "1Z999", testNow))
	assert.Equal(t, int64(30), order.Lines[0].ShippedQuantity)
	assert.Equal(t, "1Z999", order.TrackingNumber)
	assert.False(t, order.Refresh(allocs, testNow))

	_, err := order.Cancel("late", testNow)
	assert.ErrorIs(t, err, ErrInvalidState)
	require.NoError(t, order.Deliver(testNow))
	assert.Equal(t, OutboundStatusDelivered, order.Status)
}

func TestOutboundOrder_ReturnAllocated(t *testing.T) {
	order := createTestOutbound(t, 10)
	require.NoError(t, order.AddAllocated("a", 10, testNow))
	require.NoError(t, order.AddPicked("a", 6, testNow))

	assert.ErrorIs(t, order.ReturnAllocated("a", 5, testNow), ErrInvalidQuantity, "picked units cannot be handed back")
	require.NoError(t, order.ReturnAllocated("a", 4, testNow))
	line := order.Lines[0]
	assert.Equal(t, int64(6), line.LiveAllocated())
	assert.Equal(t, int64(4), line.Unallocated())
	assert.ErrorIs(t, order.AddPicked("a", 1, testNow), ErrInvalidQuantity)

	require.NoError(t, order.AddAllocated("a", 3, testNow))
	assert.Equal(t, int64(10), order.Lines[0].AllocatedQuantity, "re-covering released quantity does not grow the allocated total")
	assert.Equal(t, int64(1), order.Lines[0].ReleasedQuantity)
	assert.ErrorIs(t, order.AddAllocated("a", 2, testNow), ErrInvalidQuantity)
}

func TestOutboundOrder_CancelIsIdempotent(t *testing.T) {
	order := createTestOutbound(t, 10)

	changed, err := order.Cancel("customer request", testNow)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = order.Cancel("again", testNow)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "customer request", order.CancelReason)
}

func TestNewOutboundOrder_Validation(t *testing.T) {
	_, err := NewOutboundOrder("O", "T1", "WH1", "N", PriorityNormal, nil, testNow)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewOutboundOrder("O", "T1", "WH1", "N", PriorityNormal, []OutboundOrderLine{{ID: "a", ProductID: "P1"}}, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewOutboundOrder("O", "T1", "WH1", "N", "asap", []OutboundOrderLine{{ID: "a", ProductID: "P1", OrderedQuantity: 1}}, testNow)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPickTask_Lifecycle(t *testing.T) {
	order := createTestOutbound(t, 10)
	rec := createTestRecord(t, 10, 0)
	alloc := NewAllocation("AL-1", order.ID, "a", rec, 10, testNow)
	task := NewPickTask("PT-1", "PT-2024-00001", order, alloc, testNow)

	assert.Equal(t, PriorityHigh, task.Priority)
	assert.Equal(t, 7, task.PickSequence)

	assert.ErrorIs(t, task.Start(testNow), ErrInvalidState)
	assert.ErrorIs(t, task.Assign("", testNow), ErrInvalidArgument)
	require.NoError(t, task.Assign("picker-1", testNow))
	assert.ErrorIs(t, task.Assign("picker-2", testNow), ErrInvalidState)
	require.NoError(t, task.Start(testNow))
	assert.ErrorIs(t, task.Complete(11, testNow), ErrInvalidQuantity)
	require.NoError(t, task.Complete(8, testNow))
	assert.True(t, task.IsShort())
	assert.ErrorIs(t, task.Cancel("too late", testNow), ErrInvalidState)

	assert.Len(t, task.PullEvents(), 3)
}

func TestWave_Progress(t *testing.T) {
	o1 := createTestOutbound(t, 10)
	o2 := createTestOutbound(t, 5, 5)
	o2.ID = "OUT-2"

	wave, err := NewWave("W-1", "T1", "WH1", "W-2024-001", "morning", []*OutboundOrder{o1, o2}, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, wave.OrderCount)
	assert.Equal(t, 3, wave.LineCount)
	assert.Equal(t, int64(20), wave.UnitCount)

	assert.False(t, wave.Progress([]OutboundStatus{OutboundStatusPicking}, testNow), "draft waves do not progress")
	require.NoError(t, wave.Release(testNow))

	assert.False(t, wave.Progress([]OutboundStatus{OutboundStatusAllocated, OutboundStatusAllocated}, testNow))
	assert.True(t, wave.Progress([]OutboundStatus{OutboundStatusPicking, OutboundStatusAllocated}, testNow))
	assert.Equal(t, WaveStatusInProgress, wave.Status)
	assert.True(t, wave.Progress([]OutboundStatus{OutboundStatusShipped, OutboundStatusCancelled}, testNow))
	assert.Equal(t, WaveStatusCompleted, wave.Status)
	assert.ErrorIs(t, wave.Cancel(testNow), ErrInvalidState)
}

func TestNewWave_RejectsDuplicatesAndForeignWarehouse(t *testing.T) {
	o1 := createTestOutbound(t, 10)
	_, err := NewWave("W-1", "T1", "WH1", "W-2024-001", "", []*OutboundOrder{o1, o1}, testNow)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	o2 := createTestOutbound(t, 10)
	o2.ID = "OUT-9"
	o2.WarehouseID = "WH2"
	_, err = NewWave("W-1", "T1", "WH1", "W-2024-001", "", []*OutboundOrder{o1, o2}, testNow)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
