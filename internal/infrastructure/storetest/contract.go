// Package storetest holds the behaviour every store adapter must share. The
// memory store runs it in unit tests, the database stores in integration tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
)

// Topic is the events topic factories must configure
const Topic = "wms.warehouse-core.events"

// T0 is a millisecond aligned base time every store can persist exactly
var T0 = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

// Harness is one empty store
type Harness struct {
	Repos  domain.Repositories
	Outbox outbox.Repository
}

// Factory returns a fresh, empty store whose events go to Topic
type Factory func(t *testing.T) Harness

// Record builds an available record of sku-1 in wh-1 for tenant acme
func Record(id, location string, receivedAt time.Time, pickSeq int, onHand int64) *domain.InventoryRecord {
	key := domain.RecordKey{TenantID: "acme", WarehouseID: "wh-1", LocationID: location, ProductID: "sku-1"}
	rec := domain.NewInventoryRecord(id, key, &domain.Location{ID: location, Type: domain.LocationTypeStorage, PickSequence: pickSeq}, receivedAt)
	rec.OnHand = onHand
	rec.Available = onHand
	return rec
}

// Run exercises every port of the store built by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("UpsertVersionCheck", func(t *testing.T) { upsertVersionCheck(t, newStore(t)) })
	t.Run("TenantIsolation", func(t *testing.T) { tenantIsolation(t, newStore(t)) })
	t.Run("FindAvailableForProductFIFO", func(t *testing.T) { findAvailableFIFO(t, newStore(t)) })
	t.Run("TransactionRollsBack", func(t *testing.T) { transactionRollsBack(t, newStore(t)) })
	t.Run("IdempotencyKeyPerTenant", func(t *testing.T) { idempotencyKeyPerTenant(t, newStore(t)) })
	t.Run("OrderVersioning", func(t *testing.T) { orderVersioning(t, newStore(t)) })
	t.Run("ListPagination", func(t *testing.T) { listPagination(t, newStore(t)) })
	t.Run("PickTaskFilters", func(t *testing.T) { pickTaskFilters(t, newStore(t)) })
	t.Run("Sequences", func(t *testing.T) { sequences(t, newStore(t)) })
	t.Run("Outbox", func(t *testing.T) { outboxLifecycle(t, newStore(t)) })
}

func upsertVersionCheck(t *testing.T, h Harness) {
	ctx := context.Background()
	repo := h.Repos.Inventory

	rec := Record("r1", "A-1", T0, 1, 10)
	require.NoError(t, repo.Upsert(ctx, rec))
	assert.Equal(t, int64(1), rec.Version)

	stale, err := repo.Get(ctx, "acme", "r1")
	require.NoError(t, err)

	rec.OnHand = 12
	rec.Available = 12
	require.NoError(t, repo.Upsert(ctx, rec))
	assert.Equal(t, int64(2), rec.Version)

	stale.OnHand = 99
	assert.ErrorIs(t, repo.Upsert(ctx, stale), domain.ErrConcurrentModification)
	assert.Equal(t, int64(1), stale.Version, "a failed write keeps the caller's version")

	fresh := Record("r1", "A-1", T0, 1, 10)
	assert.ErrorIs(t, repo.Upsert(ctx, fresh), domain.ErrConcurrentModification, "second insert of the same id")

	dupKey := Record("r2", "A-1", T0, 1, 10)
	assert.ErrorIs(t, repo.Upsert(ctx, dupKey), domain.ErrConcurrentModification, "second record for the same key")

	ghost := Record("r3", "A-9", T0, 1, 10)
	ghost.Version = 4
	assert.ErrorIs(t, repo.Upsert(ctx, ghost), domain.ErrNotFound)

	got, err := repo.FindByKey(ctx, rec.Key())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.OnHand)
	assert.True(t, got.UnitCost.Equal(rec.UnitCost))

	missing, err := repo.FindByKey(ctx, domain.RecordKey{TenantID: "acme", WarehouseID: "wh-1", LocationID: "nowhere", ProductID: "sku-1"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func tenantIsolation(t *testing.T, h Harness) {
	ctx := context.Background()
	require.NoError(t, h.Repos.Inventory.Upsert(ctx, Record("r1", "A-1", T0, 1, 10)))

	_, err := h.Repos.Inventory.Get(ctx, "other", "r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := h.Repos.Inventory.List(ctx, domain.InventoryFilter{TenantID: "other"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func findAvailableFIFO(t *testing.T, h Harness) {
	ctx := context.Background()
	repo := h.Repos.Inventory

	late := Record("late", "A-1", T0.Add(2*time.Hour), 1, 5)
	earlyFar := Record("early-far", "A-2", T0, 9, 5)
	earlyNear := Record("early-near", "A-3", T0, 2, 5)
	empty := Record("empty", "A-4", T0.Add(-time.Hour), 1, 0)
	held := Record("held", "A-5", T0.Add(-time.Hour), 1, 5)
	held.Status = domain.InventoryStatusQuarantine
	for _, r := range []*domain.InventoryRecord{late, earlyFar, earlyNear, empty, held} {
		require.NoError(t, repo.Upsert(ctx, r))
	}

	got, err := repo.FindAvailableForProduct(ctx, "acme", "sku-1", domain.LocationScope{WarehouseID: "wh-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"early-near", "early-far", "late"}, recordIDs(got))

	scoped, err := repo.FindAvailableForProduct(ctx, "acme", "sku-1", domain.LocationScope{LocationIDs: []string{"A-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, recordIDs(scoped))

	byType, err := repo.FindAvailableForProduct(ctx, "acme", "sku-1", domain.LocationScope{LocationTypes: []domain.LocationType{domain.LocationTypePicking}})
	require.NoError(t, err)
	assert.Empty(t, byType)
}

func transactionRollsBack(t *testing.T, h Harness) {
	ctx := context.Background()
	repos := h.Repos
	require.NoError(t, repos.Inventory.Upsert(ctx, Record("r1", "A-1", T0, 1, 10)))

	boom := errors.New("boom")
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		rec, err := repos.Inventory.Get(ctx, "acme", "r1")
		if err != nil {
			return err
		}
		rec.OnHand = 0
		rec.Available = 0
		if err := repos.Inventory.Upsert(ctx, rec); err != nil {
			return err
		}
		m := &domain.InventoryMovement{ID: "m1", TenantID: "acme", RecordID: "r1", Type: domain.MovementTypeAdjustment, IdempotencyKey: "k1", OccurredAt: T0}
		if err := repos.Inventory.AppendMovement(ctx, m); err != nil {
			return err
		}
		if err := repos.Events.Record(ctx, &domain.MovementRecordedEvent{Movement: *m}); err != nil {
			return err
		}
		if _, err := repos.Sequences.Next(ctx, "acme", "OUT-2024"); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return repos.Tx.WithTransaction(ctx, func(ctx context.Context) error { return boom })
	})
	require.ErrorIs(t, err, boom)

	rec, err := repos.Inventory.Get(ctx, "acme", "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), rec.OnHand)
	assert.Equal(t, int64(1), rec.Version)

	m, err := repos.Inventory.FindMovementByIdempotencyKey(ctx, "acme", "k1")
	require.NoError(t, err)
	assert.Nil(t, m)

	pending, err := h.Outbox.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	seq, err := repos.Sequences.Next(ctx, "acme", "OUT-2024")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
}

func idempotencyKeyPerTenant(t *testing.T, h Harness) {
	ctx := context.Background()
	repo := h.Repos.Inventory

	movement := func(id, tenantID, recordID, key string, at time.Time) *domain.InventoryMovement {
		return &domain.InventoryMovement{ID: id, TenantID: tenantID, RecordID: recordID, Type: domain.MovementTypeReceive, Quantity: 1, OnHandDelta: 1, IdempotencyKey: key, OccurredAt: at}
	}

	require.NoError(t, repo.AppendMovement(ctx, movement("m1", "acme", "r1", "k", T0)))
	require.NoError(t, repo.AppendMovement(ctx, movement("m2", "globex", "r9", "k", T0)))
	require.NoError(t, repo.AppendMovement(ctx, movement("m3", "acme", "r1", "", T0.Add(time.Second))))
	require.NoError(t, repo.AppendMovement(ctx, movement("m4", "acme", "r1", "", T0.Add(2*time.Second))))
	err := repo.AppendMovement(ctx, movement("m5", "acme", "r1", "k", T0.Add(3*time.Second)))
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	m, err := repo.FindMovementByIdempotencyKey(ctx, "globex", "k")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "m2", m.ID)

	list, err := repo.ListMovements(ctx, "acme", "r1")
	require.NoError(t, err)
	ids := make([]string, len(list))
	for i, m := range list {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"m1", "m3", "m4"}, ids)
}

func orderVersioning(t *testing.T, h Harness) {
	ctx := context.Background()
	repos := h.Repos

	order, err := domain.NewOutboundOrder("o1", "acme", "wh-1", "OUT-2024-0001", domain.PriorityHigh,
		[]domain.OutboundOrderLine{{ID: "l1", ProductID: "sku-1", OrderedQuantity: 5}}, T0)
	require.NoError(t, err)
	order.Metadata = map[string]any{"channel": "web", "gift": true}
	require.NoError(t, repos.Outbound.Save(ctx, order))

	got, err := repos.Outbound.Get(ctx, "acme", "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, "web", got.Metadata["channel"])
	require.Len(t, got.Lines, 1)
	assert.Equal(t, int64(5), got.Lines[0].OrderedQuantity)

	order.Lines[0].AllocatedQuantity = 5
	require.NoError(t, repos.Outbound.Save(ctx, order))
	assert.ErrorIs(t, repos.Outbound.Save(ctx, got), domain.ErrConcurrentModification)

	again, err := repos.Outbound.Get(ctx, "acme", "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), again.Lines[0].AllocatedQuantity)
	assert.Equal(t, int64(2), again.Version)

	alloc := domain.NewAllocation("a1", "o1", "l1", Record("r1", "A-1", T0, 1, 10), 5, T0)
	require.NoError(t, repos.Allocations.Save(ctx, alloc))
	second := domain.NewAllocation("a2", "o1", "l1", Record("r2", "A-2", T0, 1, 10), 1, T0.Add(time.Second))
	require.NoError(t, repos.Allocations.Save(ctx, second))

	allocs, err := repos.Allocations.FindByOrder(ctx, "acme", "o1")
	require.NoError(t, err)
	require.Len(t, allocs, 2)
	assert.Equal(t, "a1", allocs[0].ID)
	assert.Equal(t, "a2", allocs[1].ID)

	_, err = repos.Waves.Get(ctx, "acme", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func listPagination(t *testing.T, h Harness) {
	ctx := context.Background()
	repo := h.Repos.Inventory
	for i, loc := range []string{"A-1", "A-2", "A-3"} {
		r := Record("r"+loc, loc, T0.Add(time.Duration(i)*time.Minute), 1, 1)
		r.CreatedAt = r.ReceivedAt
		require.NoError(t, repo.Upsert(ctx, r))
	}

	tests := []struct {
		name   string
		filter domain.InventoryFilter
		want   []string
	}{
		{"all", domain.InventoryFilter{TenantID: "acme"}, []string{"rA-1", "rA-2", "rA-3"}},
		{"limit", domain.InventoryFilter{TenantID: "acme", Limit: 2}, []string{"rA-1", "rA-2"}},
		{"offset", domain.InventoryFilter{TenantID: "acme", Offset: 2}, []string{"rA-3"}},
		{"past end", domain.InventoryFilter{TenantID: "acme", Offset: 5}, []string{}},
		{"location", domain.InventoryFilter{TenantID: "acme", LocationID: "A-2"}, []string{"rA-2"}},
		{"status", domain.InventoryFilter{TenantID: "acme", Status: domain.InventoryStatusHold}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recordIDs(got))
		})
	}
}

func pickTaskFilters(t *testing.T, h Harness) {
	ctx := context.Background()
	repos := h.Repos

	order, err := domain.NewOutboundOrder("o1", "acme", "wh-1", "OUT-2024-0001", domain.PriorityUrgent,
		[]domain.OutboundOrderLine{{ID: "l1", ProductID: "sku-1", OrderedQuantity: 3}}, T0)
	require.NoError(t, err)
	for i, n := range []string{"PT-2024-00002", "PT-2024-00001", "PT-2024-00003"} {
		alloc := domain.NewAllocation("a"+n, "o1", "l1", Record("r1", "A-1", T0, 1, 10), 1, T0)
			task := domain.NewPickTask("t"+n, n, order, alloc, T0)
		if i == 2 {
			require.NoError(t, task.Assign("picker-1", T0))
		}
		require.NoError(t, repos.PickTasks.Save(ctx, task))
	}

	all, err := repos.PickTasks.List(ctx, domain.PickTaskFilter{TenantID: "acme", OrderID: "o1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "PT-2024-00001", all[0].TaskNumber, "same creation time sorts by task number")

	mine, err := repos.PickTasks.List(ctx, domain.PickTaskFilter{TenantID: "acme", AssignedTo: "picker-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, domain.PickTaskStatusAssigned, mine[0].Status)

	open, err := repos.PickTasks.List(ctx, domain.PickTaskFilter{TenantID: "acme", Statuses: []domain.PickTaskStatus{domain.PickTaskStatusPending}})
	require.NoError(t, err)
	assert.Len(t, open, 2)
}

func sequences(t *testing.T, h Harness) {
	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, err := h.Repos.Sequences.Next(ctx, "acme", "INB-2024")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	other, err := h.Repos.Sequences.Next(ctx, "globex", "INB-2024")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func outboxLifecycle(t *testing.T, h Harness) {
	ctx := context.Background()
	box := h.Outbox

	require.NoError(t, h.Repos.Events.Record(ctx, &domain.WaveStatusChangedEvent{WaveID: "w1", From: domain.WaveStatusDraft, To: domain.WaveStatusReleased, ChangedAt: T0}))
	require.NoError(t, h.Repos.Events.Record(ctx, &domain.WaveStatusChangedEvent{WaveID: "w1", From: domain.WaveStatusReleased, To: domain.WaveStatusCancelled, ChangedAt: T0}))

	pending, err := box.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, Topic, pending[0].Topic)
	assert.Equal(t, "wave", pending[0].AggregateType)
	assert.True(t, pending[0].CreatedAt.Before(pending[1].CreatedAt))

	ce, err := pending[1].ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, "wms.wave.status-changed", ce.Type)

	require.NoError(t, box.MarkPublished(ctx, pending[0].ID))
	require.NoError(t, box.IncrementRetry(ctx, pending[1].ID, "timeout"))

	pending, err = box.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, "timeout", pending[0].LastError)

	byAggregate, err := box.FindByAggregateID(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, byAggregate, 2)

	got, err := box.GetByID(ctx, pending[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "w1", got.AggregateID)

	none, err := box.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, box.DeletePublished(ctx, -60))
	byAggregate, err = box.FindByAggregateID(ctx, "w1")
	require.NoError(t, err)
	assert.Len(t, byAggregate, 1)

	assert.Error(t, box.MarkPublished(ctx, "missing"))
}

func recordIDs(records []*domain.InventoryRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}
