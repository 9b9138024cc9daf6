package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure/storetest"
)

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Harness {
		store := NewStore(storetest.Topic)
		return storetest.Harness{Repos: store.Repositories(), Outbox: store.Outbox()}
	})
}

func TestReturnedCopiesAreDetached(t *testing.T) {
	ctx := context.Background()
	repos := NewStore("").Repositories()

	order, err := domain.NewOutboundOrder("o1", "acme", "wh-1", "OUT-2024-0001", domain.PriorityNormal,
		[]domain.OutboundOrderLine{{ID: "l1", ProductID: "sku-1", OrderedQuantity: 5}}, storetest.T0)
	require.NoError(t, err)
	require.NoError(t, repos.Outbound.Save(ctx, order))

	order.Lines[0].AllocatedQuantity = 5
	got, err := repos.Outbound.Get(ctx, "acme", "o1")
	require.NoError(t, err)
	assert.Zero(t, got.Lines[0].AllocatedQuantity)

	got.Lines[0].PickedQuantity = 3
	again, err := repos.Outbound.Get(ctx, "acme", "o1")
	require.NoError(t, err)
	assert.Zero(t, again.Lines[0].PickedQuantity)
}

func TestWithTransaction_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore("").WithTransaction(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
