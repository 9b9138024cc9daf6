package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/warehouse-core/pkg/cloudevents"
	"github.com/wms-platform/warehouse-core/pkg/logging"
)

type fakeRepo struct {
	mu     sync.Mutex
	events map[string]*OutboxEvent
}

func newFakeRepo() *fakeRepo { return &fakeRepo{events: map[string]*OutboxEvent{}} }

func (r *fakeRepo) Save(_ context.Context, e *OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.ID] = e
	return nil
}

func (r *fakeRepo) SaveAll(ctx context.Context, events []*OutboxEvent) error {
	for _, e := range events {
		_ = r.Save(ctx, e)
	}
	return nil
}

func (r *fakeRepo) FindUnpublished(_ context.Context, limit int) ([]*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*OutboxEvent
	for _, e := range r.events {
		if e.ShouldRetry() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) MarkPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.events[id].PublishedAt = &now
	return nil
}

func (r *fakeRepo) IncrementRetry(_ context.Context, id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[id].RetryCount++
	r.events[id].LastError = msg
	return nil
}

func (r *fakeRepo) DeletePublished(context.Context, int64) error { return nil }

func (r *fakeRepo) GetByID(_ context.Context, id string) (*OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id], nil
}

func (r *fakeRepo) FindByAggregateID(context.Context, string) ([]*OutboxEvent, error) {
	return nil, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	fail  bool
	sent  []*cloudevents.WMSCloudEvent
	topic string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.topic = topic
	p.sent = append(p.sent, event)
	return nil
}

type testEvent struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
}

func (e testEvent) EventType() string     { return "wms.inventory.movement-recorded" }
func (e testEvent) AggregateID() string   { return e.ID }
func (e testEvent) OccurredAt() time.Time { return e.At }

func TestConverter_Convert(t *testing.T) {
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	rows, err := NewConverter(cloudevents.SourceWarehouseCore, "wms.warehouse-core.events").
		Convert(ctx, "acme", testEvent{ID: "rec-1", At: at})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "acme", row.TenantID)
	assert.Equal(t, "rec-1", row.AggregateID)
	assert.Equal(t, "inventory", row.AggregateType)
	assert.Equal(t, "wms.inventory.movement-recorded", row.EventType)
	assert.Equal(t, DefaultMaxRetries, row.MaxRetries)

	ce, err := row.ToCloudEvent()
	require.NoError(t, err)
	assert.Equal(t, cloudevents.SourceWarehouseCore, ce.Source)
	assert.Equal(t, "rec-1", ce.Subject)
	assert.Equal(t, "acme", ce.TenantID)
	assert.Equal(t, "corr-1", ce.CorrelationID)
	assert.True(t, at.Equal(ce.Time))
}

func TestAggregateType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"wms.inventory.movement-recorded", "inventory"},
		{"wms.picking.task-status-changed", "picking"},
		{"custom", "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, aggregateType(tt.in))
		})
	}
}

func seed(t *testing.T, repo *fakeRepo, n int) {
	t.Helper()
	conv := NewConverter(cloudevents.SourceWarehouseCore, "events")
	for i := 0; i < n; i++ {
		rows, err := conv.Convert(context.Background(), "acme", testEvent{ID: "agg", At: time.Now()})
		require.NoError(t, err)
		rows[0].CreatedAt = time.Now().Add(time.Duration(i) * time.Millisecond)
		require.NoError(t, repo.SaveAll(context.Background(), rows))
	}
}

func TestPublisher_ProcessOnce(t *testing.T) {
	repo := newFakeRepo()
	seed(t, repo, 3)
	broker := &recordingPublisher{}
	p := NewPublisher(repo, broker, logging.NewNop(), nil, &PublisherConfig{PollInterval: time.Hour, BatchSize: 2})

	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Len(t, broker.sent, 3)
	assert.Equal(t, "events", broker.topic)
	assert.Equal(t, map[string]int{"published": 3, "failed": 0}, p.Stats())
}

func TestPublisher_FailureIncrementsRetry(t *testing.T) {
	repo := newFakeRepo()
	seed(t, repo, 1)
	broker := &recordingPublisher{fail: true}
	p := NewPublisher(repo, broker, nil, nil, nil)

	for i := 0; i < DefaultMaxRetries+2; i++ {
		_, err := p.ProcessOnce(context.Background())
		require.NoError(t, err)
	}

	for _, e := range repo.events {
		assert.Equal(t, DefaultMaxRetries, e.RetryCount)
		assert.Contains(t, e.LastError, "broker unavailable")
		assert.False(t, e.IsPublished())
	}
	assert.Equal(t, DefaultMaxRetries, p.Stats()["failed"])
}

func TestPublisher_StartStop(t *testing.T) {
	repo := newFakeRepo()
	seed(t, repo, 1)
	broker := &recordingPublisher{}
	p := NewPublisher(repo, broker, nil, nil, &PublisherConfig{PollInterval: 5 * time.Millisecond, BatchSize: 10})

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	assert.Error(t, p.Start(context.Background()))

	assert.Eventually(t, func() bool { return p.Stats()["published"] == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	assert.Error(t, p.Stop())
}
