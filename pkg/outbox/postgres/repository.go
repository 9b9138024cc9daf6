// Package postgres stores outbox events in a PostgreSQL table. Rows keep their
// insertion order through a bigserial column.
package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/warehouse-core/pkg/outbox"
	pkgpostgres "github.com/wms-platform/warehouse-core/pkg/postgres"
)

// DefaultTableName is the table created by the outbox migration
const DefaultTableName = "outbox_events"

const columns = `id, tenant_id, aggregate_id, aggregate_type, event_type, topic, payload,
	created_at, published_at, retry_count, last_error, max_retries`

// OutboxRepository implements outbox.Repository for PostgreSQL
type OutboxRepository struct {
	table *pkgpostgres.Table

	mu   sync.Mutex
	last time.Time
}

// NewOutboxRepository creates a repository on the default table
func NewOutboxRepository(pool *pkgpostgres.Pool) *OutboxRepository {
	return &OutboxRepository{table: pool.Table(DefaultTableName)}
}

// Save saves an outbox event in the caller's transaction
func (r *OutboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	return r.SaveAll(ctx, []*outbox.OutboxEvent{event})
}

// SaveAll inserts events in order. Creation times are made strictly increasing
// at microsecond precision, the resolution of timestamptz.
func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	const q = `INSERT INTO outbox_events (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, e := range events {
		e.CreatedAt = r.nextCreatedAt(e.CreatedAt)
		_, err := r.table.Exec(ctx, "insert", q,
			e.ID, e.TenantID, e.AggregateID, e.AggregateType, e.EventType, e.Topic, []byte(e.Payload),
			e.CreatedAt, e.PublishedAt, e.RetryCount, e.LastError, e.MaxRetries)
		if err != nil {
			return fmt.Errorf("failed to save outbox event %s: %w", e.ID, err)
		}
	}
	return nil
}

func (r *OutboxRepository) nextCreatedAt(at time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	at = at.UTC().Truncate(time.Microsecond)
	if !at.After(r.last) {
		at = r.last.Add(time.Microsecond)
	}
	r.last = at
	return at
}

// FindUnpublished retrieves unpublished events that still have retries left
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	q := `SELECT ` + columns + ` FROM outbox_events
		WHERE published_at IS NULL AND retry_count < max_retries
		ORDER BY seq`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	return r.find(ctx, "findUnpublished", q, args...)
}

// MarkPublished marks an event as published
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	tag, err := r.table.Exec(ctx, "markPublished",
		`UPDATE outbox_events SET published_at = $2 WHERE id = $1`, eventID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark event as published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// IncrementRetry increments the retry count and updates last error
func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	tag, err := r.table.Exec(ctx, "incrementRetry",
		`UPDATE outbox_events SET retry_count = retry_count + 1, last_error = $2 WHERE id = $1`, eventID, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

// DeletePublished deletes published events older than olderThan seconds
func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan int64) error {
	threshold := time.Now().UTC().Add(-time.Duration(olderThan) * time.Second)
	_, err := r.table.Exec(ctx, "deletePublished",
		`DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < $1`, threshold)
	if err != nil {
		return fmt.Errorf("failed to delete published events: %w", err)
	}
	return nil
}

// GetByID retrieves an outbox event by ID; nil when absent
func (r *OutboxRepository) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	events, err := r.find(ctx, "getByID", `SELECT `+columns+` FROM outbox_events WHERE id = $1`, eventID)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

// FindByAggregateID retrieves all events for a specific aggregate
func (r *OutboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	return r.find(ctx, "findByAggregateID",
		`SELECT `+columns+` FROM outbox_events WHERE aggregate_id = $1 ORDER BY seq`, aggregateID)
}

func (r *OutboxRepository) find(ctx context.Context, operation, q string, args ...any) ([]*outbox.OutboxEvent, error) {
	var events []*outbox.OutboxEvent
	err := r.table.Query(ctx, operation, q, func(rows pgx.Rows) error {
		var (
			e       outbox.OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.TenantID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Topic, &payload,
			&e.CreatedAt, &e.PublishedAt, &e.RetryCount, &e.LastError, &e.MaxRetries); err != nil {
			return err
		}
		e.Payload = payload
		e.CreatedAt = e.CreatedAt.UTC()
		if e.PublishedAt != nil {
			published := e.PublishedAt.UTC()
			e.PublishedAt = &published
		}
		events = append(events, &e)
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find outbox events: %w", err)
	}
	return events, nil
}
