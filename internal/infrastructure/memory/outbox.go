package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wms-platform/warehouse-core/pkg/outbox"
)

type outboxRepository struct {
	s *Store
}

func (r *outboxRepository) Save(ctx context.Context, event *outbox.OutboxEvent) error {
	return r.SaveAll(ctx, []*outbox.OutboxEvent{event})
}

func (r *outboxRepository) SaveAll(ctx context.Context, events []*outbox.OutboxEvent) error {
	return r.s.update(ctx, func(st *state) error {
		for _, e := range events {
			if _, dup := st.outbox[e.ID]; dup {
				return fmt.Errorf("outbox event %s already exists", e.ID)
			}
			row := cloneOutboxEvent(e)
			// keep rows of one transaction in write order
			if !row.CreatedAt.After(st.outboxClock) {
				row.CreatedAt = st.outboxClock.Add(time.Nanosecond)
			}
			st.outboxClock = row.CreatedAt
			st.outbox[e.ID] = row
		}
		return nil
	})
}

func (r *outboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.OutboxEvent, error) {
	var out []*outbox.OutboxEvent
	err := r.s.view(ctx, func(st *state) error {
		for _, e := range st.outbox {
			if e.ShouldRetry() {
				out = append(out, cloneOutboxEvent(e))
			}
		}
		return nil
	})
	sortEvents(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

func (r *outboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.modify(ctx, eventID, func(e *outbox.OutboxEvent) {
		now := time.Now().UTC()
		e.PublishedAt = &now
	})
}

func (r *outboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	return r.modify(ctx, eventID, func(e *outbox.OutboxEvent) {
		e.RetryCount++
		e.LastError = errorMsg
	})
}

func (r *outboxRepository) modify(ctx context.Context, eventID string, fn func(e *outbox.OutboxEvent)) error {
	return r.s.update(ctx, func(st *state) error {
		stored, ok := st.outbox[eventID]
		if !ok {
			return fmt.Errorf("event not found: %s", eventID)
		}
		e := cloneOutboxEvent(stored)
		fn(e)
		st.outbox[eventID] = e
		return nil
	})
}

func (r *outboxRepository) DeletePublished(ctx context.Context, olderThan int64) error {
	threshold := time.Now().Add(-time.Duration(olderThan) * time.Second)
	return r.s.update(ctx, func(st *state) error {
		for id, e := range st.outbox {
			if e.PublishedAt != nil && e.PublishedAt.Before(threshold) {
				delete(st.outbox, id)
			}
		}
		return nil
	})
}

func (r *outboxRepository) GetByID(ctx context.Context, eventID string) (*outbox.OutboxEvent, error) {
	var out *outbox.OutboxEvent
	err := r.s.view(ctx, func(st *state) error {
		if e, ok := st.outbox[eventID]; ok {
			out = cloneOutboxEvent(e)
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) FindByAggregateID(ctx context.Context, aggregateID string) ([]*outbox.OutboxEvent, error) {
	var out []*outbox.OutboxEvent
	err := r.s.view(ctx, func(st *state) error {
		for _, e := range st.outbox {
			if e.AggregateID == aggregateID {
				out = append(out, cloneOutboxEvent(e))
			}
		}
		return nil
	})
	sortEvents(out)
	return out, err
}

// sortEvents orders by creation time
func sortEvents(events []*outbox.OutboxEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].CreatedAt.Before(events[j].CreatedAt)
		}
		return events[i].ID < events[j].ID
	})
}
