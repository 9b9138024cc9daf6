// Package memory is the in-process store of the warehouse core. It backs the
// test suite and single-node runs; every port shares one lock and a
// transaction snapshots the whole state so a failed call rolls back cleanly.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
)

type txKey struct{}

// Store holds every aggregate of the warehouse core in maps
type Store struct {
	mu     sync.RWMutex
	state  *state
	events *infrastructure.OutboxEvents
}

type state struct {
	records     map[string]*domain.InventoryRecord
	recordKeys  map[string]string
	movements   []*domain.InventoryMovement
	idempotency map[string]*domain.InventoryMovement
	inbound     map[string]*domain.InboundOrder
	outbound    map[string]*domain.OutboundOrder
	allocations map[string]*domain.Allocation
	tasks       map[string]*domain.PickTask
	waves       map[string]*domain.Wave
	products    map[string]*domain.Product
	locations   map[string]*domain.Location
	sequences   map[string]int64
	outbox      map[string]*outbox.OutboxEvent
	outboxClock time.Time
}

// NewStore creates an empty store whose events go to topic
func NewStore(topic string) *Store {
	return &Store{
		state: &state{
			records:     make(map[string]*domain.InventoryRecord),
			recordKeys:  make(map[string]string),
			idempotency: make(map[string]*domain.InventoryMovement),
			inbound:     make(map[string]*domain.InboundOrder),
			outbound:    make(map[string]*domain.OutboundOrder),
			allocations: make(map[string]*domain.Allocation),
			tasks:       make(map[string]*domain.PickTask),
			waves:       make(map[string]*domain.Wave),
			products:    make(map[string]*domain.Product),
			locations:   make(map[string]*domain.Location),
			sequences:   make(map[string]int64),
			outbox:      make(map[string]*outbox.OutboxEvent),
		},
		events: infrastructure.NewOutboxEvents(topic),
	}
}

// Repositories exposes the store through the domain ports
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Tx:          s,
		Inventory:   &inventoryRepository{s},
		Inbound:     &inboundRepository{s},
		Outbound:    &outboundRepository{s},
		Allocations: &allocationRepository{s},
		PickTasks:   &pickTaskRepository{s},
		Waves:       &waveRepository{s},
		Products:    &catalog{s},
		Locations:   &catalog{s},
		Sequences:   &sequences{s},
		Events:      &eventSink{s},
	}
}

// Outbox exposes the store's outbox table
func (s *Store) Outbox() outbox.Repository {
	return &outboxRepository{s}
}

// WithTransaction runs fn under the store lock. Nested calls join the outer
// transaction; an error restores the state captured on entry.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *Store) update(ctx context.Context, fn func(st *state) error) error {
	if s.inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// clone copies the maps. Stored values are never mutated in place, so sharing
// them between the snapshot and the live state is safe.
func (st *state) clone() *state {
	return &state{
		records:     maps.Clone(st.records),
		recordKeys:  maps.Clone(st.recordKeys),
		movements:   slices.Clip(st.movements),
		idempotency: maps.Clone(st.idempotency),
		inbound:     maps.Clone(st.inbound),
		outbound:    maps.Clone(st.outbound),
		allocations: maps.Clone(st.allocations),
		tasks:       maps.Clone(st.tasks),
		waves:       maps.Clone(st.waves),
		products:    maps.Clone(st.products),
		locations:   maps.Clone(st.locations),
		sequences:   maps.Clone(st.sequences),
		outbox:      maps.Clone(st.outbox),
		outboxClock: st.outboxClock,
	}
}

// checkVersion enforces optimistic concurrency: version 0 inserts, anything
// else must match the stored version.
func checkVersion(exists bool, stored, incoming int64, entity, id string) error {
	switch {
	case incoming == 0 && exists:
		return concurrent(entity, id)
	case incoming != 0 && !exists:
		return domain.NotFound(entity, id)
	case incoming != 0 && stored != incoming:
		return concurrent(entity, id)
	}
	return nil
}

func concurrent(entity, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrConcurrentModification, entity, id)
}

// page sorts items oldest first and applies offset and limit
func page[T any](items []T, created func(T) time.Time, id func(T) string, limit, offset int) []T {
	sort.Slice(items, func(i, j int) bool {
		ci, cj := created(items[i]), created(items[j])
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return id(items[i]) < id(items[j])
	})
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
