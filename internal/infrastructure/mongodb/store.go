// Package mongodb is the MongoDB store of the warehouse core. Every aggregate
// lives in its own collection, writes use a version compare-and-swap, and all
// ports of one call share a session transaction.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure"
	pkgmongo "github.com/wms-platform/warehouse-core/pkg/mongodb"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
	outboxmongo "github.com/wms-platform/warehouse-core/pkg/outbox/mongodb"
)

// Collection names
const (
	RecordsCollection     = "inventory_records"
	MovementsCollection   = "inventory_movements"
	InboundCollection     = "inbound_orders"
	OutboundCollection    = "outbound_orders"
	AllocationsCollection = "allocations"
	PickTasksCollection   = "pick_tasks"
	WavesCollection       = "waves"
	ProductsCollection    = "products"
	LocationsCollection   = "locations"
	SequencesCollection   = "sequences"
)

// Store implements every repository port on one MongoDB database
type Store struct {
	client *pkgmongo.Client

	records     *pkgmongo.InstrumentedCollection
	movements   *pkgmongo.InstrumentedCollection
	inbound     *pkgmongo.InstrumentedCollection
	outbound    *pkgmongo.InstrumentedCollection
	allocations *pkgmongo.InstrumentedCollection
	tasks       *pkgmongo.InstrumentedCollection
	waves       *pkgmongo.InstrumentedCollection
	products    *pkgmongo.InstrumentedCollection
	locations   *pkgmongo.InstrumentedCollection
	sequences   *pkgmongo.InstrumentedCollection

	outbox *outboxmongo.OutboxRepository
	events *infrastructure.OutboxEvents
}

// NewStore binds the store to client; events go to topic
func NewStore(client *pkgmongo.Client, topic string) *Store {
	return &Store{
		client:      client,
		records:     client.Collection(RecordsCollection),
		movements:   client.Collection(MovementsCollection),
		inbound:     client.Collection(InboundCollection),
		outbound:    client.Collection(OutboundCollection),
		allocations: client.Collection(AllocationsCollection),
		tasks:       client.Collection(PickTasksCollection),
		waves:       client.Collection(WavesCollection),
		products:    client.Collection(ProductsCollection),
		locations:   client.Collection(LocationsCollection),
		sequences:   client.Collection(SequencesCollection),
		outbox:      outboxmongo.NewOutboxRepository(client),
		events:      infrastructure.NewOutboxEvents(topic),
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

// Outbox exposes the outbox collection to the publisher
func (s *Store) Outbox() outbox.Repository {
	return s.outbox
}

// HealthCheck pings the database
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.client.HealthCheck(ctx)
}

// WithTransaction runs fn in one session transaction. Write conflicts surfacing
// at commit are reported as concurrent modifications.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.client.WithTransaction(ctx, fn)
	if err != nil && pkgmongo.IsWriteConflict(err) && !isDomainError(err) {
		return fmt.Errorf("%w: transaction aborted: %v", domain.ErrConcurrentModification, err)
	}
	return err
}

// EnsureIndexes creates the unique and query indexes of every collection
func (s *Store) EnsureIndexes(ctx context.Context) error {
	idx := func(name string, unique bool, keys ...string) mongo.IndexModel {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return mongo.IndexModel{Keys: d, Options: options.Index().SetName(name).SetUnique(unique)}
	}

	plan := map[*pkgmongo.InstrumentedCollection][]mongo.IndexModel{
		s.records: {
			idx("uniq_recordKey", true, "recordKey"),
			idx("idx_fifo", false, "tenantId", "productId", "status", "receivedAt", "pickSequence"),
			idx("idx_tenant_warehouse_created", false, "tenantId", "warehouseId", "createdAt"),
		},
		s.movements: {
			idx("idx_tenant_record_occurred", false, "tenantId", "recordId", "occurredAt"),
			{
				Keys: bson.D{{Key: "tenantId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
				Options: options.Index().
					SetName("uniq_tenant_idempotencyKey").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$type": "string"}}),
			},
		},
		s.inbound: {
			idx("uniq_tenant_orderNumber", true, "tenantId", "orderNumber"),
			idx("idx_tenant_status_created", false, "tenantId", "status", "createdAt"),
		},
		s.outbound: {
			idx("uniq_tenant_orderNumber", true, "tenantId", "orderNumber"),
			idx("idx_tenant_status_created", false, "tenantId", "status", "createdAt"),
			idx("idx_tenant_wave", false, "tenantId", "waveId"),
		},
		s.allocations: {
			idx("idx_tenant_order_created", false, "tenantId", "orderId", "createdAt"),
		},
		s.tasks: {
			idx("uniq_tenant_taskNumber", true, "tenantId", "taskNumber"),
			idx("idx_tenant_status", false, "tenantId", "status"),
			idx("idx_tenant_assignee", false, "tenantId", "assignedTo"),
			idx("idx_tenant_order", false, "tenantId", "orderId"),
		},
		s.waves: {
			idx("uniq_tenant_waveNumber", true, "tenantId", "waveNumber"),
			idx("idx_tenant_status_created", false, "tenantId", "status", "createdAt"),
		},
		s.products: {
			idx("idx_tenant_sku", false, "tenantId", "sku"),
		},
		s.locations: {
			idx("idx_tenant_warehouse_code", false, "tenantId", "warehouseId", "code"),
		},
	}

	for coll, models := range plan {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return s.outbox.EnsureIndexes(ctx)
}

// saveVersioned inserts a document at version 0 or replaces it when the stored
// version still equals *version. On success *version is the new version.
func saveVersioned(ctx context.Context, coll *pkgmongo.InstrumentedCollection, entity, tenantID, id string, version *int64, doc interface{}) error {
	expected := *version
	*version = expected + 1

	if expected == 0 {
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			*version = expected
			return writeError(err, entity, id)
		}
		return nil
	}

	filter := bson.M{"_id": id, "tenantId": tenantID, "version": expected}
	result, err := coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		*version = expected
		return writeError(err, entity, id)
	}
	if result.MatchedCount == 0 {
		*version = expected
		n, err := coll.CountDocuments(ctx, bson.M{"_id": id, "tenantId": tenantID})
		if err != nil {
			return fmt.Errorf("failed to check %s %s: %w", entity, id, err)
		}
		if n == 0 {
			return domain.NotFound(entity, id)
		}
		return concurrent(entity, id)
	}
	return nil
}

// getOne decodes the document of id scoped to tenantID
func getOne[T any](ctx context.Context, coll *pkgmongo.InstrumentedCollection, entity, tenantID, id string) (*T, error) {
	var out T
	err := coll.FindOne(ctx, bson.M{"_id": id, "tenantId": tenantID}).Decode(&out)
	if err != nil {
		if pkgmongo.IsNotFound(err) {
			return nil, domain.NotFound(entity, id)
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", entity, id, err)
	}
	return &out, nil
}

// findAll decodes every document matching filter
func findAll[T any](ctx context.Context, coll *pkgmongo.InstrumentedCollection, filter bson.M, opts *options.FindOptions) ([]*T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	return out, nil
}

// pageOptions sorts oldest first, ties by tiebreak, and applies offset and limit
func pageOptions(tiebreak string, limit, offset int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: tiebreak, Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func writeError(err error, entity, id string) error {
	if pkgmongo.IsDuplicateKey(err) || pkgmongo.IsWriteConflict(err) {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrConcurrentModification, entity, id, err)
	}
	return fmt.Errorf("failed to save %s %s: %w", entity, id, err)
}

func concurrent(entity, id string) error {
	return fmt.Errorf("%w: %s %s", domain.ErrConcurrentModification, entity, id)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidQuantity, domain.ErrInsufficientAvailable, domain.ErrInsufficientReserved,
		domain.ErrInvalidAdjustment, domain.ErrInvalidState, domain.ErrConcurrentModification,
		domain.ErrNotFound, domain.ErrInvalidArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
