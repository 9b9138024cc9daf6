package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/warehouse-core/internal/domain"
	pkgmongo "github.com/wms-platform/warehouse-core/pkg/mongodb"
)

type inventoryRepository struct {
	s *Store
}

func (r *inventoryRepository) Get(ctx context.Context, tenantID, id string) (*domain.InventoryRecord, error) {
	return getOne[domain.InventoryRecord](ctx, r.s.records, "inventory record", tenantID, id)
}

func (r *inventoryRepository) FindByKey(ctx context.Context, key domain.RecordKey) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	err := r.s.records.FindOne(ctx, bson.M{"recordKey": key.Normalized().String()}).Decode(&rec)
	if err != nil {
		if pkgmongo.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inventory record by key: %w", err)
	}
	return &rec, nil
}

func (r *inventoryRepository) Upsert(ctx context.Context, rec *domain.InventoryRecord) error {
	return saveVersioned(ctx, r.s.records, "inventory record", rec.TenantID, rec.ID, &rec.Version, rec)
}

func (r *inventoryRepository) FindAvailableForProduct(ctx context.Context, tenantID, productID string, scope domain.LocationScope) ([]*domain.InventoryRecord, error) {
	filter := bson.M{
		"tenantId":  tenantID,
		"productId": productID,
		"status":    domain.InventoryStatusAvailable,
		"available": bson.M{"$gt": 0},
	}
	if scope.WarehouseID != "" {
		filter["warehouseId"] = scope.WarehouseID
	}
	if len(scope.LocationIDs) > 0 {
		filter["locationId"] = bson.M{"$in": scope.LocationIDs}
	}
	if len(scope.LocationTypes) > 0 {
		filter["locationType"] = bson.M{"$in": scope.LocationTypes}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "receivedAt", Value: 1},
		{Key: "pickSequence", Value: 1},
		{Key: "_id", Value: 1},
	})
	return findAll[domain.InventoryRecord](ctx, r.s.records, filter, opts)
}

func (r *inventoryRepository) List(ctx context.Context, f domain.InventoryFilter) ([]*domain.InventoryRecord, error) {
	filter := bson.M{"tenantId": f.TenantID}
	if f.WarehouseID != "" {
		filter["warehouseId"] = f.WarehouseID
	}
	if f.ProductID != "" {
		filter["productId"] = f.ProductID
	}
	if f.LocationID != "" {
		filter["locationId"] = f.LocationID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findAll[domain.InventoryRecord](ctx, r.s.records, filter, pageOptions("_id", f.Limit, f.Offset))
}

func (r *inventoryRepository) AppendMovement(ctx context.Context, m *domain.InventoryMovement) error {
	if _, err := r.s.movements.InsertOne(ctx, m); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return fmt.Errorf("%w: idempotency key %q already recorded", domain.ErrConcurrentModification, m.IdempotencyKey)
		}
		return writeError(err, "inventory movement", m.ID)
	}
	return nil
}

func (r *inventoryRepository) FindMovementByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.InventoryMovement, error) {
	var m domain.InventoryMovement
	err := r.s.movements.FindOne(ctx, bson.M{"tenantId": tenantID, "idempotencyKey": key}).Decode(&m)
	if err != nil {
		if pkgmongo.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find movement by idempotency key: %w", err)
	}
	return &m, nil
}

func (r *inventoryRepository) ListMovements(ctx context.Context, tenantID, recordID string) ([]*domain.InventoryMovement, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurredAt", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[domain.InventoryMovement](ctx, r.s.movements, bson.M{"tenantId": tenantID, "recordId": recordID}, opts)
}
