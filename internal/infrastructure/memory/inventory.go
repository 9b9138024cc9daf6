package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type inventoryRepository struct {
	s *Store
}

func (r *inventoryRepository) Get(ctx context.Context, tenantID, id string) (*domain.InventoryRecord, error) {
	var out *domain.InventoryRecord
	err := r.s.view(ctx, func(st *state) error {
		rec, ok := st.records[id]
		if !ok || rec.TenantID != tenantID {
			return domain.NotFound("inventory record", id)
		}
		out = cloneRecord(rec)
		return nil
	})
	return out, err
}

func (r *inventoryRepository) FindByKey(ctx context.Context, key domain.RecordKey) (*domain.InventoryRecord, error) {
	var out *domain.InventoryRecord
	err := r.s.view(ctx, func(st *state) error {
		if id, ok := st.recordKeys[key.Normalized().String()]; ok {
			out = cloneRecord(st.records[id])
		}
		return nil
	})
	return out, err
}

func (r *inventoryRepository) Upsert(ctx context.Context, rec *domain.InventoryRecord) error {
	return r.s.update(ctx, func(st *state) error {
		stored, exists := st.records[rec.ID]
		var version int64
		if exists {
			version = stored.Version
		}
		if err := checkVersion(exists, version, rec.Version, "inventory record", rec.ID); err != nil {
			return err
		}
		if owner, taken := st.recordKeys[rec.RecordKey]; taken && owner != rec.ID {
			return concurrent("inventory record", rec.RecordKey)
		}
		rec.Version++
		st.records[rec.ID] = cloneRecord(rec)
		st.recordKeys[rec.RecordKey] = rec.ID
		return nil
	})
}

func (r *inventoryRepository) FindAvailableForProduct(ctx context.Context, tenantID, productID string, scope domain.LocationScope) ([]*domain.InventoryRecord, error) {
	var out []*domain.InventoryRecord
	err := r.s.view(ctx, func(st *state) error {
		for _, rec := range st.records {
			if rec.TenantID != tenantID || rec.ProductID != productID {
				continue
			}
			if rec.Status != domain.InventoryStatusAvailable || rec.Available <= 0 {
				continue
			}
			if scope.WarehouseID != "" && rec.WarehouseID != scope.WarehouseID {
				continue
			}
			if len(scope.LocationIDs) > 0 && !slices.Contains(scope.LocationIDs, rec.LocationID) {
				continue
			}
			if len(scope.LocationTypes) > 0 && !slices.Contains(scope.LocationTypes, rec.LocationType) {
				continue
			}
			out = append(out, cloneRecord(rec))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ReceivedAt.Equal(b.ReceivedAt) {
			return a.ReceivedAt.Before(b.ReceivedAt)
		}
		if a.PickSequence != b.PickSequence {
			return a.PickSequence < b.PickSequence
		}
		return a.ID < b.ID
	})
	return out, err
}

func (r *inventoryRepository) List(ctx context.Context, f domain.InventoryFilter) ([]*domain.InventoryRecord, error) {
	var out []*domain.InventoryRecord
	err := r.s.view(ctx, func(st *state) error {
		for _, rec := range st.records {
			if rec.TenantID != f.TenantID ||
				(f.WarehouseID != "" && rec.WarehouseID != f.WarehouseID) ||
				(f.ProductID != "" && rec.ProductID != f.ProductID) ||
				(f.LocationID != "" && rec.LocationID != f.LocationID) ||
				(f.Status != "" && rec.Status != f.Status) {
				continue
			}
			out = append(out, cloneRecord(rec))
		}
		return nil
	})
	return page(out,
		func(r *domain.InventoryRecord) time.Time { return r.CreatedAt },
		func(r *domain.InventoryRecord) string { return r.ID },
		f.Limit, f.Offset), err
}

func idempotencyKey(tenantID, key string) string {
	return tenantID + "|" + key
}

func (r *inventoryRepository) AppendMovement(ctx context.Context, m *domain.InventoryMovement) error {
	return r.s.update(ctx, func(st *state) error {
		if m.IdempotencyKey != "" {
			k := idempotencyKey(m.TenantID, m.IdempotencyKey)
			if _, dup := st.idempotency[k]; dup {
				return fmt.Errorf("%w: idempotency key %q already recorded", domain.ErrConcurrentModification, m.IdempotencyKey)
			}
			st.idempotency[k] = cloneMovement(m)
		}
		st.movements = append(st.movements, cloneMovement(m))
		return nil
	})
}

func (r *inventoryRepository) FindMovementByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.InventoryMovement, error) {
	var out *domain.InventoryMovement
	err := r.s.view(ctx, func(st *state) error {
		if m, ok := st.idempotency[idempotencyKey(tenantID, key)]; ok {
			out = cloneMovement(m)
		}
		return nil
	})
	return out, err
}

func (r *inventoryRepository) ListMovements(ctx context.Context, tenantID, recordID string) ([]*domain.InventoryMovement, error) {
	var out []*domain.InventoryMovement
	err := r.s.view(ctx, func(st *state) error {
		for _, m := range st.movements {
			if m.TenantID == tenantID && m.RecordID == recordID {
				out = append(out, cloneMovement(m))
			}
		}
		return nil
	})
	return out, err
}
