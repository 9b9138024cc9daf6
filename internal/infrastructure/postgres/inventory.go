package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wms-platform/warehouse-core/internal/domain"
	pkgpostgres "github.com/wms-platform/warehouse-core/pkg/postgres"
)

type inventoryRepository struct {
	s *Store
}

func (r *inventoryRepository) Get(ctx context.Context, tenantID, id string) (*domain.InventoryRecord, error) {
	return getOne[domain.InventoryRecord](ctx, r.s.records, "inventory record", tenantID, id)
}

func (r *inventoryRepository) FindByKey(ctx context.Context, key domain.RecordKey) (*domain.InventoryRecord, error) {
	var doc []byte
	err := r.s.records.QueryRow(ctx, "findByKey",
		`SELECT doc FROM inventory_records WHERE record_key = $1`,
		[]any{key.Normalized().String()}, &doc)
	if err != nil {
		if pkgpostgres.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inventory record by key: %w", err)
	}
	var rec domain.InventoryRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode inventory record: %w", err)
	}
	return &rec, nil
}

func (r *inventoryRepository) Upsert(ctx context.Context, rec *domain.InventoryRecord) error {
	row := versioned{
		table:  r.s.records,
		entity: "inventory record",
		id:     rec.ID,
		tenant: rec.TenantID,
		columns: []string{"warehouse_id", "location_id", "product_id", "record_key", "location_type",
			"pick_sequence", "status", "available", "received_at", "created_at"},
		values: []any{rec.WarehouseID, rec.LocationID, rec.ProductID, rec.RecordKey, string(rec.LocationType),
			rec.PickSequence, string(rec.Status), rec.Available, rec.ReceivedAt, rec.CreatedAt},
	}
	return row.save(ctx, &rec.Version, rec)
}

func (r *inventoryRepository) FindAvailableForProduct(ctx context.Context, tenantID, productID string, scope domain.LocationScope) ([]*domain.InventoryRecord, error) {
	types := make([]string, len(scope.LocationTypes))
	for i, t := range scope.LocationTypes {
		types[i] = string(t)
	}

	q := newQuery(tenantID).
		eq("product_id", productID).
		eq("status", string(domain.InventoryStatusAvailable)).
		where("available > 0").
		eqIf("warehouse_id", scope.WarehouseID).
		in("location_id", scope.LocationIDs).
		in("location_type", types)
	q.order = "received_at, pick_sequence, id"
	return findAll[domain.InventoryRecord](ctx, r.s.records, q)
}

func (r *inventoryRepository) List(ctx context.Context, f domain.InventoryFilter) ([]*domain.InventoryRecord, error) {
	q := newQuery(f.TenantID).
		eqIf("warehouse_id", f.WarehouseID).
		eqIf("product_id", f.ProductID).
		eqIf("location_id", f.LocationID).
		eqIf("status", string(f.Status)).
		page("id", f.Limit, f.Offset)
	return findAll[domain.InventoryRecord](ctx, r.s.records, q)
}

func (r *inventoryRepository) AppendMovement(ctx context.Context, m *domain.InventoryMovement) error {
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode inventory movement %s: %w", m.ID, err)
	}
	_, err = r.s.movements.Exec(ctx, "insert",
		`INSERT INTO inventory_movements (id, tenant_id, record_id, idempotency_key, occurred_at, doc)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`,
		m.ID, m.TenantID, m.RecordID, m.IdempotencyKey, m.OccurredAt, doc)
	if err != nil {
		if pkgpostgres.IsUniqueViolation(err) {
			return fmt.Errorf("%w: idempotency key %q already recorded", domain.ErrConcurrentModification, m.IdempotencyKey)
		}
		return writeError(err, "inventory movement", m.ID)
	}
	return nil
}

func (r *inventoryRepository) FindMovementByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.InventoryMovement, error) {
	list, err := r.movementsWhere(ctx, "findByIdempotencyKey",
		`SELECT doc FROM inventory_movements WHERE tenant_id = $1 AND idempotency_key = $2`, tenantID, key)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListMovements returns the journal of a record in write order
func (r *inventoryRepository) ListMovements(ctx context.Context, tenantID, recordID string) ([]*domain.InventoryMovement, error) {
	return r.movementsWhere(ctx, "list",
		`SELECT doc FROM inventory_movements WHERE tenant_id = $1 AND record_id = $2 ORDER BY occurred_at, seq`,
		tenantID, recordID)
}

func (r *inventoryRepository) movementsWhere(ctx context.Context, operation, q string, args ...any) ([]*domain.InventoryMovement, error) {
	var out []*domain.InventoryMovement
	err := r.s.movements.Query(ctx, operation, q, func(rows pgx.Rows) error {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return err
		}
		var m domain.InventoryMovement
		if err := json.Unmarshal(doc, &m); err != nil {
			return err
		}
		out = append(out, &m)
		return nil
	}, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory movements: %w", err)
	}
	return out, nil
}
