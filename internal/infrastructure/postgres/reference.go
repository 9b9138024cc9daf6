package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type catalog struct {
	s *Store
}

func (c *catalog) GetProduct(ctx context.Context, tenantID, id string) (*domain.Product, error) {
	return getOne[domain.Product](ctx, c.s.products, "product", tenantID, id)
}

func (c *catalog) SaveProduct(ctx context.Context, p *domain.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product %s: %w", p.ID, err)
	}
	_, err = c.s.products.Exec(ctx, "upsert",
		`INSERT INTO products (id, tenant_id, sku, doc) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, sku = EXCLUDED.sku, doc = EXCLUDED.doc`,
		p.ID, p.TenantID, p.SKU, doc)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return nil
}

func (c *catalog) GetLocation(ctx context.Context, tenantID, id string) (*domain.Location, error) {
	return getOne[domain.Location](ctx, c.s.locations, "location", tenantID, id)
}

func (c *catalog) SaveLocation(ctx context.Context, l *domain.Location) error {
	doc, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to encode location %s: %w", l.ID, err)
	}
	_, err = c.s.locations.Exec(ctx, "upsert",
		`INSERT INTO locations (id, tenant_id, warehouse_id, code, doc) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id, warehouse_id = EXCLUDED.warehouse_id,
			code = EXCLUDED.code, doc = EXCLUDED.doc`,
		l.ID, l.TenantID, l.WarehouseID, l.Code, doc)
	if err != nil {
		return fmt.Errorf("failed to save location %s: %w", l.ID, err)
	}
	return nil
}

type sequences struct {
	s *Store
}

// Next increments the tenant's counter. The row lock is held until the
// surrounding transaction ends, so numbers are gap free per tenant.
func (q *sequences) Next(ctx context.Context, tenantID, name string) (int64, error) {
	var value int64
	err := q.s.sequences.QueryRow(ctx, "next",
		`INSERT INTO sequences (tenant_id, name, value) VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`,
		[]any{tenantID, name}, &value)
	if err != nil {
		return 0, writeError(err, "sequence", name)
	}
	return value, nil
}

type eventSink struct {
	s *Store
}

func (e *eventSink) Record(ctx context.Context, events ...domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows, err := e.s.events.Rows(ctx, events)
	if err != nil {
		return err
	}
	return e.s.outbox.SaveAll(ctx, rows)
}
