package memory

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type catalog struct {
	s *Store
}

func (c *catalog) GetProduct(ctx context.Context, tenantID, id string) (*domain.Product, error) {
	var out *domain.Product
	err := c.s.view(ctx, func(st *state) error {
		p, ok := st.products[id]
		if !ok || p.TenantID != tenantID {
			return domain.NotFound("product", id)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

func (c *catalog) SaveProduct(ctx context.Context, p *domain.Product) error {
	return c.s.update(ctx, func(st *state) error {
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

func (c *catalog) GetLocation(ctx context.Context, tenantID, id string) (*domain.Location, error) {
	var out *domain.Location
	err := c.s.view(ctx, func(st *state) error {
		l, ok := st.locations[id]
		if !ok || l.TenantID != tenantID {
			return domain.NotFound("location", id)
		}
		cp := *l
		out = &cp
		return nil
	})
	return out, err
}

func (c *catalog) SaveLocation(ctx context.Context, l *domain.Location) error {
	return c.s.update(ctx, func(st *state) error {
		cp := *l
		st.locations[l.ID] = &cp
		return nil
	})
}

type sequences struct {
	s *Store
}

func (q *sequences) Next(ctx context.Context, tenantID, name string) (int64, error) {
	var next int64
	err := q.s.update(ctx, func(st *state) error {
		key := tenantID + "|" + name
		st.sequences[key]++
		next = st.sequences[key]
		return nil
	})
	return next, err
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
	return e.s.Outbox().SaveAll(ctx, rows)
}
