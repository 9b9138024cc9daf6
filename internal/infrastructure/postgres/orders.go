package postgres

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type inboundRepository struct {
	s *Store
}

func (r *inboundRepository) Get(ctx context.Context, tenantID, id string) (*domain.InboundOrder, error) {
	return getOne[domain.InboundOrder](ctx, r.s.inbound, "inbound order", tenantID, id)
}

func (r *inboundRepository) Save(ctx context.Context, order *domain.InboundOrder) error {
	row := versioned{
		table:   r.s.inbound,
		entity:  "inbound order",
		id:      order.ID,
		tenant:  order.TenantID,
		columns: []string{"warehouse_id", "order_number", "status", "created_at"},
		values:  []any{order.WarehouseID, order.OrderNumber, string(order.Status), order.CreatedAt},
	}
	return row.save(ctx, &order.Version, order)
}

func (r *inboundRepository) List(ctx context.Context, f domain.InboundFilter) ([]*domain.InboundOrder, error) {
	q := newQuery(f.TenantID).
		eqIf("warehouse_id", f.WarehouseID).
		eqIf("status", string(f.Status)).
		page("id", f.Limit, f.Offset)
	return findAll[domain.InboundOrder](ctx, r.s.inbound, q)
}

type outboundRepository struct {
	s *Store
}

func (r *outboundRepository) Get(ctx context.Context, tenantID, id string) (*domain.OutboundOrder, error) {
	return getOne[domain.OutboundOrder](ctx, r.s.outbound, "outbound order", tenantID, id)
}

func (r *outboundRepository) Save(ctx context.Context, order *domain.OutboundOrder) error {
	row := versioned{
		table:   r.s.outbound,
		entity:  "outbound order",
		id:      order.ID,
		tenant:  order.TenantID,
		columns: []string{"warehouse_id", "order_number", "status", "wave_id", "created_at"},
		values:  []any{order.WarehouseID, order.OrderNumber, string(order.Status), order.WaveID, order.CreatedAt},
	}
	return row.save(ctx, &order.Version, order)
}

func (r *outboundRepository) List(ctx context.Context, f domain.OutboundFilter) ([]*domain.OutboundOrder, error) {
	q := newQuery(f.TenantID).
		eqIf("warehouse_id", f.WarehouseID).
		eqIf("status", string(f.Status)).
		eqIf("wave_id", f.WaveID).
		page("id", f.Limit, f.Offset)
	return findAll[domain.OutboundOrder](ctx, r.s.outbound, q)
}

type allocationRepository struct {
	s *Store
}

func (r *allocationRepository) Get(ctx context.Context, tenantID, id string) (*domain.Allocation, error) {
	return getOne[domain.Allocation](ctx, r.s.allocations, "allocation", tenantID, id)
}

func (r *allocationRepository) Save(ctx context.Context, alloc *domain.Allocation) error {
	row := versioned{
		table:   r.s.allocations,
		entity:  "allocation",
		id:      alloc.ID,
		tenant:  alloc.TenantID,
		columns: []string{"order_id", "created_at"},
		values:  []any{alloc.OrderID, alloc.CreatedAt},
	}
	return row.save(ctx, &alloc.Version, alloc)
}

func (r *allocationRepository) FindByOrder(ctx context.Context, tenantID, orderID string) ([]*domain.Allocation, error) {
	q := newQuery(tenantID).eq("order_id", orderID).page("id", 0, 0)
	return findAll[domain.Allocation](ctx, r.s.allocations, q)
}

type pickTaskRepository struct {
	s *Store
}

func (r *pickTaskRepository) Get(ctx context.Context, tenantID, id string) (*domain.PickTask, error) {
	return getOne[domain.PickTask](ctx, r.s.tasks, "pick task", tenantID, id)
}

func (r *pickTaskRepository) Save(ctx context.Context, task *domain.PickTask) error {
	row := versioned{
		table:   r.s.tasks,
		entity:  "pick task",
		id:      task.ID,
		tenant:  task.TenantID,
		columns: []string{"warehouse_id", "task_number", "order_id", "wave_id", "assigned_to", "status", "created_at"},
		values: []any{task.WarehouseID, task.TaskNumber, task.OrderID, task.WaveID, task.AssignedTo,
			string(task.Status), task.CreatedAt},
	}
	return row.save(ctx, &task.Version, task)
}

func (r *pickTaskRepository) List(ctx context.Context, f domain.PickTaskFilter) ([]*domain.PickTask, error) {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	q := newQuery(f.TenantID).
		eqIf("warehouse_id", f.WarehouseID).
		eqIf("order_id", f.OrderID).
		eqIf("wave_id", f.WaveID).
		eqIf("assigned_to", f.AssignedTo).
		in("status", statuses).
		page("task_number", f.Limit, f.Offset)
	return findAll[domain.PickTask](ctx, r.s.tasks, q)
}

type waveRepository struct {
	s *Store
}

func (r *waveRepository) Get(ctx context.Context, tenantID, id string) (*domain.Wave, error) {
	return getOne[domain.Wave](ctx, r.s.waves, "wave", tenantID, id)
}

func (r *waveRepository) Save(ctx context.Context, wave *domain.Wave) error {
	row := versioned{
		table:   r.s.waves,
		entity:  "wave",
		id:      wave.ID,
		tenant:  wave.TenantID,
		columns: []string{"warehouse_id", "wave_number", "status", "created_at"},
		values:  []any{wave.WarehouseID, wave.WaveNumber, string(wave.Status), wave.CreatedAt},
	}
	return row.save(ctx, &wave.Version, wave)
}

func (r *waveRepository) List(ctx context.Context, f domain.WaveFilter) ([]*domain.Wave, error) {
	q := newQuery(f.TenantID).
		eqIf("warehouse_id", f.WarehouseID).
		eqIf("status", string(f.Status)).
		page("id", f.Limit, f.Offset)
	return findAll[domain.Wave](ctx, r.s.waves, q)
}
