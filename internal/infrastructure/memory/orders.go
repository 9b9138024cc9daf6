package memory

import (
	"context"
	"slices"
	"time"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type inboundRepository struct {
	s *Store
}

func (r *inboundRepository) Get(ctx context.Context, tenantID, id string) (*domain.InboundOrder, error) {
	var out *domain.InboundOrder
	err := r.s.view(ctx, func(st *state) error {
		o, ok := st.inbound[id]
		if !ok || o.TenantID != tenantID {
			return domain.NotFound("inbound order", id)
		}
		out = cloneInbound(o)
		return nil
	})
	return out, err
}

func (r *inboundRepository) Save(ctx context.Context, order *domain.InboundOrder) error {
	return r.s.update(ctx, func(st *state) error {
		stored, exists := st.inbound[order.ID]
		var version int64
		if exists {
			version = stored.Version
		}
		if err := checkVersion(exists, version, order.Version, "inbound order", order.ID); err != nil {
			return err
		}
		order.Version++
		st.inbound[order.ID] = cloneInbound(order)
		return nil
	})
}

func (r *inboundRepository) List(ctx context.Context, f domain.InboundFilter) ([]*domain.InboundOrder, error) {
	var out []*domain.InboundOrder
	err := r.s.view(ctx, func(st *state) error {
		for _, o := range st.inbound {
			if o.TenantID != f.TenantID ||
				(f.WarehouseID != "" && o.WarehouseID != f.WarehouseID) ||
				(f.Status != "" && o.Status != f.Status) {
				continue
			}
			out = append(out, cloneInbound(o))
		}
		return nil
	})
	return page(out,
		func(o *domain.InboundOrder) time.Time { return o.CreatedAt },
		func(o *domain.InboundOrder) string { return o.ID },
		f.Limit, f.Offset), err
}

type outboundRepository struct {
	s *Store
}

func (r *outboundRepository) Get(ctx context.Context, tenantID, id string) (*domain.OutboundOrder, error) {
	var out *domain.OutboundOrder
	err := r.s.view(ctx, func(st *state) error {
		o, ok := st.outbound[id]
		if !ok || o.TenantID != tenantID {
			return domain.NotFound("outbound order", id)
		}
		out = cloneOutbound(o)
		return nil
	})
	return out, err
}

func (r *outboundRepository) Save(ctx context.Context, order *domain.OutboundOrder) error {
	return r.s.update(ctx, func(st *state) error {
		stored, exists := st.outbound[order.ID]
		var version int64
		if exists {
			version = stored.Version
		}
		if err := checkVersion(exists, version, order.Version, "outbound order", order.ID); err != nil {
			return err
		}
		order.Version++
		st.outbound[order.ID] = cloneOutbound(order)
		return nil
	})
}

func (r *outboundRepository) List(ctx context.Context, f domain.OutboundFilter) ([]*domain.OutboundOrder, error) {
	var out []*domain.OutboundOrder
	err := r.s.view(ctx, func(st *state) error {
		for _, o := range st.outbound {
			if o.TenantID != f.TenantID ||
				(f.WarehouseID != "" && o.WarehouseID != f.WarehouseID) ||
				(f.Status != "" && o.Status != f.Status) ||
				(f.WaveID != "" && o.WaveID != f.WaveID) {
				continue
			}
			out = append(out, cloneOutbound(o))
		}
		return nil
	})
	return page(out,
		func(o *domain.OutboundOrder) time.Time { return o.CreatedAt },
		func(o *domain.OutboundOrder) string { return o.ID },
		f.Limit, f.Offset), err
}

type allocationRepository struct {
	s *Store
}

func (r *allocationRepository) Get(ctx context.Context, tenantID, id string) (*domain.Allocation, error) {
	var out *domain.Allocation
	err := r.s.view(ctx, func(st *state) error {
		a, ok := st.allocations[id]
		if !ok || a.TenantID != tenantID {
			return domain.NotFound("allocation", id)
		}
		out = cloneAllocation(a)
		return nil
	})
	return out, err
}

func (r *allocationRepository) Save(ctx context.Context, alloc *domain.Allocation) error {
	return r.s.update(ctx, func(st *state) error {
		stored, exists := st.allocations[alloc.ID]
		var version int64
		if exists {
			version = stored.Version
		}
		if err := checkVersion(exists, version, alloc.Version, "allocation", alloc.ID); err != nil {
			return err
		}
		alloc.Version++
		st.allocations[alloc.ID] = cloneAllocation(alloc)
		return nil
	})
}

func (r *allocationRepository) FindByOrder(ctx context.Context, tenantID, orderID string) ([]*domain.Allocation, error) {
	var out []*domain.Allocation
	err := r.s.view(ctx, func(st *state) error {
		for _, a := range st.allocations {
			if a.TenantID == tenantID && a.OrderID == orderID {
				out = append(out, cloneAllocation(a))
			}
		}
		return nil
	})
	return page(out,
		func(a *domain.Allocation) time.Time { return a.CreatedAt },
		func(a *domain.Allocation) string { return a.ID },
		0, 0), err
}

type pickTaskRepository struct {
	s *Store
}

func (r *pickTaskRepository) Get(ctx context.Context, tenantID, id string) (*domain.PickTask, error) {
	var out *domain.PickTask
	err := r.s.view(ctx, func(st *state) error {
		t, ok := st.tasks[id]
		if !ok || t.TenantID != tenantID {
			return domain.NotFound("pick task", id)
		}
		out = cloneTask(t)
		return nil
	})
	return out, err
}

func (r *pickTaskRepository) Save(ctx context.Context, task *domain.PickTask) error {
	return r.s.update(ctx, func(st *state) error {
		stored, exists := st.tasks[task.ID]
		var version int64
		if exists {
			version = stored.Version
		}
		if err := checkVersion(exists, version, task.Version, "pick task", task.ID); err != nil {
			return err
		}
		task.Version++
		st.tasks[task.ID] = cloneTask(task)
		return nil
	})
}

func (r *pickTaskRepository) List(ctx context.Context, f domain.PickTaskFilter) ([]*domain.PickTask, error) {
	var out []*domain.PickTask
	err := r.s.view(ctx, func(st *state) error {
		for _, t := range st.tasks {
			if t.TenantID != f.TenantID ||
				(f.WarehouseID != "" && t.WarehouseID != f.WarehouseID) ||
				(f.OrderID != "" && t.OrderID != f.OrderID) ||
				(f.WaveID != "" && t.WaveID != f.WaveID) ||
				(f.AssignedTo != "" && t.AssignedTo != f.AssignedTo) ||
				(len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status)) {
				continue
			}
			out = append(out, cloneTask(t))
		}
		return nil
	})
	return page(out,
		func(t *domain.PickTask) time.Time { return t.CreatedAt },
		func(t *domain.PickTask) string { return t.TaskNumber },
		f.Limit, f.Offset), err
}

type waveRepository struct {
	s *Store
}

func (r *waveRepository) Get(ctx context.Context, tenantID, id string) (*domain.Wave, error) {
	var out *domain.Wave
	err := r.s.view(ctx, func(st *state) error {
		w, ok := st.waves[id]
		if !ok || w.TenantID != tenantID {
			return domain.NotFound("wave", id)
		}
		out = cloneWave(w)
		return nil
	})
	return out, err
}

func (r *waveRepository) Save(ctx context.Context, wave *domain.Wave) error {
	return r.s.update(ctx, func(st *state) error {
		stored, exists := st.waves[wave.ID]
		var version int64
		if exists {
			version = stored.Version
		}
		if err := checkVersion(exists, version, wave.Version, "wave", wave.ID); err != nil {
			return err
		}
		wave.Version++
		st.waves[wave.ID] = cloneWave(wave)
		return nil
	})
}

func (r *waveRepository) List(ctx context.Context, f domain.WaveFilter) ([]*domain.Wave, error) {
	var out []*domain.Wave
	err := r.s.view(ctx, func(st *state) error {
		for _, w := range st.waves {
			if w.TenantID != f.TenantID ||
				(f.WarehouseID != "" && w.WarehouseID != f.WarehouseID) ||
				(f.Status != "" && w.Status != f.Status) {
				continue
			}
			out = append(out, cloneWave(w))
		}
		return nil
	})
	return page(out,
		func(w *domain.Wave) time.Time { return w.CreatedAt },
		func(w *domain.Wave) string { return w.ID },
		f.Limit, f.Offset), err
}
