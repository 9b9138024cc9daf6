package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type inboundRepository struct {
	s *Store
}

func (r *inboundRepository) Get(ctx context.Context, tenantID, id string) (*domain.InboundOrder, error) {
	return getOne[domain.InboundOrder](ctx, r.s.inbound, "inbound order", tenantID, id)
}

func (r *inboundRepository) Save(ctx context.Context, order *domain.InboundOrder) error {
	return saveVersioned(ctx, r.s.inbound, "inbound order", order.TenantID, order.ID, &order.Version, order)
}

func (r *inboundRepository) List(ctx context.Context, f domain.InboundFilter) ([]*domain.InboundOrder, error) {
	filter := bson.M{"tenantId": f.TenantID}
	if f.WarehouseID != "" {
		filter["warehouseId"] = f.WarehouseID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findAll[domain.InboundOrder](ctx, r.s.inbound, filter, pageOptions("_id", f.Limit, f.Offset))
}

type outboundRepository struct {
	s *Store
}

func (r *outboundRepository) Get(ctx context.Context, tenantID, id string) (*domain.OutboundOrder, error) {
	return getOne[domain.OutboundOrder](ctx, r.s.outbound, "outbound order", tenantID, id)
}

func (r *outboundRepository) Save(ctx context.Context, order *domain.OutboundOrder) error {
	return saveVersioned(ctx, r.s.outbound, "outbound order", order.TenantID, order.ID, &order.Version, order)
}

func (r *outboundRepository) List(ctx context.Context, f domain.OutboundFilter) ([]*domain.OutboundOrder, error) {
	filter := bson.M{"tenantId": f.TenantID}
	if f.WarehouseID != "" {
		filter["warehouseId"] = f.WarehouseID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.WaveID != "" {
		filter["waveId"] = f.WaveID
	}
	return findAll[domain.OutboundOrder](ctx, r.s.outbound, filter, pageOptions("_id", f.Limit, f.Offset))
}

type allocationRepository struct {
	s *Store
}

func (r *allocationRepository) Get(ctx context.Context, tenantID, id string) (*domain.Allocation, error) {
	return getOne[domain.Allocation](ctx, r.s.allocations, "allocation", tenantID, id)
}

func (r *allocationRepository) Save(ctx context.Context, alloc *domain.Allocation) error {
	return saveVersioned(ctx, r.s.allocations, "allocation", alloc.TenantID, alloc.ID, &alloc.Version, alloc)
}

func (r *allocationRepository) FindByOrder(ctx context.Context, tenantID, orderID string) ([]*domain.Allocation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[domain.Allocation](ctx, r.s.allocations, bson.M{"tenantId": tenantID, "orderId": orderID}, opts)
}

type pickTaskRepository struct {
	s *Store
}

func (r *pickTaskRepository) Get(ctx context.Context, tenantID, id string) (*domain.PickTask, error) {
	return getOne[domain.PickTask](ctx, r.s.tasks, "pick task", tenantID, id)
}

func (r *pickTaskRepository) Save(ctx context.Context, task *domain.PickTask) error {
	return saveVersioned(ctx, r.s.tasks, "pick task", task.TenantID, task.ID, &task.Version, task)
}

func (r *pickTaskRepository) List(ctx context.Context, f domain.PickTaskFilter) ([]*domain.PickTask, error) {
	filter := bson.M{"tenantId": f.TenantID}
	if f.WarehouseID != "" {
		filter["warehouseId"] = f.WarehouseID
	}
	if f.OrderID != "" {
		filter["orderId"] = f.OrderID
	}
	if f.WaveID != "" {
		filter["waveId"] = f.WaveID
	}
	if f.AssignedTo != "" {
		filter["assignedTo"] = f.AssignedTo
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return findAll[domain.PickTask](ctx, r.s.tasks, filter, pageOptions("taskNumber", f.Limit, f.Offset))
}

type waveRepository struct {
	s *Store
}

func (r *waveRepository) Get(ctx context.Context, tenantID, id string) (*domain.Wave, error) {
	return getOne[domain.Wave](ctx, r.s.waves, "wave", tenantID, id)
}

func (r *waveRepository) Save(ctx context.Context, wave *domain.Wave) error {
	return saveVersioned(ctx, r.s.waves, "wave", wave.TenantID, wave.ID, &wave.Version, wave)
}

func (r *waveRepository) List(ctx context.Context, f domain.WaveFilter) ([]*domain.Wave, error) {
	filter := bson.M{"tenantId": f.TenantID}
	if f.WarehouseID != "" {
		filter["warehouseId"] = f.WarehouseID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findAll[domain.Wave](ctx, r.s.waves, filter, pageOptions("_id", f.Limit, f.Offset))
}
