package application

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/schema"
)

// OutboundApplicationService handles outbound orders from creation to delivery
type OutboundApplicationService struct {
	fulfillment *core.Fulfillment
	allocator   *core.Allocator
	metadata    *schema.Validator
	exec        *Executor
}

// NewOutboundApplicationService creates a new OutboundApplicationService
func NewOutboundApplicationService(fulfillment *core.Fulfillment, allocator *core.Allocator, metadata *schema.Validator, exec *Executor) *OutboundApplicationService {
	return &OutboundApplicationService{fulfillment: fulfillment, allocator: allocator, metadata: metadata, exec: exec}
}

// CreateOrder creates a pending outbound order
func (s *OutboundApplicationService) CreateOrder(ctx context.Context, cmd CreateOutboundOrderCommand) (*domain.OutboundOrder, error) {
	priority := domain.PriorityNormal
	if cmd.Priority != "" {
		priority = domain.Priority(cmd.Priority)
	}
	return execute(ctx, s.exec, "outbound.create", func(ctx context.Context) (*domain.OutboundOrder, error) {
		if err := s.metadata.Validate(cmd.Metadata); err != nil {
			return nil, err
		}
		order, err := s.fulfillment.CreateOrder(ctx, core.NewOutboundOrder{
			TenantID:     tenantID(ctx),
			WarehouseID:  cmd.WarehouseID,
			CustomerName: cmd.CustomerName,
			Priority:     priority,
			Lines:        outboundLines(cmd.Lines),
			Metadata:     cmd.Metadata,
		})
		if err != nil {
			return nil, err
		}
		s.exec.logger.Info("Created outbound order", "orderId", order.ID, "orderNumber", order.OrderNumber, "units", order.TotalUnits())
		return order, nil
	})
}

// GetOrder returns an outbound order
func (s *OutboundApplicationService) GetOrder(ctx context.Context, orderID string) (*domain.OutboundOrder, error) {
	return execute(ctx, s.exec, "outbound.get", func(ctx context.Context) (*domain.OutboundOrder, error) {
		return s.fulfillment.Get(ctx, tenantID(ctx), orderID)
	})
}

// ListOrders returns outbound orders matching the query
func (s *OutboundApplicationService) ListOrders(ctx context.Context, query ListOutboundQuery) ([]*domain.OutboundOrder, error) {
	return execute(ctx, s.exec, "outbound.list", func(ctx context.Context) ([]*domain.OutboundOrder, error) {
		return s.fulfillment.List(ctx, domain.OutboundFilter{
			TenantID:    tenantID(ctx),
			WarehouseID: query.WarehouseID,
			Status:      domain.OutboundStatus(query.Status),
			WaveID:      query.WaveID,
			Limit:       query.Limit,
			Offset:      query.Offset,
		})
	})
}

// Allocate reserves stock for every line of an order, FIFO by receipt date.
// Lines that cannot be covered leave the order backordered.
func (s *OutboundApplicationService) Allocate(ctx context.Context, orderID string) (*AllocationResultDTO, error) {
	return s.allocate(ctx, "outbound.allocate", orderID, func(ctx context.Context) (*core.AllocationOutcome, error) {
		return s.allocator.Allocate(ctx, tenantID(ctx), orderID, actor(ctx))
	})
}

// AllocateLine reserves stock for a single line
func (s *OutboundApplicationService) AllocateLine(ctx context.Context, orderID, lineID string) (*AllocationResultDTO, error) {
	return s.allocate(ctx, "outbound.allocate_line", orderID, func(ctx context.Context) (*core.AllocationOutcome, error) {
		return s.allocator.AllocateLine(ctx, tenantID(ctx), orderID, lineID, actor(ctx))
	})
}

func (s *OutboundApplicationService) allocate(ctx context.Context, operation, orderID string, fn func(ctx context.Context) (*core.AllocationOutcome, error)) (*AllocationResultDTO, error) {
	return execute(ctx, s.exec, operation, func(ctx context.Context) (*AllocationResultDTO, error) {
		before, err := s.fulfillment.Get(ctx, tenantID(ctx), orderID)
		if err != nil {
			return nil, err
		}
		outcome, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		for _, alloc := range outcome.Allocations() {
			s.exec.movement(ctx, alloc.RecordID, domain.MovementTypeReserve, alloc.Quantity, 0, alloc.Quantity)
		}
		if short := outcome.Shortfall(); short > 0 {
			if s.exec.metrics != nil {
				s.exec.metrics.RecordAllocationShortfall(outcome.Order.WarehouseID, short)
			}
			s.exec.logger.Warn("Allocation short", "orderId", orderID, "shortfall", short)
		}
		s.exec.transition(ctx, "outbound_order", orderID, before.Status, outcome.Order.Status)
		return ToAllocationResultDTO(outcome), nil
	})
}

// CancelAllocation releases one allocation's reservation
func (s *OutboundApplicationService) CancelAllocation(ctx context.Context, allocationID string) (*domain.Allocation, error) {
	return execute(ctx, s.exec, "outbound.cancel_allocation", func(ctx context.Context) (*domain.Allocation, error) {
		alloc, err := s.allocator.CancelAllocation(ctx, tenantID(ctx), allocationID, actor(ctx))
		if err != nil {
			return nil, err
		}
		s.exec.audit(ctx, "cancel", "allocation", alloc.ID, map[string]any{"orderId": alloc.OrderID})
		return alloc, nil
	})
}

// ListAllocations returns the allocations of an order
func (s *OutboundApplicationService) ListAllocations(ctx context.Context, orderID string) ([]*domain.Allocation, error) {
	return execute(ctx, s.exec, "outbound.allocations", func(ctx context.Context) ([]*domain.Allocation, error) {
		return s.allocator.ListAllocations(ctx, tenantID(ctx), orderID)
	})
}

// ReleaseForPicking creates pick tasks for an order's open allocations
func (s *OutboundApplicationService) ReleaseForPicking(ctx context.Context, orderID string) (*ReleaseDTO, error) {
	return execute(ctx, s.exec, "outbound.release", func(ctx context.Context) (*ReleaseDTO, error) {
		tasks, err := s.fulfillment.ReleaseForPicking(ctx, tenantID(ctx), orderID)
		if err != nil {
			return nil, err
		}
		if tasks == nil {
			tasks = []*domain.PickTask{}
		}
		s.exec.logger.Info("Released order for picking", "orderId", orderID, "tasks", len(tasks))
		return &ReleaseDTO{OrderID: orderID, Tasks: tasks}, nil
	})
}

// Pack records packing of a picked order
func (s *OutboundApplicationService) Pack(ctx context.Context, orderID string) (*domain.OutboundOrder, error) {
	return s.change(ctx, "outbound.pack", orderID, func(ctx context.Context) (*domain.OutboundOrder, error) {
		return s.fulfillment.Pack(ctx, tenantID(ctx), orderID)
	})
}

// Ship consumes the picked stock and records the carrier
func (s *OutboundApplicationService) Ship(ctx context.Context, cmd ShipCommand) (*domain.OutboundOrder, error) {
	return s.change(ctx, "outbound.ship", cmd.OrderID, func(ctx context.Context) (*domain.OutboundOrder, error) {
		order, err := s.fulfillment.Ship(ctx, tenantID(ctx), cmd.OrderID, core.ShipDetails{
			Carrier:        cmd.Carrier,
			TrackingNumber: cmd.TrackingNumber,
			Actor:          actor(ctx),
		})
		if err != nil {
			return nil, err
		}
		for _, line := range order.Lines {
			if line.ShippedQuantity > 0 {
				s.exec.movement(ctx, "", domain.MovementTypeShip, line.ShippedQuantity, -line.ShippedQuantity, -line.ShippedQuantity)
			}
		}
		return order, nil
	})
}

// Deliver marks a shipped order as delivered
func (s *OutboundApplicationService) Deliver(ctx context.Context, orderID string) (*domain.OutboundOrder, error) {
	return s.change(ctx, "outbound.deliver", orderID, func(ctx context.Context) (*domain.OutboundOrder, error) {
		return s.fulfillment.Deliver(ctx, tenantID(ctx), orderID)
	})
}

// Cancel cancels an order and releases its reservations
func (s *OutboundApplicationService) Cancel(ctx context.Context, cmd CancelCommand) (*domain.OutboundOrder, error) {
	return s.change(ctx, "outbound.cancel", cmd.ID, func(ctx context.Context) (*domain.OutboundOrder, error) {
		order, err := s.fulfillment.Cancel(ctx, tenantID(ctx), cmd.ID, cmd.Reason, actor(ctx))
		if err != nil {
			return nil, err
		}
		s.exec.audit(ctx, "cancel", "outbound_order", order.ID, map[string]any{"reason": cmd.Reason})
		return order, nil
	})
}

func (s *OutboundApplicationService) change(ctx context.Context, operation, orderID string, fn func(ctx context.Context) (*domain.OutboundOrder, error)) (*domain.OutboundOrder, error) {
	return execute(ctx, s.exec, operation, func(ctx context.Context) (*domain.OutboundOrder, error) {
		before, err := s.fulfillment.Get(ctx, tenantID(ctx), orderID)
		if err != nil {
			return nil, err
		}
		order, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		s.exec.transition(ctx, "outbound_order", order.ID, before.Status, order.Status)
		return order, nil
	})
}
