package application

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/idempotency"
	"github.com/wms-platform/warehouse-core/pkg/schema"
)

// InboundApplicationService handles receiving: inbound orders, receipts and putaway
type InboundApplicationService struct {
	receiving *core.Receiving
	metadata  *schema.Validator
	exec      *Executor
}

// NewInboundApplicationService creates a new InboundApplicationService
func NewInboundApplicationService(receiving *core.Receiving, metadata *schema.Validator, exec *Executor) *InboundApplicationService {
	return &InboundApplicationService{receiving: receiving, metadata: metadata, exec: exec}
}

// CreateOrder creates an inbound order
func (s *InboundApplicationService) CreateOrder(ctx context.Context, cmd CreateInboundOrderCommand) (*domain.InboundOrder, error) {
	return execute(ctx, s.exec, "inbound.create", func(ctx context.Context) (*domain.InboundOrder, error) {
		if err := s.metadata.Validate(cmd.Metadata); err != nil {
			return nil, err
		}
		order, err := s.receiving.CreateOrder(ctx, core.NewInboundOrder{
			TenantID:            tenantID(ctx),
			WarehouseID:         cmd.WarehouseID,
			SupplierName:        cmd.SupplierName,
			ReferenceNumber:     cmd.ReferenceNumber,
			ReceivingLocationID: cmd.ReceivingLocationID,
			Status:              domain.InboundStatus(cmd.Status),
			ExpectedAt:          cmd.ExpectedAt,
			Lines:               inboundLines(cmd.Lines),
			Metadata:            cmd.Metadata,
		})
		if err != nil {
			return nil, err
		}
		s.exec.logger.Info("Created inbound order", "orderId", order.ID, "orderNumber", order.OrderNumber, "lines", len(order.Lines))
		return order, nil
	})
}

// GetOrder returns an inbound order
func (s *InboundApplicationService) GetOrder(ctx context.Context, orderID string) (*domain.InboundOrder, error) {
	return execute(ctx, s.exec, "inbound.get", func(ctx context.Context) (*domain.InboundOrder, error) {
		return s.receiving.Get(ctx, tenantID(ctx), orderID)
	})
}

// ListOrders returns inbound orders matching the query
func (s *InboundApplicationService) ListOrders(ctx context.Context, query ListInboundQuery) ([]*domain.InboundOrder, error) {
	return execute(ctx, s.exec, "inbound.list", func(ctx context.Context) ([]*domain.InboundOrder, error) {
		return s.receiving.List(ctx, domain.InboundFilter{
			TenantID:    tenantID(ctx),
			WarehouseID: query.WarehouseID,
			Status:      domain.InboundStatus(query.Status),
			Limit:       query.Limit,
			Offset:      query.Offset,
		})
	})
}

// Transition applies an operator status change
func (s *InboundApplicationService) Transition(ctx context.Context, cmd TransitionCommand) (*domain.InboundOrder, error) {
	return s.change(ctx, "inbound.transition", cmd.OrderID, func(ctx context.Context) (*domain.InboundOrder, error) {
		return s.receiving.Transition(ctx, tenantID(ctx), cmd.OrderID, domain.InboundStatus(cmd.Status))
	})
}

// RecordReceipt books received stock against an inbound line
func (s *InboundApplicationService) RecordReceipt(ctx context.Context, cmd RecordReceiptCommand) (*ReceiptDTO, error) {
	return execute(ctx, s.exec, "inbound.receipt", func(ctx context.Context) (*ReceiptDTO, error) {
		before, err := s.receiving.Get(ctx, tenantID(ctx), cmd.OrderID)
		if err != nil {
			return nil, err
		}
		result, err := s.receiving.RecordReceipt(ctx, core.ReceiptInput{
			TenantID:       tenantID(ctx),
			OrderID:        cmd.OrderID,
			LineID:         cmd.LineID,
			Quantity:       cmd.Quantity,
			LocationID:     cmd.LocationID,
			LotNumber:      cmd.LotNumber,
			ExpiryDate:     cmd.ExpiryDate,
			UnitCost:       cmd.UnitCost,
			ReceivedBy:     actor(ctx),
			IdempotencyKey: idempotency.FromContext(ctx),
		})
		if err != nil {
			return nil, err
		}
		if result.Replayed {
			s.exec.logger.Info("Replayed receipt", "orderId", cmd.OrderID, "lineId", cmd.LineID)
		} else {
			s.exec.movement(ctx, result.Record.ID, domain.MovementTypeReceive, cmd.Quantity, cmd.Quantity, 0)
			s.exec.transition(ctx, "inbound_order", result.Order.ID, before.Status, result.Order.Status)
		}
		if result.OverReceipt {
			s.exec.logger.Warn("Over-receipt recorded", "orderId", cmd.OrderID, "lineId", cmd.LineID, "quantity", cmd.Quantity)
		}
		return &ReceiptDTO{
			Order:       result.Order,
			Record:      ToInventoryRecordDTO(result.Record),
			OverReceipt: result.OverReceipt,
			Replayed:    result.Replayed,
		}, nil
	})
}

// Putaway moves received stock to storage locations
func (s *InboundApplicationService) Putaway(ctx context.Context, cmd PutawayCommand) (*domain.InboundOrder, error) {
	moves := make([]core.PutawayMove, 0, len(cmd.Moves))
	for _, mv := range cmd.Moves {
		moves = append(moves, core.PutawayMove{RecordID: mv.RecordID, ToLocationID: mv.ToLocationID, Quantity: mv.Quantity})
	}
	return s.change(ctx, "inbound.putaway", cmd.OrderID, func(ctx context.Context) (*domain.InboundOrder, error) {
		order, err := s.receiving.Putaway(ctx, tenantID(ctx), cmd.OrderID, actor(ctx), moves)
		if err != nil {
			return nil, err
		}
		for _, mv := range moves {
			s.exec.movement(ctx, mv.RecordID, domain.MovementTypePutaway, mv.Quantity, 0, 0)
		}
		return order, nil
	})
}

// Complete finishes a putaway order
func (s *InboundApplicationService) Complete(ctx context.Context, orderID string) (*domain.InboundOrder, error) {
	return s.change(ctx, "inbound.complete", orderID, func(ctx context.Context) (*domain.InboundOrder, error) {
		return s.receiving.Complete(ctx, tenantID(ctx), orderID)
	})
}

// Hold suspends an order
func (s *InboundApplicationService) Hold(ctx context.Context, orderID string) (*domain.InboundOrder, error) {
	return s.change(ctx, "inbound.hold", orderID, func(ctx context.Context) (*domain.InboundOrder, error) {
		return s.receiving.Hold(ctx, tenantID(ctx), orderID)
	})
}

// Resume returns a held order to its previous status
func (s *InboundApplicationService) Resume(ctx context.Context, orderID string) (*domain.InboundOrder, error) {
	return s.change(ctx, "inbound.resume", orderID, func(ctx context.Context) (*domain.InboundOrder, error) {
		return s.receiving.Resume(ctx, tenantID(ctx), orderID)
	})
}

// Cancel cancels an inbound order. Received stock stays in the ledger.
func (s *InboundApplicationService) Cancel(ctx context.Context, cmd CancelCommand) (*domain.InboundOrder, error) {
	return s.change(ctx, "inbound.cancel", cmd.ID, func(ctx context.Context) (*domain.InboundOrder, error) {
		order, err := s.receiving.Cancel(ctx, tenantID(ctx), cmd.ID, cmd.Reason)
		if err != nil {
			return nil, err
		}
		s.exec.audit(ctx, "cancel", "inbound_order", order.ID, map[string]any{"reason": cmd.Reason})
		return order, nil
	})
}

// change runs a status-changing operation and logs the resulting transition
func (s *InboundApplicationService) change(ctx context.Context, operation, orderID string, fn func(ctx context.Context) (*domain.InboundOrder, error)) (*domain.InboundOrder, error) {
	return execute(ctx, s.exec, operation, func(ctx context.Context) (*domain.InboundOrder, error) {
		before, err := s.receiving.Get(ctx, tenantID(ctx), orderID)
		if err != nil {
			return nil, err
		}
		order, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		s.exec.transition(ctx, "inbound_order", order.ID, before.Status, order.Status)
		return order, nil
	})
}
