package application

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
)

// InventoryApplicationService exposes the stock ledger
type InventoryApplicationService struct {
	ledger *core.Ledger
	exec   *Executor
}

// NewInventoryApplicationService creates a new InventoryApplicationService
func NewInventoryApplicationService(ledger *core.Ledger, exec *Executor) *InventoryApplicationService {
	return &InventoryApplicationService{ledger: ledger, exec: exec}
}

// ReceiveStock adds stock at a location, creating the record if needed
func (s *InventoryApplicationService) ReceiveStock(ctx context.Context, cmd ReceiveStockCommand) (*InventoryRecordDTO, error) {
	return execute(ctx, s.exec, "inventory.receive", func(ctx context.Context) (*InventoryRecordDTO, error) {
		rec, err := s.ledger.Receive(ctx, core.ReceiveRequest{
			Key: domain.RecordKey{
				TenantID:    tenantID(ctx),
				WarehouseID: cmd.WarehouseID,
				LocationID:  cmd.LocationID,
				ProductID:   cmd.ProductID,
				LotNumber:   cmd.LotNumber,
				ExpiryDate:  cmd.ExpiryDate,
			},
			Quantity: cmd.Quantity,
			UnitCost: cmd.UnitCost,
			Meta:     movementMeta(ctx, cmd.Reason, cmd.ReferenceType, cmd.ReferenceID),
		})
		if err != nil {
			return nil, err
		}
		s.exec.movement(ctx, rec.ID, domain.MovementTypeReceive, cmd.Quantity, cmd.Quantity, 0)
		s.exec.logger.Info("Received stock", "record", rec.ID, "product", rec.ProductID, "quantity", cmd.Quantity)
		return ToInventoryRecordDTO(rec), nil
	})
}

// Reserve sets aside available quantity on a record
func (s *InventoryApplicationService) Reserve(ctx context.Context, cmd QuantityCommand) (*ReservationDTO, error) {
	return execute(ctx, s.exec, "inventory.reserve", func(ctx context.Context) (*ReservationDTO, error) {
		result, err := s.ledger.Reserve(ctx, tenantID(ctx), cmd.RecordID, cmd.Quantity,
			movementMeta(ctx, cmd.Reason, cmd.ReferenceType, cmd.ReferenceID))
		if err != nil {
			return nil, err
		}
		s.exec.movement(ctx, result.Record.ID, domain.MovementTypeReserve, result.Quantity, 0, result.Quantity)
		return &ReservationDTO{
			Record:     ToInventoryRecordDTO(result.Record),
			Quantity:   result.Quantity,
			MovementID: result.MovementID,
		}, nil
	})
}

// Release returns reserved quantity to available
func (s *InventoryApplicationService) Release(ctx context.Context, cmd QuantityCommand) (*InventoryRecordDTO, error) {
	return execute(ctx, s.exec, "inventory.release", func(ctx context.Context) (*InventoryRecordDTO, error) {
		rec, err := s.ledger.ReleaseReservation(ctx, tenantID(ctx), cmd.RecordID, cmd.Quantity,
			movementMeta(ctx, cmd.Reason, cmd.ReferenceType, cmd.ReferenceID))
		if err != nil {
			return nil, err
		}
		s.exec.movement(ctx, rec.ID, domain.MovementTypeRelease, cmd.Quantity, 0, -cmd.Quantity)
		return ToInventoryRecordDTO(rec), nil
	})
}

// Consume removes reserved quantity from on-hand
func (s *InventoryApplicationService) Consume(ctx context.Context, cmd QuantityCommand) (*InventoryRecordDTO, error) {
	return execute(ctx, s.exec, "inventory.consume", func(ctx context.Context) (*InventoryRecordDTO, error) {
		rec, err := s.ledger.Consume(ctx, tenantID(ctx), cmd.RecordID, cmd.Quantity,
			movementMeta(ctx, cmd.Reason, cmd.ReferenceType, cmd.ReferenceID))
		if err != nil {
			return nil, err
		}
		s.exec.movement(ctx, rec.ID, domain.MovementTypePick, cmd.Quantity, -cmd.Quantity, -cmd.Quantity)
		return ToInventoryRecordDTO(rec), nil
	})
}

// Adjust corrects on-hand after a count or damage
func (s *InventoryApplicationService) Adjust(ctx context.Context, cmd AdjustCommand) (*InventoryRecordDTO, error) {
	movementType := domain.MovementTypeAdjustment
	if cmd.Type != "" {
		movementType = domain.MovementType(cmd.Type)
	}
	return execute(ctx, s.exec, "inventory.adjust", func(ctx context.Context) (*InventoryRecordDTO, error) {
		rec, err := s.ledger.Adjust(ctx, tenantID(ctx), cmd.RecordID, cmd.Delta, movementType,
			movementMeta(ctx, cmd.Reason, "", ""))
		if err != nil {
			return nil, err
		}
		quantity := cmd.Delta
		if quantity < 0 {
			quantity = -quantity
		}
		s.exec.movement(ctx, rec.ID, movementType, quantity, cmd.Delta, 0)
		s.exec.audit(ctx, "adjust", "inventory_record", rec.ID, map[string]any{
			"delta":  cmd.Delta,
			"reason": cmd.Reason,
		})
		return ToInventoryRecordDTO(rec), nil
	})
}

// SetStatus changes the availability status of a record
func (s *InventoryApplicationService) SetStatus(ctx context.Context, cmd SetStatusCommand) (*InventoryRecordDTO, error) {
	return execute(ctx, s.exec, "inventory.set_status", func(ctx context.Context) (*InventoryRecordDTO, error) {
		before, err := s.ledger.Get(ctx, tenantID(ctx), cmd.RecordID)
		if err != nil {
			return nil, err
		}
		rec, err := s.ledger.SetStatus(ctx, tenantID(ctx), cmd.RecordID, domain.InventoryStatus(cmd.Status),
			movementMeta(ctx, cmd.Reason, "", ""))
		if err != nil {
			return nil, err
		}
		s.exec.transition(ctx, "inventory_record", rec.ID, before.Status, rec.Status)
		return ToInventoryRecordDTO(rec), nil
	})
}

// Transfer moves available stock to another location
func (s *InventoryApplicationService) Transfer(ctx context.Context, cmd TransferCommand) (*TransferDTO, error) {
	return execute(ctx, s.exec, "inventory.transfer", func(ctx context.Context) (*TransferDTO, error) {
		result, err := s.ledger.Transfer(ctx, core.TransferRequest{
			TenantID:     tenantID(ctx),
			RecordID:     cmd.RecordID,
			ToLocationID: cmd.ToLocationID,
			Quantity:     cmd.Quantity,
			Type:         domain.MovementTypeTransfer,
			Meta:         movementMeta(ctx, cmd.Reason, "", ""),
		})
		if err != nil {
			return nil, err
		}
		s.exec.movement(ctx, result.Source.ID, domain.MovementTypeTransfer, cmd.Quantity, -cmd.Quantity, 0)
		s.exec.movement(ctx, result.Destination.ID, domain.MovementTypeTransfer, cmd.Quantity, cmd.Quantity, 0)
		return &TransferDTO{
			Source:      ToInventoryRecordDTO(result.Source),
			Destination: ToInventoryRecordDTO(result.Destination),
		}, nil
	})
}

// GetRecord returns one record
func (s *InventoryApplicationService) GetRecord(ctx context.Context, recordID string) (*InventoryRecordDTO, error) {
	return execute(ctx, s.exec, "inventory.get", func(ctx context.Context) (*InventoryRecordDTO, error) {
		rec, err := s.ledger.Get(ctx, tenantID(ctx), recordID)
		if err != nil {
			return nil, err
		}
		return ToInventoryRecordDTO(rec), nil
	})
}

// ListRecords returns records matching the query
func (s *InventoryApplicationService) ListRecords(ctx context.Context, query ListInventoryQuery) ([]*InventoryRecordDTO, error) {
	return execute(ctx, s.exec, "inventory.list", func(ctx context.Context) ([]*InventoryRecordDTO, error) {
		records, err := s.ledger.List(ctx, domain.InventoryFilter{
			TenantID:    tenantID(ctx),
			WarehouseID: query.WarehouseID,
			ProductID:   query.ProductID,
			LocationID:  query.LocationID,
			Status:      domain.InventoryStatus(query.Status),
			Limit:       query.Limit,
			Offset:      query.Offset,
		})
		if err != nil {
			return nil, err
		}
		return ToInventoryRecordDTOs(records), nil
	})
}

// ListMovements returns the movement history of a record, oldest first
func (s *InventoryApplicationService) ListMovements(ctx context.Context, recordID string) ([]MovementDTO, error) {
	return execute(ctx, s.exec, "inventory.movements", func(ctx context.Context) ([]MovementDTO, error) {
		movements, err := s.ledger.ListMovements(ctx, tenantID(ctx), recordID)
		if err != nil {
			return nil, err
		}
		return ToMovementDTOs(movements), nil
	})
}

// StockSummary aggregates a product's stock, optionally within one warehouse
func (s *InventoryApplicationService) StockSummary(ctx context.Context, warehouseID, productID string) (*StockSummaryDTO, error) {
	return execute(ctx, s.exec, "inventory.summary", func(ctx context.Context) (*StockSummaryDTO, error) {
		return s.ledger.StockSummary(ctx, tenantID(ctx), warehouseID, productID)
	})
}
