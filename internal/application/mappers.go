package application

import (
	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
)

// ToInventoryRecordDTO converts a domain InventoryRecord to InventoryRecordDTO
func ToInventoryRecordDTO(rec *domain.InventoryRecord) *InventoryRecordDTO {
	if rec == nil {
		return nil
	}
	return &InventoryRecordDTO{
		ID:           rec.ID,
		WarehouseID:  rec.WarehouseID,
		LocationID:   rec.LocationID,
		LocationType: string(rec.LocationType),
		ProductID:    rec.ProductID,
		LotNumber:    rec.LotNumber,
		ExpiryDate:   rec.ExpiryDate,
		Status:       rec.Status.String(),
		OnHand:       rec.OnHand,
		Reserved:     rec.Reserved,
		Available:    rec.Available,
		UnitCost:     rec.UnitCost,
		Valuation:    rec.Valuation(),
		ReceivedAt:   rec.ReceivedAt,
		Version:      rec.Version,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

// ToInventoryRecordDTOs converts a slice of records
func ToInventoryRecordDTOs(records []*domain.InventoryRecord) []*InventoryRecordDTO {
	dtos := make([]*InventoryRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, ToInventoryRecordDTO(rec))
	}
	return dtos
}

// ToMovementDTOs converts ledger movements
func ToMovementDTOs(movements []*domain.InventoryMovement) []MovementDTO {
	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, MovementDTO{
			ID:             m.ID,
			RecordID:       m.RecordID,
			Type:           string(m.Type),
			Quantity:       m.Quantity,
			OnHandDelta:    m.OnHandDelta,
			ReservedDelta:  m.ReservedDelta,
			OnHandAfter:    m.OnHandAfter,
			ReservedAfter:  m.ReservedAfter,
			FromLocationID: m.FromLocationID,
			ToLocationID:   m.ToLocationID,
			Actor:          m.Actor,
			Reason:         m.Reason,
			ReferenceType:  m.ReferenceType,
			ReferenceID:    m.ReferenceID,
			OccurredAt:     m.OccurredAt,
		})
	}
	return dtos
}

// ToAllocationResultDTO converts an allocation outcome
func ToAllocationResultDTO(outcome *core.AllocationOutcome) *AllocationResultDTO {
	if outcome == nil {
		return nil
	}
	lines := make([]LineAllocationDTO, 0, len(outcome.Lines))
	for _, line := range outcome.Lines {
		allocations := line.Allocations
		if allocations == nil {
			allocations = []*domain.Allocation{}
		}
		lines = append(lines, LineAllocationDTO{
			LineID:      line.LineID,
			ProductID:   line.ProductID,
			Requested:   line.Requested,
			Allocated:   line.Allocated,
			Shortfall:   line.Shortfall(),
			Allocations: allocations,
		})
	}
	return &AllocationResultDTO{
		Order:     outcome.Order,
		Lines:     lines,
		Shortfall: outcome.Shortfall(),
	}
}

func inboundLines(inputs []InboundLineInput) []domain.InboundOrderLine {
	lines := make([]domain.InboundOrderLine, 0, len(inputs))
	for _, in := range inputs {
		line := domain.InboundOrderLine{
			ProductID:        in.ProductID,
			ExpectedQuantity: in.ExpectedQuantity,
			LotNumber:        in.LotNumber,
			ExpiryDate:       in.ExpiryDate,
		}
		if in.UnitCost != nil {
			line.UnitCost = *in.UnitCost
		}
		lines = append(lines, line)
	}
	return lines
}

func outboundLines(inputs []OutboundLineInput) []domain.OutboundOrderLine {
	lines := make([]domain.OutboundOrderLine, 0, len(inputs))
	for _, in := range inputs {
		line := domain.OutboundOrderLine{
			ProductID:       in.ProductID,
			OrderedQuantity: in.Quantity,
		}
		if in.UnitPrice != nil {
			line.UnitPrice = *in.UnitPrice
		}
		lines = append(lines, line)
	}
	return lines
}
