package application

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
)

// InventoryRecordDTO represents an inventory record in responses
type InventoryRecordDTO struct {
	ID           string          `json:"id"`
	WarehouseID  string          `json:"warehouseId"`
	LocationID   string          `json:"locationId"`
	LocationType string          `json:"locationType,omitempty"`
	ProductID    string          `json:"productId"`
	LotNumber    string          `json:"lotNumber,omitempty"`
	ExpiryDate   *time.Time      `json:"expiryDate,omitempty"`
	Status       string          `json:"status"`
	OnHand       int64           `json:"onHand"`
	Reserved     int64           `json:"reserved"`
	Available    int64           `json:"available"`
	UnitCost     decimal.Decimal `json:"unitCost"`
	Valuation    decimal.Decimal `json:"valuation"`
	ReceivedAt   time.Time       `json:"receivedAt"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// MovementDTO represents a ledger movement in responses
type MovementDTO struct {
	ID             string    `json:"id"`
	RecordID       string    `json:"recordId"`
	Type           string    `json:"type"`
	Quantity       int64     `json:"quantity"`
	OnHandDelta    int64     `json:"onHandDelta"`
	ReservedDelta  int64     `json:"reservedDelta"`
	OnHandAfter    int64     `json:"onHandAfter"`
	ReservedAfter  int64     `json:"reservedAfter"`
	FromLocationID string    `json:"fromLocationId,omitempty"`
	ToLocationID   string    `json:"toLocationId,omitempty"`
	Actor          string    `json:"actor,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ReferenceType  string    `json:"referenceType,omitempty"`
	ReferenceID    string    `json:"referenceId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// ReservationDTO is the response of a reserve call
type ReservationDTO struct {
	Record     *InventoryRecordDTO `json:"record"`
	Quantity   int64               `json:"quantity"`
	MovementID string              `json:"movementId"`
}

// TransferDTO is the response of a transfer
type TransferDTO struct {
	Source      *InventoryRecordDTO `json:"source"`
	Destination *InventoryRecordDTO `json:"destination"`
}

// ReceiptDTO is the response of recording a receipt
type ReceiptDTO struct {
	Order       *domain.InboundOrder `json:"order"`
	Record      *InventoryRecordDTO  `json:"record"`
	OverReceipt bool                 `json:"overReceipt"`
	Replayed    bool                 `json:"replayed"`
}

// LineAllocationDTO reports the allocation result of one order line
type LineAllocationDTO struct {
	LineID      string               `json:"lineId"`
	ProductID   string               `json:"productId"`
	Requested   int64                `json:"requested"`
	Allocated   int64                `json:"allocated"`
	Shortfall   int64                `json:"shortfall"`
	Allocations []*domain.Allocation `json:"allocations"`
}

// AllocationResultDTO is the response of allocating an order
type AllocationResultDTO struct {
	Order     *domain.OutboundOrder `json:"order"`
	Lines     []LineAllocationDTO   `json:"lines"`
	Shortfall int64                 `json:"shortfall"`
}

// ReleaseDTO is the response of releasing an order for picking
type ReleaseDTO struct {
	OrderID string             `json:"orderId"`
	Tasks   []*domain.PickTask `json:"tasks"`
}

// WaveReleaseDTO is the response of releasing a wave
type WaveReleaseDTO struct {
	Wave        *domain.Wave                    `json:"wave"`
	Allocations map[string]*AllocationResultDTO `json:"allocations"`
	Tasks       []*domain.PickTask              `json:"tasks"`
	Skipped     []string                        `json:"skipped,omitempty"`
}

// StockSummaryDTO aggregates a product's stock
type StockSummaryDTO = core.StockSummary

// TaskStatsDTO summarises the pick task board
type TaskStatsDTO = core.TaskStats
