package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveStockCommand records stock arriving at a location outside an inbound order
type ReceiveStockCommand struct {
	WarehouseID   string           `json:"warehouseId" binding:"required"`
	LocationID    string           `json:"locationId" binding:"required"`
	ProductID     string           `json:"productId" binding:"required"`
	LotNumber     string           `json:"lotNumber" binding:"omitempty,safe_string,max=64"`
	ExpiryDate    *time.Time       `json:"expiryDate"`
	Quantity      int64            `json:"quantity"`
	UnitCost      *decimal.Decimal `json:"unitCost"`
	Reason        string           `json:"reason" binding:"omitempty,movementreason"`
	ReferenceType string           `json:"referenceType" binding:"omitempty,safe_string,max=64"`
	ReferenceID   string           `json:"referenceId" binding:"omitempty,safe_string,max=128"`
}

// QuantityCommand reserves, releases or consumes quantity on a record
type QuantityCommand struct {
	RecordID      string `json:"-"`
	Quantity      int64  `json:"quantity"`
	Reason        string `json:"reason" binding:"omitempty,movementreason"`
	ReferenceType string `json:"referenceType" binding:"omitempty,safe_string,max=64"`
	ReferenceID   string `json:"referenceId" binding:"omitempty,safe_string,max=128"`
}

// AdjustCommand corrects on-hand by a signed delta
type AdjustCommand struct {
	RecordID string `json:"-"`
	Delta    int64  `json:"delta"`
	Type     string `json:"type" binding:"omitempty,oneof=adjustment count"`
	Reason   string `json:"reason" binding:"required,movementreason"`
}

// TransferCommand moves available stock to another location
type TransferCommand struct {
	RecordID     string `json:"-"`
	ToLocationID string `json:"toLocationId" binding:"required"`
	Quantity     int64  `json:"quantity"`
	Reason       string `json:"reason" binding:"omitempty,movementreason"`
}

// SetStatusCommand changes the availability status of a record
type SetStatusCommand struct {
	RecordID string `json:"-"`
	Status   string `json:"status" binding:"required,oneof=available hold damaged quarantine expired"`
	Reason   string `json:"reason" binding:"omitempty,movementreason"`
}

// ListInventoryQuery filters inventory records
type ListInventoryQuery struct {
	WarehouseID string `form:"warehouseId"`
	ProductID   string `form:"productId"`
	LocationID  string `form:"locationId"`
	Status      string `form:"status" binding:"omitempty,oneof=available hold damaged quarantine expired"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// InboundLineInput is one expected product of a new inbound order
type InboundLineInput struct {
	ProductID        string           `json:"productId" binding:"required"`
	ExpectedQuantity int64            `json:"expectedQuantity" binding:"gt=0"`
	UnitCost         *decimal.Decimal `json:"unitCost"`
	LotNumber        string           `json:"lotNumber" binding:"omitempty,safe_string,max=64"`
	ExpiryDate       *time.Time       `json:"expiryDate"`
}

// CreateInboundOrderCommand creates an inbound order
type CreateInboundOrderCommand struct {
	WarehouseID         string             `json:"warehouseId" binding:"required"`
	SupplierName        string             `json:"supplierName" binding:"omitempty,safe_string,max=256"`
	ReferenceNumber     string             `json:"referenceNumber" binding:"omitempty,safe_string,max=128"`
	ReceivingLocationID string             `json:"receivingLocationId"`
	Status              string             `json:"status" binding:"omitempty,oneof=draft pending"`
	ExpectedAt          *time.Time         `json:"expectedAt"`
	Lines               []InboundLineInput `json:"lines" binding:"required,min=1,dive"`
	Metadata            map[string]any     `json:"metadata"`
}

// TransitionCommand moves an inbound order to an operator-driven status
type TransitionCommand struct {
	OrderID string `json:"-"`
	Status  string `json:"status" binding:"required"`
}

// RecordReceiptCommand records a receipt against an inbound line
type RecordReceiptCommand struct {
	OrderID    string           `json:"-"`
	LineID     string           `json:"lineId" binding:"required"`
	Quantity   int64            `json:"quantity"`
	LocationID string           `json:"locationId"`
	LotNumber  string           `json:"lotNumber" binding:"omitempty,safe_string,max=64"`
	ExpiryDate *time.Time       `json:"expiryDate"`
	UnitCost   *decimal.Decimal `json:"unitCost"`
}

// PutawayMoveInput moves received stock to its storage location
type PutawayMoveInput struct {
	RecordID     string `json:"recordId" binding:"required"`
	ToLocationID string `json:"toLocationId" binding:"required"`
	Quantity     int64  `json:"quantity" binding:"gt=0"`
}

// PutawayCommand executes the putaway moves of an inbound order
type PutawayCommand struct {
	OrderID string             `json:"-"`
	Moves   []PutawayMoveInput `json:"moves" binding:"required,min=1,dive"`
}

// CancelCommand cancels an order, task or wave
type CancelCommand struct {
	ID     string `json:"-"`
	Reason string `json:"reason" binding:"omitempty,movementreason"`
}

// ListInboundQuery filters inbound orders
type ListInboundQuery struct {
	WarehouseID string `form:"warehouseId"`
	Status      string `form:"status"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// OutboundLineInput is one ordered product of a new outbound order
type OutboundLineInput struct {
	ProductID string           `json:"productId" binding:"required"`
	Quantity  int64            `json:"quantity" binding:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
}

// CreateOutboundOrderCommand creates an outbound order
type CreateOutboundOrderCommand struct {
	WarehouseID  string              `json:"warehouseId" binding:"required"`
	CustomerName string              `json:"customerName" binding:"omitempty,safe_string,max=256"`
	Priority     string              `json:"priority" binding:"omitempty,priority"`
	Lines        []OutboundLineInput `json:"lines" binding:"required,min=1,dive"`
	Metadata     map[string]any      `json:"metadata"`
}

// ShipCommand ships a packed order
type ShipCommand struct {
	OrderID        string `json:"-"`
	Carrier        string `json:"carrier" binding:"required,safe_string,max=64"`
	TrackingNumber string `json:"trackingNumber" binding:"omitempty,safe_string,max=128"`
}

// ListOutboundQuery filters outbound orders
type ListOutboundQuery struct {
	WarehouseID string `form:"warehouseId"`
	Status      string `form:"status"`
	WaveID      string `form:"waveId"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// AssignTaskCommand assigns a pick task to a picker
type AssignTaskCommand struct {
	TaskID string `json:"-"`
	UserID string `json:"userId" binding:"required,safe_string,max=128"`
}

// CompleteTaskCommand confirms the quantity picked; it may be short
type CompleteTaskCommand struct {
	TaskID         string `json:"-"`
	PickedQuantity int64  `json:"pickedQuantity" binding:"min=0"`
}

// ListTasksQuery filters pick tasks
type ListTasksQuery struct {
	WarehouseID string   `form:"warehouseId"`
	OrderID     string   `form:"orderId"`
	WaveID      string   `form:"waveId"`
	AssignedTo  string   `form:"assignedTo"`
	Statuses    []string `form:"status"`
	Limit       int      `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int      `form:"offset" binding:"omitempty,min=0"`
}

// CreateWaveCommand groups outbound orders into a draft wave
type CreateWaveCommand struct {
	WarehouseID string     `json:"warehouseId" binding:"required"`
	Name        string     `json:"name" binding:"omitempty,safe_string,max=128"`
	OrderIDs    []string   `json:"orderIds" binding:"required,min=1,dive,required"`
	PlannedAt   *time.Time `json:"plannedAt"`
}

// ListWavesQuery filters waves
type ListWavesQuery struct {
	WarehouseID string `form:"warehouseId"`
	Status      string `form:"status"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}
