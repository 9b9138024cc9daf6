package domain

import (
	"context"
	"fmt"
	"time"
)

// TransactionManager runs fn atomically. Calls nested inside an active
// transaction join it instead of opening a new one.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LocationScope narrows FindAvailableForProduct
type LocationScope struct {
	WarehouseID   string
	LocationIDs   []string
	LocationTypes []LocationType
}

// InventoryFilter selects inventory records for listing
type InventoryFilter struct {
	TenantID    string
	WarehouseID string
	ProductID   string
	LocationID  string
	Status      InventoryStatus
	Limit       int
	Offset      int
}

// InventoryRepository is the persistence contract of the ledger and allocator.
// Upsert compares Version and fails with ErrConcurrentModification on mismatch.
type InventoryRepository interface {
	Get(ctx context.Context, tenantID, id string) (*InventoryRecord, error)
	FindByKey(ctx context.Context, key RecordKey) (*InventoryRecord, error)
	Upsert(ctx context.Context, rec *InventoryRecord) error
	// FindAvailableForProduct returns available-status records with Available > 0,
	// oldest ReceivedAt first, ties broken by ascending PickSequence.
	FindAvailableForProduct(ctx context.Context, tenantID, productID string, scope LocationScope) ([]*InventoryRecord, error)
	List(ctx context.Context, filter InventoryFilter) ([]*InventoryRecord, error)
	AppendMovement(ctx context.Context, m *InventoryMovement) error
	FindMovementByIdempotencyKey(ctx context.Context, tenantID, key string) (*InventoryMovement, error)
	ListMovements(ctx context.Context, tenantID, recordID string) ([]*InventoryMovement, error)
}

// InboundFilter selects inbound orders for listing
type InboundFilter struct {
	TenantID    string
	WarehouseID string
	Status      InboundStatus
	Limit       int
	Offset      int
}

// InboundOrderRepository persists inbound orders
type InboundOrderRepository interface {
	Get(ctx context.Context, tenantID, id string) (*InboundOrder, error)
	Save(ctx context.Context, order *InboundOrder) error
	List(ctx context.Context, filter InboundFilter) ([]*InboundOrder, error)
}

// OutboundFilter selects outbound orders for listing
type OutboundFilter struct {
	TenantID    string
	WarehouseID string
	Status      OutboundStatus
	WaveID      string
	Limit       int
	Offset      int
}

// OutboundOrderRepository persists outbound orders
type OutboundOrderRepository interface {
	Get(ctx context.Context, tenantID, id string) (*OutboundOrder, error)
	Save(ctx context.Context, order *OutboundOrder) error
	List(ctx context.Context, filter OutboundFilter) ([]*OutboundOrder, error)
}

// AllocationRepository persists allocations
type AllocationRepository interface {
	Get(ctx context.Context, tenantID, id string) (*Allocation, error)
	Save(ctx context.Context, alloc *Allocation) error
	FindByOrder(ctx context.Context, tenantID, orderID string) ([]*Allocation, error)
}

// PickTaskFilter selects pick tasks for listing
type PickTaskFilter struct {
	TenantID    string
	WarehouseID string
	OrderID     string
	WaveID      string
	AssignedTo  string
	Statuses    []PickTaskStatus
	Limit       int
	Offset      int
}

// PickTaskRepository persists pick tasks
type PickTaskRepository interface {
	Get(ctx context.Context, tenantID, id string) (*PickTask, error)
	Save(ctx context.Context, task *PickTask) error
	List(ctx context.Context, filter PickTaskFilter) ([]*PickTask, error)
}

// WaveFilter selects waves for listing
type WaveFilter struct {
	TenantID    string
	WarehouseID string
	Status      WaveStatus
	Limit       int
	Offset      int
}

// WaveRepository persists waves
type WaveRepository interface {
	Get(ctx context.Context, tenantID, id string) (*Wave, error)
	Save(ctx context.Context, wave *Wave) error
	List(ctx context.Context, filter WaveFilter) ([]*Wave, error)
}

// ProductCatalog resolves product references
type ProductCatalog interface {
	GetProduct(ctx context.Context, tenantID, id string) (*Product, error)
	SaveProduct(ctx context.Context, p *Product) error
}

// LocationDirectory resolves location references
type LocationDirectory interface {
	GetLocation(ctx context.Context, tenantID, id string) (*Location, error)
	SaveLocation(ctx context.Context, l *Location) error
}

// SequenceGenerator hands out per-tenant counters for human readable numbers
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID, name string) (int64, error)
}

// EventSink records domain events in the caller's transaction
type EventSink interface {
	Record(ctx context.Context, events ...DomainEvent) error
}

// Repositories bundles every port a store implementation provides
type Repositories struct {
	Tx          TransactionManager
	Inventory   InventoryRepository
	Inbound     InboundOrderRepository
	Outbound    OutboundOrderRepository
	Allocations AllocationRepository
	PickTasks   PickTaskRepository
	Waves       WaveRepository
	Products    ProductCatalog
	Locations   LocationDirectory
	Sequences   SequenceGenerator
	Events      EventSink
}

// FormatNumber renders a yearly document number such as INB-2024-0001
func FormatNumber(prefix string, at time.Time, seq int64, width int) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, at.Year(), width, seq)
}
