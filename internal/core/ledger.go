package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

// Ledger applies invariant-preserving quantity operations to inventory records.
// Each operation mutates one record (two for transfers) and appends the matching
// movement rows inside a single transaction.
type Ledger struct {
	repos domain.Repositories
	clock domain.Clock
}

// NewLedger creates a new Ledger
func NewLedger(repos domain.Repositories, clock domain.Clock) *Ledger {
	return &Ledger{repos: repos, clock: clock}
}

// ReceiveRequest describes stock arriving at a location
type ReceiveRequest struct {
	Key      domain.RecordKey
	Quantity int64
	UnitCost *decimal.Decimal
	Meta     domain.MovementMeta
}

// ReservationResult is the effect of a successful reserve call
type ReservationResult struct {
	Record     *domain.InventoryRecord
	Quantity   int64
	MovementID string
}

// TransferRequest describes moving available stock between locations
type TransferRequest struct {
	TenantID     string
	RecordID     string
	ToLocationID string
	Quantity     int64
	Type         domain.MovementType
	Meta         domain.MovementMeta
}

// TransferResult holds both sides of a transfer
type TransferResult struct {
	Source      *domain.InventoryRecord
	Destination *domain.InventoryRecord
}

// Receive creates the record for req.Key if absent and adds quantity to it.
func (l *Ledger) Receive(ctx context.Context, req ReceiveRequest) (*domain.InventoryRecord, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: receive quantity must be positive, got %d", domain.ErrInvalidQuantity, req.Quantity)
	}
	if err := req.Key.Validate(); err != nil {
		return nil, err
	}

	var result *domain.InventoryRecord
	err := l.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		rec, _, err := l.receiveOnce(ctx, req)
		result = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// receiveOnce must run inside a transaction. The flag reports an idempotent replay.
func (l *Ledger) receiveOnce(ctx context.Context, req ReceiveRequest) (*domain.InventoryRecord, bool, error) {
	prior, err := l.replay(ctx, req.Key.TenantID, req.Meta.IdempotencyKey, domain.MovementTypeReceive)
	if err != nil {
		return nil, false, err
	}
	if prior != nil {
		return prior, true, nil
	}
	rec, err := l.receive(ctx, req)
	return rec, false, err
}

func (l *Ledger) receive(ctx context.Context, req ReceiveRequest) (*domain.InventoryRecord, error) {
	key := req.Key.Normalized()
	location, err := l.repos.Locations.GetLocation(ctx, key.TenantID, key.LocationID)
	if err != nil {
		return nil, err
	}
	if location.WarehouseID != key.WarehouseID {
		return nil, fmt.Errorf("%w: location %s is not in warehouse %s", domain.ErrInvalidArgument, key.LocationID, key.WarehouseID)
	}
	product, err := l.repos.Products.GetProduct(ctx, key.TenantID, key.ProductID)
	if err != nil {
		return nil, err
	}
	if product.LotTracked && key.LotNumber == "" {
		return nil, fmt.Errorf("%w: product %s requires a lot number", domain.ErrInvalidArgument, product.SKU)
	}
	if product.ExpiryTracked && key.ExpiryDate == nil {
		return nil, fmt.Errorf("%w: product %s requires an expiry date", domain.ErrInvalidArgument, product.SKU)
	}

	now := l.clock.Now()
	rec, err := l.repos.Inventory.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = domain.NewInventoryRecord(uuid.NewString(), key, location, now)
	}
	if err := rec.Receive(req.Quantity, req.UnitCost, now); err != nil {
		return nil, err
	}
	if err := l.repos.Inventory.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	movement := domain.NewMovement(uuid.NewString(), rec, domain.MovementTypeReceive, req.Quantity, req.Quantity, 0, req.Meta, now)
	if err := l.append(ctx, movement); err != nil {
		return nil, err
	}
	return rec, nil
}

// Reserve moves quantity from available to reserved on a record.
func (l *Ledger) Reserve(ctx context.Context, tenantID, recordID string, quantity int64, meta domain.MovementMeta) (*ReservationResult, error) {
	var result *ReservationResult
	err := l.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if meta.IdempotencyKey != "" {
			prior, err := l.repos.Inventory.FindMovementByIdempotencyKey(ctx, tenantID, meta.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				if prior.Type != domain.MovementTypeReserve || prior.RecordID != recordID {
					return fmt.Errorf("%w: idempotency key %q was used for a different operation", domain.ErrInvalidArgument, meta.IdempotencyKey)
				}
				rec, err := l.repos.Inventory.Get(ctx, tenantID, prior.RecordID)
				if err != nil {
					return err
				}
				result = &ReservationResult{Record: rec, Quantity: prior.Quantity, MovementID: prior.ID}
				return nil
			}
		}
		rec, movement, err := l.mutate(ctx, tenantID, recordID, domain.MovementTypeReserve, quantity, 0, quantity, meta,
			func(rec *domain.InventoryRecord) error { return rec.Reserve(quantity, l.clock.Now()) })
		if err != nil {
			return err
		}
		result = &ReservationResult{Record: rec, Quantity: quantity, MovementID: movement.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseReservation returns reserved quantity to available.
func (l *Ledger) ReleaseReservation(ctx context.Context, tenantID, recordID string, quantity int64, meta domain.MovementMeta) (*domain.InventoryRecord, error) {
	return l.run(ctx, tenantID, recordID, domain.MovementTypeRelease, quantity, 0, -quantity, meta,
		func(rec *domain.InventoryRecord) error { return rec.Release(quantity, l.clock.Now()) })
}

// Consume removes reserved stock from on-hand at shipment.
func (l *Ledger) Consume(ctx context.Context, tenantID, recordID string, quantity int64, meta domain.MovementMeta) (*domain.InventoryRecord, error) {
	return l.run(ctx, tenantID, recordID, domain.MovementTypeShip, quantity, -quantity, -quantity, meta,
		func(rec *domain.InventoryRecord) error { return rec.Consume(quantity, l.clock.Now()) })
}

// Adjust applies a manual on-hand correction. movementType is adjustment or count.
func (l *Ledger) Adjust(ctx context.Context, tenantID, recordID string, delta int64, movementType domain.MovementType, meta domain.MovementMeta) (*domain.InventoryRecord, error) {
	if movementType == "" {
		movementType = domain.MovementTypeAdjustment
	}
	if movementType != domain.MovementTypeAdjustment && movementType != domain.MovementTypeCount {
		return nil, fmt.Errorf("%w: %s is not an adjustment type", domain.ErrInvalidArgument, movementType)
	}
	if meta.Reason == "" {
		return nil, fmt.Errorf("%w: adjustment reason is required", domain.ErrInvalidArgument)
	}
	quantity := delta
	if quantity < 0 {
		quantity = -quantity
	}
	return l.run(ctx, tenantID, recordID, movementType, quantity, delta, 0, meta,
		func(rec *domain.InventoryRecord) error { return rec.Adjust(delta, l.clock.Now()) })
}

// SetStatus changes a record's disposition and logs a zero-quantity status movement.
func (l *Ledger) SetStatus(ctx context.Context, tenantID, recordID string, status domain.InventoryStatus, meta domain.MovementMeta) (*domain.InventoryRecord, error) {
	var result *domain.InventoryRecord
	err := l.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		rec, _, err := l.mutate(ctx, tenantID, recordID, domain.MovementTypeStatus, 0, 0, 0, meta,
			func(rec *domain.InventoryRecord) error { return rec.SetStatus(status, l.clock.Now()) })
		result = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transfer moves available stock to another location within the same warehouse.
// The stock keeps its status; a destination record of another status is refused.
func (l *Ledger) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: transfer quantity must be positive, got %d", domain.ErrInvalidQuantity, req.Quantity)
	}
	if req.Type == "" {
		req.Type = domain.MovementTypeTransfer
	}
	var result *TransferResult
	err := l.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if req.Meta.IdempotencyKey != "" {
			prior, err := l.repos.Inventory.FindMovementByIdempotencyKey(ctx, req.TenantID, req.Meta.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				if prior.Type != req.Type || prior.RecordID != req.RecordID {
					return fmt.Errorf("%w: idempotency key %q was used for a different operation", domain.ErrInvalidArgument, req.Meta.IdempotencyKey)
				}
				src, err := l.repos.Inventory.Get(ctx, req.TenantID, prior.RecordID)
				if err != nil {
					return err
				}
				dst, err := l.repos.Inventory.Get(ctx, req.TenantID, prior.CounterpartID)
				if err != nil {
					return err
				}
				result = &TransferResult{Source: src, Destination: dst}
				return nil
			}
		}
		r, err := l.transfer(ctx, req)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Ledger) transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	src, err := l.repos.Inventory.Get(ctx, req.TenantID, req.RecordID)
	if err != nil {
		return nil, err
	}
	if src.LocationID == req.ToLocationID {
		return nil, fmt.Errorf("%w: source and destination location are both %s", domain.ErrInvalidArgument, req.ToLocationID)
	}
	location, err := l.repos.Locations.GetLocation(ctx, req.TenantID, req.ToLocationID)
	if err != nil {
		return nil, err
	}
	if location.WarehouseID != src.WarehouseID {
		return nil, fmt.Errorf("%w: location %s is not in warehouse %s", domain.ErrInvalidArgument, location.ID, src.WarehouseID)
	}

	key := src.Key()
	key.LocationID = req.ToLocationID
	dst, err := l.repos.Inventory.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	// status is not part of the record key, so stock only merges into a record of the same status
	if dst != nil && dst.Status != src.Status {
		return nil, fmt.Errorf("%w: cannot move %s stock of record %s into %s record %s",
			domain.ErrInvalidState, src.Status, src.ID, dst.Status, dst.ID)
	}

	now := l.clock.Now()
	if err := src.Withdraw(req.Quantity, now); err != nil {
		return nil, err
	}
	if dst == nil {
		dst = domain.NewInventoryRecord(uuid.NewString(), key, location, now)
		dst.ReceivedAt = src.ReceivedAt
		dst.Status = src.Status
	}
	unitCost := src.UnitCost
	if err := dst.Receive(req.Quantity, &unitCost, now); err != nil {
		return nil, err
	}

	if err := l.repos.Inventory.Upsert(ctx, src); err != nil {
		return nil, err
	}
	if err := l.repos.Inventory.Upsert(ctx, dst); err != nil {
		return nil, err
	}

	out := domain.NewMovement(uuid.NewString(), src, req.Type, req.Quantity, -req.Quantity, 0, req.Meta, now)
	out.FromLocationID = src.LocationID
	out.ToLocationID = dst.LocationID
	out.CounterpartID = dst.ID

	inMeta := req.Meta
	inMeta.IdempotencyKey = ""
	in := domain.NewMovement(uuid.NewString(), dst, req.Type, req.Quantity, req.Quantity, 0, inMeta, now)
	in.FromLocationID = src.LocationID
	in.CounterpartID = src.ID

	if err := l.append(ctx, out); err != nil {
		return nil, err
	}
	if err := l.append(ctx, in); err != nil {
		return nil, err
	}
	return &TransferResult{Source: src, Destination: dst}, nil
}

// run executes a single-record mutation with idempotent replay in its own transaction
func (l *Ledger) run(ctx context.Context, tenantID, recordID string, movementType domain.MovementType, quantity, onHandDelta, reservedDelta int64,
	meta domain.MovementMeta, apply func(*domain.InventoryRecord) error) (*domain.InventoryRecord, error) {
	var result *domain.InventoryRecord
	err := l.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if prior, err := l.replay(ctx, tenantID, meta.IdempotencyKey, movementType); err != nil || prior != nil {
			if err == nil && prior.ID != recordID {
				return fmt.Errorf("%w: idempotency key %q was used for record %s", domain.ErrInvalidArgument, meta.IdempotencyKey, prior.ID)
			}
			result = prior
			return err
		}
		rec, _, err := l.mutate(ctx, tenantID, recordID, movementType, quantity, onHandDelta, reservedDelta, meta, apply)
		result = rec
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (l *Ledger) mutate(ctx context.Context, tenantID, recordID string, movementType domain.MovementType, quantity, onHandDelta, reservedDelta int64,
	meta domain.MovementMeta, apply func(*domain.InventoryRecord) error) (*domain.InventoryRecord, *domain.InventoryMovement, error) {
	rec, err := l.repos.Inventory.Get(ctx, tenantID, recordID)
	if err != nil {
		return nil, nil, err
	}
	if err := apply(rec); err != nil {
		return nil, nil, err
	}
	if err := l.repos.Inventory.Upsert(ctx, rec); err != nil {
		return nil, nil, err
	}
	movement := domain.NewMovement(uuid.NewString(), rec, movementType, quantity, onHandDelta, reservedDelta, meta, l.clock.Now())
	if err := l.append(ctx, movement); err != nil {
		return nil, nil, err
	}
	return rec, movement, nil
}

// replay returns the record touched by an earlier call carrying the same idempotency key
func (l *Ledger) replay(ctx context.Context, tenantID, key string, movementType domain.MovementType) (*domain.InventoryRecord, error) {
	prior, err := l.priorMovement(ctx, tenantID, key, movementType)
	if err != nil || prior == nil {
		return nil, err
	}
	return l.repos.Inventory.Get(ctx, tenantID, prior.RecordID)
}

func (l *Ledger) priorMovement(ctx context.Context, tenantID, key string, movementType domain.MovementType) (*domain.InventoryMovement, error) {
	if key == "" {
		return nil, nil
	}
	prior, err := l.repos.Inventory.FindMovementByIdempotencyKey(ctx, tenantID, key)
	if err != nil || prior == nil {
		return nil, err
	}
	if prior.Type != movementType {
		return nil, fmt.Errorf("%w: idempotency key %q was used for a %s movement", domain.ErrInvalidArgument, key, prior.Type)
	}
	return prior, nil
}

func (l *Ledger) append(ctx context.Context, m *domain.InventoryMovement) error {
	if err := l.repos.Inventory.AppendMovement(ctx, m); err != nil {
		return err
	}
	return l.repos.Events.Record(ctx, &domain.MovementRecordedEvent{Movement: *m})
}

// StockSummary aggregates a product's records
type StockSummary struct {
	ProductID   string          `json:"productId"`
	WarehouseID string          `json:"warehouseId,omitempty"`
	Records     int             `json:"records"`
	OnHand      int64           `json:"onHand"`
	Reserved    int64           `json:"reserved"`
	Available   int64           `json:"available"`
	Allocatable int64           `json:"allocatable"`
	Valuation   decimal.Decimal `json:"valuation"`
}

// Get returns a record by id
func (l *Ledger) Get(ctx context.Context, tenantID, recordID string) (*domain.InventoryRecord, error) {
	return l.repos.Inventory.Get(ctx, tenantID, recordID)
}

// List returns records matching filter
func (l *Ledger) List(ctx context.Context, filter domain.InventoryFilter) ([]*domain.InventoryRecord, error) {
	return l.repos.Inventory.List(ctx, filter)
}

// ListMovements returns a record's movement history, oldest first
func (l *Ledger) ListMovements(ctx context.Context, tenantID, recordID string) ([]*domain.InventoryMovement, error) {
	if _, err := l.repos.Inventory.Get(ctx, tenantID, recordID); err != nil {
		return nil, err
	}
	return l.repos.Inventory.ListMovements(ctx, tenantID, recordID)
}

// StockSummary sums quantities and valuation over every record of a product.
// Allocatable counts only records in available status.
func (l *Ledger) StockSummary(ctx context.Context, tenantID, warehouseID, productID string) (*StockSummary, error) {
	records, err := l.repos.Inventory.List(ctx, domain.InventoryFilter{TenantID: tenantID, WarehouseID: warehouseID, ProductID: productID})
	if err != nil {
		return nil, err
	}
	summary := &StockSummary{ProductID: productID, WarehouseID: warehouseID, Valuation: decimal.Zero}
	for _, rec := range records {
		summary.Records++
		summary.OnHand += rec.OnHand
		summary.Reserved += rec.Reserved
		summary.Available += rec.Available
		if rec.Status == domain.InventoryStatusAvailable {
			summary.Allocatable += rec.Available
		}
		summary.Valuation = summary.Valuation.Add(rec.Valuation())
	}
	return summary, nil
}
