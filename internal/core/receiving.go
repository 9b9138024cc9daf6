package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

// Receiving runs the inbound order state machine and books received stock
// into the ledger.
type Receiving struct {
	book   *orderBook
	ledger *Ledger
}

// NewReceiving creates a new Receiving component
func NewReceiving(repos domain.Repositories, clock domain.Clock, ledger *Ledger) *Receiving {
	return &Receiving{book: &orderBook{repos: repos, clock: clock}, ledger: ledger}
}

// NewInboundOrder is the input of CreateOrder
type NewInboundOrder struct {
	TenantID            string
	WarehouseID         string
	SupplierName        string
	ReferenceNumber     string
	ReceivingLocationID string
	Status              domain.InboundStatus
	ExpectedAt          *time.Time
	Lines               []domain.InboundOrderLine
	Metadata            map[string]any
}

// ReceiptInput records stock arriving against an inbound line. Empty location,
// lot and expiry fall back to the order's receiving location and the line's values.
type ReceiptInput struct {
	TenantID       string
	OrderID        string
	LineID         string
	Quantity       int64
	LocationID     string
	LotNumber      string
	ExpiryDate     *time.Time
	UnitCost       *decimal.Decimal
	ReceivedBy     string
	IdempotencyKey string
}

// PutawayMove moves received stock from the dock to its storage location
type PutawayMove struct {
	RecordID     string
	ToLocationID string
	Quantity     int64
}

// ReceiptResult reports the effect of RecordReceipt
type ReceiptResult struct {
	Order       *domain.InboundOrder    `json:"order"`
	Record      *domain.InventoryRecord `json:"record"`
	OverReceipt bool                    `json:"overReceipt"`
	Replayed    bool                    `json:"replayed"`
}

// CreateOrder places an inbound order in draft or pending state
func (r *Receiving) CreateOrder(ctx context.Context, in NewInboundOrder) (*domain.InboundOrder, error) {
	if in.TenantID == "" || in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: tenant and warehouse are required", domain.ErrInvalidArgument)
	}
	repos := r.book.repos
	var result *domain.InboundOrder
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if in.ReceivingLocationID != "" {
			location, err := repos.Locations.GetLocation(ctx, in.TenantID, in.ReceivingLocationID)
			if err != nil {
				return err
			}
			if location.WarehouseID != in.WarehouseID {
				return fmt.Errorf("%w: location %s is not in warehouse %s", domain.ErrInvalidArgument, location.ID, in.WarehouseID)
			}
		}
		number, err := r.book.nextNumber(ctx, in.TenantID, inboundPrefix, 4)
		if err != nil {
			return err
		}
		lines := make([]domain.InboundOrderLine, len(in.Lines))
		copy(lines, in.Lines)
		for i := range lines {
			if lines[i].ID == "" {
				lines[i].ID = uuid.NewString()
			}
		}
		order, err := domain.NewInboundOrder(uuid.NewString(), in.TenantID, in.WarehouseID, number, in.ReceivingLocationID, lines, in.Status, r.book.clock.Now())
		if err != nil {
			return err
		}
		order.SupplierName = in.SupplierName
		order.ReferenceNumber = in.ReferenceNumber
		order.ExpectedAt = in.ExpectedAt
		order.Metadata = in.Metadata
		if err := r.book.saveInbound(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns an inbound order by id
func (r *Receiving) Get(ctx context.Context, tenantID, orderID string) (*domain.InboundOrder, error) {
	return r.book.repos.Inbound.Get(ctx, tenantID, orderID)
}

// List returns inbound orders matching filter
func (r *Receiving) List(ctx context.Context, filter domain.InboundFilter) ([]*domain.InboundOrder, error) {
	return r.book.repos.Inbound.List(ctx, filter)
}

// Transition applies an operator status change such as pending → receiving
func (r *Receiving) Transition(ctx context.Context, tenantID, orderID string, target domain.InboundStatus) (*domain.InboundOrder, error) {
	return r.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.InboundOrder) error {
		return order.Transition(target, r.book.clock.Now())
	})
}

// RecordReceipt books a receipt into the ledger and accumulates it on the line.
// A repeated idempotency key returns the current order without counting again;
// a key already spent on another line, order or ledger receive is rejected.
func (r *Receiving) RecordReceipt(ctx context.Context, in ReceiptInput) (*ReceiptResult, error) {
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: receipt quantity must be positive, got %d", domain.ErrInvalidQuantity, in.Quantity)
	}
	repos := r.book.repos
	var result *ReceiptResult
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := repos.Inbound.Get(ctx, in.TenantID, in.OrderID)
		if err != nil {
			return err
		}
		line, err := order.Line(in.LineID)
		if err != nil {
			return err
		}

		prior, err := r.ledger.priorMovement(ctx, in.TenantID, in.IdempotencyKey, domain.MovementTypeReceive)
		if err != nil {
			return err
		}
		if prior != nil {
			if prior.ReferenceID != line.ID || !line.HasReceipt(in.IdempotencyKey) {
				return fmt.Errorf("%w: idempotency key %q was used for another receipt", domain.ErrInvalidArgument, in.IdempotencyKey)
			}
			rec, err := repos.Inventory.Get(ctx, in.TenantID, prior.RecordID)
			if err != nil {
				return err
			}
			result = &ReceiptResult{Order: order, Record: rec, Replayed: true}
			return nil
		}
		if !order.CanRecordReceipt() {
			return fmt.Errorf("%w: inbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
		}

		locationID := in.LocationID
		if locationID == "" {
			locationID = order.ReceivingLocationID
		}
		if locationID == "" {
			return fmt.Errorf("%w: receipt location is required", domain.ErrInvalidArgument)
		}
		lot := in.LotNumber
		if lot == "" {
			lot = line.LotNumber
		}
		expiry := in.ExpiryDate
		if expiry == nil {
			expiry = line.ExpiryDate
		}
		unitCost := in.UnitCost
		if unitCost == nil && !line.UnitCost.IsZero() {
			cost := line.UnitCost
			unitCost = &cost
		}

		req := ReceiveRequest{
			Key: domain.RecordKey{
				TenantID:    order.TenantID,
				WarehouseID: order.WarehouseID,
				LocationID:  locationID,
				ProductID:   line.ProductID,
				LotNumber:   lot,
				ExpiryDate:  expiry,
			},
			Quantity: in.Quantity,
			UnitCost: unitCost,
			Meta: domain.MovementMeta{
				Actor:          in.ReceivedBy,
				Reason:         "inbound receipt",
				ReferenceType:  "inbound_order_line",
				ReferenceID:    line.ID,
				IdempotencyKey: in.IdempotencyKey,
			},
		}
		if err := req.Key.Validate(); err != nil {
			return err
		}
		rec, err := r.ledger.receive(ctx, req)
		if err != nil {
			return err
		}

		now := r.book.clock.Now()
		over, err := order.RecordReceipt(line.ID, domain.Receipt{
			Quantity:       in.Quantity,
			LocationID:     locationID,
			LotNumber:      lot,
			ExpiryDate:     domain.NormalizeDate(expiry),
			RecordID:       rec.ID,
			ReceivedBy:     in.ReceivedBy,
			IdempotencyKey: in.IdempotencyKey,
			ReceivedAt:     now,
		}, now)
		if err != nil {
			return err
		}
		if err := r.book.saveInbound(ctx, order); err != nil {
			return err
		}
		result = &ReceiptResult{Order: order, Record: rec, OverReceipt: over}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Putaway moves received stock to storage and advances putaway_pending → putaway.
// All moves commit together or not at all.
func (r *Receiving) Putaway(ctx context.Context, tenantID, orderID, actor string, moves []PutawayMove) (*domain.InboundOrder, error) {
	if len(moves) == 0 {
		return nil, fmt.Errorf("%w: putaway needs at least one move", domain.ErrInvalidArgument)
	}
	return r.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.InboundOrder) error {
		if err := order.StartPutaway(r.book.clock.Now()); err != nil {
			return err
		}
		for _, mv := range moves {
			if mv.Quantity <= 0 {
				return fmt.Errorf("%w: putaway quantity must be positive, got %d", domain.ErrInvalidQuantity, mv.Quantity)
			}
			rec, err := r.book.repos.Inventory.Get(ctx, tenantID, mv.RecordID)
			if err != nil {
				return err
			}
			if rec.WarehouseID != order.WarehouseID {
				return fmt.Errorf("%w: record %s is not in warehouse %s", domain.ErrInvalidArgument, rec.ID, order.WarehouseID)
			}
			_, err = r.ledger.transfer(ctx, TransferRequest{
				TenantID:     tenantID,
				RecordID:     mv.RecordID,
				ToLocationID: mv.ToLocationID,
				Quantity:     mv.Quantity,
				Type:         domain.MovementTypePutaway,
				Meta: domain.MovementMeta{
					Actor:         actor,
					Reason:        "putaway",
					ReferenceType: "inbound_order",
					ReferenceID:   order.ID,
				},
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Complete finishes a putaway order
func (r *Receiving) Complete(ctx context.Context, tenantID, orderID string) (*domain.InboundOrder, error) {
	return r.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.InboundOrder) error {
		return order.Complete(r.book.clock.Now())
	})
}

// Hold suspends an order
func (r *Receiving) Hold(ctx context.Context, tenantID, orderID string) (*domain.InboundOrder, error) {
	return r.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.InboundOrder) error {
		return order.Hold(r.book.clock.Now())
	})
}

// Resume returns a held order to where it was
func (r *Receiving) Resume(ctx context.Context, tenantID, orderID string) (*domain.InboundOrder, error) {
	return r.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.InboundOrder) error {
		return order.Resume(r.book.clock.Now())
	})
}

// Cancel cancels an order. Stock already received stays in the ledger.
func (r *Receiving) Cancel(ctx context.Context, tenantID, orderID, reason string) (*domain.InboundOrder, error) {
	return r.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.InboundOrder) error {
		return order.Cancel(reason, r.book.clock.Now())
	})
}

func (r *Receiving) update(ctx context.Context, tenantID, orderID string, fn func(ctx context.Context, order *domain.InboundOrder) error) (*domain.InboundOrder, error) {
	var result *domain.InboundOrder
	err := r.book.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := r.book.repos.Inbound.Get(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, order); err != nil {
			return err
		}
		if err := r.book.saveInbound(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
