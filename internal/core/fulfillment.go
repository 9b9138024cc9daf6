package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

// Fulfillment owns the outbound order lifecycle outside of allocation and picking:
// creation, release to picking, packing, shipping, delivery and cancellation.
type Fulfillment struct {
	book   *orderBook
	ledger *Ledger
}

// NewFulfillment creates a new Fulfillment component
func NewFulfillment(repos domain.Repositories, clock domain.Clock, ledger *Ledger) *Fulfillment {
	return &Fulfillment{book: &orderBook{repos: repos, clock: clock}, ledger: ledger}
}

// NewOutboundOrder is the input of CreateOrder
type NewOutboundOrder struct {
	TenantID     string
	WarehouseID  string
	CustomerName string
	Priority     domain.Priority
	Lines        []domain.OutboundOrderLine
	Metadata     map[string]any
}

// ShipDetails is the input of Ship
type ShipDetails struct {
	Carrier        string
	TrackingNumber string
	Actor          string
}

// CreateOrder places a pending outbound order
func (f *Fulfillment) CreateOrder(ctx context.Context, in NewOutboundOrder) (*domain.OutboundOrder, error) {
	if in.TenantID == "" || in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: tenant and warehouse are required", domain.ErrInvalidArgument)
	}
	var result *domain.OutboundOrder
	err := f.book.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		number, err := f.book.nextNumber(ctx, in.TenantID, outboundPrefix, 4)
		if err != nil {
			return err
		}
		lines := make([]domain.OutboundOrderLine, len(in.Lines))
		copy(lines, in.Lines)
		for i := range lines {
			if lines[i].ID == "" {
				lines[i].ID = uuid.NewString()
			}
		}
		order, err := domain.NewOutboundOrder(uuid.NewString(), in.TenantID, in.WarehouseID, number, in.Priority, lines, f.book.clock.Now())
		if err != nil {
			return err
		}
		order.CustomerName = in.CustomerName
		order.Metadata = in.Metadata
		if err := f.book.saveOrder(ctx, order); err != nil {
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

// Get returns an order by id
func (f *Fulfillment) Get(ctx context.Context, tenantID, orderID string) (*domain.OutboundOrder, error) {
	return f.book.repos.Outbound.Get(ctx, tenantID, orderID)
}

// List returns orders matching filter
func (f *Fulfillment) List(ctx context.Context, filter domain.OutboundFilter) ([]*domain.OutboundOrder, error) {
	return f.book.repos.Outbound.List(ctx, filter)
}

// ReleaseForPicking creates one pending pick task per allocation that has none yet.
func (f *Fulfillment) ReleaseForPicking(ctx context.Context, tenantID, orderID string) ([]*domain.PickTask, error) {
	repos := f.book.repos
	var created []*domain.PickTask
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		created = nil
		order, err := repos.Outbound.Get(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case domain.OutboundStatusAllocated, domain.OutboundStatusBackordered, domain.OutboundStatusPicking:
		default:
			return fmt.Errorf("%w: outbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
		}
		allocs, err := repos.Allocations.FindByOrder(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		for _, alloc := range allocs {
			if alloc.Status != domain.AllocationStatusAllocated || alloc.PickTaskID != "" {
				continue
			}
			number, err := f.book.nextNumber(ctx, tenantID, taskPrefix, 5)
			if err != nil {
				return err
			}
			now := f.book.clock.Now()
			task := domain.NewPickTask(uuid.NewString(), number, order, alloc, now)
			if err := alloc.AttachTask(task.ID, now); err != nil {
				return err
			}
			if err := repos.Allocations.Save(ctx, alloc); err != nil {
				return err
			}
			if err := f.book.saveTask(ctx, task); err != nil {
				return err
			}
			created = append(created, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Pack records the external packing step on a picked order
func (f *Fulfillment) Pack(ctx context.Context, tenantID, orderID string) (*domain.OutboundOrder, error) {
	return f.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.OutboundOrder) error {
		return order.Pack(f.book.clock.Now())
	})
}

// Ship consumes the picked quantity of every allocation, releases whatever a
// short pick left reserved, and sets each line's shipped quantity once.
func (f *Fulfillment) Ship(ctx context.Context, tenantID, orderID string, details ShipDetails) (*domain.OutboundOrder, error) {
	return f.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.OutboundOrder) error {
		if order.Status != domain.OutboundStatusPacked {
			return fmt.Errorf("%w: outbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
		}
		allocs, err := f.book.repos.Allocations.FindByOrder(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		for _, alloc := range allocs {
			if alloc.Status != domain.AllocationStatusPicked {
				continue
			}
			meta := domain.MovementMeta{
				Actor:         details.Actor,
				Reason:        "shipment",
				ReferenceType: "allocation",
				ReferenceID:   alloc.ID,
			}
			if alloc.PickedQuantity > 0 {
				if _, err := f.ledger.Consume(ctx, tenantID, alloc.RecordID, alloc.PickedQuantity, meta); err != nil {
					return err
				}
			}
			if short := alloc.Quantity - alloc.PickedQuantity; short > 0 {
				meta.Reason = "short pick"
				if _, err := f.ledger.ReleaseReservation(ctx, tenantID, alloc.RecordID, short, meta); err != nil {
					return err
				}
			}
		}
		return order.Ship(details.Carrier, details.TrackingNumber, f.book.clock.Now())
	})
}

// Deliver marks a shipped order as delivered
func (f *Fulfillment) Deliver(ctx context.Context, tenantID, orderID string) (*domain.OutboundOrder, error) {
	return f.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.OutboundOrder) error {
		return order.Deliver(f.book.clock.Now())
	})
}

// Cancel cancels an order before shipment: open pick tasks are cancelled and
// every reservation held by its allocations is released. Cancelling twice is a no-op.
func (f *Fulfillment) Cancel(ctx context.Context, tenantID, orderID, reason, actor string) (*domain.OutboundOrder, error) {
	repos := f.book.repos
	return f.update(ctx, tenantID, orderID, func(ctx context.Context, order *domain.OutboundOrder) error {
		changed, err := order.Cancel(reason, f.book.clock.Now())
		if err != nil || !changed {
			return err
		}
		tasks, err := repos.PickTasks.List(ctx, domain.PickTaskFilter{TenantID: tenantID, OrderID: orderID})
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if task.Status.IsFinal() {
				continue
			}
			if err := task.Cancel("order cancelled", f.book.clock.Now()); err != nil {
				return err
			}
			if err := f.book.saveTask(ctx, task); err != nil {
				return err
			}
		}
		allocs, err := repos.Allocations.FindByOrder(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		meta := domain.MovementMeta{Actor: actor, Reason: "order cancelled: " + reason}
		for _, alloc := range allocs {
			if err := f.book.releaseAllocation(ctx, f.ledger, order, alloc, meta); err != nil {
				return err
			}
		}
		return nil
	})
}

func (f *Fulfillment) update(ctx context.Context, tenantID, orderID string, fn func(ctx context.Context, order *domain.OutboundOrder) error) (*domain.OutboundOrder, error) {
	var result *domain.OutboundOrder
	err := f.book.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := f.book.repos.Outbound.Get(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, order); err != nil {
			return err
		}
		if err := f.book.saveOrder(ctx, order); err != nil {
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
