package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

// Allocator reserves stock for outbound order lines, oldest stock first.
// Every reservation is its own transaction: running out of stock partway
// leaves earlier reservations in place and the line backordered.
type Allocator struct {
	book   *orderBook
	ledger *Ledger
}

// NewAllocator creates a new Allocator
func NewAllocator(repos domain.Repositories, clock domain.Clock, ledger *Ledger) *Allocator {
	return &Allocator{book: &orderBook{repos: repos, clock: clock}, ledger: ledger}
}

// LineAllocation reports what one allocate pass achieved for a line
type LineAllocation struct {
	LineID      string               `json:"lineId"`
	ProductID   string               `json:"productId"`
	Requested   int64                `json:"requested"`
	Allocated   int64                `json:"allocated"`
	Allocations []*domain.Allocation `json:"allocations"`
}

// Shortfall is the quantity the pass could not cover
func (l LineAllocation) Shortfall() int64 {
	return l.Requested - l.Allocated
}

// AllocationOutcome is the result of an allocate call
type AllocationOutcome struct {
	Order *domain.OutboundOrder `json:"order"`
	Lines []LineAllocation      `json:"lines"`
}

// Allocations flattens the allocations created by the pass
func (o *AllocationOutcome) Allocations() []*domain.Allocation {
	var all []*domain.Allocation
	for _, l := range o.Lines {
		all = append(all, l.Allocations...)
	}
	return all
}

// Shortfall sums the uncovered quantity over all lines
func (o *AllocationOutcome) Shortfall() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.Shortfall()
	}
	return total
}

// Allocate allocates every line of an order
func (a *Allocator) Allocate(ctx context.Context, tenantID, orderID, actor string) (*AllocationOutcome, error) {
	return a.allocate(ctx, tenantID, orderID, nil, actor)
}

// AllocateLine allocates a single order line
func (a *Allocator) AllocateLine(ctx context.Context, tenantID, orderID, lineID, actor string) (*AllocationOutcome, error) {
	return a.allocate(ctx, tenantID, orderID, []string{lineID}, actor)
}

func (a *Allocator) allocate(ctx context.Context, tenantID, orderID string, lineIDs []string, actor string) (*AllocationOutcome, error) {
	repos := a.book.repos
	order, err := repos.Outbound.Get(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	outcome := &AllocationOutcome{Order: order}
	if order.Status == domain.OutboundStatusAllocated {
		return outcome, nil
	}
	if !order.CanAllocate() {
		return nil, fmt.Errorf("%w: outbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
	}
	if lineIDs == nil {
		for _, l := range order.Lines {
			lineIDs = append(lineIDs, l.ID)
		}
	}

	for _, lineID := range lineIDs {
		line, err := order.Line(lineID)
		if err != nil {
			return nil, err
		}
		result := LineAllocation{LineID: line.ID, ProductID: line.ProductID, Requested: line.Unallocated()}
		if result.Requested > 0 {
			candidates, err := repos.Inventory.FindAvailableForProduct(ctx, tenantID, line.ProductID,
				domain.LocationScope{WarehouseID: order.WarehouseID})
			if err != nil {
				return outcome, err
			}
			for _, candidate := range candidates {
				alloc, err := a.reserveStep(ctx, tenantID, orderID, lineID, candidate.ID, actor)
				if err != nil {
					outcome.Lines = append(outcome.Lines, result)
					return outcome, err
				}
				if alloc == nil {
					continue
				}
				result.Allocated += alloc.Quantity
				result.Allocations = append(result.Allocations, alloc)
				if result.Allocated >= result.Requested {
					break
				}
			}
		}
		outcome.Lines = append(outcome.Lines, result)
	}

	order, err = repos.Outbound.Get(ctx, tenantID, orderID)
	if err != nil {
		return outcome, err
	}
	outcome.Order = order
	return outcome, nil
}

// reserveStep reserves what the line still needs from one record. It returns
// nil when the record or the line has nothing left to give or take.
func (a *Allocator) reserveStep(ctx context.Context, tenantID, orderID, lineID, recordID, actor string) (*domain.Allocation, error) {
	repos := a.book.repos
	var alloc *domain.Allocation
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		order, err := repos.Outbound.Get(ctx, tenantID, orderID)
		if err != nil {
			return err
		}
		if !order.CanAllocate() {
			if order.Status == domain.OutboundStatusAllocated {
				return nil
			}
			return fmt.Errorf("%w: outbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
		}
		line, err := order.Line(lineID)
		if err != nil {
			return err
		}
		need := line.Unallocated()
		if need <= 0 {
			return nil
		}
		rec, err := repos.Inventory.Get(ctx, tenantID, recordID)
		if err != nil {
			return err
		}
		if rec.Status != domain.InventoryStatusAvailable || rec.Available <= 0 {
			return nil
		}
		take := min(need, rec.Available)

		res, err := a.ledger.Reserve(ctx, tenantID, rec.ID, take, domain.MovementMeta{
			Actor:         actor,
			Reason:        "allocation",
			ReferenceType: "outbound_order_line",
			ReferenceID:   lineID,
		})
		if err != nil {
			return err
		}

		now := a.book.clock.Now()
		created := domain.NewAllocation(uuid.NewString(), orderID, lineID, res.Record, take, now)
		if err := repos.Allocations.Save(ctx, created); err != nil {
			return err
		}
		if err := order.AddAllocated(lineID, take, now); err != nil {
			return err
		}
		if err := a.book.saveOrder(ctx, order); err != nil {
			return err
		}
		alloc = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alloc, nil
}

// CancelAllocation releases an allocation's reservation and cancels any open
// pick task on it. Cancelling twice is a no-op.
func (a *Allocator) CancelAllocation(ctx context.Context, tenantID, allocationID, actor string) (*domain.Allocation, error) {
	repos := a.book.repos
	var result *domain.Allocation
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		alloc, err := repos.Allocations.Get(ctx, tenantID, allocationID)
		if err != nil {
			return err
		}
		result = alloc
		if alloc.Status == domain.AllocationStatusCancelled {
			return nil
		}
		order, err := repos.Outbound.Get(ctx, tenantID, alloc.OrderID)
		if err != nil {
			return err
		}
		if order.Status.IsTerminal() {
			return fmt.Errorf("%w: outbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
		}
		if alloc.PickTaskID != "" {
			task, err := repos.PickTasks.Get(ctx, tenantID, alloc.PickTaskID)
			if err != nil {
				return err
			}
			if !task.Status.IsFinal() {
				if err := task.Cancel("allocation cancelled", a.book.clock.Now()); err != nil {
					return err
				}
				if err := a.book.saveTask(ctx, task); err != nil {
					return err
				}
			}
		}
		if err := a.book.releaseAllocation(ctx, a.ledger, order, alloc, domain.MovementMeta{Actor: actor, Reason: "allocation cancelled"}); err != nil {
			return err
		}
		return a.book.saveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListAllocations returns every allocation of an order
func (a *Allocator) ListAllocations(ctx context.Context, tenantID, orderID string) ([]*domain.Allocation, error) {
	if _, err := a.book.repos.Outbound.Get(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return a.book.repos.Allocations.FindByOrder(ctx, tenantID, orderID)
}
