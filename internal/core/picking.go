package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

// Picking drives the pick task lifecycle and feeds completions back into
// allocations and outbound lines.
type Picking struct {
	book   *orderBook
	ledger *Ledger
}

// NewPicking creates a new Picking component
func NewPicking(repos domain.Repositories, clock domain.Clock, ledger *Ledger) *Picking {
	return &Picking{book: &orderBook{repos: repos, clock: clock}, ledger: ledger}
}

// TaskStats summarises the task board
type TaskStats struct {
	Total    int                           `json:"total"`
	ByStatus map[domain.PickTaskStatus]int `json:"byStatus"`
	Urgent   int                           `json:"urgent"`
	High     int                           `json:"high"`
	Short    int                           `json:"short"`
}

// Get returns a task by id
func (p *Picking) Get(ctx context.Context, tenantID, taskID string) (*domain.PickTask, error) {
	return p.book.repos.PickTasks.Get(ctx, tenantID, taskID)
}

// List returns tasks matching filter
func (p *Picking) List(ctx context.Context, filter domain.PickTaskFilter) ([]*domain.PickTask, error) {
	return p.book.repos.PickTasks.List(ctx, filter)
}

// MyTasks returns the open work of a user, most urgent first, then in walking order.
func (p *Picking) MyTasks(ctx context.Context, tenantID, userID string) ([]*domain.PickTask, error) {
	tasks, err := p.book.repos.PickTasks.List(ctx, domain.PickTaskFilter{
		TenantID:   tenantID,
		AssignedTo: userID,
		Statuses:   []domain.PickTaskStatus{domain.PickTaskStatusAssigned, domain.PickTaskStatusInProgress},
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		return tasks[i].PickSequence < tasks[j].PickSequence
	})
	return tasks, nil
}

// Stats counts tasks by status and priority
func (p *Picking) Stats(ctx context.Context, tenantID, warehouseID string) (*TaskStats, error) {
	tasks, err := p.book.repos.PickTasks.List(ctx, domain.PickTaskFilter{TenantID: tenantID, WarehouseID: warehouseID})
	if err != nil {
		return nil, err
	}
	stats := &TaskStats{ByStatus: make(map[domain.PickTaskStatus]int)}
	for _, t := range tasks {
		stats.Total++
		stats.ByStatus[t.Status]++
		if t.Status.IsFinal() {
			if t.IsShort() {
				stats.Short++
			}
			continue
		}
		switch t.Priority {
		case domain.PriorityUrgent:
			stats.Urgent++
		case domain.PriorityHigh:
			stats.High++
		}
	}
	return stats, nil
}

// Assign gives a pending task to a user
func (p *Picking) Assign(ctx context.Context, tenantID, taskID, userID string) (*domain.PickTask, error) {
	return p.update(ctx, tenantID, taskID, func(ctx context.Context, task *domain.PickTask) error {
		return task.Assign(userID, p.book.clock.Now())
	})
}

// Start begins an assigned task and marks its allocation as picking
func (p *Picking) Start(ctx context.Context, tenantID, taskID string) (*domain.PickTask, error) {
	return p.update(ctx, tenantID, taskID, func(ctx context.Context, task *domain.PickTask) error {
		now := p.book.clock.Now()
		if err := task.Start(now); err != nil {
			return err
		}
		alloc, order, err := p.load(ctx, task)
		if err != nil {
			return err
		}
		if err := alloc.StartPicking(now); err != nil {
			return err
		}
		if err := p.book.repos.Allocations.Save(ctx, alloc); err != nil {
			return err
		}
		return p.book.saveOrder(ctx, order)
	})
}

// Complete finishes an in-progress task. The stock stays reserved until the
// order ships; a short pick is recorded without creating replacement work.
func (p *Picking) Complete(ctx context.Context, tenantID, taskID string, pickedQuantity int64) (*domain.PickTask, error) {
	return p.update(ctx, tenantID, taskID, func(ctx context.Context, task *domain.PickTask) error {
		now := p.book.clock.Now()
		if err := task.Complete(pickedQuantity, now); err != nil {
			return err
		}
		alloc, order, err := p.load(ctx, task)
		if err != nil {
			return err
		}
		if err := alloc.MarkPicked(pickedQuantity, now); err != nil {
			return err
		}
		if err := p.book.repos.Allocations.Save(ctx, alloc); err != nil {
			return err
		}
		if err := order.AddPicked(task.LineID, pickedQuantity, now); err != nil {
			return err
		}
		return p.book.saveOrder(ctx, order)
	})
}

// Cancel stops a task and releases its allocation's reservation
func (p *Picking) Cancel(ctx context.Context, tenantID, taskID, reason, actor string) (*domain.PickTask, error) {
	return p.update(ctx, tenantID, taskID, func(ctx context.Context, task *domain.PickTask) error {
		if err := task.Cancel(reason, p.book.clock.Now()); err != nil {
			return err
		}
		alloc, order, err := p.load(ctx, task)
		if err != nil {
			return err
		}
		meta := domain.MovementMeta{Actor: actor, Reason: "pick task cancelled: " + reason}
		if err := p.book.releaseAllocation(ctx, p.ledger, order, alloc, meta); err != nil {
			return err
		}
		return p.book.saveOrder(ctx, order)
	})
}

func (p *Picking) update(ctx context.Context, tenantID, taskID string, fn func(ctx context.Context, task *domain.PickTask) error) (*domain.PickTask, error) {
	var result *domain.PickTask
	err := p.book.repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		task, err := p.book.repos.PickTasks.Get(ctx, tenantID, taskID)
		if err != nil {
			return err
		}
		if err := fn(ctx, task); err != nil {
			return err
		}
		if err := p.book.saveTask(ctx, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Picking) load(ctx context.Context, task *domain.PickTask) (*domain.Allocation, *domain.OutboundOrder, error) {
	alloc, err := p.book.repos.Allocations.Get(ctx, task.TenantID, task.AllocationID)
	if err != nil {
		return nil, nil, err
	}
	order, err := p.book.repos.Outbound.Get(ctx, task.TenantID, task.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: outbound order %s is %s", domain.ErrInvalidState, order.ID, order.Status)
	}
	return alloc, order, nil
}
