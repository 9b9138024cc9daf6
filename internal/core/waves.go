package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

// Waves groups outbound orders and releases them to picking as a batch
type Waves struct {
	book        *orderBook
	allocator   *Allocator
	fulfillment *Fulfillment
}

// NewWaves creates a new Waves coordinator
func NewWaves(repos domain.Repositories, clock domain.Clock, allocator *Allocator, fulfillment *Fulfillment) *Waves {
	return &Waves{book: &orderBook{repos: repos, clock: clock}, allocator: allocator, fulfillment: fulfillment}
}

// NewWave is the input of CreateWave
type NewWave struct {
	TenantID    string
	WarehouseID string
	Name        string
	OrderIDs    []string
	PlannedAt   *time.Time
}

// WaveRelease reports what releasing a wave did per member order
type WaveRelease struct {
	Wave        *domain.Wave                 `json:"wave"`
	Allocations map[string]*AllocationOutcome `json:"allocations"`
	Tasks       []*domain.PickTask           `json:"tasks"`
	Skipped     []string                     `json:"skipped,omitempty"`
}

// CreateWave groups pending or allocated orders of one warehouse into a draft wave
func (w *Waves) CreateWave(ctx context.Context, in NewWave) (*domain.Wave, error) {
	if in.TenantID == "" || in.WarehouseID == "" {
		return nil, fmt.Errorf("%w: tenant and warehouse are required", domain.ErrInvalidArgument)
	}
	repos := w.book.repos
	var result *domain.Wave
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		orders := make([]*domain.OutboundOrder, 0, len(in.OrderIDs))
		for _, id := range in.OrderIDs {
			order, err := repos.Outbound.Get(ctx, in.TenantID, id)
			if err != nil {
				return err
			}
			orders = append(orders, order)
		}
		number, err := w.book.nextNumber(ctx, in.TenantID, wavePrefix, 3)
		if err != nil {
			return err
		}
		now := w.book.clock.Now()
		wave, err := domain.NewWave(uuid.NewString(), in.TenantID, in.WarehouseID, number, in.Name, orders, now)
		if err != nil {
			return err
		}
		wave.PlannedAt = in.PlannedAt
		for _, order := range orders {
			if err := order.AssignWave(wave.ID, now); err != nil {
				return err
			}
		}
		if err := w.book.saveWave(ctx, wave); err != nil {
			return err
		}
		for _, order := range orders {
			if err := w.book.saveOrder(ctx, order); err != nil {
				return err
			}
		}
		result = wave
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns a wave by id
func (w *Waves) Get(ctx context.Context, tenantID, waveID string) (*domain.Wave, error) {
	return w.book.repos.Waves.Get(ctx, tenantID, waveID)
}

// List returns waves matching filter
func (w *Waves) List(ctx context.Context, filter domain.WaveFilter) ([]*domain.Wave, error) {
	return w.book.repos.Waves.List(ctx, filter)
}

// Release moves a draft wave to released, then allocates every member that still
// needs stock and creates its pick tasks. Each reservation commits on its own,
// so releasing an already released wave picks up where a failed run stopped.
func (w *Waves) Release(ctx context.Context, tenantID, waveID, actor string) (*WaveRelease, error) {
	repos := w.book.repos
	var wave *domain.Wave
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		wave, err = repos.Waves.Get(ctx, tenantID, waveID)
		if err != nil {
			return err
		}
		switch wave.Status {
		case domain.WaveStatusReleased:
			return nil
		case domain.WaveStatusDraft:
			if err := wave.Release(w.book.clock.Now()); err != nil {
				return err
			}
			return w.book.saveWave(ctx, wave)
		}
		return fmt.Errorf("%w: wave %s is %s", domain.ErrInvalidState, wave.ID, wave.Status)
	})
	if err != nil {
		return nil, err
	}

	result := &WaveRelease{Allocations: make(map[string]*AllocationOutcome)}
	for _, orderID := range wave.OrderIDs {
		order, err := repos.Outbound.Get(ctx, tenantID, orderID)
		if err != nil {
			return nil, err
		}
		if order.WaveID != wave.ID || order.Status.IsTerminal() {
			result.Skipped = append(result.Skipped, orderID)
			continue
		}
		if order.CanAllocate() {
			outcome, err := w.allocator.Allocate(ctx, tenantID, orderID, actor)
			if err != nil {
				return nil, err
			}
			result.Allocations[orderID] = outcome
			order = outcome.Order
		}
		switch order.Status {
		case domain.OutboundStatusAllocated, domain.OutboundStatusBackordered, domain.OutboundStatusPicking:
			tasks, err := w.fulfillment.ReleaseForPicking(ctx, tenantID, orderID)
			if err != nil {
				return nil, err
			}
			result.Tasks = append(result.Tasks, tasks...)
		default:
			result.Skipped = append(result.Skipped, orderID)
		}
	}

	// members cancelled while the wave was a draft never report progress themselves
	err = repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		return w.book.syncWave(ctx, tenantID, waveID, w.book.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	result.Wave, err = repos.Waves.Get(ctx, tenantID, waveID)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel cancels a wave that has not started picking and detaches its members.
// Member orders keep their allocations and status.
func (w *Waves) Cancel(ctx context.Context, tenantID, waveID string) (*domain.Wave, error) {
	repos := w.book.repos
	var result *domain.Wave
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		wave, err := repos.Waves.Get(ctx, tenantID, waveID)
		if err != nil {
			return err
		}
		now := w.book.clock.Now()
		if err := wave.Cancel(now); err != nil {
			return err
		}
		if err := w.book.saveWave(ctx, wave); err != nil {
			return err
		}
		for _, orderID := range wave.OrderIDs {
			order, err := repos.Outbound.Get(ctx, tenantID, orderID)
			if err != nil {
				return err
			}
			if order.WaveID != wave.ID {
				continue
			}
			order.DetachWave(now)
			if err := w.book.saveOrder(ctx, order); err != nil {
				return err
			}
		}
		result = wave
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
