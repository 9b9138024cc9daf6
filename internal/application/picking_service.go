package application

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
)

// PickingApplicationService drives the pick task board
type PickingApplicationService struct {
	picking *core.Picking
	exec    *Executor
}

// NewPickingApplicationService creates a new PickingApplicationService
func NewPickingApplicationService(picking *core.Picking, exec *Executor) *PickingApplicationService {
	return &PickingApplicationService{picking: picking, exec: exec}
}

// GetTask returns a pick task
func (s *PickingApplicationService) GetTask(ctx context.Context, taskID string) (*domain.PickTask, error) {
	return execute(ctx, s.exec, "picking.get", func(ctx context.Context) (*domain.PickTask, error) {
		return s.picking.Get(ctx, tenantID(ctx), taskID)
	})
}

// ListTasks returns tasks matching the query
func (s *PickingApplicationService) ListTasks(ctx context.Context, query ListTasksQuery) ([]*domain.PickTask, error) {
	statuses := make([]domain.PickTaskStatus, 0, len(query.Statuses))
	for _, status := range query.Statuses {
		statuses = append(statuses, domain.PickTaskStatus(status))
	}
	return execute(ctx, s.exec, "picking.list", func(ctx context.Context) ([]*domain.PickTask, error) {
		return s.picking.List(ctx, domain.PickTaskFilter{
			TenantID:    tenantID(ctx),
			WarehouseID: query.WarehouseID,
			OrderID:     query.OrderID,
			WaveID:      query.WaveID,
			AssignedTo:  query.AssignedTo,
			Statuses:    statuses,
			Limit:       query.Limit,
			Offset:      query.Offset,
		})
	})
}

// MyTasks returns the open tasks of a picker; an empty userID means the caller
func (s *PickingApplicationService) MyTasks(ctx context.Context, userID string) ([]*domain.PickTask, error) {
	if userID == "" {
		userID = actor(ctx)
	}
	return execute(ctx, s.exec, "picking.my_tasks", func(ctx context.Context) ([]*domain.PickTask, error) {
		return s.picking.MyTasks(ctx, tenantID(ctx), userID)
	})
}

// Stats summarises the task board of a warehouse
func (s *PickingApplicationService) Stats(ctx context.Context, warehouseID string) (*TaskStatsDTO, error) {
	return execute(ctx, s.exec, "picking.stats", func(ctx context.Context) (*TaskStatsDTO, error) {
		return s.picking.Stats(ctx, tenantID(ctx), warehouseID)
	})
}

// Assign gives a pending task to a picker
func (s *PickingApplicationService) Assign(ctx context.Context, cmd AssignTaskCommand) (*domain.PickTask, error) {
	return s.change(ctx, "picking.assign", cmd.TaskID, func(ctx context.Context) (*domain.PickTask, error) {
		return s.picking.Assign(ctx, tenantID(ctx), cmd.TaskID, cmd.UserID)
	})
}

// Start begins an assigned task
func (s *PickingApplicationService) Start(ctx context.Context, taskID string) (*domain.PickTask, error) {
	return s.change(ctx, "picking.start", taskID, func(ctx context.Context) (*domain.PickTask, error) {
		return s.picking.Start(ctx, tenantID(ctx), taskID)
	})
}

// Complete confirms the picked quantity of an in-progress task
func (s *PickingApplicationService) Complete(ctx context.Context, cmd CompleteTaskCommand) (*domain.PickTask, error) {
	return s.change(ctx, "picking.complete", cmd.TaskID, func(ctx context.Context) (*domain.PickTask, error) {
		task, err := s.picking.Complete(ctx, tenantID(ctx), cmd.TaskID, cmd.PickedQuantity)
		if err != nil {
			return nil, err
		}
		short := task.Quantity - task.PickedQuantity
		if s.exec.metrics != nil {
			s.exec.metrics.RecordPickCompleted(short)
		}
		if short > 0 {
			s.exec.logger.Warn("Short pick", "taskId", task.ID, "orderId", task.OrderID, "short", short)
		}
		return task, nil
	})
}

// Cancel stops a task and releases its reservation
func (s *PickingApplicationService) Cancel(ctx context.Context, cmd CancelCommand) (*domain.PickTask, error) {
	return s.change(ctx, "picking.cancel", cmd.ID, func(ctx context.Context) (*domain.PickTask, error) {
		task, err := s.picking.Cancel(ctx, tenantID(ctx), cmd.ID, cmd.Reason, actor(ctx))
		if err != nil {
			return nil, err
		}
		s.exec.audit(ctx, "cancel", "pick_task", task.ID, map[string]any{"reason": cmd.Reason})
		return task, nil
	})
}

func (s *PickingApplicationService) change(ctx context.Context, operation, taskID string, fn func(ctx context.Context) (*domain.PickTask, error)) (*domain.PickTask, error) {
	return execute(ctx, s.exec, operation, func(ctx context.Context) (*domain.PickTask, error) {
		before, err := s.picking.Get(ctx, tenantID(ctx), taskID)
		if err != nil {
			return nil, err
		}
		task, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		s.exec.transition(ctx, "pick_task", task.ID, before.Status, task.Status)
		return task, nil
	})
}
