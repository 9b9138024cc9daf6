package application

import (
	"context"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
)

// WaveApplicationService plans and releases waves of outbound orders
type WaveApplicationService struct {
	waves *core.Waves
	exec  *Executor
}

// NewWaveApplicationService creates a new WaveApplicationService
func NewWaveApplicationService(waves *core.Waves, exec *Executor) *WaveApplicationService {
	return &WaveApplicationService{waves: waves, exec: exec}
}

// CreateWave groups orders into a draft wave
func (s *WaveApplicationService) CreateWave(ctx context.Context, cmd CreateWaveCommand) (*domain.Wave, error) {
	return execute(ctx, s.exec, "wave.create", func(ctx context.Context) (*domain.Wave, error) {
		wave, err := s.waves.CreateWave(ctx, core.NewWave{
			TenantID:    tenantID(ctx),
			WarehouseID: cmd.WarehouseID,
			Name:        cmd.Name,
			OrderIDs:    cmd.OrderIDs,
			PlannedAt:   cmd.PlannedAt,
		})
		if err != nil {
			return nil, err
		}
		s.exec.logger.Info("Created wave", "waveId", wave.ID, "waveNumber", wave.WaveNumber, "orders", wave.OrderCount)
		return wave, nil
	})
}

// GetWave returns a wave
func (s *WaveApplicationService) GetWave(ctx context.Context, waveID string) (*domain.Wave, error) {
	return execute(ctx, s.exec, "wave.get", func(ctx context.Context) (*domain.Wave, error) {
		return s.waves.Get(ctx, tenantID(ctx), waveID)
	})
}

// ListWaves returns waves matching the query
func (s *WaveApplicationService) ListWaves(ctx context.Context, query ListWavesQuery) ([]*domain.Wave, error) {
	return execute(ctx, s.exec, "wave.list", func(ctx context.Context) ([]*domain.Wave, error) {
		return s.waves.List(ctx, domain.WaveFilter{
			TenantID:    tenantID(ctx),
			WarehouseID: query.WarehouseID,
			Status:      domain.WaveStatus(query.Status),
			Limit:       query.Limit,
			Offset:      query.Offset,
		})
	})
}

// Release allocates the wave's orders and creates their pick tasks
func (s *WaveApplicationService) Release(ctx context.Context, waveID string) (*WaveReleaseDTO, error) {
	return execute(ctx, s.exec, "wave.release", func(ctx context.Context) (*WaveReleaseDTO, error) {
		release, err := s.waves.Release(ctx, tenantID(ctx), waveID, actor(ctx))
		if err != nil {
			return nil, err
		}
		dto := &WaveReleaseDTO{
			Wave:        release.Wave,
			Allocations: make(map[string]*AllocationResultDTO, len(release.Allocations)),
			Tasks:       release.Tasks,
			Skipped:     release.Skipped,
		}
		if dto.Tasks == nil {
			dto.Tasks = []*domain.PickTask{}
		}
		for orderID, outcome := range release.Allocations {
			dto.Allocations[orderID] = ToAllocationResultDTO(outcome)
			if short := outcome.Shortfall(); short > 0 && s.exec.metrics != nil {
				s.exec.metrics.RecordAllocationShortfall(release.Wave.WarehouseID, short)
			}
		}
		s.exec.logger.Info("Released wave", "waveId", waveID, "tasks", len(dto.Tasks), "skipped", len(dto.Skipped))
		return dto, nil
	})
}

// Cancel cancels a wave that has not started picking
func (s *WaveApplicationService) Cancel(ctx context.Context, waveID string) (*domain.Wave, error) {
	return execute(ctx, s.exec, "wave.cancel", func(ctx context.Context) (*domain.Wave, error) {
		before, err := s.waves.Get(ctx, tenantID(ctx), waveID)
		if err != nil {
			return nil, err
		}
		wave, err := s.waves.Cancel(ctx, tenantID(ctx), waveID)
		if err != nil {
			return nil, err
		}
		s.exec.transition(ctx, "wave", wave.ID, before.Status, wave.Status)
		s.exec.audit(ctx, "cancel", "wave", wave.ID, nil)
		return wave, nil
	})
}
