package domain

import (
	"fmt"
	"time"
)

// WaveStatus is the lifecycle state of a wave
type WaveStatus string

const (
	WaveStatusDraft      WaveStatus = "draft"
	WaveStatusReleased   WaveStatus = "released"
	WaveStatusInProgress WaveStatus = "in_progress"
	WaveStatusCompleted  WaveStatus = "completed"
	WaveStatusCancelled  WaveStatus = "cancelled"
)

func (s WaveStatus) String() string { return string(s) }

var waveTransitions = map[WaveStatus][]WaveStatus{
	WaveStatusDraft:      {WaveStatusReleased, WaveStatusCancelled},
	WaveStatusReleased:   {WaveStatusInProgress, WaveStatusCompleted, WaveStatusCancelled},
	WaveStatusInProgress: {WaveStatusCompleted},
}

// CanTransitionTo reports whether s may move to target
func (s WaveStatus) CanTransitionTo(target WaveStatus) bool {
	for _, next := range waveTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Wave is a batch of outbound orders released for picking together
type Wave struct {
	ID          string     `bson:"_id" json:"id"`
	TenantID    string     `bson:"tenantId" json:"tenantId"`
	WarehouseID string     `bson:"warehouseId" json:"warehouseId"`
	WaveNumber  string     `bson:"waveNumber" json:"waveNumber"`
	Name        string     `bson:"name,omitempty" json:"name,omitempty"`
	Status      WaveStatus `bson:"status" json:"status"`
	OrderIDs    []string   `bson:"orderIds" json:"orderIds"`
	OrderCount  int        `bson:"orderCount" json:"orderCount"`
	LineCount   int        `bson:"lineCount" json:"lineCount"`
	UnitCount   int64      `bson:"unitCount" json:"unitCount"`
	PlannedAt   *time.Time `bson:"plannedAt,omitempty" json:"plannedAt,omitempty"`
	Version     int64      `bson:"version" json:"version"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	ReleasedAt  *time.Time `bson:"releasedAt,omitempty" json:"releasedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	AggregateEvents `bson:"-" json:"-"`
}

// NewWave groups orders into a draft wave. Orders must already be validated for membership.
func NewWave(id, tenantID, warehouseID, waveNumber, name string, orders []*OutboundOrder, now time.Time) (*Wave, error) {
	if len(orders) == 0 {
		return nil, invalidArgument("wave must contain at least one order")
	}
	w := &Wave{
		ID:          id,
		TenantID:    tenantID,
		WarehouseID: warehouseID,
		WaveNumber:  waveNumber,
		Name:        name,
		Status:      WaveStatusDraft,
		OrderIDs:    make([]string, 0, len(orders)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	seen := make(map[string]bool, len(orders))
	for _, o := range orders {
		if seen[o.ID] {
			return nil, invalidArgument("order %s listed twice", o.ID)
		}
		seen[o.ID] = true
		if o.WarehouseID != warehouseID {
			return nil, invalidArgument("order %s belongs to warehouse %s, wave is for %s", o.ID, o.WarehouseID, warehouseID)
		}
		w.OrderIDs = append(w.OrderIDs, o.ID)
		w.OrderCount++
		w.LineCount += len(o.Lines)
		w.UnitCount += o.TotalUnits()
	}
	return w, nil
}

// Release moves a draft wave to released
func (w *Wave) Release(now time.Time) error {
	if err := w.transitionTo(WaveStatusReleased, now); err != nil {
		return err
	}
	w.ReleasedAt = &now
	return nil
}

// Cancel cancels a wave that has not started picking
func (w *Wave) Cancel(now time.Time) error {
	if err := w.transitionTo(WaveStatusCancelled, now); err != nil {
		return err
	}
	w.CancelledAt = &now
	return nil
}

// Progress recomputes the status of a released wave from its members' statuses.
// It returns true when the status changed.
func (w *Wave) Progress(memberStatuses []OutboundStatus, now time.Time) bool {
	if w.Status != WaveStatusReleased && w.Status != WaveStatusInProgress {
		return false
	}
	done := len(memberStatuses) > 0
	started := false
	for _, s := range memberStatuses {
		if s != OutboundStatusShipped && s != OutboundStatusDelivered && s != OutboundStatusCancelled {
			done = false
		}
		switch s {
		case OutboundStatusPicking, OutboundStatusPicked, OutboundStatusPacked,
			OutboundStatusShipped, OutboundStatusDelivered:
			started = true
		}
	}
	target := w.Status
	switch {
	case done:
		target = WaveStatusCompleted
	case started:
		target = WaveStatusInProgress
	}
	if target == w.Status {
		return false
	}
	if target == WaveStatusCompleted {
		w.CompletedAt = &now
	}
	return w.transitionTo(target, now) == nil
}

// Contains reports whether the wave has the order as a member
func (w *Wave) Contains(orderID string) bool {
	for _, id := range w.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}

func (w *Wave) transitionTo(target WaveStatus, now time.Time) error {
	if !w.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: wave %s cannot move from %s to %s", ErrInvalidState, w.ID, w.Status, target)
	}
	from := w.Status
	w.Status = target
	w.UpdatedAt = now
	w.record(&WaveStatusChangedEvent{
		WaveID:     w.ID,
		WaveNumber: w.WaveNumber,
		From:       from,
		To:         target,
		OrderCount: w.OrderCount,
		ChangedAt:  now,
	})
	return nil
}
