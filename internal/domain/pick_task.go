package domain

import (
	"fmt"
	"time"
)

// PickTaskStatus represents the status of a pick task
type PickTaskStatus string

const (
	PickTaskStatusPending    PickTaskStatus = "pending"
	PickTaskStatusAssigned   PickTaskStatus = "assigned"
	PickTaskStatusInProgress PickTaskStatus = "in_progress"
	PickTaskStatusCompleted  PickTaskStatus = "completed"
	PickTaskStatusCancelled  PickTaskStatus = "cancelled"
)

func (s PickTaskStatus) String() string { return string(s) }

// IsFinal reports whether the task can no longer change
func (s PickTaskStatus) IsFinal() bool {
	return s == PickTaskStatusCompleted || s == PickTaskStatusCancelled
}

// PickTask is one unit of picking work against a single allocation
type PickTask struct {
	ID             string         `bson:"_id" json:"id"`
	TenantID       string         `bson:"tenantId" json:"tenantId"`
	WarehouseID    string         `bson:"warehouseId" json:"warehouseId"`
	TaskNumber     string         `bson:"taskNumber" json:"taskNumber"`
	OrderID        string         `bson:"orderId" json:"orderId"`
	LineID         string         `bson:"lineId" json:"lineId"`
	AllocationID   string         `bson:"allocationId" json:"allocationId"`
	WaveID         string         `bson:"waveId,omitempty" json:"waveId,omitempty"`
	ProductID      string         `bson:"productId" json:"productId"`
	FromLocationID string         `bson:"fromLocationId" json:"fromLocationId"`
	LotNumber      string         `bson:"lotNumber,omitempty" json:"lotNumber,omitempty"`
	Quantity       int64          `bson:"quantity" json:"quantity"`
	PickedQuantity int64          `bson:"pickedQuantity" json:"pickedQuantity"`
	Priority       Priority       `bson:"priority" json:"priority"`
	PickSequence   int            `bson:"pickSequence" json:"pickSequence"`
	Status         PickTaskStatus `bson:"status" json:"status"`
	AssignedTo     string         `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	CancelReason   string         `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	Version        int64          `bson:"version" json:"version"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time      `bson:"updatedAt" json:"updatedAt"`
	AssignedAt     *time.Time     `bson:"assignedAt,omitempty" json:"assignedAt,omitempty"`
	StartedAt      *time.Time     `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	CompletedAt    *time.Time     `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt    *time.Time     `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	AggregateEvents `bson:"-" json:"-"`
}

// NewPickTask creates a pending task covering the whole allocation
func NewPickTask(id, taskNumber string, order *OutboundOrder, alloc *Allocation, now time.Time) *PickTask {
	return &PickTask{
		ID:             id,
		TenantID:       order.TenantID,
		WarehouseID:    order.WarehouseID,
		TaskNumber:     taskNumber,
		OrderID:        order.ID,
		LineID:         alloc.LineID,
		AllocationID:   alloc.ID,
		WaveID:         order.WaveID,
		ProductID:      alloc.ProductID,
		FromLocationID: alloc.LocationID,
		LotNumber:      alloc.LotNumber,
		Quantity:       alloc.Quantity,
		Priority:       order.Priority,
		PickSequence:   alloc.PickSequence,
		Status:         PickTaskStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Assign gives a pending task to a user
func (t *PickTask) Assign(userID string, now time.Time) error {
	if userID == "" {
		return invalidArgument("assignee is required")
	}
	if t.Status != PickTaskStatusPending {
		return invalidTransition("pick task "+t.ID, t.Status, PickTaskStatusAssigned)
	}
	t.AssignedTo = userID
	t.AssignedAt = &now
	t.setStatus(PickTaskStatusAssigned, now)
	return nil
}

// Start begins picking an assigned task
func (t *PickTask) Start(now time.Time) error {
	if t.Status != PickTaskStatusAssigned {
		return invalidTransition("pick task "+t.ID, t.Status, PickTaskStatusInProgress)
	}
	t.StartedAt = &now
	t.setStatus(PickTaskStatusInProgress, now)
	return nil
}

// Complete finishes an in-progress task. A short pick is recorded as-is.
func (t *PickTask) Complete(pickedQuantity int64, now time.Time) error {
	if t.Status != PickTaskStatusInProgress {
		return invalidTransition("pick task "+t.ID, t.Status, PickTaskStatusCompleted)
	}
	if pickedQuantity < 0 || pickedQuantity > t.Quantity {
		return invalidQuantity("picked quantity %d outside 0..%d", pickedQuantity, t.Quantity)
	}
	t.PickedQuantity = pickedQuantity
	t.CompletedAt = &now
	t.setStatus(PickTaskStatusCompleted, now)
	return nil
}

// Cancel stops a task that has not completed
func (t *PickTask) Cancel(reason string, now time.Time) error {
	if t.Status.IsFinal() {
		return invalidTransition("pick task "+t.ID, t.Status, PickTaskStatusCancelled)
	}
	t.CancelReason = reason
	t.CancelledAt = &now
	t.setStatus(PickTaskStatusCancelled, now)
	return nil
}

// IsShort reports whether a completed task picked less than requested
func (t *PickTask) IsShort() bool {
	return t.Status == PickTaskStatusCompleted && t.PickedQuantity < t.Quantity
}

func (t *PickTask) String() string {
	return fmt.Sprintf("%s(%s x%d @%s)", t.TaskNumber, t.ProductID, t.Quantity, t.FromLocationID)
}

func (t *PickTask) setStatus(target PickTaskStatus, now time.Time) {
	from := t.Status
	t.Status = target
	t.UpdatedAt = now
	t.record(&PickTaskStatusChangedEvent{
		TaskID:         t.ID,
		OrderID:        t.OrderID,
		AllocationID:   t.AllocationID,
		From:           from,
		To:             target,
		AssignedTo:     t.AssignedTo,
		PickedQuantity: t.PickedQuantity,
		ChangedAt:      now,
	})
}
