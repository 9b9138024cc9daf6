package domain

import (
	"fmt"
	"time"
)

// AllocationStatus is the lifecycle state of an allocation
type AllocationStatus string

const (
	AllocationStatusAllocated AllocationStatus = "allocated"
	AllocationStatusPicking   AllocationStatus = "picking"
	AllocationStatusPicked    AllocationStatus = "picked"
	AllocationStatusCancelled AllocationStatus = "cancelled"
)

func (s AllocationStatus) String() string { return string(s) }

// Allocation reserves quantity on one inventory record for one outbound line
type Allocation struct {
	ID             string           `bson:"_id" json:"id"`
	TenantID       string           `bson:"tenantId" json:"tenantId"`
	OrderID        string           `bson:"orderId" json:"orderId"`
	LineID         string           `bson:"lineId" json:"lineId"`
	RecordID       string           `bson:"recordId" json:"recordId"`
	ProductID      string           `bson:"productId" json:"productId"`
	LocationID     string           `bson:"locationId" json:"locationId"`
	LotNumber      string           `bson:"lotNumber,omitempty" json:"lotNumber,omitempty"`
	PickSequence   int              `bson:"pickSequence" json:"pickSequence"`
	Quantity       int64            `bson:"quantity" json:"quantity"`
	PickedQuantity int64            `bson:"pickedQuantity" json:"pickedQuantity"`
	Status         AllocationStatus `bson:"status" json:"status"`
	PickTaskID     string           `bson:"pickTaskId,omitempty" json:"pickTaskId,omitempty"`
	Version        int64            `bson:"version" json:"version"`
	CreatedAt      time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time        `bson:"updatedAt" json:"updatedAt"`
	CancelledAt    *time.Time       `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
}

// NewAllocation records a reservation of quantity on rec for an order line
func NewAllocation(id, orderID, lineID string, rec *InventoryRecord, quantity int64, now time.Time) *Allocation {
	return &Allocation{
		ID:           id,
		TenantID:     rec.TenantID,
		OrderID:      orderID,
		LineID:       lineID,
		RecordID:     rec.ID,
		ProductID:    rec.ProductID,
		LocationID:   rec.LocationID,
		LotNumber:    rec.LotNumber,
		PickSequence: rec.PickSequence,
		Quantity:     quantity,
		Status:       AllocationStatusAllocated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsSettled reports whether no more picking work remains on the allocation
func (a *Allocation) IsSettled() bool {
	return a.Status == AllocationStatusPicked || a.Status == AllocationStatusCancelled
}

// ReservedQuantity is the quantity this allocation still holds on its record
func (a *Allocation) ReservedQuantity() int64 {
	if a.Status == AllocationStatusCancelled {
		return 0
	}
	return a.Quantity
}

// StartPicking marks the allocation as being picked
func (a *Allocation) StartPicking(now time.Time) error {
	if a.Status != AllocationStatusAllocated {
		return invalidTransition("allocation "+a.ID, a.Status, AllocationStatusPicking)
	}
	a.Status = AllocationStatusPicking
	a.UpdatedAt = now
	return nil
}

// MarkPicked records the quantity physically picked
func (a *Allocation) MarkPicked(quantity int64, now time.Time) error {
	if a.Status != AllocationStatusPicking && a.Status != AllocationStatusAllocated {
		return invalidTransition("allocation "+a.ID, a.Status, AllocationStatusPicked)
	}
	if quantity < 0 || quantity > a.Quantity {
		return invalidQuantity("picked %d outside allocation of %d", quantity, a.Quantity)
	}
	a.PickedQuantity = quantity
	a.Status = AllocationStatusPicked
	a.UpdatedAt = now
	return nil
}

// Cancel marks the allocation cancelled. It returns false when it already was.
func (a *Allocation) Cancel(now time.Time) bool {
	if a.Status == AllocationStatusCancelled {
		return false
	}
	a.Status = AllocationStatusCancelled
	a.UpdatedAt = now
	a.CancelledAt = &now
	return true
}

// AttachTask links the pick task created for this allocation
func (a *Allocation) AttachTask(taskID string, now time.Time) error {
	if a.PickTaskID != "" {
		return fmt.Errorf("%w: allocation %s already has task %s", ErrInvalidState, a.ID, a.PickTaskID)
	}
	a.PickTaskID = taskID
	a.UpdatedAt = now
	return nil
}
