package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OutboundStatus is the lifecycle state of an outbound order
type OutboundStatus string

const (
	OutboundStatusPending     OutboundStatus = "pending"
	OutboundStatusAllocated   OutboundStatus = "allocated"
	OutboundStatusBackordered OutboundStatus = "backordered"
	OutboundStatusPicking     OutboundStatus = "picking"
	OutboundStatusPicked      OutboundStatus = "picked"
	OutboundStatusPacked      OutboundStatus = "packed"
	OutboundStatusShipped     OutboundStatus = "shipped"
	OutboundStatusDelivered   OutboundStatus = "delivered"
	OutboundStatusCancelled   OutboundStatus = "cancelled"
)

func (s OutboundStatus) String() string { return string(s) }

// IsTerminal reports whether the order lifecycle has ended
func (s OutboundStatus) IsTerminal() bool {
	return s == OutboundStatusShipped || s == OutboundStatusDelivered || s == OutboundStatusCancelled
}

// isDerived reports whether the status is computed from line and allocation state
func (s OutboundStatus) isDerived() bool {
	switch s {
	case OutboundStatusPending, OutboundStatusAllocated, OutboundStatusBackordered,
		OutboundStatusPicking, OutboundStatusPicked:
		return true
	}
	return false
}

// Priority orders picking work
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Rank returns a sortable weight, higher is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityNormal:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	return p.Rank() > 0
}

// OutboundOrderLine carries the fulfilment counters of one ordered product.
// ShippedQuantity <= PickedQuantity <= AllocatedQuantity <= OrderedQuantity.
//
// AllocatedQuantity never decreases. ReleasedQuantity is the part of it whose
// allocations were cancelled before being picked; the next allocation pass
// covers that part first.
type OutboundOrderLine struct {
	ID                string          `bson:"id" json:"id"`
	ProductID         string          `bson:"productId" json:"productId"`
	OrderedQuantity   int64           `bson:"orderedQuantity" json:"orderedQuantity"`
	AllocatedQuantity int64           `bson:"allocatedQuantity" json:"allocatedQuantity"`
	ReleasedQuantity  int64           `bson:"releasedQuantity" json:"releasedQuantity"`
	PickedQuantity    int64           `bson:"pickedQuantity" json:"pickedQuantity"`
	ShippedQuantity   int64           `bson:"shippedQuantity" json:"shippedQuantity"`
	UnitPrice         decimal.Decimal `bson:"unitPrice" json:"unitPrice"`
}

// Unallocated is the quantity not covered by a live allocation
func (l *OutboundOrderLine) Unallocated() int64 {
	return l.OrderedQuantity - l.LiveAllocated()
}

// LiveAllocated is the allocated quantity still held by allocations that were
// not cancelled before picking
func (l *OutboundOrderLine) LiveAllocated() int64 {
	return l.AllocatedQuantity - l.ReleasedQuantity
}

// OutboundOrder is the aggregate root for fulfilment
type OutboundOrder struct {
	ID             string              `bson:"_id" json:"id"`
	TenantID       string              `bson:"tenantId" json:"tenantId"`
	WarehouseID    string              `bson:"warehouseId" json:"warehouseId"`
	OrderNumber    string              `bson:"orderNumber" json:"orderNumber"`
	CustomerName   string              `bson:"customerName,omitempty" json:"customerName,omitempty"`
	Priority       Priority            `bson:"priority" json:"priority"`
	Status         OutboundStatus      `bson:"status" json:"status"`
	WaveID         string              `bson:"waveId,omitempty" json:"waveId,omitempty"`
	Lines          []OutboundOrderLine `bson:"lines" json:"lines"`
	Carrier        string              `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber string              `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	Metadata       map[string]any      `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CancelReason   string              `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	Version        int64               `bson:"version" json:"version"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
	PackedAt       *time.Time          `bson:"packedAt,omitempty" json:"packedAt,omitempty"`
	ShipDate       *time.Time          `bson:"shipDate,omitempty" json:"shipDate,omitempty"`
	DeliveredAt    *time.Time          `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CancelledAt    *time.Time          `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	AggregateEvents `bson:"-" json:"-"`
}

// NewOutboundOrder creates a pending outbound order
func NewOutboundOrder(id, tenantID, warehouseID, orderNumber string, priority Priority, lines []OutboundOrderLine, now time.Time) (*OutboundOrder, error) {
	if len(lines) == 0 {
		return nil, invalidArgument("outbound order must have at least one line")
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, invalidArgument("unknown priority %q", priority)
	}
	for i := range lines {
		if lines[i].ProductID == "" {
			return nil, invalidArgument("line %d has no product", i)
		}
		if lines[i].OrderedQuantity <= 0 {
			return nil, invalidQuantity("line %d ordered quantity must be positive, got %d", i, lines[i].OrderedQuantity)
		}
		lines[i].AllocatedQuantity = 0
		lines[i].ReleasedQuantity = 0
		lines[i].PickedQuantity = 0
		lines[i].ShippedQuantity = 0
	}
	return &OutboundOrder{
		ID:          id,
		TenantID:    tenantID,
		WarehouseID: warehouseID,
		OrderNumber: orderNumber,
		Priority:    priority,
		Status:      OutboundStatusPending,
		Lines:       lines,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Line returns the line with the given id
func (o *OutboundOrder) Line(lineID string) (*OutboundOrderLine, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], nil
		}
	}
	return nil, NotFound("outbound order line", lineID)
}

// CanAllocate reports whether allocation may add reservations to this order
func (o *OutboundOrder) CanAllocate() bool {
	return o.Status == OutboundStatusPending || o.Status == OutboundStatusBackordered
}

// AddAllocated records a new allocation on a line. Previously released
// quantity is re-covered before AllocatedQuantity grows.
func (o *OutboundOrder) AddAllocated(lineID string, quantity int64, now time.Time) error {
	line, err := o.Line(lineID)
	if err != nil {
		return err
	}
	if quantity <= 0 || quantity > line.Unallocated() {
		return invalidQuantity("allocating %d would exceed ordered %d on line %s", quantity, line.OrderedQuantity, lineID)
	}
	recovered := min(quantity, line.ReleasedQuantity)
	line.ReleasedQuantity -= recovered
	line.AllocatedQuantity += quantity - recovered
	o.UpdatedAt = now
	return nil
}

// ReturnAllocated records that an unpicked allocation of quantity on a line
// was cancelled
func (o *OutboundOrder) ReturnAllocated(lineID string, quantity int64, now time.Time) error {
	line, err := o.Line(lineID)
	if err != nil {
		return err
	}
	if quantity <= 0 || line.LiveAllocated()-quantity < line.PickedQuantity {
		return invalidQuantity("returning %d would drop line %s below its picked %d", quantity, lineID, line.PickedQuantity)
	}
	line.ReleasedQuantity += quantity
	o.UpdatedAt = now
	return nil
}

// AddPicked increases a line's picked quantity
func (o *OutboundOrder) AddPicked(lineID string, quantity int64, now time.Time) error {
	line, err := o.Line(lineID)
	if err != nil {
		return err
	}
	if quantity < 0 || line.PickedQuantity+quantity > line.LiveAllocated() {
		return invalidQuantity("picking %d would exceed allocated %d on line %s", quantity, line.LiveAllocated(), lineID)
	}
	line.PickedQuantity += quantity
	o.UpdatedAt = now
	return nil
}

// DeriveOutboundStatus computes the order status from line and allocation state.
// An allocation is settled once picked or cancelled; the order is picked when
// everything is settled and at least one unit was picked. Before picking starts
// only live allocations count, so an order whose allocations were all
// cancelled falls back to pending.
func DeriveOutboundStatus(lines []OutboundOrderLine, allocations []*Allocation) OutboundStatus {
	var (
		anyStarted  bool
		allSettled  = true
		pickedUnits int64
	)
	for _, a := range allocations {
		switch a.Status {
		case AllocationStatusPicking:
			anyStarted = true
			allSettled = false
		case AllocationStatusPicked:
			anyStarted = true
			pickedUnits += a.PickedQuantity
		case AllocationStatusAllocated:
			allSettled = false
		}
	}
	if anyStarted && allSettled && pickedUnits > 0 {
		return OutboundStatusPicked
	}
	if anyStarted {
		return OutboundStatusPicking
	}

	fully := true
	anyAllocated := false
	for _, l := range lines {
		live := l.LiveAllocated()
		if live > 0 {
			anyAllocated = true
		}
		if live < l.OrderedQuantity {
			fully = false
		}
	}
	switch {
	case anyAllocated && fully:
		return OutboundStatusAllocated
	case anyAllocated:
		return OutboundStatusBackordered
	}
	return OutboundStatusPending
}

// Refresh re-derives the status while the order is in a derived phase.
// It returns true when the status changed.
func (o *OutboundOrder) Refresh(allocations []*Allocation, now time.Time) bool {
	if !o.Status.isDerived() {
		return false
	}
	next := DeriveOutboundStatus(o.Lines, allocations)
	if next == o.Status {
		return false
	}
	o.setStatus(next, now)
	return true
}

// Pack records the external packing step
func (o *OutboundOrder) Pack(now time.Time) error {
	if o.Status != OutboundStatusPicked {
		return invalidTransition("outbound order "+o.ID, o.Status, OutboundStatusPacked)
	}
	o.PackedAt = &now
	o.setStatus(OutboundStatusPacked, now)
	return nil
}

// Ship marks the order shipped. Every line's shipped quantity becomes its picked quantity.
func (o *OutboundOrder) Ship(carrier, trackingNumber string, now time.Time) error {
	if o.Status != OutboundStatusPacked {
		return invalidTransition("outbound order "+o.ID, o.Status, OutboundStatusShipped)
	}
	for i := range o.Lines {
		o.Lines[i].ShippedQuantity = o.Lines[i].PickedQuantity
	}
	o.Carrier = carrier
	o.TrackingNumber = trackingNumber
	o.ShipDate = &now
	o.setStatus(OutboundStatusShipped, now)
	return nil
}

// Deliver records delivery of a shipped order
func (o *OutboundOrder) Deliver(now time.Time) error {
	if o.Status != OutboundStatusShipped {
		return invalidTransition("outbound order "+o.ID, o.Status, OutboundStatusDelivered)
	}
	o.DeliveredAt = &now
	o.setStatus(OutboundStatusDelivered, now)
	return nil
}

// Cancel cancels the order before shipment. Cancelling a cancelled order is a no-op
// and returns false.
func (o *OutboundOrder) Cancel(reason string, now time.Time) (bool, error) {
	if o.Status == OutboundStatusCancelled {
		return false, nil
	}
	if o.Status.IsTerminal() {
		return false, invalidTransition("outbound order "+o.ID, o.Status, OutboundStatusCancelled)
	}
	o.CancelReason = reason
	o.CancelledAt = &now
	o.setStatus(OutboundStatusCancelled, now)
	return true, nil
}

// AssignWave attaches the order to a wave
func (o *OutboundOrder) AssignWave(waveID string, now time.Time) error {
	if o.Status != OutboundStatusPending && o.Status != OutboundStatusAllocated {
		return fmt.Errorf("%w: order %s is %s, waves accept pending or allocated orders", ErrInvalidState, o.ID, o.Status)
	}
	if o.WaveID != "" && o.WaveID != waveID {
		return fmt.Errorf("%w: order %s already belongs to wave %s", ErrInvalidState, o.ID, o.WaveID)
	}
	o.WaveID = waveID
	o.UpdatedAt = now
	return nil
}

// DetachWave removes the wave reference
func (o *OutboundOrder) DetachWave(now time.Time) {
	o.WaveID = ""
	o.UpdatedAt = now
}

// TotalUnits sums ordered quantity over all lines
func (o *OutboundOrder) TotalUnits() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.OrderedQuantity
	}
	return total
}

func (o *OutboundOrder) setStatus(target OutboundStatus, now time.Time) {
	from := o.Status
	o.Status = target
	o.UpdatedAt = now
	o.record(&OutboundStatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		WaveID:      o.WaveID,
		From:        from,
		To:          target,
		ChangedAt:   now,
	})
}
