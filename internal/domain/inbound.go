package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InboundStatus is the lifecycle state of an inbound order
type InboundStatus string

const (
	InboundStatusDraft             InboundStatus = "draft"
	InboundStatusPending           InboundStatus = "pending"
	InboundStatusConfirmed         InboundStatus = "confirmed"
	InboundStatusScheduled         InboundStatus = "scheduled"
	InboundStatusInTransit         InboundStatus = "in_transit"
	InboundStatusArrived           InboundStatus = "arrived"
	InboundStatusReceiving         InboundStatus = "receiving"
	InboundStatusQualityCheck      InboundStatus = "quality_check"
	InboundStatusPartiallyReceived InboundStatus = "partially_received"
	InboundStatusReceived          InboundStatus = "received"
	InboundStatusPutawayPending    InboundStatus = "putaway_pending"
	InboundStatusPutaway           InboundStatus = "putaway"
	InboundStatusCompleted         InboundStatus = "completed"
	InboundStatusCancelled         InboundStatus = "cancelled"
	InboundStatusOnHold            InboundStatus = "on_hold"
)

func (s InboundStatus) String() string { return string(s) }

// IsTerminal reports whether no further transition is possible
func (s InboundStatus) IsTerminal() bool {
	return s == InboundStatusCompleted || s == InboundStatusCancelled
}

var inboundTransitions = map[InboundStatus][]InboundStatus{
	InboundStatusDraft:             {InboundStatusPending},
	InboundStatusPending:           {InboundStatusConfirmed, InboundStatusReceiving},
	InboundStatusConfirmed:         {InboundStatusScheduled, InboundStatusReceiving},
	InboundStatusScheduled:         {InboundStatusInTransit, InboundStatusArrived, InboundStatusReceiving},
	InboundStatusInTransit:         {InboundStatusArrived, InboundStatusReceiving},
	InboundStatusArrived:           {InboundStatusReceiving},
	InboundStatusReceiving:         {InboundStatusQualityCheck, InboundStatusPartiallyReceived, InboundStatusReceived},
	InboundStatusQualityCheck:      {InboundStatusReceiving, InboundStatusPartiallyReceived, InboundStatusReceived},
	InboundStatusPartiallyReceived: {InboundStatusReceiving, InboundStatusQualityCheck, InboundStatusReceived},
	InboundStatusReceived:          {InboundStatusPutawayPending},
	InboundStatusPutawayPending:    {InboundStatusPutaway},
	InboundStatusPutaway:           {InboundStatusCompleted},
}

// operator-driven targets; the remaining states are reached through dedicated operations
var inboundOperatorTargets = map[InboundStatus]bool{
	InboundStatusPending:        true,
	InboundStatusConfirmed:      true,
	InboundStatusScheduled:      true,
	InboundStatusInTransit:      true,
	InboundStatusArrived:        true,
	InboundStatusReceiving:      true,
	InboundStatusQualityCheck:   true,
	InboundStatusPutawayPending: true,
}

// CanTransitionTo reports whether s may move to target
func (s InboundStatus) CanTransitionTo(target InboundStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == InboundStatusCancelled {
		return true
	}
	if target == InboundStatusOnHold {
		return s != InboundStatusOnHold
	}
	for _, next := range inboundTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Receipt is one recorded receipt against an inbound line
type Receipt struct {
	Quantity       int64      `bson:"quantity" json:"quantity"`
	LocationID     string     `bson:"locationId" json:"locationId"`
	LotNumber      string     `bson:"lotNumber,omitempty" json:"lotNumber,omitempty"`
	ExpiryDate     *time.Time `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	RecordID       string     `bson:"recordId" json:"recordId"`
	ReceivedBy     string     `bson:"receivedBy,omitempty" json:"receivedBy,omitempty"`
	IdempotencyKey string     `bson:"idempotencyKey,omitempty" json:"idempotencyKey,omitempty"`
	ReceivedAt     time.Time  `bson:"receivedAt" json:"receivedAt"`
}

// InboundOrderLine is an expected product on an inbound order
type InboundOrderLine struct {
	ID               string          `bson:"id" json:"id"`
	ProductID        string          `bson:"productId" json:"productId"`
	ExpectedQuantity int64           `bson:"expectedQuantity" json:"expectedQuantity"`
	ReceivedQuantity int64           `bson:"receivedQuantity" json:"receivedQuantity"`
	UnitCost         decimal.Decimal `bson:"unitCost" json:"unitCost"`
	LotNumber        string          `bson:"lotNumber,omitempty" json:"lotNumber,omitempty"`
	ExpiryDate       *time.Time      `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	Receipts         []Receipt       `bson:"receipts" json:"receipts"`
}

// HasReceipt reports whether a receipt with the idempotency key was booked on the line
func (l *InboundOrderLine) HasReceipt(idempotencyKey string) bool {
	for _, r := range l.Receipts {
		if r.IdempotencyKey == idempotencyKey {
			return true
		}
	}
	return false
}

// IsFullyReceived reports whether received has reached expected
func (l *InboundOrderLine) IsFullyReceived() bool {
	return l.ReceivedQuantity >= l.ExpectedQuantity
}

// InboundOrder is the aggregate root for receiving
type InboundOrder struct {
	ID                  string             `bson:"_id" json:"id"`
	TenantID            string             `bson:"tenantId" json:"tenantId"`
	WarehouseID         string             `bson:"warehouseId" json:"warehouseId"`
	OrderNumber         string             `bson:"orderNumber" json:"orderNumber"`
	SupplierName        string             `bson:"supplierName,omitempty" json:"supplierName,omitempty"`
	ReferenceNumber     string             `bson:"referenceNumber,omitempty" json:"referenceNumber,omitempty"`
	ReceivingLocationID string             `bson:"receivingLocationId" json:"receivingLocationId"`
	Status              InboundStatus      `bson:"status" json:"status"`
	HeldFrom            InboundStatus      `bson:"heldFrom,omitempty" json:"heldFrom,omitempty"`
	Lines               []InboundOrderLine `bson:"lines" json:"lines"`
	ExpectedAt          *time.Time         `bson:"expectedAt,omitempty" json:"expectedAt,omitempty"`
	Metadata            map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CancelReason        string             `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	Version             int64              `bson:"version" json:"version"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
	CompletedAt         *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	CancelledAt         *time.Time         `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`

	AggregateEvents `bson:"-" json:"-"`
}

// NewInboundOrder creates an inbound order in draft or pending state
func NewInboundOrder(id, tenantID, warehouseID, orderNumber, receivingLocationID string, lines []InboundOrderLine, status InboundStatus, now time.Time) (*InboundOrder, error) {
	if len(lines) == 0 {
		return nil, invalidArgument("inbound order must have at least one line")
	}
	if status == "" {
		status = InboundStatusPending
	}
	if status != InboundStatusDraft && status != InboundStatusPending {
		return nil, invalidArgument("inbound order must start as draft or pending, got %s", status)
	}
	for i := range lines {
		if lines[i].ProductID == "" {
			return nil, invalidArgument("line %d has no product", i)
		}
		if lines[i].ExpectedQuantity <= 0 {
			return nil, invalidQuantity("line %d expected quantity must be positive, got %d", i, lines[i].ExpectedQuantity)
		}
		lines[i].ReceivedQuantity = 0
		lines[i].ExpiryDate = NormalizeDate(lines[i].ExpiryDate)
		if lines[i].Receipts == nil {
			lines[i].Receipts = []Receipt{}
		}
	}
	return &InboundOrder{
		ID:                  id,
		TenantID:            tenantID,
		WarehouseID:         warehouseID,
		OrderNumber:         orderNumber,
		ReceivingLocationID: receivingLocationID,
		Status:              status,
		Lines:               lines,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Line returns the line with the given id
func (o *InboundOrder) Line(lineID string) (*InboundOrderLine, error) {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i], nil
		}
	}
	return nil, NotFound("inbound order line", lineID)
}

// Transition applies an operator-requested status change
func (o *InboundOrder) Transition(target InboundStatus, now time.Time) error {
	if !inboundOperatorTargets[target] {
		return fmt.Errorf("%w: %s is not an operator transition", ErrInvalidState, target)
	}
	return o.transitionTo(target, now)
}

// CanRecordReceipt reports whether receipts are accepted in the current state
func (o *InboundOrder) CanRecordReceipt() bool {
	switch o.Status {
	case InboundStatusReceiving, InboundStatusQualityCheck, InboundStatusPartiallyReceived:
		return true
	}
	return false
}

// RecordReceipt accumulates a receipt on a line and derives the order status.
// Over-receipt is allowed and reported through the returned flag.
func (o *InboundOrder) RecordReceipt(lineID string, receipt Receipt, now time.Time) (bool, error) {
	if receipt.Quantity <= 0 {
		return false, invalidQuantity("receipt quantity must be positive, got %d", receipt.Quantity)
	}
	if !o.CanRecordReceipt() {
		return false, fmt.Errorf("%w: inbound order %s is %s", ErrInvalidState, o.ID, o.Status)
	}
	line, err := o.Line(lineID)
	if err != nil {
		return false, err
	}

	line.ReceivedQuantity += receipt.Quantity
	line.Receipts = append(line.Receipts, receipt)
	overReceipt := line.ReceivedQuantity > line.ExpectedQuantity

	o.record(&InboundReceiptRecordedEvent{
		OrderID:     o.ID,
		LineID:      line.ID,
		ProductID:   line.ProductID,
		Quantity:    receipt.Quantity,
		RecordID:    receipt.RecordID,
		OverReceipt: overReceipt,
		ReceivedAt:  now,
	})

	target := InboundStatusReceived
	for i := range o.Lines {
		if !o.Lines[i].IsFullyReceived() {
			target = InboundStatusPartiallyReceived
			break
		}
	}
	if target != o.Status {
		if err := o.transitionTo(target, now); err != nil {
			return false, err
		}
	} else {
		o.UpdatedAt = now
	}
	return overReceipt, nil
}

// StartPutaway moves a putaway_pending order into putaway
func (o *InboundOrder) StartPutaway(now time.Time) error {
	return o.transitionTo(InboundStatusPutaway, now)
}

// Complete finishes a putaway order
func (o *InboundOrder) Complete(now time.Time) error {
	if err := o.transitionTo(InboundStatusCompleted, now); err != nil {
		return err
	}
	o.CompletedAt = &now
	return nil
}

// Hold suspends the order, remembering where it came from
func (o *InboundOrder) Hold(now time.Time) error {
	from := o.Status
	if err := o.transitionTo(InboundStatusOnHold, now); err != nil {
		return err
	}
	o.HeldFrom = from
	return nil
}

// Resume returns a held order to the state it was held from
func (o *InboundOrder) Resume(now time.Time) error {
	if o.Status != InboundStatusOnHold {
		return invalidTransition("inbound order "+o.ID, o.Status, o.HeldFrom)
	}
	target := o.HeldFrom
	o.setStatus(target, now)
	o.HeldFrom = ""
	return nil
}

// Cancel cancels the order from any non-terminal state
func (o *InboundOrder) Cancel(reason string, now time.Time) error {
	if err := o.transitionTo(InboundStatusCancelled, now); err != nil {
		return err
	}
	o.CancelReason = reason
	o.CancelledAt = &now
	return nil
}

// TotalExpected sums expected quantity over all lines
func (o *InboundOrder) TotalExpected() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.ExpectedQuantity
	}
	return total
}

// TotalReceived sums received quantity over all lines
func (o *InboundOrder) TotalReceived() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.ReceivedQuantity
	}
	return total
}

func (o *InboundOrder) transitionTo(target InboundStatus, now time.Time) error {
	if !o.Status.CanTransitionTo(target) {
		return invalidTransition("inbound order "+o.ID, o.Status, target)
	}
	o.setStatus(target, now)
	return nil
}

func (o *InboundOrder) setStatus(target InboundStatus, now time.Time) {
	from := o.Status
	o.Status = target
	o.UpdatedAt = now
	o.record(&InboundStatusChangedEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        from,
		To:          target,
		ChangedAt:   now,
	})
}
