package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// AggregateEvents buffers events raised by an aggregate until the owning
// operation hands them to the EventSink.
type AggregateEvents struct {
	pending []DomainEvent
}

func (a *AggregateEvents) record(e DomainEvent) {
	a.pending = append(a.pending, e)
}

// PullEvents returns and clears the buffered events
func (a *AggregateEvents) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

// MovementRecordedEvent is raised for every ledger movement
type MovementRecordedEvent struct {
	Movement InventoryMovement `json:"movement"`
}

func (e *MovementRecordedEvent) EventType() string     { return "wms.inventory.movement-recorded" }
func (e *MovementRecordedEvent) AggregateID() string   { return e.Movement.RecordID }
func (e *MovementRecordedEvent) OccurredAt() time.Time { return e.Movement.OccurredAt }

// InboundStatusChangedEvent is raised on every inbound order transition
type InboundStatusChangedEvent struct {
	OrderID     string        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	From        InboundStatus `json:"from"`
	To          InboundStatus `json:"to"`
	ChangedAt   time.Time     `json:"changedAt"`
}

func (e *InboundStatusChangedEvent) EventType() string     { return "wms.inbound.status-changed" }
func (e *InboundStatusChangedEvent) AggregateID() string   { return e.OrderID }
func (e *InboundStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// InboundReceiptRecordedEvent is raised when units are received against a line
type InboundReceiptRecordedEvent struct {
	OrderID     string    `json:"orderId"`
	LineID      string    `json:"lineId"`
	ProductID   string    `json:"productId"`
	Quantity    int64     `json:"quantity"`
	RecordID    string    `json:"recordId"`
	OverReceipt bool      `json:"overReceipt"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

func (e *InboundReceiptRecordedEvent) EventType() string     { return "wms.inbound.receipt-recorded" }
func (e *InboundReceiptRecordedEvent) AggregateID() string   { return e.OrderID }
func (e *InboundReceiptRecordedEvent) OccurredAt() time.Time { return e.ReceivedAt }

// OutboundStatusChangedEvent is raised whenever an outbound order's status changes
type OutboundStatusChangedEvent struct {
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber"`
	WaveID      string         `json:"waveId,omitempty"`
	From        OutboundStatus `json:"from"`
	To          OutboundStatus `json:"to"`
	ChangedAt   time.Time      `json:"changedAt"`
}

func (e *OutboundStatusChangedEvent) EventType() string     { return "wms.outbound.status-changed" }
func (e *OutboundStatusChangedEvent) AggregateID() string   { return e.OrderID }
func (e *OutboundStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// PickTaskStatusChangedEvent is raised on every pick task transition
type PickTaskStatusChangedEvent struct {
	TaskID         string         `json:"taskId"`
	OrderID        string         `json:"orderId"`
	AllocationID   string         `json:"allocationId"`
	From           PickTaskStatus `json:"from"`
	To             PickTaskStatus `json:"to"`
	AssignedTo     string         `json:"assignedTo,omitempty"`
	PickedQuantity int64          `json:"pickedQuantity"`
	ChangedAt      time.Time      `json:"changedAt"`
}

func (e *PickTaskStatusChangedEvent) EventType() string     { return "wms.picking.task-status-changed" }
func (e *PickTaskStatusChangedEvent) AggregateID() string   { return e.TaskID }
func (e *PickTaskStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }

// WaveStatusChangedEvent is raised on every wave transition
type WaveStatusChangedEvent struct {
	WaveID     string     `json:"waveId"`
	WaveNumber string     `json:"waveNumber"`
	From       WaveStatus `json:"from"`
	To         WaveStatus `json:"to"`
	OrderCount int        `json:"orderCount"`
	ChangedAt  time.Time  `json:"changedAt"`
}

func (e *WaveStatusChangedEvent) EventType() string     { return "wms.wave.status-changed" }
func (e *WaveStatusChangedEvent) AggregateID() string   { return e.WaveID }
func (e *WaveStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
