package domain

import "time"

// MovementType classifies a ledger movement
type MovementType string

const (
	MovementTypeReceive    MovementType = "receive"
	MovementTypePutaway    MovementType = "putaway"
	MovementTypeReserve    MovementType = "reserve"
	MovementTypeRelease    MovementType = "release"
	MovementTypePick       MovementType = "pick"
	MovementTypeTransfer   MovementType = "transfer"
	MovementTypeAdjustment MovementType = "adjustment"
	MovementTypeCount      MovementType = "count"
	MovementTypeShip       MovementType = "ship"
	MovementTypeStatus     MovementType = "status"
)

// MovementMeta carries the audit context of a ledger call
type MovementMeta struct {
	Actor          string `json:"actor,omitempty"`
	Reason         string `json:"reason,omitempty"`
	ReferenceType  string `json:"referenceType,omitempty"`
	ReferenceID    string `json:"referenceId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// InventoryMovement is the append-only audit row written with every ledger mutation.
// OnHandDelta and ReservedDelta are signed; Quantity is the unsigned amount moved.
type InventoryMovement struct {
	ID             string       `bson:"_id" json:"id"`
	TenantID       string       `bson:"tenantId" json:"tenantId"`
	RecordID       string       `bson:"recordId" json:"recordId"`
	WarehouseID    string       `bson:"warehouseId" json:"warehouseId"`
	ProductID      string       `bson:"productId" json:"productId"`
	LotNumber      string       `bson:"lotNumber,omitempty" json:"lotNumber,omitempty"`
	Type           MovementType `bson:"type" json:"type"`
	Quantity       int64        `bson:"quantity" json:"quantity"`
	OnHandDelta    int64        `bson:"onHandDelta" json:"onHandDelta"`
	ReservedDelta  int64        `bson:"reservedDelta" json:"reservedDelta"`
	OnHandAfter    int64        `bson:"onHandAfter" json:"onHandAfter"`
	ReservedAfter  int64        `bson:"reservedAfter" json:"reservedAfter"`
	FromLocationID string       `bson:"fromLocationId,omitempty" json:"fromLocationId,omitempty"`
	ToLocationID   string       `bson:"toLocationId,omitempty" json:"toLocationId,omitempty"`
	CounterpartID  string       `bson:"counterpartId,omitempty" json:"counterpartId,omitempty"`
	Actor          string       `bson:"actor,omitempty" json:"actor,omitempty"`
	Reason         string       `bson:"reason,omitempty" json:"reason,omitempty"`
	ReferenceType  string       `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	ReferenceID    string       `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	IdempotencyKey string       `bson:"idempotencyKey,omitempty" json:"idempotencyKey,omitempty"`
	OccurredAt     time.Time    `bson:"occurredAt" json:"occurredAt"`
}

// NewMovement builds a movement for rec after the mutation has been applied to it
func NewMovement(id string, rec *InventoryRecord, movementType MovementType, quantity, onHandDelta, reservedDelta int64, meta MovementMeta, now time.Time) *InventoryMovement {
	return &InventoryMovement{
		ID:             id,
		TenantID:       rec.TenantID,
		RecordID:       rec.ID,
		WarehouseID:    rec.WarehouseID,
		ProductID:      rec.ProductID,
		LotNumber:      rec.LotNumber,
		Type:           movementType,
		Quantity:       quantity,
		OnHandDelta:    onHandDelta,
		ReservedDelta:  reservedDelta,
		OnHandAfter:    rec.OnHand,
		ReservedAfter:  rec.Reserved,
		ToLocationID:   rec.LocationID,
		Actor:          meta.Actor,
		Reason:         meta.Reason,
		ReferenceType:  meta.ReferenceType,
		ReferenceID:    meta.ReferenceID,
		IdempotencyKey: meta.IdempotencyKey,
		OccurredAt:     now,
	}
}
