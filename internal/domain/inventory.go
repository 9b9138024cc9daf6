package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InventoryStatus is the disposition of an inventory record
type InventoryStatus string

const (
	InventoryStatusAvailable  InventoryStatus = "available"
	InventoryStatusHold       InventoryStatus = "hold"
	InventoryStatusDamaged    InventoryStatus = "damaged"
	InventoryStatusQuarantine InventoryStatus = "quarantine"
	InventoryStatusExpired    InventoryStatus = "expired"
)

func (s InventoryStatus) String() string { return string(s) }

// IsValid reports whether s is a known inventory status
func (s InventoryStatus) IsValid() bool {
	switch s {
	case InventoryStatusAvailable, InventoryStatusHold, InventoryStatusDamaged,
		InventoryStatusQuarantine, InventoryStatusExpired:
		return true
	}
	return false
}

const unitCostPlaces = 4

// RecordKey uniquely identifies an inventory record:
// (tenant, warehouse, location, product, lot, expiry).
type RecordKey struct {
	TenantID    string     `json:"tenantId"`
	WarehouseID string     `json:"warehouseId"`
	LocationID  string     `json:"locationId"`
	ProductID   string     `json:"productId"`
	LotNumber   string     `json:"lotNumber,omitempty"`
	ExpiryDate  *time.Time `json:"expiryDate,omitempty"`
}

// Validate checks that every identifying component is present
func (k RecordKey) Validate() error {
	switch {
	case k.TenantID == "":
		return invalidArgument("tenant id is required")
	case k.WarehouseID == "":
		return invalidArgument("warehouse id is required")
	case k.LocationID == "":
		return invalidArgument("location id is required")
	case k.ProductID == "":
		return invalidArgument("product id is required")
	}
	return nil
}

// Normalized truncates the expiry date to a UTC calendar day
func (k RecordKey) Normalized() RecordKey {
	k.ExpiryDate = NormalizeDate(k.ExpiryDate)
	return k
}

// String renders the canonical form used for uniqueness in stores
func (k RecordKey) String() string {
	expiry := ""
	if d := NormalizeDate(k.ExpiryDate); d != nil {
		expiry = d.Format(time.DateOnly)
	}
	return strings.Join([]string{k.TenantID, k.WarehouseID, k.LocationID, k.ProductID, k.LotNumber, expiry}, "|")
}

// NormalizeDate truncates t to midnight UTC. Nil stays nil.
func NormalizeDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

// InventoryRecord is the unit of stock. After every mutation
// Available == OnHand - Reserved and OnHand >= Reserved >= 0.
type InventoryRecord struct {
	ID           string          `bson:"_id" json:"id"`
	TenantID     string          `bson:"tenantId" json:"tenantId"`
	WarehouseID  string          `bson:"warehouseId" json:"warehouseId"`
	LocationID   string          `bson:"locationId" json:"locationId"`
	ProductID    string          `bson:"productId" json:"productId"`
	LotNumber    string          `bson:"lotNumber" json:"lotNumber,omitempty"`
	ExpiryDate   *time.Time      `bson:"expiryDate,omitempty" json:"expiryDate,omitempty"`
	RecordKey    string          `bson:"recordKey" json:"recordKey"`
	LocationType LocationType    `bson:"locationType" json:"locationType"`
	PickSequence int             `bson:"pickSequence" json:"pickSequence"`
	Status       InventoryStatus `bson:"status" json:"status"`
	OnHand       int64           `bson:"onHand" json:"onHand"`
	Reserved     int64           `bson:"reserved" json:"reserved"`
	Available    int64           `bson:"available" json:"available"`
	UnitCost     decimal.Decimal `bson:"unitCost" json:"unitCost"`
	ReceivedAt   time.Time       `bson:"receivedAt" json:"receivedAt"`
	Version      int64           `bson:"version" json:"version"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// NewInventoryRecord creates an empty record for key at location
func NewInventoryRecord(id string, key RecordKey, location *Location, now time.Time) *InventoryRecord {
	key = key.Normalized()
	rec := &InventoryRecord{
		ID:          id,
		TenantID:    key.TenantID,
		WarehouseID: key.WarehouseID,
		LocationID:  key.LocationID,
		ProductID:   key.ProductID,
		LotNumber:   key.LotNumber,
		ExpiryDate:  key.ExpiryDate,
		RecordKey:   key.String(),
		Status:      InventoryStatusAvailable,
		UnitCost:    decimal.Zero,
		ReceivedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if location != nil {
		rec.LocationType = location.Type
		rec.PickSequence = location.PickSequence
	}
	return rec
}

// Key returns the identifying tuple of the record
func (r *InventoryRecord) Key() RecordKey {
	return RecordKey{
		TenantID:    r.TenantID,
		WarehouseID: r.WarehouseID,
		LocationID:  r.LocationID,
		ProductID:   r.ProductID,
		LotNumber:   r.LotNumber,
		ExpiryDate:  r.ExpiryDate,
	}
}

// Receive adds quantity to on-hand and, when a unit cost is given, folds it
// into the weighted average cost.
func (r *InventoryRecord) Receive(quantity int64, unitCost *decimal.Decimal, now time.Time) error {
	if quantity <= 0 {
		return invalidQuantity("receive quantity must be positive, got %d", quantity)
	}
	if unitCost != nil {
		if unitCost.IsNegative() {
			return invalidArgument("unit cost cannot be negative, got %s", unitCost)
		}
		current := decimal.NewFromInt(r.OnHand).Mul(r.UnitCost)
		incoming := decimal.NewFromInt(quantity).Mul(*unitCost)
		r.UnitCost = current.Add(incoming).Div(decimal.NewFromInt(r.OnHand + quantity)).Round(unitCostPlaces)
	}
	r.OnHand += quantity
	r.touch(now)
	return nil
}

// Reserve moves quantity from available to reserved
func (r *InventoryRecord) Reserve(quantity int64, now time.Time) error {
	if quantity <= 0 {
		return invalidQuantity("reserve quantity must be positive, got %d", quantity)
	}
	if r.Status != InventoryStatusAvailable {
		return fmt.Errorf("%w: record %s is %s", ErrInvalidState, r.ID, r.Status)
	}
	if r.Available < quantity {
		return fmt.Errorf("%w: record %s has %d available, %d requested", ErrInsufficientAvailable, r.ID, r.Available, quantity)
	}
	r.Reserved += quantity
	r.touch(now)
	return nil
}

// Release returns reserved quantity to available
func (r *InventoryRecord) Release(quantity int64, now time.Time) error {
	if quantity <= 0 {
		return invalidQuantity("release quantity must be positive, got %d", quantity)
	}
	if quantity > r.Reserved {
		return invalidQuantity("release of %d exceeds reserved %d on record %s", quantity, r.Reserved, r.ID)
	}
	r.Reserved -= quantity
	r.touch(now)
	return nil
}

// Consume removes reserved quantity from stock on shipment
func (r *InventoryRecord) Consume(quantity int64, now time.Time) error {
	if quantity <= 0 {
		return invalidQuantity("consume quantity must be positive, got %d", quantity)
	}
	if r.Reserved < quantity {
		return fmt.Errorf("%w: record %s has %d reserved, %d requested", ErrInsufficientReserved, r.ID, r.Reserved, quantity)
	}
	r.OnHand -= quantity
	r.Reserved -= quantity
	r.touch(now)
	return nil
}

// Adjust applies a manual on-hand correction. The result may not drop below reserved.
func (r *InventoryRecord) Adjust(delta int64, now time.Time) error {
	if delta == 0 {
		return invalidQuantity("adjustment delta must be non-zero")
	}
	if r.OnHand+delta < r.Reserved {
		return fmt.Errorf("%w: on hand %d%+d would fall below reserved %d", ErrInvalidAdjustment, r.OnHand, delta, r.Reserved)
	}
	r.OnHand += delta
	r.touch(now)
	return nil
}

// Withdraw removes available quantity for a transfer to another location
func (r *InventoryRecord) Withdraw(quantity int64, now time.Time) error {
	if quantity <= 0 {
		return invalidQuantity("transfer quantity must be positive, got %d", quantity)
	}
	if r.Available < quantity {
		return fmt.Errorf("%w: record %s has %d available, %d requested", ErrInsufficientAvailable, r.ID, r.Available, quantity)
	}
	r.OnHand -= quantity
	r.touch(now)
	return nil
}

// SetStatus changes the disposition of the record
func (r *InventoryRecord) SetStatus(status InventoryStatus, now time.Time) error {
	if !status.IsValid() {
		return invalidArgument("unknown inventory status %q", status)
	}
	if status == r.Status {
		return nil
	}
	r.Status = status
	r.touch(now)
	return nil
}

// CheckInvariants verifies the quantity invariants
func (r *InventoryRecord) CheckInvariants() error {
	if r.Reserved < 0 || r.OnHand < r.Reserved || r.Available != r.OnHand-r.Reserved {
		return fmt.Errorf("record %s violates quantity invariants: on_hand=%d reserved=%d available=%d",
			r.ID, r.OnHand, r.Reserved, r.Available)
	}
	return nil
}

// Valuation is on-hand quantity priced at the record's unit cost
func (r *InventoryRecord) Valuation() decimal.Decimal {
	return decimal.NewFromInt(r.OnHand).Mul(r.UnitCost)
}

func (r *InventoryRecord) touch(now time.Time) {
	r.Available = r.OnHand - r.Reserved
	r.UpdatedAt = now
}
