package domain

import "time"

// LocationType classifies a warehouse slot
type LocationType string

const (
	LocationTypeReceiving  LocationType = "receiving"
	LocationTypeStorage    LocationType = "storage"
	LocationTypePicking    LocationType = "picking"
	LocationTypePacking    LocationType = "packing"
	LocationTypeShipping   LocationType = "shipping"
	LocationTypeStaging    LocationType = "staging"
	LocationTypeBulk       LocationType = "bulk"
	LocationTypeQuarantine LocationType = "quarantine"
)

// IsValid reports whether t is a known location type
func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypeReceiving, LocationTypeStorage, LocationTypePicking, LocationTypePacking,
		LocationTypeShipping, LocationTypeStaging, LocationTypeBulk, LocationTypeQuarantine:
		return true
	}
	return false
}

// Product is catalog reference data. The core reads products, it never mutates them.
type Product struct {
	ID            string    `bson:"_id" json:"id"`
	TenantID      string    `bson:"tenantId" json:"tenantId"`
	SKU           string    `bson:"sku" json:"sku"`
	Barcode       string    `bson:"barcode,omitempty" json:"barcode,omitempty"`
	Name          string    `bson:"name" json:"name"`
	UnitOfMeasure string    `bson:"unitOfMeasure" json:"unitOfMeasure"`
	LotTracked    bool      `bson:"lotTracked" json:"lotTracked"`
	SerialTracked bool      `bson:"serialTracked" json:"serialTracked"`
	ExpiryTracked bool      `bson:"expiryTracked" json:"expiryTracked"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// Location is warehouse setup reference data.
type Location struct {
	ID           string       `bson:"_id" json:"id"`
	TenantID     string       `bson:"tenantId" json:"tenantId"`
	WarehouseID  string       `bson:"warehouseId" json:"warehouseId"`
	Code         string       `bson:"code" json:"code"`
	Type         LocationType `bson:"type" json:"type"`
	PickSequence int          `bson:"pickSequence" json:"pickSequence"`
	Active       bool         `bson:"active" json:"active"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
}
