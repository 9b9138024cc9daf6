package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wms-platform/warehouse-core/internal/core"
	"github.com/wms-platform/warehouse-core/internal/domain"
)

// SeedFile is the YAML layout of a seed
type SeedFile struct {
	Tenant    string         `yaml:"tenant"`
	Products  []SeedProduct  `yaml:"products"`
	Locations []SeedLocation `yaml:"locations"`
	Stock     []SeedStock    `yaml:"stock"`
}

type SeedProduct struct {
	ID            string `yaml:"id"`
	SKU           string `yaml:"sku"`
	Barcode       string `yaml:"barcode"`
	Name          string `yaml:"name"`
	UnitOfMeasure string `yaml:"unitOfMeasure"`
	LotTracked    bool   `yaml:"lotTracked"`
	ExpiryTracked bool   `yaml:"expiryTracked"`
}

type SeedLocation struct {
	ID           string `yaml:"id"`
	WarehouseID  string `yaml:"warehouseId"`
	Code         string `yaml:"code"`
	Type         string `yaml:"type"`
	PickSequence int    `yaml:"pickSequence"`
	Inactive     bool   `yaml:"inactive"`
}

type SeedStock struct {
	WarehouseID string     `yaml:"warehouseId"`
	LocationID  string     `yaml:"locationId"`
	ProductID   string     `yaml:"productId"`
	LotNumber   string     `yaml:"lotNumber"`
	ExpiryDate  *time.Time `yaml:"expiryDate"`
	Quantity    int64      `yaml:"quantity"`
	UnitCost    string     `yaml:"unitCost"`
}

// Summary counts what a seed run wrote
type Summary struct {
	Products  int
	Locations int
	Stock     int
}

func parseSeed(r io.Reader) (*SeedFile, error) {
	var file SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if file.Tenant == "" {
		file.Tenant = "default"
	}
	for i, l := range file.Locations {
		if !domain.LocationType(l.Type).IsValid() {
			return nil, fmt.Errorf("location %d (%s): unknown type %q", i, l.ID, l.Type)
		}
	}
	return &file, nil
}

// applySeed writes the reference data and receives the opening stock through
// the ledger. Each stock line carries a deterministic idempotency key, so a
// second run replays instead of doubling quantities.
func applySeed(ctx context.Context, repos domain.Repositories, clock domain.Clock, file *SeedFile) (*Summary, error) {
	now := clock.Now()
	summary := &Summary{}

	for _, p := range file.Products {
		uom := p.UnitOfMeasure
		if uom == "" {
			uom = "each"
		}
		err := repos.Products.SaveProduct(ctx, &domain.Product{
			ID:            p.ID,
			TenantID:      file.Tenant,
			SKU:           p.SKU,
			Barcode:       p.Barcode,
			Name:          p.Name,
			UnitOfMeasure: uom,
			LotTracked:    p.LotTracked,
			ExpiryTracked: p.ExpiryTracked,
			CreatedAt:     now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save product %s: %w", p.ID, err)
		}
		summary.Products++
	}

	for _, l := range file.Locations {
		code := l.Code
		if code == "" {
			code = l.ID
		}
		err := repos.Locations.SaveLocation(ctx, &domain.Location{
			ID:           l.ID,
			TenantID:     file.Tenant,
			WarehouseID:  l.WarehouseID,
			Code:         code,
			Type:         domain.LocationType(l.Type),
			PickSequence: l.PickSequence,
			Active:       !l.Inactive,
			CreatedAt:    now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save location %s: %w", l.ID, err)
		}
		summary.Locations++
	}

	ledger := core.NewLedger(repos, clock)
	for i, s := range file.Stock {
		var unitCost *decimal.Decimal
		if s.UnitCost != "" {
			cost, err := decimal.NewFromString(s.UnitCost)
			if err != nil {
				return nil, fmt.Errorf("stock %d: invalid unit cost %q: %w", i, s.UnitCost, err)
			}
			unitCost = &cost
		}
		key := domain.RecordKey{
			TenantID:    file.Tenant,
			WarehouseID: s.WarehouseID,
			LocationID:  s.LocationID,
			ProductID:   s.ProductID,
			LotNumber:   s.LotNumber,
			ExpiryDate:  s.ExpiryDate,
		}
		_, err := ledger.Receive(ctx, core.ReceiveRequest{
			Key:      key,
			Quantity: s.Quantity,
			UnitCost: unitCost,
			Meta: domain.MovementMeta{
				Actor:          "seed",
				Reason:         "opening stock",
				ReferenceType:  "seed",
				IdempotencyKey: fmt.Sprintf("seed:%s:%s:%s:%s", s.WarehouseID, s.LocationID, s.ProductID, s.LotNumber),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("stock %d (%s at %s): %w", i, s.ProductID, s.LocationID, err)
		}
		summary.Stock++
	}
	return summary, nil
}
