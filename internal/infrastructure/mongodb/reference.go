package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/warehouse-core/internal/domain"
)

type catalog struct {
	s *Store
}

func (c *catalog) GetProduct(ctx context.Context, tenantID, id string) (*domain.Product, error) {
	return getOne[domain.Product](ctx, c.s.products, "product", tenantID, id)
}

func (c *catalog) SaveProduct(ctx context.Context, p *domain.Product) error {
	_, err := c.s.products.ReplaceOne(ctx, bson.M{"_id": p.ID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return nil
}

func (c *catalog) GetLocation(ctx context.Context, tenantID, id string) (*domain.Location, error) {
	return getOne[domain.Location](ctx, c.s.locations, "location", tenantID, id)
}

func (c *catalog) SaveLocation(ctx context.Context, l *domain.Location) error {
	_, err := c.s.locations.ReplaceOne(ctx, bson.M{"_id": l.ID}, l, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save location %s: %w", l.ID, err)
	}
	return nil
}

type sequences struct {
	s *Store
}

type counter struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// Next increments the tenant's counter. Inside a transaction the counter
// document stays locked until commit, so numbers are gap free per tenant.
func (q *sequences) Next(ctx context.Context, tenantID, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := q.s.sequences.FindOneAndUpdate(ctx,
		bson.M{"_id": tenantID + "|" + name},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, writeError(err, "sequence", name)
	}
	return c.Value, nil
}

type eventSink struct {
	s *Store
}

func (e *eventSink) Record(ctx context.Context, events ...domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows, err := e.s.events.Rows(ctx, events)
	if err != nil {
		return err
	}
	return e.s.outbox.SaveAll(ctx, rows)
}
