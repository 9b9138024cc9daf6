package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/tracing"
)

// InstrumentedCollection wraps a MongoDB Collection with metrics, tracing and query logs
type InstrumentedCollection struct {
	collection *mongo.Collection
	name       string
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.name
}

// Indexes returns the index view of the collection
func (c *InstrumentedCollection) Indexes() mongo.IndexView {
	return c.collection.Indexes()
}

// startSpan starts a client span for a database operation
func (c *InstrumentedCollection) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	attrs := append(tracing.DatabaseSpanAttributes("mongodb", operation, c.name),
		attribute.String("db.namespace", c.database))
	return tracing.StartSpan(ctx, tracerName, "mongodb."+operation, attrs...)
}

// recordMetrics records operation metrics
func (c *InstrumentedCollection) recordMetrics(ctx context.Context, operation string, success bool, duration time.Duration, rowsAffected int64) {
	if c.metrics != nil {
		c.metrics.RecordStoreOperation(c.name, operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.name, operation, duration, success, rowsAffected)
	}
}

// observe runs op inside a span and records its outcome. A missing document
// is not a failure.
func (c *InstrumentedCollection) observe(ctx context.Context, operation string, op func(ctx context.Context) (int64, error)) error {
	start := time.Now()
	ctx, span := c.startSpan(ctx, operation)

	rows, err := op(ctx)
	success := err == nil || errors.Is(err, mongo.ErrNoDocuments)
	c.recordMetrics(ctx, operation, success, time.Since(start), rows)

	if success {
		span.SetAttributes(attribute.Int64("db.rows_affected", rows))
		tracing.EndSpan(span, nil)
	} else {
		tracing.EndSpan(span, err)
	}
	return err
}

// InsertOne inserts a single document
func (c *InstrumentedCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	var result *mongo.InsertOneResult
	err := c.observe(ctx, "insertOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.InsertOne(ctx, document, opts...)
		if err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result, err
}

// InsertMany inserts multiple documents
func (c *InstrumentedCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	var result *mongo.InsertManyResult
	err := c.observe(ctx, "insertMany", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.InsertMany(ctx, documents, opts...)
		if err != nil || result == nil {
			return 0, err
		}
		return int64(len(result.InsertedIDs)), nil
	})
	return result, err
}

// FindOne finds a single document
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	_ = c.observe(ctx, "findOne", func(ctx context.Context) (int64, error) {
		result = c.collection.FindOne(ctx, filter, opts...)
		if err := result.Err(); err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result
}

// Find finds multiple documents. Rows are not counted until the cursor is drained.
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	var cursor *mongo.Cursor
	err := c.observe(ctx, "find", func(ctx context.Context) (int64, error) {
		var err error
		cursor, err = c.collection.Find(ctx, filter, opts...)
		return 0, err
	})
	return cursor, err
}

// ReplaceOne replaces a single document
func (c *InstrumentedCollection) ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "replaceOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.ReplaceOne(ctx, filter, replacement, opts...)
		if err != nil || result == nil {
			return 0, err
		}
		return result.MatchedCount, nil
	})
	return result, err
}

// UpdateOne updates a single document
func (c *InstrumentedCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	var result *mongo.UpdateResult
	err := c.observe(ctx, "updateOne", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.UpdateOne(ctx, filter, update, opts...)
		if err != nil || result == nil {
			return 0, err
		}
		return result.ModifiedCount + result.UpsertedCount, nil
	})
	return result, err
}

// FindOneAndUpdate atomically updates a document and returns it
func (c *InstrumentedCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	var result *mongo.SingleResult
	_ = c.observe(ctx, "findOneAndUpdate", func(ctx context.Context) (int64, error) {
		result = c.collection.FindOneAndUpdate(ctx, filter, update, opts...)
		if err := result.Err(); err != nil {
			return 0, err
		}
		return 1, nil
	})
	return result
}

// DeleteMany deletes multiple documents
func (c *InstrumentedCollection) DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	var result *mongo.DeleteResult
	err := c.observe(ctx, "deleteMany", func(ctx context.Context) (int64, error) {
		var err error
		result, err = c.collection.DeleteMany(ctx, filter, opts...)
		if err != nil || result == nil {
			return 0, err
		}
		return result.DeletedCount, nil
	})
	return result, err
}

// CountDocuments counts documents
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	var count int64
	err := c.observe(ctx, "countDocuments", func(ctx context.Context) (int64, error) {
		var err error
		count, err = c.collection.CountDocuments(ctx, filter, opts...)
		return count, err
	})
	return count, err
}
