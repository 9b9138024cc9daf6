package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/tracing"
)

const tracerName = "mongodb"

// Config holds MongoDB connection configuration
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64

	// Multi-document transactions need a replica set
	ReplicaSet string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "warehouse_core",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    5,
	}
}

// Client wraps the MongoDB client with the decimal codec, metrics and tracing
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	config   *Config
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// NewClient connects and pings the primary. m and logger may be nil.
func NewClient(ctx context.Context, config *Config, m *metrics.Metrics, logger *logging.Logger) (*Client, error) {
	clientOpts := options.Client().
		ApplyURI(config.URI).
		SetRegistry(NewRegistry()).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize)

	if config.ReplicaSet != "" {
		clientOpts.SetReplicaSet(config.ReplicaSet)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Client{
		client:   client,
		database: client.Database(config.Database),
		config:   config,
		metrics:  m,
		logger:   logger,
	}, nil
}

// Collection returns an instrumented collection handle
func (c *Client) Collection(name string) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: c.database.Collection(name),
		name:       name,
		database:   c.config.Database,
		metrics:    c.metrics,
		logger:     c.logger,
	}
}

// Database returns the database handle
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Client returns the underlying MongoDB client
func (c *Client) Client() *mongo.Client {
	return c.client
}

// Close disconnects the client
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// HealthCheck pings the primary
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, tracerName, "mongodb.ping",
		attribute.String("db.system", "mongodb"),
		attribute.String("db.namespace", c.config.Database),
	)
	err := c.client.Ping(ctx, readpref.Primary())
	tracing.EndSpan(span, err)
	return err
}

// WithTransaction runs fn in a multi-document transaction. A ctx that already
// carries a session joins it, so nested calls share one transaction.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "mongodb.transaction",
		attribute.String("db.system", "mongodb"),
		attribute.String("db.namespace", c.config.Database),
	)

	session, err := c.client.StartSession()
	if err != nil {
		err = fmt.Errorf("failed to start session: %w", err)
		tracing.EndSpan(span, err)
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	tracing.EndSpan(span, err)
	return err
}
