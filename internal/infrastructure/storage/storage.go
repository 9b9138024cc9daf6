// Package storage opens the store selected by storage.driver
package storage

import (
	"context"
	"time"

	"github.com/wms-platform/warehouse-core/internal/config"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure/memory"
	mongostore "github.com/wms-platform/warehouse-core/internal/infrastructure/mongodb"
	pgstore "github.com/wms-platform/warehouse-core/internal/infrastructure/postgres"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/mongodb"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
	"github.com/wms-platform/warehouse-core/pkg/postgres"
)

// Backend is an open store
type Backend interface {
	Repositories() domain.Repositories
	Outbox() outbox.Repository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to the configured store. MongoDB indexes are created and, with
// postgres.auto_migrate, pending PostgreSQL migrations are applied.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongoDB:
		client, err := mongodb.NewClient(ctx, &mongodb.Config{
			URI:            cfg.MongoDB.URI,
			Database:       cfg.MongoDB.Database,
			ConnectTimeout: cfg.MongoDB.ConnectTimeout,
			MaxPoolSize:    cfg.MongoDB.MaxPoolSize,
		}, m, logger)
		if err != nil {
			return nil, err
		}
		st := mongostore.NewStore(client, cfg.Kafka.Topic)
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, err
		}
		logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)
		return &mongoBackend{Store: st, client: client}, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, &postgres.Config{
			DSN:            cfg.Postgres.URL,
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectTimeout: 10 * time.Second,
		}, m, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.AutoMigrate {
			if err := migrateUp(pool, logger); err != nil {
				pool.Close()
				return nil, err
			}
		}
		logger.Info("Connected to PostgreSQL")
		return &postgresBackend{Store: pgstore.NewStore(pool, cfg.Kafka.Topic), pool: pool}, nil

	default:
		logger.Warn("Using the in-memory store; data is lost on restart")
		return &memoryBackend{Store: memory.NewStore(cfg.Kafka.Topic)}, nil
	}
}

func migrateUp(pool *postgres.Pool, logger *logging.Logger) error {
	migrator, err := pgstore.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

type memoryBackend struct {
	*memory.Store
}

func (*memoryBackend) HealthCheck(context.Context) error { return nil }
func (*memoryBackend) Close(context.Context) error       { return nil }

type mongoBackend struct {
	*mongostore.Store
	client *mongodb.Client
}

func (b *mongoBackend) Close(ctx context.Context) error { return b.client.Close(ctx) }

type postgresBackend struct {
	*pgstore.Store
	pool *postgres.Pool
}

func (b *postgresBackend) Close(context.Context) error {
	b.pool.Close()
	return nil
}
