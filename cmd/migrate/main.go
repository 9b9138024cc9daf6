package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/wms-platform/warehouse-core/internal/config"
	mongostore "github.com/wms-platform/warehouse-core/internal/infrastructure/mongodb"
	pgstore "github.com/wms-platform/warehouse-core/internal/infrastructure/postgres"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/mongodb"
	"github.com/wms-platform/warehouse-core/pkg/postgres"
)

// Schema tool. PostgreSQL: up | down | version | steps N | force V.
// MongoDB: up creates the collection indexes.

var (
	databaseURL = flag.String("database-url", "", "Database URL; defaults to postgres.url or mongodb.uri from the config")
	driver      = flag.String("driver", "", "postgres or mongodb; defaults to storage.driver from the config")
	timeout     = flag.Duration("timeout", 5*time.Minute, "Overall timeout")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [flags] up|down|version|steps N|force V\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	logger := logging.New(logging.DefaultConfig("warehouse-core-migrate"))
	if err := run(logger, flag.Args()); err != nil {
		logger.WithError(err).Error("Migration failed")
		os.Exit(1)
	}
}

func run(logger *logging.Logger, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("missing command")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	selected := cfg.Storage.Driver
	if *driver != "" {
		selected = *driver
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch selected {
	case config.DriverPostgres:
		url := cfg.Postgres.URL
		if *databaseURL != "" {
			url = *databaseURL
		}
		return runPostgres(ctx, logger, url, args)
	case config.DriverMongoDB:
		uri := cfg.MongoDB.URI
		if *databaseURL != "" {
			uri = *databaseURL
		}
		return runMongo(ctx, logger, uri, cfg.MongoDB.Database, args[0])
	default:
		return fmt.Errorf("driver %q has no schema to migrate", selected)
	}
}

func runPostgres(ctx context.Context, logger *logging.Logger, url string, args []string) error {
	if url == "" {
		return fmt.Errorf("postgres url is required")
	}
	pool, err := postgres.NewPool(ctx, &postgres.Config{DSN: url, MaxConns: 2, ConnectTimeout: 10 * time.Second}, nil, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := pgstore.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	switch args[0] {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d dirty=%t\n", version, dirty)
		return nil
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a number", args[0])
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", args[1], err)
		}
		if args[0] == "steps" {
			return migrator.Steps(n)
		}
		return migrator.Force(n)
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runMongo(ctx context.Context, logger *logging.Logger, uri, database, command string) error {
	if command != "up" {
		return fmt.Errorf("mongodb supports only up, got %q", command)
	}
	if uri == "" {
		return fmt.Errorf("mongodb uri is required")
	}
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = uri
	mongoConfig.Database = database

	client, err := mongodb.NewClient(ctx, mongoConfig, nil, logger)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	if err := mongostore.NewStore(client, "").EnsureIndexes(ctx); err != nil {
		return err
	}
	logger.Info("MongoDB indexes ensured", "database", database)
	return nil
}
