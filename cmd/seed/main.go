package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/wms-platform/warehouse-core/internal/config"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure/storage"
	"github.com/wms-platform/warehouse-core/pkg/logging"
)

// Loads products, locations and opening stock from a YAML file into the
// configured store. Re-running the same file is safe.

var (
	seedFile = flag.String("file", "", "Seed file (YAML)")
	tenantID = flag.String("tenant", "", "Overrides the tenant named in the seed file")
	timeout  = flag.Duration("timeout", 2*time.Minute, "Overall timeout")
)

func main() {
	flag.Parse()

	logger := logging.New(logging.DefaultConfig("warehouse-core-seed"))
	if err := run(logger); err != nil {
		logger.WithError(err).Error("Seed failed")
		os.Exit(1)
	}
}

func run(logger *logging.Logger) error {
	if *seedFile == "" {
		flag.Usage()
		return fmt.Errorf("-file is required")
	}

	f, err := os.Open(*seedFile)
	if err != nil {
		return err
	}
	defer f.Close()

	file, err := parseSeed(f)
	if err != nil {
		return err
	}
	if *tenantID != "" {
		file.Tenant = *tenantID
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	st, err := storage.Open(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	summary, err := applySeed(ctx, st.Repositories(), domain.SystemClock{}, file)
	if err != nil {
		return err
	}

	logger.Info("Seed applied",
		"tenant", file.Tenant,
		"products", summary.Products,
		"locations", summary.Locations,
		"stock", summary.Stock,
	)
	return nil
}
