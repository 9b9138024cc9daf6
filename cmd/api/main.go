package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wms-platform/warehouse-core/internal/api/handlers"
	"github.com/wms-platform/warehouse-core/internal/application"
	"github.com/wms-platform/warehouse-core/internal/config"
	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/internal/infrastructure/storage"
	"github.com/wms-platform/warehouse-core/pkg/idempotency"
	"github.com/wms-platform/warehouse-core/pkg/kafka"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/middleware"
	"github.com/wms-platform/warehouse-core/pkg/outbox"
	"github.com/wms-platform/warehouse-core/pkg/resilience"
	"github.com/wms-platform/warehouse-core/pkg/schema"
	"github.com/wms-platform/warehouse-core/pkg/tracing"
)

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), signalCh); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, signalCh <-chan os.Signal) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := logging.DefaultConfig(cfg.ServiceName)
	logConfig.Level = logging.LogLevel(cfg.Log.Level)
	logConfig.Environment = cfg.Log.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting warehouse-core API", "storage", cfg.Storage.Driver)

	tracingConfig := tracing.DefaultConfig(cfg.ServiceName)
	tracingConfig.Enabled = cfg.Tracing.Enabled
	tracingConfig.OTLPEndpoint = cfg.Tracing.OTLPEndpoint
	tracingConfig.SampleRate = cfg.Tracing.SampleRate
	tracingConfig.Environment = cfg.Log.Environment

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName))

	st, err := storage.Open(ctx, cfg, m, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open store")
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			logger.WithError(err).Warn("Failed to close store")
		}
	}()

	producer, closeProducer := newEventPublisher(cfg, m, logger)
	defer closeProducer()

	publisher := outbox.NewPublisher(st.Outbox(), producer, logger, m, &outbox.PublisherConfig{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		Retention:    cfg.Outbox.Retention,
	})
	if err := publisher.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := publisher.Stop(); err != nil {
			logger.WithError(err).Warn("Failed to stop outbox publisher")
		}
	}()

	metadata, err := loadMetadataSchema(cfg.Metadata.Schema)
	if err != nil {
		return err
	}

	exec := application.NewExecutor(logger, m, &resilience.RetryConfig{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: 2.0,
	})
	services := application.NewServices(st.Repositories(), domain.SystemClock{}, exec, metadata)

	tenantConfig := middleware.DefaultTenantConfig()
	tenantConfig.Required = cfg.Server.RequireTenant

	router := handlers.NewRouter(handlers.RouterConfig{
		ServiceName:    cfg.ServiceName,
		Services:       services,
		Logger:         logger,
		Metrics:        m,
		Tenant:         tenantConfig,
		Idempotency:    idempotency.DefaultConfig(),
		EnableTracing:  cfg.Tracing.Enabled,
		TrustedProxies: cfg.Server.TrustedProxies,
		Ready:          st.HealthCheck,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", cfg.Addr())

	<-signalCh
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
	return nil
}

// newEventPublisher returns the Kafka producer behind a circuit breaker, or a
// log-only publisher when Kafka is disabled
func newEventPublisher(cfg *config.Config, m *metrics.Metrics, logger *logging.Logger) (outbox.EventPublisher, func()) {
	if !cfg.Kafka.Enabled {
		logger.Info("Kafka disabled, outbox events are logged only")
		return outbox.NewLogPublisher(logger), func() {}
	}

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = cfg.Kafka.Brokers
	kafkaConfig.ClientID = cfg.ServiceName
	producer := kafka.NewProducer(kafkaConfig)
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)

	return kafka.NewInstrumentedProducer(producer, m, logger), func() {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close Kafka producer")
		}
	}
}

func loadMetadataSchema(path string) (*schema.Validator, error) {
	if path == "" {
		return schema.NewDefaultValidator(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata schema: %w", err)
	}
	return schema.NewValidator(raw)
}
