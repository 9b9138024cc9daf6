// Package application is the use-case layer between the HTTP handlers and the
// warehouse core. It validates commands, retries lost optimistic-concurrency
// races, maps domain errors to API errors and carries logging, metrics and
// tracing, none of which the core does itself.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wms-platform/warehouse-core/internal/domain"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/resilience"
	"github.com/wms-platform/warehouse-core/pkg/tracing"
)

const tracerName = "warehouse-core/application"

// Executor runs use cases with retries, spans and error mapping
type Executor struct {
	logger  *logging.Logger
	metrics *metrics.Metrics
	retry   resilience.RetryConfig
}

// NewExecutor creates an Executor. m may be nil; a nil retry config uses the defaults.
func NewExecutor(logger *logging.Logger, m *metrics.Metrics, retry *resilience.RetryConfig) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	return &Executor{logger: logger.WithComponent("application"), metrics: m, retry: *retry}
}

// execute runs fn, retrying it while it loses concurrent-modification races.
// The returned error is always an *errors.AppError.
func execute[T any](ctx context.Context, e *Executor, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, operation)
	start := time.Now()

	config := e.retry
	config.RetryableErrors = func(err error) bool {
		return errors.Is(err, domain.ErrConcurrentModification)
	}
	config.OnRetry = func(attempt int, err error) {
		if e.metrics != nil {
			e.metrics.RecordConflictRetry(operation)
		}
		e.logger.WithContext(ctx).Debug("Retrying after concurrent modification",
			"operation", operation, "attempt", attempt, "error", err)
	}

	result, err := resilience.RetryWithResult(ctx, &config, func() (T, error) {
		return fn(ctx)
	})
	tracing.EndSpan(span, err)

	if err != nil {
		appErr := MapError(err)
		log := e.logger.WithContext(ctx).WithError(err)
		if appErr.IsClientError() {
			log.Warn("Operation rejected", "operation", operation, "code", appErr.Code)
		} else {
			log.Error("Operation failed", "operation", operation, "code", appErr.Code)
		}
		e.logger.Performance(ctx, operation, time.Since(start), false, nil)
		var zero T
		return zero, appErr
	}

	e.logger.Performance(ctx, operation, time.Since(start), true, nil)
	return result, nil
}

func (e *Executor) movement(ctx context.Context, recordID string, movementType domain.MovementType, quantity, onHandDelta, reservedDelta int64) {
	if e.metrics != nil {
		e.metrics.RecordMovement(string(movementType), quantity)
	}
	e.logger.Movement(ctx, string(movementType), recordID, onHandDelta, reservedDelta)
}

func (e *Executor) transition(ctx context.Context, entity, id string, from, to fmt.Stringer) {
	if from.String() == to.String() {
		return
	}
	if e.metrics != nil {
		e.metrics.RecordTransition(entity, to.String())
	}
	e.logger.Transition(ctx, entity, id, from.String(), to.String())
}

func (e *Executor) audit(ctx context.Context, action, resource, resourceID string, details map[string]any) {
	e.logger.Audit(ctx, action, resource, resourceID, actor(ctx), details)
}
