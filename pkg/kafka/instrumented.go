package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/wms-platform/warehouse-core/pkg/cloudevents"
	"github.com/wms-platform/warehouse-core/pkg/logging"
	"github.com/wms-platform/warehouse-core/pkg/metrics"
	"github.com/wms-platform/warehouse-core/pkg/resilience"
	"github.com/wms-platform/warehouse-core/pkg/tracing"
)

// EventPublisher is what the outbox publisher needs from a broker
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// InstrumentedProducer adds tracing, metrics, logging and a circuit breaker to a publisher
type InstrumentedProducer struct {
	next    EventPublisher
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewInstrumentedProducer wraps next
func NewInstrumentedProducer(next EventPublisher, m *metrics.Metrics, logger *logging.Logger) *InstrumentedProducer {
	var slogger *slog.Logger
	if logger != nil {
		slogger = logger.Logger
	}
	return &InstrumentedProducer{
		next:    next,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("kafka-producer"), slogger),
		metrics: m,
		logger:  logger,
	}
}

// PublishEvent publishes event through the breaker and records the outcome
func (p *InstrumentedProducer) PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "kafka-producer", "kafka.publish",
		tracing.MessagingSpanAttributes("kafka", topic, "publish")...)

	carrier := tracing.MapCarrier{}
	tracing.InjectTraceContext(ctx, carrier)
	if tp := carrier.Get("traceparent"); tp != "" {
		event.TraceParent = tp
		event.TraceState = carrier.Get("tracestate")
	}

	_, err := p.breaker.Execute(ctx, func() (any, error) {
		return nil, p.next.PublishEvent(ctx, topic, event)
	})
	duration := time.Since(start)

	if p.metrics != nil {
		p.metrics.RecordKafkaPublish(topic, event.Type, err == nil, duration)
		p.metrics.SetCircuitBreakerState(p.breaker.Name(), int(p.breaker.State()))
	}
	if p.logger != nil {
		p.logger.KafkaPublish(ctx, topic, event.Type, err == nil, duration)
	}
	tracing.EndSpan(span, err)
	return err
}

// BreakerStatus reports the circuit breaker counters
func (p *InstrumentedProducer) BreakerStatus() resilience.CircuitBreakerStatus {
	return p.breaker.Status()
}
