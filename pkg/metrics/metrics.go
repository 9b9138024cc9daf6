package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector exported by the warehouse core
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Store
	StoreOperations        *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec
	ConflictRetries        *prometheus.CounterVec

	// Kafka and outbox
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec
	OutboxPending        prometheus.Gauge
	OutboxRetries        *prometheus.CounterVec

	// Business
	MovementsTotal      *prometheus.CounterVec
	MovementUnits       *prometheus.CounterVec
	AllocationShortfall *prometheus.CounterVec
	StatusTransitions   *prometheus.CounterVec
	PickTasksCompleted  *prometheus.CounterVec
	PickShortfallUnits  prometheus.Counter
	CircuitBreakerState *prometheus.GaugeVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{ServiceName: serviceName, Namespace: "wms"}
}

// New creates a Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	constLabels := prometheus.Labels{"service": config.ServiceName}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: name, Help: help, ConstLabels: constLabels}, labels)
		registry.MustRegister(c)
		return c
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		h := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: name, Help: help, Buckets: buckets, ConstLabels: constLabels}, labels)
		registry.MustRegister(h)
		return h
	}
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: name, Help: help, ConstLabels: constLabels})
		registry.MustRegister(g)
		return g
	}

	m := &Metrics{serviceName: config.ServiceName, registry: registry}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests", "method", "path", "status")
	m.HTTPRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds",
		[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}, "method", "path")
	m.HTTPRequestsInFlight = gauge("http_requests_in_flight", "Number of HTTP requests currently being processed")

	m.StoreOperations = counter("store_operations_total", "Store operations by collection and outcome", "collection", "operation", "status")
	m.StoreOperationDuration = histogram("store_operation_duration_seconds", "Store operation duration in seconds",
		[]float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1}, "collection", "operation")
	m.ConflictRetries = counter("conflict_retries_total", "Operations retried after a concurrent modification", "operation")

	m.KafkaEventsPublished = counter("kafka_events_published_total", "Total number of Kafka events published", "topic", "event_type", "status")
	m.KafkaPublishDuration = histogram("kafka_publish_duration_seconds", "Kafka publish duration in seconds",
		[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}, "topic")
	m.OutboxPending = gauge("outbox_pending_events", "Unpublished events seen by the last outbox poll")
	m.OutboxRetries = counter("outbox_retries_total", "Outbox publish attempts that failed and will be retried", "event_type")

	m.MovementsTotal = counter("inventory_movements_total", "Ledger movements written", "type")
	m.MovementUnits = counter("inventory_movement_units_total", "Units moved by ledger movements", "type")
	m.AllocationShortfall = counter("allocation_shortfall_units_total", "Units an allocate call could not cover", "warehouse")
	m.StatusTransitions = counter("status_transitions_total", "Lifecycle transitions by entity and target status", "entity", "to")
	m.PickTasksCompleted = counter("pick_tasks_completed_total", "Completed pick tasks", "short")
	m.PickShortfallUnits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "pick_shortfall_units_total", Help: "Units not found at pick time", ConstLabels: constLabels,
	})
	registry.MustRegister(m.PickShortfallUnits)

	m.CircuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)", ConstLabels: constLabels,
	}, []string{"name"})
	registry.MustRegister(m.CircuitBreakerState)

	return m
}

// Handler returns the HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStoreOperation records a store round trip
func (m *Metrics) RecordStoreOperation(collection, operation string, success bool, duration time.Duration) {
	m.StoreOperations.WithLabelValues(collection, operation, status(success)).Inc()
	m.StoreOperationDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// RecordConflictRetry counts a retry after ErrConcurrentModification
func (m *Metrics) RecordConflictRetry(operation string) {
	m.ConflictRetries.WithLabelValues(operation).Inc()
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(topic, eventType, status(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// SetOutboxPending sets the number of pending outbox events
func (m *Metrics) SetOutboxPending(count int) {
	m.OutboxPending.Set(float64(count))
}

// RecordOutboxRetry counts a failed outbox publish
func (m *Metrics) RecordOutboxRetry(eventType string) {
	m.OutboxRetries.WithLabelValues(eventType).Inc()
}

// RecordMovement counts a ledger movement
func (m *Metrics) RecordMovement(movementType string, quantity int64) {
	m.MovementsTotal.WithLabelValues(movementType).Inc()
	m.MovementUnits.WithLabelValues(movementType).Add(float64(quantity))
}

// RecordAllocationShortfall counts units left backordered by an allocate call
func (m *Metrics) RecordAllocationShortfall(warehouseID string, units int64) {
	if units > 0 {
		m.AllocationShortfall.WithLabelValues(warehouseID).Add(float64(units))
	}
}

// RecordTransition counts a lifecycle transition
func (m *Metrics) RecordTransition(entity, to string) {
	m.StatusTransitions.WithLabelValues(entity, to).Inc()
}

// RecordPickCompleted counts a completed pick task and its shortfall
func (m *Metrics) RecordPickCompleted(shortUnits int64) {
	m.PickTasksCompleted.WithLabelValues(strconv.FormatBool(shortUnits > 0)).Inc()
	if shortUnits > 0 {
		m.PickShortfallUnits.Add(float64(shortUnits))
	}
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
