package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/warehouse-core/pkg/cloudevents"
	"github.com/wms-platform/warehouse-core/pkg/logging"
)

// DefaultMaxRetries is how often the publisher retries an event before giving up on it
const DefaultMaxRetries = 10

// OutboxEvent represents an event stored in the outbox for reliable delivery
type OutboxEvent struct {
	ID            string          `bson:"_id" json:"id"`
	TenantID      string          `bson:"tenantId" json:"tenantId"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType"`
	EventType     string          `bson:"eventType" json:"eventType"`
	Topic         string          `bson:"topic" json:"topic"`
	Payload       json.RawMessage `bson:"payload" json:"payload"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty"`
	MaxRetries    int             `bson:"maxRetries" json:"maxRetries"`
}

// DomainEvent is the shape of the events the store hands to the outbox
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// NewOutboxEventFromCloudEvent creates an outbox event from a CloudEvent
func NewOutboxEventFromCloudEvent(aggregateID, aggregateType, topic string, cloudEvent *cloudevents.WMSCloudEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(cloudEvent)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		ID:            uuid.New().String(),
		TenantID:      cloudEvent.TenantID,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     cloudEvent.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// IsPublished checks if the event has been published
func (e *OutboxEvent) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry checks if the event should be retried
func (e *OutboxEvent) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < e.MaxRetries
}

// ToCloudEvent converts the outbox event payload to a CloudEvent
func (e *OutboxEvent) ToCloudEvent() (*cloudevents.WMSCloudEvent, error) {
	var cloudEvent cloudevents.WMSCloudEvent
	if err := json.Unmarshal(e.Payload, &cloudEvent); err != nil {
		return nil, err
	}
	return &cloudEvent, nil
}

// Converter turns domain events into outbox rows
type Converter struct {
	factory *cloudevents.EventFactory
	topic   string
}

// NewConverter creates a converter that targets topic
func NewConverter(source, topic string) *Converter {
	return &Converter{factory: cloudevents.NewEventFactory(source), topic: topic}
}

// Convert wraps each domain event in a CloudEvent. The tenant and correlation
// id travel as extensions.
func (c *Converter) Convert(ctx context.Context, tenantID string, events ...DomainEvent) ([]*OutboxEvent, error) {
	out := make([]*OutboxEvent, 0, len(events))
	correlationID, _ := ctx.Value(logging.CorrelationIDKey).(string)
	for _, event := range events {
		ce := c.factory.CreateEvent(ctx, event.EventType(), event.AggregateID(), event.OccurredAt(), event)
		ce.TenantID = tenantID
		ce.CorrelationID = correlationID
		row, err := NewOutboxEventFromCloudEvent(event.AggregateID(), aggregateType(event.EventType()), c.topic, ce)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// aggregateType takes the middle segment of a wms.<aggregate>.<event> type
func aggregateType(eventType string) string {
	parts := strings.Split(eventType, ".")
	if len(parts) < 3 {
		return eventType
	}
	return parts[1]
}
