package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SourceWarehouseCore is the CloudEvents source of every event this module emits
const SourceWarehouseCore = "/wms/warehouse-core"

// CloudEvents extension attribute names
const (
	ExtTenantID      = "wmstenantid"
	ExtWarehouseID   = "wmswarehouseid"
	ExtCorrelationID = "wmscorrelationid"
	ExtWaveNumber    = "wmswavenumber"
	ExtOrderID       = "wmsorderid"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string    `json:"specversion"`
	Type            string    `json:"type"`
	Source          string    `json:"source"`
	Subject         string    `json:"subject,omitempty"`
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	DataContentType string    `json:"datacontenttype"`
	Data            any       `json:"data"`

	TenantID      string `json:"wmstenantid,omitempty"`
	WarehouseID   string `json:"wmswarehouseid,omitempty"`
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WaveNumber    string `json:"wmswavenumber,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// EventFactory creates CloudEvents for a fixed source
type EventFactory struct {
	source string
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source}
}

// CreateEvent creates a new WMSCloudEvent with the given parameters
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, occurredAt time.Time, data any) *WMSCloudEvent {
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            occurredAt.UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// Headers returns the binary-mode CloudEvents headers for the event
func (e *WMSCloudEvent) Headers() map[string]string {
	h := map[string]string{
		"ce-specversion": e.SpecVersion,
		"ce-type":        e.Type,
		"ce-source":      e.Source,
		"ce-id":          e.ID,
		"ce-time":        e.Time.Format(time.RFC3339),
		"content-type":   e.DataContentType,
	}
	optional := map[string]string{
		"ce-" + ExtTenantID:      e.TenantID,
		"ce-" + ExtWarehouseID:   e.WarehouseID,
		"ce-" + ExtCorrelationID: e.CorrelationID,
		"ce-" + ExtWaveNumber:    e.WaveNumber,
		"ce-" + ExtOrderID:       e.OrderID,
		"ce-traceparent":         e.TraceParent,
		"ce-tracestate":          e.TraceState,
	}
	for k, v := range optional {
		if v != "" {
			h[k] = v
		}
	}
	return h
}
