package cloudevents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	f := NewEventFactory(SourceWarehouseCore)

	e := f.CreateEvent(context.Background(), "wms.wave.status-changed", "wave/w-1", at, map[string]string{"to": "released"})

	assert.Equal(t, "1.0", e.SpecVersion)
	assert.Equal(t, SourceWarehouseCore, e.Source)
	assert.Equal(t, "wave/w-1", e.Subject)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, time.UTC, e.Time.Location())
	assert.True(t, e.Time.Equal(at))
}

func TestHeadersSkipEmptyExtensions(t *testing.T) {
	e := NewEventFactory(SourceWarehouseCore).CreateEvent(context.Background(), "wms.inbound.status-changed", "inbound/1", time.Time{}, nil)
	e.TenantID = "acme"

	h := e.Headers()

	assert.Equal(t, "wms.inbound.status-changed", h["ce-type"])
	assert.Equal(t, "acme", h["ce-wmstenantid"])
	_, hasWave := h["ce-wmswavenumber"]
	assert.False(t, hasWave)
}
