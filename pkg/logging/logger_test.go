package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultConfig("warehouse-core")
	cfg.Level = level
	cfg.Output = buf
	return New(cfg), buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal(line, &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_WithContext(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTenantID(ctx, "acme")
	ctx = ContextWithUserID(ctx, "clerk-1")

	logger.Transition(ctx, "outbound_order", "o-1", "allocated", "picking")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "Status transition", e["msg"])
	assert.Equal(t, "warehouse-core", e["service"])
	assert.Equal(t, "req-1", e["requestId"])
	assert.Equal(t, "acme", e["tenantId"])
	assert.Equal(t, "clerk-1", e["userId"])
	assert.Equal(t, "picking", e["to"])
	assert.NotContains(t, e, "correlationId")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level LogLevel
		log   func(l *Logger)
		want  int
	}{
		{"successful query hidden at info", LevelInfo, func(l *Logger) {
			l.DatabaseQuery(context.Background(), "inventory_records", "upsert", time.Millisecond, true, 1)
		}, 0},
		{"successful query shown at debug", LevelDebug, func(l *Logger) {
			l.DatabaseQuery(context.Background(), "inventory_records", "upsert", time.Millisecond, true, 1)
		}, 1},
		{"failed publish shown at error", LevelError, func(l *Logger) {
			l.KafkaPublish(context.Background(), "wms.warehouse-core.events", "inventory.received", false, time.Millisecond)
		}, 1},
		{"client error hidden at error", LevelError, func(l *Logger) {
			l.HTTPRequest(context.Background(), "GET", "/api/v1/inventory", 404, time.Millisecond, "127.0.0.1", "test")
		}, 0},
		{"unknown level falls back to info", LogLevel("verbose"), func(l *Logger) {
			l.Info("hello")
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(tt.level)
			tt.log(logger)
			assert.Len(t, lines(t, buf), tt.want)
		})
	}
}

func TestLogger_WithErrorAndFields(t *testing.T) {
	logger, buf := newBufferLogger(LevelInfo)

	logger.WithError(nil).WithFields(map[string]any{"orderId": "o-1"}).
		WithError(errors.New("boom")).Warn("Allocation failed")

	entries := lines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Equal(t, "o-1", entries[0]["orderId"])
	assert.Equal(t, "WARN", entries[0]["level"])
}
