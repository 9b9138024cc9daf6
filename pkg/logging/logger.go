// Package logging is the structured JSON logger of warehouse-core, built on
// log/slog. Request-scoped identifiers stored in the context by the HTTP
// middleware are attached to every line logged through WithContext.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// LogLevel is a configured level name
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config holds logger configuration
type Config struct {
	Level       LogLevel
	ServiceName string
	Environment string
	Version     string
	Output      io.Writer
	AddSource   bool
}

// DefaultConfig logs at info to stdout. ENVIRONMENT and VERSION fill in the
// static attributes when set.
func DefaultConfig(serviceName string) *Config {
	cfg := &Config{
		Level:       LevelInfo,
		ServiceName: serviceName,
		Environment: "development",
		Version:     "unknown",
		Output:      os.Stdout,
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}
	if version := os.Getenv("VERSION"); version != "" {
		cfg.Version = version
	}
	return cfg
}

// Logger is a slog.Logger with helpers for the records warehouse-core emits
type Logger struct {
	*slog.Logger
}

// New builds a JSON logger. Timestamps are written in UTC.
func New(config *Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stdout
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:       config.Level.slogLevel(),
		AddSource:   config.AddSource,
		ReplaceAttr: utcTime,
	})
	return &Logger{Logger: slog.New(handler).With(
		"service", config.ServiceName,
		"environment", config.Environment,
		"version", config.Version,
	)}
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return a
}

// NewNop discards everything
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

// SetDefault installs the logger as the slog default
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

func (l *Logger) with(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithContext attaches the request, correlation, tenant, user and trace IDs
// found in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var attrs []any
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			attrs = append(attrs, string(key), v)
		}
	}
	return l.with(attrs...)
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.with(flatten(nil, fields)...)
}

func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// Event logs a domain event as it leaves through the outbox
func (l *Logger) Event(ctx context.Context, eventType string, data map[string]any) {
	l.WithContext(ctx).Info("Business event", flatten([]any{"eventType", eventType}, data)...)
}

// Audit records which actor changed which resource
func (l *Logger) Audit(ctx context.Context, action, resource, resourceID, actor string, details map[string]any) {
	attrs := flatten([]any{
		"auditAction", action,
		"resource", resource,
		"resourceId", resourceID,
		"actor", actor,
	}, details)
	l.WithContext(ctx).Info("Audit event", attrs...)
}

// Transition logs a status change of an order, task or wave
func (l *Logger) Transition(ctx context.Context, entity, entityID, from, to string) {
	l.WithContext(ctx).Info("Status transition",
		"entity", entity,
		"entityId", entityID,
		"from", from,
		"to", to,
	)
}

// Movement logs a ledger quantity change
func (l *Logger) Movement(ctx context.Context, movementType, recordID string, onHandDelta, reservedDelta int64) {
	l.WithContext(ctx).Info("Inventory movement",
		"movementType", movementType,
		"recordId", recordID,
		"onHandDelta", onHandDelta,
		"reservedDelta", reservedDelta,
	)
}

// Performance logs the outcome and latency of an application operation
func (l *Logger) Performance(ctx context.Context, operation string, duration time.Duration, success bool, details map[string]any) {
	attrs := flatten([]any{
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
	}, details)
	l.WithContext(ctx).Info("Operation finished", attrs...)
}

// HTTPRequest logs a served request at a level derived from its status
func (l *Logger) HTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration, clientIP, userAgent string) {
	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}
	l.WithContext(ctx).Log(ctx, level, "HTTP request",
		"method", method,
		"path", path,
		"status", status,
		"durationMs", duration.Milliseconds(),
		"clientIP", clientIP,
		"userAgent", userAgent,
	)
}

// DatabaseQuery logs one store round trip. Successful queries log at debug.
func (l *Logger) DatabaseQuery(ctx context.Context, table, operation string, duration time.Duration, success bool, rowsAffected int64) {
	l.WithContext(ctx).Log(ctx, outcomeLevel(success), "Database query",
		"table", table,
		"operation", operation,
		"durationMs", duration.Milliseconds(),
		"success", success,
		"rowsAffected", rowsAffected,
	)
}

// KafkaPublish logs one publish to the event topic
func (l *Logger) KafkaPublish(ctx context.Context, topic, eventType string, success bool, duration time.Duration) {
	l.WithContext(ctx).Log(ctx, outcomeLevel(success), "Kafka publish",
		"topic", topic,
		"eventType", eventType,
		"success", success,
		"durationMs", duration.Milliseconds(),
	)
}

// Panic logs a recovered panic with the current goroutine's stack
func (l *Logger) Panic(ctx context.Context, recovered any) {
	buf := make([]byte, 4096)
	buf = buf[:runtime.Stack(buf, false)]
	l.WithContext(ctx).Error("Panic recovered", "panic", recovered, "stack", string(buf))
}

func outcomeLevel(success bool) slog.Level {
	if success {
		return slog.LevelDebug
	}
	return slog.LevelError
}

func flatten(attrs []any, fields map[string]any) []any {
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return attrs
}

type contextKey string

const (
	RequestIDKey     contextKey = "requestId"
	CorrelationIDKey contextKey = "correlationId"
	TenantIDKey      contextKey = "tenantId"
	UserIDKey        contextKey = "userId"
	TraceIDKey       contextKey = "traceId"
	SpanIDKey        contextKey = "spanId"
)

var contextKeys = []contextKey{RequestIDKey, CorrelationIDKey, TenantIDKey, UserIDKey, TraceIDKey, SpanIDKey}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

func ContextWithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// ContextWithTraceID stores the active span's trace and span IDs
func ContextWithTraceID(ctx context.Context, traceID, spanID string) context.Context {
	ctx = context.WithValue(ctx, TraceIDKey, traceID)
	return context.WithValue(ctx, SpanIDKey, spanID)
}
