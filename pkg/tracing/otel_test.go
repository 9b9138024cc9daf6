package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitializeDisabled(t *testing.T) {
	tp, err := Initialize(context.Background(), DefaultConfig("warehouse-core"))
	require.NoError(t, err)
	assert.NotNil(t, tp.Tracer())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestEndSpanRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), "test", "ledger.reserve")
	EndSpan(span, errors.New("insufficient available"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.reserve", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTraceContextRoundTrip(t *testing.T) {
	provider := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx, span := StartSpan(context.Background(), "test", "publish")
	defer span.End()

	carrier := MapCarrier{}
	InjectTraceContext(ctx, carrier)
	require.NotEmpty(t, carrier.Get("traceparent"))

	extracted := ExtractTraceContext(context.Background(), carrier)
	assert.Equal(t, GetTraceID(ctx), GetTraceID(extracted))
}
