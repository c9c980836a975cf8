package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/infrastructure/config"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	return recorder
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{Enabled: false}, zap.NewNop())

	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NotNil(t, tp.Tracer("test"))
}

func TestStartSpan_RecordsAttributes(t *testing.T) {
	recorder := newRecorder(t)

	integrationID := uuid.New()
	ctx, span := StartSpan(context.Background(), "sync.trigger",
		WithAttribute("integration_id", integrationID),
		WithAttribute("attempt", 1),
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.trigger", spans[0].Name())

	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("integration_id", integrationID.String()))
	assert.Contains(t, attrs, attribute.Int("attempt", 1))
}

func TestStartServiceSpan_NamesSpan(t *testing.T) {
	recorder := newRecorder(t)

	_, span := StartServiceSpan(context.Background(), "integration", "connect")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "integration.connect", spans[0].Name())
}

func TestRecordError_SetsErrorStatus(t *testing.T) {
	recorder := newRecorder(t)

	_, span := StartSpan(context.Background(), "probe.test")
	RecordError(span, errors.New("upstream rejected"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestRecordError_IgnoresNil(t *testing.T) {
	recorder := newRecorder(t)

	_, span := StartSpan(context.Background(), "probe.test")
	RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestAddEvent_SkipsNonStringKeys(t *testing.T) {
	recorder := newRecorder(t)

	_, span := StartSpan(context.Background(), "sync.import")
	AddEvent(span, "records_pulled", "count", 42, 99, "ignored")
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, []attribute.KeyValue{attribute.Int("count", 42)}, spans[0].Events()[0].Attributes)
}
