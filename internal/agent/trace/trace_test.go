package trace

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), Config{ServiceName: "test", SampleRate: 1}, sdktrace.WithSpanProcessor(rec))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return rec, tp
}

func attrs(s sdktrace.ReadOnlySpan) map[attribute.Key]string {
	out := map[attribute.Key]string{}
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestTracer_SpanCarriesWorkflowMetadata(t *testing.T) {
	rec, tp := recorder(t)
	tr := NewTracer(tp, "RustX", "wf_123", "agent-builder")

	_, span := tr.Start(context.Background(), "run-1")
	span.End("dispatch", nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "RustX workflow", ended[0].Name())
	a := attrs(ended[0])
	assert.Equal(t, "wf_123", a[AttrWorkflowID])
	assert.Equal(t, "agent-builder", a[AttrTraceSource])
	assert.Equal(t, "run-1", a[AttrRunID])
	assert.Equal(t, "dispatch", a[AttrTerminalState])
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
}

func TestSpan_EndsExactlyOnce(t *testing.T) {
	rec, tp := recorder(t)
	tr := NewTracer(tp, "RustX", "wf_123", "agent-builder")

	_, span := tr.Start(context.Background(), "run-2")
	span.End("", errors.New("classifier result is undefined"))
	span.End("blocked", nil)

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.NotContains(t, attrs(ended[0]), attribute.Key(AttrTerminalState))
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("otel:4318"))
}
