package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProviderWithoutEndpointRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	p, err := New(context.Background(), Config{ServiceName: "steward-action", RunID: "run-1"},
		sdktrace.WithSpanProcessor(recorder))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	_, span := p.Tracer().Start(context.Background(), "health_check")
	SetError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(ended))
	}
	if ended[0].Name() != "health_check" {
		t.Errorf("Expected span name health_check, got %s", ended[0].Name())
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("Expected error status, got %v", ended[0].Status().Code)
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("Empty config should not export")
	}
	if !(Config{OTLPEndpoint: "localhost:4318"}).Enabled() {
		t.Error("Config with endpoint should export")
	}
}
