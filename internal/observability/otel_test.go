package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, bad, =nokey, x-team = learn ")
	h := otelHeaders()
	if len(h) != 2 || h["x-api-key"] != "abc" || h["x-team"] != "learn" {
		t.Fatalf("headers=%v", h)
	}
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if otelHeaders() != nil {
		t.Fatalf("expected nil headers")
	}
}

func TestOtelSampleRatio(t *testing.T) {
	cases := map[string]float64{"": 0.1, "0.5": 0.5, "-1": 0, "7": 1, "x": 0.1}
	for raw, want := range cases {
		t.Setenv("OTEL_SAMPLER_RATIO", raw)
		if got := otelSampleRatio(); got != want {
			t.Fatalf("ratio(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "lesson.reorder", attribute.String("lesson_id", "x"))
	if ctx == nil || span == nil {
		t.Fatalf("nil span")
	}
	EndSpan(span, errors.New("boom"))
	EndSpan(nil, nil)
}
