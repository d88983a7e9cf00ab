package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// swapTracerProvider installs an in-memory tracer provider as the global one
// for the duration of the test and returns its exporter.
func swapTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(orig) })
	return exp
}

// captureLogs redirects the default slog output to a buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestCorrelationID(t *testing.T) {
	swapTracerProvider(t)

	t.Run("empty without a span", func(t *testing.T) {
		if got := CorrelationID(context.Background()); got != "" {
			t.Errorf("CorrelationID(background) = %q, want empty", got)
		}
	})

	t.Run("is the hex trace ID", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "align.session")
		defer span.End()

		cid := CorrelationID(ctx)
		if len(cid) != 32 {
			t.Fatalf("correlation ID length = %d, want 32", len(cid))
		}
		if strings.Trim(cid, "0123456789abcdef") != "" {
			t.Errorf("correlation ID %q is not lowercase hex", cid)
		}
	})

	t.Run("distinct per span", func(t *testing.T) {
		seen := make(map[string]struct{}, 100)
		for range 100 {
			ctx, span := StartSpan(context.Background(), "turn.cycle")
			cid := CorrelationID(ctx)
			span.End()
			if _, dup := seen[cid]; dup {
				t.Fatalf("duplicate correlation ID: %s", cid)
			}
			seen[cid] = struct{}{}
		}
	})
}

func TestStartSpan_RecordsNamedSpan(t *testing.T) {
	exp := swapTracerProvider(t)

	ctx, span := StartSpan(context.Background(), "align.session")
	if CorrelationID(ctx) == "" {
		t.Error("StartSpan returned a context without a trace ID")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans recorded = %d, want 1", len(spans))
	}
	if spans[0].Name != "align.session" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "align.session")
	}
}

func TestLogger_CarriesTraceIdentifiers(t *testing.T) {
	swapTracerProvider(t)
	buf := captureLogs(t)

	ctx, span := StartSpan(context.Background(), "turn.cycle")
	defer span.End()

	Logger(ctx).Info("cycle finished")

	logged := buf.String()
	if !strings.Contains(logged, "trace_id=") {
		t.Errorf("log line missing trace_id: %s", logged)
	}
	if !strings.Contains(logged, "span_id=") {
		t.Errorf("log line missing span_id: %s", logged)
	}
}

func TestLogger_PlainWithoutSpan(t *testing.T) {
	buf := captureLogs(t)

	Logger(context.Background()).Info("startup")

	if logged := buf.String(); strings.Contains(logged, "trace_id") {
		t.Errorf("log line should carry no trace_id: %s", logged)
	}
}

func TestTracer_NotNil(t *testing.T) {
	if Tracer() == nil {
		t.Fatal("Tracer() returned nil")
	}
}
