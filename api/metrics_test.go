package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestTaskRequestMetricsLogProducesObservabilityEvent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	exporter := setupTestTracer(t)

	metrics, spanCtx := newTaskRequestMetrics(context.Background(), logger)
	if spanCtx == nil {
		t.Fatal("expected span context")
	}
	metrics.start = metrics.start.Add(-50 * time.Millisecond)
	metrics.ObserveAuth(10 * time.Millisecond)
	metrics.ObserveFilter(15 * time.Millisecond)
	metrics.ObserveEncode(5 * time.Millisecond)
	metrics.SetCriteriaActive(true)
	metrics.SetTasksReturned(3)

	metrics.Log(http.StatusOK, nil)

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry recorded")
	}
	if entry.Message != "observability.event" {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if got := entry.Data["event.name"]; got != tasksEventName {
		t.Fatalf("unexpected event name: %v", got)
	}
	if got := entry.Data["event.domain"]; got != tasksEventDomain {
		t.Fatalf("unexpected event domain: %v", got)
	}
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes not logged as map: %#v", entry.Data["attributes"])
	}
	if attrs["http.route"] != tasksRoute {
		t.Fatalf("unexpected route attribute: %#v", attrs["http.route"])
	}
	if attrs["crewboard.tasks.filter_active"] != true {
		t.Fatal("expected filter_active attribute to be true")
	}
	if attrs["crewboard.tasks.returned"] != 3 {
		t.Fatalf("unexpected returned count: %#v", attrs["crewboard.tasks.returned"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "GET "+tasksRoute {
		t.Fatalf("unexpected span name: %s", span.Name)
	}
	if span.Status.Code.String() != "Ok" {
		t.Fatalf("unexpected span status: %v", span.Status)
	}
}

func TestTaskRequestMetricsLogRecordsError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	exporter := setupTestTracer(t)

	metrics, _ := newTaskRequestMetrics(context.Background(), logger)
	metrics.SetErrorStage("auth")
	metrics.Log(http.StatusUnauthorized, errors.New("missing authorization header"))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry recorded")
	}
	if entry.Data["error"] != "missing authorization header" {
		t.Fatalf("error not logged: %#v", entry.Data["error"])
	}
	attrs := entry.Data["attributes"].(map[string]any)
	if attrs["crewboard.tasks.error_stage"] != "auth" {
		t.Fatalf("error stage missing: %#v", attrs)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Status.Code.String() != "Error" {
		t.Fatalf("span status = %v, want error", spans[0].Status)
	}
	if len(spans[0].Events) == 0 {
		t.Fatal("expected recorded error event on span")
	}
}
