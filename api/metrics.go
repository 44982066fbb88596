package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "crewboard/api"
	tasksEventName   = "tasks.request"
	tasksEventDomain = "crewboard"
	tasksRoute       = "/api/tasks"
)

// taskRequestMetrics collects per-request timings for the tasks route and
// emits them both as an otel span and as a structured log event.
type taskRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	authDuration   time.Duration
	filterDuration time.Duration
	encodeDuration time.Duration
	criteriaActive bool
	tasksReturned  int
	errorStage     string
}

func newTaskRequestMetrics(ctx context.Context, logger *log.Logger) (*taskRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "GET "+tasksRoute)
	return &taskRequestMetrics{logger: logger, span: span, start: time.Now()}, spanCtx
}

func (m *taskRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *taskRequestMetrics) ObserveFilter(d time.Duration) {
	if d > 0 {
		m.filterDuration = d
	}
}

func (m *taskRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *taskRequestMetrics) SetCriteriaActive(active bool) {
	m.criteriaActive = active
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finishes the span and writes one observability event.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := map[string]any{
		"http.route":                    tasksRoute,
		"http.status_code":              status,
		"crewboard.tasks.total_ms":      durationToMillis(time.Since(m.start)),
		"crewboard.tasks.returned":      m.tasksReturned,
		"crewboard.tasks.filter_active": m.criteriaActive,
	}
	if m.authDuration > 0 {
		attrs["crewboard.tasks.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.filterDuration > 0 {
		attrs["crewboard.tasks.filter_ms"] = durationToMillis(m.filterDuration)
	}
	if m.encodeDuration > 0 {
		attrs["crewboard.tasks.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs["crewboard.tasks.error_stage"] = m.errorStage
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", tasksRoute),
			attribute.Int("http.status_code", status),
			attribute.Int("crewboard.tasks.returned", m.tasksReturned),
			attribute.Bool("crewboard.tasks.filter_active", m.criteriaActive),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("crewboard.tasks.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":   tasksEventName,
		"event.domain": tasksEventDomain,
		"attributes":   attrs,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
