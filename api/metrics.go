package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"trello-cloney/board"
)

const (
	dragEventName   = "board.api.drag.request"
	dragEventDomain = "app"
	dragSpanName    = "POST /api/views/:id/drag"
	dragRoute       = "/api/views/:id/drag"
	tracerName      = "trello-cloney/api"

	observabilityEvent = "observability.event"

	attrHTTPRoute      = "http.route"
	attrHTTPStatusCode = "http.status_code"
	attrTotalMillis    = "board.drag.total_ms"
	attrAuthMillis     = "board.drag.auth_ms"
	attrUpdateMillis   = "board.drag.update_ms"
	attrEncodeMillis   = "board.drag.encode_ms"
	attrKind           = "board.drag.kind"
	attrChanged        = "board.drag.changed"
	attrDuplicate      = "board.drag.duplicate"
	attrActivities     = "board.drag.activities"
	attrErrorStage     = "board.drag.error_stage"
	attrErrorMessage   = "error.message"
)

// dragRequestMetrics collects timings for one drag request and emits them as
// a span plus an observability.event log entry.
type dragRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	updateDuration time.Duration
	encodeDuration time.Duration
	kind           board.EventKind
	changed        bool
	duplicate      bool
	activities     int
	errorStage     string
}

func newDragRequestMetrics(ctx context.Context, logger *log.Logger) (*dragRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, dragSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &dragRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

func (m *dragRequestMetrics) ObserveAuth(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.authDuration = duration
}

func (m *dragRequestMetrics) ObserveUpdate(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.updateDuration = duration
}

func (m *dragRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *dragRequestMetrics) SetKind(kind board.EventKind) { m.kind = kind }

func (m *dragRequestMetrics) SetOutcome(changed bool, activities int) {
	m.changed = changed
	if activities < 0 {
		activities = 0
	}
	m.activities = activities
}

func (m *dragRequestMetrics) SetDuplicate(duplicate bool) { m.duplicate = duplicate }

func (m *dragRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log ends the span and writes the observability event.
func (m *dragRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := map[string]any{
		attrHTTPRoute:   dragRoute,
		attrTotalMillis: durationToMillis(time.Since(m.start)),
		attrChanged:     m.changed,
		attrDuplicate:   m.duplicate,
		attrActivities:  m.activities,
	}
	if status > 0 {
		attrs[attrHTTPStatusCode] = status
	}
	if m.kind != "" {
		attrs[attrKind] = string(m.kind)
	}
	if m.authDuration > 0 {
		attrs[attrAuthMillis] = durationToMillis(m.authDuration)
	}
	if m.updateDuration > 0 {
		attrs[attrUpdateMillis] = durationToMillis(m.updateDuration)
	}
	if m.encodeDuration > 0 {
		attrs[attrEncodeMillis] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs[attrErrorStage] = m.errorStage
	}
	if err != nil {
		attrs[attrErrorMessage] = err.Error()
	}

	severityText, severityNumber := severityForStatus(status, err)
	m.endSpan(attrs, status, err, severityText, severityNumber)

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      dragEventName,
		"event.domain":    dragEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if sc := m.span.SpanContext(); sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityText), observabilityEvent)
}

func (m *dragRequestMetrics) endSpan(attrs map[string]any, status int, err error, severityText string, severityNumber int) {
	if m.span == nil {
		return
	}
	kvs := toAttributes(attrs)
	m.span.SetAttributes(kvs...)

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", dragEventName),
		attribute.String("event.domain", dragEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, kvs...)
	m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))

	switch {
	case err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		m.span.SetStatus(codes.Error, http.StatusText(status))
	default:
		m.span.SetStatus(codes.Ok, "")
	}
	m.span.End()
}

func toAttributes(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		}
	}
	return out
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func levelForSeverity(text string) log.Level {
	switch text {
	case "ERROR":
		return log.ErrorLevel
	case "WARN":
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
