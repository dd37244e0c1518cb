package tracing

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/unforced/nature-of-ai/internal/shared/id"
	"go.uber.org/zap"
)

// Header names used for trace propagation.
const (
	TraceHeader = "X-Trace-ID"
	SpanHeader  = "X-Span-ID"
)

// Span represents a single operation in a trace
type Span struct {
	TraceID    id.TraceID
	SpanID     id.SpanID
	ParentID   id.SpanID
	Name       string
	Service    string
	StartTime  time.Time
	Duration   time.Duration
	Tags       map[string]string
	Error      error
	StatusCode int
}

// Tracer collects finished spans and logs them.
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New creates a tracer and starts its collector.
func New(service string, logger *zap.Logger) *Tracer {
	t := &Tracer{
		service: service,
		logger:  logger,
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}

	go t.collectSpans()

	return t
}

// StartSpan creates a span, continuing the trace carried by ctx if any.
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = id.NewTraceID()
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    id.NewSpanID(),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, spanIDKey, span.SpanID)

	return span, newCtx
}

// Finish marks the span as complete
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Error = err
	if s.StatusCode < http.StatusInternalServerError {
		s.StatusCode = http.StatusInternalServerError
	}
}

// SetStatus sets the HTTP status code
func (s *Span) SetStatus(code int) {
	s.StatusCode = code
}

func (t *Tracer) collectSpans() {
	defer close(t.done)
	for span := range t.spans {
		t.processSpan(span)
	}
}

func (t *Tracer) processSpan(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", span.TraceID.String()),
		zap.String("span_id", span.SpanID.String()),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.Int("status", span.StatusCode),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", span.ParentID.String()))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		t.logger.Error("span completed with error", fields...)
		return
	}
	t.logger.Debug("span completed", fields...)
}

// Submit sends a span to the collector, dropping it if the buffer is
// full or the tracer is closed.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return
	}
	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", span.TraceID.String()),
			zap.String("span_id", span.SpanID.String()),
		)
	}
}

// Close flushes buffered spans. Later submissions are dropped.
func (t *Tracer) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.spans)
	}
	t.mu.Unlock()

	<-t.done
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithTrace returns ctx carrying an incoming trace and parent span.
func WithTrace(ctx context.Context, traceID id.TraceID, parent id.SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if parent != "" {
		ctx = context.WithValue(ctx, spanIDKey, parent)
	}
	return ctx
}

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) id.TraceID {
	traceID, _ := ctx.Value(traceIDKey).(id.TraceID)
	return traceID
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) id.SpanID {
	spanID, _ := ctx.Value(spanIDKey).(id.SpanID)
	return spanID
}

// FormatTrace returns a formatted trace string for logging
func FormatTrace(traceID id.TraceID, spanID id.SpanID) string {
	return fmt.Sprintf("[trace:%s span:%s]", traceID, spanID)
}
