package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Session carries the tracing and metrics state of one invocation.
type Session struct {
	InvocationID string
	Tracer       *Tracer
	Metrics      *Metrics
	Config       *Config
}

type sessionContextKey struct{}

// NewSession initialises tracing and metrics from cfg. Logging is configured
// separately by SetupLogging.
func NewSession(cfg *Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	return &Session{
		InvocationID: uuid.NewString(),
		Tracer:       tracer,
		Metrics:      metrics,
		Config:       cfg,
	}, nil
}

// WithContext adds the session to the context.
func (s *Session) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// FromContext retrieves the session from the context, or nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey{}).(*Session); ok {
		return s
	}
	return nil
}

// Shutdown flushes spans and writes the metrics file.
func (s *Session) Shutdown(ctx context.Context) error {
	return errors.Join(s.Tracer.Shutdown(ctx), s.Metrics.Flush())
}

// Operation is an instrumented command or pipeline stage. Span is nil when
// the context carries no Session.
type Operation struct {
	Ctx    context.Context
	Span   trace.Span
	Logger zerolog.Logger

	name    string
	stage   bool
	metrics *Metrics
	timer   *Timer
}

// StartCommand begins the root operation of an invocation.
func StartCommand(ctx context.Context, command string, attrs ...attribute.KeyValue) *Operation {
	return start(ctx, command, false, attrs)
}

// StartStage begins a pipeline stage operation.
func StartStage(ctx context.Context, stage string, attrs ...attribute.KeyValue) *Operation {
	return start(ctx, stage, true, attrs)
}

func start(ctx context.Context, name string, stage bool, attrs []attribute.KeyValue) *Operation {
	op := &Operation{
		Ctx:   ctx,
		name:  name,
		stage: stage,
		timer: NewTimer(),
	}

	field := "command"
	if stage {
		field = "stage"
	}
	logCtx := log.With().Str(field, name)

	s := FromContext(ctx)
	if s == nil {
		op.Logger = logCtx.Logger()
		return op
	}

	op.metrics = s.Metrics
	if stage {
		op.Ctx, op.Span = s.Tracer.StartStageSpan(ctx, name)
	} else {
		op.Ctx, op.Span = s.Tracer.StartCommandSpan(ctx, name, s.InvocationID)
		logCtx = logCtx.Str("invocation_id", s.InvocationID)
	}
	op.Span.SetAttributes(attrs...)

	if op.Span.SpanContext().IsValid() {
		logCtx = logCtx.Str("trace_id", op.Span.SpanContext().TraceID().String())
	}
	op.Logger = logCtx.Logger()

	return op
}

// End finishes the operation, recording success or failure.
func (o *Operation) End(err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	if o.metrics != nil {
		if o.stage {
			o.metrics.RecordStage(o.name, status, o.timer.Duration())
		} else {
			o.metrics.RecordCommand(o.name, status, o.timer.Duration())
		}
	}

	if o.Span != nil {
		if err != nil {
			RecordError(o.Span, err)
		} else {
			RecordSuccess(o.Span)
		}
		o.Span.End()
	}
}
