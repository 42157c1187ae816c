package hooks

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Skryldev/gltf-importer/core"
	apperrors "github.com/Skryldev/gltf-importer/errors"
)

const instrumentationName = "github.com/Skryldev/gltf-importer"

// TracingHook opens one span per pipeline stage.
type TracingHook struct {
	tracer trace.Tracer
	spans  sync.Map // import id + "/" + stage -> trace.Span
}

// NewTracingHook creates a TracingHook. A nil tracer uses the global provider.
func NewTracingHook(tracer trace.Tracer) *TracingHook {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return &TracingHook{tracer: tracer}
}

func (h *TracingHook) BeforeStage(ctx context.Context, stage string, st *core.ImportState) {
	_, span := h.tracer.Start(ctx, "gltf.import."+stage,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("import.id", st.ID),
			attribute.String("import.container", string(st.Container)),
			attribute.String("import.validation", st.Config.Validation.String()),
		),
	)
	h.spans.Store(st.ID+"/"+stage, span)
}

func (h *TracingHook) AfterStage(_ context.Context, stage string, st *core.ImportState, d time.Duration, err error) {
	v, ok := h.spans.LoadAndDelete(st.ID + "/" + stage)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int64("stage.duration_ms", d.Milliseconds()))
	if err != nil {
		kind, _ := apperrors.KindOf(err)
		span.SetAttributes(attribute.String("error.kind", string(kind)))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
	} else {
		span.SetAttributes(
			attribute.Int("import.buffers", len(st.Buffers)),
			attribute.Int("import.images", len(st.Images)),
		)
	}
	span.End()
}

// OTelMetrics is a core.MetricsCollector backed by OpenTelemetry instruments.
type OTelMetrics struct {
	stageDuration metric.Float64Histogram
	importTotal   metric.Int64Counter
	importErrors  metric.Int64Counter
	stageErrors   metric.Int64Counter
	bytesFetched  metric.Int64Counter
}

// NewOTelMetrics registers the importer's instruments on meter. A nil meter
// uses the global provider.
func NewOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	m := &OTelMetrics{}
	var err error
	if m.stageDuration, err = meter.Float64Histogram("gltf.import.stage.duration",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	); err != nil {
		return nil, err
	}
	if m.importTotal, err = meter.Int64Counter("gltf.import.total",
		metric.WithDescription("Imports attempted"),
		metric.WithUnit("{import}"),
	); err != nil {
		return nil, err
	}
	if m.importErrors, err = meter.Int64Counter("gltf.import.errors",
		metric.WithDescription("Imports that failed"),
		metric.WithUnit("{import}"),
	); err != nil {
		return nil, err
	}
	if m.stageErrors, err = meter.Int64Counter("gltf.import.stage.errors",
		metric.WithDescription("Stage failures by error kind"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.bytesFetched, err = meter.Int64Counter("gltf.import.bytes",
		metric.WithDescription("Bytes fetched from sources"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *OTelMetrics) RecordStageTime(stage string, d time.Duration) {
	m.stageDuration.Record(context.Background(), d.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)))
}

func (m *OTelMetrics) RecordThroughput(bytes int64) {
	m.bytesFetched.Add(context.Background(), bytes)
}

func (m *OTelMetrics) RecordError(stage string, kind string) {
	m.stageErrors.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("stage", stage), attribute.String("kind", kind)))
}

func (m *OTelMetrics) RecordImport(_ time.Duration, err error) {
	m.importTotal.Add(context.Background(), 1)
	if err != nil {
		kind, _ := apperrors.KindOf(err)
		m.importErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	}
}
