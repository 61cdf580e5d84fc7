package cafe

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/crystalix007/cafe/segments"
)

// tracerName is the default OTel tracer name for the driver.
const tracerName = "github.com/crystalix007/cafe"

// Option configures [Run].
type Option func(*options)

type options struct {
	extentLimit segments.Time
	logger      *slog.Logger
	metrics     MetricsCollector
	tracer      trace.Tracer
}

func newOptions(opts []Option) *options {
	o := &options{}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}

	if o.metrics == nil {
		o.metrics = NopMetrics{}
	}

	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}

	return o
}

// WithExtentLimit splits every output bin lasting longer than limit. Zero, the
// default, leaves bins whole.
func WithExtentLimit(limit segments.Time) Option {
	return func(o *options) {
		o.extentLimit = limit
	}
}

// WithLogger sets the logger used for progress and diagnostics. Defaults to
// [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the collector that receives run statistics.
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithTracer sets the tracer for stage spans. When unset the global tracer
// provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}
