package sdk

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	config Config
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
	now    func() time.Time
}

// WithConfig supplies the full engine configuration. Defaults to
// DefaultConfig().
func WithConfig(cfg Config) EngineOption {
	return func(o *engineOptions) {
		o.config = cfg
	}
}

// WithLogger sets the structured logger used by every component.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithTracer sets an OpenTelemetry tracer. Defaults to a no-op tracer.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(o *engineOptions) {
		o.tracer = tracer
	}
}

// WithMeter sets an OpenTelemetry meter. Defaults to a no-op meter.
func WithMeter(meter metric.Meter) EngineOption {
	return func(o *engineOptions) {
		o.meter = meter
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}
