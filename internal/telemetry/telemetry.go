// Package telemetry provides the daemon's tracer. Boot phases and
// other long operations are recorded as spans; on a headless device
// the spans land in the log rather than a collector.
package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// NewProvider builds a tracer provider whose finished spans are logged
// through slog. The returned shutdown flushes the provider.
func NewProvider() (*sdktrace.TracerProvider, func(context.Context) error) {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(logProcessor{}),
	)
	return provider, provider.Shutdown
}

// Tracer returns the daemon tracer from a provider.
func Tracer(provider *sdktrace.TracerProvider) trace.Tracer {
	return provider.Tracer("farmd")
}

// logProcessor writes completed spans to the structured log.
type logProcessor struct{}

func (logProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (logProcessor) OnEnd(span sdktrace.ReadOnlySpan) {
	attrs := []any{
		"span", span.Name(),
		"duration", span.EndTime().Sub(span.StartTime()),
	}
	if status := span.Status(); status.Code == codes.Error {
		attrs = append(attrs, "err", status.Description)
		slog.Warn("operation failed", attrs...)
		return
	}
	slog.Debug("operation finished", attrs...)
}

func (logProcessor) Shutdown(context.Context) error   { return nil }
func (logProcessor) ForceFlush(context.Context) error { return nil }
