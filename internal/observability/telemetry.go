// Package observability настраивает OpenTelemetry для тиков мира и HTTP.
package observability

import (
	"context"
	"time"

	"github.com/annel0/voxelforge/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Shutdown завершает экспорт трасс.
type Shutdown func(context.Context) error

// Version попадает в атрибут service.version.
var Version = "dev"

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный
// TracerProvider. endpoint вида "localhost:4318"; пусто - из переменных
// OTEL_EXPORTER_OTLP_*. Выключенная телеметрия оставляет no-op провайдер.
// Входящие HTTP-запросы продолжают трассу вызывающего по W3C traceparent.
func InitTelemetry(ctx context.Context, enabled bool, serviceName, endpoint string) (Shutdown, error) {
	if !enabled {
		logging.Debug("OpenTelemetry выключен")
		return func(context.Context) error { return nil }, nil
	}

	var opts []otlptracehttp.Option
	if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithHost(),
		resource.WithProcessPID(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	logging.Info("📡 Трассировка %s %s -> %s", serviceName, Version, orEnv(endpoint))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

func orEnv(endpoint string) string {
	if endpoint == "" {
		return "OTEL_EXPORTER_OTLP_ENDPOINT"
	}
	return endpoint
}
