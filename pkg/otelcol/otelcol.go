package otelcol

import (
	"context"

	"contract-lifecycle/pkg/config"
	"contract-lifecycle/pkg/otelcol/exporters"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("otelcol",
	fx.Provide(
		exporters.Provide,
		NewResource,
		ProvideTrace,
		ProvideMetric,
	),
	// Binaries without HTTP or gRPC servers still install the global providers.
	fx.Invoke(func(trace.TracerProvider, metric.MeterProvider) {}),
)

func NewResource(cfg *config.Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
			attribute.String("service.version", cfg.AppVersion),
			attribute.String("deployment.environment", cfg.AppEnv),
		),
	)
}

// ProvideTrace installs the global tracer provider. Spans are only batched
// out when an exporter is configured.
func ProvideTrace(lc fx.Lifecycle, res *resource.Resource, exporter sdktrace.SpanExporter) trace.TracerProvider {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("flushing tracer provider")
			return tp.Shutdown(ctx)
		},
	})

	return tp
}

// ProvideMetric backs the otelgrpc and otelgin instruments. Service metrics
// are scraped from the prometheus registry instead.
func ProvideMetric(lc fx.Lifecycle, res *resource.Resource) metric.MeterProvider {
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	lc.Append(fx.Hook{
		OnStop: mp.Shutdown,
	})

	return mp
}
