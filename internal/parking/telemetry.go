package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultServiceName  = "vacancy-vault"
	serviceVersion      = "1.0.0"
	DefaultOTLPEndpoint = "http://localhost:4318"
)

// TelemetryConfig selects where traces and metrics are exported. With
// Enabled false the providers are still real SDK providers, they just have
// no exporter attached.
type TelemetryConfig struct {
	Enabled               bool   `json:"enabled"`
	ServiceName           string `json:"service_name"`
	Endpoint              string `json:"endpoint"`
	ExportIntervalSeconds int    `json:"export_interval_seconds"`
}

func (c *TelemetryConfig) SetDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultOTLPEndpoint
	}
	if c.ExportIntervalSeconds <= 0 {
		c.ExportIntervalSeconds = 5
	}
}

type TelemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
}

func NewTelemetryProvider(ctx context.Context, cfg TelemetryConfig) (*TelemetryProvider, error) {
	cfg.SetDefaults()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.Enabled {
		traceExporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(cfg.Endpoint+"/v1/traces"),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))

		metricExporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(cfg.Endpoint+"/v1/metrics"),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(time.Duration(cfg.ExportIntervalSeconds)*time.Second),
		)))
	}

	tp := NewTelemetryProviderFrom(
		sdktrace.NewTracerProvider(traceOpts...),
		sdkmetric.NewMeterProvider(meterOpts...),
		cfg.ServiceName,
	)

	otel.SetTracerProvider(tp.tracerProvider)
	otel.SetMeterProvider(tp.meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

// NewTelemetryProviderFrom wraps existing SDK providers without touching the
// otel globals. Tests use it with in-memory exporters and manual readers.
func NewTelemetryProviderFrom(tracerProvider *sdktrace.TracerProvider, meterProvider *sdkmetric.MeterProvider, name string) *TelemetryProvider {
	return &TelemetryProvider{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		tracer:         tracerProvider.Tracer(name),
		meter:          meterProvider.Meter(name),
	}
}

func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}

func (tp *TelemetryProvider) Meter() metric.Meter {
	return tp.meter
}

func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if err := tp.tracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return tp.meterProvider.Shutdown(ctx)
}
