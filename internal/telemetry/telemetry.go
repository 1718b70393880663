// Package telemetry installs the global OpenTelemetry tracer and meter providers.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"pocabinder/internal/config"
)

// Shutdown flushes and stops the installed providers.
type Shutdown func(context.Context) error

// Setup exports spans and metrics over OTLP/HTTP when an endpoint is
// configured. Without one the global no-op providers stay in place.
func Setup(ctx context.Context, cfg config.TelemetryConfig, env string, log *zap.Logger) (Shutdown, error) {
	if cfg.OTLPEndpoint == "" {
		log.Info("telemetry disabled")
		return func(context.Context) error { return nil }, nil
	}

	ep, err := parseEndpoint(cfg.OTLPEndpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("deployment.environment", env),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	spanExporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(ep.traceOptions()...))
	if err != nil {
		return nil, fmt.Errorf("create otlp trace exporter: %w", err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, ep.metricOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	log.Info("telemetry enabled", zap.String("endpoint", cfg.OTLPEndpoint))
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// endpoint is an OTLP collector address. A URL may carry a path prefix that
// the signal paths are appended to.
type endpoint struct {
	host     string
	prefix   string
	insecure bool
}

func parseEndpoint(raw string) (endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return endpoint{host: raw, insecure: true}, nil
	}
	prefix := strings.TrimSuffix(u.Path, "/")
	switch u.Scheme {
	case "http":
		return endpoint{host: u.Host, prefix: prefix, insecure: true}, nil
	case "https":
		return endpoint{host: u.Host, prefix: prefix}, nil
	default:
		return endpoint{}, fmt.Errorf("telemetry: unsupported otlp endpoint scheme %q", u.Scheme)
	}
}

func (e endpoint) traceOptions() []otlptracehttp.Option {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(e.host),
		otlptracehttp.WithURLPath(e.prefix + "/v1/traces"),
	}
	if e.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

func (e endpoint) metricOptions() []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(e.host),
		otlpmetrichttp.WithURLPath(e.prefix + "/v1/metrics"),
	}
	if e.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return opts
}
