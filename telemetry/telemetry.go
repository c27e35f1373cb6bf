// Package telemetry wires the OpenTelemetry SDK and the process logger.
package telemetry

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"

	"github.com/go-logr/stdr"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/freekieb7/poolhttp/config"
)

type Telemetry struct {
	Logger *slog.Logger

	shutdownFuncs []func(context.Context) error
}

// Setup installs the global propagator and, when telemetry is enabled, OTLP
// trace, metric and log providers. The returned logger exports through OTLP
// when enabled and writes to stderr otherwise.
func Setup(ctx context.Context, cfg *config.Config) (*Telemetry, error) {
	otel.SetLogger(stdr.New(log.New(os.Stderr, "otel: ", log.LstdFlags)))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &Telemetry{}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	t.Logger = NewLogger(cfg.Log.Format, level)

	if !cfg.Telemetry.Enabled {
		return t, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", cfg.Telemetry.ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	if err := t.setupTracing(ctx, cfg.Telemetry, res); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if err := t.setupMetrics(ctx, cfg.Telemetry, res); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if err := t.setupLogs(ctx, cfg.Telemetry, res); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}

	t.Logger = otelslog.NewLogger(cfg.Telemetry.ServiceName)

	return t, nil
}

// Shutdown flushes and stops every provider that Setup started.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range t.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	t.shutdownFuncs = nil
	return err
}

func (t *Telemetry) setupTracing(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) error {
	var opts []otlptracegrpc.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.shutdownFuncs = append(t.shutdownFuncs, provider.Shutdown)
	otel.SetTracerProvider(provider)

	return nil
}

func (t *Telemetry) setupMetrics(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) error {
	var opts []otlpmetricgrpc.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlpmetricgrpc.WithEndpointURL(cfg.Endpoint))
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	t.shutdownFuncs = append(t.shutdownFuncs, provider.Shutdown)
	otel.SetMeterProvider(provider)

	return nil
}

func (t *Telemetry) setupLogs(ctx context.Context, cfg config.TelemetryConfig, res *resource.Resource) error {
	var opts []otlploggrpc.Option
	if cfg.Endpoint != "" {
		opts = append(opts, otlploggrpc.WithEndpointURL(cfg.Endpoint))
	}

	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)
	t.shutdownFuncs = append(t.shutdownFuncs, provider.Shutdown)
	global.SetLoggerProvider(provider)

	return nil
}

// NewLogger builds a stderr logger in the given format ("json" or "text").
func NewLogger(format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
