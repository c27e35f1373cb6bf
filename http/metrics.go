package http

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/freekieb7/poolhttp/http"

type serverMetrics struct {
	accepted     metric.Int64Counter
	acceptErrors metric.Int64Counter
	dropped      metric.Int64Counter
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
}

type poolStats interface {
	queueLen() int
	busyWorkers() int
}

func newServerMetrics(meter metric.Meter, stats poolStats) *serverMetrics {
	var m serverMetrics
	var err, errs error

	m.accepted, err = meter.Int64Counter("httpd.connections.accepted",
		metric.WithDescription("Connections returned by accept"),
		metric.WithUnit("{connection}"))
	errs = errors.Join(errs, err)

	m.acceptErrors, err = meter.Int64Counter("httpd.accept.errors",
		metric.WithDescription("Failed accept calls"),
		metric.WithUnit("{error}"))
	errs = errors.Join(errs, err)

	m.dropped, err = meter.Int64Counter("httpd.connections.dropped",
		metric.WithDescription("Connections closed because the worker pool was stopped"),
		metric.WithUnit("{connection}"))
	errs = errors.Join(errs, err)

	m.requests, err = meter.Int64Counter("httpd.requests",
		metric.WithDescription("Requests answered by status code"),
		metric.WithUnit("{request}"))
	errs = errors.Join(errs, err)

	m.duration, err = meter.Float64Histogram("httpd.request.duration",
		metric.WithDescription("Time from dequeue to connection close"),
		metric.WithUnit("s"))
	errs = errors.Join(errs, err)

	_, err = meter.Int64ObservableGauge("httpd.queue.depth",
		metric.WithDescription("Accepted connections waiting for a worker"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(stats.queueLen()))
			return nil
		}))
	errs = errors.Join(errs, err)

	_, err = meter.Int64ObservableGauge("httpd.workers.busy",
		metric.WithDescription("Workers currently processing a connection"),
		metric.WithUnit("{worker}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(stats.busyWorkers()))
			return nil
		}))
	errs = errors.Join(errs, err)

	if errs != nil {
		otel.Handle(errs)
	}

	return &m
}

// recordRequest labels by the parsed method so unknown tokens share one series.
func (m *serverMetrics) recordRequest(ctx context.Context, method Method, status int, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method.String()),
		attribute.Int("http.response.status_code", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
