package infrastructure

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const (
	ServiceName = "valeshop"
	MeterName   = "valeshop"
)

// MetricsProviders bundles the OpenTelemetry meter provider and the
// Prometheus scrape handler it exports through.
type MetricsProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
}

// InitializeMetrics wires the OTel SDK to a Prometheus exporter.
func InitializeMetrics(version string) (*MetricsProviders, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(version),
	)

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	return &MetricsProviders{
		MeterProvider:  provider,
		Meter:          provider.Meter(MeterName),
		PrometheusHTTP: promhttp.Handler(),
	}, nil
}

// Shutdown flushes and stops the meter provider.
func (p *MetricsProviders) Shutdown(ctx context.Context) error {
	if p == nil || p.MeterProvider == nil {
		return nil
	}
	return p.MeterProvider.Shutdown(ctx)
}

// EngineMetrics are the domain instruments recorded by the lifecycle engine.
type EngineMetrics struct {
	HTTPRequests    metric.Int64Counter
	HTTPDuration    metric.Float64Histogram
	OrdersCreated   metric.Int64Counter
	PaymentsApplied metric.Int64Counter
	TokensMinted    metric.Int64Counter
	TokensRedeemed  metric.Int64Counter
	Activations     metric.Int64Counter
}

// NewEngineMetrics registers the engine's instruments on meter.
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	var (
		m   EngineMetrics
		err error
	)

	if m.HTTPRequests, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total HTTP requests by method, route and status")); err != nil {
		return nil, err
	}
	if m.HTTPDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds")); err != nil {
		return nil, err
	}
	if m.OrdersCreated, err = meter.Int64Counter("orders_created_total",
		metric.WithDescription("Orders created")); err != nil {
		return nil, err
	}
	if m.PaymentsApplied, err = meter.Int64Counter("payments_applied_total",
		metric.WithDescription("Payment confirmations applied, including re-applications")); err != nil {
		return nil, err
	}
	if m.TokensMinted, err = meter.Int64Counter("delivery_tokens_minted_total",
		metric.WithDescription("Delivery tokens minted")); err != nil {
		return nil, err
	}
	if m.TokensRedeemed, err = meter.Int64Counter("delivery_tokens_redeemed_total",
		metric.WithDescription("Successful delivery token redemptions")); err != nil {
		return nil, err
	}
	if m.Activations, err = meter.Int64Counter("license_activations_total",
		metric.WithDescription("License activation attempts by outcome")); err != nil {
		return nil, err
	}
	return &m, nil
}
