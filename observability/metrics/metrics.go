/*
Package metrics exposes the kernel client's OpenTelemetry instruments to Prometheus.

	mon, err := metrics.New(ctx, cfg)
	client, err := kernel.New(source, sink, kernel.WithMeterProvider(mon.Provider))
	http.ListenAndServe(":9090", mon.Handler)
*/
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promExporter "go.opentelemetry.io/otel/exporters/prometheus"
	api "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/shortlink-org/kernel-client/config"
)

type Monitoring struct {
	Handler    *http.ServeMux
	Prometheus *prometheus.Registry
	Provider   *api.MeterProvider
	health     healthcheck.Handler
	shutdown   time.Duration
}

// New builds a meter provider backed by a private Prometheus registry and
// the /metrics, /live and /ready endpoints serving it.
func New(ctx context.Context, cfg *config.Config) (*Monitoring, error) {
	cfg.SetDefault("KERNEL_CLIENT_NAME", "kernel-client")
	cfg.SetDefault("METRICS_NAMESPACE", "kernel")
	cfg.SetDefault("OTEL_METRIC_SHUTDOWN_TIMEOUT", "10s")

	monitoring := &Monitoring{
		shutdown: cfg.GetDuration("OTEL_METRIC_SHUTDOWN_TIMEOUT"),
	}

	if err := monitoring.SetPrometheus(); err != nil {
		return nil, err
	}

	if err := monitoring.SetMetrics(ctx, cfg.GetString("KERNEL_CLIENT_NAME")); err != nil {
		return nil, err
	}

	monitoring.SetHandler(cfg.GetString("METRICS_NAMESPACE"))

	return monitoring, nil
}

// SetPrometheus creates the registry with Go runtime and build collectors.
func (m *Monitoring) SetPrometheus() error {
	m.Prometheus = prometheus.NewRegistry()

	if err := m.Prometheus.Register(collectors.NewBuildInfoCollector()); err != nil {
		return err
	}

	return m.Prometheus.Register(collectors.NewGoCollector())
}

// SetMetrics creates the meter provider reading into the registry.
func (m *Monitoring) SetMetrics(ctx context.Context, serviceName string) error {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return err
	}

	prometheusReader, err := promExporter.New(
		promExporter.WithRegisterer(m.Prometheus),
	)
	if err != nil {
		return err
	}

	m.Provider = api.NewMeterProvider(
		api.WithResource(res),
		api.WithReader(prometheusReader),
		api.WithExemplarFilter(exemplar.TraceBasedFilter),
	)

	return nil
}

// SetHandler mounts /metrics, /live and /ready.
func (m *Monitoring) SetHandler(namespace string) {
	m.Handler = http.NewServeMux()

	m.Handler.Handle("/metrics", promhttp.HandlerFor(
		m.Prometheus,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,

			ErrorHandling: promhttp.ContinueOnError,
		},
	))

	// health check metrics are prefixed with namespace
	m.health = healthcheck.NewMetricsHandler(m.Prometheus, namespace)

	m.Handler.HandleFunc("/live", m.health.LiveEndpoint)
	m.Handler.HandleFunc("/ready", m.health.ReadyEndpoint)
}

// AddReadinessCheck makes /ready fail while check returns an error.
func (m *Monitoring) AddReadinessCheck(name string, check func() error) {
	m.health.AddReadinessCheck(name, check)
}

// Shutdown flushes and stops the meter provider.
func (m *Monitoring) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdown)
	defer cancel()

	return m.Provider.Shutdown(ctx)
}
