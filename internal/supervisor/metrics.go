package supervisor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bringupctl/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit outcomes recorded by Metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// Metrics counts supervisor activity on its own registry.
type Metrics struct {
	starts         *prometheus.CounterVec
	restarts       *prometheus.CounterVec
	exits          *prometheus.CounterVec
	componentLoads *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the supervisor metrics under namespace ("bringup" when empty).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bringup"
	}

	m := &Metrics{registry: prometheus.NewRegistry()}

	m.starts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_starts_total",
			Help:      "Total number of standalone service starts",
		},
		[]string{"service"},
	)
	m.restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_restarts_total",
			Help:      "Total number of respawns after a service exited",
		},
		[]string{"service"},
	)
	m.exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_exits_total",
			Help:      "Total number of service exits by outcome",
		},
		[]string{"service", "outcome"},
	)
	m.componentLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_loads_total",
			Help:      "Total number of component load attempts",
		},
		[]string{"service", "container", "status"},
	)

	m.registry.MustRegister(m.starts, m.restarts, m.exits, m.componentLoads)
	return m
}

func (m *Metrics) ServiceStart(service string) {
	m.starts.WithLabelValues(service).Inc()
}

func (m *Metrics) ServiceRestart(service string) {
	m.restarts.WithLabelValues(service).Inc()
}

func (m *Metrics) ServiceExit(service, outcome string) {
	m.exits.WithLabelValues(service, outcome).Inc()
}

func (m *Metrics) ComponentLoad(service, container string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.componentLoads.WithLabelValues(service, container, status).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logging.Info("Supervisor", "Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
