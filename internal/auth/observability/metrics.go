// Package observability holds the Prometheus metrics of the auth service.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the counters.
const (
	ResultSuccess            = "success"
	ResultInvalid            = "invalid"
	ResultWeakPassword       = "weak_password"
	ResultDuplicate          = "duplicate"
	ResultInvalidCredentials = "invalid_credentials"
	ResultMissing            = "missing"
	ResultExpired            = "expired"
	ResultUnknownIdentity    = "unknown_identity"
	ResultError              = "error"
)

// Metrics contains the custom metrics for the auth service. A nil *Metrics
// is valid and records nothing, which keeps unit tests free of registries.
type Metrics struct {
	RegisterTotal      *prometheus.CounterVec
	LoginTotal         *prometheus.CounterVec
	SessionChecksTotal *prometheus.CounterVec
	StoreUp            prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates and registers the auth metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RegisterTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certtrack_auth_register_total",
				Help: "Registration attempts by result",
			},
			[]string{"result"},
		),
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certtrack_auth_login_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		SessionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "certtrack_auth_session_checks_total",
				Help: "Session token resolutions by result",
			},
			[]string{"result"},
		),
		StoreUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "certtrack_auth_store_up",
			Help: "1 when the last credential store ping succeeded",
		}),
	}

	reg.MustRegister(m.RegisterTotal, m.LoginTotal, m.SessionChecksTotal, m.StoreUp)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// NewRegistry returns a private registry carrying the Go and process
// collectors plus the auth metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return registry, NewMetrics(registry)
}

// Handler serves the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRegister(result string) {
	if m != nil {
		m.RegisterTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveLogin(result string) {
	if m != nil {
		m.LoginTotal.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveSessionCheck(result string) {
	if m != nil {
		m.SessionChecksTotal.WithLabelValues(result).Inc()
	}
}

// SetStoreUp records the latest store health probe.
func (m *Metrics) SetStoreUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.StoreUp.Set(1)
	} else {
		m.StoreUp.Set(0)
	}
}
