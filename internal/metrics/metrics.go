package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// API records outgoing backend calls.
type API struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
}

// NewAPI creates the collectors and registers them with reg.
func NewAPI(reg prometheus.Registerer) (*API, error) {
	m := &API{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aipms_api_requests_total",
				Help: "Total number of backend API requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aipms_api_request_duration_seconds",
				Help:    "Duration of backend API requests",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15},
			},
			[]string{"method", "endpoint"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aipms_api_transport_errors_total",
				Help: "Backend API requests that failed before a response arrived",
			},
			[]string{"method", "endpoint"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records a completed request. endpoint is the route template, not
// the concrete path.
func (m *API) Observe(method, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// TransportError records a request that got no response.
func (m *API) TransportError(method, endpoint string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(method, endpoint).Inc()
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
