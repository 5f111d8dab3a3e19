package metrics

import (
	"net/http"
	"time"

	"orderhub/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "orderhub"

type Metrics struct {
	OrdersPlaced     *prometheus.CounterVec
	StatusUpdates    *prometheus.CounterVec
	Requests         *prometheus.CounterVec
	Latency          *prometheus.HistogramVec
	AnalyticsLatency *prometheus.HistogramVec
}

// New は reg に登録する。テストでは prometheus.NewRegistry() を渡す
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Order placement attempts by result (ok or error kind).",
		}, []string{"result"}),
		StatusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_updates_total",
			Help:      "Applied order status updates by target status.",
		}, []string{"status"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AnalyticsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analytics_query_duration_seconds",
			Help:      "Analytics aggregation latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"query"}),
	}

	reg.MustRegister(m.OrdersPlaced, m.StatusUpdates, m.Requests, m.Latency, m.AnalyticsLatency)
	return m
}

func (m *Metrics) OrderPlaced(result string) {
	m.OrdersPlaced.WithLabelValues(result).Inc()
}

func (m *Metrics) OrderStatusUpdated(status model.OrderStatus) {
	m.StatusUpdates.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) AnalyticsQuery(query string, elapsed time.Duration) {
	m.AnalyticsLatency.WithLabelValues(query).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	m.Requests.WithLabelValues(method, route, status).Inc()
	m.Latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
