package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	authOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Auth operations by outcome.",
	}, []string{"op", "result"})
	authLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auth_operation_duration_seconds",
		Help:    "Auth operation latency, password hashing included.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"op"})
	gatewayDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_gateway_decisions_total",
		Help: "Bearer token outcomes seen by the gateway.",
	}, []string{"decision"})
)

func MetricsHandler() http.Handler { return promhttp.Handler() }

func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

func ObserveAuth(op, result string, d time.Duration) {
	authOps.WithLabelValues(op, result).Inc()
	authLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveGateway counts one of: none, attached, blacklisted, invalid, error.
func ObserveGateway(decision string) {
	gatewayDecisions.WithLabelValues(decision).Inc()
}
