package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API.
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds.
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// Optimizations counts sequencing calls by mode and outcome.
	Optimizations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimizations by mode and outcome."},
		[]string{"mode", "outcome"},
	)
	// OptimizationStops observes the stop count per optimization request.
	OptimizationStops = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "route_optimization_stops", Help: "Stops per optimization request.", Buckets: []float64{1, 2, 4, 8, 16, 32, 64}},
	)
	// RouteTotalCost observes the winning route's total cost.
	RouteTotalCost = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "route_total_cost", Help: "Total cost of returned routes.", Buckets: prometheus.ExponentialBuckets(10, 2.5, 10)},
		[]string{"mode"},
	)
)

// RegisterDefault registers collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(Optimizations)
		Registry.MustRegister(OptimizationStops)
		Registry.MustRegister(RouteTotalCost)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
