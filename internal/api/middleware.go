package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"fleetroute/internal/metrics"
)

// optimizeLimiter throttles optimization requests across all callers;
// permutation search is CPU-heavy and the dashboard retries eagerly.
type optimizeLimiter struct {
	l *rate.Limiter
}

func newOptimizeLimiter() *optimizeLimiter {
	rps := envFloat("OPTIMIZE_RATE_RPS", 10)
	burst := envInt("OPTIMIZE_RATE_BURST", 20)
	return &optimizeLimiter{l: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (o *optimizeLimiter) Allow() bool { return o.l.Allow() }

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// statusRecorder captures the response code for the metrics middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records request counts and latencies. Streaming endpoints
// (SSE, websocket) are passed through untouched so hijacking keeps working.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/events/stream" || r.URL.Path == "/v1/optimize/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		status := strconv.Itoa(rec.status)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(time.Since(start).Seconds())
	})
}
