// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation: the Metrics() middleware
// measures request counts, latencies, in-flight concurrency, and response
// sizes, and a small set of domain counters tracks the query lifecycle
// (submitted, verified, rated). Labels are chosen to keep cardinality
// bounded:
//
//   - method: HTTP verb
//   - path:   the registered Gin route (e.g. /api/v1/queries/:id/verify);
//     falls back to the raw URL path when no route matched
//   - status: numeric status code as a string
//
// All collectors are safe for concurrent use.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of currently processing requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// httpRespSize captures response sizes in bytes, tuned for JSON payloads.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20, 2 << 20, 5 << 20,
			},
		},
		[]string{"method", "path"},
	)

	// QueriesSubmitted counts persisted patient submissions.
	QueriesSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medqa_queries_submitted_total",
		Help: "Total number of patient queries submitted and stored.",
	})

	// QueriesVerified counts clinician verifications.
	QueriesVerified = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medqa_queries_verified_total",
		Help: "Total number of queries verified by clinicians.",
	})

	// RatingsRecorded counts patient ratings by outcome ("helpful" or
	// "not_helpful").
	RatingsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "medqa_ratings_total",
		Help: "Total number of patient ratings recorded.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize,
		QueriesSubmitted, QueriesVerified, RatingsRecorded)
}

// Metrics returns a Gin middleware that instruments requests with
// Prometheus: http_requests_total, http_request_duration_seconds,
// http_requests_inflight, and http_response_size_bytes. Pair with
// r.GET("/metrics", gin.WrapH(promhttp.Handler())).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size >= 0 {
			// Hijacked connections may not report a size.
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
