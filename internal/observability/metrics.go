// Package observability provides Prometheus metrics for monitoring the
// rowfence API and its background workers.
package observability

import "github.com/prometheus/client_golang/prometheus"

// APIBuckets defines histogram buckets for request latencies, ranging
// from 5ms to 10s.
var APIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// RequestsTotal counts all HTTP requests by method, route and status.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowfence_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rowfence_request_duration_seconds",
			Help:    "Request duration",
			Buckets: APIBuckets,
		},
		[]string{"method", "route"},
	)

	// AuthFailuresTotal counts rejected API key authentications.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowfence_auth_failures_total",
			Help: "Authentication failures",
		},
		[]string{"reason"},
	)

	// KeyCacheHitsTotal counts API key lookups served from the cache.
	KeyCacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rowfence_key_cache_hits_total",
			Help: "API key cache hits",
		},
	)

	// KeyCacheMissesTotal counts API key lookups that went to the store.
	KeyCacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rowfence_key_cache_misses_total",
			Help: "API key cache misses",
		},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rowfence_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
	)

	// OrdersExpiredTotal counts pending orders cancelled by the expiry
	// worker.
	OrdersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rowfence_orders_expired_total",
			Help: "Orders expired by the background worker",
		},
	)

	// ScopedQueriesTotal counts store queries built with the tenant scope
	// attached, by table.
	ScopedQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowfence_scoped_queries_total",
			Help: "Store queries constrained by the tenant scope",
		},
		[]string{"table"},
	)

	// UnscopedQueriesTotal counts store queries that deliberately bypass
	// the tenant scope, by table.
	UnscopedQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rowfence_unscoped_queries_total",
			Help: "Store queries bypassing the tenant scope",
		},
		[]string{"table"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthFailuresTotal,
		KeyCacheHitsTotal,
		KeyCacheMissesTotal,
		RateLimitRejectedTotal,
		OrdersExpiredTotal,
		ScopedQueriesTotal,
		UnscopedQueriesTotal,
	)
}
