package observ

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocrm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "echocrm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	replicaLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocrm_replica_loads_total",
			Help: "Replica loads by collection and result (ok, error, superseded)",
		},
		[]string{"collection", "result"},
	)

	mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocrm_mutations_total",
			Help: "Record mutations by collection, operation and result",
		},
		[]string{"collection", "op", "result"},
	)

	signIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "echocrm_auth_attempts_total",
			Help: "Sign-up and sign-in attempts by outcome code",
		},
		[]string{"action", "code"},
	)
)

// Metrics records request count and latency per matched route. Unmatched
// paths all share one "unmatched" label.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordReplicaLoad(collection, result string) {
	replicaLoads.WithLabelValues(collection, result).Inc()
}

func RecordMutation(collection, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	mutations.WithLabelValues(collection, op, result).Inc()
}

// RecordAuth counts an auth attempt. code is "ok" or the provider error code.
func RecordAuth(action, code string) {
	signIns.WithLabelValues(action, code).Inc()
}
