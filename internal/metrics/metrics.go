package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartblood",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	MatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartblood",
		Name:      "match_runs_total",
		Help:      "Completed match runs by outcome.",
	}, []string{"outcome"})

	MatchCandidatesFound = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "smartblood",
		Name:      "match_candidates_found",
		Help:      "Candidates surviving selection per run.",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
	})

	DonorNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smartblood",
		Name:      "donor_notifications_total",
		Help:      "Donor alerts dispatched (in-app row created).",
	})

	ModelReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartblood",
		Name:      "model_reloads_total",
		Help:      "Model hot reloads by model name.",
	}, []string{"model"})
)

// GinMiddleware records per-route latency. Route template keeps the label
// cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
