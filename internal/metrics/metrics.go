// Package metrics exposes Prometheus instrumentation for the outreach
// engine: domain counters for the send/reply pipeline and HTTP middleware
// for the control API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_emails_sent_total",
		Help: "Outbound campaign emails committed, by stage.",
	}, []string{"stage"})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_send_failures_total",
		Help: "Sends that failed and parked the lead.",
	})

	RepliesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_replies_total",
		Help: "Leads transitioned to replied during reconciliation.",
	})

	AutoResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_auto_responses_total",
		Help: "Auto-responses sent to replying leads.",
	})

	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outreach_tick_duration_seconds",
		Help:    "Wall time of one scheduler tick, including the pacing wait.",
		Buckets: prometheus.DefBuckets,
	})

	ReconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_reconcile_account_errors_total",
		Help: "Per-account failures during reply reconciliation.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_http_requests_total",
		Help: "Control API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outreach_http_request_duration_seconds",
		Help:    "Control API request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
