package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_purchases_total",
			Help: "Product purchases by funding source",
		},
		[]string{"funding"},
	)

	RewardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rewards_total",
			Help: "Daily reward outcomes per holding",
		},
		[]string{"result"},
	)

	CommissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_commissions_total",
			Help: "Commission payouts by upline depth and source",
		},
		[]string{"depth", "source"},
	)

	HoldingsRefundedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_holdings_refunded_total",
			Help: "Holdings moved to REFUNDED",
		},
		[]string{"reason"},
	)

	TrialsRecoveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_trials_recovered_total",
			Help: "Trial funds moved to RECOVERED",
		},
	)

	SweepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_sweep_item_failures_total",
			Help: "Per-item failures inside scheduled sweeps",
		},
		[]string{"job"},
	)

	SweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_sweep_duration_seconds",
			Help:    "Wall time of scheduled sweeps",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"job"},
	)
)

// ObserveSweep records a sweep duration; use with defer.
func ObserveSweep(job string, started time.Time) {
	SweepDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func Depth(level int) string {
	return strconv.Itoa(level)
}

// Middleware counts requests and response times per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		HttpRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		ResponseTimeHistogram.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
