package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 聚合引擎指标
	AggregationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_aggregation_runs_total",
			Help: "Aggregation passes over submissions or reviewers",
		},
		[]string{"kind"}, // submission / reviewer
	)

	GradesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_grades_written_total",
			Help: "Grade values persisted after the write-skip comparison",
		},
		[]string{"kind"},
	)

	AllocationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workshop_allocations_created_total",
			Help: "Reviewer-submission allocations created",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(AggregationRuns)
	prometheus.MustRegister(GradesWritten)
	prometheus.MustRegister(AllocationsCreated)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
