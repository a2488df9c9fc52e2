package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests     *prometheus.CounterVec
	LatencyMS    *prometheus.HistogramVec
	OrdersPlaced prometheus.Counter
	OrdersFailed *prometheus.CounterVec
}

func NewServerMetrics() *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healup",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "healup",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method", "path"})
	ordersPlaced := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "healup",
		Name:      "orders_placed_total",
		Help:      "Orders that were accepted and persisted.",
	})
	ordersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "healup",
		Name:      "orders_failed_total",
		Help:      "Orders rejected before persistence.",
	}, []string{"reason"})

	prometheus.MustRegister(requests, latency, ordersPlaced, ordersFailed)
	return &ServerMetrics{
		Requests:     requests,
		LatencyMS:    latency,
		OrdersPlaced: ordersPlaced,
		OrdersFailed: ordersFailed,
	}
}

// Middleware records a counter and latency sample per handled request, keyed
// by the route template so path parameters do not explode the label set.
func (m *ServerMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.Requests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(c.Request.Method, path).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
