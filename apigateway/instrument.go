package apigateway

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

var httpMetricsOnce sync.Once

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

func initHTTPMetrics() {
	httpMetricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accessbot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of requests per endpoint.",
		}, []string{"code", "method", "path"})
		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accessbot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"})
		for _, coll := range []prometheus.Collector{httpRequestsTotal, httpRequestDuration} {
			if err := prometheus.Register(coll); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}

// Instrumentation counts and times every request by route.
func Instrumentation() fiber.Handler {
	initHTTPMetrics()
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			path = r.Path
		}
		httpRequestsTotal.WithLabelValues(
			strconv.Itoa(c.Response().StatusCode()), c.Method(), path,
		).Inc()
		httpRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
		return err
	}
}
