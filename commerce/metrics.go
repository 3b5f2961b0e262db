package commerce

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var gatewayMetricsOnce sync.Once

var (
	gatewayRequestsTotal   *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec
)

func registerCountVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func registerHistogramVec(c *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return c
}

func initGatewayMetrics() {
	gatewayMetricsOnce.Do(func() {
		gatewayRequestsTotal = registerCountVec(prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accessbot",
			Subsystem: "commerce",
			Name:      "requests_total",
			Help:      "Total number of commerce gateway requests.",
		}, []string{"status"}))
		gatewayRequestDuration = registerHistogramVec(prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accessbot",
			Subsystem: "commerce",
			Name:      "request_duration_seconds",
			Help:      "Commerce gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}))
	})
}

func observeGatewayCall(status string, d time.Duration) {
	initGatewayMetrics()
	gatewayRequestsTotal.WithLabelValues(status).Inc()
	gatewayRequestDuration.WithLabelValues(status).Observe(d.Seconds())
}
