package auditor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var sweepMetricsOnce sync.Once

var sweepResults *prometheus.CounterVec

func initSweepMetrics() {
	sweepMetricsOnce.Do(func() {
		sweepResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accessbot",
			Subsystem: "audit",
			Name:      "records_total",
			Help:      "Audit sweep record outcomes.",
		}, []string{"result"})
		if err := prometheus.Register(sweepResults); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					sweepResults = existing
				}
			}
		}
	})
}

func observeSweep(stats Stats) {
	initSweepMetrics()
	sweepResults.WithLabelValues("scanned").Add(float64(stats.Scanned))
	sweepResults.WithLabelValues("skipped").Add(float64(stats.Skipped))
	sweepResults.WithLabelValues("overdue").Add(float64(stats.Overdue))
	sweepResults.WithLabelValues("downgraded").Add(float64(stats.Downgraded))
	sweepResults.WithLabelValues("faults").Add(float64(stats.Faults))
}
