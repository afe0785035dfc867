package processor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metrics
var (
	messagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gazetrace",
			Subsystem: "processor",
			Name:      "messages_total",
			Help:      "Trial messages processed, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	trialsAnalyzed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gazetrace",
			Subsystem: "processor",
			Name:      "trials_analyzed_total",
			Help:      "Trials analysed, by what closed them.",
		},
		[]string{"reason"},
	)

	analysisWarnings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gazetrace",
			Subsystem: "processor",
			Name:      "analysis_warnings_total",
			Help:      "Warnings reported by trial analyses.",
		},
	)

	openTrials = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gazetrace",
			Subsystem: "processor",
			Name:      "open_trials",
			Help:      "Trials currently buffered in memory.",
		},
	)

	flushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gazetrace",
			Subsystem: "processor",
			Name:      "flush_duration_seconds",
			Help:      "Time spent writing buffered rows to ClickHouse.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	// ignore duplicate registration when the package is imported twice in tests
	_ = prometheus.Register(messagesProcessed)
	_ = prometheus.Register(trialsAnalyzed)
	_ = prometheus.Register(analysisWarnings)
	_ = prometheus.Register(openTrials)
	_ = prometheus.Register(flushDuration)
}
