// internal/utils/metrics/collector.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricType представляет тип метрики
type MetricType string

const (
	PriceSourceCounterType MetricType = "price_source_counter"
	ScanDurationType       MetricType = "scan_duration"
	SubmissionCounterType  MetricType = "submission_counter"
	RPCLatencyType         MetricType = "rpc_latency"
)

// Outcome labels for submissions.
const (
	OutcomeSuccess   = "success"
	OutcomePartial   = "partial"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeAborted   = "aborted"
)

// Collector владеет набором метрик конвейера. Nil-коллектор безопасен: все методы становятся no-op.
type Collector struct {
	priceSource  *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec
	submissions  *prometheus.CounterVec
	rpcLatency   *prometheus.HistogramVec
}

// NewCollector создает коллектор и регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		priceSource: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "litterbox",
				Name:      "price_source_requests_total",
				Help:      "Price source lookups by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "litterbox",
				Name:      "scan_duration_seconds",
				Help:      "Duration of wallet scans",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "litterbox",
				Name:      "submissions_total",
				Help:      "Conversion submissions by outcome",
			},
			[]string{"outcome"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "litterbox",
				Name:      "rpc_latency_seconds",
				Help:      "Chain RPC call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	for _, m := range []prometheus.Collector{c.priceSource, c.scanDuration, c.submissions, c.rpcLatency} {
		reg.MustRegister(m)
	}
	return c
}

// Reset сбрасывает все метрики (полезно для тестирования)
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.priceSource.Reset()
	c.scanDuration.Reset()
	c.submissions.Reset()
	c.rpcLatency.Reset()
}
