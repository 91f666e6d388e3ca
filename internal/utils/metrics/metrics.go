// internal/utils/metrics/metrics.go
package metrics

import (
	"time"
)

// RecordPriceSource записывает результат обращения к источнику цены: hit, miss или error.
func (c *Collector) RecordPriceSource(source, outcome string) {
	if c == nil {
		return
	}
	c.priceSource.WithLabelValues(source, outcome).Inc()
}

// RecordScan записывает длительность сканирования кошелька.
func (c *Collector) RecordScan(duration time.Duration, success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	c.scanDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSubmission записывает исход отправки транзакции.
func (c *Collector) RecordSubmission(outcome string) {
	if c == nil {
		return
	}
	c.submissions.WithLabelValues(outcome).Inc()
}

// RecordRPCLatency записывает метрики RPC-запроса
func (c *Collector) RecordRPCLatency(method string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}
