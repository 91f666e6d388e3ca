package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.RecordPriceSource("jupiter_v3", "hit")
	c.RecordPriceSource("jupiter_v3", "hit")
	c.RecordPriceSource("coingecko", "error")
	c.RecordSubmission(OutcomeCancelled)
	c.RecordScan(150*time.Millisecond, true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.priceSource.WithLabelValues("jupiter_v3", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.priceSource.WithLabelValues("coingecko", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.submissions.WithLabelValues(OutcomeCancelled)))

	c.Reset()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.submissions.WithLabelValues(OutcomeCancelled)))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordPriceSource("x", "hit")
		c.RecordScan(time.Second, false)
		c.RecordSubmission(OutcomeFailed)
		c.RecordRPCLatency("getBalance", time.Millisecond)
		c.Reset()
	})
}
