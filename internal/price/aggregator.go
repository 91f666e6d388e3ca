// internal/price/aggregator.go
package price

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
)

// Stage is one step of the fallback chain.
type Stage struct {
	Source Source
	// AcceptAny ends the chain for the whole batch as soon as the source returns
	// any parseable entry, zeros and missing mints included.
	AcceptAny bool
}

// AggregatorConfig controls batching and pacing.
type AggregatorConfig struct {
	ChunkSize      int
	ChunkDelay     time.Duration
	SourceTimeout  time.Duration
	AcceptAnyDelay time.Duration
}

// Aggregator resolves prices through an ordered list of sources. Lookups never
// fail: anything no source could price resolves to 0.
type Aggregator struct {
	stages  []Stage
	cfg     AggregatorConfig
	logger  *zap.Logger
	metrics *metrics.Collector
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewAggregator создаёт агрегатор с источниками в порядке приоритета.
func NewAggregator(cfg AggregatorConfig, logger *zap.Logger, m *metrics.Collector, stages ...Stage) *Aggregator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 50
	}
	return &Aggregator{
		stages:  stages,
		cfg:     cfg,
		logger:  logger.Named("price-aggregator"),
		metrics: m,
		sleep:   sleepCtx,
	}
}

// Resolve returns a price for every requested mint (duplicates collapsed).
// Chunks are processed sequentially with a delay between them.
func (a *Aggregator) Resolve(ctx context.Context, mints []string) map[string]float64 {
	unique := dedupe(mints)
	out := make(map[string]float64, len(unique))

	for start := 0; start < len(unique); start += a.cfg.ChunkSize {
		if start > 0 {
			if err := a.sleep(ctx, a.cfg.ChunkDelay); err != nil {
				break
			}
		}
		end := start + a.cfg.ChunkSize
		if end > len(unique) {
			end = len(unique)
		}
		for mint, p := range a.resolveChunk(ctx, unique[start:end]) {
			out[mint] = p
		}
	}

	for _, m := range unique {
		if _, ok := out[m]; !ok {
			out[m] = 0
		}
	}
	return out
}

// ResolveOne is a convenience for single-mint lookups.
func (a *Aggregator) ResolveOne(ctx context.Context, mint string) float64 {
	return a.Resolve(ctx, []string{mint})[mint]
}

func (a *Aggregator) resolveChunk(ctx context.Context, chunk []string) map[string]float64 {
	resolved := make(map[string]float64, len(chunk))
	pending := chunk

	for _, stage := range a.stages {
		if len(pending) == 0 || ctx.Err() != nil {
			break
		}

		name := stage.Source.Name()
		prices, err := a.query(ctx, stage.Source, pending)
		if err != nil {
			a.metrics.RecordPriceSource(name, "error")
			a.logger.Debug("Price source unavailable",
				zap.String("source", name),
				zap.Int("mints", len(pending)),
				zap.Error(err))
			continue
		}

		if stage.AcceptAny {
			if len(prices) == 0 {
				a.metrics.RecordPriceSource(name, "miss")
				continue
			}
			for _, m := range pending {
				resolved[m] = prices[m]
			}
			a.metrics.RecordPriceSource(name, "hit")
			pending = nil
			_ = a.sleep(ctx, a.cfg.AcceptAnyDelay)
			break
		}

		var still []string
		for _, m := range pending {
			if p, ok := prices[m]; ok && p > 0 {
				resolved[m] = p
				continue
			}
			still = append(still, m)
		}
		if len(still) < len(pending) {
			a.metrics.RecordPriceSource(name, "hit")
		} else {
			a.metrics.RecordPriceSource(name, "miss")
		}
		pending = still
	}

	if len(pending) > 0 {
		a.logger.Debug("Unresolved prices default to zero", zap.Int("count", len(pending)))
	}
	return resolved
}

func (a *Aggregator) query(ctx context.Context, src Source, mints []string) (prices map[string]float64, err error) {
	if a.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SourceTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			prices, err = nil, errPanicked
		}
	}()
	return src.Resolve(ctx, mints)
}

func dedupe(mints []string) []string {
	seen := make(map[string]struct{}, len(mints))
	out := make([]string, 0, len(mints))
	for _, m := range mints {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
