// internal/price/poller.go
package price

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Resolver is the part of Aggregator the poller needs.
type Resolver interface {
	Resolve(ctx context.Context, mints []string) map[string]float64
}

// Target is one polled mint and the chain that prices it.
type Target struct {
	Mint     string
	Resolver Resolver
}

// Poller refreshes a fixed set of mints on an interval, each mint resolved
// independently, and merges results into a Book.
type Poller struct {
	targets  []Target
	book     *Book
	interval time.Duration
	logger   *zap.Logger
	onUpdate func(mint string, price float64)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a poller. Targets are refreshed in the given order, so a
// price derived from another one should come after it.
func NewPoller(book *Book, interval time.Duration, logger *zap.Logger, targets ...Target) *Poller {
	return &Poller{
		targets:  targets,
		book:     book,
		interval: interval,
		logger:   logger.Named("price-poller"),
	}
}

// OnUpdate registers a callback invoked after each mint refresh.
func (p *Poller) OnUpdate(fn func(mint string, price float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUpdate = fn
}

// Start refreshes immediately and then on every tick until Stop or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.RefreshAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.RefreshAll(ctx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RefreshAll resolves every polled mint once. Mints are refreshed one after
// another so a slow source for one does not overlap the other.
func (p *Poller) RefreshAll(ctx context.Context) {
	for _, t := range p.targets {
		if ctx.Err() != nil {
			return
		}
		mint := t.Mint
		price := t.Resolver.Resolve(ctx, []string{mint})[mint]
		if ctx.Err() != nil {
			return
		}
		// an empty refresh keeps the last non-zero value
		if price <= 0 && p.book.Snapshot().Price(mint) > 0 {
			p.logger.Debug("Price refresh returned nothing, keeping previous", zap.String("mint", mint))
			continue
		}
		p.book.Merge(map[string]float64{mint: price})

		p.mu.Lock()
		fn := p.onUpdate
		p.mu.Unlock()
		if fn != nil {
			fn(mint, price)
		}
	}
}
