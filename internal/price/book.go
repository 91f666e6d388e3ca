// internal/price/book.go
package price

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable view of known prices.
type Snapshot struct {
	prices    map[string]float64
	UpdatedAt time.Time
}

// Price returns the USD price for mint, 0 if unknown.
func (s *Snapshot) Price(mint string) float64 {
	if s == nil {
		return 0
	}
	return s.prices[mint]
}

// Has reports whether mint has been resolved (possibly to 0).
func (s *Snapshot) Has(mint string) bool {
	if s == nil {
		return false
	}
	_, ok := s.prices[mint]
	return ok
}

// Len returns the number of known mints.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.prices)
}

// Book holds the process-wide price state. Readers always see a complete
// snapshot; writers publish a new snapshot instead of editing the current one.
type Book struct {
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

func NewBook() *Book {
	b := &Book{now: time.Now}
	b.current.Store(&Snapshot{prices: map[string]float64{}})
	return b
}

// Snapshot returns the latest snapshot.
func (b *Book) Snapshot() *Snapshot {
	return b.current.Load()
}

// Price is a shortcut for Snapshot().Price(mint).
func (b *Book) Price(mint string) float64 {
	return b.current.Load().Price(mint)
}

// Merge publishes a new snapshot containing the previous prices overlaid with updates.
func (b *Book) Merge(updates map[string]float64) *Snapshot {
	for {
		old := b.current.Load()
		next := &Snapshot{
			prices:    make(map[string]float64, len(old.prices)+len(updates)),
			UpdatedAt: b.now(),
		}
		for k, v := range old.prices {
			next.prices[k] = v
		}
		for k, v := range updates {
			next.prices[k] = v
		}
		if b.current.CompareAndSwap(old, next) {
			return next
		}
	}
}
