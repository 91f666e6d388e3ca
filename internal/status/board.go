// internal/status/board.go
package status

import (
	"sync"
	"time"
)

// Board holds the transient, human-readable status line of the conversion flow.
type Board struct {
	mu         sync.Mutex
	text       string
	gen        uint64
	timer      *time.Timer
	clearAfter time.Duration
	onChange   func(text string)
}

// NewBoard creates a board whose flashed messages clear after clearAfter.
func NewBoard(clearAfter time.Duration) *Board {
	return &Board{clearAfter: clearAfter}
}

// OnChange registers a callback invoked with every new text, "" included.
func (b *Board) OnChange(fn func(text string)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Text returns the current status.
func (b *Board) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// Set shows text until it is replaced.
func (b *Board) Set(text string) {
	b.update(text, false)
}

// Flash shows text and clears it after the configured timeout unless
// something newer replaced it first.
func (b *Board) Flash(text string) {
	b.update(text, true)
}

// Clear empties the board.
func (b *Board) Clear() {
	b.update("", false)
}

// Stop cancels a pending auto-clear.
func (b *Board) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

func (b *Board) update(text string, autoClear bool) {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.text = text
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if autoClear && b.clearAfter > 0 {
		b.timer = time.AfterFunc(b.clearAfter, func() { b.expire(gen) })
	}
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn(text)
	}
}

func (b *Board) expire(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.gen++
	b.text = ""
	b.timer = nil
	fn := b.onChange
	b.mu.Unlock()

	if fn != nil {
		fn("")
	}
}
