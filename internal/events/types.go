// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// EventType represents the type of event.
type EventType string

const (
	// Scan events
	ScanStarted   EventType = "scan.started"
	ScanCompleted EventType = "scan.completed"
	ScanFailed    EventType = "scan.failed"
	PageEnriched  EventType = "scan.page_enriched"

	// Price events
	PricesUpdated EventType = "price.updated"

	// Conversion events
	StatusChanged      EventType = "conversion.status"
	ConversionFinished EventType = "conversion.finished"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps an event header with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// ScanStartedEvent is emitted when a wallet scan begins.
type ScanStartedEvent struct {
	BaseEvent
	Owner      solana.PublicKey
	Generation uint64
}

// ScanCompletedEvent carries the size of a fresh eligible set.
type ScanCompletedEvent struct {
	BaseEvent
	Owner         solana.PublicKey
	Generation    uint64
	Eligible      int
	NativeBalance *float64
}

// ScanFailedEvent is emitted when the account listing fails.
type ScanFailedEvent struct {
	BaseEvent
	Owner solana.PublicKey
	Error error
}

// PageEnrichedEvent is emitted after metadata for a page was merged.
type PageEnrichedEvent struct {
	BaseEvent
	Page    int
	Records int
}

// PricesUpdatedEvent is emitted when the price book changes.
type PricesUpdatedEvent struct {
	BaseEvent
	Prices map[string]float64
}

// StatusChangedEvent mirrors the transient status line.
type StatusChangedEvent struct {
	BaseEvent
	Text string
}

// ConversionFinishedEvent is emitted once per conversion attempt.
type ConversionFinishedEvent struct {
	BaseEvent
	Outcome   string
	Signature string
	Closed    int
	CloseOnly bool
	Error     error
}
