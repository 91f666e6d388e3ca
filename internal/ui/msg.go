package ui

import (
	"github.com/HosicoLabs/Litterbox/internal/events"
	"github.com/HosicoLabs/Litterbox/internal/session"
)

// Tea message types for UI communication

// ScanDoneMsg is sent when a scan (and its first page enrichment) finished.
type ScanDoneMsg struct {
	Err error
}

// PageEnrichedMsg is sent when metadata for the active page arrived.
type PageEnrichedMsg struct {
	Err error
}

// ConvertDoneMsg carries the result of a conversion attempt.
type ConvertDoneMsg struct {
	Outcome *session.Outcome
	Err     error
}

// EventMsg wraps a bus event for the UI.
type EventMsg struct {
	Event events.Event
}
