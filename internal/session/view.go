package session

import (
	"time"

	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/metadata"
	"github.com/HosicoLabs/Litterbox/internal/planner"
)

// View is a consistent read-only snapshot for rendering.
type View struct {
	PageRecords   []domain.TokenAccountRecord
	Page          int
	Pages         int
	Total         int
	Selection     domain.SelectionSet
	Loading       bool
	ScanErr       error
	NativeBalance *float64
	NativePrice   float64
	TargetPrice   float64
	Preview       planner.Preview
	Status        string
	InFlight      bool
	ScannedAt     time.Time
	EmptyMessage  string
}

// View returns the current render snapshot.
func (s *Session) View() View {
	s.mu.RLock()
	start, end, page := metadata.PageBounds(len(s.records), s.settings.ItemsPerPage, s.page)
	v := View{
		PageRecords:   append([]domain.TokenAccountRecord(nil), s.records[start:end]...),
		Page:          page,
		Pages:         metadata.PageCount(len(s.records), s.settings.ItemsPerPage),
		Total:         len(s.records),
		Selection:     s.selection,
		Loading:       s.loading,
		ScanErr:       s.scanErr,
		NativeBalance: s.nativeBalance,
		ScannedAt:     s.scannedAt,
	}
	s.mu.RUnlock()

	v.NativePrice = s.NativePrice()
	v.TargetPrice = s.TargetPrice()
	v.Preview = s.Preview()
	v.Status = s.deps.Status.Text()
	v.InFlight = s.InFlight()
	if !v.Loading && v.ScanErr == nil && v.Total == 0 {
		v.EmptyMessage = EmptyMessage
	}
	return v
}
