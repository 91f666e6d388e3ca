// internal/session/session.go
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/assembler"
	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/events"
	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/metadata"
	"github.com/HosicoLabs/Litterbox/internal/planner"
	"github.com/HosicoLabs/Litterbox/internal/price"
	"github.com/HosicoLabs/Litterbox/internal/scanner"
	"github.com/HosicoLabs/Litterbox/internal/status"
	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
)

var (
	ErrConversionInFlight = errors.New("a conversion is already in flight")
	ErrNothingSelected    = errors.New("no tokens selected")
	ErrClosed             = errors.New("session closed")
	ErrStale              = errors.New("result superseded by a newer request")
)

// EmptyMessage is shown when a scan finds nothing to clean up.
const EmptyMessage = "No tokens found with value <$1."

type Scanner interface {
	Scan(ctx context.Context, owner solana.PublicKey) (*scanner.Result, error)
}

type Enricher interface {
	EnrichPage(ctx context.Context, page []domain.TokenAccountRecord) []domain.TokenAccountRecord
}

type Assembler interface {
	Assemble(ctx context.Context, req assembler.Request) (*assembler.Result, error)
}

type Submitter interface {
	SubmitEncoded(ctx context.Context, encoded string) (string, error)
}

// Poller is the background price refresher owned by the session.
type Poller interface {
	Start(ctx context.Context)
	Stop()
}

// Settings are the constants the session needs from configuration.
type Settings struct {
	NativeMint     solana.PublicKey
	NativeSymbol   string
	TargetMint     solana.PublicKey
	TargetSymbol   string
	ItemsPerPage   int
	RentPerAccount float64
	FeeFraction    float64
	RescanDelay    time.Duration
}

// Deps are the collaborators wired in by the front end.
type Deps struct {
	Owner     solana.PublicKey
	Scanner   Scanner
	Enricher  Enricher
	Assembler Assembler
	Submitter Submitter
	Book      *price.Book
	Poller    Poller
	Status    *status.Board
	Events    events.Publisher
	Metrics   *metrics.Collector
	Logger    *zap.Logger
}

// Session owns the view state of one connected wallet: the eligible records,
// the selection, the active page and the conversion flow.
type Session struct {
	settings Settings
	deps     Deps
	logger   *zap.Logger

	mu            sync.RWMutex
	records       []domain.TokenAccountRecord
	selection     domain.SelectionSet
	page          int
	loading       bool
	scanErr       error
	nativeBalance *float64
	scannedAt     time.Time
	rescan        *time.Timer

	scanGen  atomic.Uint64
	pageGen  atomic.Uint64
	inFlight atomic.Bool
	closed   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a session. Call Start to begin price polling and the first scan.
func New(settings Settings, deps Deps) *Session {
	if settings.ItemsPerPage <= 0 {
		settings.ItemsPerPage = 8
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Book == nil {
		deps.Book = price.NewBook()
	}
	if deps.Status == nil {
		deps.Status = status.NewBoard(15 * time.Second)
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		settings: settings,
		deps:     deps,
		logger:   logger.WithWallet(deps.Logger.Named("session"), deps.Owner.String()),
		ctx:      ctx,
		cancel:   cancel,
	}
	deps.Status.OnChange(func(text string) {
		_ = s.deps.Events.Publish(events.StatusChangedEvent{BaseEvent: events.NewBase(events.StatusChanged), Text: text})
	})
	return s
}

// Owner returns the connected wallet address.
func (s *Session) Owner() solana.PublicKey {
	return s.deps.Owner
}

// Start begins price polling. The poller lives until Close.
func (s *Session) Start() {
	if s.deps.Poller != nil {
		s.deps.Poller.Start(s.ctx)
	}
}

// Close tears the session down: polling stops, pending rescans are cancelled
// and in-flight scan or enrichment results are discarded on arrival.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	if s.deps.Poller != nil {
		s.deps.Poller.Stop()
	}

	s.mu.Lock()
	if s.rescan != nil && s.rescan.Stop() {
		s.wg.Done()
	}
	s.rescan = nil
	s.mu.Unlock()

	s.deps.Status.Stop()
	s.wg.Wait()
}

// Scan refreshes the eligible set and enriches the active page. A scan
// superseded by a newer one, or finishing after Close, returns ErrStale and
// changes nothing.
func (s *Session) Scan(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	defer logger.TrackPerformance(logger.WithOperation(s.logger, "scan"))()
	gen := s.scanGen.Add(1)

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	_ = s.deps.Events.Publish(events.ScanStartedEvent{BaseEvent: events.NewBase(events.ScanStarted), Owner: s.deps.Owner, Generation: gen})

	res, err := s.deps.Scanner.Scan(ctx, s.deps.Owner)
	if !s.live(gen) {
		s.logger.Debug("Discarding stale scan result", zap.Uint64("generation", gen))
		return ErrStale
	}

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.records = nil
		s.scanErr = err
		s.selection = domain.SelectionSet{}
		s.page = 0
		if res != nil {
			s.nativeBalance = res.NativeBalance
		}
		s.mu.Unlock()
		_ = s.deps.Events.Publish(events.ScanFailedEvent{BaseEvent: events.NewBase(events.ScanFailed), Owner: s.deps.Owner, Error: err})
		return err
	}

	s.records = res.Records
	s.scanErr = nil
	s.nativeBalance = res.NativeBalance
	s.scannedAt = res.ScannedAt
	s.selection = s.selection.Retain(mintsOf(res.Records))
	_, _, s.page = metadata.PageBounds(len(s.records), s.settings.ItemsPerPage, s.page)
	s.mu.Unlock()

	if len(res.Prices) > 0 {
		s.deps.Book.Merge(res.Prices)
	}
	_ = s.deps.Events.Publish(events.ScanCompletedEvent{
		BaseEvent:     events.NewBase(events.ScanCompleted),
		Owner:         s.deps.Owner,
		Generation:    gen,
		Eligible:      len(res.Records),
		NativeBalance: res.NativeBalance,
	})

	if err := s.EnrichPage(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

// SetPage changes the active page, clamped to the available range. The caller
// follows up with EnrichPage.
func (s *Session) SetPage(p int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, s.page = metadata.PageBounds(len(s.records), s.settings.ItemsPerPage, p)
	s.pageGen.Add(1)
	return s.page
}

func (s *Session) NextPage() int {
	return s.SetPage(s.Page() + 1)
}

func (s *Session) PrevPage() int {
	return s.SetPage(s.Page() - 1)
}

func (s *Session) Page() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// EnrichPage fetches metadata for the active page only and merges it, unless
// a newer scan or page change happened in the meantime.
func (s *Session) EnrichPage(ctx context.Context) error {
	if s.deps.Enricher == nil {
		return nil
	}
	scanGen := s.scanGen.Load()
	pageGen := s.pageGen.Load()

	s.mu.RLock()
	start, end, page := metadata.PageBounds(len(s.records), s.settings.ItemsPerPage, s.page)
	batch := make([]domain.TokenAccountRecord, end-start)
	copy(batch, s.records[start:end])
	s.mu.RUnlock()

	if len(batch) == 0 {
		return nil
	}

	enriched := s.deps.Enricher.EnrichPage(ctx, batch)
	if !s.live(scanGen) || s.pageGen.Load() != pageGen {
		return ErrStale
	}

	byAddress := make(map[solana.PublicKey]domain.TokenAccountRecord, len(enriched))
	for _, r := range enriched {
		byAddress[r.Address] = r
	}

	s.mu.Lock()
	next := make([]domain.TokenAccountRecord, len(s.records))
	copy(next, s.records)
	for i := range next {
		if r, ok := byAddress[next[i].Address]; ok {
			next[i].Symbol, next[i].Name, next[i].Image, next[i].Enriched = r.Symbol, r.Name, r.Image, true
		}
	}
	s.records = next
	s.mu.Unlock()

	_ = s.deps.Events.Publish(events.PageEnrichedEvent{BaseEvent: events.NewBase(events.PageEnriched), Page: page, Records: len(enriched)})
	return nil
}

// Toggle flips the selection of one mint.
func (s *Session) Toggle(mint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection.Toggle(mint)
}

// ToggleAll selects every eligible record, or none if all are already selected.
func (s *Session) ToggleAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = s.selection.ToggleAll(mintsOf(s.records))
}

// SelectMints replaces the selection with the given mints that are eligible.
func (s *Session) SelectMints(mints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = domain.NewSelection(mints...).Retain(mintsOf(s.records))
}

// Selection returns the current selection snapshot.
func (s *Session) Selection() domain.SelectionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Records returns the current eligible records.
func (s *Session) Records() []domain.TokenAccountRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// Preview computes the conversion summary for the current selection.
func (s *Session) Preview() planner.Preview {
	s.mu.RLock()
	records, sel := s.records, s.selection
	s.mu.RUnlock()

	return planner.Compute(records, sel, s.NativePrice(), s.TargetPrice(), planner.Params{
		RentPerAccount: s.settings.RentPerAccount,
		FeeFraction:    s.settings.FeeFraction,
	})
}

func (s *Session) NativePrice() float64 {
	return s.deps.Book.Price(s.settings.NativeMint.String())
}

func (s *Session) TargetPrice() float64 {
	return s.deps.Book.Price(s.settings.TargetMint.String())
}

// InFlight reports whether a conversion is running.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

func (s *Session) live(gen uint64) bool {
	return !s.closed.Load() && s.scanGen.Load() == gen
}

func mintsOf(records []domain.TokenAccountRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.MintKey()
	}
	return out
}
