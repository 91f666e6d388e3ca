package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HosicoLabs/Litterbox/internal/assembler"
	"github.com/HosicoLabs/Litterbox/internal/config"
	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/price"
	"github.com/HosicoLabs/Litterbox/internal/scanner"
	"github.com/HosicoLabs/Litterbox/internal/status"
	"github.com/HosicoLabs/Litterbox/internal/submit"
)

type fakeScanner struct {
	mu    sync.Mutex
	calls int32
	fn    func(call int32) (*scanner.Result, error)
}

func (f *fakeScanner) Scan(_ context.Context, _ solana.PublicKey) (*scanner.Result, error) {
	n := atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	return fn(n)
}

type fakeEnricher struct {
	calls int32
	gate  chan struct{}
}

func (f *fakeEnricher) EnrichPage(_ context.Context, page []domain.TokenAccountRecord) []domain.TokenAccountRecord {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	out := make([]domain.TokenAccountRecord, len(page))
	for i, r := range page {
		r.Symbol = "SYM" + r.MintKey()[:3]
		r.Name = "Name"
		r.Enriched = true
		out[i] = r
	}
	return out
}

type assemblerFunc func(ctx context.Context, req assembler.Request) (*assembler.Result, error)

func (f assemblerFunc) Assemble(ctx context.Context, req assembler.Request) (*assembler.Result, error) {
	return f(ctx, req)
}

type submitterFunc func(ctx context.Context, encoded string) (string, error)

func (f submitterFunc) SubmitEncoded(ctx context.Context, encoded string) (string, error) {
	return f(ctx, encoded)
}

func okAssembler(req assembler.Request) (*assembler.Result, error) {
	for _, st := range []assembler.Stage{assembler.StageClose, assembler.StageSwap} {
		if req.OnStage != nil {
			req.OnStage(st, assembler.StageInfo{CloseCount: len(req.Records), SwapNative: decimal.NewFromFloat(0.0024 * float64(len(req.Records)))})
		}
	}
	return &assembler.Result{Transaction: "AQID", CloseCount: len(req.Records)}, nil
}

func testRecords(owner solana.PublicKey, n int) []domain.TokenAccountRecord {
	out := make([]domain.TokenAccountRecord, n)
	for i := range out {
		out[i] = domain.TokenAccountRecord{
			Address:  solana.NewWallet().PublicKey(),
			Mint:     solana.NewWallet().PublicKey(),
			Owner:    owner,
			Decimals: 6,
			State:    domain.StateInitialized,
		}
	}
	return out
}

func testSettings() Settings {
	return Settings{
		NativeMint:     solana.MustPublicKeyFromBase58(config.NativeMint),
		NativeSymbol:   "SOL",
		TargetMint:     solana.MustPublicKeyFromBase58(config.TargetMint),
		TargetSymbol:   "HOSICO",
		ItemsPerPage:   2,
		RentPerAccount: 0.0024,
		FeeFraction:    0.007,
		RescanDelay:    10 * time.Millisecond,
	}
}

func newTestSession(t *testing.T, sc *fakeScanner, deps Deps) *Session {
	t.Helper()
	deps.Owner = solana.NewWallet().PublicKey()
	deps.Scanner = sc
	if deps.Enricher == nil {
		deps.Enricher = &fakeEnricher{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := New(testSettings(), deps)
	t.Cleanup(s.Close)
	return s
}

func staticScan(records []domain.TokenAccountRecord) func(int32) (*scanner.Result, error) {
	return func(int32) (*scanner.Result, error) {
		bal := 1.5
		return &scanner.Result{Records: records, NativeBalance: &bal, ScannedAt: time.Now()}, nil
	}
}

func TestScanEnrichesActivePageOnly(t *testing.T) {
	sc := &fakeScanner{}
	enricher := &fakeEnricher{}
	s := newTestSession(t, sc, Deps{Enricher: enricher})
	recs := testRecords(s.Owner(), 5)
	sc.fn = staticScan(recs)

	require.NoError(t, s.Scan(context.Background()))

	v := s.View()
	assert.Equal(t, 5, v.Total)
	assert.Equal(t, 3, v.Pages)
	require.Len(t, v.PageRecords, 2)
	assert.True(t, v.PageRecords[0].Enriched)
	assert.InDelta(t, 1.5, *v.NativeBalance, 1e-12)

	all := s.Records()
	assert.False(t, all[2].Enriched)

	assert.Equal(t, 2, s.SetPage(2))
	require.NoError(t, s.EnrichPage(context.Background()))
	v = s.View()
	require.Len(t, v.PageRecords, 1)
	assert.True(t, v.PageRecords[0].Enriched)
	assert.Equal(t, int32(2), atomic.LoadInt32(&enricher.calls))

	assert.Equal(t, 2, s.NextPage())
	assert.Equal(t, 1, s.PrevPage())
}

func TestScanLogsDurationWithWallet(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sc := &fakeScanner{}
	s := newTestSession(t, sc, Deps{Logger: zap.New(core)})
	sc.fn = staticScan(testRecords(s.Owner(), 1))

	require.NoError(t, s.Scan(context.Background()))

	done := logs.FilterMessage("Operation completed").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, "scan", fields["operation"])
	assert.Contains(t, fields, "duration")
	assert.NotEmpty(t, fields["wallet"])
}

func TestStaleScanIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	sc := &fakeScanner{}
	s := newTestSession(t, sc, Deps{})
	older := testRecords(s.Owner(), 3)
	newer := testRecords(s.Owner(), 1)
	sc.fn = func(call int32) (*scanner.Result, error) {
		if call == 1 {
			<-release
			return &scanner.Result{Records: older}, nil
		}
		return &scanner.Result{Records: newer}, nil
	}

	errc := make(chan error, 1)
	go func() { errc <- s.Scan(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&sc.calls) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Scan(context.Background()))
	close(release)
	assert.ErrorIs(t, <-errc, ErrStale)

	recs := s.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, newer[0].Address, recs[0].Address)
}

func TestEnrichmentDiscardedAfterPageChange(t *testing.T) {
	enricher := &fakeEnricher{gate: make(chan struct{})}
	sc := &fakeScanner{}
	s := newTestSession(t, sc, Deps{Enricher: enricher})
	sc.fn = staticScan(testRecords(s.Owner(), 4))

	errc := make(chan error, 1)
	go func() { errc <- s.Scan(context.Background()) }()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&enricher.calls) == 1 }, time.Second, time.Millisecond)

	s.SetPage(1)
	close(enricher.gate)
	require.NoError(t, <-errc)

	for _, r := range s.Records() {
		assert.False(t, r.Enriched)
	}
}

func TestScanFailureEmptiesList(t *testing.T) {
	sc := &fakeScanner{}
	s := newTestSession(t, sc, Deps{})
	recs := testRecords(s.Owner(), 2)
	sc.fn = staticScan(recs)
	require.NoError(t, s.Scan(context.Background()))
	s.ToggleAll()

	sc.mu.Lock()
	sc.fn = func(int32) (*scanner.Result, error) { return &scanner.Result{}, scanner.ErrScanFailed }
	sc.mu.Unlock()

	err := s.Scan(context.Background())
	assert.ErrorIs(t, err, scanner.ErrScanFailed)
	v := s.View()
	assert.Zero(t, v.Total)
	assert.ErrorIs(t, v.ScanErr, scanner.ErrScanFailed)
	assert.Empty(t, v.EmptyMessage)
	assert.Zero(t, v.Selection.Len())
}

func TestEmptyMessage(t *testing.T) {
	sc := &fakeScanner{fn: staticScan(nil)}
	s := newTestSession(t, sc, Deps{})
	require.NoError(t, s.Scan(context.Background()))
	assert.Equal(t, EmptyMessage, s.View().EmptyMessage)
}

func TestPreviewUsesBookPrices(t *testing.T) {
	book := price.NewBook()
	sc := &fakeScanner{}
	s := newTestSession(t, sc, Deps{Book: book})
	sc.fn = staticScan(testRecords(s.Owner(), 3))
	require.NoError(t, s.Scan(context.Background()))

	book.Merge(map[string]float64{config.NativeMint: 200, config.TargetMint: 0.01})
	s.ToggleAll()

	p := s.Preview()
	assert.True(t, p.ReclaimedUSD.Equal(decimal.RequireFromString("1.44")), p.ReclaimedUSD.String())
	assert.True(t, p.NetTarget.Equal(decimal.RequireFromString("142.992")), p.NetTarget.String())

	s.ToggleAll()
	assert.Zero(t, s.Selection().Len())
}

func TestConvertRequiresSelection(t *testing.T) {
	sc := &fakeScanner{fn: staticScan(nil)}
	board := status.NewBoard(time.Hour)
	s := newTestSession(t, sc, Deps{Status: board})

	_, err := s.Convert(context.Background())
	assert.ErrorIs(t, err, ErrNothingSelected)
	assert.Equal(t, status.SelectTokens, board.Text())
}

func TestConvertSuccessClearsSelectionAndRescans(t *testing.T) {
	sc := &fakeScanner{}
	board := status.NewBoard(time.Hour)
	var texts []string
	var mu sync.Mutex

	var submitted string
	s := newTestSession(t, sc, Deps{
		Status:    board,
		Assembler: assemblerFunc(func(_ context.Context, req assembler.Request) (*assembler.Result, error) { return okAssembler(req) }),
		Submitter: submitterFunc(func(_ context.Context, encoded string) (string, error) {
			submitted = encoded
			return "5igSig", nil
		}),
	})
	board.OnChange(func(text string) {
		mu.Lock()
		texts = append(texts, text)
		mu.Unlock()
	})

	recs := testRecords(s.Owner(), 3)
	sc.fn = func(call int32) (*scanner.Result, error) {
		if call == 1 {
			return &scanner.Result{Records: recs}, nil
		}
		return &scanner.Result{Records: recs[2:]}, nil
	}
	require.NoError(t, s.Scan(context.Background()))
	s.Toggle(recs[0].MintKey())
	s.Toggle(recs[1].MintKey())

	out, err := s.Convert(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AQID", submitted)
	assert.Equal(t, "5igSig", out.Signature)
	assert.Equal(t, 2, out.Closed)
	assert.False(t, out.CloseOnly)
	assert.Zero(t, s.Selection().Len())
	assert.Equal(t, "Successfully closed 2 accounts and swapped 0.005 SOL to $HOSICO!", board.Text())

	mu.Lock()
	assert.Equal(t, []string{
		status.Preparing,
		"Creating close instructions for 2 tokens...",
		"Creating swap instruction for 0.005 SOL to $HOSICO...",
		"Executing batch transaction: 2 close + swap instructions...",
		"Successfully closed 2 accounts and swapped 0.005 SOL to $HOSICO!",
	}, texts)
	mu.Unlock()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&sc.calls) == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return len(s.Records()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, recs[2].Address, s.Records()[0].Address)
}

func TestConvertCloseOnly(t *testing.T) {
	sc := &fakeScanner{}
	board := status.NewBoard(time.Hour)
	var texts []string
	var mu sync.Mutex
	s := newTestSession(t, sc, Deps{
		Status: board,
		Assembler: assemblerFunc(func(_ context.Context, req assembler.Request) (*assembler.Result, error) {
			return &assembler.Result{Transaction: "AQID", CloseCount: len(req.Records), SwapSkipped: true, SwapErr: errors.New("no route")}, nil
		}),
		Submitter: submitterFunc(func(context.Context, string) (string, error) { return "sig", nil }),
	})
	board.OnChange(func(text string) {
		mu.Lock()
		texts = append(texts, text)
		mu.Unlock()
	})
	sc.fn = staticScan(testRecords(s.Owner(), 1))
	require.NoError(t, s.Scan(context.Background()))
	s.ToggleAll()

	out, err := s.Convert(context.Background())
	require.NoError(t, err)
	assert.True(t, out.CloseOnly)
	assert.Equal(t, "Successfully closed 1 accounts! Recovered ~0.002 SOL", board.Text())

	mu.Lock()
	assert.Contains(t, texts, "Executing batch transaction: 1 close instructions (swap unavailable)...")
	mu.Unlock()
}

func TestConvertCancelledKeepsSelection(t *testing.T) {
	sc := &fakeScanner{}
	board := status.NewBoard(time.Hour)
	s := newTestSession(t, sc, Deps{
		Status:    board,
		Assembler: assemblerFunc(func(_ context.Context, req assembler.Request) (*assembler.Result, error) { return okAssembler(req) }),
		Submitter: submitterFunc(func(context.Context, string) (string, error) { return "", submit.ErrUserCancelled }),
	})
	sc.fn = staticScan(testRecords(s.Owner(), 2))
	require.NoError(t, s.Scan(context.Background()))
	s.ToggleAll()

	_, err := s.Convert(context.Background())
	assert.ErrorIs(t, err, submit.ErrUserCancelled)
	assert.Equal(t, status.Cancelled, board.Text())
	assert.Equal(t, 2, s.Selection().Len())
	assert.False(t, s.InFlight())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&sc.calls))
}

func TestConvertAssemblyFailure(t *testing.T) {
	sc := &fakeScanner{}
	board := status.NewBoard(time.Hour)
	submitted := false
	s := newTestSession(t, sc, Deps{
		Status: board,
		Assembler: assemblerFunc(func(context.Context, assembler.Request) (*assembler.Result, error) {
			return nil, assembler.ErrNoValidAccounts
		}),
		Submitter: submitterFunc(func(context.Context, string) (string, error) {
			submitted = true
			return "", nil
		}),
	})
	sc.fn = staticScan(testRecords(s.Owner(), 1))
	require.NoError(t, s.Scan(context.Background()))
	s.ToggleAll()

	_, err := s.Convert(context.Background())
	assert.ErrorIs(t, err, assembler.ErrNoValidAccounts)
	assert.False(t, submitted)
	assert.Equal(t, status.NoValidAccount, board.Text())
}

func TestConvertSingleFlight(t *testing.T) {
	sc := &fakeScanner{}
	entered := make(chan struct{})
	release := make(chan struct{})
	s := newTestSession(t, sc, Deps{
		Assembler: assemblerFunc(func(_ context.Context, req assembler.Request) (*assembler.Result, error) {
			close(entered)
			<-release
			return okAssembler(req)
		}),
		Submitter: submitterFunc(func(context.Context, string) (string, error) { return "sig", nil }),
	})
	sc.fn = staticScan(testRecords(s.Owner(), 1))
	require.NoError(t, s.Scan(context.Background()))
	s.ToggleAll()

	errc := make(chan error, 1)
	go func() {
		_, err := s.Convert(context.Background())
		errc <- err
	}()
	<-entered
	assert.True(t, s.InFlight())

	_, err := s.Convert(context.Background())
	assert.ErrorIs(t, err, ErrConversionInFlight)

	close(release)
	assert.NoError(t, <-errc)
}

func TestClosedSessionRejectsWork(t *testing.T) {
	sc := &fakeScanner{fn: staticScan(nil)}
	s := newTestSession(t, sc, Deps{})
	s.Close()

	assert.ErrorIs(t, s.Scan(context.Background()), ErrClosed)
	_, err := s.Convert(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
