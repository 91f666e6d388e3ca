// internal/session/convert.go
package session

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/assembler"
	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/events"
	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/planner"
	"github.com/HosicoLabs/Litterbox/internal/status"
	"github.com/HosicoLabs/Litterbox/internal/submit"
	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
)

// Outcome describes a submitted conversion.
type Outcome struct {
	Signature string
	Closed    int
	Skipped   int
	CloseOnly bool
	SwapErr   error
	Reclaimed decimal.Decimal
	Preview   planner.Preview
	FeeAmount uint64
	RescanIn  time.Duration
}

// Convert closes the selected accounts, swaps the reclaimed rent and sends the
// fee in one transaction. Only one conversion may run at a time. On success
// the selection is cleared and a rescan is scheduled.
func (s *Session) Convert(ctx context.Context) (*Outcome, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrConversionInFlight
	}
	defer s.inFlight.Store(false)

	s.mu.RLock()
	records, sel := s.records, s.selection
	s.mu.RUnlock()

	if sel.Len() == 0 {
		s.deps.Status.Flash(status.SelectTokens)
		return nil, ErrNothingSelected
	}

	log := logger.WithOperation(s.logger, "convert")
	defer logger.TrackPerformance(log)()
	board := s.deps.Status
	board.Set(status.Preparing)

	selected := sel.Select(records)
	preview := s.Preview()
	log.Info("Conversion started",
		zap.Int("selected", len(selected)),
		zap.String("total_usd", preview.TotalUSD.StringFixed(4)),
		zap.String("gross_target", preview.GrossTarget.StringFixed(6)))

	res, err := s.deps.Assembler.Assemble(ctx, assembler.Request{
		Records:     selected,
		Owner:       s.deps.Owner,
		GrossTarget: preview.GrossTarget,
		OnStage: func(stage assembler.Stage, info assembler.StageInfo) {
			switch stage {
			case assembler.StageClose:
				board.Set(status.CreatingClose(info.CloseCount))
			case assembler.StageSwap:
				board.Set(status.CreatingSwap(info.SwapNative, s.settings.NativeSymbol, s.settings.TargetSymbol))
			}
		},
	})
	if err != nil {
		log.Error("Assembly failed", zap.Error(err))
		s.deps.Metrics.RecordSubmission(metrics.OutcomeAborted)
		if errors.Is(err, assembler.ErrNoValidAccounts) {
			board.Flash(status.NoValidAccount)
		} else {
			board.Flash(status.Failed(err.Error()))
		}
		s.finished(metrics.OutcomeAborted, "", 0, false, err)
		return nil, err
	}

	board.Set(status.Executing(res.CloseCount, !res.SwapSkipped))

	sig, err := s.deps.Submitter.SubmitEncoded(ctx, res.Transaction)
	if err != nil {
		if errors.Is(err, submit.ErrUserCancelled) {
			board.Flash(status.Cancelled)
			s.finished(metrics.OutcomeCancelled, "", res.CloseCount, res.SwapSkipped, err)
		} else {
			board.Flash(status.Failed(err.Error()))
			s.finished(metrics.OutcomeFailed, "", res.CloseCount, res.SwapSkipped, err)
		}
		return nil, err
	}

	reclaimed := planner.ReclaimedNative(res.CloseCount, s.settings.RentPerAccount)
	outcome := metrics.OutcomeSuccess
	if res.SwapSkipped {
		outcome = metrics.OutcomePartial
		board.Flash(status.Recovered(res.CloseCount, reclaimed, s.settings.NativeSymbol))
	} else {
		board.Flash(status.Swapped(res.CloseCount, reclaimed, s.settings.NativeSymbol, s.settings.TargetSymbol))
	}
	s.deps.Metrics.RecordSubmission(outcome)
	log.Info("Conversion submitted",
		zap.String("signature", sig),
		zap.Int("closed", res.CloseCount),
		zap.Bool("close_only", res.SwapSkipped))

	s.mu.Lock()
	s.selection = domain.SelectionSet{}
	s.mu.Unlock()
	s.scheduleRescan()
	s.finished(outcome, sig, res.CloseCount, res.SwapSkipped, nil)

	return &Outcome{
		Signature: sig,
		Closed:    res.CloseCount,
		Skipped:   res.Skipped,
		CloseOnly: res.SwapSkipped,
		SwapErr:   res.SwapErr,
		Reclaimed: reclaimed,
		Preview:   preview,
		FeeAmount: res.FeeAmount,
		RescanIn:  s.settings.RescanDelay,
	}, nil
}

// scheduleRescan runs a scan after RescanDelay so chain state can settle.
func (s *Session) scheduleRescan() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	if s.rescan != nil && s.rescan.Stop() {
		s.wg.Done()
	}
	s.wg.Add(1)
	s.rescan = time.AfterFunc(s.settings.RescanDelay, func() {
		defer s.wg.Done()
		if err := s.Scan(s.ctx); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrClosed) {
			s.logger.Warn("Rescan after conversion failed", zap.Error(err))
		}
	})
}

func (s *Session) finished(outcome, sig string, closed int, closeOnly bool, err error) {
	_ = s.deps.Events.Publish(events.ConversionFinishedEvent{
		BaseEvent: events.NewBase(events.ConversionFinished),
		Outcome:   outcome,
		Signature: sig,
		Closed:    closed,
		CloseOnly: closeOnly,
		Error:     err,
	})
}
