// internal/scanner/scanner.go
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
)

// ErrScanFailed wraps a failed account listing; the scan result is empty.
var ErrScanFailed = errors.New("failed to fetch token accounts")

// PriceResolver prices a batch of mints, 0 meaning unresolved.
type PriceResolver interface {
	Resolve(ctx context.Context, mints []string) map[string]float64
}

// Config holds the fixed scan parameters.
type Config struct {
	NativeMint           solana.PublicKey
	NativeDecimals       uint8
	TargetMint           solana.PublicKey
	LowValueThresholdUSD float64
}

// Result is the outcome of one scan pass.
type Result struct {
	Owner   solana.PublicKey
	Records []domain.TokenAccountRecord
	// NativeBalance is nil when the balance lookup failed.
	NativeBalance *float64
	Prices        map[string]float64
	Excluded      map[Reason]int
	ScannedAt     time.Time
}

// Scanner discovers and classifies dust token accounts for a wallet.
type Scanner struct {
	client  blockchain.Client
	prices  PriceResolver
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a Scanner.
func New(client blockchain.Client, prices PriceResolver, cfg Config, logger *zap.Logger, m *metrics.Collector) *Scanner {
	return &Scanner{
		client:  client,
		prices:  prices,
		cfg:     cfg,
		logger:  logger.Named("scanner"),
		metrics: m,
	}
}

// Scan lists the owner's token accounts under both token programs, keeps the
// eligible low-value ones and prices them. A failed balance lookup leaves
// NativeBalance nil; a failed account listing returns ErrScanFailed.
func (s *Scanner) Scan(ctx context.Context, owner solana.PublicKey) (*Result, error) {
	start := time.Now()
	programs := blockchain.TokenPrograms()
	lists := make([][]blockchain.ParsedAccount, len(programs))
	var balance *float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lamports, err := s.client.GetBalance(gctx, owner, rpc.CommitmentConfirmed)
		if err != nil {
			s.logger.Warn("Native balance unavailable", zap.Error(err))
			return nil
		}
		v := decimal.NewFromUint64(lamports).Shift(-int32(s.cfg.NativeDecimals)).InexactFloat64()
		balance = &v
		return nil
	})
	for i, program := range programs {
		g.Go(func() error {
			accounts, err := s.client.GetTokenAccountsByOwner(gctx, owner, program)
			if err != nil {
				return fmt.Errorf("%w (program %s): %v", ErrScanFailed, program, err)
			}
			lists[i] = accounts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.metrics.RecordScan(time.Since(start), false)
		s.logger.Error("Scan failed", zap.String("owner", owner.String()), zap.Error(err))
		return &Result{Owner: owner, NativeBalance: balance, ScannedAt: time.Now()}, err
	}

	res := &Result{
		Owner:         owner,
		NativeBalance: balance,
		Excluded:      make(map[Reason]int),
		ScannedAt:     time.Now(),
	}

	var eligible []domain.TokenAccountRecord
	for _, list := range lists {
		for _, acc := range list {
			rec, ok := ParseAccount(acc)
			if !ok {
				res.Excluded[ReasonMalformed]++
				continue
			}
			if reason := Classify(rec, owner, s.cfg.NativeMint, s.cfg.TargetMint); reason != Eligible {
				res.Excluded[reason]++
				continue
			}
			eligible = append(eligible, rec)
		}
	}

	mints := make([]string, 0, len(eligible))
	for _, rec := range eligible {
		mints = append(mints, rec.MintKey())
	}
	res.Prices = map[string]float64{}
	if len(mints) > 0 && s.prices != nil {
		res.Prices = s.prices.Resolve(ctx, mints)
	}

	res.Records = make([]domain.TokenAccountRecord, 0, len(eligible))
	for _, rec := range eligible {
		rec.PriceUSD = res.Prices[rec.MintKey()]
		if rec.ValueUSD() >= s.cfg.LowValueThresholdUSD {
			res.Excluded[ReasonAboveValueThreshold]++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	s.metrics.RecordScan(time.Since(start), true)
	s.logger.Info("Scan completed",
		zap.String("owner", owner.String()),
		zap.Int("eligible", len(res.Records)),
		zap.Any("excluded", res.Excluded),
		zap.Duration("took", time.Since(start)))
	return res, nil
}
