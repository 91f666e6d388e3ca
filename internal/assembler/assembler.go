// internal/assembler/assembler.go
package assembler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
	"github.com/HosicoLabs/Litterbox/internal/domain"
	"github.com/HosicoLabs/Litterbox/internal/planner"
	"github.com/HosicoLabs/Litterbox/internal/swap"
	"github.com/HosicoLabs/Litterbox/internal/wallet"
)

var (
	ErrNoValidAccounts    = errors.New("no valid accounts to close")
	ErrTargetMintNotFound = errors.New("target token mint account not found")
)

// SwapBuilder produces the swap leg of a batch.
type SwapBuilder interface {
	BuildLeg(ctx context.Context, inputMint, outputMint string, amount uint64, user solana.PublicKey) (*swap.Leg, error)
}

// Config holds the constants that shape every batch.
type Config struct {
	RentPerAccount float64
	NativeMint     solana.PublicKey
	NativeDecimals uint8
	TargetMint     solana.PublicKey
	FeeFraction    float64
	FeeCollector   solana.PublicKey
}

// Stage marks assembly progress for status reporting.
type Stage int

const (
	StageClose Stage = iota
	StageSwap
	StageFee
	StageCompile
)

// StageInfo carries the figures known when a stage starts.
type StageInfo struct {
	CloseCount int
	SwapNative decimal.Decimal
}

// Request is one assembly attempt.
type Request struct {
	Records     []domain.TokenAccountRecord
	Owner       solana.PublicKey
	GrossTarget decimal.Decimal
	OnStage     func(Stage, StageInfo)
}

// Plan is the ordered instruction list of one batch.
type Plan struct {
	Close   []solana.Instruction
	Setup   []solana.Instruction
	Swap    solana.Instruction
	Cleanup []solana.Instruction
	Fee     solana.Instruction
}

// Instructions returns close, setup, swap, cleanup and fee in that order.
// Swap and fee are omitted when the swap leg was skipped.
func (p *Plan) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, 0, len(p.Close)+len(p.Setup)+len(p.Cleanup)+2)
	out = append(out, p.Close...)
	out = append(out, p.Setup...)
	if p.Swap != nil {
		out = append(out, p.Swap)
	}
	out = append(out, p.Cleanup...)
	if p.Fee != nil {
		out = append(out, p.Fee)
	}
	return out
}

// Result is a compiled, unsigned batch transaction.
type Result struct {
	Plan         *Plan
	Transaction  string // base64 wire format
	Raw          []byte
	CloseCount   int
	Skipped      int
	// SwapSkipped is set when the swap leg failed and the batch is close-only.
	SwapSkipped  bool
	SwapErr      error
	SwapLamports uint64
	FeeAmount    uint64
}

// Assembler builds batch cleanup transactions.
type Assembler struct {
	client blockchain.Client
	swaps  SwapBuilder
	cfg    Config
	logger *zap.Logger
}

// New создаёт сборщик транзакций.
func New(client blockchain.Client, swaps SwapBuilder, cfg Config, logger *zap.Logger) *Assembler {
	return &Assembler{
		client: client,
		swaps:  swaps,
		cfg:    cfg,
		logger: logger.Named("assembler"),
	}
}

// Assemble builds and compiles the batch for req. Nothing is signed.
func (a *Assembler) Assemble(ctx context.Context, req Request) (*Result, error) {
	notify := func(s Stage, info StageInfo) {
		if req.OnStage != nil {
			req.OnStage(s, info)
		}
	}

	plan := &Plan{}
	res := &Result{Plan: plan}

	notify(StageClose, StageInfo{CloseCount: len(req.Records)})
	for _, rec := range req.Records {
		if !rec.Owner.Equals(req.Owner) {
			a.logger.Warn("Skipping account with different owner",
				zap.String("account", rec.Address.String()),
				zap.String("owner", rec.Owner.String()))
			res.Skipped++
			continue
		}
		plan.Close = append(plan.Close, NewCloseAccountInstruction(rec.Program, rec.Address, req.Owner, req.Owner))
	}
	res.CloseCount = len(plan.Close)
	if res.CloseCount == 0 {
		return nil, ErrNoValidAccounts
	}

	swapNative := planner.ReclaimedNative(res.CloseCount, a.cfg.RentPerAccount)
	res.SwapLamports = uint64(swapNative.Shift(int32(a.cfg.NativeDecimals)).Floor().IntPart())

	notify(StageSwap, StageInfo{CloseCount: res.CloseCount, SwapNative: swapNative})
	leg, err := a.swaps.BuildLeg(ctx, a.cfg.NativeMint.String(), a.cfg.TargetMint.String(), res.SwapLamports, req.Owner)
	if err != nil {
		a.logger.Warn("Swap leg unavailable, continuing with close instructions only", zap.Error(err))
		res.SwapSkipped = true
		res.SwapErr = err
	} else {
		plan.Setup = leg.Setup
		plan.Swap = leg.Swap
		plan.Cleanup = leg.Cleanup
	}

	if !res.SwapSkipped {
		notify(StageFee, StageInfo{CloseCount: res.CloseCount, SwapNative: swapNative})
		fee, amount, err := a.feeTransfer(ctx, req.Owner, req.GrossTarget)
		if err != nil {
			return nil, err
		}
		plan.Fee = fee
		res.FeeAmount = amount
	}

	notify(StageCompile, StageInfo{CloseCount: res.CloseCount, SwapNative: swapNative})
	blockhash, err := a.client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(plan.Instructions(), blockhash, solana.TransactionPayer(req.Owner))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize transaction: %w", err)
	}
	res.Raw = raw
	res.Transaction = base64.StdEncoding.EncodeToString(raw)

	a.logger.Info("Batch transaction assembled",
		zap.Int("close", res.CloseCount),
		zap.Int("skipped", res.Skipped),
		zap.Bool("swap_skipped", res.SwapSkipped),
		zap.Uint64("swap_lamports", res.SwapLamports),
		zap.Uint64("fee_amount", res.FeeAmount),
		zap.Int("size", len(raw)))
	return res, nil
}

// feeTransfer resolves the target mint's program and decimals and builds the
// fee transfer from the owner's to the collector's associated account.
func (a *Assembler) feeTransfer(ctx context.Context, owner solana.PublicKey, gross decimal.Decimal) (solana.Instruction, uint64, error) {
	info, err := a.client.GetAccountInfo(ctx, a.cfg.TargetMint)
	if err != nil || info == nil || info.Value == nil {
		if err == nil {
			err = errors.New("empty account info")
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrTargetMintNotFound, err)
	}

	program := info.Value.Owner
	if !program.Equals(blockchain.TokenProgramID) && !program.Equals(blockchain.Token2022ProgramID) {
		return nil, 0, fmt.Errorf("%w: mint owned by %s", ErrTargetMintNotFound, program)
	}
	decimals, err := decodeMintDecimals(info.Value.Data.GetBinary())
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrTargetMintNotFound, err)
	}

	source, err := wallet.FindAssociatedTokenAddress(owner, a.cfg.TargetMint, program)
	if err != nil {
		return nil, 0, fmt.Errorf("derive sender token account: %w", err)
	}
	dest, err := wallet.FindAssociatedTokenAddress(a.cfg.FeeCollector, a.cfg.TargetMint, program)
	if err != nil {
		return nil, 0, fmt.Errorf("derive collector token account: %w", err)
	}

	amount, err := planner.FeeBaseUnits(gross, a.cfg.FeeFraction, decimals)
	if err != nil {
		return nil, 0, fmt.Errorf("compute fee amount: %w", err)
	}
	ix, err := NewTransferCheckedInstruction(program, source, a.cfg.TargetMint, dest, owner, amount, decimals)
	if err != nil {
		return nil, 0, fmt.Errorf("build fee transfer: %w", err)
	}
	return ix, amount, nil
}
