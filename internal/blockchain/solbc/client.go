// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
)

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
// Чтения повторяются с экспоненциальной задержкой, отправка транзакций никогда не повторяется.
type Client struct {
	rpc        *rpc.Client
	endpoint   string
	logger     *zap.Logger
	metrics    *metrics.Collector
	maxTries   uint
	newBackOff func() backoff.BackOff
}

// Option настраивает Client.
type Option func(*Client)

// WithRetries задаёт число повторов чтения (0 отключает повторы).
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxTries = uint(n) + 1
		}
	}
}

// WithBackOff подменяет стратегию задержек между повторами.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = fn }
}

// WithMetrics подключает коллектор метрик.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:      rpc.New(rpcURL),
		endpoint: rpcURL,
		logger:   logger.Named("solbc-client"),
		maxTries: 4,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// read выполняет идемпотентный запрос с повторами.
func read[T any](ctx context.Context, c *Client, method string, op func() (T, error)) (T, error) {
	start := time.Now()
	res, err := backoff.Retry(ctx,
		func() (T, error) {
			v, err := op()
			if err != nil && isPermanent(err) {
				return v, backoff.Permanent(err)
			}
			return v, err
		},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("Retrying RPC call",
				zap.String("method", method),
				zap.Duration("next", next),
				zap.Bool("rate_limited", IsRateLimitError(err)),
				zap.Error(err))
		}),
	)
	c.metrics.RecordRPCLatency(method, time.Since(start))
	if err != nil {
		if IsRateLimitError(err) && !errors.Is(err, ErrRateLimit) {
			err = fmt.Errorf("%w: %v", ErrRateLimit, err)
		}
		return res, NewError(err, c.endpoint, method)
	}
	return res, nil
}

// GetTokenAccountsByOwner возвращает токен-аккаунты владельца для одной программы в jsonParsed-кодировке.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner, programID solana.PublicKey) ([]blockchain.ParsedAccount, error) {
	out, err := read(ctx, c, "getTokenAccountsByOwner", func() (*rpc.GetTokenAccountsResult, error) {
		return c.rpc.GetTokenAccountsByOwner(ctx, owner,
			&rpc.GetTokenAccountsConfig{ProgramId: &programID},
			&rpc.GetTokenAccountsOpts{
				Commitment: rpc.CommitmentConfirmed,
				Encoding:   solana.EncodingJSONParsed,
			},
		)
	})
	if err != nil {
		c.logger.Error("GetTokenAccountsByOwner error",
			zap.String("owner", owner.String()),
			zap.String("program", programID.String()),
			zap.Error(err))
		return nil, err
	}

	accounts := make([]blockchain.ParsedAccount, 0, len(out.Value))
	for _, v := range out.Value {
		if v == nil || v.Account.Data == nil {
			continue
		}
		accounts = append(accounts, blockchain.ParsedAccount{
			Address:  v.Pubkey,
			Program:  v.Account.Owner,
			Lamports: v.Account.Lamports,
			Data:     v.Account.Data.GetRawJSON(),
		})
	}
	return accounts, nil
}

// GetBalance получает баланс аккаунта в лампортах.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := read(ctx, c, "getBalance", func() (*rpc.GetBalanceResult, error) {
		return c.rpc.GetBalance(ctx, pubkey, commitment)
	})
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetLatestBlockhash получает последний blockhash с commitment confirmed.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := read(ctx, c, "getLatestBlockhash", func() (*rpc.GetLatestBlockhashResult, error) {
		return c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	})
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	if result == nil || result.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty getLatestBlockhash response")
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo получает информацию об аккаунте в base64.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := read(ctx, c, "getAccountInfo", func() (*rpc.GetAccountInfoResult, error) {
		return c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		})
	})
	if err != nil {
		if IsAccountNotFoundError(err) {
			return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("%s: %w", pubkey, ErrAccountNotFound)
	}
	return result, nil
}

// SendRawTransaction отправляет подписанную транзакцию один раз, без повторов.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	c.metrics.RecordRPCLatency("sendTransaction", time.Since(start))
	if err != nil {
		c.logger.Error("SendRawTransaction error", zap.Error(err))
		return solana.Signature{}, NewError(err, c.endpoint, "sendTransaction")
	}
	return sig, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
