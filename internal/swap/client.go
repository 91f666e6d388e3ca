// internal/swap/client.go
package swap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	ErrNoRoute           = errors.New("no swap route")
	ErrNoSwapInstruction = errors.New("swap-instructions response has no swap instruction")
)

// Config holds the aggregator endpoints and fixed fee hints.
type Config struct {
	QuoteURL               string
	InstructionsURL        string
	SlippageBps            uint16
	MaxPriorityFeeLamports uint64
	PriorityLevel          string
	Retries                int
}

type priorityLevelWithMaxLamports struct {
	MaxLamports   uint64 `json:"maxLamports"`
	PriorityLevel string `json:"priorityLevel"`
}

type prioritizationFee struct {
	PriorityLevelWithMaxLamports *priorityLevelWithMaxLamports `json:"priorityLevelWithMaxLamports,omitempty"`
}

type instructionsRequest struct {
	QuoteResponse             json.RawMessage    `json:"quoteResponse"`
	UserPublicKey             string             `json:"userPublicKey"`
	DynamicComputeUnitLimit   *bool              `json:"dynamicComputeUnitLimit,omitempty"`
	DynamicSlippage           *bool              `json:"dynamicSlippage,omitempty"`
	PrioritizationFeeLamports *prioritizationFee `json:"prioritizationFeeLamports,omitempty"`
}

// Client talks to the swap aggregator HTTP API.
type Client struct {
	cfg        Config
	http       *http.Client
	logger     *zap.Logger
	newBackOff func() backoff.BackOff
}

// NewClient создаёт клиент агрегатора свопов.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: logger.Named("swap"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// Quote requests a route for amount base units of inputMint into outputMint.
// The GET is idempotent and retried on transient failures.
func (c *Client) Quote(ctx context.Context, inputMint, outputMint string, amount uint64) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(int(c.cfg.SlippageBps)))
	q.Set("restrictIntermediateTokens", "true")
	endpoint := c.cfg.QuoteURL + "?" + q.Encode()

	body, err := backoff.Retry(ctx,
		func() ([]byte, error) {
			return c.do(ctx, http.MethodGet, endpoint, nil)
		},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.cfg.Retries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("Retrying quote", zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}

	root := gjson.ParseBytes(body)
	if msg := root.Get("error"); msg.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, msg.String())
	}
	out := root.Get("outAmount")
	if !out.Exists() {
		return nil, fmt.Errorf("%w: quote has no outAmount", ErrNoRoute)
	}
	return &Quote{
		Raw:       body,
		InAmount:  root.Get("inAmount").Uint(),
		OutAmount: out.Uint(),
	}, nil
}

// Instructions exchanges a quote for the setup / swap / cleanup instructions.
// The POST is not retried.
func (c *Client) Instructions(ctx context.Context, quote *Quote, user solana.PublicKey) (*Leg, error) {
	payload, err := json.Marshal(instructionsRequest{
		QuoteResponse:           json.RawMessage(quote.Raw),
		UserPublicKey:           user.String(),
		DynamicComputeUnitLimit: pointer.ToBool(true),
		DynamicSlippage:         pointer.ToBool(true),
		PrioritizationFeeLamports: &prioritizationFee{
			PriorityLevelWithMaxLamports: &priorityLevelWithMaxLamports{
				MaxLamports:   c.cfg.MaxPriorityFeeLamports,
				PriorityLevel: c.cfg.PriorityLevel,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap-instructions request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.cfg.InstructionsURL, payload)
	if err != nil {
		return nil, fmt.Errorf("swap-instructions request failed: %w", err)
	}

	var resp instructionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode swap-instructions response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("swap-instructions: %s", resp.Error)
	}
	if resp.SwapInstruction == nil {
		return nil, ErrNoSwapInstruction
	}

	leg := &Leg{Quote: quote}
	if leg.Setup, err = decodeAll(resp.SetupInstructions); err != nil {
		return nil, fmt.Errorf("setup instruction: %w", err)
	}
	if leg.Swap, err = resp.SwapInstruction.ToInstruction(); err != nil {
		return nil, fmt.Errorf("swap instruction: %w", err)
	}
	cleanup := resp.CleanupInstructions
	if resp.CleanupInstruction != nil {
		cleanup = append(cleanup, *resp.CleanupInstruction)
	}
	if leg.Cleanup, err = decodeAll(cleanup); err != nil {
		return nil, fmt.Errorf("cleanup instruction: %w", err)
	}
	return leg, nil
}

// BuildLeg is Quote followed by Instructions.
func (c *Client) BuildLeg(ctx context.Context, inputMint, outputMint string, amount uint64, user solana.PublicKey) (*Leg, error) {
	quote, err := c.Quote(ctx, inputMint, outputMint, amount)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Quote received",
		zap.Uint64("in_amount", quote.InAmount),
		zap.Uint64("out_amount", quote.OutAmount))
	return c.Instructions(ctx, quote, user)
}

func decodeAll(descs []InstructionDescriptor) ([]solana.Instruction, error) {
	out := make([]solana.Instruction, 0, len(descs))
	for _, d := range descs {
		ix, err := d.ToInstruction()
		if err != nil {
			return nil, err
		}
		out = append(out, ix)
	}
	return out, nil
}

// do выполняет HTTP запрос; 4xx кроме 429 не повторяются.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}
