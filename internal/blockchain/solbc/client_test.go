package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
)

type rpcHandler func(method string, params json.RawMessage) (status int, result string)

func newRPCServer(t *testing.T, h rpcHandler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		status, result := h(req.Method, req.Params)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(result))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":` + string(req.ID) + `,"result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(url string) *Client {
	return NewClient(url, zap.NewNop(),
		WithRetries(2),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

const tokenAccountsResult = `{"context":{"slot":1},"value":[{
	"pubkey":"7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5",
	"account":{
		"data":{"parsed":{"info":{"isNative":false,"mint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","owner":"5HfLhj117ucm2FoqjfcSeZMf91CuJbzxZ9BeRRpZWN6m","state":"initialized","tokenAmount":{"amount":"0","decimals":6,"uiAmount":0.0,"uiAmountString":"0"}},"type":"account"},"program":"spl-token","space":165},
		"executable":false,"lamports":2039280,"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","rentEpoch":0
	}
}]}`

func TestGetTokenAccountsByOwnerParsesJSON(t *testing.T) {
	var gotProgram string
	srv := newRPCServer(t, func(method string, params json.RawMessage) (int, string) {
		assert.Equal(t, "getTokenAccountsByOwner", method)
		gotProgram = gjson.GetBytes(params, "1.programId").String()
		assert.Equal(t, "jsonParsed", gjson.GetBytes(params, "2.encoding").String())
		return http.StatusOK, tokenAccountsResult
	})

	c := newTestClient(srv.URL)
	owner := solana.MustPublicKeyFromBase58("5HfLhj117ucm2FoqjfcSeZMf91CuJbzxZ9BeRRpZWN6m")
	accounts, err := c.GetTokenAccountsByOwner(context.Background(), owner, blockchain.Token2022ProgramID)
	require.NoError(t, err)

	assert.Equal(t, blockchain.Token2022ProgramID.String(), gotProgram)
	require.Len(t, accounts, 1)
	assert.Equal(t, "7YttLkHDoNj9wyDur5pM1ejNaAvT9X4eqaYcHQqtj2G5", accounts[0].Address.String())
	assert.Equal(t, solana.TokenProgramID, accounts[0].Program)
	assert.Equal(t, uint64(2039280), accounts[0].Lamports)
	assert.Equal(t, "initialized", gjson.GetBytes(accounts[0].Data, "parsed.info.state").String())
}

func TestGetBalanceRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, func(method string, _ json.RawMessage) (int, string) {
		if calls.Add(1) == 1 {
			return http.StatusInternalServerError, "upstream unavailable"
		}
		return http.StatusOK, `{"context":{"slot":1},"value":1500000000}`
	})

	c := newTestClient(srv.URL)
	lamports, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey(), rpc.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000_000), lamports)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetBalanceRateLimitedAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, func(string, json.RawMessage) (int, string) {
		calls.Add(1)
		return http.StatusTooManyRequests, "Too Many Requests"
	})

	c := newTestClient(srv.URL)
	_, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey(), rpc.CommitmentConfirmed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimit)
	assert.True(t, IsRateLimitError(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetAccountInfoMissingIsNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, func(string, json.RawMessage) (int, string) {
		calls.Add(1)
		return http.StatusOK, `{"context":{"slot":1},"value":null}`
	})

	c := newTestClient(srv.URL)
	_, err := c.GetAccountInfo(context.Background(), solana.NewWallet().PublicKey())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAccountNotFound))
	assert.Equal(t, int32(1), calls.Load(), "not-found must not be retried")
}

func TestSendRawTransactionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, func(string, json.RawMessage) (int, string) {
		calls.Add(1)
		return http.StatusInternalServerError, "boom"
	})

	c := newTestClient(srv.URL)
	_, err := c.SendRawTransaction(context.Background(), []byte{1, 2, 3})
	require.Error(t, err)

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, "sendTransaction", rpcErr.Method)
	assert.Equal(t, int32(1), calls.Load())
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("HTTP 429 Too Many Requests")))
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsAccountNotFoundError(rpc.ErrNotFound))
	assert.False(t, IsAccountNotFoundError(errors.New("timeout")))
}
