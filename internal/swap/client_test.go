package swap

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	nativeMint = "So11111111111111111111111111111111111111112"
	targetMint = "9wK8yN6iz1ie5kEJkvZCTxyN1x5sTdNfx8yeMY8Ebonk"
)

func TestRoleFor(t *testing.T) {
	tests := []struct {
		signer, writable bool
		want             AccountRole
	}{
		{true, true, WritableSigner},
		{true, false, ReadonlySigner},
		{false, true, Writable},
		{false, false, Readonly},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("signer=%v,writable=%v", tt.signer, tt.writable), func(t *testing.T) {
			role := RoleFor(tt.signer, tt.writable)
			assert.Equal(t, tt.want, role)
			assert.Equal(t, tt.signer, role.IsSigner())
			assert.Equal(t, tt.writable, role.IsWritable())
		})
	}
}

func descriptorJSON(program solana.PublicKey, data []byte, accounts ...AccountDescriptor) string {
	accs := ""
	for i, a := range accounts {
		if i > 0 {
			accs += ","
		}
		accs += fmt.Sprintf(`{"pubkey":%q,"isSigner":%t,"isWritable":%t}`, a.Pubkey, a.IsSigner, a.IsWritable)
	}
	return fmt.Sprintf(`{"programId":%q,"accounts":[%s],"data":%q}`, program, accs, base64.StdEncoding.EncodeToString(data))
}

type fakeAggregator struct {
	quoteCalls   int32
	quoteFailFor int32
	lastQuery    string
	lastBody     []byte
	instructions string
}

func (f *fakeAggregator) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/quote", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.quoteCalls, 1)
		if n <= f.quoteFailFor {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		f.lastQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"inputMint":"`+nativeMint+`","inAmount":"7200000","outputMint":"`+targetMint+`","outAmount":"144000000","routePlan":[]}`)
	})
	mux.HandleFunc("/swap-instructions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		f.lastBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, f.instructions)
	})
	return httptest.NewServer(mux)
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(Config{
		QuoteURL:               srv.URL + "/quote",
		InstructionsURL:        srv.URL + "/swap-instructions",
		SlippageBps:            300,
		MaxPriorityFeeLamports: 1_000_000,
		PriorityLevel:          "veryHigh",
		Retries:                2,
	}, srv.Client(), zap.NewNop())
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestQuoteParams(t *testing.T) {
	agg := &fakeAggregator{}
	srv := agg.server(t)
	defer srv.Close()

	q, err := newTestClient(srv).Quote(context.Background(), nativeMint, targetMint, 7_200_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(144_000_000), q.OutAmount)
	assert.Equal(t, uint64(7_200_000), q.InAmount)

	assert.Contains(t, agg.lastQuery, "amount=7200000")
	assert.Contains(t, agg.lastQuery, "slippageBps=300")
	assert.Contains(t, agg.lastQuery, "restrictIntermediateTokens=true")
	assert.Contains(t, agg.lastQuery, "outputMint="+targetMint)
}

func TestQuoteRetriesTransientFailures(t *testing.T) {
	agg := &fakeAggregator{quoteFailFor: 2}
	srv := agg.server(t)
	defer srv.Close()

	_, err := newTestClient(srv).Quote(context.Background(), nativeMint, targetMint, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&agg.quoteCalls))
}

func TestQuoteGivesUpAfterRetries(t *testing.T) {
	agg := &fakeAggregator{quoteFailFor: 100}
	srv := agg.server(t)
	defer srv.Close()

	_, err := newTestClient(srv).Quote(context.Background(), nativeMint, targetMint, 1)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&agg.quoteCalls))
}

func TestBuildLegOrderAndRoles(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	prog := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey().String()

	setup := descriptorJSON(prog, []byte{1}, AccountDescriptor{Pubkey: user.String(), IsSigner: true, IsWritable: true})
	swapIx := descriptorJSON(prog, []byte{2, 3},
		AccountDescriptor{Pubkey: user.String(), IsSigner: true},
		AccountDescriptor{Pubkey: other, IsWritable: true},
		AccountDescriptor{Pubkey: other})
	cleanup := descriptorJSON(prog, []byte{4})

	agg := &fakeAggregator{instructions: fmt.Sprintf(
		`{"computeBudgetInstructions":[],"setupInstructions":[%s],"swapInstruction":%s,"cleanupInstruction":%s,"addressLookupTableAddresses":[]}`,
		setup, swapIx, cleanup)}
	srv := agg.server(t)
	defer srv.Close()

	leg, err := newTestClient(srv).BuildLeg(context.Background(), nativeMint, targetMint, 7_200_000, user)
	require.NoError(t, err)

	require.Len(t, leg.Setup, 1)
	require.Len(t, leg.Cleanup, 1)
	ixs := []solana.Instruction{leg.Setup[0], leg.Swap, leg.Cleanup[0]}
	for i, want := range [][]byte{{1}, {2, 3}, {4}} {
		data, err := ixs[i].Data()
		require.NoError(t, err)
		assert.Equal(t, want, data)
	}

	accs := leg.Swap.Accounts()
	require.Len(t, accs, 3)
	assert.True(t, accs[0].IsSigner)
	assert.False(t, accs[0].IsWritable)
	assert.False(t, accs[1].IsSigner)
	assert.True(t, accs[1].IsWritable)
	assert.False(t, accs[2].IsSigner || accs[2].IsWritable)

	body := gjson.ParseBytes(agg.lastBody)
	assert.Equal(t, user.String(), body.Get("userPublicKey").String())
	assert.True(t, body.Get("dynamicComputeUnitLimit").Bool())
	assert.True(t, body.Get("dynamicSlippage").Bool())
	assert.Equal(t, int64(1_000_000), body.Get("prioritizationFeeLamports.priorityLevelWithMaxLamports.maxLamports").Int())
	assert.Equal(t, "veryHigh", body.Get("prioritizationFeeLamports.priorityLevelWithMaxLamports.priorityLevel").String())
	assert.Equal(t, "144000000", body.Get("quoteResponse.outAmount").String())
}

func TestInstructionsAcceptsPluralCleanup(t *testing.T) {
	user := solana.NewWallet().PublicKey()
	prog := solana.NewWallet().PublicKey()
	agg := &fakeAggregator{instructions: fmt.Sprintf(
		`{"swapInstruction":%s,"cleanupInstructions":[%s,%s]}`,
		descriptorJSON(prog, []byte{9}), descriptorJSON(prog, []byte{7}), descriptorJSON(prog, []byte{8}))}
	srv := agg.server(t)
	defer srv.Close()

	leg, err := newTestClient(srv).BuildLeg(context.Background(), nativeMint, targetMint, 1, user)
	require.NoError(t, err)
	assert.Empty(t, leg.Setup)
	assert.Len(t, leg.Cleanup, 2)
}

func TestInstructionsWithoutSwapFails(t *testing.T) {
	agg := &fakeAggregator{instructions: `{"setupInstructions":[]}`}
	srv := agg.server(t)
	defer srv.Close()

	_, err := newTestClient(srv).BuildLeg(context.Background(), nativeMint, targetMint, 1, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNoSwapInstruction)
}
