// internal/scanner/mocks_test.go
package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
)

// MockChainClient реализует интерфейс blockchain.Client
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) GetTokenAccountsByOwner(ctx context.Context, owner, programID solana.PublicKey) ([]blockchain.ParsedAccount, error) {
	args := m.Called(ctx, owner, programID)
	accounts, _ := args.Get(0).([]blockchain.ParsedAccount)
	return accounts, args.Error(1)
}

func (m *MockChainClient) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockChainClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

func (m *MockChainClient) SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(solana.Signature), args.Error(1)
}

type staticPrices map[string]float64

func (p staticPrices) Resolve(_ context.Context, mints []string) map[string]float64 {
	out := make(map[string]float64, len(mints))
	for _, m := range mints {
		out[m] = p[m]
	}
	return out
}

// accountFixture describes a jsonParsed token account for tests.
type accountFixture struct {
	mint, owner     string
	amount          string
	decimals        int
	state           string
	isNative        bool
	closeAuthority  string
	delegate        string
	delegatedAmount string
	withheld        string
}

func (s accountFixture) build(program solana.PublicKey) blockchain.ParsedAccount {
	if s.amount == "" {
		s.amount = "0"
	}
	if s.state == "" {
		s.state = "initialized"
	}
	if s.decimals == 0 && s.mint != "" && !strings.HasPrefix(s.mint, "!") {
		s.decimals = 6
	}
	s.mint = strings.TrimPrefix(s.mint, "!")

	var extra []string
	if s.closeAuthority != "" {
		extra = append(extra, fmt.Sprintf(`"closeAuthority":%q`, s.closeAuthority))
	}
	if s.delegate != "" {
		extra = append(extra, fmt.Sprintf(`"delegate":%q,"delegatedAmount":{"amount":%q,"decimals":%d}`, s.delegate, s.delegatedAmount, s.decimals))
	}
	if s.withheld != "" {
		extra = append(extra, fmt.Sprintf(`"extensions":[{"extension":"immutableOwner"},{"extension":"transferFeeAmount","state":{"withheldAmount":%s}}]`, s.withheld))
	}
	extraJSON := ""
	if len(extra) > 0 {
		extraJSON = "," + strings.Join(extra, ",")
	}

	ui := "0.0"
	if s.amount != "0" {
		ui = "0.5"
	}
	data := fmt.Sprintf(`{"parsed":{"info":{"isNative":%t,"mint":%q,"owner":%q,"state":%q,"tokenAmount":{"amount":%q,"decimals":%d,"uiAmount":%s,"uiAmountString":"%s"}%s},"type":"account"},"program":"spl-token","space":165}`,
		s.isNative, s.mint, s.owner, s.state, s.amount, s.decimals, ui, ui, extraJSON)

	return blockchain.ParsedAccount{
		Address:  solana.NewWallet().PublicKey(),
		Program:  program,
		Lamports: 2039280,
		Data:     []byte(data),
	}
}
