// internal/wallet/mocks_test.go
package wallet

import (
	"context"

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
