// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Token program identifiers. Token2022ProgramID is declared here because
// the pinned solana-go release predates its exported constant.
var (
	TokenProgramID     = solana.TokenProgramID
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// TokenPrograms возвращает обе поддерживаемые версии токен-программы в порядке сканирования.
func TokenPrograms() []solana.PublicKey {
	return []solana.PublicKey{TokenProgramID, Token2022ProgramID}
}

// ParsedAccount is one entry of getTokenAccountsByOwner with jsonParsed encoding.
type ParsedAccount struct {
	Address  solana.PublicKey
	Program  solana.PublicKey // owner program of the account
	Lamports uint64
	// Data is the raw jsonParsed payload: {"parsed":{"info":{...},"type":"account"},"program":"spl-token",...}
	Data []byte
}

// Client определяет интерфейс чтения и отправки, которого требует конвейер очистки.
type Client interface {
	// Все токен-аккаунты владельца для одной токен-программы (jsonParsed).
	GetTokenAccountsByOwner(ctx context.Context, owner, programID solana.PublicKey) ([]ParsedAccount, error)
	// Баланс в лампортах.
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	// Последний blockhash (commitment confirmed).
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	// Информация об аккаунте; ErrAccountNotFound если аккаунта нет.
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	// Отправить уже подписанную транзакцию в wire-формате.
	SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error)
}
