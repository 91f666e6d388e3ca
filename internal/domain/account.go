// internal/domain/account.go
package domain

import (
	"github.com/gagliardetto/solana-go"
)

// AccountState is the lifecycle state reported by the token program.
type AccountState string

const (
	StateInitialized   AccountState = "initialized"
	StateUninitialized AccountState = "uninitialized"
	StateFrozen        AccountState = "frozen"
)

// TokenAccountRecord is one on-chain token account relevant to cleanup.
// Records are produced by a scan and replaced wholesale by the next one.
type TokenAccountRecord struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Program solana.PublicKey

	Amount   uint64  // base units
	Decimals uint8
	UIAmount float64 // display units
	Lamports uint64  // rent held by the account

	State           AccountState
	IsNative        bool
	CloseAuthority  *solana.PublicKey
	Delegate        *solana.PublicKey
	DelegatedAmount *uint64
	WithheldAmount  *uint64 // Token-2022 transfer-fee extension

	// Filled by enrichment.
	Symbol   string
	Name     string
	Image    string
	PriceUSD float64
	Enriched bool
}

// MintKey is the string form used for price lookups and selection.
func (r TokenAccountRecord) MintKey() string {
	return r.Mint.String()
}

// ValueUSD is the record's quantity priced at its unit price.
func (r TokenAccountRecord) ValueUSD() float64 {
	return r.UIAmount * r.PriceUSD
}
