// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/HosicoLabs/Litterbox/internal/config"
)

// ErrNoKeySource возникает, когда в конфигурации не задан ни один источник ключа.
var ErrNoKeySource = errors.New("no wallet key source configured")

// Wallet представляет локальный кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

func newWallet(privateKey solana.PrivateKey) *Wallet {
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}
}

// NewWallet создаёт новый кошелёк из base58-encoded приватного ключа.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(strings.TrimSpace(privateKeyBase58))
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return newWallet(solana.PrivateKey(privateKeyBytes)), nil
}

// NewWalletFromMnemonic выводит ключ из BIP-39 фразы так же, как solana-keygen без пути деривации:
// ed25519 из первых 32 байт seed.
func NewWalletFromMnemonic(mnemonic, passphrase string) (*Wallet, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid mnemonic")
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	privateKey := ed25519.NewKeyFromSeed(seed[:32])
	return newWallet(solana.PrivateKey(privateKey)), nil
}

// NewWalletFromKeygenFile загружает JSON-файл solana-keygen.
func NewWalletFromKeygenFile(path string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair file: %w", err)
	}
	return newWallet(privateKey), nil
}

// FromConfig выбирает источник ключа: private_key, затем keypair_path, затем mnemonic.
func FromConfig(cfg config.WalletConfig) (*Wallet, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewWallet(cfg.PrivateKey)
	case cfg.KeypairPath != "":
		return NewWalletFromKeygenFile(cfg.KeypairPath)
	case cfg.Mnemonic != "":
		return NewWalletFromMnemonic(cfg.Mnemonic, cfg.Passphrase)
	default:
		return nil, ErrNoKeySource
	}
}

// SignTransaction подписывает транзакцию с помощью приватного ключа кошелька.
// Существующие подписи (в том числе нулевые заглушки) заменяются.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(w.PublicKey) {
			return &w.PrivateKey
		}
		return nil
	})
	return err
}

// FindAssociatedTokenAddress выводит ATA для любой токен-программы (Tokenkeg или Token-2022).
func FindAssociatedTokenAddress(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], tokenProgram[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive ATA for mint %s: %w", mint, err)
	}
	return ata, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
