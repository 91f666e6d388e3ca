// internal/wallet/signer.go
package wallet

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/blockchain"
)

// RawSignature is what a signer hands back: either raw signature bytes or an
// already-encoded string, depending on the signer implementation.
type RawSignature struct {
	Bytes []byte
	Text  string
}

// Signer is the wallet collaborator: it knows the connected address and can
// sign and broadcast a serialized transaction. Errors carry the signer's message
// verbatim so callers can classify rejections.
type Signer interface {
	PublicKey() solana.PublicKey
	SignAndSend(ctx context.Context, rawTx []byte) (RawSignature, error)
}

// LocalSigner signs with an in-process key and sends through the chain RPC.
type LocalSigner struct {
	wallet *Wallet
	client blockchain.Client
	logger *zap.Logger
}

// NewLocalSigner связывает локальный кошелёк с RPC-клиентом.
func NewLocalSigner(w *Wallet, client blockchain.Client, logger *zap.Logger) *LocalSigner {
	return &LocalSigner{
		wallet: w,
		client: client,
		logger: logger.Named("local-signer"),
	}
}

// PublicKey returns the signing address.
func (s *LocalSigner) PublicKey() solana.PublicKey {
	return s.wallet.PublicKey
}

// Wallet exposes the underlying key holder.
func (s *LocalSigner) Wallet() *Wallet {
	return s.wallet
}

// SignAndSend decodes the wire transaction, signs it with the local key and
// broadcasts it once.
func (s *LocalSigner) SignAndSend(ctx context.Context, rawTx []byte) (RawSignature, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return RawSignature{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	if err := s.wallet.SignTransaction(tx); err != nil {
		return RawSignature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	signed, err := tx.MarshalBinary()
	if err != nil {
		return RawSignature{}, fmt.Errorf("failed to serialize signed transaction: %w", err)
	}

	sig, err := s.client.SendRawTransaction(ctx, signed)
	if err != nil {
		return RawSignature{}, err
	}

	s.logger.Info("Transaction sent", zap.String("signature", sig.String()))
	return RawSignature{Bytes: sig[:]}, nil
}

var _ Signer = (*LocalSigner)(nil)
