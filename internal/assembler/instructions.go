// internal/assembler/instructions.go
package assembler

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// SPL token instruction discriminators, shared by Tokenkeg and Token-2022.
const (
	closeAccountDiscriminator    byte = 9
	transferCheckedDiscriminator byte = 12
)

// NewCloseAccountInstruction closes account under program, sending the rent
// to destination. owner signs as the read-only authority.
func NewCloseAccountInstruction(program, account, destination, owner solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.Meta(account).WRITE(),
		solana.Meta(destination).WRITE(),
		solana.Meta(owner).SIGNER(),
	}, []byte{closeAccountDiscriminator})
}

// NewTransferCheckedInstruction moves amount base units of mint from source to
// destination under program.
func NewTransferCheckedInstruction(program, source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(transferCheckedDiscriminator); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(amount, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(decimals); err != nil {
		return nil, err
	}

	return solana.NewInstruction(program, solana.AccountMetaSlice{
		solana.Meta(source).WRITE(),
		solana.Meta(mint),
		solana.Meta(destination).WRITE(),
		solana.Meta(owner).SIGNER(),
	}, buf.Bytes()), nil
}

// decodeMintDecimals reads the base mint layout; extension bytes after it are ignored.
func decodeMintDecimals(data []byte) (uint8, error) {
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return 0, fmt.Errorf("decode mint: %w", err)
	}
	if !mint.IsInitialized {
		return 0, fmt.Errorf("mint is not initialized")
	}
	return mint.Decimals, nil
}
