// internal/swap/types.go
package swap

import (
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AccountRole is the signer/writable role of one instruction account.
type AccountRole int

const (
	Readonly AccountRole = iota
	Writable
	ReadonlySigner
	WritableSigner
)

// RoleFor maps the aggregator's account flags to a role.
func RoleFor(isSigner, isWritable bool) AccountRole {
	switch {
	case isSigner && isWritable:
		return WritableSigner
	case isSigner:
		return ReadonlySigner
	case isWritable:
		return Writable
	default:
		return Readonly
	}
}

func (r AccountRole) IsSigner() bool {
	return r == ReadonlySigner || r == WritableSigner
}

func (r AccountRole) IsWritable() bool {
	return r == Writable || r == WritableSigner
}

func (r AccountRole) String() string {
	switch r {
	case WritableSigner:
		return "writable_signer"
	case ReadonlySigner:
		return "readonly_signer"
	case Writable:
		return "writable"
	default:
		return "readonly"
	}
}

// AccountDescriptor is one account of an aggregator instruction.
type AccountDescriptor struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// InstructionDescriptor is an instruction as returned by the aggregator.
type InstructionDescriptor struct {
	ProgramID string              `json:"programId"`
	Accounts  []AccountDescriptor `json:"accounts"`
	Data      string              `json:"data"` // base64
}

// ToInstruction decodes the descriptor into a chain instruction.
func (d InstructionDescriptor) ToInstruction() (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(d.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid program id %q: %w", d.ProgramID, err)
	}
	data, err := base64.StdEncoding.DecodeString(d.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid instruction data: %w", err)
	}

	metas := make(solana.AccountMetaSlice, 0, len(d.Accounts))
	for _, acc := range d.Accounts {
		key, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("invalid account %q: %w", acc.Pubkey, err)
		}
		role := RoleFor(acc.IsSigner, acc.IsWritable)
		metas = append(metas, solana.NewAccountMeta(key, role.IsWritable(), role.IsSigner()))
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// Quote is an opaque aggregator quote plus the amounts we read from it.
type Quote struct {
	Raw       []byte
	InAmount  uint64
	OutAmount uint64
}

// instructionsResponse accepts both the singular and plural cleanup forms.
type instructionsResponse struct {
	SetupInstructions   []InstructionDescriptor `json:"setupInstructions"`
	SwapInstruction     *InstructionDescriptor  `json:"swapInstruction"`
	CleanupInstruction  *InstructionDescriptor  `json:"cleanupInstruction"`
	CleanupInstructions []InstructionDescriptor `json:"cleanupInstructions"`
	Error               string                  `json:"error"`
}

// Leg is the decoded swap portion of a batch transaction.
type Leg struct {
	Quote   *Quote
	Setup   []solana.Instruction
	Swap    solana.Instruction
	Cleanup []solana.Instruction
}
