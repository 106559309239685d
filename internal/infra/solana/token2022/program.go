// internal/infra/solana/token2022/program.go
package token2022

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// ProgramID is the Token-2022 (token extensions) program.
var ProgramID = common.Token2022ProgramID

// Instruction is the first byte of Token-2022 instruction data.
type Instruction uint8

const (
	InstructionInitializeMint       Instruction = 0
	InstructionTransferFeeExtension Instruction = 26
)

// TransferFeeInstruction is the second byte of a TransferFeeExtension instruction.
type TransferFeeInstruction uint8

const (
	TransferFeeInstructionInitializeConfig TransferFeeInstruction = 0
)

// TokenError codes as returned in "custom program error: 0x.." messages.
const (
	ErrCodeNotRentExempt               uint32 = 0
	ErrCodeInsufficientFunds           uint32 = 1
	ErrCodeInvalidMint                 uint32 = 2
	ErrCodeOwnerMismatch               uint32 = 4
	ErrCodeAlreadyInUse                uint32 = 6
	ErrCodeUninitializedState          uint32 = 9
	ErrCodeInvalidInstruction          uint32 = 12
	ErrCodeInvalidState                uint32 = 13
	ErrCodeExtensionTypeMismatch       uint32 = 20
	ErrCodeExtensionBaseMismatch       uint32 = 21
	ErrCodeExtensionAlreadyInitialized uint32 = 22
	ErrCodeTransferFeeExceedsMaximum   uint32 = 30
)

var errByCode = map[uint32]error{
	ErrCodeNotRentExempt:               mintdom.ErrNotRentExempt,
	ErrCodeInsufficientFunds:           mintdom.ErrInsufficientFunds,
	ErrCodeInvalidMint:                 mintdom.ErrExtensionMalformed,
	ErrCodeOwnerMismatch:               mintdom.ErrWrongOwner,
	ErrCodeAlreadyInUse:                mintdom.ErrAlreadyInitialized,
	ErrCodeUninitializedState:          mintdom.ErrExtensionMissing,
	ErrCodeInvalidInstruction:          mintdom.ErrInvalidInstruction,
	ErrCodeInvalidState:                mintdom.ErrExtensionMalformed,
	ErrCodeExtensionTypeMismatch:       mintdom.ErrExtensionMalformed,
	ErrCodeExtensionBaseMismatch:       mintdom.ErrExtensionMalformed,
	ErrCodeExtensionAlreadyInitialized: mintdom.ErrExtensionAlreadyInitialized,
	ErrCodeTransferFeeExceedsMaximum:   mintdom.ErrFeeBasisPointsOutOfRange,
}

// ErrorFromCode maps a TokenError code onto the mint error taxonomy.
func ErrorFromCode(code uint32) error {
	if err, ok := errByCode[code]; ok {
		return fmt.Errorf("token-2022 error 0x%x: %w", code, err)
	}
	return fmt.Errorf("token-2022 error 0x%x", code)
}
