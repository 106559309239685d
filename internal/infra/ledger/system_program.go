// internal/infra/ledger/system_program.go
package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

const (
	systemInstructionCreateAccount uint32 = 0

	// createAccountDataLen: u32 tag, u64 lamports, u64 space, 32-byte owner.
	createAccountDataLen = 4 + 8 + 8 + 32

	maxPermittedDataLength = 10 * 1024 * 1024
)

// systemProgram supports CreateAccount only.
type systemProgram struct{}

func (systemProgram) Execute(u *Unit, ix types.Instruction) error {
	if len(ix.Data) < 4 {
		return mintdom.ErrInvalidInstruction
	}
	switch tag := binary.LittleEndian.Uint32(ix.Data); tag {
	case systemInstructionCreateAccount:
		return createAccount(u, ix)
	default:
		return fmt.Errorf("%w: system instruction %d", mintdom.ErrInvalidInstruction, tag)
	}
}

// createAccount
// Accounts:
// 0. [writable,signer] funding account
// 1. [writable,signer] new account
func createAccount(u *Unit, ix types.Instruction) error {
	if len(ix.Data) < createAccountDataLen || len(ix.Accounts) < 2 {
		return fmt.Errorf("%w: create account", mintdom.ErrInvalidInstruction)
	}
	lamports := binary.LittleEndian.Uint64(ix.Data[4:12])
	space := binary.LittleEndian.Uint64(ix.Data[12:20])
	owner := common.PublicKeyFromBytes(ix.Data[20:52])

	fromMeta, newMeta := ix.Accounts[0], ix.Accounts[1]
	if !fromMeta.IsSigner || !newMeta.IsSigner {
		return mintdom.ErrMissingSignature
	}
	if space > maxPermittedDataLength {
		return fmt.Errorf("%w: space %d", mintdom.ErrInvalidInstruction, space)
	}

	to := u.load(newMeta.PubKey)
	if to.Exists() {
		return fmt.Errorf("%w: %s", mintdom.ErrAddressInUse, newMeta.PubKey.ToBase58())
	}
	from := u.load(fromMeta.PubKey)
	if from.Owner != common.SystemProgramID || len(from.Data) > 0 {
		return fmt.Errorf("%w: funding account must be system owned", mintdom.ErrInsufficientFunds)
	}
	if from.Lamports < lamports {
		return fmt.Errorf("%w: have %d, need %d", mintdom.ErrInsufficientFunds, from.Lamports, lamports)
	}

	from.Lamports -= lamports
	to.Lamports = lamports
	to.Data = make([]byte, space)
	to.Owner = owner
	return nil
}
