// internal/infra/ledger/token_program.go
package ledger

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/types"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

// tokenProgram emulates the Token-2022 rules that matter for mint creation:
// extensions go in before the base mint, the base mint is written once.
type tokenProgram struct{}

func (tokenProgram) Execute(u *Unit, ix types.Instruction) error {
	decoded, err := token2022.DecodeInstruction(ix.Data)
	if err != nil {
		return err
	}
	if len(ix.Accounts) == 0 || !ix.Accounts[0].IsWritable {
		return fmt.Errorf("%w: mint account missing or read-only", mintdom.ErrInvalidInstruction)
	}

	acc := u.load(ix.Accounts[0].PubKey)
	if !acc.Exists() || acc.Owner != token2022.ProgramID {
		return fmt.Errorf("%w: %s owned by %s", mintdom.ErrWrongOwner, acc.Address.ToBase58(), acc.Owner.ToBase58())
	}

	switch d := decoded.(type) {
	case token2022.DecodedInitializeTransferFeeConfig:
		return initializeTransferFeeConfig(u, acc, d)
	case token2022.DecodedInitializeMint:
		return initializeMint(u, acc, d)
	default:
		return mintdom.ErrInvalidInstruction
	}
}

func initializeTransferFeeConfig(u *Unit, acc *mintdom.AccountInfo, d token2022.DecodedInitializeTransferFeeConfig) error {
	if token2022.IsBaseInitialized(acc.Data) {
		return mintdom.ErrAlreadyInitialized
	}
	existing, err := token2022.FindTransferFeeConfig(acc.Data)
	if err != nil {
		return err
	}
	if existing != nil {
		return mintdom.ErrExtensionAlreadyInitialized
	}
	if d.TransferFeeBasisPoints > mintdom.MaxFeeBasisPoints {
		return fmt.Errorf("%w: %d > %d", mintdom.ErrFeeBasisPointsOutOfRange, d.TransferFeeBasisPoints, mintdom.MaxFeeBasisPoints)
	}

	fee := mintdom.TransferFee{
		Epoch:       u.Epoch(),
		MaximumFee:  d.MaximumFee,
		BasisPoints: d.TransferFeeBasisPoints,
	}
	return token2022.PutTransferFeeConfig(acc.Data, mintdom.TransferFeeConfig{
		TransferFeeConfigAuthority: d.TransferFeeConfigAuthority,
		WithdrawWithheldAuthority:  d.WithdrawWithheldAuthority,
		OlderTransferFee:           fee,
		NewerTransferFee:           fee,
	})
}

func initializeMint(u *Unit, acc *mintdom.AccountInfo, d token2022.DecodedInitializeMint) error {
	if token2022.IsBaseInitialized(acc.Data) {
		return mintdom.ErrAlreadyInitialized
	}
	if !u.Rent().IsExempt(acc.Lamports, uint64(len(acc.Data))) {
		return fmt.Errorf("%w: %d lamports for %d bytes", mintdom.ErrNotRentExempt, acc.Lamports, len(acc.Data))
	}
	if _, err := token2022.Extensions(acc.Data); err != nil {
		return err
	}

	authority := d.MintAuthority
	return token2022.PutMintState(acc.Data, mintdom.MintState{
		MintAuthority:   &authority,
		Supply:          0,
		Decimals:        d.Decimals,
		IsInitialized:   true,
		FreezeAuthority: d.FreezeAuthority,
	})
}
