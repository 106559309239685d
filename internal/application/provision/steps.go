// internal/application/provision/steps.go
package provision

import (
	"context"
	"fmt"

	"github.com/blocto/solana-go-sdk/program/system"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

// run carries one provisioning attempt through its steps.
type run struct {
	p        *Provisioner
	in       Input
	req      mintdom.ProvisioningRequest
	uow      UnitOfWork
	tracker  *mintdom.Tracker
	lamports uint64
}

type stepFunc struct {
	step mintdom.Step
	fn   func(context.Context) error
}

// steps is ordered; the index equals the instruction index in the transaction.
func (r *run) steps() []stepFunc {
	return []stepFunc{
		{mintdom.StepAllocate, r.allocate},
		{mintdom.StepConfigureExtension, r.configureTransferFee},
		{mintdom.StepInitializeMint, r.initializeMint},
	}
}

// allocate creates the raw account, funded to rent exemption and owned by the
// token program.
func (r *run) allocate(ctx context.Context) error {
	if err := r.tracker.Require(mintdom.PhaseUnallocated); err != nil {
		return err
	}
	ix := system.CreateAccount(system.CreateAccountParam{
		From:     r.in.Authority.PublicKey,
		New:      r.in.Mint.PublicKey,
		Owner:    r.p.tokenProgram,
		Lamports: r.lamports,
		Space:    r.p.accountSize,
	})
	if err := r.uow.Invoke(ctx, ix); err != nil {
		return err
	}
	if err := r.verify(ctx, mintdom.PhaseAllocated); err != nil {
		return err
	}
	r.tracker.Owner = r.p.tokenProgram
	return r.tracker.Advance(mintdom.PhaseAllocated)
}

// configureTransferFee attaches the extension while the base mint is still
// uninitialized. Basis points are forwarded as given.
func (r *run) configureTransferFee(ctx context.Context) error {
	if err := r.tracker.Require(mintdom.PhaseAllocated); err != nil {
		return err
	}
	if r.tracker.Owner != token2022.ProgramID {
		return fmt.Errorf("%w: owner %s", mintdom.ErrWrongOwner, r.tracker.Owner.ToBase58())
	}

	authority := r.in.Authority.PublicKey
	ix, err := token2022.InitializeTransferFeeConfig(token2022.InitializeTransferFeeConfigParam{
		Mint:                       r.in.Mint.PublicKey,
		TransferFeeConfigAuthority: &authority,
		WithdrawWithheldAuthority:  &authority,
		TransferFeeBasisPoints:     r.req.FeeBasisPoints,
		MaximumFee:                 r.req.MaxFee,
	})
	if err != nil {
		return err
	}
	if err := r.uow.Invoke(ctx, ix); err != nil {
		return err
	}
	if err := r.verify(ctx, mintdom.PhaseExtensionConfigured); err != nil {
		return err
	}
	return r.tracker.Advance(mintdom.PhaseExtensionConfigured)
}

// initializeMint finalizes the mint. Once written, extension layout is locked.
func (r *run) initializeMint(ctx context.Context) error {
	if err := r.tracker.Require(mintdom.PhaseExtensionConfigured); err != nil {
		return err
	}
	ix := token2022.InitializeMint(token2022.InitializeMintParam{
		Mint:            r.in.Mint.PublicKey,
		Decimals:        r.req.Decimals,
		MintAuthority:   r.req.MintAuthority,
		FreezeAuthority: r.req.FreezeAuthority,
	})
	if err := r.uow.Invoke(ctx, ix); err != nil {
		return err
	}
	if err := r.verify(ctx, mintdom.PhaseInitialized); err != nil {
		return err
	}
	return r.tracker.Advance(mintdom.PhaseInitialized)
}

// verify decodes the staged account when the unit of work exposes it.
func (r *run) verify(ctx context.Context, want mintdom.Phase) error {
	sr, ok := r.uow.(StagedReader)
	if !ok {
		return nil
	}
	info, err := sr.Staged(ctx, r.in.Mint.PublicKey)
	if err != nil {
		return fmt.Errorf("staged read: %w", err)
	}
	acc, err := token2022.DecodeMintAccount(info)
	if err != nil {
		return err
	}
	if acc.Phase != mintdom.PhaseUnallocated && acc.Owner != r.p.tokenProgram {
		return fmt.Errorf("%w: staged owner %s", mintdom.ErrWrongOwner, acc.Owner.ToBase58())
	}
	if acc.Phase == want {
		return nil
	}
	if want == mintdom.PhaseExtensionConfigured && acc.Phase < want {
		return fmt.Errorf("%w: staged account is %s", mintdom.ErrExtensionMissing, acc.Phase)
	}
	return fmt.Errorf("%w: staged account is %s, want %s", mintdom.ErrInvalidTransition, acc.Phase, want)
}
