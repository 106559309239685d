// internal/domain/mint/entity.go
package mint

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
)

// Fixed parameters of a provisioned fee token.
const (
	// Decimals is not caller configurable in this version.
	Decimals uint8 = 9

	// AccountSize is the byte budget allocated for base mint + transfer-fee extension.
	AccountSize uint64 = 400

	// MaxFeeBasisPoints is 100% expressed in hundredths of a percent.
	MaxFeeBasisPoints uint16 = 10000
)

// Phase is the lifecycle position of a mint account.
// Transitions are forward only and one step at a time.
type Phase uint8

const (
	PhaseUnallocated Phase = iota
	PhaseAllocated
	PhaseExtensionConfigured
	PhaseInitialized
)

func (p Phase) String() string {
	switch p {
	case PhaseUnallocated:
		return "unallocated"
	case PhaseAllocated:
		return "allocated"
	case PhaseExtensionConfigured:
		return "extension_configured"
	case PhaseInitialized:
		return "initialized"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Next returns the only phase reachable from p.
func (p Phase) Next() (Phase, bool) {
	if p >= PhaseInitialized {
		return p, false
	}
	return p + 1, true
}

// ProvisioningRequest is what the caller asks for.
type ProvisioningRequest struct {
	FeeBasisPoints  uint16
	MaxFee          uint64
	Decimals        uint8
	MintAuthority   common.PublicKey
	FreezeAuthority *common.PublicKey
}

// NewProvisioningRequest fixes Decimals. Fee values are not range checked here,
// out-of-range basis points are rejected by the token program.
func NewProvisioningRequest(
	feeBasisPoints uint16,
	maxFee uint64,
	mintAuthority common.PublicKey,
	freezeAuthority *common.PublicKey,
) (ProvisioningRequest, error) {
	if mintAuthority == (common.PublicKey{}) {
		return ProvisioningRequest{}, ErrInvalidAuthority
	}
	if freezeAuthority != nil && *freezeAuthority == (common.PublicKey{}) {
		freezeAuthority = nil
	}
	return ProvisioningRequest{
		FeeBasisPoints:  feeBasisPoints,
		MaxFee:          maxFee,
		Decimals:        Decimals,
		MintAuthority:   mintAuthority,
		FreezeAuthority: freezeAuthority,
	}, nil
}

// FeePercent renders basis points as a percentage (100 -> 1).
func (r ProvisioningRequest) FeePercent() float64 {
	return float64(r.FeeBasisPoints) / 100
}

// AccountInfo is the raw host view of an account.
type AccountInfo struct {
	Address    common.PublicKey
	Owner      common.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// Exists reports whether the host holds any state for the address.
func (a *AccountInfo) Exists() bool {
	if a == nil {
		return false
	}
	return a.Lamports > 0 || len(a.Data) > 0 || a.Owner != (common.PublicKey{})
}

// TransferFee is one epoch-scoped fee schedule.
type TransferFee struct {
	Epoch       uint64
	MaximumFee  uint64
	BasisPoints uint16
}

// TransferFeeConfig is the transfer-fee extension record of a mint.
type TransferFeeConfig struct {
	TransferFeeConfigAuthority *common.PublicKey
	WithdrawWithheldAuthority  *common.PublicKey
	WithheldAmount             uint64
	OlderTransferFee           TransferFee
	NewerTransferFee           TransferFee
}

// MintState is the base mint record. Written once.
type MintState struct {
	MintAuthority   *common.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *common.PublicKey
}

// MintAccount is the decoded view of a provisioned (or provisioning) mint.
type MintAccount struct {
	Address     common.PublicKey
	Owner       common.PublicKey
	Lamports    uint64
	Size        uint64
	Phase       Phase
	TransferFee *TransferFeeConfig
	State       *MintState
}

// Matches reports whether the account is a fully initialized mint carrying the
// requested fee parameters, both fee authorities and the mint authority.
func (m MintAccount) Matches(req ProvisioningRequest, feeAuthority common.PublicKey) bool {
	if m.Phase != PhaseInitialized || m.State == nil || m.TransferFee == nil {
		return false
	}
	s := m.State
	if s.Decimals != req.Decimals || s.Supply != 0 || !samePtrKey(s.MintAuthority, &req.MintAuthority) {
		return false
	}
	if !samePtrKey(s.FreezeAuthority, req.FreezeAuthority) {
		return false
	}
	f := m.TransferFee
	if !samePtrKey(f.TransferFeeConfigAuthority, &feeAuthority) || !samePtrKey(f.WithdrawWithheldAuthority, &feeAuthority) {
		return false
	}
	return f.NewerTransferFee.BasisPoints == req.FeeBasisPoints && f.NewerTransferFee.MaximumFee == req.MaxFee
}

func samePtrKey(a, b *common.PublicKey) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Tracker enforces the phase state machine for one account during a
// provisioning run.
type Tracker struct {
	Address common.PublicKey
	Owner   common.PublicKey
	phase   Phase
}

func NewTracker(address common.PublicKey) *Tracker {
	return &Tracker{Address: address, phase: PhaseUnallocated}
}

func (t *Tracker) Phase() Phase { return t.phase }

// Require fails with an ordering error unless the tracker is exactly at want.
func (t *Tracker) Require(want Phase) error {
	if t.phase == want {
		return nil
	}
	if t.phase == PhaseInitialized {
		return fmt.Errorf("%w: account is %s, want %s", ErrAlreadyInitialized, t.phase, want)
	}
	if want == PhaseExtensionConfigured && t.phase < want {
		return fmt.Errorf("%w: account is %s", ErrExtensionMissing, t.phase)
	}
	return fmt.Errorf("%w: account is %s, want %s", ErrInvalidTransition, t.phase, want)
}

// Advance moves to next, which must be the immediate successor.
func (t *Tracker) Advance(next Phase) error {
	want, ok := t.phase.Next()
	if !ok || next != want {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.phase, next)
	}
	t.phase = next
	return nil
}
