// internal/domain/mint/errors.go
package mint

import (
	"errors"
	"fmt"
)

// Errors
var (
	// resource
	ErrInsufficientFunds = errors.New("mint: insufficient funds for rent-exempt balance")
	ErrAddressInUse      = errors.New("mint: address already holds state")
	ErrAccountTooSmall   = errors.New("mint: account too small for mint and extensions")
	ErrNotRentExempt     = errors.New("mint: account is not rent exempt")

	// ownership
	ErrWrongOwner         = errors.New("mint: account not owned by token program")
	ErrMissingSignature   = errors.New("mint: required signature missing")
	ErrUnsupportedProgram = errors.New("mint: token program does not support extensions")

	// ordering
	ErrAlreadyInitialized          = errors.New("mint: mint already initialized")
	ErrExtensionAlreadyInitialized = errors.New("mint: extension already initialized")
	ErrExtensionMissing            = errors.New("mint: transfer-fee extension not configured")
	ErrExtensionMalformed          = errors.New("mint: extension data malformed")
	ErrInvalidTransition           = errors.New("mint: invalid phase transition")

	// parameter
	ErrFeeBasisPointsOutOfRange = errors.New("mint: transfer fee basis points exceed maximum")
	ErrInvalidInstruction       = errors.New("mint: invalid instruction data")
	ErrInvalidAuthority         = errors.New("mint: invalid authority")
	ErrInvalidMintAddress       = errors.New("mint: invalid mint address")
)

// ErrorKind groups failures for callers.
type ErrorKind string

const (
	KindResource  ErrorKind = "resource"
	KindOwnership ErrorKind = "ownership"
	KindOrdering  ErrorKind = "ordering"
	KindParameter ErrorKind = "parameter"

	// KindHost covers transport failures and collaborator errors we cannot map.
	KindHost ErrorKind = "host"
)

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInsufficientFunds, KindResource},
	{ErrAddressInUse, KindResource},
	{ErrAccountTooSmall, KindResource},
	{ErrNotRentExempt, KindResource},
	{ErrWrongOwner, KindOwnership},
	{ErrMissingSignature, KindOwnership},
	{ErrUnsupportedProgram, KindOwnership},
	{ErrAlreadyInitialized, KindOrdering},
	{ErrExtensionAlreadyInitialized, KindOrdering},
	{ErrExtensionMissing, KindOrdering},
	{ErrExtensionMalformed, KindOrdering},
	{ErrInvalidTransition, KindOrdering},
	{ErrFeeBasisPointsOutOfRange, KindParameter},
	{ErrInvalidInstruction, KindParameter},
	{ErrInvalidAuthority, KindParameter},
	{ErrInvalidMintAddress, KindParameter},
}

// KindOf classifies err by the first sentinel it wraps.
func KindOf(err error) ErrorKind {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	for _, k := range kindBySentinel {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindHost
}

// Step names the leaf operation a failure belongs to.
type Step string

const (
	StepAllocate           Step = "allocate"
	StepConfigureExtension Step = "configure_transfer_fee"
	StepInitializeMint     Step = "initialize_mint"
	StepCommit             Step = "commit"
)

// ProvisionError is the single failure outcome of a provisioning request.
type ProvisionError struct {
	Step Step
	Kind ErrorKind
	Err  error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision %s [%s]: %v", e.Step, e.Kind, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// NewProvisionError classifies err and tags it with step.
func NewProvisionError(step Step, err error) *ProvisionError {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe
	}
	return &ProvisionError{Step: step, Kind: KindOf(err), Err: err}
}

// IsKind reports whether err is a ProvisionError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var pe *ProvisionError
	return errors.As(err, &pe) && pe.Kind == k
}

// InstructionError is a host failure pinned to one instruction of a transaction.
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("instruction %d: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error { return e.Err }
