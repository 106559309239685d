// internal/infra/solana/rpc_errors.go
package solana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/blocto/solana-go-sdk/common"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

// System program error codes.
const (
	systemErrAccountAlreadyInUse        uint32 = 0
	systemErrResultWithNegativeLamports uint32 = 1
	systemErrInvalidAccountDataLength   uint32 = 3
)

var (
	reInstructionError = regexp.MustCompile(`Error processing Instruction (\d+): (.+)`)
	reCustomError      = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
)

// parseTransactionError pins a failed send to the instruction that caused it.
// programs[i] is the program of instruction i. Errors that carry no index
// are still classified when the message is recognizable.
func parseTransactionError(err error, programs []common.PublicKey) error {
	msg := err.Error()

	m := reInstructionError.FindStringSubmatch(msg)
	if m == nil {
		if cause := classifyMessage(msg); cause != nil {
			return fmt.Errorf("%w: %v", cause, err)
		}
		return fmt.Errorf("solana_rpc_host: SendTransaction: %w", err)
	}

	idx, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return fmt.Errorf("solana_rpc_host: SendTransaction: %w", err)
	}
	var program common.PublicKey
	if idx >= 0 && idx < len(programs) {
		program = programs[idx]
	}

	cause := instructionCause(program, m[2])
	return &mintdom.InstructionError{Index: idx, Err: fmt.Errorf("%w (%s)", cause, strings.TrimSpace(m[2]))}
}

func instructionCause(program common.PublicKey, detail string) error {
	if c := reCustomError.FindStringSubmatch(detail); c != nil {
		code, err := strconv.ParseUint(c[1], 16, 32)
		if err == nil {
			switch program {
			case common.SystemProgramID:
				return systemError(uint32(code))
			case token2022.ProgramID:
				return token2022.ErrorFromCode(uint32(code))
			}
		}
	}
	if cause := classifyMessage(detail); cause != nil {
		return cause
	}
	return fmt.Errorf("program %s failed", program.ToBase58())
}

func systemError(code uint32) error {
	switch code {
	case systemErrAccountAlreadyInUse:
		return mintdom.ErrAddressInUse
	case systemErrResultWithNegativeLamports:
		return mintdom.ErrInsufficientFunds
	case systemErrInvalidAccountDataLength:
		return mintdom.ErrInvalidInstruction
	default:
		return fmt.Errorf("system program error 0x%x", code)
	}
}

// classifyMessage maps runtime (non-custom) failures.
func classifyMessage(msg string) error {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "missing required signature"):
		return mintdom.ErrMissingSignature
	case strings.Contains(m, "incorrect program id"),
		strings.Contains(m, "instruction modified data of an account it does not own"):
		return mintdom.ErrWrongOwner
	case strings.Contains(m, "insufficient funds"),
		strings.Contains(m, "insufficient lamports"),
		strings.Contains(m, "no record of a prior credit"):
		return mintdom.ErrInsufficientFunds
	case strings.Contains(m, "already in use"):
		return mintdom.ErrAddressInUse
	case strings.Contains(m, "invalid account data for instruction"):
		return mintdom.ErrExtensionMalformed
	case strings.Contains(m, "invalid instruction data"):
		return mintdom.ErrInvalidInstruction
	}
	return nil
}
