// internal/infra/solana/token2022/instruction.go
package token2022

import (
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

type InitializeTransferFeeConfigParam struct {
	Mint                       common.PublicKey
	TransferFeeConfigAuthority *common.PublicKey
	WithdrawWithheldAuthority  *common.PublicKey
	TransferFeeBasisPoints     uint16
	MaximumFee                 uint64
}

type initializeTransferFeeConfigData struct {
	Instruction                Instruction
	TransferFeeInstruction     TransferFeeInstruction
	TransferFeeConfigAuthority *common.PublicKey
	WithdrawWithheldAuthority  *common.PublicKey
	TransferFeeBasisPoints     uint16
	MaximumFee                 uint64
}

// InitializeTransferFeeConfig builds the extension instruction.
// Accounts:
// 0. [writable] mint (allocated, uninitialized)
func InitializeTransferFeeConfig(param InitializeTransferFeeConfigParam) (types.Instruction, error) {
	data, err := borsh.Serialize(initializeTransferFeeConfigData{
		Instruction:                InstructionTransferFeeExtension,
		TransferFeeInstruction:     TransferFeeInstructionInitializeConfig,
		TransferFeeConfigAuthority: param.TransferFeeConfigAuthority,
		WithdrawWithheldAuthority:  param.WithdrawWithheldAuthority,
		TransferFeeBasisPoints:     param.TransferFeeBasisPoints,
		MaximumFee:                 param.MaximumFee,
	})
	if err != nil {
		return types.Instruction{}, fmt.Errorf("token2022: serialize InitializeTransferFeeConfig: %w", err)
	}
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: param.Mint, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}, nil
}

type InitializeMintParam struct {
	Mint            common.PublicKey
	Decimals        uint8
	MintAuthority   common.PublicKey
	FreezeAuthority *common.PublicKey
}

// InitializeMint reuses the SPL token layout; Token-2022 accepts the same
// instruction, only the program id differs.
// Accounts:
// 0. [writable] mint
// 1. [] rent sysvar
func InitializeMint(param InitializeMintParam) types.Instruction {
	ix := token.InitializeMint(token.InitializeMintParam{
		Decimals:   param.Decimals,
		Mint:       param.Mint,
		MintAuth:   param.MintAuthority,
		FreezeAuth: param.FreezeAuthority,
	})
	ix.ProgramID = ProgramID
	return ix
}

// initializeMintFreezeOffset: tag, decimals, 32-byte mint authority.
const initializeMintFreezeOffset = 1 + 1 + 32

// Decoded instruction payloads.
type (
	DecodedInitializeMint struct {
		Decimals        uint8
		MintAuthority   common.PublicKey
		FreezeAuthority *common.PublicKey
	}
	DecodedInitializeTransferFeeConfig struct {
		TransferFeeConfigAuthority *common.PublicKey
		WithdrawWithheldAuthority  *common.PublicKey
		TransferFeeBasisPoints     uint16
		MaximumFee                 uint64
	}
)

// DecodeInstruction parses the subset of Token-2022 instructions this
// repository issues. Anything else is ErrInvalidInstruction.
func DecodeInstruction(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, mintdom.ErrInvalidInstruction
	}
	switch Instruction(data[0]) {
	case InstructionInitializeMint:
		// COption freeze authority: the key bytes may be omitted when the tag is 0.
		if len(data) < initializeMintFreezeOffset+1 {
			return nil, fmt.Errorf("%w: InitializeMint too short", mintdom.ErrInvalidInstruction)
		}
		d := DecodedInitializeMint{
			Decimals:      data[1],
			MintAuthority: common.PublicKeyFromBytes(data[2:initializeMintFreezeOffset]),
		}
		switch data[initializeMintFreezeOffset] {
		case 0:
		case 1:
			rest := data[initializeMintFreezeOffset+1:]
			if len(rest) < 32 {
				return nil, fmt.Errorf("%w: InitializeMint freeze authority truncated", mintdom.ErrInvalidInstruction)
			}
			key := common.PublicKeyFromBytes(rest[:32])
			d.FreezeAuthority = &key
		default:
			return nil, fmt.Errorf("%w: InitializeMint option tag", mintdom.ErrInvalidInstruction)
		}
		return d, nil

	case InstructionTransferFeeExtension:
		if len(data) < 2 || TransferFeeInstruction(data[1]) != TransferFeeInstructionInitializeConfig {
			return nil, fmt.Errorf("%w: unsupported transfer fee instruction", mintdom.ErrInvalidInstruction)
		}
		var d initializeTransferFeeConfigData
		if err := borsh.Deserialize(&d, data); err != nil {
			return nil, fmt.Errorf("%w: InitializeTransferFeeConfig: %v", mintdom.ErrInvalidInstruction, err)
		}
		return DecodedInitializeTransferFeeConfig{
			TransferFeeConfigAuthority: d.TransferFeeConfigAuthority,
			WithdrawWithheldAuthority:  d.WithdrawWithheldAuthority,
			TransferFeeBasisPoints:     d.TransferFeeBasisPoints,
			MaximumFee:                 d.MaximumFee,
		}, nil

	default:
		return nil, fmt.Errorf("%w: tag %d", mintdom.ErrInvalidInstruction, data[0])
	}
}
