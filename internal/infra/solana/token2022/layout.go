// internal/infra/solana/token2022/layout.go
package token2022

import (
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/token"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// Account layout:
//
//	[0:82)    base mint
//	[82:165)  padding (keeps mints and token accounts distinguishable)
//	[165]     account type
//	[166:)    TLV extensions: u16 type, u16 length, value
const (
	BaseMintLen       = 82
	BaseAccountLen    = 165
	AccountTypeOffset = BaseAccountLen
	tlvStart          = AccountTypeOffset + 1
	tlvHeaderLen      = 4

	AccountTypeUninitialized uint8 = 0
	AccountTypeMint          uint8 = 1

	ExtensionUninitialized     uint16 = 0
	ExtensionTransferFeeConfig uint16 = 1

	TransferFeeConfigLen = 108

	// MintSizeWithTransferFee is the minimum data length for a mint that
	// carries the transfer-fee extension.
	MintSizeWithTransferFee = tlvStart + tlvHeaderLen + TransferFeeConfigLen
)

// DecodeMintAccount derives the decoded state and phase of an account.
// Accounts not owned by Token-2022 are reported as allocated with no state;
// callers check Owner.
func DecodeMintAccount(info *mintdom.AccountInfo) (mintdom.MintAccount, error) {
	if info == nil || !info.Exists() {
		if info != nil {
			return mintdom.MintAccount{Address: info.Address, Phase: mintdom.PhaseUnallocated}, nil
		}
		return mintdom.MintAccount{Phase: mintdom.PhaseUnallocated}, nil
	}

	acc := mintdom.MintAccount{
		Address:  info.Address,
		Owner:    info.Owner,
		Lamports: info.Lamports,
		Size:     uint64(len(info.Data)),
		Phase:    mintdom.PhaseAllocated,
	}
	if info.Owner != ProgramID {
		return acc, nil
	}
	if len(info.Data) < BaseMintLen {
		return acc, fmt.Errorf("%w: %d bytes", mintdom.ErrAccountTooSmall, len(info.Data))
	}

	base, err := token.MintAccountFromData(info.Data[:BaseMintLen])
	if err != nil {
		return acc, fmt.Errorf("%w: base mint: %v", mintdom.ErrExtensionMalformed, err)
	}

	fee, err := FindTransferFeeConfig(info.Data)
	if err != nil {
		return acc, err
	}
	acc.TransferFee = fee

	switch {
	case base.IsInitialized:
		acc.Phase = mintdom.PhaseInitialized
		acc.State = &mintdom.MintState{
			MintAuthority:   base.MintAuthority,
			Supply:          base.Supply,
			Decimals:        base.Decimals,
			IsInitialized:   true,
			FreezeAuthority: base.FreezeAuthority,
		}
	case fee != nil:
		acc.Phase = mintdom.PhaseExtensionConfigured
	}
	return acc, nil
}

// IsBaseInitialized reads the is_initialized flag of the base mint.
func IsBaseInitialized(data []byte) bool {
	return len(data) >= BaseMintLen && data[45] == 1
}

// Extensions walks the TLV region. A missing account type means no extensions.
func Extensions(data []byte) (map[uint16][]byte, error) {
	out := map[uint16][]byte{}
	if len(data) <= AccountTypeOffset {
		return out, nil
	}
	switch data[AccountTypeOffset] {
	case AccountTypeUninitialized:
		return out, nil
	case AccountTypeMint:
	default:
		return nil, fmt.Errorf("%w: account type %d", mintdom.ErrExtensionMalformed, data[AccountTypeOffset])
	}

	for off := tlvStart; off+tlvHeaderLen <= len(data); {
		typ := binary.LittleEndian.Uint16(data[off:])
		n := int(binary.LittleEndian.Uint16(data[off+2:]))
		if typ == ExtensionUninitialized {
			break
		}
		start := off + tlvHeaderLen
		if start+n > len(data) {
			return nil, fmt.Errorf("%w: extension %d overruns account", mintdom.ErrExtensionMalformed, typ)
		}
		if _, dup := out[typ]; dup {
			return nil, fmt.Errorf("%w: duplicate extension %d", mintdom.ErrExtensionMalformed, typ)
		}
		out[typ] = data[start : start+n]
		off = start + n
	}
	return out, nil
}

// FindTransferFeeConfig returns nil when the extension is absent.
func FindTransferFeeConfig(data []byte) (*mintdom.TransferFeeConfig, error) {
	exts, err := Extensions(data)
	if err != nil {
		return nil, err
	}
	raw, ok := exts[ExtensionTransferFeeConfig]
	if !ok {
		return nil, nil
	}
	if len(raw) != TransferFeeConfigLen {
		return nil, fmt.Errorf("%w: transfer fee config is %d bytes", mintdom.ErrExtensionMalformed, len(raw))
	}
	return &mintdom.TransferFeeConfig{
		TransferFeeConfigAuthority: optionalNonZero(raw[0:32]),
		WithdrawWithheldAuthority:  optionalNonZero(raw[32:64]),
		WithheldAmount:             binary.LittleEndian.Uint64(raw[64:72]),
		OlderTransferFee:           decodeTransferFee(raw[72:90]),
		NewerTransferFee:           decodeTransferFee(raw[90:108]),
	}, nil
}

// PutTransferFeeConfig marks data as a mint and writes the extension as the
// first TLV entry. The base mint region is left untouched.
func PutTransferFeeConfig(data []byte, cfg mintdom.TransferFeeConfig) error {
	if len(data) < MintSizeWithTransferFee {
		return fmt.Errorf("%w: %d < %d", mintdom.ErrAccountTooSmall, len(data), MintSizeWithTransferFee)
	}
	data[AccountTypeOffset] = AccountTypeMint
	binary.LittleEndian.PutUint16(data[tlvStart:], ExtensionTransferFeeConfig)
	binary.LittleEndian.PutUint16(data[tlvStart+2:], TransferFeeConfigLen)

	v := data[tlvStart+tlvHeaderLen : tlvStart+tlvHeaderLen+TransferFeeConfigLen]
	putOptionalNonZero(v[0:32], cfg.TransferFeeConfigAuthority)
	putOptionalNonZero(v[32:64], cfg.WithdrawWithheldAuthority)
	binary.LittleEndian.PutUint64(v[64:72], cfg.WithheldAmount)
	encodeTransferFee(v[72:90], cfg.OlderTransferFee)
	encodeTransferFee(v[90:108], cfg.NewerTransferFee)
	return nil
}

// PutMintState writes the 82-byte base mint. COption fields use a u32 tag.
func PutMintState(data []byte, s mintdom.MintState) error {
	if len(data) < BaseMintLen {
		return fmt.Errorf("%w: %d < %d", mintdom.ErrAccountTooSmall, len(data), BaseMintLen)
	}
	putCOption(data[0:36], s.MintAuthority)
	binary.LittleEndian.PutUint64(data[36:44], s.Supply)
	data[44] = s.Decimals
	if s.IsInitialized {
		data[45] = 1
	} else {
		data[45] = 0
	}
	putCOption(data[46:82], s.FreezeAuthority)
	if len(data) > AccountTypeOffset {
		data[AccountTypeOffset] = AccountTypeMint
	}
	return nil
}

func putCOption(dst []byte, key *common.PublicKey) {
	if key == nil {
		binary.LittleEndian.PutUint32(dst[0:4], 0)
		copy(dst[4:36], make([]byte, 32))
		return
	}
	binary.LittleEndian.PutUint32(dst[0:4], 1)
	copy(dst[4:36], key[:])
}

func optionalNonZero(b []byte) *common.PublicKey {
	k := common.PublicKeyFromBytes(b)
	if k == (common.PublicKey{}) {
		return nil
	}
	return &k
}

func putOptionalNonZero(dst []byte, key *common.PublicKey) {
	if key == nil {
		copy(dst, make([]byte, 32))
		return
	}
	copy(dst, key[:])
}

func decodeTransferFee(b []byte) mintdom.TransferFee {
	return mintdom.TransferFee{
		Epoch:       binary.LittleEndian.Uint64(b[0:8]),
		MaximumFee:  binary.LittleEndian.Uint64(b[8:16]),
		BasisPoints: binary.LittleEndian.Uint16(b[16:18]),
	}
}

func encodeTransferFee(dst []byte, f mintdom.TransferFee) {
	binary.LittleEndian.PutUint64(dst[0:8], f.Epoch)
	binary.LittleEndian.PutUint64(dst[8:16], f.MaximumFee)
	binary.LittleEndian.PutUint16(dst[16:18], f.BasisPoints)
}
