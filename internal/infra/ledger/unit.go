// internal/infra/ledger/unit.go
package ledger

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/danishahmed448/berry-coin/internal/application/provision"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// Unit is a write-ahead staging area. Every instruction runs against staged
// copies; Commit publishes them at once, Rollback drops them.
type Unit struct {
	l       *Ledger
	signers map[common.PublicKey]types.Account
	payer   types.Account

	staged map[common.PublicKey]*mintdom.AccountInfo
	reads  map[common.PublicKey]uint64
	order  []common.PublicKey

	digest []byte
	index  int
	failed error
	closed bool
}

var (
	_ provision.UnitOfWork   = (*Unit)(nil)
	_ provision.StagedReader = (*Unit)(nil)
)

func (u *Unit) Invoke(ctx context.Context, ix types.Instruction) error {
	if u.closed {
		return ErrUnitClosed
	}
	if u.failed != nil {
		return fmt.Errorf("%w: %v", ErrUnitFailed, u.failed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	idx := u.index
	u.index++
	fail := func(err error) error {
		u.failed = err
		return &mintdom.InstructionError{Index: idx, Err: err}
	}

	prog, ok := u.l.program(ix.ProgramID)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID.ToBase58()))
	}
	for _, meta := range ix.Accounts {
		if meta.IsSigner && !u.IsSigner(meta.PubKey) {
			return fail(fmt.Errorf("%w: %s", mintdom.ErrMissingSignature, meta.PubKey.ToBase58()))
		}
	}
	if err := prog.Execute(u, ix); err != nil {
		return fail(err)
	}

	h := sha256.New()
	h.Write(u.digest)
	h.Write(ix.ProgramID[:])
	h.Write(ix.Data)
	u.digest = h.Sum(nil)
	return nil
}

// Staged implements provision.StagedReader.
func (u *Unit) Staged(ctx context.Context, address common.PublicKey) (*mintdom.AccountInfo, error) {
	if u.closed {
		return nil, ErrUnitClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info := cloneInfo(*u.load(address))
	if !info.Exists() {
		return nil, nil
	}
	return &info, nil
}

func (u *Unit) Commit(ctx context.Context) (string, error) {
	if u.closed {
		return "", ErrUnitClosed
	}
	if u.failed != nil {
		u.closed = true
		return "", fmt.Errorf("%w: %v", ErrUnitFailed, u.failed)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l := u.l
	l.mu.Lock()
	defer l.mu.Unlock()
	u.closed = true

	for addr, seen := range u.reads {
		var cur uint64
		if e, ok := l.accounts[addr]; ok {
			cur = e.version
		}
		if cur != seen {
			return "", fmt.Errorf("%w: %s", ErrConflict, addr.ToBase58())
		}
	}

	for _, addr := range u.order {
		info := u.staged[addr]
		if !info.Exists() {
			delete(l.accounts, addr)
			continue
		}
		e, ok := l.accounts[addr]
		if !ok {
			e = &entry{}
			l.accounts[addr] = e
		}
		e.info = cloneInfo(*info)
		e.version++
	}
	l.slot++

	sig := u.sign(l.slot)
	l.logger.WithFields(logrus.Fields{
		"slot":         l.slot,
		"instructions": u.index,
		"accounts":     len(u.order),
	}).Debug("unit committed")
	return sig, nil
}

func (u *Unit) Rollback() {
	if u.closed {
		return
	}
	u.closed = true
	u.staged = nil
	u.reads = nil
	u.order = nil
}

func (u *Unit) IsSigner(address common.PublicKey) bool {
	_, ok := u.signers[address]
	return ok
}

func (u *Unit) Rent() Rent { return u.l.rent }

func (u *Unit) Epoch() uint64 { return u.l.Epoch() }

// load returns the staged copy of address, pulling it from committed state on
// first touch. The returned pointer is writable.
func (u *Unit) load(address common.PublicKey) *mintdom.AccountInfo {
	if info, ok := u.staged[address]; ok {
		return info
	}
	info, version := u.l.snapshot(address)
	u.staged[address] = &info
	u.reads[address] = version
	u.order = append(u.order, address)
	return &info
}

// sign produces the transaction id: the payer's signature over the digest of
// all instructions and the commit slot.
func (u *Unit) sign(slot uint64) string {
	msg := make([]byte, 8, 8+len(u.digest))
	binary.LittleEndian.PutUint64(msg, slot)
	msg = append(msg, u.digest...)
	if len(u.payer.PrivateKey) != ed25519.PrivateKeySize {
		sum := sha256.Sum256(msg)
		return base58.Encode(sum[:])
	}
	return base58.Encode(ed25519.Sign(u.payer.PrivateKey, msg))
}
