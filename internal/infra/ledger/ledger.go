// internal/infra/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/sirupsen/logrus"

	"github.com/danishahmed448/berry-coin/internal/application/provision"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

var (
	ErrNoSigners      = errors.New("ledger: unit of work needs at least one signer")
	ErrUnitClosed     = errors.New("ledger: unit of work already closed")
	ErrUnitFailed     = errors.New("ledger: unit of work has a failed instruction")
	ErrConflict       = errors.New("ledger: account changed since it was read")
	ErrUnknownProgram = errors.New("ledger: unknown program")
)

// Program executes one instruction against a unit of work.
type Program interface {
	Execute(u *Unit, ix types.Instruction) error
}

type entry struct {
	info    mintdom.AccountInfo
	version uint64
}

// Ledger is an in-memory bank with all-or-nothing units of work. It hosts the
// System program and a Token-2022 emulation sufficient for fee-mint creation.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[common.PublicKey]*entry
	programs map[common.PublicKey]Program
	rent     Rent
	epoch    uint64
	slot     uint64
	logger   logrus.FieldLogger
}

var _ provision.Host = (*Ledger)(nil)

type Option func(*Ledger)

func WithRent(r Rent) Option { return func(l *Ledger) { l.rent = r } }

func WithEpoch(epoch uint64) Option { return func(l *Ledger) { l.epoch = epoch } }

func WithLogger(logger logrus.FieldLogger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: map[common.PublicKey]*entry{},
		rent:     DefaultRent,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.WithField("component", "ledger")
	l.programs = map[common.PublicKey]Program{
		common.SystemProgramID: systemProgram{},
		token2022.ProgramID:    tokenProgram{},
	}
	return l
}

func (l *Ledger) Name() string { return "local" }

func (l *Ledger) Epoch() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.epoch
}

// Airdrop credits a system-owned account.
func (l *Ledger) Airdrop(address common.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.accounts[address]
	if !ok {
		e = &entry{info: mintdom.AccountInfo{Address: address, Owner: common.SystemProgramID}}
		l.accounts[address] = e
	}
	e.info.Lamports += lamports
	e.version++
}

// SetAccount overwrites committed state for address.
func (l *Ledger) SetAccount(info mintdom.AccountInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	version := uint64(0)
	if e, ok := l.accounts[info.Address]; ok {
		version = e.version
	}
	l.accounts[info.Address] = &entry{info: cloneInfo(info), version: version + 1}
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.accounts)
}

func (l *Ledger) MinimumBalanceForRentExemption(_ context.Context, dataLen uint64) (uint64, error) {
	return l.rent.MinimumBalance(dataLen), nil
}

func (l *Ledger) GetAccount(ctx context.Context, address common.PublicKey) (*mintdom.AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.accounts[address]
	if !ok {
		return nil, nil
	}
	info := cloneInfo(e.info)
	return &info, nil
}

// Begin opens a unit of work. Writes are staged until Commit.
func (l *Ledger) Begin(ctx context.Context, signers []types.Account) (provision.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}
	u := &Unit{
		l:       l,
		signers: make(map[common.PublicKey]types.Account, len(signers)),
		payer:   signers[0],
		staged:  map[common.PublicKey]*mintdom.AccountInfo{},
		reads:   map[common.PublicKey]uint64{},
	}
	for _, s := range signers {
		u.signers[s.PublicKey] = s
	}
	return u, nil
}

func (l *Ledger) program(id common.PublicKey) (Program, bool) {
	p, ok := l.programs[id]
	return p, ok
}

// snapshot returns a copy of committed state and its version (0 when absent).
func (l *Ledger) snapshot(address common.PublicKey) (mintdom.AccountInfo, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.accounts[address]
	if !ok {
		return mintdom.AccountInfo{Address: address}, 0
	}
	return cloneInfo(e.info), e.version
}

func cloneInfo(in mintdom.AccountInfo) mintdom.AccountInfo {
	out := in
	if in.Data != nil {
		out.Data = append([]byte(nil), in.Data...)
	}
	return out
}
