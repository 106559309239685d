// internal/application/provision/ports.go
package provision

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// Host is the execution environment: rent queries, account reads and atomic
// units of work.
type Host interface {
	Name() string
	MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	// GetAccount returns nil when the address holds no state.
	GetAccount(ctx context.Context, address common.PublicKey) (*mintdom.AccountInfo, error)
	// Begin opens a unit of work. signers[0] pays.
	Begin(ctx context.Context, signers []types.Account) (UnitOfWork, error)
}

// UnitOfWork applies every invoked instruction or none of them.
type UnitOfWork interface {
	Invoke(ctx context.Context, ix types.Instruction) error
	Commit(ctx context.Context) (signature string, err error)
	Rollback()
}

// StagedReader is implemented by units of work that can expose the state an
// account would have if the unit committed now.
type StagedReader interface {
	Staged(ctx context.Context, address common.PublicKey) (*mintdom.AccountInfo, error)
}

// Recorder stores the audit record of a committed provisioning.
type Recorder interface {
	Create(ctx context.Context, r mintdom.Record) (mintdom.Record, error)
}

// Observer receives per-run outcome notifications (metrics).
type Observer interface {
	ObserveStep(step mintdom.Step, err error)
	ObserveResult(host string, err error, seconds float64)
}
