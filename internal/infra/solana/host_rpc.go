// internal/infra/solana/host_rpc.go
package solana

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/sirupsen/logrus"

	"github.com/danishahmed448/berry-coin/internal/application/provision"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/platform/logger"
)

var (
	ErrRPCNotConfigured = errors.New("solana_rpc_host: not configured")
	ErrRPCNoSigners     = errors.New("solana_rpc_host: signers are empty")
	ErrRPCUnitClosed    = errors.New("solana_rpc_host: unit already committed or rolled back")
)

const DefaultDevnetRPC = "https://api.devnet.solana.com"

// RPC is the subset of the blocto client the host needs.
type RPC interface {
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)
	GetAccountInfo(ctx context.Context, base58Addr string) (client.AccountInfo, error)
	GetLatestBlockhash(ctx context.Context) (rpc.GetLatestBlockhashValue, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
}

// RPCHost runs units of work as single transactions against a cluster.
type RPCHost struct {
	RPC     RPC
	Timeout time.Duration // per call, best effort

	logger logrus.FieldLogger
}

var _ provision.Host = (*RPCHost)(nil)

// NewRPCHost dials rpcURL, or devnet when it is empty.
func NewRPCHost(rpcURL string, logger logrus.FieldLogger) *RPCHost {
	u := strings.TrimSpace(rpcURL)
	if u == "" {
		u = DefaultDevnetRPC
	}
	return NewRPCHostWithClient(client.NewClient(u), logger)
}

func NewRPCHostWithClient(c RPC, logger logrus.FieldLogger) *RPCHost {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RPCHost{
		RPC:     c,
		Timeout: 20 * time.Second,
		logger:  logger.WithField("component", "solana_rpc_host"),
	}
}

func (h *RPCHost) Name() string { return "rpc" }

func (h *RPCHost) MinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error) {
	if h == nil || h.RPC == nil {
		return 0, ErrRPCNotConfigured
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	n, err := h.RPC.GetMinimumBalanceForRentExemption(ctx, dataLen)
	if err != nil {
		return 0, fmt.Errorf("solana_rpc_host: GetMinimumBalanceForRentExemption: %w", err)
	}
	return n, nil
}

// GetAccount returns nil for addresses the cluster has no record of.
func (h *RPCHost) GetAccount(ctx context.Context, address common.PublicKey) (*mintdom.AccountInfo, error) {
	if h == nil || h.RPC == nil {
		return nil, ErrRPCNotConfigured
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	ai, err := h.RPC.GetAccountInfo(ctx, address.ToBase58())
	if err != nil {
		if isAccountNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("solana_rpc_host: GetAccountInfo: %w", err)
	}
	info := &mintdom.AccountInfo{
		Address:    address,
		Owner:      ai.Owner,
		Lamports:   ai.Lamports,
		Data:       ai.Data,
		Executable: ai.Executable,
	}
	if !info.Exists() {
		return nil, nil
	}
	return info, nil
}

func (h *RPCHost) Begin(ctx context.Context, signers []types.Account) (provision.UnitOfWork, error) {
	if h == nil || h.RPC == nil {
		return nil, ErrRPCNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(signers) == 0 {
		return nil, ErrRPCNoSigners
	}
	return &rpcUnit{h: h, signers: append([]types.Account(nil), signers...)}, nil
}

func (h *RPCHost) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, h.Timeout)
}

// rpcUnit buffers instructions; the cluster applies the transaction atomically.
type rpcUnit struct {
	h       *RPCHost
	signers []types.Account
	ins     []types.Instruction
	closed  bool
}

func (u *rpcUnit) Invoke(ctx context.Context, ix types.Instruction) error {
	if u.closed {
		return ErrRPCUnitClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.ins = append(u.ins, ix)
	return nil
}

func (u *rpcUnit) Commit(ctx context.Context) (string, error) {
	if u.closed {
		return "", ErrRPCUnitClosed
	}
	u.closed = true

	h := u.h
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	latest, err := h.RPC.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("solana_rpc_host: GetLatestBlockhash: %w", err)
	}

	payer := u.signers[0].PublicKey
	tx, err := types.NewTransaction(types.NewTransactionParam{
		Message: types.NewMessage(types.NewMessageParam{
			FeePayer:        payer,
			RecentBlockhash: latest.Blockhash,
			Instructions:    u.ins,
		}),
		Signers: u.signers,
	})
	if err != nil {
		return "", fmt.Errorf("solana_rpc_host: NewTransaction: %w", err)
	}

	sig, err := h.RPC.SendTransaction(ctx, tx)
	if err != nil {
		programs := make([]common.PublicKey, len(u.ins))
		for i, ix := range u.ins {
			programs[i] = ix.ProgramID
		}
		return "", parseTransactionError(err, programs)
	}

	h.logger.WithFields(logrus.Fields{
		"tx":           logger.MaskShort(sig),
		"payer":        logger.MaskShort(payer.ToBase58()),
		"instructions": len(u.ins),
	}).Info("submitted transaction")
	return sig, nil
}

func (u *rpcUnit) Rollback() {
	// nothing reached the cluster yet
	u.closed = true
	u.ins = nil
}

func isAccountNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "could not find account") ||
		strings.Contains(msg, "account does not exist")
}
