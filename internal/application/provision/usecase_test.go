package provision_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"

	"github.com/danishahmed448/berry-coin/internal/adapters/out/memory"
	"github.com/danishahmed448/berry-coin/internal/application/provision"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/ledger"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

const (
	oneSOL = uint64(1_000_000_000)
	// (128 + 400) * 3480 * 2
	rentFor400 = uint64(3_674_880)
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type ProvisionSuite struct {
	suite.Suite

	ctx       context.Context
	ledger    *ledger.Ledger
	records   *memory.MintRecordRepository
	logs      *logtest.Hook
	logger    *logrus.Logger
	authority types.Account
	mint      types.Account
}

func TestProvisionSuite(t *testing.T) {
	suite.Run(t, new(ProvisionSuite))
}

func (s *ProvisionSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger, s.logs = logtest.NewNullLogger()
	s.logger.SetLevel(logrus.DebugLevel)
	s.ledger = ledger.New(ledger.WithLogger(s.logger))
	s.records = memory.NewMintRecordRepository()
	s.authority = types.NewAccount()
	s.mint = types.NewAccount()
	s.ledger.Airdrop(s.authority.PublicKey, 10*oneSOL)
}

func (s *ProvisionSuite) newProvisioner(opts ...provision.Option) *provision.Provisioner {
	base := []provision.Option{
		provision.WithRecorder(s.records),
		provision.WithLogger(s.logger),
		provision.WithClock(func() time.Time { return fixedNow }),
	}
	p, err := provision.New(s.ledger, append(base, opts...)...)
	s.Require().NoError(err)
	return p
}

func (s *ProvisionSuite) input(bps uint16, maxFee uint64) provision.Input {
	return provision.Input{
		Authority:      s.authority,
		Mint:           s.mint,
		FeeBasisPoints: bps,
		MaxFee:         maxFee,
	}
}

func (s *ProvisionSuite) balance(addr common.PublicKey) uint64 {
	info, err := s.ledger.GetAccount(s.ctx, addr)
	s.Require().NoError(err)
	if info == nil {
		return 0
	}
	return info.Lamports
}

func (s *ProvisionSuite) requireProvisionError(err error, step mintdom.Step, kind mintdom.ErrorKind, target error) {
	s.T().Helper()
	s.Require().Error(err)
	var pe *mintdom.ProvisionError
	s.Require().True(errors.As(err, &pe), "want *ProvisionError, got %T: %v", err, err)
	s.Equal(step, pe.Step)
	s.Equal(kind, pe.Kind)
	if target != nil {
		s.ErrorIs(err, target)
	}
}

func (s *ProvisionSuite) requireNoMint() {
	s.T().Helper()
	info, err := s.ledger.GetAccount(s.ctx, s.mint.PublicKey)
	s.Require().NoError(err)
	s.Nil(info, "mint account must not be observable")
}

func (s *ProvisionSuite) TestCreatesFeeMint() {
	p := s.newProvisioner()

	res, err := p.Provision(s.ctx, s.input(100, 5000))
	s.Require().NoError(err)
	s.NotEmpty(res.Signature)

	info, err := s.ledger.GetAccount(s.ctx, s.mint.PublicKey)
	s.Require().NoError(err)
	s.Require().NotNil(info)
	s.Equal(token2022.ProgramID, info.Owner)
	s.Len(info.Data, int(mintdom.AccountSize))
	s.Equal(rentFor400, info.Lamports)
	s.Equal(10*oneSOL-rentFor400, s.balance(s.authority.PublicKey))

	acc, err := token2022.DecodeMintAccount(info)
	s.Require().NoError(err)
	s.Equal(mintdom.PhaseInitialized, acc.Phase)

	s.Require().NotNil(acc.State)
	s.Equal(uint8(9), acc.State.Decimals)
	s.Zero(acc.State.Supply)
	s.Require().NotNil(acc.State.MintAuthority)
	s.Equal(s.authority.PublicKey, *acc.State.MintAuthority)
	s.Nil(acc.State.FreezeAuthority)

	fee := acc.TransferFee
	s.Require().NotNil(fee)
	s.Require().NotNil(fee.TransferFeeConfigAuthority)
	s.Require().NotNil(fee.WithdrawWithheldAuthority)
	s.Equal(s.authority.PublicKey, *fee.TransferFeeConfigAuthority)
	s.Equal(s.authority.PublicKey, *fee.WithdrawWithheldAuthority)
	s.Zero(fee.WithheldAmount)
	s.Equal(uint16(100), fee.NewerTransferFee.BasisPoints)
	s.Equal(uint64(5000), fee.NewerTransferFee.MaximumFee)
	s.Equal(fee.NewerTransferFee, fee.OlderTransferFee)

	s.Require().NotNil(res.Account)
	s.True(res.Account.Matches(res.Request, s.authority.PublicKey))

	s.Require().NotNil(res.Record)
	rec, err := s.records.GetByMintAddress(s.ctx, s.mint.PublicKey.ToBase58())
	s.Require().NoError(err)
	s.Equal(res.Signature, rec.Signature)
	s.Equal("local", rec.Host)
	s.Equal(fixedNow, rec.CreatedAt)

	var found bool
	for _, e := range s.logs.AllEntries() {
		if e.Message == "fee token initialized with 1.00% transfer fee" {
			found = true
			s.Equal(logrus.InfoLevel, e.Level)
			s.Equal("provision", e.Data["component"])
		}
	}
	s.True(found, "success log line missing")
}

func (s *ProvisionSuite) TestFeeAboveMaximumLeavesNoTrace() {
	p := s.newProvisioner()
	before := s.balance(s.authority.PublicKey)
	accounts := s.ledger.Len()

	_, err := p.Provision(s.ctx, s.input(10001, 5000))
	s.requireProvisionError(err, mintdom.StepConfigureExtension, mintdom.KindParameter, mintdom.ErrFeeBasisPointsOutOfRange)

	s.requireNoMint()
	s.Equal(before, s.balance(s.authority.PublicKey))
	s.Equal(accounts, s.ledger.Len())

	_, err = s.records.GetByMintAddress(s.ctx, s.mint.PublicKey.ToBase58())
	s.ErrorIs(err, mintdom.ErrRecordNotFound)

	// the same keypair is still usable
	res, err := p.Provision(s.ctx, s.input(100, 5000))
	s.Require().NoError(err)
	s.Require().NotNil(res.Account)
	s.Equal(mintdom.PhaseInitialized, res.Account.Phase)
}

func (s *ProvisionSuite) TestRerunOnInitializedMintIsOrdering() {
	p := s.newProvisioner()
	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.Require().NoError(err)

	first, err := s.ledger.GetAccount(s.ctx, s.mint.PublicKey)
	s.Require().NoError(err)
	balance := s.balance(s.authority.PublicKey)

	_, err = p.Provision(s.ctx, s.input(250, 1))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindOrdering, mintdom.ErrAlreadyInitialized)

	again, err := s.ledger.GetAccount(s.ctx, s.mint.PublicKey)
	s.Require().NoError(err)
	s.Equal(first.Data, again.Data)
	s.Equal(first.Lamports, again.Lamports)
	s.Equal(balance, s.balance(s.authority.PublicKey))
}

func (s *ProvisionSuite) TestUnfundedAuthorityIsResource() {
	p := s.newProvisioner()
	s.authority = types.NewAccount()

	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindResource, mintdom.ErrInsufficientFunds)
	s.requireNoMint()
}

func (s *ProvisionSuite) TestUnderfundedAuthorityIsResource() {
	p := s.newProvisioner()
	s.authority = types.NewAccount()
	s.ledger.Airdrop(s.authority.PublicKey, rentFor400-1)

	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindResource, mintdom.ErrInsufficientFunds)
	s.requireNoMint()
	s.Equal(rentFor400-1, s.balance(s.authority.PublicKey))
}

func (s *ProvisionSuite) TestBasisPointBoundaries() {
	for _, bps := range []uint16{0, 10000} {
		s.Run(strconv.Itoa(int(bps)), func() {
			s.mint = types.NewAccount()
			p := s.newProvisioner()

			res, err := p.Provision(s.ctx, s.input(bps, 0))
			s.Require().NoError(err)
			s.Require().NotNil(res.Account)
			s.Require().NotNil(res.Account.TransferFee)
			s.Equal(bps, res.Account.TransferFee.NewerTransferFee.BasisPoints)
			s.Zero(res.Account.TransferFee.NewerTransferFee.MaximumFee)
		})
	}
}

func (s *ProvisionSuite) TestFreezeAuthority() {
	p := s.newProvisioner()
	freeze := types.NewAccount().PublicKey

	in := s.input(100, 5000)
	in.FreezeAuthority = &freeze
	res, err := p.Provision(s.ctx, in)
	s.Require().NoError(err)

	s.Require().NotNil(res.Account)
	s.Require().NotNil(res.Account.State.FreezeAuthority)
	s.Equal(freeze, *res.Account.State.FreezeAuthority)
	s.True(res.Account.Matches(res.Request, s.authority.PublicKey))
}

func (s *ProvisionSuite) TestAddressHoldingStateIsResource() {
	p := s.newProvisioner()
	s.ledger.Airdrop(s.mint.PublicKey, 1)

	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindResource, mintdom.ErrAddressInUse)

	info, err := s.ledger.GetAccount(s.ctx, s.mint.PublicKey)
	s.Require().NoError(err)
	s.Equal(uint64(1), info.Lamports)
	s.Equal(common.SystemProgramID, info.Owner)
}

func (s *ProvisionSuite) TestAllocatedButUninitializedAddressIsResource() {
	p := s.newProvisioner()
	s.ledger.SetAccount(mintdom.AccountInfo{
		Address:  s.mint.PublicKey,
		Owner:    token2022.ProgramID,
		Lamports: rentFor400,
		Data:     make([]byte, mintdom.AccountSize),
	})

	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindResource, mintdom.ErrAddressInUse)
}

func (s *ProvisionSuite) TestRejectsInvalidInput() {
	cases := []struct {
		name   string
		mutate func(*provision.Input)
		kind   mintdom.ErrorKind
		target error
	}{
		{
			name:   "mint equals authority",
			mutate: func(in *provision.Input) { in.Mint = in.Authority },
			kind:   mintdom.KindParameter,
			target: mintdom.ErrInvalidMintAddress,
		},
		{
			name:   "zero mint",
			mutate: func(in *provision.Input) { in.Mint = types.Account{} },
			kind:   mintdom.KindParameter,
			target: mintdom.ErrInvalidMintAddress,
		},
		{
			name:   "zero authority",
			mutate: func(in *provision.Input) { in.Authority = types.Account{} },
			kind:   mintdom.KindParameter,
			target: mintdom.ErrInvalidAuthority,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			p := s.newProvisioner()
			in := s.input(100, 5000)
			tc.mutate(&in)

			_, err := p.Provision(s.ctx, in)
			s.requireProvisionError(err, mintdom.StepAllocate, tc.kind, tc.target)
		})
	}
	s.requireNoMint()
}

func (s *ProvisionSuite) TestLegacyTokenProgramIsOwnership() {
	p := s.newProvisioner(provision.WithTokenProgram(common.TokenProgramID))

	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindOwnership, mintdom.ErrUnsupportedProgram)
	s.requireNoMint()
}

func (s *ProvisionSuite) TestAccountTooSmallIsResource() {
	p := s.newProvisioner(provision.WithAccountSize(token2022.BaseMintLen))

	_, err := p.Provision(s.ctx, s.input(100, 5000))
	s.requireProvisionError(err, mintdom.StepAllocate, mintdom.KindResource, mintdom.ErrAccountTooSmall)
	s.requireNoMint()
}

func (s *ProvisionSuite) TestExactMinimumSizeWorks() {
	p := s.newProvisioner(provision.WithAccountSize(token2022.MintSizeWithTransferFee))

	res, err := p.Provision(s.ctx, s.input(100, 5000))
	s.Require().NoError(err)
	s.Require().NotNil(res.Account)
	s.Equal(uint64(token2022.MintSizeWithTransferFee), res.Account.Size)
}

func (s *ProvisionSuite) TestWithoutRecorder() {
	p, err := provision.New(s.ledger, provision.WithLogger(s.logger))
	s.Require().NoError(err)

	res, err := p.Provision(s.ctx, s.input(100, 5000))
	s.Require().NoError(err)
	s.Nil(res.Record)
}

func (s *ProvisionSuite) TestConcurrentRunsOnSameMint() {
	p := s.newProvisioner()

	const runs = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errs []error
	)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Provision(s.ctx, s.input(100, 5000))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			oks++
		}()
	}
	wg.Wait()

	s.Equal(1, oks)
	s.Len(errs, runs-1)
	for _, err := range errs {
		var pe *mintdom.ProvisionError
		s.Require().True(errors.As(err, &pe))
		s.Contains([]mintdom.ErrorKind{mintdom.KindOrdering, mintdom.KindResource, mintdom.KindHost}, pe.Kind)
	}
	s.Equal(10*oneSOL-rentFor400, s.balance(s.authority.PublicKey))
}

func (s *ProvisionSuite) TestCanceledContext() {
	p := s.newProvisioner()
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := p.Provision(ctx, s.input(100, 5000))
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.requireNoMint()
}

func TestNewRequiresHost(t *testing.T) {
	p, err := provision.New(nil)
	if err == nil || p != nil {
		t.Fatalf("New(nil) = %v, %v; want error", p, err)
	}
}
