package ledger_test

import (
	"context"
	"testing"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/system"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/ledger"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

const rentFor400 = 3_674_880

type fixture struct {
	l     *ledger.Ledger
	payer types.Account
	mint  types.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{l: ledger.New(ledger.WithEpoch(7)), payer: types.NewAccount(), mint: types.NewAccount()}
	f.l.Airdrop(f.payer.PublicKey, 1_000_000_000)
	return f
}

func (f *fixture) createAccount(lamports, space uint64) types.Instruction {
	return system.CreateAccount(system.CreateAccountParam{
		From:     f.payer.PublicKey,
		New:      f.mint.PublicKey,
		Owner:    token2022.ProgramID,
		Lamports: lamports,
		Space:    space,
	})
}

func (f *fixture) configureFee(t *testing.T, bps uint16) types.Instruction {
	t.Helper()
	auth := f.payer.PublicKey
	ix, err := token2022.InitializeTransferFeeConfig(token2022.InitializeTransferFeeConfigParam{
		Mint:                       f.mint.PublicKey,
		TransferFeeConfigAuthority: &auth,
		WithdrawWithheldAuthority:  &auth,
		TransferFeeBasisPoints:     bps,
		MaximumFee:                 5000,
	})
	require.NoError(t, err)
	return ix
}

func (f *fixture) initializeMint() types.Instruction {
	return token2022.InitializeMint(token2022.InitializeMintParam{
		Mint:          f.mint.PublicKey,
		Decimals:      9,
		MintAuthority: f.payer.PublicKey,
	})
}

func (f *fixture) begin(t *testing.T) *ledger.Unit {
	t.Helper()
	uow, err := f.l.Begin(context.Background(), []types.Account{f.payer, f.mint})
	require.NoError(t, err)
	return uow.(*ledger.Unit)
}

func TestRent_MinimumBalance(t *testing.T) {
	assert.Equal(t, uint64(rentFor400), ledger.DefaultRent.MinimumBalance(400))
	assert.Equal(t, uint64(890_880), ledger.DefaultRent.MinimumBalance(0))
	assert.True(t, ledger.DefaultRent.IsExempt(rentFor400, 400))
	assert.False(t, ledger.DefaultRent.IsExempt(rentFor400-1, 400))

	got, err := ledger.New().MinimumBalanceForRentExemption(context.Background(), 400)
	require.NoError(t, err)
	assert.Equal(t, uint64(rentFor400), got)
}

func TestUnit_CommitAppliesAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.begin(t)

	require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, 400)))
	require.NoError(t, u.Invoke(ctx, f.configureFee(t, 100)))
	require.NoError(t, u.Invoke(ctx, f.initializeMint()))

	// nothing is visible before commit
	before, err := f.l.GetAccount(ctx, f.mint.PublicKey)
	require.NoError(t, err)
	assert.Nil(t, before)

	staged, err := u.Staged(ctx, f.mint.PublicKey)
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.True(t, token2022.IsBaseInitialized(staged.Data))

	sig, err := u.Commit(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	info, err := f.l.GetAccount(ctx, f.mint.PublicKey)
	require.NoError(t, err)
	acc, err := token2022.DecodeMintAccount(info)
	require.NoError(t, err)
	assert.Equal(t, mintdom.PhaseInitialized, acc.Phase)
	assert.Equal(t, uint64(rentFor400), acc.Lamports)
	assert.Equal(t, uint64(7), acc.TransferFee.NewerTransferFee.Epoch)
	assert.Equal(t, uint64(7), acc.TransferFee.OlderTransferFee.Epoch)

	payer, err := f.l.GetAccount(ctx, f.payer.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000-rentFor400), payer.Lamports)

	_, err = u.Commit(ctx)
	assert.ErrorIs(t, err, ledger.ErrUnitClosed)
}

func TestUnit_RollbackLeavesNoState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.begin(t)

	require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, 400)))
	require.NoError(t, u.Invoke(ctx, f.configureFee(t, 100)))
	u.Rollback()
	u.Rollback()

	info, err := f.l.GetAccount(ctx, f.mint.PublicKey)
	require.NoError(t, err)
	assert.Nil(t, info)
	assert.Equal(t, 1, f.l.Len())

	payer, err := f.l.GetAccount(ctx, f.payer.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), payer.Lamports)

	assert.ErrorIs(t, u.Invoke(ctx, f.initializeMint()), ledger.ErrUnitClosed)
}

func TestUnit_FailedInstructionPoisonsUnit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.begin(t)

	require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, 400)))
	err := u.Invoke(ctx, f.configureFee(t, 10001))

	var ie *mintdom.InstructionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Index)
	assert.ErrorIs(t, err, mintdom.ErrFeeBasisPointsOutOfRange)

	assert.ErrorIs(t, u.Invoke(ctx, f.initializeMint()), ledger.ErrUnitFailed)
	_, err = u.Commit(ctx)
	assert.ErrorIs(t, err, ledger.ErrUnitFailed)

	info, err := f.l.GetAccount(ctx, f.mint.PublicKey)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestUnit_MissingSigner(t *testing.T) {
	f := newFixture(t)
	uow, err := f.l.Begin(context.Background(), []types.Account{f.payer})
	require.NoError(t, err)

	err = uow.Invoke(context.Background(), f.createAccount(rentFor400, 400))
	var ie *mintdom.InstructionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 0, ie.Index)
	assert.ErrorIs(t, err, mintdom.ErrMissingSignature)
}

func TestUnit_UnknownProgram(t *testing.T) {
	f := newFixture(t)
	u := f.begin(t)
	err := u.Invoke(context.Background(), types.Instruction{ProgramID: common.TokenProgramID, Data: []byte{0}})
	assert.ErrorIs(t, err, ledger.ErrUnknownProgram)
}

func TestUnit_ConflictingCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.begin(t)
	second := f.begin(t)
	require.NoError(t, first.Invoke(ctx, f.createAccount(rentFor400, 400)))
	require.NoError(t, second.Invoke(ctx, f.createAccount(rentFor400, 400)))

	_, err := first.Commit(ctx)
	require.NoError(t, err)
	_, err = second.Commit(ctx)
	assert.ErrorIs(t, err, ledger.ErrConflict)
}

func TestSystemProgram_CreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("address in use", func(t *testing.T) {
		f := newFixture(t)
		f.l.Airdrop(f.mint.PublicKey, 1)
		err := f.begin(t).Invoke(ctx, f.createAccount(rentFor400, 400))
		assert.ErrorIs(t, err, mintdom.ErrAddressInUse)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		f := newFixture(t)
		err := f.begin(t).Invoke(ctx, f.createAccount(2_000_000_000, 400))
		assert.ErrorIs(t, err, mintdom.ErrInsufficientFunds)
	})

	t.Run("funder must be system owned", func(t *testing.T) {
		f := newFixture(t)
		f.l.SetAccount(mintdom.AccountInfo{Address: f.payer.PublicKey, Owner: token2022.ProgramID, Lamports: 1_000_000_000})
		err := f.begin(t).Invoke(ctx, f.createAccount(rentFor400, 400))
		assert.ErrorIs(t, err, mintdom.ErrInsufficientFunds)
	})

	t.Run("space limit", func(t *testing.T) {
		f := newFixture(t)
		err := f.begin(t).Invoke(ctx, f.createAccount(rentFor400, 11*1024*1024))
		assert.ErrorIs(t, err, mintdom.ErrInvalidInstruction)
	})
}

func TestTokenProgram_Ordering(t *testing.T) {
	ctx := context.Background()

	t.Run("mint before allocation", func(t *testing.T) {
		f := newFixture(t)
		err := f.begin(t).Invoke(ctx, f.initializeMint())
		assert.ErrorIs(t, err, mintdom.ErrWrongOwner)
	})

	t.Run("extension twice", func(t *testing.T) {
		f := newFixture(t)
		u := f.begin(t)
		require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, 400)))
		require.NoError(t, u.Invoke(ctx, f.configureFee(t, 1)))
		assert.ErrorIs(t, u.Invoke(ctx, f.configureFee(t, 1)), mintdom.ErrExtensionAlreadyInitialized)
	})

	t.Run("extension after mint", func(t *testing.T) {
		f := newFixture(t)
		u := f.begin(t)
		require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, 400)))
		require.NoError(t, u.Invoke(ctx, f.initializeMint()))
		assert.ErrorIs(t, u.Invoke(ctx, f.configureFee(t, 1)), mintdom.ErrAlreadyInitialized)
	})

	t.Run("mint twice", func(t *testing.T) {
		f := newFixture(t)
		u := f.begin(t)
		require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, 400)))
		require.NoError(t, u.Invoke(ctx, f.initializeMint()))
		assert.ErrorIs(t, u.Invoke(ctx, f.initializeMint()), mintdom.ErrAlreadyInitialized)
	})

	t.Run("not rent exempt", func(t *testing.T) {
		f := newFixture(t)
		u := f.begin(t)
		require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400-1, 400)))
		require.NoError(t, u.Invoke(ctx, f.configureFee(t, 1)))
		assert.ErrorIs(t, u.Invoke(ctx, f.initializeMint()), mintdom.ErrNotRentExempt)
	})

	t.Run("extension needs room", func(t *testing.T) {
		f := newFixture(t)
		u := f.begin(t)
		require.NoError(t, u.Invoke(ctx, f.createAccount(rentFor400, token2022.BaseMintLen)))
		assert.ErrorIs(t, u.Invoke(ctx, f.configureFee(t, 1)), mintdom.ErrAccountTooSmall)
	})
}

func TestLedger_BeginValidation(t *testing.T) {
	l := ledger.New()
	_, err := l.Begin(context.Background(), nil)
	assert.ErrorIs(t, err, ledger.ErrNoSigners)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Begin(ctx, []types.Account{types.NewAccount()})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = l.GetAccount(ctx, common.PublicKey{})
	assert.ErrorIs(t, err, context.Canceled)
}
