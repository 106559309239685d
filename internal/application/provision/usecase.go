// internal/application/provision/usecase.go
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/platform/logger"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
)

const tracerName = "github.com/danishahmed448/berry-coin/internal/application/provision"

// Provisioner creates a fee-bearing mint: allocate, configure the transfer-fee
// extension, initialize the mint. All three land in one unit of work.
type Provisioner struct {
	host         Host
	tokenProgram common.PublicKey
	accountSize  uint64

	recorder Recorder
	observer Observer
	logger   logrus.FieldLogger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Provisioner)

func WithRecorder(r Recorder) Option { return func(p *Provisioner) { p.recorder = r } }

func WithObserver(o Observer) Option { return func(p *Provisioner) { p.observer = o } }

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTokenProgram overrides the owner program of the new account.
// Only Token-2022 supports the transfer-fee extension.
func WithTokenProgram(id common.PublicKey) Option {
	return func(p *Provisioner) { p.tokenProgram = id }
}

func WithAccountSize(n uint64) Option { return func(p *Provisioner) { p.accountSize = n } }

func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		if now != nil {
			p.now = now
		}
	}
}

func New(host Host, opts ...Option) (*Provisioner, error) {
	if host == nil {
		return nil, errors.New("provision: host is required")
	}
	p := &Provisioner{
		host:         host,
		tokenProgram: token2022.ProgramID,
		accountSize:  mintdom.AccountSize,
		logger:       logrus.StandardLogger(),
		tracer:       otel.Tracer(tracerName),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithField("component", "provision")
	return p, nil
}

// Input is the request surface. Authority funds the account, signs, and
// becomes mint authority and both fee authorities. Mint is a fresh keypair.
type Input struct {
	Authority       types.Account
	Mint            types.Account
	FeeBasisPoints  uint16
	MaxFee          uint64
	FreezeAuthority *common.PublicKey
}

type Result struct {
	Signature string
	Request   mintdom.ProvisioningRequest
	// Account is nil when the host could not read the mint back after commit.
	Account *mintdom.MintAccount
	Record  *mintdom.Record
}

// Provision runs the whole protocol. Any failure returns a *mint.ProvisionError
// and leaves no state behind.
func (p *Provisioner) Provision(ctx context.Context, in Input) (res *Result, err error) {
	started := p.now()
	ctx, span := p.tracer.Start(ctx, "provision.Provision", trace.WithAttributes(
		attribute.String("host", p.host.Name()),
		attribute.String("mint", in.Mint.PublicKey.ToBase58()),
		attribute.Int("fee_basis_points", int(in.FeeBasisPoints)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if p.observer != nil {
			p.observer.ObserveResult(p.host.Name(), err, p.now().Sub(started).Seconds())
		}
	}()

	req, err := p.validate(in)
	if err != nil {
		p.observeStep(mintdom.StepAllocate, err)
		return nil, mintdom.NewProvisionError(mintdom.StepAllocate, err)
	}

	log := p.logger.WithFields(logrus.Fields{
		"host":      p.host.Name(),
		"mint":      logger.MaskShort(in.Mint.PublicKey.ToBase58()),
		"authority": logger.MaskShort(in.Authority.PublicKey.ToBase58()),
	})

	lamports, err := p.preflight(ctx, in)
	if err != nil {
		p.observeStep(mintdom.StepAllocate, err)
		log.WithError(err).Warn("preflight rejected")
		return nil, mintdom.NewProvisionError(mintdom.StepAllocate, err)
	}

	uow, err := p.host.Begin(ctx, []types.Account{in.Authority, in.Mint})
	if err != nil {
		err = fmt.Errorf("begin: %w", err)
		p.observeStep(mintdom.StepAllocate, err)
		return nil, mintdom.NewProvisionError(mintdom.StepAllocate, err)
	}
	committed := false
	defer func() {
		if !committed {
			uow.Rollback()
		}
	}()

	r := &run{
		p:        p,
		in:       in,
		req:      req,
		uow:      uow,
		tracker:  mintdom.NewTracker(in.Mint.PublicKey),
		lamports: lamports,
	}
	steps := r.steps()
	for _, s := range steps {
		if err := p.runStep(ctx, s.step, s.fn); err != nil {
			log.WithError(err).WithField("step", s.step).Warn("provisioning aborted")
			return nil, err
		}
	}

	sig, err := uow.Commit(ctx)
	if err != nil {
		step := mintdom.StepCommit
		var ie *mintdom.InstructionError
		if errors.As(err, &ie) && ie.Index >= 0 && ie.Index < len(steps) {
			step = steps[ie.Index].step
		}
		err = p.classifyCollision(ctx, in.Mint.PublicKey, err)
		p.observeStep(step, err)
		log.WithError(err).WithField("step", step).Warn("commit failed")
		return nil, mintdom.NewProvisionError(step, err)
	}
	committed = true

	res = &Result{Signature: sig, Request: req}
	res.Account = p.readBack(ctx, in.Mint.PublicKey, req, in.Authority.PublicKey, log)
	res.Record = p.record(ctx, res, in, log)

	log.WithFields(logrus.Fields{
		"signature":      logger.MaskShort(sig),
		"feeBasisPoints": req.FeeBasisPoints,
		"maxFee":         req.MaxFee,
		"decimals":       req.Decimals,
	}).Infof("fee token initialized with %.2f%% transfer fee", req.FeePercent())

	return res, nil
}

func (p *Provisioner) validate(in Input) (mintdom.ProvisioningRequest, error) {
	if p.tokenProgram != token2022.ProgramID {
		return mintdom.ProvisioningRequest{}, fmt.Errorf("%w: %s", mintdom.ErrUnsupportedProgram, p.tokenProgram.ToBase58())
	}
	if in.Mint.PublicKey == (common.PublicKey{}) || in.Mint.PublicKey == in.Authority.PublicKey {
		return mintdom.ProvisioningRequest{}, mintdom.ErrInvalidMintAddress
	}
	return mintdom.NewProvisioningRequest(in.FeeBasisPoints, in.MaxFee, in.Authority.PublicKey, in.FreezeAuthority)
}

// preflight checks the allocator preconditions against committed host state
// and returns the rent-exempt balance to fund.
func (p *Provisioner) preflight(ctx context.Context, in Input) (uint64, error) {
	if p.accountSize < token2022.MintSizeWithTransferFee {
		return 0, fmt.Errorf("%w: %d < %d", mintdom.ErrAccountTooSmall, p.accountSize, token2022.MintSizeWithTransferFee)
	}

	target, err := p.host.GetAccount(ctx, in.Mint.PublicKey)
	if err != nil {
		return 0, fmt.Errorf("read mint account: %w", err)
	}
	if target.Exists() {
		acc, derr := token2022.DecodeMintAccount(target)
		if derr == nil && acc.Phase == mintdom.PhaseInitialized {
			return 0, fmt.Errorf("%w: %s", mintdom.ErrAlreadyInitialized, in.Mint.PublicKey.ToBase58())
		}
		return 0, fmt.Errorf("%w: %s", mintdom.ErrAddressInUse, in.Mint.PublicKey.ToBase58())
	}

	rent, err := p.host.MinimumBalanceForRentExemption(ctx, p.accountSize)
	if err != nil {
		return 0, fmt.Errorf("rent query: %w", err)
	}

	funder, err := p.host.GetAccount(ctx, in.Authority.PublicKey)
	if err != nil {
		return 0, fmt.Errorf("read authority account: %w", err)
	}
	var have uint64
	if funder != nil {
		have = funder.Lamports
	}
	if have < rent {
		return 0, fmt.Errorf("%w: have %d, need %d", mintdom.ErrInsufficientFunds, have, rent)
	}
	return rent, nil
}

// classifyCollision re-reads the target after the host reported it in use.
// A mint initialized since preflight is an ordering failure, not a resource one.
func (p *Provisioner) classifyCollision(ctx context.Context, address common.PublicKey, err error) error {
	if !errors.Is(err, mintdom.ErrAddressInUse) {
		return err
	}
	info, rerr := p.host.GetAccount(ctx, address)
	if rerr != nil {
		return err
	}
	acc, derr := token2022.DecodeMintAccount(info)
	if derr != nil || acc.Phase != mintdom.PhaseInitialized {
		return err
	}
	cause := fmt.Errorf("%w: %s (host: %v)", mintdom.ErrAlreadyInitialized, address.ToBase58(), err)
	var ie *mintdom.InstructionError
	if errors.As(err, &ie) {
		return &mintdom.InstructionError{Index: ie.Index, Err: cause}
	}
	return cause
}

func (p *Provisioner) runStep(ctx context.Context, step mintdom.Step, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "provision."+string(step))
	defer span.End()

	err := fn(ctx)
	p.observeStep(step, err)
	if err != nil {
		perr := mintdom.NewProvisionError(step, err)
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Error())
		return perr
	}
	return nil
}

func (p *Provisioner) observeStep(step mintdom.Step, err error) {
	if p.observer != nil {
		p.observer.ObserveStep(step, err)
	}
}

func (p *Provisioner) readBack(
	ctx context.Context,
	address common.PublicKey,
	req mintdom.ProvisioningRequest,
	feeAuthority common.PublicKey,
	log logrus.FieldLogger,
) *mintdom.MintAccount {
	info, err := p.host.GetAccount(ctx, address)
	if err != nil {
		log.WithError(err).Warn("read back failed")
		return nil
	}
	acc, err := token2022.DecodeMintAccount(info)
	if err != nil {
		log.WithError(err).Warn("decode mint account failed")
		return nil
	}
	if acc.Phase != mintdom.PhaseInitialized {
		log.WithField("phase", acc.Phase).Info("mint not yet visible at host commitment")
		return nil
	}
	if !acc.Matches(req, feeAuthority) {
		log.Warn("mint account does not match request")
	}
	return &acc
}

func (p *Provisioner) record(ctx context.Context, res *Result, in Input, log logrus.FieldLogger) *mintdom.Record {
	if p.recorder == nil {
		return nil
	}
	rec := mintdom.Record{
		MintAddress:    in.Mint.PublicKey.ToBase58(),
		Authority:      in.Authority.PublicKey.ToBase58(),
		FeeBasisPoints: res.Request.FeeBasisPoints,
		MaxFee:         res.Request.MaxFee,
		Decimals:       res.Request.Decimals,
		Signature:      res.Signature,
		Host:           p.host.Name(),
		CreatedAt:      p.now().UTC(),
	}
	saved, err := p.recorder.Create(ctx, rec)
	if err != nil {
		// the chain state is final; a missing record is repaired out of band
		log.WithError(err).Error("record provisioning failed")
		return nil
	}
	return &saved
}
