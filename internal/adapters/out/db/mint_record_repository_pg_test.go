//go:build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/danishahmed448/berry-coin/internal/adapters/out/db"
	dbcommon "github.com/danishahmed448/berry-coin/internal/adapters/out/db/common"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/database"
)

type MintRecordRepositoryPGSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	conn      *database.DB
	repo      *db.MintRecordRepositoryPG
}

func TestMintRecordRepositoryPGSuite(t *testing.T) {
	suite.Run(t, new(MintRecordRepositoryPGSuite))
}

func (s *MintRecordRepositoryPGSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("berry"),
		tcpostgres.WithUsername("berry"),
		tcpostgres.WithPassword("berry"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err, "failed to start postgres container")
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.conn, err = database.NewConnection(ctx, dsn, nil)
	s.Require().NoError(err)

	s.repo = db.NewMintRecordRepositoryPG(s.conn.Client)
	s.Require().NoError(s.repo.Migrate(ctx))
	// idempotent
	s.Require().NoError(s.repo.Migrate(ctx))
}

func (s *MintRecordRepositoryPGSuite) TearDownSuite() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *MintRecordRepositoryPGSuite) SetupTest() {
	_, err := s.conn.Client.Exec(`TRUNCATE mint_records`)
	s.Require().NoError(err)
}

func (s *MintRecordRepositoryPGSuite) record(mint, authority string, at time.Time) mintdom.Record {
	return mintdom.Record{
		MintAddress:    mint,
		Authority:      authority,
		FeeBasisPoints: 250,
		MaxFee:         ^uint64(0),
		Decimals:       mintdom.Decimals,
		Signature:      "sig",
		Host:           "rpc",
		CreatedAt:      at,
	}
}

func (s *MintRecordRepositoryPGSuite) TestCreateAndGet() {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	saved, err := s.repo.Create(ctx, s.record("mintA", "auth", at))
	s.Require().NoError(err)
	s.Equal(^uint64(0), saved.MaxFee)
	s.True(saved.CreatedAt.Equal(at))

	got, err := s.repo.GetByMintAddress(ctx, " mintA ")
	s.Require().NoError(err)
	s.Equal(uint16(250), got.FeeBasisPoints)
	s.Equal(mintdom.Decimals, got.Decimals)

	_, err = s.repo.Create(ctx, s.record("mintA", "other", at))
	s.ErrorIs(err, mintdom.ErrRecordConflict)

	_, err = s.repo.GetByMintAddress(ctx, "missing")
	s.ErrorIs(err, mintdom.ErrRecordNotFound)
}

func (s *MintRecordRepositoryPGSuite) TestListByAuthorityNewestFirst() {
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, mint := range []string{"m1", "m2", "m3"} {
		_, err := s.repo.Create(ctx, s.record(mint, "auth", at.Add(time.Duration(i)*time.Minute)))
		s.Require().NoError(err)
	}
	_, err := s.repo.Create(ctx, s.record("m4", "someone-else", at))
	s.Require().NoError(err)

	list, err := s.repo.ListByAuthority(ctx, "auth")
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("m3", list[0].MintAddress)
	s.Equal("m1", list[2].MintAddress)
}

func (s *MintRecordRepositoryPGSuite) TestCreateInsideRolledBackTx() {
	ctx := context.Background()

	tx, err := s.conn.Client.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := dbcommon.CtxWithTx(ctx, tx)

	_, err = s.repo.Create(txCtx, s.record("mintTx", "auth", time.Now()))
	s.Require().NoError(err)
	_, err = s.repo.GetByMintAddress(txCtx, "mintTx")
	s.Require().NoError(err)
	s.Require().NoError(tx.Rollback())

	_, err = s.repo.GetByMintAddress(ctx, "mintTx")
	s.ErrorIs(err, mintdom.ErrRecordNotFound)
}
