// internal/adapters/out/db/mint_record_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	dbcommon "github.com/danishahmed448/berry-coin/internal/adapters/out/db/common"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// MintRecordRepositoryPG implements mint.RecordRepository on PostgreSQL.
type MintRecordRepositoryPG struct {
	DB *sql.DB
}

var _ mintdom.RecordRepository = (*MintRecordRepositoryPG)(nil)

func NewMintRecordRepositoryPG(db *sql.DB) *MintRecordRepositoryPG {
	return &MintRecordRepositoryPG{DB: db}
}

// Migrate creates the mint_records table when missing.
func (r *MintRecordRepositoryPG) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, mintdom.RecordsTableDDL); err != nil {
		return fmt.Errorf("mint_records migrate: %w", err)
	}
	return nil
}

const mintRecordColumns = `
  mint_address,
  authority,
  fee_basis_points,
  max_fee,
  decimals,
  signature,
  host,
  created_at`

func (r *MintRecordRepositoryPG) Create(ctx context.Context, v mintdom.Record) (mintdom.Record, error) {
	if err := v.Validate(); err != nil {
		return mintdom.Record{}, err
	}
	run := dbcommon.GetRunner(ctx, r.DB)

	q := `
INSERT INTO mint_records (` + mintRecordColumns + `
) VALUES (
  $1, $2, $3, $4::numeric, $5, $6, $7, $8
)
RETURNING` + mintRecordColumns

	row := run.QueryRowContext(
		ctx,
		q,
		strings.TrimSpace(v.MintAddress),
		strings.TrimSpace(v.Authority),
		int(v.FeeBasisPoints),
		strconv.FormatUint(v.MaxFee, 10),
		int(v.Decimals),
		v.Signature,
		v.Host,
		v.CreatedAt.UTC(),
	)
	out, err := scanMintRecord(row)
	if err != nil {
		if dbcommon.IsUniqueViolation(err) {
			return mintdom.Record{}, mintdom.ErrRecordConflict
		}
		return mintdom.Record{}, err
	}
	return out, nil
}

func (r *MintRecordRepositoryPG) GetByMintAddress(ctx context.Context, mintAddress string) (mintdom.Record, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	q := `SELECT` + mintRecordColumns + `
FROM mint_records
WHERE mint_address = $1`

	out, err := scanMintRecord(run.QueryRowContext(ctx, q, strings.TrimSpace(mintAddress)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return mintdom.Record{}, mintdom.ErrRecordNotFound
		}
		return mintdom.Record{}, err
	}
	return out, nil
}

// ListByAuthority returns newest first.
func (r *MintRecordRepositoryPG) ListByAuthority(ctx context.Context, authority string) ([]mintdom.Record, error) {
	run := dbcommon.GetRunner(ctx, r.DB)

	q := `SELECT` + mintRecordColumns + `
FROM mint_records
WHERE authority = $1
ORDER BY created_at DESC, mint_address ASC`

	rows, err := run.QueryContext(ctx, q, strings.TrimSpace(authority))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mintdom.Record{}
	for rows.Next() {
		rec, err := scanMintRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMintRecord(s dbcommon.RowScanner) (mintdom.Record, error) {
	var (
		rec      mintdom.Record
		feeBps   int
		maxFee   string
		decimals int
	)
	if err := s.Scan(
		&rec.MintAddress,
		&rec.Authority,
		&feeBps,
		&maxFee,
		&decimals,
		&rec.Signature,
		&rec.Host,
		&rec.CreatedAt,
	); err != nil {
		return mintdom.Record{}, err
	}
	n, err := strconv.ParseUint(strings.TrimSpace(maxFee), 10, 64)
	if err != nil {
		return mintdom.Record{}, fmt.Errorf("mint_records: max_fee %q: %w", maxFee, err)
	}
	rec.FeeBasisPoints = uint16(feeBps)
	rec.MaxFee = n
	rec.Decimals = uint8(decimals)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
