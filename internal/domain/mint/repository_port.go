// internal/domain/mint/repository_port.go
package mint

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Record is the audit trail of one successful provisioning.
type Record struct {
	MintAddress    string    `json:"mintAddress"`
	Authority      string    `json:"authority"`
	FeeBasisPoints uint16    `json:"feeBasisPoints"`
	MaxFee         uint64    `json:"maxFee"`
	Decimals       uint8     `json:"decimals"`
	Signature      string    `json:"signature"`
	Host           string    `json:"host"`
	CreatedAt      time.Time `json:"createdAt"`
}

var (
	ErrRecordNotFound = errors.New("mint: record not found")
	ErrRecordConflict = errors.New("mint: record already exists")
	ErrInvalidRecord  = errors.New("mint: invalid record")
)

func (r Record) Validate() error {
	if strings.TrimSpace(r.MintAddress) == "" || strings.TrimSpace(r.Authority) == "" {
		return ErrInvalidRecord
	}
	if r.Decimals != Decimals {
		return ErrInvalidRecord
	}
	if r.CreatedAt.IsZero() {
		return ErrInvalidRecord
	}
	return nil
}

// RecordRepository persists provisioning records keyed by mint address.
type RecordRepository interface {
	Create(ctx context.Context, r Record) (Record, error)
	GetByMintAddress(ctx context.Context, mintAddress string) (Record, error)
	ListByAuthority(ctx context.Context, authority string) ([]Record, error)
}

// RecordsTableDDL defines the SQL for the mint_records migration.
const RecordsTableDDL = `
BEGIN;

CREATE TABLE IF NOT EXISTS mint_records (
  mint_address     TEXT        PRIMARY KEY,
  authority        TEXT        NOT NULL,
  fee_basis_points INTEGER     NOT NULL,
  max_fee          NUMERIC(20) NOT NULL,
  decimals         SMALLINT    NOT NULL,
  signature        TEXT        NOT NULL DEFAULT '',
  host             TEXT        NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),

  CONSTRAINT chk_mint_records_fee_bps CHECK (fee_basis_points BETWEEN 0 AND 10000),
  CONSTRAINT chk_mint_records_mint_address_non_empty CHECK (char_length(trim(mint_address)) > 0)
);

CREATE INDEX IF NOT EXISTS idx_mint_records_authority  ON mint_records(authority);
CREATE INDEX IF NOT EXISTS idx_mint_records_created_at ON mint_records(created_at);

COMMIT;
`
