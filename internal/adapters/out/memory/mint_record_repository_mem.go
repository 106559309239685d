// internal/adapters/out/memory/mint_record_repository_mem.go
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// MintRecordRepository keeps records for the process lifetime.
type MintRecordRepository struct {
	mu   sync.RWMutex
	byID map[string]mintdom.Record
}

var _ mintdom.RecordRepository = (*MintRecordRepository)(nil)

func NewMintRecordRepository() *MintRecordRepository {
	return &MintRecordRepository{byID: map[string]mintdom.Record{}}
}

func (r *MintRecordRepository) Create(_ context.Context, v mintdom.Record) (mintdom.Record, error) {
	v.MintAddress = strings.TrimSpace(v.MintAddress)
	v.Authority = strings.TrimSpace(v.Authority)
	v.CreatedAt = v.CreatedAt.UTC()
	if err := v.Validate(); err != nil {
		return mintdom.Record{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[v.MintAddress]; ok {
		return mintdom.Record{}, mintdom.ErrRecordConflict
	}
	r.byID[v.MintAddress] = v
	return v, nil
}

func (r *MintRecordRepository) GetByMintAddress(_ context.Context, mintAddress string) (mintdom.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[strings.TrimSpace(mintAddress)]
	if !ok {
		return mintdom.Record{}, mintdom.ErrRecordNotFound
	}
	return v, nil
}

func (r *MintRecordRepository) ListByAuthority(_ context.Context, authority string) ([]mintdom.Record, error) {
	a := strings.TrimSpace(authority)

	r.mu.RLock()
	out := make([]mintdom.Record, 0)
	for _, v := range r.byID {
		if v.Authority == a {
			out = append(out, v)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].MintAddress < out[j].MintAddress
	})
	return out, nil
}
