// internal/adapters/out/firestore/mint_record_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

const mintRecordsCollection = "mint_records"

// MintRecordRepositoryFS implements mint.RecordRepository using Firestore.
// Documents are keyed by mint address.
type MintRecordRepositoryFS struct {
	Client *firestore.Client
}

var _ mintdom.RecordRepository = (*MintRecordRepositoryFS)(nil)

func NewMintRecordRepositoryFS(client *firestore.Client) *MintRecordRepositoryFS {
	return &MintRecordRepositoryFS{Client: client}
}

// mintRecordDoc: maxFee is a decimal string, Firestore integers are signed.
type mintRecordDoc struct {
	MintAddress    string    `firestore:"mintAddress"`
	Authority      string    `firestore:"authority"`
	FeeBasisPoints int64     `firestore:"feeBasisPoints"`
	MaxFee         string    `firestore:"maxFee"`
	Decimals       int64     `firestore:"decimals"`
	Signature      string    `firestore:"signature"`
	Host           string    `firestore:"host"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

func (r *MintRecordRepositoryFS) Create(ctx context.Context, v mintdom.Record) (mintdom.Record, error) {
	if r.Client == nil {
		return mintdom.Record{}, errors.New("firestore client is nil")
	}
	v.MintAddress = strings.TrimSpace(v.MintAddress)
	v.Authority = strings.TrimSpace(v.Authority)
	v.CreatedAt = v.CreatedAt.UTC()
	if err := v.Validate(); err != nil {
		return mintdom.Record{}, err
	}

	docRef := r.Client.Collection(mintRecordsCollection).Doc(v.MintAddress)
	if _, err := docRef.Create(ctx, toMintRecordDoc(v)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return mintdom.Record{}, mintdom.ErrRecordConflict
		}
		return mintdom.Record{}, err
	}
	return v, nil
}

func (r *MintRecordRepositoryFS) GetByMintAddress(ctx context.Context, mintAddress string) (mintdom.Record, error) {
	if r.Client == nil {
		return mintdom.Record{}, errors.New("firestore client is nil")
	}
	id := strings.TrimSpace(mintAddress)
	if id == "" {
		return mintdom.Record{}, mintdom.ErrRecordNotFound
	}

	snap, err := r.Client.Collection(mintRecordsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return mintdom.Record{}, mintdom.ErrRecordNotFound
		}
		return mintdom.Record{}, err
	}
	return decodeMintRecord(snap)
}

// ListByAuthority sorts newest first in memory to avoid a composite index.
func (r *MintRecordRepositoryFS) ListByAuthority(ctx context.Context, authority string) ([]mintdom.Record, error) {
	if r.Client == nil {
		return nil, errors.New("firestore client is nil")
	}

	iter := r.Client.Collection(mintRecordsCollection).
		Where("authority", "==", strings.TrimSpace(authority)).
		Documents(ctx)
	defer iter.Stop()

	out := []mintdom.Record{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		rec, err := decodeMintRecord(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].MintAddress < out[j].MintAddress
	})
	return out, nil
}

func toMintRecordDoc(v mintdom.Record) mintRecordDoc {
	return mintRecordDoc{
		MintAddress:    v.MintAddress,
		Authority:      v.Authority,
		FeeBasisPoints: int64(v.FeeBasisPoints),
		MaxFee:         strconv.FormatUint(v.MaxFee, 10),
		Decimals:       int64(v.Decimals),
		Signature:      v.Signature,
		Host:           v.Host,
		CreatedAt:      v.CreatedAt,
	}
}

func decodeMintRecord(snap *firestore.DocumentSnapshot) (mintdom.Record, error) {
	var d mintRecordDoc
	if err := snap.DataTo(&d); err != nil {
		return mintdom.Record{}, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
	}
	return fromMintRecordDoc(snap.Ref.ID, d)
}

func fromMintRecordDoc(id string, d mintRecordDoc) (mintdom.Record, error) {
	maxFee, err := strconv.ParseUint(strings.TrimSpace(d.MaxFee), 10, 64)
	if err != nil {
		return mintdom.Record{}, fmt.Errorf("decode %s: maxFee %q: %w", id, d.MaxFee, err)
	}
	addr := strings.TrimSpace(d.MintAddress)
	if addr == "" {
		addr = id
	}
	return mintdom.Record{
		MintAddress:    addr,
		Authority:      d.Authority,
		FeeBasisPoints: uint16(d.FeeBasisPoints),
		MaxFee:         maxFee,
		Decimals:       uint8(d.Decimals),
		Signature:      d.Signature,
		Host:           d.Host,
		CreatedAt:      d.CreatedAt.UTC(),
	}, nil
}
