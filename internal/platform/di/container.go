// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	smpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"

	dbadapter "github.com/danishahmed448/berry-coin/internal/adapters/out/db"
	fsadapter "github.com/danishahmed448/berry-coin/internal/adapters/out/firestore"
	"github.com/danishahmed448/berry-coin/internal/adapters/out/memory"
	"github.com/danishahmed448/berry-coin/internal/application/provision"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/config"
	"github.com/danishahmed448/berry-coin/internal/infra/database"
	firestoreinfra "github.com/danishahmed448/berry-coin/internal/infra/firestore"
	"github.com/danishahmed448/berry-coin/internal/infra/ledger"
	solanainfra "github.com/danishahmed448/berry-coin/internal/infra/solana"
	"github.com/danishahmed448/berry-coin/internal/platform/metrics"
)

// Container owns the runtime clients of one process and wires the provisioner.
type Container struct {
	Config  *config.Config
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics

	Host provision.Host
	// Ledger is set when Host is the in-memory ledger.
	Ledger *ledger.Ledger

	// Records is nil when the record store is "none".
	Records     mintdom.RecordRepository
	RecordsPG   *dbadapter.MintRecordRepositoryPG
	Keys        *solanainfra.KeypairLoader
	Provisioner *provision.Provisioner

	closers []func() error
}

// New builds the container. Record store clients are strict; the Secret
// Manager client is opened on first use.
func New(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	switch cfg.Host {
	case config.HostRPC:
		h := solanainfra.NewRPCHost(cfg.SolanaRPCURL, logger)
		h.Timeout = cfg.RPCTimeout
		c.Host = h
	default:
		c.Ledger = ledger.New(ledger.WithLogger(logger))
		c.Host = c.Ledger
	}

	if err := c.openRecords(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	secrets := &lazySecrets{credentialsFile: cfg.GCPCreds}
	c.closers = append(c.closers, secrets.Close)
	c.Keys = solanainfra.NewKeypairLoader(secrets, logger)

	opts := []provision.Option{
		provision.WithLogger(logger),
		provision.WithObserver(c.Metrics),
	}
	if c.Records != nil {
		opts = append(opts, provision.WithRecorder(c.Records))
	}
	p, err := provision.New(c.Host, opts...)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.Provisioner = p

	logger.WithFields(logrus.Fields{
		"host":        c.Host.Name(),
		"recordStore": cfg.RecordStore,
	}).Debug("container ready")
	return c, nil
}

func (c *Container) openRecords(ctx context.Context) error {
	cfg := c.Config
	switch cfg.RecordStore {
	case config.RecordStoreNone:
		return nil
	case config.RecordStoreFirestore:
		fs, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile, c.Logger)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, fs.Close)
		c.Records = fsadapter.NewMintRecordRepositoryFS(fs.Client)
	case config.RecordStorePostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL, c.Logger)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, db.Close)
		c.RecordsPG = dbadapter.NewMintRecordRepositoryPG(db.Client)
		c.Records = c.RecordsPG
	default:
		c.Records = memory.NewMintRecordRepository()
	}
	return nil
}

// Close releases clients in reverse order of creation.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// lazySecrets opens the Secret Manager client the first time a secret is read.
type lazySecrets struct {
	credentialsFile string

	once   sync.Once
	client *secretmanager.Client
	err    error
}

func (s *lazySecrets) AccessSecretVersion(
	ctx context.Context,
	req *smpb.AccessSecretVersionRequest,
	opts ...gax.CallOption,
) (*smpb.AccessSecretVersionResponse, error) {
	s.once.Do(func() {
		s.client, s.err = solanainfra.NewSecretManagerClient(ctx, strings.TrimSpace(s.credentialsFile))
	})
	if s.err != nil {
		return nil, fmt.Errorf("di: secret manager: %w", s.err)
	}
	return s.client.AccessSecretVersion(ctx, req, opts...)
}

func (s *lazySecrets) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
