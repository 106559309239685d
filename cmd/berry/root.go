// cmd/berry/root.go
package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danishahmed448/berry-coin/internal/infra/config"
	"github.com/danishahmed448/berry-coin/internal/platform/di"
	"github.com/danishahmed448/berry-coin/internal/platform/logger"
	berryotel "github.com/danishahmed448/berry-coin/internal/platform/otel"
)

const serviceName = "berry"

// app is shared by all subcommands of one invocation.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger

	hostFlag        string
	rpcURLFlag      string
	recordStoreFlag string
	logLevelFlag    string
	logFormatFlag   string

	container     *di.Container
	shutdownTrace func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "berry",
		Short:         "Provision Token-2022 mints with a transfer fee",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.hostFlag, "host", "", "execution host: local or rpc (env BERRY_HOST)")
	pf.StringVar(&a.rpcURLFlag, "rpc-url", "", "Solana RPC endpoint (env SOLANA_RPC_URL)")
	pf.StringVar(&a.recordStoreFlag, "record-store", "", "none, memory, firestore or postgres (env BERRY_RECORD_STORE)")
	pf.StringVar(&a.logLevelFlag, "log-level", "", "log level (env LOG_LEVEL)")
	pf.StringVar(&a.logFormatFlag, "log-format", "", "text or json (env LOG_FORMAT)")

	root.AddCommand(
		newProvisionCmd(a),
		newInspectCmd(a),
		newKeygenCmd(a),
		newRecordsCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// load resolves config from env, then flags.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = a.hostFlag
	}
	if flags.Changed("rpc-url") {
		cfg.SolanaRPCURL = a.rpcURLFlag
	}
	if flags.Changed("record-store") {
		cfg.RecordStore = a.recordStoreFlag
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevelFlag
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormatFlag
	}

	l, err := logger.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = l
	return nil
}

// withContainer builds the container, runs fn and releases everything.
func (a *app) withContainer(ctx context.Context, fn func(*di.Container) error) error {
	c, err := a.containerFor(ctx)
	if err != nil {
		_ = a.close(ctx)
		return err
	}
	err = fn(c)
	if cerr := a.close(ctx); err == nil {
		err = cerr
	}
	return err
}

func (a *app) containerFor(ctx context.Context) (*di.Container, error) {
	if a.container != nil {
		return a.container, nil
	}
	shutdown, err := berryotel.Setup(ctx, serviceName, a.cfg.OTelEndpoint)
	if err != nil {
		a.logger.WithError(err).Warn("tracing disabled")
	} else {
		a.shutdownTrace = shutdown
	}

	c, err := di.New(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.container = c
	return c, nil
}

func (a *app) close(ctx context.Context) error {
	if a.container != nil {
		if url := a.cfg.PushgatewayURL; url != "" {
			if err := a.container.Metrics.Push(url, serviceName); err != nil {
				a.logger.WithError(err).Warn("metrics push failed")
			}
		}
		if err := a.container.Close(); err != nil {
			return fmt.Errorf("close: %w", err)
		}
		a.container = nil
	}
	if a.shutdownTrace != nil {
		if err := a.shutdownTrace(ctx); err != nil {
			a.logger.WithError(err).Warn("trace shutdown failed")
		}
		a.shutdownTrace = nil
	}
	return nil
}
