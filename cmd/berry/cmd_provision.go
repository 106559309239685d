// cmd/berry/cmd_provision.go
package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/spf13/cobra"

	"github.com/danishahmed448/berry-coin/internal/application/provision"
	"github.com/danishahmed448/berry-coin/internal/platform/di"
)

const defaultLocalAirdrop = 1_000_000_000

type provisionOptions struct {
	feeBasisPoints uint16
	maxFee         uint64
	authority      string
	mint           string
	freeze         string
	airdrop        uint64
	jsonOut        bool
}

func newProvisionCmd(a *app) *cobra.Command {
	o := &provisionOptions{}
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a fee-bearing mint in one atomic transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return a.withContainer(ctx, func(c *di.Container) error {
				in, err := o.input(cmd, a, c)
				if err != nil {
					return err
				}
				res, err := c.Provisioner.Provision(ctx, in)
				if err != nil {
					return err
				}
				return writeProvisionResult(cmd.OutOrStdout(), in, res, o.jsonOut)
			})
		},
	}

	f := cmd.Flags()
	f.Uint16Var(&o.feeBasisPoints, "fee-basis-points", 100, "transfer fee in hundredths of a percent (100 = 1%)")
	f.Uint64Var(&o.maxFee, "max-fee", 5000, "maximum fee per transfer in base units")
	f.StringVar(&o.authority, "authority-keypair", "", "payer and authority: keypair file, Secret Manager version or base58 secret (env SOLANA_MINT_KEY_SECRET)")
	f.StringVar(&o.mint, "mint-keypair", "", "mint keypair source; a fresh keypair when empty")
	f.StringVar(&o.freeze, "freeze-authority", "", "optional freeze authority address")
	f.Uint64Var(&o.airdrop, "airdrop", defaultLocalAirdrop, "lamports credited to the authority on the local host")
	f.BoolVar(&o.jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func (o *provisionOptions) input(cmd *cobra.Command, a *app, c *di.Container) (provision.Input, error) {
	ctx := cmd.Context()

	source := o.authority
	if source == "" {
		source = a.cfg.MintKeySecret
	}

	var authority types.Account
	switch {
	case source != "":
		acc, err := c.Keys.Load(ctx, source)
		if err != nil {
			return provision.Input{}, fmt.Errorf("authority: %w", err)
		}
		authority = acc
	case c.Ledger != nil:
		authority = types.NewAccount()
	default:
		return provision.Input{}, fmt.Errorf("authority: --authority-keypair or SOLANA_MINT_KEY_SECRET is required for host %q", c.Host.Name())
	}

	mint := types.NewAccount()
	if o.mint != "" {
		acc, err := c.Keys.Load(ctx, o.mint)
		if err != nil {
			return provision.Input{}, fmt.Errorf("mint: %w", err)
		}
		mint = acc
	}

	var freeze *common.PublicKey
	if o.freeze != "" {
		k, err := parsePublicKey(o.freeze)
		if err != nil {
			return provision.Input{}, fmt.Errorf("freeze authority: %w", err)
		}
		freeze = &k
	}

	if c.Ledger != nil && o.airdrop > 0 {
		c.Ledger.Airdrop(authority.PublicKey, o.airdrop)
	}

	return provision.Input{
		Authority:       authority,
		Mint:            mint,
		FeeBasisPoints:  o.feeBasisPoints,
		MaxFee:          o.maxFee,
		FreezeAuthority: freeze,
	}, nil
}

type provisionOutput struct {
	Mint           string `json:"mint"`
	Authority      string `json:"authority"`
	Signature      string `json:"signature"`
	FeeBasisPoints uint16 `json:"feeBasisPoints"`
	MaxFee         uint64 `json:"maxFee"`
	Decimals       uint8  `json:"decimals"`
	Phase          string `json:"phase,omitempty"`
	Recorded       bool   `json:"recorded"`
}

func writeProvisionResult(w io.Writer, in provision.Input, res *provision.Result, asJSON bool) error {
	out := provisionOutput{
		Mint:           in.Mint.PublicKey.ToBase58(),
		Authority:      in.Authority.PublicKey.ToBase58(),
		Signature:      res.Signature,
		FeeBasisPoints: res.Request.FeeBasisPoints,
		MaxFee:         res.Request.MaxFee,
		Decimals:       res.Request.Decimals,
		Recorded:       res.Record != nil,
	}
	if res.Account != nil {
		out.Phase = res.Account.Phase.String()
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	_, err := fmt.Fprintf(w,
		"mint:      %s\nauthority: %s\nsignature: %s\nfee:       %.2f%% (%d bps), max %d\ndecimals:  %d\n",
		out.Mint, out.Authority, out.Signature,
		res.Request.FeePercent(), out.FeeBasisPoints, out.MaxFee, out.Decimals,
	)
	return err
}
