// cmd/berry/cmd_inspect.go
package main

import (
	"fmt"
	"io"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/mr-tron/base58"
	"github.com/spf13/cobra"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/infra/solana/token2022"
	"github.com/danishahmed448/berry-coin/internal/platform/di"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <mint>",
		Short: "Decode a mint account and its transfer-fee extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parsePublicKey(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return a.withContainer(ctx, func(c *di.Container) error {
				info, err := c.Host.GetAccount(ctx, addr)
				if err != nil {
					return err
				}
				acc, err := token2022.DecodeMintAccount(info)
				if err != nil {
					return err
				}
				acc.Address = addr
				return writeMintAccount(cmd.OutOrStdout(), acc)
			})
		},
	}
}

func writeMintAccount(w io.Writer, acc mintdom.MintAccount) error {
	fmt.Fprintf(w, "address:   %s\n", acc.Address.ToBase58())
	fmt.Fprintf(w, "phase:     %s\n", acc.Phase)
	if acc.Phase == mintdom.PhaseUnallocated {
		return nil
	}
	fmt.Fprintf(w, "owner:     %s\n", acc.Owner.ToBase58())
	fmt.Fprintf(w, "lamports:  %d\n", acc.Lamports)
	fmt.Fprintf(w, "size:      %d\n", acc.Size)
	if s := acc.State; s != nil {
		fmt.Fprintf(w, "decimals:  %d\n", s.Decimals)
		fmt.Fprintf(w, "supply:    %d\n", s.Supply)
		fmt.Fprintf(w, "mint auth: %s\n", keyOrNone(s.MintAuthority))
		fmt.Fprintf(w, "freeze:    %s\n", keyOrNone(s.FreezeAuthority))
	}
	if f := acc.TransferFee; f != nil {
		fmt.Fprintf(w, "fee auth:  %s\n", keyOrNone(f.TransferFeeConfigAuthority))
		fmt.Fprintf(w, "withdraw:  %s\n", keyOrNone(f.WithdrawWithheldAuthority))
		fmt.Fprintf(w, "withheld:  %d\n", f.WithheldAmount)
		fmt.Fprintf(w, "fee:       %d bps, max %d (epoch %d)\n",
			f.NewerTransferFee.BasisPoints, f.NewerTransferFee.MaximumFee, f.NewerTransferFee.Epoch)
	}
	return nil
}

func keyOrNone(k *common.PublicKey) string {
	if k == nil {
		return "none"
	}
	return k.ToBase58()
}

// parsePublicKey rejects strings that are not 32 bytes of base58.
func parsePublicKey(s string) (common.PublicKey, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if len(b) != 32 {
		return common.PublicKey{}, fmt.Errorf("invalid address %q: %d bytes", s, len(b))
	}
	return common.PublicKeyFromBytes(b), nil
}
