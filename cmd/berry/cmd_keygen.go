// cmd/berry/cmd_keygen.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	solanainfra "github.com/danishahmed448/berry-coin/internal/infra/solana"
)

func newKeygenCmd(a *app) *cobra.Command {
	var outFile string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Write a new Solana CLI compatible keypair file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			acc, err := solanainfra.GenerateKeypairFile(outFile)
			if err != nil {
				return err
			}
			a.logger.WithField("file", outFile).Info("keypair written")

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "public key: %s\n", acc.PublicKey.ToBase58())
			fmt.Fprintf(w, "keypair:    %s\n", outFile)
			fmt.Fprintln(w, "keep this file out of version control; store it in Secret Manager for shared use")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFile, "outfile", "o", "berry-mint-authority.json", "keypair file to create")
	return cmd
}
