// cmd/berry/cmd_migrate.go
package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/platform/di"
)

func newMigrateCmd(a *app) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the mint_records table in PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				_, err := fmt.Fprint(cmd.OutOrStdout(), mintdom.RecordsTableDDL)
				return err
			}
			ctx := cmd.Context()
			return a.withContainer(ctx, func(c *di.Container) error {
				if c.RecordsPG == nil {
					return errors.New("migrate needs --record-store postgres")
				}
				if err := c.RecordsPG.Migrate(ctx); err != nil {
					return err
				}
				a.logger.Info("mint_records migrated")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the DDL instead of applying it")
	return cmd
}
