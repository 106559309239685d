// cmd/berry/cmd_records.go
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
	"github.com/danishahmed448/berry-coin/internal/platform/di"
)

var errNoRecordStore = errors.New("record store is disabled")

func newRecordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query provisioning records",
	}

	get := &cobra.Command{
		Use:   "get <mint>",
		Short: "Show the record of one mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withContainer(ctx, func(c *di.Container) error {
				if c.Records == nil {
					return errNoRecordStore
				}
				rec, err := c.Records.GetByMintAddress(ctx, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, rec)
			})
		},
	}

	var authority string
	list := &cobra.Command{
		Use:   "list",
		Short: "List records created by an authority, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if authority == "" {
				return fmt.Errorf("--authority is required")
			}
			ctx := cmd.Context()
			return a.withContainer(ctx, func(c *di.Container) error {
				if c.Records == nil {
					return errNoRecordStore
				}
				recs, err := c.Records.ListByAuthority(ctx, authority)
				if err != nil {
					return err
				}
				if recs == nil {
					recs = []mintdom.Record{}
				}
				return writeJSON(cmd, recs)
			})
		},
	}
	list.Flags().StringVar(&authority, "authority", "", "authority address")

	cmd.AddCommand(get, list)
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
