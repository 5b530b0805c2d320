package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"courier/internal/ipc"
)

func newSharesCommand(ctx *commandContext) *cobra.Command {
	sharesCmd := &cobra.Command{
		Use:   "shares",
		Short: "Inspect and manage share records",
	}

	sharesCmd.AddCommand(newSharesListCommand(ctx))
	sharesCmd.AddCommand(newSharesDeleteCommand(ctx))

	return sharesCmd
}

func newSharesListCommand(ctx *commandContext) *cobra.Command {
	var owner int64
	var offset int
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List share records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SharesList(owner, offset, limit)
				if err != nil {
					return fmt.Errorf("list shares: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(resp.Shares) == 0 {
					fmt.Fprintln(out, "No shares found")
					return nil
				}

				rows := make([][]string, 0, len(resp.Shares))
				for _, share := range resp.Shares {
					rows = append(rows, []string{
						share.Token,
						strconv.FormatInt(share.Owner, 10),
						strconv.Itoa(share.Items),
						share.Kind,
						share.CreatedAt,
					})
				}
				aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable([]string{"Token", "Owner", "Items", "Kind", "Created"}, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "Only list shares created by this principal id")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of records to skip")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records to return")
	return cmd
}

func newSharesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <token>",
		Short: "Delete a share record and discard its stored items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SharesDelete(args[0])
				if err != nil {
					return fmt.Errorf("delete share: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed share %s (%d items)\n", args[0], resp.Items)
				return nil
			})
		},
	}
}
