package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"courier/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and registry status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("fetch status: %w", err)
				}

				rows := [][]string{
					{"Running", yesNo(status.Running)},
					{"PID", strconv.Itoa(status.PID)},
					{"Healthy", yesNo(status.Healthy)},
					{"Shares", strconv.Itoa(status.Shares)},
					{"Items", strconv.Itoa(status.Items)},
					{"Owners", strconv.Itoa(status.Owners)},
					{"Registry", status.RegistryPath},
					{"Lock", status.LockPath},
				}
				if status.HealthDetail != "" {
					rows = append(rows, []string{"Health detail", status.HealthDetail})
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers on the control socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ping()
				if err != nil {
					return fmt.Errorf("ping daemon: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (pid %d)\n", resp.Message, resp.PID)
				return nil
			})
		},
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return fmt.Errorf("test notification: %w", err)
				}
				out := cmd.OutOrStdout()
				if resp.Sent {
					fmt.Fprintln(out, resp.Message)
					return nil
				}
				fmt.Fprintf(out, "not sent: %s\n", resp.Message)
				return nil
			})
		},
	}
}
