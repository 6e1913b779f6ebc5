package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification through the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				stdout := cmd.OutOrStdout()
				message := strings.TrimSpace(resp.Message)
				if resp.Sent {
					if message == "" {
						message = "Test notification sent"
					}
					fmt.Fprintln(stdout, message)
					return nil
				}
				if message == "" {
					message = "Notifications are not configured; set notifications.ntfy_topic in the config"
				}
				fmt.Fprintln(stdout, message)
				return nil
			})
		},
	}
}
