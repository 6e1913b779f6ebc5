package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/queueaccess"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var allFailed bool

	cmd := &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Retry failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if allFailed && len(args) > 0 {
				return errors.New("specify job ids or --all-failed, not both")
			}
			if !allFailed && len(args) == 0 {
				return errors.New("specify at least one job id or --all-failed")
			}

			return ctx.withQueue(func(session queueaccess.Session) error {
				var ids []string
				if !allFailed {
					ids = args
				}
				updated, outcomes, err := session.Access.Retry(cmd.Context(), ids)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.RetryJobsResult{UpdatedCount: updated, Jobs: outcomes})
				}
				out := cmd.OutOrStdout()
				if allFailed {
					fmt.Fprintf(out, "Retried %d failed jobs\n", updated)
					return nil
				}
				printRetryOutcomes(out, outcomes)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&allFailed, "all-failed", false, "Retry every failed job")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <job-id...>",
		Short: "Request cancellation of jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(session queueaccess.Session) error {
				updated, outcomes, err := session.Access.Stop(cmd.Context(), args)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.StopJobsResult{UpdatedCount: updated, Jobs: outcomes})
				}
				printStopOutcomes(cmd.OutOrStdout(), outcomes)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <job-id...>",
		Short: "Remove jobs and their artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(session queueaccess.Session) error {
				removed, outcomes, err := session.Access.Remove(cmd.Context(), args)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.RemoveJobsResult{RemovedCount: removed, Jobs: outcomes})
				}
				printRemoveOutcomes(cmd.OutOrStdout(), outcomes)
				return nil
			})
		},
	}
}
