package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/queue"
	"lectern/internal/queueaccess"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, raw := range listStatuses {
				if _, ok := queue.ParseStatus(raw); !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", raw, statusNames())
				}
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				jobs, err := session.Access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					sorted := api.SortJobsNewestFirst(jobs)
					if sorted == nil {
						sorted = []api.Job{}
					}
					return writeJSON(cmd, sorted)
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				table := renderTable(jobListHeaders, buildJobListRows(jobs), jobListAligns)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func statusNames() string {
	all := queue.AllStatuses()
	names := make([]string, len(all))
	for i, status := range all {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}
