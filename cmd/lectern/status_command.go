package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/daemonctl"
	"lectern/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pipeline, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			statusResp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, statusResp)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range daemonLines(statusResp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range preflightLines(statusResp.Preflight, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if len(statusResp.StageHealth) > 0 {
				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range stageHealthLines(statusResp.StageHealth, colorize) {
					fmt.Fprintln(stdout, line)
				}
			}

			fmt.Fprintln(stdout)
			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildQueueStatusRows(statusResp.QueueStats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

func daemonLines(status *ipc.StatusResponse, colorize bool) []string {
	lines := make([]string, 0, 4)
	if status.Running {
		detail := "Running"
		if status.PID > 0 {
			detail = fmt.Sprintf("Running (pid %d)", status.PID)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}
	if path := strings.TrimSpace(status.LogPath); path != "" {
		lines = append(lines, renderStatusLine("Log file", statusInfo, path, colorize))
	}
	if path := strings.TrimSpace(status.QueueDBPath); path != "" {
		lines = append(lines, renderStatusLine("Queue database", statusInfo, path, colorize))
	}
	if lastErr := strings.TrimSpace(status.LastError); lastErr != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, lastErr, colorize))
	}
	if status.LastJob != nil {
		detail := fmt.Sprintf("%s (%s)", jobTitle(*status.LastJob), formatStatusLabel(status.LastJob.Status))
		lines = append(lines, renderStatusLine("Last job", statusInfo, detail, colorize))
	}
	return lines
}

func preflightLines(checks []api.PreflightCheck, colorize bool) []string {
	if len(checks) == 0 {
		return []string{renderStatusLine("Preflight", statusInfo, "No checks reported", colorize)}
	}
	lines := make([]string, 0, len(checks))
	for _, check := range checks {
		kind := statusOK
		if !check.Ready {
			kind = statusError
			if check.Optional {
				kind = statusWarn
			}
		}
		detail := strings.TrimSpace(check.Detail)
		if detail == "" && check.Ready {
			detail = "Ready"
		}
		lines = append(lines, renderStatusLine(check.Name, kind, detail, colorize))
	}
	return lines
}

func stageHealthLines(stages []api.StageHealth, colorize bool) []string {
	lines := make([]string, 0, len(stages))
	for _, health := range stages {
		kind := statusOK
		detail := strings.TrimSpace(health.Detail)
		if !health.Ready {
			kind = statusError
			if detail == "" {
				detail = "not ready"
			}
		} else if detail == "" {
			detail = "Ready"
		}
		lines = append(lines, renderStatusLine(health.Name, kind, detail, colorize))
	}
	return lines
}
