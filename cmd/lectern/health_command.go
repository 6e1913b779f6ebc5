package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/queue"
	"lectern/internal/queueaccess"
)

type queueHealthPayload struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

type databaseHealthPayload struct {
	Path           string   `json:"path"`
	Exists         bool     `json:"exists"`
	Readable       bool     `json:"readable"`
	SchemaVersion  string   `json:"schemaVersion,omitempty"`
	TableExists    bool     `json:"tableExists"`
	MissingColumns []string `json:"missingColumns,omitempty"`
	IntegrityCheck bool     `json:"integrityCheck"`
	TotalJobs      int      `json:"totalJobs"`
	Error          string   `json:"error,omitempty"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue counts and database integrity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(session queueaccess.Session) error {
				summary, err := session.Access.QueueHealth(cmd.Context())
				if err != nil {
					return fmt.Errorf("queue health: %w", err)
				}
				database, err := session.Access.DatabaseHealth(cmd.Context())
				if err != nil {
					return fmt.Errorf("database health: %w", err)
				}

				if ctx.jsonOutput() {
					payload := struct {
						Queue    queueHealthPayload    `json:"queue"`
						Database databaseHealthPayload `json:"database"`
					}{
						Queue: queueHealthPayload{
							Total:      summary.Total,
							Pending:    summary.Pending,
							Processing: summary.Processing,
							Completed:  summary.Completed,
							Failed:     summary.Failed,
							Cancelled:  summary.Cancelled,
						},
						Database: databaseHealthPayload{
							Path:           database.DBPath,
							Exists:         database.DatabaseExists,
							Readable:       database.DatabaseReadable,
							SchemaVersion:  database.SchemaVersion,
							TableExists:    database.TableExists,
							MissingColumns: database.MissingColumns,
							IntegrityCheck: database.IntegrityCheck,
							TotalJobs:      database.TotalJobs,
							Error:          database.Error,
						},
					}
					return writeJSON(cmd, payload)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range queueHealthLines(summary, colorize) {
					fmt.Fprintln(stdout, line)
				}

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Database", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range databaseHealthLines(database, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}

func queueHealthLines(summary queue.HealthSummary, colorize bool) []string {
	failedKind := statusInfo
	if summary.Failed > 0 {
		failedKind = statusWarn
	}
	return []string{
		renderStatusLine("Total", statusInfo, fmt.Sprintf("%d", summary.Total), colorize),
		renderStatusLine("Pending", statusInfo, fmt.Sprintf("%d", summary.Pending), colorize),
		renderStatusLine("Processing", statusInfo, fmt.Sprintf("%d", summary.Processing), colorize),
		renderStatusLine("Completed", statusInfo, fmt.Sprintf("%d", summary.Completed), colorize),
		renderStatusLine("Failed", failedKind, fmt.Sprintf("%d", summary.Failed), colorize),
		renderStatusLine("Cancelled", statusInfo, fmt.Sprintf("%d", summary.Cancelled), colorize),
	}
}

func databaseHealthLines(health queue.DatabaseHealth, colorize bool) []string {
	lines := make([]string, 0, 9)
	if path := strings.TrimSpace(health.DBPath); path != "" {
		lines = append(lines, renderStatusLine("Path", statusInfo, path, colorize))
	}
	lines = append(lines, renderStatusLine("Exists", checkKind(health.DatabaseExists), yesNo(health.DatabaseExists), colorize))
	lines = append(lines, renderStatusLine("Readable", checkKind(health.DatabaseReadable), yesNo(health.DatabaseReadable), colorize))
	if version := strings.TrimSpace(health.SchemaVersion); version != "" {
		lines = append(lines, renderStatusLine("Schema version", statusInfo, version, colorize))
	}
	lines = append(lines, renderStatusLine("Jobs table", checkKind(health.TableExists), yesNo(health.TableExists), colorize))
	if len(health.MissingColumns) > 0 {
		lines = append(lines, renderStatusLine("Missing columns", statusError, strings.Join(health.MissingColumns, ", "), colorize))
	} else {
		lines = append(lines, renderStatusLine("Missing columns", statusOK, "none", colorize))
	}
	lines = append(lines, renderStatusLine("Integrity check", checkKind(health.IntegrityCheck), yesNo(health.IntegrityCheck), colorize))
	lines = append(lines, renderStatusLine("Total jobs", statusInfo, fmt.Sprintf("%d", health.TotalJobs), colorize))
	if errMsg := strings.TrimSpace(health.Error); errMsg != "" {
		lines = append(lines, renderStatusLine("Error", statusError, errMsg, colorize))
	}
	return lines
}

func checkKind(ok bool) statusKind {
	if ok {
		return statusOK
	}
	return statusError
}
