package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/api"
	"lectern/internal/queueaccess"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show full details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			if id == "" {
				return fmt.Errorf("job id is required")
			}
			return ctx.withQueue(func(session queueaccess.Session) error {
				job, err := session.Access.Describe(cmd.Context(), id)
				if err != nil {
					if isNotFoundError(err) {
						if ctx.jsonOutput() {
							return writeJSON(cmd, map[string]string{"error": "not_found", "id": id})
						}
						return fmt.Errorf("job %s not found", id)
					}
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				printJobDetail(cmd, *job)
				return nil
			})
		},
	}
}

func isNotFoundError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

func printJobDetail(cmd *cobra.Command, job api.Job) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Document", statusInfo, jobTitle(job), colorize))
	fmt.Fprintln(out, renderStatusLine("Status", jobStatusKind(job.Status), formatStatusLabel(job.Status), colorize))
	if stage := strings.TrimSpace(job.Progress.Stage); stage != "" {
		detail := stage
		if job.Progress.Percent > 0 {
			detail = fmt.Sprintf("%s (%.0f%%)", stage, job.Progress.Percent)
		}
		if message := strings.TrimSpace(job.Progress.Message); message != "" {
			detail += " " + message
		}
		fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, detail, colorize))
	}
	if job.RetryCount > 0 {
		fmt.Fprintln(out, renderStatusLine("Retries", statusInfo, fmt.Sprintf("%d", job.RetryCount), colorize))
	}
	if job.CancelRequested {
		fmt.Fprintln(out, renderStatusLine("Cancel", statusWarn, "Stop requested", colorize))
	}
	if created := formatDisplayTime(job.CreatedAt); created != "" {
		fmt.Fprintln(out, renderStatusLine("Created", statusInfo, created, colorize))
	}
	if completed := formatDisplayTime(job.CompletedAt); completed != "" {
		fmt.Fprintln(out, renderStatusLine("Completed", statusOK, completed, colorize))
	}
	if job.VideoDurationSeconds > 0 {
		detail := formatDuration(job.VideoDurationSeconds)
		if job.SlideCount > 0 {
			detail = fmt.Sprintf("%s, %d slides", detail, job.SlideCount)
		}
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, detail, colorize))
	}
	if next := formatDisplayTime(job.NextAttemptAt); next != "" {
		fmt.Fprintln(out, renderStatusLine("Next attempt", statusInfo, next, colorize))
	}

	if msg := strings.TrimSpace(job.ErrorMessage); msg != "" {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Error", colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, renderStatusLine("Message", statusError, msg, colorize))
		if stage := strings.TrimSpace(job.ErrorStage); stage != "" {
			fmt.Fprintln(out, renderStatusLine("Stage", statusError, stage, colorize))
		}
		if kind := strings.TrimSpace(job.ErrorKind); kind != "" {
			fmt.Fprintln(out, renderStatusLine("Kind", statusError, kind, colorize))
		}
	}

	if job.Artifacts != nil {
		artifactLines := artifactDetailLines(*job.Artifacts, colorize)
		if len(artifactLines) > 0 {
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Artifacts", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range artifactLines {
				fmt.Fprintln(out, line)
			}
		}
	}

	if len(job.StageDurations) > 0 {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader("Stage Durations", colorize) {
			fmt.Fprintln(out, line)
		}
		names := make([]string, 0, len(job.StageDurations))
		for name := range job.StageDurations {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(out, renderStatusLine(name, statusInfo, formatDuration(job.StageDurations[name]), colorize))
		}
	}
}

func jobStatusKind(status string) statusKind {
	switch status {
	case "completed":
		return statusOK
	case "failed":
		return statusError
	case "cancelled":
		return statusWarn
	default:
		return statusInfo
	}
}

func artifactDetailLines(artifacts api.JobArtifacts, colorize bool) []string {
	entries := []struct {
		label string
		path  string
	}{
		{"Extracted text", artifacts.TextPath},
		{"Timeline", artifacts.TimelinePath},
		{"Images", artifacts.ImagesDir},
		{"Audio", artifacts.AudioDir},
		{"Video", artifacts.VideoPath},
	}
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if path := strings.TrimSpace(entry.path); path != "" {
			lines = append(lines, renderStatusLine(entry.label, statusInfo, path, colorize))
		}
	}
	return lines
}
