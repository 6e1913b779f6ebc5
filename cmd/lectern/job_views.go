package main

import (
	"fmt"
	"sort"
	"strings"

	"lectern/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildJobListRows(jobs []api.Job) [][]string {
	if len(jobs) == 0 {
		return nil
	}
	sorted := api.SortJobsNewestFirst(jobs)

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		rows = append(rows, []string{
			job.ID,
			jobTitle(job),
			formatStatusLabel(job.Status),
			formatStageCell(job),
			formatDisplayTime(job.CreatedAt),
		})
	}
	return rows
}

var jobListHeaders = []string{"ID", "Document", "Status", "Stage", "Created"}

var jobListAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}

func jobTitle(job api.Job) string {
	title := strings.TrimSpace(job.OriginalFilename)
	if title == "" {
		title = "Unknown"
	}
	return title
}

// formatStageCell summarizes where a job is: the active stage with percent
// while processing, the failing stage for failed jobs, a dash otherwise.
func formatStageCell(job api.Job) string {
	switch job.Status {
	case "processing":
		stage := strings.TrimSpace(job.Progress.Stage)
		if stage == "" {
			return "-"
		}
		if job.Progress.Percent > 0 {
			return fmt.Sprintf("%s %.0f%%", stage, job.Progress.Percent)
		}
		return stage
	case "failed":
		if stage := strings.TrimSpace(job.ErrorStage); stage != "" {
			return stage
		}
	}
	return "-"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := api.ParseJobTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int(seconds + 0.5)
	minutes := total / 60
	secs := total % 60
	if minutes == 0 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm%02ds", minutes, secs)
}
