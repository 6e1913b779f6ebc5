package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/daemon"
	"lectern/internal/fileutil"
	"lectern/internal/queueaccess"
)

func newVideoCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "video <job-id>",
		Short: "Copy a finished job's video to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withQueue(func(session queueaccess.Session) error {
				job, err := session.Access.Describe(cmd.Context(), id)
				if err != nil {
					if isNotFoundError(err) {
						return fmt.Errorf("job %s not found", id)
					}
					return err
				}
				if job.Status != "completed" {
					return fmt.Errorf("job %s is %s; the video is available once the job has completed", id, job.Status)
				}
				if job.Artifacts == nil || strings.TrimSpace(job.Artifacts.VideoPath) == "" {
					return fmt.Errorf("job %s has no video artifact recorded", id)
				}
				source := job.Artifacts.VideoPath
				info, err := os.Stat(source)
				if err != nil {
					return fmt.Errorf("video file missing at %s: %w", source, err)
				}

				target := strings.TrimSpace(outputPath)
				if target == "" {
					target = daemon.VideoDownloadName(job.OriginalFilename)
				}
				if abs, absErr := filepath.Abs(target); absErr == nil {
					target = abs
				}
				if err := fileutil.CopyFileVerified(source, target); err != nil {
					return fmt.Errorf("copy video: %w", err)
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{
						"id":    job.ID,
						"path":  target,
						"bytes": info.Size(),
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", target, formatByteSize(info.Size()))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path for the video file")
	return cmd
}

func formatByteSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
