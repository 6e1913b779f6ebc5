package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/queueaccess"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <pdf>",
		Short: "Queue a curriculum PDF for video production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if ext := strings.ToLower(filepath.Ext(info.Name())); ext != ".pdf" {
				return fmt.Errorf("unsupported file extension %q (expected .pdf)", ext)
			}

			return ctx.withQueue(func(session queueaccess.Session) error {
				job, err := session.Access.Submit(cmd.Context(), absPath)
				if err != nil {
					if errors.Is(err, queueaccess.ErrDaemonRequired) {
						return fmt.Errorf("submit requires a running daemon; start it with `lectern daemon start`")
					}
					return err
				}
				if job == nil {
					return errors.New("empty response from daemon")
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s as job %s\n", filepath.Base(absPath), job.ID)
				return nil
			})
		},
	}
}
