package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
	"lectern/internal/logs"
)

const logFollowWait = time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lineCount int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Prefer the HTTP API when it is configured: it works across
			// hosts, unlike the socket or the log file itself.
			err = streamLogsFromAPI(cmd, ctx, lineCount, follow)
			if err == nil {
				return nil
			}
			if !logs.IsAPIUnavailable(err) {
				return err
			}

			if client, dialErr := ctx.dialClient(); dialErr == nil {
				defer client.Close()
				return streamLogsOverSocket(cmd, client, lineCount, follow)
			}

			path := filepath.Join(cfg.Paths.LogDir, "lectern.log")
			return streamLogsFromFile(cmd, path, lineCount, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	cmd.Flags().IntVarP(&lineCount, "lines", "n", 10, "Number of recent lines to show (0 for all)")
	return cmd
}

// logFetch returns the lines at or after offset plus the offset to resume
// from. The first call may pass a negative offset to request only the tail.
type logFetch func(offset int64, limit int) ([]string, int64, error)

func runLogLoop(cmd *cobra.Command, follow bool, limit int, fetch logFetch) error {
	if limit < 0 {
		limit = 0
	}
	offset := int64(-1)
	if limit == 0 {
		offset = 0
	}

	printed := false
	first := true
	for {
		lines, next, err := fetch(offset, limit)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = next
		if first {
			first = false
			limit = 0
		}
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return nil
		default:
		}
	}
}

func streamLogsFromAPI(cmd *cobra.Command, ctx *commandContext, limit int, follow bool) error {
	cfg := ctx.configValue()
	client, err := logs.NewClient(cfg.API.Bind, cfg.API.Token)
	if err != nil {
		return err
	}
	if client == nil {
		return logs.ErrAPIUnavailable
	}
	return runLogLoop(cmd, follow, limit, func(offset int64, limit int) ([]string, int64, error) {
		resp, err := client.Fetch(cmd.Context(), logs.Query{Offset: offset, Limit: limit, Follow: follow})
		if err != nil {
			return nil, 0, err
		}
		return resp.Lines, resp.NextOffset, nil
	})
}

func streamLogsOverSocket(cmd *cobra.Command, client *ipc.Client, limit int, follow bool) error {
	return runLogLoop(cmd, follow, limit, func(offset int64, limit int) ([]string, int64, error) {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: int(logFollowWait / time.Millisecond),
		})
		if err != nil {
			return nil, 0, err
		}
		return resp.Lines, resp.Offset, nil
	})
}

func streamLogsFromFile(cmd *cobra.Command, path string, limit int, follow bool) error {
	return runLogLoop(cmd, follow, limit, func(offset int64, limit int) ([]string, int64, error) {
		result, err := logs.Tail(cmd.Context(), path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   logFollowWait,
		})
		if err != nil {
			return nil, 0, err
		}
		return result.Lines, result.Offset, nil
	})
}
