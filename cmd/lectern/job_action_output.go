package main

import (
	"fmt"
	"io"

	"lectern/internal/api"
)

func printRetryOutcomes(out io.Writer, outcomes []api.RetryJobResult) {
	for _, item := range outcomes {
		switch item.Outcome {
		case api.RetryJobUpdated:
			fmt.Fprintf(out, "Job %s reset for retry\n", item.ID)
		case api.RetryJobNotFound:
			fmt.Fprintf(out, "Job %s not found\n", item.ID)
		case api.RetryJobNotFailed:
			fmt.Fprintf(out, "Job %s is not in a retryable state (only failed jobs can be retried)\n", item.ID)
		case api.RetryJobNotRetryable:
			fmt.Fprintf(out, "Job %s failed timeline validation; submit the document again instead of retrying\n", item.ID)
		}
	}
}

func printStopOutcomes(out io.Writer, outcomes []api.StopJobResult) {
	for _, item := range outcomes {
		switch item.Outcome {
		case api.StopJobUpdated:
			message := fmt.Sprintf("Job %s stop requested", item.ID)
			if item.PriorStatus == "processing" {
				message = fmt.Sprintf("Job %s stop requested (currently processing; will halt at the next stage boundary)", item.ID)
			}
			fmt.Fprintln(out, message)
		case api.StopJobNotFound:
			fmt.Fprintf(out, "Job %s not found\n", item.ID)
		case api.StopJobAlreadyCompleted:
			fmt.Fprintf(out, "Job %s is already completed\n", item.ID)
		case api.StopJobAlreadyFailed:
			fmt.Fprintf(out, "Job %s is already failed\n", item.ID)
		case api.StopJobAlreadyStopped:
			fmt.Fprintf(out, "Job %s is already stopped\n", item.ID)
		}
	}
}

func printRemoveOutcomes(out io.Writer, outcomes []api.RemoveJobResult) {
	for _, item := range outcomes {
		switch item.Outcome {
		case api.RemoveJobRemoved:
			fmt.Fprintf(out, "Job %s removed\n", item.ID)
		case api.RemoveJobNotFound:
			fmt.Fprintf(out, "Job %s not found\n", item.ID)
		case api.RemoveJobProcessing:
			fmt.Fprintf(out, "Job %s is processing; stop it before removing\n", item.ID)
		}
	}
}
