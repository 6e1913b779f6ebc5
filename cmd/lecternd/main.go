// lecternd runs the lectern daemon in the foreground without the CLI
// wrapper. It loads the default configuration and blocks until SIGINT or
// SIGTERM. Use `lectern daemon run` for the same loop with flag overrides.
package main

import (
	"context"
	"errors"
	"log"

	"lectern/internal/config"
	"lectern/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("lecternd: %v", err)
	}
}
