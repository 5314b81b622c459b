// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pitchtrack/cmd"
	"pitchtrack/internal/log"
	"pitchtrack/pkg/build"
)

// main wires signals to a context and hands over to the CLI. Interrupting a
// running command stops its dispatcher after the current window, so sinks
// are flushed before exit.
func main() {
	if err := build.Initialize(); err != nil {
		log.Debugf("Build information incomplete, using defaults: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		log.Fatalf("%v", err)
	}
}
