// File: cmd/headunitd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// headunitd runs the projection connection orchestrator as a daemon.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-headunit/internal/logging"
)

const (
	errCommand = 1
	errSetup   = 2
)

func main() {
	log := logging.New("headunitd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := newRootCmd(log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errSetup)
	}

	err = root.ExecuteContext(ctx)
	log.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errCommand)
	}
}
