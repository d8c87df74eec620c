package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dushixiang/sshwatchdog/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cli.Execute(ctx, os.Args[1:]); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
